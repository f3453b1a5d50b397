package models

import (
	"strconv"
	"time"
)

// isoMillis matches the millisecond ISO-8601 form clients already parse.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// CreatorSummary is the public view of a post author.
type CreatorSummary struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// PostData is the client-facing view of a post.
type PostData struct {
	ID        string          `json:"_id"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	ImageURL  string          `json:"imageUrl"`
	Creator   *CreatorSummary `json:"creator"`
	CreatedAt string          `json:"createdAt"`
	UpdatedAt string          `json:"updatedAt"`

	creatorID   uint
	creatorUser *UserData
}

// CreatorID returns the numeric author id behind the summary.
func (p *PostData) CreatorID() uint { return p.creatorID }

// CreatorUser returns the full author view when the creator was loaded.
func (p *PostData) CreatorUser() *UserData { return p.creatorUser }

// UserData is the client-facing view of an account. The password hash is never copied.
type UserData struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Status string `json:"status"`

	userID uint
}

// UserID returns the numeric id of the account.
func (u *UserData) UserID() uint { return u.userID }

// PostPage is one page of the feed plus the total number of posts.
type PostPage struct {
	Posts      []*PostData `json:"posts"`
	TotalPosts int64       `json:"totalPosts"`
}

// AuthData is returned by a successful login.
type AuthData struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// PostEvent is pushed to live subscribers after each post mutation.
type PostEvent struct {
	Action string      `json:"action"`
	Post   interface{} `json:"post"`
}

// Post event actions.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// FormatID renders a numeric id the way clients see it.
func FormatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseID is the inverse of FormatID.
func ParseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// FormatTime renders timestamps as UTC ISO-8601 with milliseconds.
func FormatTime(t time.Time) string {
	return t.UTC().Format(isoMillis)
}

// NewPostData builds the public view of p. When the creator was not loaded
// only its id is filled in.
func NewPostData(p *Post) *PostData {
	if p == nil {
		return nil
	}
	creator := &CreatorSummary{ID: FormatID(p.CreatorID)}
	var creatorUser *UserData
	if p.Creator != nil {
		creator.Name = p.Creator.Name
		creatorUser = NewUserData(p.Creator)
	}
	return &PostData{
		ID:          FormatID(p.ID),
		Title:       p.Title,
		Content:     p.Content,
		ImageURL:    p.ImageURL,
		Creator:     creator,
		CreatedAt:   FormatTime(p.CreatedAt),
		UpdatedAt:   FormatTime(p.UpdatedAt),
		creatorID:   p.CreatorID,
		creatorUser: creatorUser,
	}
}

// NewUserData builds the public view of u.
func NewUserData(u *User) *UserData {
	if u == nil {
		return nil
	}
	return &UserData{
		ID:     FormatID(u.ID),
		Name:   u.Name,
		Email:  u.Email,
		Status: u.Status,
		userID: u.ID,
	}
}
