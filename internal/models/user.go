// Package models contains the persisted entities and client-facing payloads.
package models

import "time"

// DefaultStatus is assigned to every new account.
const DefaultStatus = "I am new!"

// User is an account able to author posts.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	Name      string    `gorm:"not null" json:"name"`
	Status    string    `gorm:"not null;default:'I am new!'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// Posts is the authored-posts back-reference. Ownership is Post.CreatorID.
	Posts []Post `gorm:"many2many:user_posts;constraint:OnDelete:CASCADE" json:"posts,omitempty"`
}
