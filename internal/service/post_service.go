package service

import (
	"context"
	"log/slog"

	"feedql/internal/auth"
	"feedql/internal/middleware"
	"feedql/internal/models"
	"feedql/internal/observability"
	"feedql/internal/repository"
	"feedql/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// Client-facing messages of the post operations.
const (
	msgTitleInvalid   = "Title is invalid."
	msgContentInvalid = "Content is invalid."
	msgNoImage        = "No image provided."
	msgInvalidUser    = "Invalid user."
	msgNoPostFound    = "No post found!"
	msgNotAuthorized  = "Not authorized!"
)

const (
	// PageSize is the fixed number of posts per feed page.
	PageSize = 2
	// PostsTopic is the event type of every post change.
	PostsTopic = "posts"
	// MinPostFieldLength applies to titles and contents.
	MinPostFieldLength = 5
)

// Publisher delivers post events to live subscribers without blocking.
type Publisher interface {
	Publish(ctx context.Context, topic string, ev models.PostEvent)
}

// ImageDiscarder removes stored images in the background.
type ImageDiscarder interface {
	Discard(path string)
}

type PostService struct {
	posts     repository.PostRepository
	users     repository.UserRepository
	publisher Publisher
	images    ImageDiscarder
}

// PostInput carries the client-editable fields of a post.
type PostInput struct {
	Title    string
	Content  string
	ImageURL string
}

func NewPostService(
	posts repository.PostRepository,
	users repository.UserRepository,
	publisher Publisher,
	images ImageDiscarder,
) *PostService {
	return &PostService{
		posts:     posts,
		users:     users,
		publisher: publisher,
		images:    images,
	}
}

// ListPosts returns page (1-based, non-positive means 1) of the feed, newest first.
func (s *PostService) ListPosts(ctx context.Context, id auth.Identity, page int) (*models.PostPage, error) {
	if _, err := id.Require(); err != nil {
		return nil, err
	}
	if page <= 0 {
		page = 1
	}

	ctx, span := observability.StartSpan(ctx, "PostService.ListPosts", attribute.Int("page", page))
	var err error
	defer func() { observability.EndSpan(span, err) }()

	total, err := s.posts.Count(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.List(ctx, PageSize, (page-1)*PageSize)
	if err != nil {
		return nil, err
	}

	out := make([]*models.PostData, 0, len(posts))
	for _, p := range posts {
		out = append(out, models.NewPostData(p))
	}
	return &models.PostPage{Posts: out, TotalPosts: total}, nil
}

// GetPost returns one post with its creator.
func (s *PostService) GetPost(ctx context.Context, id auth.Identity, postID uint) (*models.PostData, error) {
	if _, err := id.Require(); err != nil {
		return nil, err
	}
	post, err := s.findPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return models.NewPostData(post), nil
}

// CreatePost stores a post authored by the caller and announces it.
func (s *PostService) CreatePost(ctx context.Context, id auth.Identity, in PostInput) (*models.PostData, error) {
	userID, err := id.Require()
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "PostService.CreatePost")
	defer func() { observability.EndSpan(span, err) }()

	fields := validatePost(in)
	fields.Check(hasImage(in.ImageURL), msgNoImage)
	if err = fields.Err(); err != nil {
		return nil, err
	}

	creator, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if appErr, ok := models.AsAppError(err); ok && appErr.Code == models.CodeNotFound {
			err = models.NewUnauthorizedError(msgInvalidUser)
		}
		return nil, err
	}

	post := &models.Post{
		Title:     in.Title,
		Content:   in.Content,
		ImageURL:  in.ImageURL,
		CreatorID: creator.ID,
	}
	if err = s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	// The back-reference is a second write; a failure here leaves the post in place.
	if err = s.users.AppendPost(ctx, creator.ID, post); err != nil {
		return nil, err
	}
	post.Creator = creator

	data := models.NewPostData(post)
	observability.PostMutations.WithLabelValues(models.ActionCreate).Inc()
	s.publish(ctx, models.ActionCreate, data)
	return data, nil
}

// UpdatePost edits a post owned by the caller. An empty or "undefined" image
// keeps the current one; a replaced image is discarded.
func (s *PostService) UpdatePost(ctx context.Context, id auth.Identity, postID uint, in PostInput) (*models.PostData, error) {
	userID, err := id.Require()
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "PostService.UpdatePost", attribute.Int64("post.id", int64(postID)))
	defer func() { observability.EndSpan(span, err) }()

	post, err := s.findPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.CreatorID != userID {
		err = models.NewForbiddenError(msgNotAuthorized)
		return nil, err
	}

	fields := validatePost(in)
	if err = fields.Err(); err != nil {
		return nil, err
	}

	oldImage := post.ImageURL
	post.Title = in.Title
	post.Content = in.Content
	if hasImage(in.ImageURL) {
		post.ImageURL = in.ImageURL
	}
	if err = s.posts.Update(ctx, post); err != nil {
		return nil, err
	}
	if post.ImageURL != oldImage {
		s.images.Discard(oldImage)
	}

	data := models.NewPostData(post)
	observability.PostMutations.WithLabelValues(models.ActionUpdate).Inc()
	s.publish(ctx, models.ActionUpdate, data)
	return data, nil
}

// DeletePost removes a post owned by the caller together with its image and back-reference.
func (s *PostService) DeletePost(ctx context.Context, id auth.Identity, postID uint) error {
	userID, err := id.Require()
	if err != nil {
		return err
	}

	ctx, span := observability.StartSpan(ctx, "PostService.DeletePost", attribute.Int64("post.id", int64(postID)))
	defer func() { observability.EndSpan(span, err) }()

	post, err := s.findPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.CreatorID != userID {
		err = models.NewForbiddenError(msgNotAuthorized)
		return err
	}

	s.images.Discard(post.ImageURL)
	if err = s.posts.Delete(ctx, post.ID); err != nil {
		return mapPostNotFound(err)
	}
	if err = s.users.RemovePost(ctx, post.CreatorID, post.ID); err != nil {
		return err
	}

	observability.PostMutations.WithLabelValues(models.ActionDelete).Inc()
	s.publish(ctx, models.ActionDelete, models.FormatID(post.ID))
	return nil
}

func (s *PostService) findPost(ctx context.Context, postID uint) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, mapPostNotFound(err)
	}
	return post, nil
}

func (s *PostService) publish(ctx context.Context, action string, post interface{}) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, PostsTopic, models.PostEvent{Action: action, Post: post})
	middleware.Logger.DebugContext(ctx, "Post event published", slog.String("action", action))
}

func validatePost(in PostInput) *validation.Fields {
	var fields validation.Fields
	fields.Check(validation.MinLength(in.Title, MinPostFieldLength), msgTitleInvalid)
	fields.Check(validation.MinLength(in.Content, MinPostFieldLength), msgContentInvalid)
	return &fields
}

func hasImage(url string) bool {
	return validation.NotEmpty(url) && url != models.ImageUnchanged
}

func mapPostNotFound(err error) error {
	if appErr, ok := models.AsAppError(err); ok && appErr.Code == models.CodeNotFound {
		return models.NewNotFoundMessage(msgNoPostFound)
	}
	return err
}
