package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"feedql/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn      func(context.Context, uint) (*models.User, error)
	getByEmailFn   func(context.Context, string) (*models.User, error)
	createFn       func(context.Context, *models.User) error
	updateStatusFn func(context.Context, uint, string) error
	appendPostFn   func(context.Context, uint, *models.Post) error
	removePostFn   func(context.Context, uint, uint) error
	listPostsFn    func(context.Context, uint) ([]*models.Post, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) UpdateStatus(ctx context.Context, id uint, status string) error {
	return s.updateStatusFn(ctx, id, status)
}
func (s *userRepoStub) AppendPost(ctx context.Context, userID uint, post *models.Post) error {
	return s.appendPostFn(ctx, userID, post)
}
func (s *userRepoStub) RemovePost(ctx context.Context, userID, postID uint) error {
	return s.removePostFn(ctx, userID, postID)
}
func (s *userRepoStub) ListPosts(ctx context.Context, userID uint) ([]*models.Post, error) {
	return s.listPostsFn(ctx, userID)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Name: "Max", Email: "max@example.com", Status: models.DefaultStatus}, nil
		},
		getByEmailFn:   func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		createFn:       func(_ context.Context, u *models.User) error { u.ID = 1; return nil },
		updateStatusFn: func(_ context.Context, _ uint, _ string) error { return nil },
		appendPostFn:   func(_ context.Context, _ uint, _ *models.Post) error { return nil },
		removePostFn:   func(_ context.Context, _, _ uint) error { return nil },
		listPostsFn:    func(_ context.Context, _ uint) ([]*models.Post, error) { return nil, nil },
	}
}

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	countFn   func(context.Context) (int64, error)
	listFn    func(context.Context, int, int) ([]*models.Post, error)
	getByIDFn func(context.Context, uint) (*models.Post, error)
	createFn  func(context.Context, *models.Post) error
	updateFn  func(context.Context, *models.Post) error
	deleteFn  func(context.Context, uint) error
}

func (s *postRepoStub) Count(ctx context.Context) (int64, error) {
	return s.countFn(ctx)
}
func (s *postRepoStub) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		countFn:   func(_ context.Context) (int64, error) { return 0, nil },
		listFn:    func(_ context.Context, _, _ int) ([]*models.Post, error) { return nil, nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) { return nil, models.NewNotFoundError("Post", id) },
		createFn:  func(_ context.Context, p *models.Post) error { p.ID = 10; return nil },
		updateFn:  func(_ context.Context, _ *models.Post) error { return nil },
		deleteFn:  func(_ context.Context, _ uint) error { return nil },
	}
}

// publisherStub records published events.
type publisherStub struct {
	mu     sync.Mutex
	events []models.PostEvent
	topics []string
}

func (p *publisherStub) Publish(_ context.Context, topic string, ev models.PostEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, ev)
}

func (p *publisherStub) Events() []models.PostEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.PostEvent(nil), p.events...)
}

// discarderStub records discarded image paths.
type discarderStub struct {
	mu    sync.Mutex
	paths []string
}

func (d *discarderStub) Discard(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paths = append(d.paths, path)
}

func (d *discarderStub) Paths() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.paths...)
}

// tokenStub issues predictable tokens.
type tokenStub struct {
	err error
}

func (s tokenStub) Issue(userID uint, email string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "token-" + models.FormatID(userID) + "-" + email, nil
}

// plainHasher prefixes instead of hashing.
type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }
func (plainHasher) Compare(hash, plain string) error {
	if hash != "hashed:"+plain {
		return errors.New("mismatch")
	}
	return nil
}

// assertAppError checks the status and message of err.
func assertAppError(t *testing.T, err error, status int, message string) *models.AppError {
	t.Helper()
	require.Error(t, err)
	appErr, ok := models.AsAppError(err)
	require.True(t, ok, "expected AppError, got %T: %v", err, err)
	assert.Equal(t, status, appErr.HTTPStatus())
	if message != "" {
		assert.Equal(t, message, appErr.Message)
	}
	return appErr
}

func fieldMessages(appErr *models.AppError) []string {
	out := make([]string, 0, len(appErr.Data))
	for _, f := range appErr.Data {
		out = append(out, f.Message)
	}
	return out
}
