// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"feedql/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateStatus(ctx context.Context, id uint, status string) error
	AppendPost(ctx context.Context, userID uint, post *models.Post) error
	RemovePost(ctx context.Context, userID, postID uint) error
	ListPosts(ctx context.Context, userID uint) ([]*models.Post, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetByEmail returns nil, nil when no account uses email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if user.Status == "" {
		user.Status = models.DefaultStatus
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("User exists already!")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	// PostgreSQL unique violation SQLSTATE 23505, SQLite "UNIQUE constraint failed"
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}

func (r *userRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

// AppendPost adds post to the user's back-reference list.
func (r *userRepository) AppendPost(ctx context.Context, userID uint, post *models.Post) error {
	user := &models.User{ID: userID}
	if err := r.db.WithContext(ctx).Model(user).Association("Posts").Append(post); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// RemovePost drops postID from the user's back-reference list. The post row is untouched.
func (r *userRepository) RemovePost(ctx context.Context, userID, postID uint) error {
	user := &models.User{ID: userID}
	if err := r.db.WithContext(ctx).Model(user).Association("Posts").Delete(&models.Post{ID: postID}); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ListPosts resolves the user's back-reference list, newest first.
func (r *userRepository) ListPosts(ctx context.Context, userID uint) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Joins("JOIN user_posts ON user_posts.post_id = posts.id").
		Where("user_posts.user_id = ?", userID).
		Preload("Creator").
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}
