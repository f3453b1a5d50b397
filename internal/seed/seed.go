// Package seed fills a database with demo users and posts for local development.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"feedql/internal/auth"
	"feedql/internal/middleware"
	"feedql/internal/models"
	"feedql/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

// Options configures a seeding run.
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
	// Seed makes generated content reproducible when non-zero.
	Seed int64
}

// Seeder writes demo data through the repositories so the authored-posts
// back-references stay consistent with the posts table.
type Seeder struct {
	db     *gorm.DB
	users  repository.UserRepository
	posts  repository.PostRepository
	hasher *auth.Hasher
	faker  *gofakeit.Faker
	now    func() time.Time
}

// NewSeeder creates a Seeder bound to db. hasher controls the bcrypt cost of
// the seeded passwords.
func NewSeeder(db *gorm.DB, hasher *auth.Hasher, seed int64) *Seeder {
	return &Seeder{
		db:     db,
		users:  repository.NewUserRepository(db),
		posts:  repository.NewPostRepository(db),
		hasher: hasher,
		faker:  gofakeit.New(seed),
		now:    time.Now,
	}
}

// ClearAll removes every post, back-reference and user.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tx := s.db.WithContext(ctx)
	for _, table := range []string{"user_posts", "posts", "users"} {
		if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	middleware.Logger.Info("Cleared existing data")
	return nil
}

// Run seeds users and then spreads posts across them round-robin.
func (s *Seeder) Run(ctx context.Context, opts Options) ([]*models.User, error) {
	if opts.ShouldClean {
		if err := s.ClearAll(ctx); err != nil {
			return nil, err
		}
	}

	users, err := s.SeedUsers(ctx, opts.NumUsers)
	if err != nil {
		return nil, err
	}
	if _, err := s.SeedPosts(ctx, users, opts.NumPosts); err != nil {
		return users, err
	}
	return users, nil
}

// SeedUsers creates n accounts with fake names and unique addresses.
func (s *Seeder) SeedUsers(ctx context.Context, n int) ([]*models.User, error) {
	hash, err := s.hasher.Hash(DefaultPassword)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		user := &models.User{
			Email:    fmt.Sprintf("%d.%s", i+1, s.faker.Email()),
			Name:     s.faker.Name(),
			Password: hash,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return users, fmt.Errorf("create user %d: %w", i+1, err)
		}
		users = append(users, user)
	}
	middleware.Logger.Info("Seeded users", slog.Int("count", len(users)))
	return users, nil
}

// SeedPosts creates n posts, oldest first, so the feed order matches creation order.
func (s *Seeder) SeedPosts(ctx context.Context, users []*models.User, n int) ([]*models.Post, error) {
	if len(users) == 0 || n <= 0 {
		return nil, nil
	}

	start := s.now().Add(-time.Duration(n) * time.Minute)
	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		creator := users[i%len(users)]
		created := start.Add(time.Duration(i) * time.Minute)
		post := &models.Post{
			Title:     s.faker.Sentence(4),
			Content:   s.faker.Paragraph(1, 3, 8, " "),
			ImageURL:  fmt.Sprintf("https://picsum.photos/seed/%s/800/600", s.faker.UUID()),
			CreatorID: creator.ID,
			CreatedAt: created,
			UpdatedAt: created,
		}
		if err := s.posts.Create(ctx, post); err != nil {
			return posts, fmt.Errorf("create post %d: %w", i+1, err)
		}
		if err := s.users.AppendPost(ctx, creator.ID, post); err != nil {
			return posts, fmt.Errorf("link post %d: %w", i+1, err)
		}
		posts = append(posts, post)
	}
	middleware.Logger.Info("Seeded posts", slog.Int("count", len(posts)))
	return posts, nil
}
