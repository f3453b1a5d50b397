// Package service holds the business rules behind the GraphQL and REST handlers.
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
)

// Client-facing messages of the user operations.
const (
	msgEmailInvalid      = "E-Mail is invalid."
	msgPasswordTooShort  = "Password too short!"
	msgNameRequired      = "Name is required."
	msgUserExists        = "User exists already!"
	msgUserNotFound      = "User not found."
	msgPasswordIncorrect = "Password is incorrect."
	msgNoUserFound       = "No user found!"
)

// MinPasswordLength is the shortest accepted signup password.
const MinPasswordLength = 5

// TokenIssuer signs identity tokens.
type TokenIssuer interface {
	Issue(userID uint, email string) (string, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) error
}

type UserService struct {
	users  repository.UserRepository
	tokens TokenIssuer
	hasher PasswordHasher
}

type SignupInput struct {
	Email    string
	Name     string
	Password string
}

func NewUserService(users repository.UserRepository, tokens TokenIssuer, hasher PasswordHasher) *UserService {
	return &UserService{
		users:  users,
		tokens: tokens,
		hasher: hasher,
	}
}

// Signup validates in, rejects known emails and stores the account with a hashed password.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*models.UserData, error) {
	ctx, span := observability.StartSpan(ctx, "UserService.Signup")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	var fields validation.Fields
	fields.Check(validation.Email(in.Email), msgEmailInvalid)
	fields.Check(validation.MinLength(in.Password, MinPasswordLength), msgPasswordTooShort)
	fields.Check(validation.NotEmpty(in.Name), msgNameRequired)
	if err = fields.Err(); err != nil {
		return nil, err
	}

	existing, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		err = models.NewConflictError(msgUserExists)
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		err = models.NewInternalError(err)
		return nil, err
	}

	user := &models.User{
		Email:    in.Email,
		Name:     in.Name,
		Password: hash,
		Status:   models.DefaultStatus,
	}
	if err = s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "User signed up", slog.Uint64("user_id", uint64(user.ID)))
	return models.NewUserData(user), nil
}

// Login checks the credentials and issues a token for the account.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.AuthData, error) {
	ctx, span := observability.StartSpan(ctx, "UserService.Login")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		err = models.NewUnauthorizedError(msgUserNotFound)
		return nil, err
	}
	if cmpErr := s.hasher.Compare(user.Password, password); cmpErr != nil {
		err = models.NewUnauthorizedError(msgPasswordIncorrect)
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		err = models.NewInternalError(err)
		return nil, err
	}
	return &models.AuthData{Token: token, UserID: models.FormatID(user.ID)}, nil
}

// GetUser returns the caller's own account.
func (s *UserService) GetUser(ctx context.Context, id auth.Identity) (*models.UserData, error) {
	user, err := s.loadCaller(ctx, id)
	if err != nil {
		return nil, err
	}
	return models.NewUserData(user), nil
}

// GetStatus returns the caller's status line.
func (s *UserService) GetStatus(ctx context.Context, id auth.Identity) (string, error) {
	user, err := s.loadCaller(ctx, id)
	if err != nil {
		return "", err
	}
	return user.Status, nil
}

// UpdateStatus replaces the caller's status line and returns the updated account.
func (s *UserService) UpdateStatus(ctx context.Context, id auth.Identity, status string) (*models.UserData, error) {
	user, err := s.loadCaller(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateStatus(ctx, user.ID, status); err != nil {
		return nil, mapUserNotFound(err)
	}
	user.Status = status
	return models.NewUserData(user), nil
}

// Profile returns the public view of any account.
func (s *UserService) Profile(ctx context.Context, userID uint) (*models.UserData, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapUserNotFound(err)
	}
	return models.NewUserData(user), nil
}

// UserPosts resolves the posts back-referenced by userID.
func (s *UserService) UserPosts(ctx context.Context, userID uint) ([]*models.PostData, error) {
	posts, err := s.users.ListPosts(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]*models.PostData, 0, len(posts))
	for _, p := range posts {
		out = append(out, models.NewPostData(p))
	}
	return out, nil
}

func (s *UserService) loadCaller(ctx context.Context, id auth.Identity) (*models.User, error) {
	userID, err := id.Require()
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapUserNotFound(err)
	}
	return user, nil
}

func mapUserNotFound(err error) error {
	if appErr, ok := models.AsAppError(err); ok && appErr.Code == models.CodeNotFound {
		return models.NewNotFoundMessage(msgNoUserFound)
	}
	return err
}
