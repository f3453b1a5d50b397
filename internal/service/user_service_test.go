package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"feedql/internal/auth"
	"feedql/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_SignupValidation(t *testing.T) {
	tests := []struct {
		name     string
		in       SignupInput
		expected []string
	}{
		{
			name:     "bad email",
			in:       SignupInput{Email: "not-an-email", Name: "Max", Password: "abcde"},
			expected: []string{msgEmailInvalid},
		},
		{
			name:     "short password",
			in:       SignupInput{Email: "a@b.com", Name: "Max", Password: "abcd"},
			expected: []string{msgPasswordTooShort},
		},
		{
			name:     "everything wrong",
			in:       SignupInput{Email: "", Name: " ", Password: ""},
			expected: []string{msgEmailInvalid, msgPasswordTooShort, msgNameRequired},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := noopUserRepo()
			repo.createFn = func(context.Context, *models.User) error {
				t.Fatal("Create must not be called for invalid input")
				return nil
			}
			svc := NewUserService(repo, tokenStub{}, plainHasher{})

			_, err := svc.Signup(context.Background(), tt.in)
			appErr := assertAppError(t, err, http.StatusUnprocessableEntity, "Invalid input.")
			assert.Equal(t, tt.expected, fieldMessages(appErr))
		})
	}
}

func TestUserService_Signup(t *testing.T) {
	repo := noopUserRepo()
	var stored *models.User
	repo.createFn = func(_ context.Context, u *models.User) error {
		u.ID = 7
		stored = u
		return nil
	}
	svc := NewUserService(repo, tokenStub{}, plainHasher{})

	user, err := svc.Signup(context.Background(), SignupInput{Email: "a@b.com", Name: "Max", Password: "abcde"})
	require.NoError(t, err)
	assert.Equal(t, "7", user.ID)
	assert.Equal(t, models.DefaultStatus, user.Status)
	require.NotNil(t, stored)
	assert.Equal(t, "hashed:abcde", stored.Password)
}

func TestUserService_SignupConflict(t *testing.T) {
	t.Run("known email", func(t *testing.T) {
		repo := noopUserRepo()
		repo.getByEmailFn = func(_ context.Context, email string) (*models.User, error) {
			return &models.User{ID: 1, Email: email}, nil
		}
		svc := NewUserService(repo, tokenStub{}, plainHasher{})

		_, err := svc.Signup(context.Background(), SignupInput{Email: "a@b.com", Name: "Max", Password: "abcde"})
		assertAppError(t, err, http.StatusConflict, msgUserExists)
	})

	t.Run("race on insert", func(t *testing.T) {
		repo := noopUserRepo()
		repo.createFn = func(context.Context, *models.User) error {
			return models.NewConflictError(msgUserExists)
		}
		svc := NewUserService(repo, tokenStub{}, plainHasher{})

		_, err := svc.Signup(context.Background(), SignupInput{Email: "a@b.com", Name: "Max", Password: "abcde"})
		assertAppError(t, err, http.StatusConflict, msgUserExists)
	})
}

func TestUserService_Login(t *testing.T) {
	account := &models.User{ID: 3, Email: "a@b.com", Password: "hashed:abcde"}
	repo := noopUserRepo()
	repo.getByEmailFn = func(_ context.Context, email string) (*models.User, error) {
		if email == account.Email {
			return account, nil
		}
		return nil, nil
	}

	tests := []struct {
		name           string
		email          string
		password       string
		tokens         tokenStub
		expectedStatus int
		expectedMsg    string
	}{
		{name: "success", email: "a@b.com", password: "abcde"},
		{name: "unknown email", email: "x@b.com", password: "abcde", expectedStatus: http.StatusUnauthorized, expectedMsg: msgUserNotFound},
		{name: "wrong password", email: "a@b.com", password: "wrong", expectedStatus: http.StatusUnauthorized, expectedMsg: msgPasswordIncorrect},
		{name: "signing failure", email: "a@b.com", password: "abcde", tokens: tokenStub{err: errors.New("no secret")}, expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewUserService(repo, tt.tokens, plainHasher{})
			data, err := svc.Login(context.Background(), tt.email, tt.password)
			if tt.expectedStatus != 0 {
				assert.Nil(t, data)
				assertAppError(t, err, tt.expectedStatus, tt.expectedMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "3", data.UserID)
			assert.Equal(t, "token-3-a@b.com", data.Token)
		})
	}
}

func TestUserService_StatusAndProfile(t *testing.T) {
	caller := auth.Authenticated(5, "me@example.com")
	ctx := context.Background()

	t.Run("anonymous", func(t *testing.T) {
		svc := NewUserService(noopUserRepo(), tokenStub{}, plainHasher{})
		_, err := svc.GetUser(ctx, auth.Anonymous())
		assertAppError(t, err, http.StatusUnauthorized, auth.NotAuthenticated)
		_, err = svc.GetStatus(ctx, auth.Anonymous())
		assertAppError(t, err, http.StatusUnauthorized, auth.NotAuthenticated)
		_, err = svc.UpdateStatus(ctx, auth.Anonymous(), "x")
		assertAppError(t, err, http.StatusUnauthorized, auth.NotAuthenticated)
	})

	t.Run("missing user", func(t *testing.T) {
		repo := noopUserRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return nil, models.NewNotFoundError("User", id)
		}
		svc := NewUserService(repo, tokenStub{}, plainHasher{})

		_, err := svc.GetStatus(ctx, caller)
		assertAppError(t, err, http.StatusNotFound, msgNoUserFound)
		_, err = svc.UpdateStatus(ctx, caller, "Busy")
		assertAppError(t, err, http.StatusNotFound, msgNoUserFound)
	})

	t.Run("read and update", func(t *testing.T) {
		repo := noopUserRepo()
		var updated string
		repo.updateStatusFn = func(_ context.Context, id uint, status string) error {
			assert.Equal(t, uint(5), id)
			updated = status
			return nil
		}
		svc := NewUserService(repo, tokenStub{}, plainHasher{})

		status, err := svc.GetStatus(ctx, caller)
		require.NoError(t, err)
		assert.Equal(t, models.DefaultStatus, status)

		user, err := svc.UpdateStatus(ctx, caller, "Busy")
		require.NoError(t, err)
		assert.Equal(t, "Busy", user.Status)
		assert.Equal(t, "Busy", updated)

		profile, err := svc.GetUser(ctx, caller)
		require.NoError(t, err)
		assert.Equal(t, "5", profile.ID)
		assert.Equal(t, uint(5), profile.UserID())
	})
}

func TestUserService_UserPosts(t *testing.T) {
	repo := noopUserRepo()
	repo.listPostsFn = func(_ context.Context, userID uint) ([]*models.Post, error) {
		return []*models.Post{{ID: 2, Title: "Hello", CreatorID: userID}}, nil
	}
	svc := NewUserService(repo, tokenStub{}, plainHasher{})

	posts, err := svc.UserPosts(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "2", posts[0].ID)
	assert.Equal(t, "9", posts[0].Creator.ID)
}

func TestUserService_Profile(t *testing.T) {
	repo := noopUserRepo()
	svc := NewUserService(repo, tokenStub{}, plainHasher{})

	profile, err := svc.Profile(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "4", profile.ID)

	repo.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		return nil, models.NewNotFoundError("User", id)
	}
	_, err = svc.Profile(context.Background(), 4)
	assertAppError(t, err, http.StatusNotFound, msgNoUserFound)
}
