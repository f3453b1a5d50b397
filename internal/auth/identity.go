// Package auth issues and verifies identity tokens, hashes passwords and
// carries the per-request authentication result.
package auth

import (
	"context"

	"feedql/internal/models"
)

// NotAuthenticated is the client-facing message for operations that need a caller.
const NotAuthenticated = "Not authenticated!"

// Identity is the authentication result attached to every request. It is
// either anonymous or carries the verified user id and email.
type Identity struct {
	authenticated bool
	userID        uint
	email         string
}

// Anonymous is the identity of a request without a valid token.
func Anonymous() Identity {
	return Identity{}
}

// Authenticated is the identity of a request with a verified token.
func Authenticated(userID uint, email string) Identity {
	return Identity{authenticated: true, userID: userID, email: email}
}

func (i Identity) IsAuthenticated() bool { return i.authenticated }
func (i Identity) UserID() uint          { return i.userID }
func (i Identity) Email() string         { return i.email }

// Require returns the caller's user id or a 401 AppError.
func (i Identity) Require() (uint, error) {
	if !i.authenticated {
		return 0, models.NewUnauthorizedError(NotAuthenticated)
	}
	return i.userID, nil
}

type identityKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored in ctx, or Anonymous.
func FromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityKey{}).(Identity); ok {
		return id
	}
	return Anonymous()
}
