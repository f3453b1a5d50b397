package middleware

import (
	"context"
	"strings"

	"feedql/internal/auth"

	"github.com/gofiber/fiber/v2"
)

// IdentityLocal is the Fiber locals key holding the request's auth.Identity.
const IdentityLocal = "identity"

// TokenVerifier verifies a raw bearer token.
type TokenVerifier interface {
	Verify(raw string) (auth.Identity, error)
}

// AuthGate annotates every request with an auth.Identity. It never rejects:
// a missing, malformed or invalid credential yields an anonymous identity and
// each operation decides whether it needs a caller.
func AuthGate(tokens TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := identityFromHeader(tokens, c.Get(fiber.HeaderAuthorization))

		ctx := auth.WithIdentity(c.UserContext(), id)
		if id.IsAuthenticated() {
			c.Locals("userID", id.UserID())
			ctx = context.WithValue(ctx, UserIDKey, id.UserID())
		}
		c.Locals(IdentityLocal, id)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

func identityFromHeader(tokens TokenVerifier, header string) auth.Identity {
	if header == "" {
		return auth.Anonymous()
	}

	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return auth.Anonymous()
	}

	id, err := tokens.Verify(parts[1])
	if err != nil {
		return auth.Anonymous()
	}
	return id
}

// IdentityFrom returns the identity attached by AuthGate.
func IdentityFrom(c *fiber.Ctx) auth.Identity {
	if id, ok := c.Locals(IdentityLocal).(auth.Identity); ok {
		return id
	}
	return auth.Anonymous()
}
