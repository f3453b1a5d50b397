package auth

import (
	"errors"
	"fmt"
	"time"

	"feedql/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// TokenService signs and verifies HS256 identity tokens.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService. Tokens expire ttl after issue.
func NewTokenService(secret, issuer string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue creates a signed token embedding the user id and email.
func (s *TokenService) Issue(userID uint, email string) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := s.now()
	claims := jwt.MapClaims{
		"userId": models.FormatID(userID),
		"email":  email,
		"iss":    s.issuer,
		"exp":    now.Add(s.ttl).Unix(),
		"iat":    now.Unix(),
		"jti":    uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks signature, algorithm, issuer and expiry and returns the
// identity embedded in the token.
func (s *TokenService) Verify(raw string) (Identity, error) {
	token, err := jwt.Parse(raw, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return Anonymous(), fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Anonymous(), fmt.Errorf("%w: unexpected claims type", ErrInvalidToken)
	}

	rawID, ok := claims["userId"].(string)
	if !ok {
		return Anonymous(), fmt.Errorf("%w: missing userId", ErrInvalidToken)
	}
	userID, err := models.ParseID(rawID)
	if err != nil || userID == 0 {
		return Anonymous(), fmt.Errorf("%w: malformed userId", ErrInvalidToken)
	}

	email, _ := claims["email"].(string)
	return Authenticated(userID, email), nil
}
