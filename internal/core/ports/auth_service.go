package ports

import (
	"context"

	"github.com/carmarket/car-marketplace/internal/core/domain"
)

// AuthService covers registration and login. Both return a freshly issued
// bearer token alongside the user.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (string, *domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
}

// TokenIssuer signs identity tokens for a user id.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// TokenVerifier checks a token and returns the user id it was issued for.
// Any failure wraps domain.ErrInvalidToken.
type TokenVerifier interface {
	Verify(token string) (string, error)
}
