package ports

import (
	"context"

	"github.com/carmarket/car-marketplace/internal/core/domain"
)

// AuthRepository defines the interface for credential persistence.
type AuthRepository interface {
	// FindByEmail returns domain.ErrUserNotFound when no user has the email.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// Create returns domain.ErrDuplicateEmail when the email is taken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}
