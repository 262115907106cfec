package ports

import (
	"context"

	"github.com/carmarket/car-marketplace/internal/core/domain"
)

// CarRepository defines persistence operations for car listings.
//
// Mutations are conditional on ownership: the filter always includes both the
// car id and the owner id, so a write can never land on another user's car.
type CarRepository interface {
	// Create inserts the car and fills in its ID.
	Create(ctx context.Context, car *domain.Car) error
	FindByID(ctx context.Context, id string) (*domain.Car, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Car, error)
	// UpdateOwned applies changes to the car matching id and ownerID and
	// returns the stored result. domain.ErrCarNotFound when nothing matched.
	UpdateOwned(ctx context.Context, id, ownerID string, changes domain.CarChanges) (*domain.Car, error)
	// DeleteOwned removes the car matching id and ownerID.
	// domain.ErrCarNotFound when nothing matched.
	DeleteOwned(ctx context.Context, id, ownerID string) error
	// Search runs a full-text query over name, brand and description.
	Search(ctx context.Context, keyword string, limit int) ([]*domain.Car, error)
}

// CarCache is an optional read-through cache for single listings.
type CarCache interface {
	// Get reports a miss with (nil, false, nil).
	Get(ctx context.Context, id string) (*domain.Car, bool, error)
	Set(ctx context.Context, car *domain.Car) error
	Invalidate(ctx context.Context, id string) error
}
