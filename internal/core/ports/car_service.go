package ports

import (
	"context"

	"github.com/carmarket/car-marketplace/internal/core/domain"
)

// CreateCarInput carries everything needed to list a new car.
type CreateCarInput struct {
	OwnerID     string
	Name        string
	Brand       string
	Price       float64
	Year        int
	Description string
	// Images are client payloads (base64, data URI or URL), at least one.
	Images []string
}

// UpdateCarInput is a merge patch. Nil fields are left untouched; an empty
// Images slice keeps the current images.
type UpdateCarInput struct {
	CarID       string
	RequesterID string
	Name        *string
	Brand       *string
	Price       *float64
	Year        *int
	Description *string
	Images      []string
}

// CarService defines the use cases for car listings.
type CarService interface {
	Create(ctx context.Context, input CreateCarInput) (*domain.Car, error)
	Get(ctx context.Context, carID string) (*domain.Car, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Car, error)
	Update(ctx context.Context, input UpdateCarInput) (*domain.Car, error)
	Delete(ctx context.Context, carID, requesterID string) error
	// Search returns an empty slice, not an error, when nothing matches.
	Search(ctx context.Context, keyword string) ([]*domain.Car, error)
}
