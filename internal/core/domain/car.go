package domain

import (
	"errors"
	"time"
)

var (
	ErrCarNotFound = errors.New("car not found")
	ErrForbidden   = errors.New("access forbidden")
	ErrValidation  = errors.New("validation failed")
	ErrUpload      = errors.New("image upload failed")
)

// Car is a marketplace listing. OwnerID is set once at creation.
type Car struct {
	ID          string
	Name        string
	Brand       string
	Price       float64
	Year        int
	Description string
	Images      []string
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsOwnedBy reports whether userID is the listing's owner.
func (c *Car) IsOwnedBy(userID string) bool {
	return c != nil && userID != "" && c.OwnerID == userID
}

// CarChanges is the set of fields an update actually writes. Nil pointers
// and a nil Images slice mean "leave unchanged".
type CarChanges struct {
	Name        *string
	Brand       *string
	Price       *float64
	Year        *int
	Description *string
	Images      []string
}

// IsEmpty reports whether applying the changes would be a no-op.
func (ch CarChanges) IsEmpty() bool {
	return ch.Name == nil && ch.Brand == nil && ch.Price == nil &&
		ch.Year == nil && ch.Description == nil && ch.Images == nil
}

// ApplyTo returns a copy of car with the changes merged in.
func (ch CarChanges) ApplyTo(car Car) Car {
	if ch.Name != nil {
		car.Name = *ch.Name
	}
	if ch.Brand != nil {
		car.Brand = *ch.Brand
	}
	if ch.Price != nil {
		car.Price = *ch.Price
	}
	if ch.Year != nil {
		car.Year = *ch.Year
	}
	if ch.Description != nil {
		car.Description = *ch.Description
	}
	if ch.Images != nil {
		car.Images = append([]string(nil), ch.Images...)
	}
	return car
}
