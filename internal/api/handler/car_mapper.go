package handler

import (
	"time"

	"github.com/carmarket/car-marketplace/internal/core/domain"
	"github.com/carmarket/car-marketplace/internal/core/ports"
)

func toCarResponse(c *domain.Car) carResponse {
	images := c.Images
	if images == nil {
		images = []string{}
	}
	return carResponse{
		ID:          c.ID,
		Name:        c.Name,
		Brand:       c.Brand,
		Price:       c.Price,
		Year:        c.Year,
		Description: c.Description,
		Images:      images,
		OwnerID:     c.OwnerID,
		CreatedAt:   c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toCarResponses(cars []*domain.Car) []carResponse {
	out := make([]carResponse, len(cars))
	for i, c := range cars {
		out[i] = toCarResponse(c)
	}
	return out
}

func toCreateCarInput(ownerID string, req createCarRequest) ports.CreateCarInput {
	return ports.CreateCarInput{
		OwnerID:     ownerID,
		Name:        req.Name,
		Brand:       req.Brand,
		Price:       req.Price,
		Year:        req.Year,
		Description: req.Description,
		Images:      req.ImagesBase64,
	}
}

func toUpdateCarInput(carID, requesterID string, req updateCarRequest) ports.UpdateCarInput {
	return ports.UpdateCarInput{
		CarID:       carID,
		RequesterID: requesterID,
		Name:        req.Name,
		Brand:       req.Brand,
		Price:       req.Price,
		Year:        req.Year,
		Description: req.Description,
		Images:      req.ImagesBase64,
	}
}
