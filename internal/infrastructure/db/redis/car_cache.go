package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carmarket/car-marketplace/internal/core/domain"
)

const defaultCacheTTL = 5 * time.Minute

// CarCache keeps single listings as JSON under car:<id>.
type CarCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCarCache creates a CarCache wrapping the given Redis client.
func NewCarCache(client *redis.Client, ttl time.Duration) *CarCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CarCache{client: client, ttl: ttl}
}

type cachedCar struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Brand       string    `json:"brand"`
	Price       float64   `json:"price"`
	Year        int       `json:"year"`
	Description string    `json:"description"`
	Images      []string  `json:"images"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Get returns (nil, false, nil) on a miss.
func (c *CarCache) Get(ctx context.Context, id string) (*domain.Car, bool, error) {
	raw, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("car cache get: %w", err)
	}

	var cc cachedCar
	if err := json.Unmarshal(raw, &cc); err != nil {
		// Unreadable entry: drop it and treat as a miss.
		_ = c.client.Del(ctx, c.key(id)).Err()
		return nil, false, nil
	}

	return &domain.Car{
		ID:          cc.ID,
		Name:        cc.Name,
		Brand:       cc.Brand,
		Price:       cc.Price,
		Year:        cc.Year,
		Description: cc.Description,
		Images:      cc.Images,
		OwnerID:     cc.OwnerID,
		CreatedAt:   cc.CreatedAt,
		UpdatedAt:   cc.UpdatedAt,
	}, true, nil
}

// Set stores the car for the configured TTL.
func (c *CarCache) Set(ctx context.Context, car *domain.Car) error {
	raw, err := json.Marshal(cachedCar{
		ID:          car.ID,
		Name:        car.Name,
		Brand:       car.Brand,
		Price:       car.Price,
		Year:        car.Year,
		Description: car.Description,
		Images:      car.Images,
		OwnerID:     car.OwnerID,
		CreatedAt:   car.CreatedAt,
		UpdatedAt:   car.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("car cache encode: %w", err)
	}
	return c.client.Set(ctx, c.key(car.ID), raw, c.ttl).Err()
}

// Invalidate removes the cached entry, if any.
func (c *CarCache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, c.key(id)).Err()
}

func (c *CarCache) key(id string) string {
	return "car:" + id
}
