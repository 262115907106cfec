package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/carmarket/car-marketplace/internal/api/metrics"
	"github.com/carmarket/car-marketplace/internal/core/domain"
	"github.com/carmarket/car-marketplace/internal/core/ports"
)

const defaultSearchLimit = 100

// CarServiceOptions tunes CarService behaviour.
type CarServiceOptions struct {
	// ZeroOverwrites makes update apply supplied zero values (price 0,
	// empty text). When false, zero values count as "not supplied".
	ZeroOverwrites bool
	SearchLimit    int
}

// CarService enforces listing ownership and orchestrates image ingest and
// persistence.
type CarService struct {
	repo   ports.CarRepository
	images ports.ImageIngester
	cache  ports.CarCache
	opts   CarServiceOptions
	logger zerolog.Logger
}

// NewCarService wires the service. cache may be nil.
func NewCarService(repo ports.CarRepository, images ports.ImageIngester, cache ports.CarCache, opts CarServiceOptions, logger zerolog.Logger) *CarService {
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = defaultSearchLimit
	}
	return &CarService{repo: repo, images: images, cache: cache, opts: opts, logger: logger}
}

// Create ingests the images and stores a new listing owned by input.OwnerID.
func (s *CarService) Create(ctx context.Context, input ports.CreateCarInput) (*domain.Car, error) {
	if len(input.Images) == 0 {
		return nil, fmt.Errorf("%w: at least one image is required", domain.ErrValidation)
	}
	if input.OwnerID == "" {
		return nil, domain.ErrUnauthenticated
	}

	urls, err := s.images.Ingest(ctx, input.Images)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	car := &domain.Car{
		Name:        input.Name,
		Brand:       input.Brand,
		Price:       input.Price,
		Year:        input.Year,
		Description: input.Description,
		Images:      urls,
		OwnerID:     input.OwnerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, car); err != nil {
		s.logger.Error().Err(err).Str("owner_id", input.OwnerID).Msg("failed to create car")
		return nil, fmt.Errorf("create car: %w", err)
	}

	metrics.CarsCreatedTotal.Inc()
	s.logger.Info().Str("car_id", car.ID).Str("owner_id", car.OwnerID).Int("images", len(urls)).Msg("car created")
	return car, nil
}

// Get returns a single listing, consulting the cache first when configured.
func (s *CarService) Get(ctx context.Context, carID string) (*domain.Car, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, carID)
		switch {
		case err != nil:
			metrics.CarCacheLookupsTotal.WithLabelValues("error").Inc()
			s.logger.Warn().Err(err).Str("car_id", carID).Msg("car cache lookup failed")
		case ok:
			metrics.CarCacheLookupsTotal.WithLabelValues("hit").Inc()
			return cached, nil
		default:
			metrics.CarCacheLookupsTotal.WithLabelValues("miss").Inc()
		}
	}

	car, err := s.repo.FindByID(ctx, carID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, car); err != nil {
			s.logger.Warn().Err(err).Str("car_id", carID).Msg("failed to cache car")
		}
	}
	return car, nil
}

// ListByOwner returns every listing owned by ownerID.
func (s *CarService) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Car, error) {
	cars, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list cars: %w", err)
	}
	if cars == nil {
		cars = []*domain.Car{}
	}
	return cars, nil
}

// Update applies a merge patch on behalf of the owner. Ownership is checked
// before any image is uploaded, and the write itself is conditional on the
// owner so the listing cannot change hands in between.
func (s *CarService) Update(ctx context.Context, input ports.UpdateCarInput) (*domain.Car, error) {
	car, err := s.repo.FindByID(ctx, input.CarID)
	if err != nil {
		s.countMutation("update", err)
		return nil, err
	}
	if !car.IsOwnedBy(input.RequesterID) {
		s.countMutation("update", domain.ErrForbidden)
		s.logger.Warn().Str("car_id", car.ID).Str("requester_id", input.RequesterID).Msg("update rejected: not owner")
		return nil, domain.ErrForbidden
	}

	changes, err := s.changes(input)
	if err != nil {
		return nil, err
	}

	if len(input.Images) > 0 {
		urls, err := s.images.Ingest(ctx, input.Images)
		if err != nil {
			s.countMutation("update", err)
			return nil, err
		}
		changes.Images = urls
	}

	if changes.IsEmpty() {
		return car, nil
	}

	// Invalidated on both sides of the write. A Get that read the old row
	// before the write can still re-cache it afterwards; that copy lives at
	// most one cache TTL.
	s.invalidate(ctx, car.ID)
	updated, err := s.repo.UpdateOwned(ctx, car.ID, input.RequesterID, changes)
	if err != nil {
		s.countMutation("update", err)
		return nil, fmt.Errorf("update car: %w", err)
	}

	s.invalidate(ctx, car.ID)
	s.countMutation("update", nil)
	s.logger.Info().Str("car_id", car.ID).Bool("images_replaced", changes.Images != nil).Msg("car updated")
	return updated, nil
}

// Delete removes the listing if requesterID owns it.
func (s *CarService) Delete(ctx context.Context, carID, requesterID string) error {
	err := s.repo.DeleteOwned(ctx, carID, requesterID)
	if errors.Is(err, domain.ErrCarNotFound) {
		// Nothing matched id+owner: tell "missing" apart from "not yours".
		if _, findErr := s.repo.FindByID(ctx, carID); findErr == nil {
			err = domain.ErrForbidden
			s.logger.Warn().Str("car_id", carID).Str("requester_id", requesterID).Msg("delete rejected: not owner")
		} else if !errors.Is(findErr, domain.ErrCarNotFound) {
			err = findErr
		}
	}
	if err != nil {
		s.countMutation("delete", err)
		if errors.Is(err, domain.ErrCarNotFound) || errors.Is(err, domain.ErrForbidden) {
			return err
		}
		return fmt.Errorf("delete car: %w", err)
	}

	s.invalidate(ctx, carID)
	s.countMutation("delete", nil)
	s.logger.Info().Str("car_id", carID).Msg("car deleted")
	return nil
}

// Search runs a full-text query. A blank keyword or no match yields an empty
// slice.
func (s *CarService) Search(ctx context.Context, keyword string) ([]*domain.Car, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		metrics.SearchesTotal.WithLabelValues("empty").Inc()
		return []*domain.Car{}, nil
	}

	cars, err := s.repo.Search(ctx, keyword, s.opts.SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search cars: %w", err)
	}
	if len(cars) == 0 {
		metrics.SearchesTotal.WithLabelValues("empty").Inc()
		return []*domain.Car{}, nil
	}
	metrics.SearchesTotal.WithLabelValues("match").Inc()
	return cars, nil
}

// changes builds the scalar part of an update according to the zero-value
// policy.
func (s *CarService) changes(in ports.UpdateCarInput) (domain.CarChanges, error) {
	var ch domain.CarChanges
	var err error

	if ch.Name, err = s.textChange("name", in.Name); err != nil {
		return ch, err
	}
	if ch.Brand, err = s.textChange("brand", in.Brand); err != nil {
		return ch, err
	}
	if ch.Description, err = s.textChange("description", in.Description); err != nil {
		return ch, err
	}

	if in.Price != nil {
		if *in.Price < 0 {
			return ch, fmt.Errorf("%w: price cannot be negative", domain.ErrValidation)
		}
		if *in.Price != 0 || s.opts.ZeroOverwrites {
			p := *in.Price
			ch.Price = &p
		}
	}
	if in.Year != nil {
		if *in.Year < 0 {
			return ch, fmt.Errorf("%w: year cannot be negative", domain.ErrValidation)
		}
		if *in.Year != 0 || s.opts.ZeroOverwrites {
			y := *in.Year
			ch.Year = &y
		}
	}
	return ch, nil
}

func (s *CarService) textChange(field string, v *string) (*string, error) {
	if v == nil {
		return nil, nil
	}
	if *v == "" {
		if s.opts.ZeroOverwrites {
			return nil, fmt.Errorf("%w: %s cannot be empty", domain.ErrValidation, field)
		}
		return nil, nil
	}
	out := *v
	return &out, nil
}

func (s *CarService) invalidate(ctx context.Context, carID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, carID); err != nil {
		s.logger.Warn().Err(err).Str("car_id", carID).Msg("failed to invalidate cached car")
	}
}

func (s *CarService) countMutation(op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrForbidden):
		result = "forbidden"
	case errors.Is(err, domain.ErrCarNotFound):
		result = "not_found"
	default:
		result = "error"
	}
	metrics.CarMutationsTotal.WithLabelValues(op, result).Inc()
}
