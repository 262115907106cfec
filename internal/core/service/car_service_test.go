package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/carmarket/car-marketplace/internal/core/domain"
	"github.com/carmarket/car-marketplace/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stubs
// ---------------------------------------------------------------------------

type stubCarRepo struct {
	cars      map[string]*domain.Car
	nextID    int
	createErr error
	writes    int // successful Create/UpdateOwned/DeleteOwned calls
	finds     int
}

func newStubCarRepo() *stubCarRepo {
	return &stubCarRepo{cars: make(map[string]*domain.Car)}
}

func cloneCar(c *domain.Car) *domain.Car {
	clone := *c
	clone.Images = append([]string(nil), c.Images...)
	return &clone
}

func (r *stubCarRepo) Create(_ context.Context, car *domain.Car) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	car.ID = fmt.Sprintf("car-%d", r.nextID)
	r.cars[car.ID] = cloneCar(car)
	r.writes++
	return nil
}

func (r *stubCarRepo) FindByID(_ context.Context, id string) (*domain.Car, error) {
	r.finds++
	c, ok := r.cars[id]
	if !ok {
		return nil, domain.ErrCarNotFound
	}
	return cloneCar(c), nil
}

func (r *stubCarRepo) ListByOwner(_ context.Context, ownerID string) ([]*domain.Car, error) {
	var out []*domain.Car
	for _, c := range r.cars {
		if c.OwnerID == ownerID {
			out = append(out, cloneCar(c))
		}
	}
	return out, nil
}

// UpdateOwned mirrors the Mongo filter {_id, user}.
func (r *stubCarRepo) UpdateOwned(_ context.Context, id, ownerID string, ch domain.CarChanges) (*domain.Car, error) {
	c, ok := r.cars[id]
	if !ok || c.OwnerID != ownerID {
		return nil, domain.ErrCarNotFound
	}
	updated := ch.ApplyTo(*c)
	r.cars[id] = cloneCar(&updated)
	r.writes++
	return cloneCar(&updated), nil
}

func (r *stubCarRepo) DeleteOwned(_ context.Context, id, ownerID string) error {
	c, ok := r.cars[id]
	if !ok || c.OwnerID != ownerID {
		return domain.ErrCarNotFound
	}
	delete(r.cars, id)
	r.writes++
	return nil
}

func (r *stubCarRepo) Search(_ context.Context, keyword string, limit int) ([]*domain.Car, error) {
	var out []*domain.Car
	kw := strings.ToLower(keyword)
	for _, c := range r.cars {
		text := strings.ToLower(c.Name + " " + c.Brand + " " + c.Description)
		if strings.Contains(text, kw) {
			out = append(out, cloneCar(c))
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type stubIngester struct {
	calls int
	err   error
}

func (s *stubIngester) Ingest(_ context.Context, payloads []string) ([]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	urls := make([]string, len(payloads))
	for i := range payloads {
		urls[i] = fmt.Sprintf("https://img.test/%d-%d", s.calls, i)
	}
	return urls, nil
}

type stubCarCache struct {
	items       map[string]*domain.Car
	getErr      error
	invalidated []string

	// repo, when set, has its write count recorded on every Invalidate.
	repo          *stubCarRepo
	writesAtDrops []int
}

func newStubCarCache() *stubCarCache {
	return &stubCarCache{items: make(map[string]*domain.Car)}
}

func (c *stubCarCache) Get(_ context.Context, id string) (*domain.Car, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	car, ok := c.items[id]
	if !ok {
		return nil, false, nil
	}
	return cloneCar(car), true, nil
}

func (c *stubCarCache) Set(_ context.Context, car *domain.Car) error {
	c.items[car.ID] = cloneCar(car)
	return nil
}

func (c *stubCarCache) Invalidate(_ context.Context, id string) error {
	delete(c.items, id)
	c.invalidated = append(c.invalidated, id)
	if c.repo != nil {
		c.writesAtDrops = append(c.writesAtDrops, c.repo.writes)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newCarSvc(repo *stubCarRepo, ing *stubIngester, opts CarServiceOptions) *CarService {
	return NewCarService(repo, ing, nil, opts, zerolog.Nop())
}

func teslaInput(owner string) ports.CreateCarInput {
	return ports.CreateCarInput{
		OwnerID:     owner,
		Name:        "Model X",
		Brand:       "Tesla",
		Price:       80000,
		Year:        2023,
		Description: "SUV",
		Images:      []string{"<b64>"},
	}
}

func seedCar(t *testing.T, svc *CarService, owner string) *domain.Car {
	t.Helper()
	car, err := svc.Create(context.Background(), teslaInput(owner))
	if err != nil {
		t.Fatalf("seed create: %v", err)
	}
	return car
}

func strPtr(s string) *string { return &s }
func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int { return &i }

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestCarService_Create_SetsOwnerAndImages(t *testing.T) {
	repo := newStubCarRepo()
	ing := &stubIngester{}
	svc := newCarSvc(repo, ing, CarServiceOptions{})

	car, err := svc.Create(context.Background(), teslaInput("U"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if car.OwnerID != "U" {
		t.Errorf("expected owner U, got %q", car.OwnerID)
	}
	if !reflect.DeepEqual(car.Images, []string{"https://img.test/1-0"}) {
		t.Errorf("unexpected images: %v", car.Images)
	}
	if car.ID == "" || car.CreatedAt.IsZero() || car.UpdatedAt.IsZero() {
		t.Errorf("expected id and timestamps, got %+v", car)
	}
	if stored := repo.cars[car.ID]; stored == nil || stored.OwnerID != "U" {
		t.Errorf("car not persisted with owner: %+v", stored)
	}
}

func TestCarService_Create_NoImages(t *testing.T) {
	repo := newStubCarRepo()
	ing := &stubIngester{}
	svc := newCarSvc(repo, ing, CarServiceOptions{})

	in := teslaInput("U")
	in.Images = nil
	_, err := svc.Create(context.Background(), in)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if ing.calls != 0 {
		t.Errorf("expected no upload, got %d ingest calls", ing.calls)
	}
	if repo.writes != 0 {
		t.Errorf("expected no persistence, got %d writes", repo.writes)
	}
}

func TestCarService_Create_UploadFailureSkipsPersistence(t *testing.T) {
	repo := newStubCarRepo()
	ing := &stubIngester{err: fmt.Errorf("%w: boom", domain.ErrUpload)}
	svc := newCarSvc(repo, ing, CarServiceOptions{})

	_, err := svc.Create(context.Background(), teslaInput("U"))
	if !errors.Is(err, domain.ErrUpload) {
		t.Fatalf("expected ErrUpload, got %v", err)
	}
	if repo.writes != 0 {
		t.Errorf("expected no persistence, got %d writes", repo.writes)
	}
}

func TestCarService_Create_RepoError(t *testing.T) {
	repo := newStubCarRepo()
	repo.createErr = errors.New("db down")
	svc := newCarSvc(repo, &stubIngester{}, CarServiceOptions{})

	if _, err := svc.Create(context.Background(), teslaInput("U")); err == nil {
		t.Fatal("expected error")
	}
}

// ---------------------------------------------------------------------------
// Get / ListByOwner
// ---------------------------------------------------------------------------

func TestCarService_Get_NotFound(t *testing.T) {
	svc := newCarSvc(newStubCarRepo(), &stubIngester{}, CarServiceOptions{})

	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, domain.ErrCarNotFound) {
		t.Fatalf("expected ErrCarNotFound, got %v", err)
	}
}

func TestCarService_Get_ReadThroughCache(t *testing.T) {
	repo := newStubCarRepo()
	cache := newStubCarCache()
	svc := NewCarService(repo, &stubIngester{}, cache, CarServiceOptions{}, zerolog.Nop())
	car := seedCar(t, svc, "U")

	if _, err := svc.Get(context.Background(), car.ID); err != nil {
		t.Fatalf("first get: %v", err)
	}
	if _, ok := cache.items[car.ID]; !ok {
		t.Fatal("expected car to be cached after miss")
	}

	findsBefore := repo.finds
	got, err := svc.Get(context.Background(), car.ID)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if repo.finds != findsBefore {
		t.Errorf("expected cache hit, repo was queried")
	}
	if got.Name != "Model X" {
		t.Errorf("unexpected cached car: %+v", got)
	}
}

func TestCarService_Get_CacheErrorFallsBack(t *testing.T) {
	repo := newStubCarRepo()
	cache := newStubCarCache()
	cache.getErr = errors.New("redis down")
	svc := NewCarService(repo, &stubIngester{}, cache, CarServiceOptions{}, zerolog.Nop())
	car := seedCar(t, svc, "U")

	if _, err := svc.Get(context.Background(), car.ID); err != nil {
		t.Fatalf("expected repo fallback, got %v", err)
	}
}

func TestCarService_ListByOwner(t *testing.T) {
	repo := newStubCarRepo()
	svc := newCarSvc(repo, &stubIngester{}, CarServiceOptions{})
	seedCar(t, svc, "U")
	seedCar(t, svc, "U")
	seedCar(t, svc, "V")

	cars, err := svc.ListByOwner(context.Background(), "U")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cars) != 2 {
		t.Fatalf("expected 2 cars, got %d", len(cars))
	}
	for _, c := range cars {
		if c.OwnerID != "U" {
			t.Errorf("foreign car in result: %+v", c)
		}
	}

	none, err := svc.ListByOwner(context.Background(), "nobody")
	if err != nil || none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v, %v", none, err)
	}
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func TestCarService_Update_NonOwnerForbidden(t *testing.T) {
	repo := newStubCarRepo()
	ing := &stubIngester{}
	svc := newCarSvc(repo, ing, CarServiceOptions{})
	car := seedCar(t, svc, "U")
	before := cloneCar(repo.cars[car.ID])
	callsBefore := ing.calls

	_, err := svc.Update(context.Background(), ports.UpdateCarInput{
		CarID:       car.ID,
		RequesterID: "V",
		Name:        strPtr("Stolen"),
		Price:       floatPtr(-5), // invalid payload still yields Forbidden
		Images:      []string{"<b64>"},
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if !reflect.DeepEqual(repo.cars[car.ID], before) {
		t.Errorf("car changed in store: %+v", repo.cars[car.ID])
	}
	if ing.calls != callsBefore {
		t.Errorf("non-owner update must not upload images")
	}
}

func TestCarService_Update_NotFound(t *testing.T) {
	svc := newCarSvc(newStubCarRepo(), &stubIngester{}, CarServiceOptions{})

	_, err := svc.Update(context.Background(), ports.UpdateCarInput{CarID: "nope", RequesterID: "U", Name: strPtr("x")})
	if !errors.Is(err, domain.ErrCarNotFound) {
		t.Fatalf("expected ErrCarNotFound, got %v", err)
	}
}

func TestCarService_Update_KeepsImagesWithoutNewOnes(t *testing.T) {
	repo := newStubCarRepo()
	svc := newCarSvc(repo, &stubIngester{}, CarServiceOptions{})
	car := seedCar(t, svc, "U")

	updated, err := svc.Update(context.Background(), ports.UpdateCarInput{
		CarID:       car.ID,
		RequesterID: "U",
		Price:       floatPtr(75000),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(updated.Images, car.Images) {
		t.Errorf("images changed: %v -> %v", car.Images, updated.Images)
	}
	if updated.Price != 75000 {
		t.Errorf("expected price 75000, got %v", updated.Price)
	}
	if updated.Name != car.Name || updated.Brand != car.Brand {
		t.Errorf("unset fields changed: %+v", updated)
	}
}

func TestCarService_Update_ReplacesImagesWholesale(t *testing.T) {
	repo := newStubCarRepo()
	svc := newCarSvc(repo, &stubIngester{}, CarServiceOptions{})
	car := seedCar(t, svc, "U")

	updated, err := svc.Update(context.Background(), ports.UpdateCarInput{
		CarID:       car.ID,
		RequesterID: "U",
		Images:      []string{"<a>", "<b>"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"https://img.test/2-0", "https://img.test/2-1"}
	if !reflect.DeepEqual(updated.Images, want) {
		t.Errorf("expected %v, got %v", want, updated.Images)
	}
}

func TestCarService_Update_OwnerImmutable(t *testing.T) {
	repo := newStubCarRepo()
	svc := newCarSvc(repo, &stubIngester{}, CarServiceOptions{})
	car := seedCar(t, svc, "U")

	updated, err := svc.Update(context.Background(), ports.UpdateCarInput{
		CarID:       car.ID,
		RequesterID: "U",
		Name:        strPtr("Model Y"),
		Brand:       strPtr("Tesla Motors"),
		Year:        intPtr(2024),
		Description: strPtr("Crossover"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.OwnerID != "U" || repo.cars[car.ID].OwnerID != "U" {
		t.Errorf("owner changed: %q", updated.OwnerID)
	}
	if updated.Name != "Model Y" || updated.Year != 2024 || updated.Description != "Crossover" {
		t.Errorf("fields not applied: %+v", updated)
	}
}

func TestCarService_Update_ZeroValuesIgnoredByDefault(t *testing.T) {
	repo := newStubCarRepo()
	svc := newCarSvc(repo, &stubIngester{}, CarServiceOptions{})
	car := seedCar(t, svc, "U")
	writesBefore := repo.writes

	updated, err := svc.Update(context.Background(), ports.UpdateCarInput{
		CarID:       car.ID,
		RequesterID: "U",
		Price:       floatPtr(0),
		Year:        intPtr(0),
		Name:        strPtr(""),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Price != 80000 || updated.Year != 2023 || updated.Name != "Model X" {
		t.Errorf("zero values should be ignored: %+v", updated)
	}
	if repo.writes != writesBefore {
		t.Errorf("expected no write for an empty patch")
	}
}

func TestCarService_Update_ZeroOverwrites(t *testing.T) {
	repo := newStubCarRepo()
	svc := newCarSvc(repo, &stubIngester{}, CarServiceOptions{ZeroOverwrites: true})
	car := seedCar(t, svc, "U")

	updated, err := svc.Update(context.Background(), ports.UpdateCarInput{
		CarID:       car.ID,
		RequesterID: "U",
		Price:       floatPtr(0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Price != 0 {
		t.Errorf("expected price 0, got %v", updated.Price)
	}

	_, err = svc.Update(context.Background(), ports.UpdateCarInput{
		CarID:       car.ID,
		RequesterID: "U",
		Name:        strPtr(""),
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for blank name, got %v", err)
	}
}

func TestCarService_Update_InvalidatesCache(t *testing.T) {
	repo := newStubCarRepo()
	cache := newStubCarCache()
	svc := NewCarService(repo, &stubIngester{}, cache, CarServiceOptions{}, zerolog.Nop())
	car := seedCar(t, svc, "U")
	_, _ = svc.Get(context.Background(), car.ID)

	if _, err := svc.Update(context.Background(), ports.UpdateCarInput{CarID: car.ID, RequesterID: "U", Name: strPtr("New")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, ok := cache.items[car.ID]; ok {
		t.Fatal("expected cache entry to be invalidated")
	}

	got, err := svc.Get(context.Background(), car.ID)
	if err != nil || got.Name != "New" {
		t.Fatalf("expected fresh car, got %+v, %v", got, err)
	}
}

func TestCarService_Update_InvalidatesAroundWrite(t *testing.T) {
	repo := newStubCarRepo()
	cache := newStubCarCache()
	cache.repo = repo
	svc := NewCarService(repo, &stubIngester{}, cache, CarServiceOptions{}, zerolog.Nop())
	car := seedCar(t, svc, "U")
	before := repo.writes

	if _, err := svc.Update(context.Background(), ports.UpdateCarInput{CarID: car.ID, RequesterID: "U", Name: strPtr("New")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	want := []int{before, before + 1}
	if len(cache.writesAtDrops) != 2 || cache.writesAtDrops[0] != want[0] || cache.writesAtDrops[1] != want[1] {
		t.Fatalf("expected invalidation before and after the write %v, got %v", want, cache.writesAtDrops)
	}
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestCarService_Delete(t *testing.T) {
	repo := newStubCarRepo()
	cache := newStubCarCache()
	svc := NewCarService(repo, &stubIngester{}, cache, CarServiceOptions{}, zerolog.Nop())
	car := seedCar(t, svc, "U")

	if err := svc.Delete(context.Background(), car.ID, "U"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := repo.cars[car.ID]; ok {
		t.Error("car still stored")
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != car.ID {
		t.Errorf("expected cache invalidation, got %v", cache.invalidated)
	}
}

func TestCarService_Delete_NonOwnerForbidden(t *testing.T) {
	repo := newStubCarRepo()
	svc := newCarSvc(repo, &stubIngester{}, CarServiceOptions{})
	car := seedCar(t, svc, "U")

	if err := svc.Delete(context.Background(), car.ID, "V"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, ok := repo.cars[car.ID]; !ok {
		t.Error("car removed by non-owner")
	}
}

func TestCarService_Delete_NotFound(t *testing.T) {
	svc := newCarSvc(newStubCarRepo(), &stubIngester{}, CarServiceOptions{})

	if err := svc.Delete(context.Background(), "missing", "U"); !errors.Is(err, domain.ErrCarNotFound) {
		t.Fatalf("expected ErrCarNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Search
// ---------------------------------------------------------------------------

func TestCarService_Search(t *testing.T) {
	repo := newStubCarRepo()
	svc := newCarSvc(repo, &stubIngester{}, CarServiceOptions{})
	seedCar(t, svc, "U")

	cars, err := svc.Search(context.Background(), "tesla")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cars) != 1 {
		t.Fatalf("expected 1 match, got %d", len(cars))
	}
}

func TestCarService_Search_NoMatchIsEmptyNotError(t *testing.T) {
	repo := newStubCarRepo()
	svc := newCarSvc(repo, &stubIngester{}, CarServiceOptions{})
	seedCar(t, svc, "U")

	for _, kw := range []string{"ferrari", "", "   "} {
		cars, err := svc.Search(context.Background(), kw)
		if err != nil {
			t.Fatalf("keyword %q: unexpected error %v", kw, err)
		}
		if cars == nil || len(cars) != 0 {
			t.Fatalf("keyword %q: expected empty result, got %v", kw, cars)
		}
	}
}
