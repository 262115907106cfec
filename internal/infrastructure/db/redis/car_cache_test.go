package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carmarket/car-marketplace/internal/core/domain"
)

func newTestCache(t *testing.T, ttl time.Duration) (*CarCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCarCache(client, ttl), mr
}

func sampleCar() *domain.Car {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return &domain.Car{
		ID:          "65f000000000000000000001",
		Name:        "Model X",
		Brand:       "Tesla",
		Price:       80000,
		Year:        2023,
		Description: "SUV",
		Images:      []string{"https://cdn.test/a.png", "https://cdn.test/b.png"},
		OwnerID:     "65f0000000000000000000aa",
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
}

func TestCarCache_Miss(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)

	car, ok, err := cache.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, car)
}

func TestCarCache_SetGet(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	want := sampleCar()

	require.NoError(t, cache.Set(context.Background(), want))
	assert.True(t, mr.Exists("car:"+want.ID))
	assert.Equal(t, time.Minute, mr.TTL("car:"+want.ID))

	got, ok, err := cache.Get(context.Background(), want.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestCarCache_Expires(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	car := sampleCar()
	require.NoError(t, cache.Set(context.Background(), car))

	mr.FastForward(2 * time.Minute)

	_, ok, err := cache.Get(context.Background(), car.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCarCache_Invalidate(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	car := sampleCar()
	require.NoError(t, cache.Set(context.Background(), car))

	require.NoError(t, cache.Invalidate(context.Background(), car.ID))
	assert.False(t, mr.Exists("car:"+car.ID))
}

func TestCarCache_CorruptEntryIsMiss(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	require.NoError(t, mr.Set("car:bad", "{not json"))

	_, ok, err := cache.Get(context.Background(), "bad")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists("car:bad"))
}

func TestCarCache_DefaultTTL(t *testing.T) {
	cache, _ := newTestCache(t, 0)
	assert.Equal(t, defaultCacheTTL, cache.ttl)
}
