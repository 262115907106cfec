package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type stubMongo struct{ err error }

func (s stubMongo) Ping(context.Context, *readpref.ReadPref) error { return s.err }

func readiness(t *testing.T, h *HealthDependenciesHandler) (int, readinessResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	c := newTestEcho().NewContext(httptest.NewRequest(http.MethodGet, "/health/ready", nil), rec)
	if err := h.Readiness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp readinessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return rec.Code, resp
}

func TestLiveness(t *testing.T) {
	rec := httptest.NewRecorder()
	c := newTestEcho().NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)
	if err := NewHealthHandler().Liveness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestReadiness_MongoOnly(t *testing.T) {
	code, resp := readiness(t, NewHealthDependenciesHandler(stubMongo{}, nil))
	if code != http.StatusOK || resp.Status != "ok" {
		t.Fatalf("expected ok, got %d %+v", code, resp)
	}
	if _, ok := resp.Dependencies["redis"]; ok {
		t.Fatalf("redis must not be reported when the cache is disabled")
	}
}

func TestReadiness_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	code, resp := readiness(t, NewHealthDependenciesHandler(stubMongo{}, rdb))
	if code != http.StatusOK || resp.Dependencies["redis"].Status != "ok" {
		t.Fatalf("expected redis ok, got %d %+v", code, resp)
	}

	mr.Close()
	code, resp = readiness(t, NewHealthDependenciesHandler(stubMongo{}, rdb))
	if code != http.StatusServiceUnavailable || resp.Dependencies["redis"].Status != "unhealthy" {
		t.Fatalf("expected redis unhealthy, got %d %+v", code, resp)
	}
}

func TestReadiness_MongoDown(t *testing.T) {
	code, resp := readiness(t, NewHealthDependenciesHandler(stubMongo{err: errors.New("no reachable servers")}, nil))
	if code != http.StatusServiceUnavailable || resp.Status != "degraded" {
		t.Fatalf("expected degraded, got %d %+v", code, resp)
	}
}
