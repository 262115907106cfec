// Package metrics defines and registers all custom Prometheus metrics for the
// car marketplace API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on import via
// promauto; HTTP request metrics come from the echoprometheus middleware.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "carmarket"

// ── Car metrics ───────────────────────────────────────────────────────────────

// CarsCreatedTotal counts listings successfully persisted.
var CarsCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cars_created_total",
		Help:      "Total number of car listings created.",
	},
)

// CarMutationsTotal counts update and delete attempts.
// Labels:
//   - operation: "update" or "delete"
//   - result: "ok", "forbidden", "not_found", "error"
var CarMutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "car_mutations_total",
		Help:      "Total number of car update/delete attempts, by outcome.",
	},
	[]string{"operation", "result"},
)

// SearchesTotal counts keyword searches.
// Label:
//   - result: "match" or "empty"
var SearchesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "searches_total",
		Help:      "Total number of keyword searches, by whether anything matched.",
	},
	[]string{"result"},
)

// CarCacheLookupsTotal counts read-through cache lookups.
// Label:
//   - result: "hit", "miss" or "error"
var CarCacheLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "car_cache_lookups_total",
		Help:      "Total number of car cache lookups, labelled by result.",
	},
	[]string{"result"},
)

// ── Image metrics ─────────────────────────────────────────────────────────────

// ImageUploadsTotal counts individual image uploads to the hosting provider.
// Label:
//   - result: "success" or "error"
var ImageUploadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "image_uploads_total",
		Help:      "Total number of image uploads to the hosting provider.",
	},
	[]string{"result"},
)

// ImageUploadDuration measures a single upload round-trip.
var ImageUploadDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "image_upload_duration_seconds",
		Help:      "Duration of a single image upload to the hosting provider.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	},
)

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthAttemptsTotal counts register and login attempts.
// Labels:
//   - operation: "register" or "login"
//   - result: "ok", "duplicate", "invalid_credentials", "error"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of register/login attempts, by outcome.",
	},
	[]string{"operation", "result"},
)
