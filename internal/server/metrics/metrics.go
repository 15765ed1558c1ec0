// Package metrics registers the server's Prometheus collectors.
// Label sets are kept small: paths are chi route patterns, never raw URLs.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dmitrijs2005/geocrypt/internal/common"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocrypt_http_requests_total",
			Help: "Total HTTP requests by method, route and status.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geocrypt_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	gateOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocrypt_gate_outcomes_total",
			Help: "Download gate results by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geocrypt_user_cache_hits_total",
		Help: "Owner contact lookups served from cache.",
	})

	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geocrypt_user_cache_misses_total",
		Help: "Owner contact lookups that went to the database.",
	})
)

// Gate operation labels.
const (
	OpRequestCode = "request_code"
	OpVerify      = "verify"
)

// Outcome maps a gate error to a bounded label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ErrorNotFound):
		return "not_found"
	case errors.Is(err, common.ErrForbidden):
		return "forbidden"
	case errors.Is(err, common.ErrInvalidOrExpiredCode):
		return "invalid_code"
	case errors.Is(err, common.ErrLocationMismatch):
		return "location_mismatch"
	case errors.Is(err, common.ErrObjectMissing):
		return "object_missing"
	case errors.Is(err, common.ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, common.ErrNotificationFailed):
		return "notification_failed"
	default:
		return "error"
	}
}

// ObserveGate counts one gate call.
func ObserveGate(op string, err error) {
	gateOutcomesTotal.WithLabelValues(op, Outcome(err)).Inc()
}

// CacheHit and CacheMiss count user cache lookups.
func CacheHit()  { cacheHitsTotal.Inc() }
func CacheMiss() { cacheMissesTotal.Inc() }
