package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/geocrypt/internal/common"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{common.ErrorNotFound, "not_found"},
		{common.ErrForbidden, "forbidden"},
		{common.ErrInvalidOrExpiredCode, "invalid_code"},
		{common.ErrLocationMismatch, "location_mismatch"},
		{common.ErrObjectMissing, "object_missing"},
		{fmt.Errorf("%w: redis: eof", common.ErrStorageUnavailable), "storage_unavailable"},
		{fmt.Errorf("wrap: %w", common.ErrNotificationFailed), "notification_failed"},
		{errors.New("other"), "error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Outcome(tt.err), "%v", tt.err)
	}
}

func TestObserveGate(t *testing.T) {
	before := testutil.ToFloat64(gateOutcomesTotal.WithLabelValues(OpVerify, "location_mismatch"))
	ObserveGate(OpVerify, common.ErrLocationMismatch)
	after := testutil.ToFloat64(gateOutcomesTotal.WithLabelValues(OpVerify, "location_mismatch"))
	assert.Equal(t, before+1, after)
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/files/{fileId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/files/{fileId}", "418"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/abc-123", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/files/{fileId}", "418"))
	assert.Equal(t, before+1, after)
}

func TestHandler_ExposesCollectors(t *testing.T) {
	CacheHit()
	CacheMiss()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "geocrypt_user_cache_hits_total"))
	assert.True(t, strings.Contains(body, "geocrypt_user_cache_misses_total"))
}
