package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRecordsOperations(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	r.Leaderboard.RecordOperationAttempt(ctx, "RecalculateFull")
	r.Leaderboard.RecordOperationFailure(ctx, "RecalculateFull")
	r.Leaderboard.RecordOperationDuration(ctx, "RecalculateFull", time.Second)
	r.User.RecordOperationAttempt(ctx, "Scan")
	r.Leaderboard.RecordSubmissionEvent(ctx, "processed")
	r.Leaderboard.RecordSubmissionEvent(ctx, "processed")
	r.Leaderboard.RecordRecalculation(ctx, "full", 12)
	r.User.RecordReconciliationIssues(ctx, "orphan", 3)
	r.Queue.RecordOperationSuccess(ctx, "enqueue_recalculation")

	lb := r.Leaderboard.(*leaderboardMetrics)
	assert.Equal(t, 1.0, testutil.ToFloat64(lb.ops.attempts.WithLabelValues("leaderboard", "RecalculateFull")))
	assert.Equal(t, 1.0, testutil.ToFloat64(lb.ops.attempts.WithLabelValues("user", "Scan")))
	assert.Equal(t, 1.0, testutil.ToFloat64(lb.ops.successes.WithLabelValues("river", "enqueue_recalculation")))
	assert.Equal(t, 2.0, testutil.ToFloat64(lb.events.WithLabelValues("processed")))
	assert.Equal(t, 12.0, testutil.ToFloat64(lb.entries.WithLabelValues("full")))

	um := r.User.(*userMetrics)
	assert.Equal(t, 3.0, testutil.ToFloat64(um.issues.WithLabelValues("orphan")))
}

func TestHTTPMiddlewareUsesRoutePattern(t *testing.T) {
	r := NewRegistry()
	router := chi.NewRouter()
	router.Use(r.HTTP.Middleware)
	router.Get("/api/users/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	router.Handle("/metrics", r.HTTP.Handler())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/42", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.HTTP.requests.WithLabelValues("GET", "/api/users/{id}", "418")))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "flagboard_http_requests_total")
}
