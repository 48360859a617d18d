package leaderboardservice

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	leaderboarddb "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/infrastructure/repositories"
	userdb "github.com/Black-And-White-Club/flagboard/app/modules/user/infrastructure/repositories"
	"github.com/Black-And-White-Club/flagboard/internal/blobstore"
	"github.com/Black-And-White-Club/flagboard/internal/docstore"
	"github.com/Black-And-White-Club/flagboard/internal/docstore/memstore"
	"github.com/Black-And-White-Club/flagboard/internal/eventbus"
	"github.com/Black-And-White-Club/flagboard/internal/metrics"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

var testNow = time.Date(2026, 5, 20, 18, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(repo leaderboarddb.Repository, bus eventbus.EventBus, blobs blobstore.Store, cfg Config) *LeaderboardService {
	svc := NewLeaderboardService(repo, blobs, bus, testLogger(), metrics.NoOpMetrics{}, noop.NewTracerProvider().Tracer("test"), cfg)
	svc.now = func() time.Time { return testNow }
	return svc
}

func newTestStore(opts ...memstore.Option) *memstore.Store {
	return memstore.New(append([]memstore.Option{memstore.WithClock(func() time.Time { return testNow })}, opts...)...)
}

func seedUser(t *testing.T, store docstore.Store, id string, fields map[string]any) {
	t.Helper()
	require.NoError(t, store.Set(context.Background(), userdb.UsersCollection, id, fields))
}

func seedSubmission(t *testing.T, store docstore.Store, id, userID string, points int, at time.Time) {
	t.Helper()
	require.NoError(t, store.Set(context.Background(), leaderboarddb.SubmissionsCollection, id, map[string]any{
		"userId":      userID,
		"challengeId": "c-" + id,
		"isCorrect":   true,
		"points":      points,
		"submittedAt": at,
	}))
}

func getDoc(t *testing.T, store docstore.Store, collection, id string) docstore.Document {
	t.Helper()
	doc, err := store.Get(context.Background(), collection, id)
	require.NoError(t, err)
	return doc
}
