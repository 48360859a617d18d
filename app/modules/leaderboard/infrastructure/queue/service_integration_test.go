//go:build integration

package leaderboardqueue

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	leaderboardservice "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/application"
	leaderboarddomain "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/domain"
	"github.com/Black-And-White-Club/flagboard/integration_tests/containers"
	"github.com/Black-And-White-Club/flagboard/internal/metrics"
)

type recordingRecalculator struct {
	mu    sync.Mutex
	modes []leaderboarddomain.Mode
	ran   chan struct{}
}

func (r *recordingRecalculator) Recalculate(ctx context.Context, mode leaderboarddomain.Mode, progress leaderboardservice.ProgressFunc) (leaderboardservice.RecalcResult, error) {
	r.mu.Lock()
	r.modes = append(r.modes, mode)
	r.mu.Unlock()
	r.ran <- struct{}{}
	return leaderboardservice.RecalcResult{Mode: mode}, nil
}

func TestService_EnqueueAndWork(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	pg, dsn, err := containers.SetupPostgresContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { pg.Terminate(context.Background()) })

	applied, err := Migrate(ctx, dsn, logger)
	require.NoError(t, err)
	assert.Positive(t, applied)

	again, err := Migrate(ctx, dsn, logger)
	require.NoError(t, err)
	assert.Zero(t, again)

	recalc := &recordingRecalculator{ran: make(chan struct{}, 4)}
	svc, err := NewService(ctx, dsn, recalc, Config{Workers: 1}, logger, metrics.NoOpMetrics{})
	require.NoError(t, err)
	require.NoError(t, svc.HealthCheck(ctx))

	require.NoError(t, svc.Start(ctx))
	t.Cleanup(func() { svc.Stop(context.Background()) })

	jobID, err := svc.EnqueueRecalculation(ctx, leaderboarddomain.ModeQuick, "test")
	require.NoError(t, err)
	assert.Positive(t, jobID)

	select {
	case <-recalc.ran:
	case <-time.After(30 * time.Second):
		t.Fatal("job was not worked")
	}

	recalc.mu.Lock()
	defer recalc.mu.Unlock()
	assert.Equal(t, []leaderboarddomain.Mode{leaderboarddomain.ModeQuick}, recalc.modes)
}
