package leaderboardqueue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	leaderboardservice "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/application"
	leaderboarddomain "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/domain"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecalculator struct {
	modes []leaderboarddomain.Mode
	err   error
}

func (f *fakeRecalculator) Recalculate(ctx context.Context, mode leaderboarddomain.Mode, progress leaderboardservice.ProgressFunc) (leaderboardservice.RecalcResult, error) {
	f.modes = append(f.modes, mode)
	if progress != nil {
		progress(leaderboardservice.Progress{Phase: leaderboardservice.PhaseLeaderboard, Current: 1, Total: 1})
	}
	return leaderboardservice.RecalcResult{Mode: mode, Entries: 1}, f.err
}

func newJob(args RecalculateArgs) *river.Job[RecalculateArgs] {
	return &river.Job[RecalculateArgs]{JobRow: &rivertype.JobRow{ID: 42}, Args: args}
}

func TestRecalculateWorker(t *testing.T) {
	storeErr := errors.New("store unavailable")

	tests := []struct {
		name       string
		args       RecalculateArgs
		err        error
		wantModes  []leaderboarddomain.Mode
		wantCancel bool
		wantErr    error
	}{
		{name: "full", args: RecalculateArgs{Mode: "full"}, wantModes: []leaderboarddomain.Mode{leaderboarddomain.ModeFull}},
		{name: "empty mode means full", wantModes: []leaderboarddomain.Mode{leaderboarddomain.ModeFull}},
		{name: "quick", args: RecalculateArgs{Mode: "QUICK", RequestedBy: "mod-1"}, wantModes: []leaderboarddomain.Mode{leaderboarddomain.ModeQuick}},
		{name: "unknown mode", args: RecalculateArgs{Mode: "partial"}, wantCancel: true, wantErr: leaderboarddomain.ErrUnknownMode},
		{
			name:       "already running",
			args:       RecalculateArgs{Mode: "full"},
			err:        leaderboardservice.ErrRecalculationInProgress,
			wantModes:  []leaderboarddomain.Mode{leaderboarddomain.ModeFull},
			wantCancel: true,
			wantErr:    leaderboardservice.ErrRecalculationInProgress,
		},
		{
			name:      "store failure",
			args:      RecalculateArgs{Mode: "full"},
			err:       storeErr,
			wantModes: []leaderboarddomain.Mode{leaderboarddomain.ModeFull},
			wantErr:   storeErr,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recalc := &fakeRecalculator{err: tt.err}
			w := NewRecalculateWorker(recalc, slog.New(slog.NewTextHandler(io.Discard, nil)), 0)

			err := w.Work(context.Background(), newJob(tt.args))
			assert.Equal(t, tt.wantModes, recalc.modes)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
			var cancel *rivertype.JobCancelError
			assert.Equal(t, tt.wantCancel, errors.As(err, &cancel))
		})
	}
}

func TestRecalculateArgs(t *testing.T) {
	args := RecalculateArgs{Mode: "full"}
	assert.Equal(t, "leaderboard_recalculate", args.Kind())
	opts := args.InsertOpts()
	assert.Equal(t, 1, opts.MaxAttempts)
	assert.Equal(t, QueueName, opts.Queue)
	assert.True(t, opts.UniqueOpts.ByArgs)

	w := NewRecalculateWorker(&fakeRecalculator{}, slog.Default(), 0)
	assert.Equal(t, DefaultJobTimeout, w.Timeout(newJob(args)))
}
