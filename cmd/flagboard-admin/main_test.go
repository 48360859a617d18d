package main

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	userservice "github.com/Black-And-White-Club/flagboard/app/modules/user/application"
	userdb "github.com/Black-And-White-Club/flagboard/app/modules/user/infrastructure/repositories"
	"github.com/Black-And-White-Club/flagboard/config"
	"github.com/Black-And-White-Club/flagboard/internal/docstore"
	"github.com/Black-And-White-Club/flagboard/internal/docstore/memstore"
	"github.com/Black-And-White-Club/flagboard/internal/eventbus"
	"github.com/Black-And-White-Club/flagboard/internal/events"
	"github.com/Black-And-White-Club/flagboard/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	store  *memstore.Store
	bus    *eventbus.Bus
	stdin  *strings.Reader
	stdout *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	obs := observability.NewNop()
	return &harness{
		store:  memstore.New(),
		bus:    eventbus.NewInProcess(obs.Logger),
		stdin:  strings.NewReader(""),
		stdout: &bytes.Buffer{},
	}
}

func (h *harness) run(t *testing.T, args ...string) error {
	t.Helper()
	a := &admin{
		cfg: &config.Config{
			Store: config.StoreConfig{Backend: config.StoreMemory},
			JWT:   config.JWTConfig{Secret: "test-secret", Issuer: "flagboard", DefaultTTL: time.Hour},
			Blob:  config.BlobConfig{Backend: config.BlobMemory},
		},
		obs:    observability.NewNop(),
		store:  &unclosable{Store: h.store},
		bus:    keepOpenBus{EventBus: h.bus},
		stdin:  h.stdin,
		stdout: h.stdout,
	}
	return newCLI(a).RunContext(context.Background(), append([]string{"flagboard-admin"}, args...))
}

// unclosable keeps the shared memstore alive across commands of one test.
type unclosable struct{ docstore.Store }

func (unclosable) Close() error { return nil }

type keepOpenBus struct{ eventbus.EventBus }

func (keepOpenBus) Close() error { return nil }

func (h *harness) seedUser(t *testing.T, id, username, role string, points int64) {
	t.Helper()
	require.NoError(t, h.store.Set(context.Background(), userdb.UsersCollection, id, map[string]any{
		"username":    username,
		"displayName": username,
		"role":        role,
		"totalPoints": points,
	}))
}

func TestLeaderboardRecalcAndShow(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "u1", "alice", "user", 100)
	h.seedUser(t, "u2", "bob", "user", 250)

	require.NoError(t, h.run(t, "leaderboard", "recalc", "--mode", "quick"))
	assert.Contains(t, h.stdout.String(), "quick recalculation ranked 2 entries")
	assert.Contains(t, h.stdout.String(), "leaderboard 3/3")

	h.stdout.Reset()
	require.NoError(t, h.run(t, "leaderboard", "show"))
	lines := strings.Split(strings.TrimSpace(h.stdout.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Last quick recalculation")
	assert.Contains(t, lines[1], "bob")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(lines[1]), "1 "))
	assert.Contains(t, lines[2], "alice")
}

func TestLeaderboardRecalcFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "unknown mode", args: []string{"--mode", "partial"}, wantErr: "partial"},
		{name: "async needs postgres", args: []string{"--async"}, wantErr: "postgres"},
		{name: "async and publish", args: []string{"--async", "--publish"}, wantErr: "mutually exclusive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			err := h.run(t, append([]string{"leaderboard", "recalc"}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLeaderboardRecalcPublish(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, err := h.bus.Subscribe(ctx, events.LeaderboardRecalculateRequestedV1)
	require.NoError(t, err)

	require.NoError(t, h.run(t, "leaderboard", "recalc", "--mode", "quick", "--publish", "--requested-by", "ops"))

	select {
	case msg := <-msgs:
		msg.Ack()
		payload, err := eventbus.DecodeJSON[events.LeaderboardRecalculateRequestedPayload](msg)
		require.NoError(t, err)
		assert.Equal(t, events.LeaderboardRecalculateRequestedPayload{Mode: "quick", RequestedBy: "ops"}, payload)
	case <-time.After(2 * time.Second):
		t.Fatal("no command published")
	}
}

func TestLeaderboardExport(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "u1", "alice", "user", 100)
	require.NoError(t, h.run(t, "leaderboard", "recalc", "--mode", "quick"))

	h.stdout.Reset()
	require.NoError(t, h.run(t, "leaderboard", "export"))
	assert.Contains(t, h.stdout.String(), "Exported 1 entries to exports/leaderboard")
	assert.Contains(t, h.stdout.String(), "memory:///exports/leaderboard")
}

func TestUsernamesScanAndFix(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		stdin      string
		wantOut    string
		wantFixed  bool
		wantErrMsg string
	}{
		{
			name:      "confirmed at the prompt",
			args:      []string{"usernames", "fix", "--as", "admin"},
			stdin:     "y\n",
			wantOut:   "Applied",
			wantFixed: true,
		},
		{
			name:    "declined at the prompt",
			args:    []string{"usernames", "fix", "--as", "admin"},
			stdin:   "n\n",
			wantOut: "Cancelled, nothing was written",
		},
		{
			name:    "empty answer cancels",
			args:    []string{"usernames", "fix", "--as", "admin"},
			stdin:   "",
			wantOut: "Cancelled, nothing was written",
		},
		{
			name:      "yes flag skips the prompt",
			args:      []string{"usernames", "fix", "--as", "admin", "--yes"},
			wantOut:   "Applied",
			wantFixed: true,
		},
		{
			name:       "non admin actor",
			args:       []string{"usernames", "fix", "--as", "player", "--yes"},
			wantErrMsg: "admin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.stdin = strings.NewReader(tt.stdin)
			h.seedUser(t, "admin", "root", "admin", 0)
			h.seedUser(t, "player", "Neo", "user", 10)
			require.NoError(t, h.store.Set(context.Background(), userdb.UsernamesCollection, "root", map[string]any{
				"userId": "admin", "username": "root",
			}))

			require.NoError(t, h.run(t, "usernames", "scan"))
			assert.Contains(t, h.stdout.String(), "missing: user player has no usernames/neo entry")
			assert.Contains(t, h.stdout.String(), "1 issues found")

			h.stdout.Reset()
			err := h.run(t, tt.args...)
			if tt.wantErrMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, h.stdout.String(), tt.wantOut)

			_, getErr := h.store.Get(context.Background(), userdb.UsernamesCollection, "neo")
			if tt.wantFixed {
				assert.NoError(t, getErr)
			} else {
				assert.ErrorIs(t, getErr, docstore.ErrNotFound)
			}
		})
	}
}

func TestPromptConfirmRefusesNonTerminalStdin(t *testing.T) {
	old := isTerminal
	isTerminal = func(int) bool { return false }
	t.Cleanup(func() { isTerminal = old })

	f, err := os.Open(os.DevNull)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	var out bytes.Buffer
	a := &admin{stdin: f}
	ok, err := a.promptConfirm(&out)(context.Background(), userservice.PlanSummary{Operations: 1, Units: 1})
	assert.False(t, ok)
	assert.ErrorIs(t, err, errNotInteractive)
	assert.Empty(t, out.String())
}
