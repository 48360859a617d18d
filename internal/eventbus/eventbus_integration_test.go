//go:build integration

package eventbus

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Black-And-White-Club/flagboard/integration_tests/containers"
)

func TestNATSBusRoundTrip(t *testing.T) {
	ctx := context.Background()
	container, url, err := containers.SetupNatsContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(context.Background()) })

	bus, err := NewNATS(Config{URL: url}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer bus.Close()

	msgs, err := bus.Subscribe(ctx, "leaderboard.recalculated.v1")
	require.NoError(t, err)
	// Core NATS drops messages published before the subscription is registered server side.
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, PublishJSON(ctx, bus, "leaderboard.recalculated.v1", map[string]any{"mode": "full"}))

	select {
	case msg := <-msgs:
		got, err := DecodeJSON[map[string]any](msg)
		require.NoError(t, err)
		require.Equal(t, "full", got["mode"])
		msg.Ack()
	case <-time.After(10 * time.Second):
		t.Fatal("message not delivered over NATS")
	}
}
