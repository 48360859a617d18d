package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/Black-And-White-Club/flagboard/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogsJSONWithServiceAttrs(t *testing.T) {
	var buf bytes.Buffer
	obs := Init(config.ObservabilityConfig{ServiceName: "flagboard", Environment: "test", LogLevel: slog.LevelInfo}, &buf)

	obs.Logger.Debug("hidden")
	obs.Logger.Info("visible", slog.String("k", "v"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "visible", line["msg"])
	assert.Equal(t, "flagboard", line["service"])
	assert.Equal(t, "test", line["env"])
	assert.Equal(t, "v", line["k"])
	assert.NotNil(t, obs.Tracer)
	assert.NotNil(t, obs.Registry.Leaderboard)
}
