package logger

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/exp/slog"

	"iotsync/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name          string
		env           string
		expectedLevel slog.Level
	}{
		{name: "local environment", env: config.EnvLocal, expectedLevel: slog.LevelDebug},
		{name: "dev environment", env: config.EnvDev, expectedLevel: slog.LevelDebug},
		{name: "prod environment", env: config.EnvProd, expectedLevel: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.env)
			require.NotNil(t, logger)
			ctx := context.Background()
			assert.Equal(t, tt.expectedLevel <= slog.LevelDebug, logger.Enabled(ctx, slog.LevelDebug))
			assert.True(t, logger.Enabled(ctx, slog.LevelInfo))
		})
	}
}

func TestSetupPrettySlog(t *testing.T) {
	logger := setupPrettySlog()
	require.NotNil(t, logger)

	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestNewWithOptions_LevelOverride(t *testing.T) {
	ctx := context.Background()

	logger := NewWithOptions(Options{Env: config.EnvDev, Level: "warn"})
	assert.False(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.True(t, logger.Enabled(ctx, slog.LevelWarn))

	logger = NewWithOptions(Options{Env: config.EnvProd, Level: "bogus"})
	assert.False(t, logger.Enabled(ctx, slog.LevelDebug))
	assert.True(t, logger.Enabled(ctx, slog.LevelInfo))
}

func TestNewWithOptions_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.log")

	logger := NewWithOptions(Options{Env: config.EnvProd, File: path})
	logger.Info("hello", "table", "logs")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"table":"logs"`)
}

func TestPrettyHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := setupPrettySlogWriter(&buf, slog.LevelDebug).With("component", "test")

	logger.Debug("record pushed", "key", "dev-1")

	out := buf.String()
	assert.Contains(t, out, "record pushed")
	assert.Contains(t, out, `"component": "test"`)
	assert.Contains(t, out, `"key": "dev-1"`)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{" warning ", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
