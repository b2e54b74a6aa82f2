package app

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerHonorsLevel(t *testing.T) {
	ctx := context.Background()

	logger := NewLogger(&Config{LogFormat: "json", LogLevel: "warn"})
	require.False(t, logger.Enabled(ctx, slog.LevelInfo))
	require.True(t, logger.Enabled(ctx, slog.LevelWarn))

	logger = NewLogger(&Config{LogLevel: "debug"})
	require.True(t, logger.Enabled(ctx, slog.LevelDebug))

	// Unrecognized levels fall back to info.
	logger = NewLogger(&Config{LogLevel: "chatty"})
	require.True(t, logger.Enabled(ctx, slog.LevelInfo))
	require.False(t, logger.Enabled(ctx, slog.LevelDebug))
}
