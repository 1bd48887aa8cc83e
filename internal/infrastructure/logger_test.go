package infrastructure

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}

func TestRunIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRunID(ctx))

	ctx = WithRunID(ctx, "run-123")
	assert.Equal(t, "run-123", GetRunID(ctx))

	// EnsureRunID keeps an existing ID
	assert.Equal(t, "run-123", GetRunID(EnsureRunID(ctx)))

	// EnsureRunID generates one when missing
	generated := GetRunID(EnsureRunID(context.Background()))
	require.NotEmpty(t, generated)
	assert.NotEqual(t, "run-123", generated)
}

func TestRunIDHandlerInjection(t *testing.T) {
	var buf bytes.Buffer
	handler := &runIDHandler{Handler: slog.NewJSONHandler(&buf, nil)}
	logger := slog.New(handler)

	ctx := WithRunID(context.Background(), "abc-def")
	logger.InfoContext(ctx, "processing day", "date", "2021-06-01")

	assert.Contains(t, buf.String(), `"run_id":"abc-def"`)
	assert.Contains(t, buf.String(), `"date":"2021-06-01"`)
}
