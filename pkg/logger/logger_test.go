package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorHandlerColorsByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, Options{Level: slog.LevelDebug, Color: true})

	log.Error("boom")
	assert.True(t, strings.HasPrefix(buf.String(), colorRed))
	assert.True(t, strings.HasSuffix(buf.String(), colorReset))

	buf.Reset()
	log.Warn("careful")
	assert.True(t, strings.HasPrefix(buf.String(), colorYellow))

	buf.Reset()
	log.Info("Vectors persisted", "count", 3)
	assert.True(t, strings.HasPrefix(buf.String(), colorGreen))

	buf.Reset()
	log.Info("plain")
	assert.False(t, strings.Contains(buf.String(), "\033["))
}

func TestColorHandlerWithoutColor(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, Options{Level: slog.LevelInfo}).With("session_id", "abc")

	log.Error("boom")
	log.Debug("hidden")

	out := buf.String()
	assert.NotContains(t, out, "\033[")
	assert.Contains(t, out, "session_id=abc")
	assert.NotContains(t, out, "hidden")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}
