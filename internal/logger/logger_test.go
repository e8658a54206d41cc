package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info", "json")

	log.Info("sync completed", "device_id", "watch-1")
	log.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "sync completed", entry["msg"])
	assert.Equal(t, "watch-1", entry["device_id"])
}

func TestNew_ConsoleFormatWithoutColor(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug", "console")

	log.Warn("bad sample date", "error", errors.New("parse failure"))

	out := buf.String()
	assert.Contains(t, out, "bad sample date")
	assert.Contains(t, out, "parse failure")
	assert.NotContains(t, out, "\x1b[", "buffers are not terminals, output must be uncolored")
}
