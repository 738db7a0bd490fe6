package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew_JSONLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(Config{Level: "warn", Format: FormatJSON}, &buf)
	require.NoError(t, err)
	defer closer.Close()

	logger.Info().Msg("hidden")
	sessionLog := WithComponent(logger, "session")
	sessionLog.Warn().Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "session", entry["component"])
	assert.Equal(t, "warn", entry["level"])
}

func TestNew_ConsoleAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "rubot.log")
	var buf bytes.Buffer

	logger, closer, err := New(Config{Level: "info", FilePath: path, NoColor: true}, &buf)
	require.NoError(t, err)
	logger.Info().Str("session", "s1").Msg("turn processed")
	require.NoError(t, closer.Close())

	assert.Contains(t, buf.String(), "turn processed")
	assert.Contains(t, buf.String(), "session=s1")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "turn processed")
}
