package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{"WARNING", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew_JSONToWriter(t *testing.T) {
	var buf bytes.Buffer
	log, closer, err := New(Options{Level: "info", Format: FormatJSON, Output: &buf})
	require.NoError(t, err)
	defer closer.Close()

	log.Debug().Msg("hidden")
	log.Info().Str("strategy", "ma_crossover").Msg("Trade executed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var event map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &event))
	assert.Equal(t, "info", event["level"])
	assert.Equal(t, "ma_crossover", event["strategy"])
	assert.Equal(t, "Trade executed", event["message"])
}

func TestNew_SymbolFile(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer

	log, closer, err := New(Options{Format: FormatJSON, Output: &buf, Dir: dir, Symbol: "btcusdt", Interval: "1d"})
	require.NoError(t, err)
	log.Info().Msg("hello")
	require.NoError(t, closer.Close())

	path := filepath.Join(dir, LogFileName("btcusdt", "1d", time.Now()))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Backtest session started")
	assert.Contains(t, string(content), "hello")
	assert.True(t, strings.HasPrefix(filepath.Base(path), "BTCUSDT_1d_"))
}

func TestNew_InvalidFormat(t *testing.T) {
	_, _, err := New(Options{Format: "xml"})
	assert.Error(t, err)
}
