package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorHandler(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, Options{Level: slog.LevelDebug})

	log.Debug("plain")
	log.Info("early stop", "results", 3)
	log.Warn("slow")
	log.With("component", "search").Error("broken")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.False(t, strings.HasPrefix(lines[0], "\033["))
	assert.Contains(t, lines[0], "msg=plain")
	assert.True(t, strings.HasPrefix(lines[1], colorGreen))
	assert.Contains(t, lines[1], "results=3")
	assert.True(t, strings.HasPrefix(lines[2], colorYellow))
	assert.True(t, strings.HasPrefix(lines[3], colorRed))
	assert.Contains(t, lines[3], "component=search")
	assert.True(t, strings.HasSuffix(lines[3], colorReset))
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, Options{Level: slog.LevelWarn, NoColor: true})
	log.Info("hidden")
	log.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.NotContains(t, buf.String(), "\033[")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, Options{Level: slog.LevelInfo, Format: "JSON"})
	log.Info("retrieval finished", "results", 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "retrieval finished", rec["msg"])
	assert.Equal(t, float64(2), rec["results"])
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = ParseLevel(" WARN ")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
