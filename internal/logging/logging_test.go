package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_WritesJSONLines(t *testing.T) {
	// Given: a logging config pointing at a temp file
	logPath := filepath.Join(t.TempDir(), "strukindex.log")
	cfg := Config{
		Level:         "info",
		FilePath:      logPath,
		MaxSizeMB:     1,
		MaxFiles:      2,
		WriteToStderr: false,
	}

	// When: logging through the configured logger
	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)
	logger.Info("index scan start", slog.String("year", "2026"))
	cleanup()

	// Then: the file holds a parseable JSON line
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)

	line := strings.TrimSpace(strings.Split(string(data), "\n")[0])
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "index scan start", entry["msg"])
	assert.Equal(t, "2026", entry["year"])
}

func TestSetup_FiltersBelowLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "strukindex.log")
	cfg := Config{
		Level:         "warn",
		FilePath:      logPath,
		MaxSizeMB:     1,
		MaxFiles:      2,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)
	logger.Info("should be dropped")
	logger.Warn("should be kept")
	cleanup()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "should be dropped")
	assert.Contains(t, string(data), "should be kept")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestRotatingWriter_RotatesAtMaxSize(t *testing.T) {
	// Given: a writer with a tiny budget (1MB is the minimum unit, so
	// drive rotation through the internal threshold directly)
	logPath := filepath.Join(t.TempDir(), "app.log")
	w, err := NewRotatingWriter(logPath, 1, 2)
	require.NoError(t, err)
	w.maxSize = 64

	// When: writing past the threshold
	_, err = w.Write([]byte(strings.Repeat("a", 60) + "\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte(strings.Repeat("b", 60) + "\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// Then: the previous file was rotated to .1
	_, err = os.Stat(logPath + ".1")
	assert.NoError(t, err)

	current, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(current), "b")
	assert.NotContains(t, string(current), "a")
}

func TestRotatingWriter_PrunesBeyondMaxFiles(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "app.log")
	w, err := NewRotatingWriter(logPath, 1, 2)
	require.NoError(t, err)
	w.maxSize = 8

	for i := 0; i < 6; i++ {
		_, err = w.Write([]byte("0123456789\n"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	_, err = os.Stat(logPath + ".3")
	assert.True(t, os.IsNotExist(err), "files beyond maxFiles should be removed")
}
