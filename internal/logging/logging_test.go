package logging

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	console := false
	log, closeFn, err := New(Options{Level: "debug", Output: &buf, Console: &console})
	require.NoError(t, err)
	defer closeFn()

	cl := Component(log, "cache")
	cl.Debug().Str("key", "page_size").Msg("miss")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "cache", entry["component"])
	assert.Equal(t, "page_size", entry["key"])
	assert.Equal(t, "debug", entry["level"])
	assert.Contains(t, entry, "time")
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	console := false
	log, _, err := New(Options{Level: "warn", Output: &buf, Console: &console})
	require.NoError(t, err)

	log.Info().Msg("hidden")
	assert.Empty(t, buf.String())
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notedeck.log")
	log, closeFn, err := New(Options{Path: path})
	require.NoError(t, err)
	log.Info().Msg("hello")
	require.NoError(t, closeFn())
	assert.FileExists(t, path)
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
