package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nzaccagnino/notedeck/internal/config"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DBPath = filepath.Join(dir, "notes.db")
	cfg.ExportDir = filepath.Join(dir, "export")
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, cfg.Save(path))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestImportExport(t *testing.T) {
	cfgPath := writeConfig(t)
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "plan.md"), []byte("step one"), 0644))

	out, err := execute(t, "--config", cfgPath, "import", filepath.Join(src, "*.md"))
	require.NoError(t, err)
	assert.Contains(t, out, "imported #1 plan【Imported】")

	out, err = execute(t, "--config", cfgPath, "export")
	require.NoError(t, err)
	assert.Contains(t, out, "exported 1 notes")

	data, err := os.ReadFile(filepath.Join(filepath.Dir(cfgPath), "export", "notes", "1.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "step one")
}

func TestConfigGetSet(t *testing.T) {
	cfgPath := writeConfig(t)

	_, err := execute(t, "--config", cfgPath, "config", "set", "page_size", "12")
	require.NoError(t, err)

	out, err := execute(t, "--config", cfgPath, "config", "get", "page_size")
	require.NoError(t, err)
	assert.Equal(t, "12", strings.TrimSpace(out))

	_, err = execute(t, "--config", cfgPath, "config", "set", "search_content", "milk")
	require.NoError(t, err)
	out, err = execute(t, "--config", cfgPath, "config", "get")
	require.NoError(t, err)
	var all map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &all))
	assert.Equal(t, "milk", all["search_content"])

	_, err = execute(t, "--config", cfgPath, "config", "get", "nope")
	assert.ErrorContains(t, err, "unknown key")
}

func TestConfigSetRejectsUnusableValues(t *testing.T) {
	cfgPath := writeConfig(t)

	_, err := execute(t, "--config", cfgPath, "config", "set", "order_by", "updatd_at")
	assert.ErrorContains(t, err, "unknown order field")
	_, err = execute(t, "--config", cfgPath, "config", "set", "page_size", "0")
	assert.ErrorContains(t, err, "positive integer")

	// Text keys are stored verbatim, even when they look like JSON.
	_, err = execute(t, "--config", cfgPath, "config", "set", "search_content", "42")
	require.NoError(t, err)
	out, err := execute(t, "--config", cfgPath, "config", "get", "search_content")
	require.NoError(t, err)
	assert.Equal(t, `"42"`, strings.TrimSpace(out))

	out, err = execute(t, "--config", cfgPath, "config", "get", "order_by")
	require.NoError(t, err)
	assert.Equal(t, `"-updated_at"`, strings.TrimSpace(out))
}

func TestTagsAndCleanup(t *testing.T) {
	cfgPath := writeConfig(t)

	out, err := execute(t, "--config", cfgPath, "tags", "generate")
	require.NoError(t, err)
	assert.Contains(t, out, `"created": []`)

	out, err = execute(t, "--config", cfgPath, "tags", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 0 tags")

	out, err = execute(t, "--config", cfgPath, "cleanup")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 0 orphan attachments")
}

func TestHashToken(t *testing.T) {
	out, err := execute(t, "hash-token", "s3cret")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
}
