package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nzaccagnino/notedeck/internal/config"
	"github.com/nzaccagnino/notedeck/internal/notes"
	"github.com/nzaccagnino/notedeck/internal/profile"
	"github.com/nzaccagnino/notedeck/internal/query"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "notes.db")
	return cfg
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Timezone = "Asia/Tokyo"

	a, err := Open(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)

	size, err := a.Profile.PageSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, size)

	note, err := a.Notes.Save(ctx, notes.SaveRequest{Title: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", note.CreatedAt.Location().String())

	result, err := a.Listing.Page(ctx, query.Filter{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)

	require.NoError(t, a.Close())

	// Reopening keeps the stored profile.
	a, err = Open(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.Profile.Set(ctx, profile.KeyPageSize, 3))
	size, err = a.Profile.PageSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, size)
}

func TestOpen_SecondProcessRejected(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	a, err := Open(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)

	_, err = Open(ctx, cfg, zerolog.Nop())
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, a.Close())
	a, err = Open(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, a.Close())
}

func TestOpen_InvalidTimezone(t *testing.T) {
	cfg := testConfig(t)
	cfg.Timezone = "Mars/Olympus"

	_, err := Open(context.Background(), cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "invalid timezone")

	// A failed open releases the lock.
	cfg.Timezone = ""
	a, err := Open(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, a.Close())
}
