// Package app wires the stores and services shared by the client and the
// server binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/nzaccagnino/notedeck/internal/cache"
	"github.com/nzaccagnino/notedeck/internal/cleanup"
	"github.com/nzaccagnino/notedeck/internal/config"
	"github.com/nzaccagnino/notedeck/internal/db"
	"github.com/nzaccagnino/notedeck/internal/listing"
	"github.com/nzaccagnino/notedeck/internal/metrics"
	"github.com/nzaccagnino/notedeck/internal/notes"
	"github.com/nzaccagnino/notedeck/internal/profile"
	"github.com/nzaccagnino/notedeck/internal/query"
)

// ErrLocked means another process already has the database open. The
// profile cache is per process, so a second process would read stale
// settings.
var ErrLocked = errors.New("database is in use by another notedeck process")

type App struct {
	Config   *config.Config
	Log      zerolog.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	DB       *db.DB
	Profile  *profile.Store
	Listing  *listing.Service
	Notes    *notes.Service
	Cleanup  *cleanup.Worker

	lock *flock.Flock
}

// Open locks cfg.DBPath for this process, migrates it, makes sure the
// profile row exists and builds every service on top of it.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (a *App, err error) {
	lock := flock.New(cfg.DBPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock database: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, cfg.DBPath)
	}
	defer func() {
		if err != nil {
			lock.Unlock()
		}
	}()

	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	if err != nil {
		return nil, err
	}

	database, err := db.New(cfg.DBPath, log)
	if err != nil {
		return nil, err
	}
	if cfg.Timezone != "" {
		loc, lerr := time.LoadLocation(cfg.Timezone)
		if lerr != nil {
			database.Close()
			return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, lerr)
		}
		database.SetLocation(loc)
	}

	store := profile.NewStore(database, cache.New(m.Cache), log)
	if err = store.Init(ctx, profile.Defaults()); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize profile: %w", err)
	}

	builder := query.Builder{PageSize: store.PageSize, CaseSensitive: cfg.Search.CaseSensitive}
	lister := listing.New(database, store, builder, log, m.Listing, listing.Options{
		ConsistentReads: cfg.ConsistentReads,
	})

	return &App{
		Config:   cfg,
		Log:      log,
		Registry: registry,
		Metrics:  m,
		DB:       database,
		Profile:  store,
		Listing:  lister,
		Notes:    notes.NewService(database, lister, store, log),
		Cleanup:  cleanup.NewWorker(database, cfg.Cleanup.Interval, cfg.Cleanup.Grace, log, m.Cleanup),
		lock:     lock,
	}, nil
}

// Close stops the cleanup worker, closes the database and releases the lock.
func (a *App) Close() error {
	a.Cleanup.Stop()
	err := a.DB.Close()
	if uerr := a.lock.Unlock(); err == nil {
		err = uerr
	}
	return err
}
