package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
)

const driverName = "sqlite3_notedeck"

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNotFound is returned for lookups of rows that do not exist.
var ErrNotFound = errors.New("not found")

var registerOnce sync.Once

// registerDriver adds casefold(text) to every connection so searches can be
// case-insensitive beyond ASCII, which LIKE and lower() are not.
func registerDriver() {
	registerOnce.Do(func() {
		sql.Register(driverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc("casefold", casefold, true)
			},
		})
	})
}

func casefold(s string) string {
	// A Caser is stateful, one per call.
	return cases.Fold().String(s)
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// store carries the query methods shared by DB and Tx.
type store struct {
	q   querier
	loc *time.Location
	now func() time.Time
}

func (s store) timestamp() time.Time {
	return s.now().UTC()
}

func (s store) local(t time.Time) time.Time {
	return t.In(s.loc)
}

type DB struct {
	store
	conn *sql.DB
	log  zerolog.Logger
}

// Tx is a transaction exposing the same query methods as DB.
type Tx struct {
	store
}

func New(dbPath string, log zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	registerDriver()
	dsn := "file:" + dbPath + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"
	conn, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{
		store: store{q: conn, loc: time.Local, now: time.Now},
		conn:  conn,
		log:   log.With().Str("component", "db").Logger(),
	}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func (db *DB) migrate() error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	defer src.Close()

	driver, err := migratesqlite.WithInstance(db.conn, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	// m.Close would also close db.conn, so only the source is closed.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return err
	}

	before, _, _ := m.Version()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	after, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if after != before {
		db.log.Info().Uint("from", before).Uint("to", after).Bool("dirty", dirty).Msg("schema migrated")
	}
	return nil
}

// SetLocation sets the zone timestamps are returned in. They are always
// stored as UTC.
func (db *DB) SetLocation(loc *time.Location) {
	db.loc = loc
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// ReadTx runs fn in a transaction so that every read in fn sees the same
// snapshot. The transaction is always rolled back.
func (db *DB) ReadTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	return fn(&Tx{store: store{q: tx, loc: db.loc, now: db.now}})
}

// WriteTx runs fn in a transaction committed when fn returns nil.
func (db *DB) WriteTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Tx{store: store{q: tx, loc: db.loc, now: db.now}}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}
