package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nzaccagnino/notedeck/internal/profile"
)

// profileRowID is the only user_config row.
const profileRowID = 1

var _ profile.Repository = (*DB)(nil)

func (db *DB) ReadProfile(ctx context.Context) (map[string]any, error) {
	var raw string
	err := db.q.QueryRowContext(ctx, `SELECT profile FROM user_config WHERE id = ?`, profileRowID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, profile.ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	values := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return values, nil
}

func (db *DB) WriteProfile(ctx context.Context, values map[string]any) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	result, err := db.q.ExecContext(ctx, `
		UPDATE user_config SET profile = ?, updated_at = ? WHERE id = ?
	`, string(data), db.timestamp(), profileRowID)
	if err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return profile.ErrNotInitialized
	}
	return nil
}

func (db *DB) CreateProfile(ctx context.Context, values map[string]any) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	now := db.timestamp()
	_, err = db.q.ExecContext(ctx, `
		INSERT INTO user_config (id, profile, created_at, updated_at) VALUES (?, ?, ?, ?)
	`, profileRowID, string(data), now, now)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}
