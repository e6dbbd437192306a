package db

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateTagIfNotExists inserts the tag unless one with the same name exists.
// A duplicate is not an error; created reports whether a row was added.
func (s store) CreateTagIfNotExists(ctx context.Context, name string, source TagSource, noteID *int64) (bool, error) {
	now := s.timestamp()
	result, err := s.q.ExecContext(ctx, `
		INSERT INTO tags (name, source, note_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, name, string(source), noteID, now, now)
	if err != nil {
		return false, fmt.Errorf("failed to create tag: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

func (s store) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, name, source, note_id, created_at, updated_at FROM tags ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	tags := []Tag{}
	for rows.Next() {
		var t Tag
		var source string
		var noteID sql.NullInt64
		if err := rows.Scan(&t.ID, &t.Name, &source, &noteID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		t.Source = TagSource(source)
		if noteID.Valid {
			id := noteID.Int64
			t.NoteID = &id
		}
		t.CreatedAt = s.local(t.CreatedAt)
		t.UpdatedAt = s.local(t.UpdatedAt)
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (s store) DeleteAllTags(ctx context.Context) (int64, error) {
	result, err := s.q.ExecContext(ctx, `DELETE FROM tags`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tags: %w", err)
	}
	return result.RowsAffected()
}
