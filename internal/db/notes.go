package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/nzaccagnino/notedeck/internal/query"
)

const noteColumns = `n.id, n.title, n.content, n.note_type, n.visit_count, n.created_at, n.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func (s store) scanNote(row scanner) (*Note, error) {
	var n Note
	var noteType string
	if err := row.Scan(&n.ID, &n.Title, &n.Content, &noteType, &n.VisitCount, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	n.NoteType = NoteType(noteType)
	n.CreatedAt = s.local(n.CreatedAt)
	n.UpdatedAt = s.local(n.UpdatedAt)
	return &n, nil
}

func (s store) GetNote(ctx context.Context, id int64) (*Note, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes n WHERE n.id = ?`, id)
	n, err := s.scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("note %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return n, nil
}

func (s store) CreateNote(ctx context.Context, title, content string, noteType NoteType) (*Note, error) {
	now := s.timestamp()
	result, err := s.q.ExecContext(ctx, `
		INSERT INTO notes (title, content, note_type, visit_count, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?)
	`, title, content, string(noteType), now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return &Note{
		ID:        id,
		Title:     title,
		Content:   content,
		NoteType:  noteType,
		CreatedAt: s.local(now),
		UpdatedAt: s.local(now),
	}, nil
}

func (s store) UpdateNote(ctx context.Context, id int64, title, content string, noteType NoteType) error {
	result, err := s.q.ExecContext(ctx, `
		UPDATE notes
		SET title = ?, content = ?, note_type = ?, updated_at = ?
		WHERE id = ?
	`, title, content, string(noteType), s.timestamp(), id)
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}
	return expectRow(result, "note", id)
}

// DeleteNote removes the note; attachments and tags pointing at it cascade.
func (s store) DeleteNote(ctx context.Context, id int64) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return expectRow(result, "note", id)
}

// IncrVisit bumps the visit counter without touching updated_at.
func (s store) IncrVisit(ctx context.Context, id int64) (int64, error) {
	var visits int64
	err := s.q.QueryRowContext(ctx,
		`UPDATE notes SET visit_count = visit_count + 1 WHERE id = ? RETURNING visit_count`, id,
	).Scan(&visits)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("note %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment visits: %w", err)
	}
	return visits, nil
}

func (s store) Titles(ctx context.Context) ([]NoteListItem, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT id, title, updated_at FROM notes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list titles: %w", err)
	}
	defer rows.Close()

	var notes []NoteListItem
	for rows.Next() {
		var n NoteListItem
		if err := rows.Scan(&n.ID, &n.Title, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		n.UpdatedAt = s.local(n.UpdatedAt)
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// Count ignores any pagination in spec.
func (s store) Count(ctx context.Context, spec query.FetchSpec) (int, error) {
	where, args := spec.Where()
	var count int
	err := s.q.QueryRowContext(ctx, joinSQL(`SELECT COUNT(*) FROM notes n`, where), args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count notes: %w", err)
	}
	return count, nil
}

func (s store) Fetch(ctx context.Context, spec query.FetchSpec) ([]Note, error) {
	where, args := spec.Where()
	limit, limitArgs := spec.LimitClause()
	stmt := joinSQL(`SELECT `+noteColumns+` FROM notes n`, where, spec.OrderClause(), limit)

	rows, err := s.q.QueryContext(ctx, stmt, append(args, limitArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notes: %w", err)
	}
	defer rows.Close()

	notes := []Note{}
	for rows.Next() {
		n, err := s.scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}

// Exists reports whether any note matches spec.
func (s store) Exists(ctx context.Context, spec query.FetchSpec) (bool, error) {
	where, args := spec.Where()
	var exists bool
	err := s.q.QueryRowContext(ctx,
		`SELECT EXISTS (`+joinSQL(`SELECT 1 FROM notes n`, where)+`)`, args...,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check notes: %w", err)
	}
	return exists, nil
}

func joinSQL(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

func expectRow(result sql.Result, what string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}
