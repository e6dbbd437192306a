package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const attachmentColumns = `id, filename, mimetype, size, note_id, temporary_uuid, created_at, updated_at`

func (s store) scanAttachment(row scanner, withContent bool) (*Attachment, error) {
	var a Attachment
	var noteID sql.NullInt64
	var tempUUID sql.NullString
	dest := []any{&a.ID, &a.Filename, &a.Mimetype, &a.Size, &noteID, &tempUUID, &a.CreatedAt, &a.UpdatedAt}
	if withContent {
		dest = append(dest, &a.Content)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if noteID.Valid {
		id := noteID.Int64
		a.NoteID = &id
	}
	a.TemporaryUUID = tempUUID.String
	a.CreatedAt = s.local(a.CreatedAt)
	a.UpdatedAt = s.local(a.UpdatedAt)
	return &a, nil
}

// CreateAttachment stores a. Exactly one of a.NoteID and a.TemporaryUUID
// should be set.
func (s store) CreateAttachment(ctx context.Context, a Attachment) (*Attachment, error) {
	now := s.timestamp()
	var tempUUID any
	if a.TemporaryUUID != "" {
		tempUUID = a.TemporaryUUID
	}
	result, err := s.q.ExecContext(ctx, `
		INSERT INTO attachments (filename, content, mimetype, size, note_id, temporary_uuid, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.Filename, a.Content, a.Mimetype, int64(len(a.Content)), a.NoteID, tempUUID, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create attachment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	a.ID = id
	a.Size = int64(len(a.Content))
	a.CreatedAt = s.local(now)
	a.UpdatedAt = s.local(now)
	return &a, nil
}

// GetAttachment returns the attachment including its content.
func (s store) GetAttachment(ctx context.Context, id int64) (*Attachment, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+attachmentColumns+`, content FROM attachments WHERE id = ?`, id)
	a, err := s.scanAttachment(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("attachment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	return a, nil
}

// GetAttachmentByFilename returns the newest attachment with that name.
func (s store) GetAttachmentByFilename(ctx context.Context, filename string) (*Attachment, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+attachmentColumns+`, content FROM attachments
		WHERE filename = ? ORDER BY id DESC LIMIT 1
	`, filename)
	a, err := s.scanAttachment(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("attachment %q: %w", filename, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	return a, nil
}

// ListAttachments returns metadata only.
func (s store) ListAttachments(ctx context.Context, noteID int64) ([]Attachment, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+attachmentColumns+` FROM attachments WHERE note_id = ? ORDER BY id
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	attachments := []Attachment{}
	for rows.Next() {
		a, err := s.scanAttachment(rows, false)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachments = append(attachments, *a)
	}
	return attachments, rows.Err()
}

// RelinkTemporary moves every attachment uploaded under uuid to noteID and
// clears the uuid. Run it in the same transaction that saves the note.
func (s store) RelinkTemporary(ctx context.Context, uuid string, noteID int64) (int64, error) {
	if uuid == "" {
		return 0, nil
	}
	result, err := s.q.ExecContext(ctx, `
		UPDATE attachments SET note_id = ?, temporary_uuid = NULL, updated_at = ?
		WHERE temporary_uuid = ?
	`, noteID, s.timestamp(), uuid)
	if err != nil {
		return 0, fmt.Errorf("failed to relink attachments: %w", err)
	}
	return result.RowsAffected()
}

func (s store) CountAttachments(ctx context.Context, noteID int64) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM attachments WHERE note_id = ?`, noteID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count attachments: %w", err)
	}
	return n, nil
}

func (s store) CountAttachmentsByTemporary(ctx context.Context, uuid string) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM attachments WHERE temporary_uuid = ?`, uuid).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count attachments: %w", err)
	}
	return n, nil
}

// AttachmentCounts returns the attachment count of each note in ids that has
// any.
func (s store) AttachmentCounts(ctx context.Context, ids []int64) (map[int64]int, error) {
	counts := make(map[int64]int, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT note_id, COUNT(*) FROM attachments
		WHERE note_id IN (`+placeholders+`)
		GROUP BY note_id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count attachments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("failed to scan attachment count: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// DeleteOrphanAttachments removes attachments that never got a note and were
// created at or before cutoff. Uploads still waiting under a temporary uuid
// expire the same way.
func (s store) DeleteOrphanAttachments(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.q.ExecContext(ctx, `
		DELETE FROM attachments WHERE note_id IS NULL AND created_at <= ?
	`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphan attachments: %w", err)
	}
	return result.RowsAffected()
}
