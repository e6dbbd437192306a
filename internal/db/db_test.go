package db

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nzaccagnino/notedeck/internal/profile"
	"github.com/nzaccagnino/notedeck/internal/query"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "notes.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// tick makes every timestamp one second later than the previous one.
func tick(db *DB, start time.Time) {
	next := start
	db.now = func() time.Time {
		next = next.Add(time.Second)
		return next
	}
}

func seedNotes(t *testing.T, db *DB, n int) []*Note {
	t.Helper()
	tick(db, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	notes := make([]*Note, 0, n)
	for i := 1; i <= n; i++ {
		note, err := db.CreateNote(context.Background(), fmt.Sprintf("note %02d", i), "", NoteTypeDefault)
		require.NoError(t, err)
		notes = append(notes, note)
	}
	return notes
}

func build(t *testing.T, f query.Filter, page *int, size int) query.FetchSpec {
	t.Helper()
	b := query.Builder{PageSize: func(context.Context) (int, error) { return size, nil }}
	spec, err := b.Build(context.Background(), f, page)
	require.NoError(t, err)
	return spec
}

func intp(n int) *int { return &n }

func TestNew_MigratesTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "notes.db")
	db, err := New(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = New(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestNoteCRUD(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	n, err := db.CreateNote(ctx, "groceries", "milk", NoteTypeTodo)
	require.NoError(t, err)
	assert.NotZero(t, n.ID)

	got, err := db.GetNote(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "groceries", got.Title)
	assert.Equal(t, NoteTypeTodo, got.NoteType)
	assert.Equal(t, int64(0), got.VisitCount)

	require.NoError(t, db.UpdateNote(ctx, n.ID, "groceries", "milk, eggs", NoteTypeTodo))
	got, err = db.GetNote(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "milk, eggs", got.Content)

	require.NoError(t, db.DeleteNote(ctx, n.ID))
	_, err = db.GetNote(ctx, n.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, db.DeleteNote(ctx, n.ID), ErrNotFound)
	assert.ErrorIs(t, db.UpdateNote(ctx, n.ID, "x", "", NoteTypeDefault), ErrNotFound)
}

func TestTimestampsUTCAtRestLocalOnRead(t *testing.T) {
	db := newTestDB(t)
	loc := time.FixedZone("UTC+8", 8*3600)
	db.SetLocation(loc)
	db.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	n, err := db.CreateNote(context.Background(), "t", "", NoteTypeDefault)
	require.NoError(t, err)

	got, err := db.GetNote(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, loc, got.CreatedAt.Location())
	assert.Equal(t, 20, got.CreatedAt.Hour())
	assert.True(t, got.CreatedAt.Equal(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)))

	var raw string
	require.NoError(t, db.conn.QueryRow(`SELECT CAST(created_at AS TEXT) FROM notes WHERE id = ?`, n.ID).Scan(&raw))
	assert.Contains(t, raw, "12:00:00")
}

func TestIncrVisitKeepsUpdatedAt(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	notes := seedNotes(t, db, 1)
	before, err := db.GetNote(ctx, notes[0].ID)
	require.NoError(t, err)

	visits, err := db.IncrVisit(ctx, notes[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), visits)
	visits, err = db.IncrVisit(ctx, notes[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), visits)

	after, err := db.GetNote(ctx, notes[0].ID)
	require.NoError(t, err)
	assert.True(t, before.UpdatedAt.Equal(after.UpdatedAt))

	_, err = db.IncrVisit(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestThirteenNotesPaginate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedNotes(t, db, 13)

	count, err := db.Count(ctx, build(t, query.Filter{}, nil, 6))
	require.NoError(t, err)
	assert.Equal(t, 13, count)

	first, err := db.Fetch(ctx, build(t, query.Filter{OrderBy: query.String("created_at")}, intp(1), 6))
	require.NoError(t, err)
	require.Len(t, first, 6)
	for i, n := range first {
		assert.Equal(t, fmt.Sprintf("note %02d", i+1), n.Title)
	}

	last, err := db.Fetch(ctx, build(t, query.Filter{OrderBy: query.String("created_at")}, intp(3), 6))
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "note 13", last[0].Title)

	newest, err := db.Fetch(ctx, build(t, query.Filter{}, intp(1), 6))
	require.NoError(t, err)
	assert.Equal(t, "note 13", newest[0].Title)
}

func TestSearchFilters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.CreateNote(ctx, "Straße notes", "", NoteTypeDefault)
	require.NoError(t, err)
	_, err = db.CreateNote(ctx, "budget", "100% done", NoteTypeDefault)
	require.NoError(t, err)
	_, err = db.CreateNote(ctx, "plain", "nothing", NoteTypeArchive)
	require.NoError(t, err)

	tests := []struct {
		name   string
		b      query.Builder
		filter query.Filter
		want   int
	}{
		{"empty search matches all", query.Builder{}, query.Filter{SearchContent: query.String("")}, 3},
		{"case insensitive unicode", query.Builder{}, query.Filter{SearchContent: query.String("STRASSE")}, 1},
		{"case sensitive", query.Builder{CaseSensitive: true}, query.Filter{SearchContent: query.String("straße")}, 0},
		{"percent is literal", query.Builder{}, query.Filter{SearchContent: query.String("0%")}, 1},
		{"content match", query.Builder{}, query.Filter{SearchContent: query.String("nothing")}, 1},
		{"note type", query.Builder{}, query.Filter{NoteType: query.String("archive")}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := tt.b.Build(ctx, tt.filter, nil)
			require.NoError(t, err)
			count, err := db.Count(ctx, spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, count)

			notes, err := db.Fetch(ctx, spec)
			require.NoError(t, err)
			assert.Len(t, notes, tt.want)

			exists, err := db.Exists(ctx, spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want > 0, exists)
		})
	}
}

func TestTagFilterMatchesBracketedTitle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.CreateNote(ctx, "plan【work】", "", NoteTypeDefault)
	require.NoError(t, err)
	_, err = db.CreateNote(ctx, "work log", "", NoteTypeDefault)
	require.NoError(t, err)

	count, err := db.Count(ctx, build(t, query.Filter{TagSelect: query.String("work")}, nil, 6))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = db.Count(ctx, build(t, query.Filter{TagSelect: query.String(query.TagUnset)}, nil, 6))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestHasAttachmentReturnsNoteOnce(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	withFiles, err := db.CreateNote(ctx, "with files", "", NoteTypeDefault)
	require.NoError(t, err)
	_, err = db.CreateNote(ctx, "bare", "", NoteTypeDefault)
	require.NoError(t, err)

	for _, name := range []string{"a.txt", "b.txt"} {
		_, err := db.CreateAttachment(ctx, Attachment{Filename: name, Content: []byte(name), Mimetype: "text/plain", NoteID: &withFiles.ID})
		require.NoError(t, err)
	}

	notes, err := db.Fetch(ctx, build(t, query.Filter{HasAttachment: query.Bool(true)}, nil, 6))
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, withFiles.ID, notes[0].ID)

	count, err := db.Count(ctx, build(t, query.Filter{HasAttachment: query.Bool(true)}, nil, 6))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	notes, err = db.Fetch(ctx, build(t, query.Filter{HasAttachment: query.Bool(false)}, nil, 6))
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "bare", notes[0].Title)

	counts, err := db.AttachmentCounts(ctx, []int64{withFiles.ID, notes[0].ID})
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{withFiles.ID: 2}, counts)
}

func TestRelinkTemporaryInTransaction(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, name := range []string{"a.png", "b.png"} {
		_, err := db.CreateAttachment(ctx, Attachment{Filename: name, Content: []byte{1, 2, 3}, Mimetype: "image/png", TemporaryUUID: "tmp-1"})
		require.NoError(t, err)
	}

	var noteID int64
	err := db.WriteTx(ctx, func(tx *Tx) error {
		n, err := tx.CreateNote(ctx, "pics", "", NoteTypeDefault)
		if err != nil {
			return err
		}
		noteID = n.ID
		moved, err := tx.RelinkTemporary(ctx, "tmp-1", n.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, int64(2), moved)
		return nil
	})
	require.NoError(t, err)

	n, err := db.CountAttachments(ctx, noteID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = db.CountAttachmentsByTemporary(ctx, "tmp-1")
	require.NoError(t, err)
	assert.Zero(t, n)

	list, err := db.ListAttachments(ctx, noteID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Empty(t, list[0].TemporaryUUID)
	assert.Nil(t, list[0].Content)
	assert.Equal(t, int64(3), list[0].Size)

	full, err := db.GetAttachment(ctx, list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, full.Content)
	require.NotNil(t, full.NoteID)
	assert.Equal(t, noteID, *full.NoteID)
}

func TestWriteTxRollsBack(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.WriteTx(ctx, func(tx *Tx) error {
		if _, err := tx.CreateNote(ctx, "ghost", "", NoteTypeDefault); err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	require.Error(t, err)

	count, err := db.Count(ctx, build(t, query.Filter{}, nil, 6))
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDeleteNoteCascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	n, err := db.CreateNote(ctx, "doomed", "", NoteTypeDefault)
	require.NoError(t, err)
	a, err := db.CreateAttachment(ctx, Attachment{Filename: "x", Content: []byte("x"), Mimetype: "text/plain", NoteID: &n.ID})
	require.NoError(t, err)

	require.NoError(t, db.DeleteNote(ctx, n.ID))
	_, err = db.GetAttachment(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteOrphanAttachments(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	n, err := db.CreateNote(ctx, "owner", "", NoteTypeDefault)
	require.NoError(t, err)

	db.now = func() time.Time { return start }
	old, err := db.CreateAttachment(ctx, Attachment{Filename: "old", Content: []byte("o"), Mimetype: "text/plain"})
	require.NoError(t, err)
	_, err = db.CreateAttachment(ctx, Attachment{Filename: "kept", Content: []byte("k"), Mimetype: "text/plain", NoteID: &n.ID})
	require.NoError(t, err)

	db.now = func() time.Time { return start.Add(10 * time.Minute) }
	fresh, err := db.CreateAttachment(ctx, Attachment{Filename: "fresh", Content: []byte("f"), Mimetype: "text/plain", TemporaryUUID: "u"})
	require.NoError(t, err)

	deleted, err := db.DeleteOrphanAttachments(ctx, start.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = db.GetAttachment(ctx, old.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetAttachment(ctx, fresh.ID)
	assert.NoError(t, err)

	byName, err := db.GetAttachmentByFilename(ctx, "kept")
	require.NoError(t, err)
	assert.Equal(t, []byte("k"), byName.Content)
}

func TestTags(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	created, err := db.CreateTagIfNotExists(ctx, "work", TagSourceAuto, nil)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = db.CreateTagIfNotExists(ctx, "work", TagSourceUser, nil)
	require.NoError(t, err)
	assert.False(t, created)

	_, err = db.CreateTagIfNotExists(ctx, "home", TagSourceUser, nil)
	require.NoError(t, err)

	tags, err := db.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "home", tags[0].Name)
	assert.Equal(t, TagSourceAuto, tags[1].Source)

	n, err := db.DeleteAllTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestProfileRepository(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.ReadProfile(ctx)
	assert.ErrorIs(t, err, profile.ErrNotInitialized)
	assert.ErrorIs(t, db.WriteProfile(ctx, map[string]any{"a": 1}), profile.ErrNotInitialized)

	require.NoError(t, db.CreateProfile(ctx, map[string]any{"page_size": 6}))
	assert.Error(t, db.CreateProfile(ctx, map[string]any{}), "only one profile row may exist")

	require.NoError(t, db.WriteProfile(ctx, map[string]any{"page_size": 9, "tag_select": "(null)"}))
	values, err := db.ReadProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"page_size": float64(9), "tag_select": "(null)"}, values)
}

func TestNoteTypeValid(t *testing.T) {
	assert.True(t, NoteTypeArchive.Valid())
	assert.False(t, NoteType("memo").Valid())
}
