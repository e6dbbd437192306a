// Package notes implements the note operations that sit above the stores:
// saving with attachment re-linking, visits, tag extraction and file
// import/export.
package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/nzaccagnino/notedeck/internal/db"
	"github.com/nzaccagnino/notedeck/internal/query"
)

const MaxTitleLength = 200

var (
	ErrInvalidTitle    = errors.New("title must be 1-200 characters")
	ErrInvalidNoteType = errors.New("unknown note type")
)

type Store interface {
	GetNote(ctx context.Context, id int64) (*db.Note, error)
	CreateNote(ctx context.Context, title, content string, noteType db.NoteType) (*db.Note, error)
	DeleteNote(ctx context.Context, id int64) error
	IncrVisit(ctx context.Context, id int64) (int64, error)
	Titles(ctx context.Context) ([]db.NoteListItem, error)
	CountAttachments(ctx context.Context, noteID int64) (int, error)
	CreateTagIfNotExists(ctx context.Context, name string, source db.TagSource, noteID *int64) (bool, error)
	DeleteAllTags(ctx context.Context) (int64, error)
	WriteTx(ctx context.Context, fn func(tx *db.Tx) error) error
}

// Lister returns every note matching a filter.
type Lister interface {
	All(ctx context.Context, f query.Filter) ([]db.Note, error)
}

type Settings interface {
	Set(ctx context.Context, key string, value any) error
}

type Service struct {
	store    Store
	lister   Lister
	settings Settings
	log      zerolog.Logger
}

func NewService(store Store, lister Lister, settings Settings, log zerolog.Logger) *Service {
	return &Service{
		store:    store,
		lister:   lister,
		settings: settings,
		log:      log.With().Str("component", "notes").Logger(),
	}
}

type SaveRequest struct {
	// ID is nil for a new note.
	ID       *int64      `json:"id,omitempty"`
	Title    string      `json:"title"`
	Content  string      `json:"content"`
	NoteType db.NoteType `json:"note_type"`
	// TemporaryUUID is the correlation id attachments were uploaded under
	// before the note existed.
	TemporaryUUID string `json:"temporary_uuid,omitempty"`
}

func (r *SaveRequest) validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" || utf8.RuneCountInString(r.Title) > MaxTitleLength {
		return ErrInvalidTitle
	}
	if r.NoteType == "" {
		r.NoteType = db.NoteTypeDefault
	}
	if !r.NoteType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidNoteType, r.NoteType)
	}
	return nil
}

// Save creates or updates a note and moves the attachments uploaded under
// req.TemporaryUUID onto it, all in one transaction.
func (s *Service) Save(ctx context.Context, req SaveRequest) (*db.Note, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var note *db.Note
	var relinked int64
	err := s.store.WriteTx(ctx, func(tx *db.Tx) error {
		var err error
		if req.ID == nil {
			note, err = tx.CreateNote(ctx, req.Title, req.Content, req.NoteType)
		} else {
			if err = tx.UpdateNote(ctx, *req.ID, req.Title, req.Content, req.NoteType); err == nil {
				note, err = tx.GetNote(ctx, *req.ID)
			}
		}
		if err != nil {
			return err
		}
		relinked, err = tx.RelinkTemporary(ctx, req.TemporaryUUID, note.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if note.Attachments, err = s.store.CountAttachments(ctx, note.ID); err != nil {
		return nil, err
	}
	s.log.Info().Int64("id", note.ID).Bool("created", req.ID == nil).Int64("relinked", relinked).Msg("note saved")
	return note, nil
}

// Get returns a note with its attachment count.
func (s *Service) Get(ctx context.Context, id int64) (*db.Note, error) {
	note, err := s.store.GetNote(ctx, id)
	if err != nil {
		return nil, err
	}
	if note.Attachments, err = s.store.CountAttachments(ctx, id); err != nil {
		return nil, err
	}
	return note, nil
}

// Visit records one view and returns the new count.
func (s *Service) Visit(ctx context.Context, id int64) (int64, error) {
	return s.store.IncrVisit(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteNote(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("id", id).Msg("note deleted")
	return nil
}
