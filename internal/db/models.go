package db

import "time"

type NoteType string

const (
	NoteTypeDefault   NoteType = "default"
	NoteTypeHyperlink NoteType = "hyperlink"
	NoteTypeBookmark  NoteType = "bookmark"
	NoteTypeTodo      NoteType = "todo"
	NoteTypeArchive   NoteType = "archive"
)

// NoteTypes lists every note type in display order.
var NoteTypes = []NoteType{
	NoteTypeDefault,
	NoteTypeHyperlink,
	NoteTypeBookmark,
	NoteTypeTodo,
	NoteTypeArchive,
}

func (t NoteType) Valid() bool {
	for _, nt := range NoteTypes {
		if t == nt {
			return true
		}
	}
	return false
}

type Note struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	NoteType    NoteType  `json:"note_type"`
	VisitCount  int64     `json:"visit_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Attachments int       `json:"attachments"`
}

type NoteListItem struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Attachment is linked to a note by NoteID, or provisionally by
// TemporaryUUID until the note it was uploaded for is saved.
type Attachment struct {
	ID            int64     `json:"id"`
	Filename      string    `json:"filename"`
	Content       []byte    `json:"-"`
	Mimetype      string    `json:"mimetype"`
	Size          int64     `json:"size"`
	NoteID        *int64    `json:"note_id,omitempty"`
	TemporaryUUID string    `json:"temporary_uuid,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type TagSource string

const (
	TagSourceUser TagSource = "user"
	TagSourceAuto TagSource = "auto"
)

type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Source    TagSource `json:"source"`
	NoteID    *int64    `json:"note_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
