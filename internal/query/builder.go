// Package query turns listing filters into a FetchSpec, the resolved
// description of one read against the notes table.
package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultOrder is used when a filter carries no order_by.
const DefaultOrder = "-updated_at"

var orderFields = map[string]bool{
	"id":          true,
	"title":       true,
	"content":     true,
	"note_type":   true,
	"visit_count": true,
	"created_at":  true,
	"updated_at":  true,
}

// Attachment is the tri-state attachment filter.
type Attachment int

const (
	AttachmentAny Attachment = iota
	AttachmentPresent
	AttachmentAbsent
)

func (a Attachment) String() string {
	switch a {
	case AttachmentPresent:
		return "present"
	case AttachmentAbsent:
		return "absent"
	default:
		return "any"
	}
}

type Order struct {
	Field string
	Desc  bool
}

// FetchSpec is comparable: two builds from the same inputs are ==.
type FetchSpec struct {
	Search        string
	CaseSensitive bool
	Attachment    Attachment
	NoteType      string
	HasNoteType   bool
	// Tag is the bracketed form searched for in titles, e.g. "【work】".
	Tag       string
	Order     Order
	Paginated bool
	Offset    int
	Limit     int
}

// Unpaginated returns s without offset and limit, as used for counting.
func (s FetchSpec) Unpaginated() FetchSpec {
	s.Paginated = false
	s.Offset = 0
	s.Limit = 0
	return s
}

// Where renders the WHERE clause for a query over "notes n". It returns an
// empty string when nothing is filtered.
func (s FetchSpec) Where() (string, []any) {
	var conditions []string
	var args []any

	if s.Search != "" {
		conditions = append(conditions,
			"("+s.contains("n.title")+" OR "+s.contains("n.content")+")")
		args = append(args, s.Search, s.Search)
	}

	switch s.Attachment {
	case AttachmentPresent:
		conditions = append(conditions, `EXISTS (SELECT 1 FROM attachments a WHERE a.note_id = n.id)`)
	case AttachmentAbsent:
		conditions = append(conditions, `NOT EXISTS (SELECT 1 FROM attachments a WHERE a.note_id = n.id)`)
	}

	if s.HasNoteType {
		conditions = append(conditions, `n.note_type = ?`)
		args = append(args, s.NoteType)
	}

	if s.Tag != "" {
		conditions = append(conditions, s.contains("n.title"))
		args = append(args, s.Tag)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// contains matches a substring without LIKE so % and _ in user input are
// literal.
func (s FetchSpec) contains(column string) string {
	if s.CaseSensitive {
		return "instr(" + column + ", ?) > 0"
	}
	return "instr(casefold(" + column + "), casefold(?)) > 0"
}

// OrderClause renders ORDER BY with id as tiebreaker so pages are stable.
func (s FetchSpec) OrderClause() string {
	dir := "ASC"
	if s.Order.Desc {
		dir = "DESC"
	}
	if s.Order.Field == "id" {
		return fmt.Sprintf("ORDER BY n.id %s", dir)
	}
	return fmt.Sprintf("ORDER BY n.%s %s, n.id %s", s.Order.Field, dir, dir)
}

// LimitClause is empty for unpaginated specs.
func (s FetchSpec) LimitClause() (string, []any) {
	if !s.Paginated {
		return "", nil
	}
	return "LIMIT ? OFFSET ?", []any{s.Limit, s.Offset}
}

func (s FetchSpec) MarshalZerologObject(e *zerolog.Event) {
	e.Str("search", s.Search).
		Bool("case_sensitive", s.CaseSensitive).
		Stringer("attachment", s.Attachment).
		Str("tag", s.Tag).
		Str("order", s.Order.Field).
		Bool("desc", s.Order.Desc)
	if s.HasNoteType {
		e.Str("note_type", s.NoteType)
	}
	if s.Paginated {
		e.Int("offset", s.Offset).Int("limit", s.Limit)
	}
}

// Builder builds FetchSpecs. PageSize is consulted on every paginated build
// and never remembered.
type Builder struct {
	PageSize      func(ctx context.Context) (int, error)
	CaseSensitive bool
}

// Build resolves f into a FetchSpec. A nil page yields an unpaginated spec.
// Note type defaults are the caller's business: an unset NoteType matches
// every type.
func (b Builder) Build(ctx context.Context, f Filter, page *int) (FetchSpec, error) {
	spec := FetchSpec{CaseSensitive: b.CaseSensitive}

	if f.SearchContent != nil {
		spec.Search = *f.SearchContent
	}

	if f.HasAttachment != nil {
		if *f.HasAttachment {
			spec.Attachment = AttachmentPresent
		} else {
			spec.Attachment = AttachmentAbsent
		}
	}

	if f.NoteType != nil {
		spec.NoteType = *f.NoteType
		spec.HasNoteType = true
	}

	if f.TagSelect != nil && *f.TagSelect != "" && *f.TagSelect != TagUnset {
		spec.Tag = BracketTag(*f.TagSelect)
	}

	orderBy := DefaultOrder
	if f.OrderBy != nil && *f.OrderBy != "" {
		orderBy = *f.OrderBy
	}
	order, err := ParseOrder(orderBy)
	if err != nil {
		return FetchSpec{}, err
	}
	spec.Order = order

	if page == nil {
		return spec, nil
	}
	if *page < 1 {
		return FetchSpec{}, &ConfigError{Key: "page", Value: *page, Err: ErrInvalidPage}
	}
	if b.PageSize == nil {
		return FetchSpec{}, fmt.Errorf("builder has no page size source")
	}
	size, err := b.PageSize(ctx)
	if err != nil {
		return FetchSpec{}, fmt.Errorf("failed to read page size: %w", err)
	}
	return spec.Page(*page, size)
}

// Page returns s limited to page of the given size. Callers that already
// counted pages with size use it so both sides agree on one value.
func (s FetchSpec) Page(page, size int) (FetchSpec, error) {
	if page < 1 {
		return FetchSpec{}, &ConfigError{Key: "page", Value: page, Err: ErrInvalidPage}
	}
	if size < 1 {
		return FetchSpec{}, fmt.Errorf("invalid page size %d", size)
	}
	s.Paginated = true
	s.Offset = (page - 1) * size
	s.Limit = size
	return s, nil
}

// ParseOrder reads "field" or "-field".
func ParseOrder(s string) (Order, error) {
	var o Order
	field := s
	if strings.HasPrefix(field, "-") {
		o.Desc = true
		field = field[1:]
	}
	if !orderFields[field] {
		return Order{}, &ConfigError{Key: KeyOrderBy, Value: s, Err: ErrUnknownOrderField}
	}
	o.Field = field
	return o, nil
}

// BracketTag wraps a tag name the way titles carry it.
func BracketTag(name string) string {
	return "【" + name + "】"
}
