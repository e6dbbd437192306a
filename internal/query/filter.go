package query

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Recognised filter keys. Anything else is ignored by the parsers.
const (
	KeySearchContent = "search_content"
	KeyHasAttachment = "has_attachment"
	KeyNoteType      = "note_type"
	KeyTagSelect     = "tag_select"
	KeyOrderBy       = "order_by"
)

// TagUnset is the tag_select value meaning "no tag filter".
const TagUnset = "(null)"

var (
	ErrUnknownOrderField = errors.New("unknown order field")
	ErrInvalidType       = errors.New("invalid value type")
	ErrInvalidPage       = errors.New("page must be a positive integer")
)

// ConfigError reports a filter built with a value the caller should never
// have produced: a typo in an order field, a string where a bool belongs.
type ConfigError struct {
	Key   string
	Value any
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Key, fmt.Sprint(e.Value), e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Filter is the set of listing filters. A nil field is "not specified",
// which is distinct from its zero value (HasAttachment false means "notes
// without attachments").
type Filter struct {
	SearchContent *string `json:"search_content,omitempty"`
	HasAttachment *bool   `json:"has_attachment,omitempty"`
	NoteType      *string `json:"note_type,omitempty"`
	TagSelect     *string `json:"tag_select,omitempty"`
	OrderBy       *string `json:"order_by,omitempty"`
}

// Merge returns f with every field that is set in other replacing its own.
func (f Filter) Merge(other Filter) Filter {
	if other.SearchContent != nil {
		f.SearchContent = other.SearchContent
	}
	if other.HasAttachment != nil {
		f.HasAttachment = other.HasAttachment
	}
	if other.NoteType != nil {
		f.NoteType = other.NoteType
	}
	if other.TagSelect != nil {
		f.TagSelect = other.TagSelect
	}
	if other.OrderBy != nil {
		f.OrderBy = other.OrderBy
	}
	return f
}

// ParseFilter converts a loosely typed mapping (decoded JSON, profile values)
// into a Filter. Unknown keys and nil values are skipped.
func ParseFilter(m map[string]any) (Filter, error) {
	var f Filter
	for key, raw := range m {
		if raw == nil {
			continue
		}
		switch key {
		case KeySearchContent, KeyNoteType, KeyTagSelect, KeyOrderBy:
			s, ok := raw.(string)
			if !ok {
				return Filter{}, &ConfigError{Key: key, Value: raw, Err: ErrInvalidType}
			}
			f.setString(key, s)
		case KeyHasAttachment:
			b, ok := raw.(bool)
			if !ok {
				return Filter{}, &ConfigError{Key: key, Value: raw, Err: ErrInvalidType}
			}
			f.HasAttachment = &b
		}
	}
	return f, nil
}

// ParseValues is ParseFilter for query strings. Only the first value of each
// key is used; an empty has_attachment is treated as absent.
func ParseValues(v url.Values) (Filter, error) {
	var f Filter
	for _, key := range []string{KeySearchContent, KeyNoteType, KeyTagSelect, KeyOrderBy} {
		if _, ok := v[key]; ok {
			f.setString(key, v.Get(key))
		}
	}

	if raw := strings.TrimSpace(v.Get(KeyHasAttachment)); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return Filter{}, &ConfigError{Key: KeyHasAttachment, Value: raw, Err: ErrInvalidType}
		}
		f.HasAttachment = &b
	}
	return f, nil
}

func (f *Filter) setString(key, s string) {
	switch key {
	case KeySearchContent:
		f.SearchContent = &s
	case KeyNoteType:
		f.NoteType = &s
	case KeyTagSelect:
		f.TagSelect = &s
	case KeyOrderBy:
		f.OrderBy = &s
	}
}

// String and Bool return pointers to their argument.
func String(s string) *string { return &s }

func Bool(b bool) *bool { return &b }
