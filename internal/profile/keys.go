package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/nzaccagnino/notedeck/internal/query"
)

const (
	KeyRenderType      = "note_detail_render_type"
	KeyAutogrow        = "note_detail_autogrow"
	KeyPageSize        = "page_size"
	KeyHomeSelect      = "home_select_option"
	KeySearchContent   = "search_content"
	KeyContentRows     = "note_content_rows"
	KeyTagSelect       = "tag_select"
	KeyCurrentPage     = "current_page"
	KeyOrderBy         = "order_by"
	KeySearchCooldown  = "search_cooldown_seconds"
	KeySaveCooldown    = "save_note_cooldown_seconds"
	TagUnset           = query.TagUnset
	DefaultNoteType    = "default"
	DefaultOrderBy     = query.DefaultOrder
	defaultPageSize    = 6
	defaultCooldownSec = 2
)

// ErrNotPositive rejects counts and page numbers below 1.
var ErrNotPositive = errors.New("must be a positive integer")

// ErrNegative rejects negative cooldowns.
var ErrNegative = errors.New("must not be negative")

// Defaults is the template used to create the profile row and to back-fill
// keys added in later releases.
func Defaults() map[string]any {
	return map[string]any{
		KeyRenderType:     "label",
		KeyAutogrow:       false,
		KeyPageSize:       defaultPageSize,
		KeyHomeSelect:     DefaultNoteType,
		KeySearchContent:  "",
		KeyContentRows:    10,
		KeyTagSelect:      TagUnset,
		KeyCurrentPage:    1,
		KeyOrderBy:        DefaultOrderBy,
		KeySearchCooldown: defaultCooldownSec,
		KeySaveCooldown:   1,
	}
}

// PageSize fails when the profile was never initialised; that is a startup
// ordering bug, not a user error.
func (s *Store) PageSize(ctx context.Context) (int, error) {
	v, err := s.Get(ctx, KeyPageSize)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, fmt.Errorf("%w: %s is missing", ErrNotInitialized, KeyPageSize)
	}
	n, ok := AsInt(v)
	if !ok || n < 1 {
		return 0, fmt.Errorf("invalid %s: %v", KeyPageSize, v)
	}
	return n, nil
}

// CurrentPage falls back to 1 for anything that is not a positive integer.
func (s *Store) CurrentPage(ctx context.Context) (int, error) {
	v, err := s.Get(ctx, KeyCurrentPage)
	if err != nil {
		return 0, err
	}
	n, ok := AsInt(v)
	if !ok || n < 1 {
		return 1, nil
	}
	return n, nil
}

func (s *Store) SetCurrentPage(ctx context.Context, page int) error {
	return s.Set(ctx, KeyCurrentPage, page)
}

func (s *Store) SearchContent(ctx context.Context) (string, error) {
	return s.stringValue(ctx, KeySearchContent, "")
}

func (s *Store) TagSelect(ctx context.Context) (string, error) {
	return s.stringValue(ctx, KeyTagSelect, TagUnset)
}

func (s *Store) HomeSelectOption(ctx context.Context) (string, error) {
	return s.stringValue(ctx, KeyHomeSelect, DefaultNoteType)
}

func (s *Store) OrderBy(ctx context.Context) (string, error) {
	return s.stringValue(ctx, KeyOrderBy, DefaultOrderBy)
}

func (s *Store) SearchCooldown(ctx context.Context) (time.Duration, error) {
	return s.seconds(ctx, KeySearchCooldown, defaultCooldownSec)
}

func (s *Store) SaveCooldown(ctx context.Context) (time.Duration, error) {
	return s.seconds(ctx, KeySaveCooldown, 1)
}

func (s *Store) stringValue(ctx context.Context, key, fallback string) (string, error) {
	v, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	str, ok := v.(string)
	if !ok {
		return fallback, nil
	}
	return str, nil
}

func (s *Store) seconds(ctx context.Context, key string, fallback float64) (time.Duration, error) {
	v, err := s.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	f, ok := v.(float64)
	if !ok || f < 0 {
		f = fallback
	}
	return time.Duration(f * float64(time.Second)), nil
}

// IsStringKey reports whether key holds free text, so callers taking raw
// input can store it without guessing its JSON type.
func IsStringKey(key string) bool {
	switch key {
	case KeySearchContent, KeyHomeSelect, KeyTagSelect, KeyOrderBy, KeyRenderType:
		return true
	}
	return false
}

// Validate rejects a value for a known key that readers could not use later.
// Unknown keys are accepted as they are.
func Validate(key string, value any) error {
	switch key {
	case KeyPageSize, KeyCurrentPage, KeyContentRows:
		if n, ok := AsInt(value); !ok || n < 1 {
			return &query.ConfigError{Key: key, Value: value, Err: ErrNotPositive}
		}
	case KeyOrderBy:
		str, ok := value.(string)
		if !ok {
			return &query.ConfigError{Key: key, Value: value, Err: query.ErrInvalidType}
		}
		if str == "" {
			return nil
		}
		if _, err := query.ParseOrder(str); err != nil {
			return err
		}
	case KeySearchContent, KeyHomeSelect, KeyTagSelect, KeyRenderType:
		if _, ok := value.(string); !ok {
			return &query.ConfigError{Key: key, Value: value, Err: query.ErrInvalidType}
		}
	case KeyAutogrow:
		if _, ok := value.(bool); !ok {
			return &query.ConfigError{Key: key, Value: value, Err: query.ErrInvalidType}
		}
	case KeySearchCooldown, KeySaveCooldown:
		f, ok := asFloat(value)
		if !ok {
			return &query.ConfigError{Key: key, Value: value, Err: query.ErrInvalidType}
		}
		if f < 0 {
			return &query.ConfigError{Key: key, Value: value, Err: ErrNegative}
		}
	}
	return nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// AsInt converts JSON-decoded numbers to int. Fractional values are rejected.
func AsInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}

// Filter returns the listing filter the user last chose. home_select_option
// supplies the note type.
func (s *Store) Filter(ctx context.Context) (query.Filter, error) {
	search, err := s.SearchContent(ctx)
	if err != nil {
		return query.Filter{}, err
	}
	noteType, err := s.HomeSelectOption(ctx)
	if err != nil {
		return query.Filter{}, err
	}
	tag, err := s.TagSelect(ctx)
	if err != nil {
		return query.Filter{}, err
	}
	order, err := s.OrderBy(ctx)
	if err != nil {
		return query.Filter{}, err
	}
	return query.Filter{
		SearchContent: &search,
		NoteType:      &noteType,
		TagSelect:     &tag,
		OrderBy:       &order,
	}, nil
}
