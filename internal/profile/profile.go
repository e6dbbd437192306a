// Package profile is the key/value settings store backed by the single
// user_config row. Reads go through an injected cache; writes persist the
// whole mapping and only then drop the cached entry.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nzaccagnino/notedeck/internal/cache"
)

// ErrNotInitialized means Init was never run against the database.
var ErrNotInitialized = errors.New("profile not initialized")

// Repository persists the profile row.
type Repository interface {
	// ReadProfile returns ErrNotInitialized when the row does not exist.
	ReadProfile(ctx context.Context) (map[string]any, error)
	WriteProfile(ctx context.Context, values map[string]any) error
	CreateProfile(ctx context.Context, values map[string]any) error
}

type Store struct {
	repo  Repository
	cache cache.Cache
	log   zerolog.Logger

	// mu serialises writers; readers only touch the cache and the repository.
	mu       sync.Mutex
	onChange func(key string, value any)
}

func NewStore(repo Repository, c cache.Cache, log zerolog.Logger) *Store {
	return &Store{
		repo:  repo,
		cache: c,
		log:   log.With().Str("component", "profile").Logger(),
	}
}

// OnChange registers fn to be called after a value actually changed.
func (s *Store) OnChange(fn func(key string, value any)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Init creates the profile row from defaults, or adds the default keys the
// stored row lacks. Existing values are never overwritten.
func (s *Store) Init(ctx context.Context, defaults map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized, err := normalizeMap(defaults)
	if err != nil {
		return err
	}

	existing, err := s.repo.ReadProfile(ctx)
	if errors.Is(err, ErrNotInitialized) {
		if err := s.repo.CreateProfile(ctx, normalized); err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		s.cache.Flush()
		s.log.Info().Int("keys", len(normalized)).Msg("profile created")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read profile: %w", err)
	}

	added := MergeDefaults(existing, normalized)
	if len(added) == 0 {
		return nil
	}
	if err := s.repo.WriteProfile(ctx, existing); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	s.cache.Flush()
	s.log.Info().Strs("added", added).Msg("profile back-filled with defaults")
	return nil
}

// MergeDefaults adds to existing every key of defaults it does not have and
// returns the added keys, sorted.
func MergeDefaults(existing, defaults map[string]any) []string {
	var added []string
	for key, value := range defaults {
		if _, ok := existing[key]; ok {
			continue
		}
		existing[key] = value
		added = append(added, key)
	}
	sort.Strings(added)
	return added
}

// Get returns the value for key, or nil when the profile has no such key.
func (s *Store) Get(ctx context.Context, key string) (any, error) {
	if v, ok := s.cache.Get(key); ok {
		return v, nil
	}

	version := s.cache.Version()
	values, err := s.repo.ReadProfile(ctx)
	if err != nil {
		return nil, err
	}
	v := values[key]
	if !s.cache.Fill(key, v, version) {
		s.log.Debug().Str("key", key).Msg("cache fill skipped, concurrent write")
	}
	s.log.Debug().Str("key", key).Interface("value", v).Msg("loaded from profile")
	return v, nil
}

// Set stores value under key. Values are normalised to their JSON form so a
// cached value always equals what a fresh read would return, then checked
// with Validate. Writing the current value is a no-op and does not notify
// listeners. Listeners run after the write lock is released.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	normalized, err := normalize(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := Validate(key, normalized); err != nil {
		return err
	}

	changed, notify, err := s.write(ctx, key, normalized)
	if err != nil || !changed {
		return err
	}
	if notify != nil {
		notify(key, normalized)
	}
	return nil
}

func (s *Store) write(ctx context.Context, key string, value any) (bool, func(string, any), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Get(ctx, key)
	if err != nil {
		return false, nil, err
	}
	if reflect.DeepEqual(current, value) {
		s.log.Debug().Str("key", key).Msg("value unchanged, skipping write")
		return false, nil, nil
	}

	values, err := s.repo.ReadProfile(ctx)
	if err != nil {
		return false, nil, err
	}
	values[key] = value
	if err := s.repo.WriteProfile(ctx, values); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("profile write failed")
		return false, nil, fmt.Errorf("failed to persist %s: %w", key, err)
	}
	s.cache.Invalidate(key)
	return true, s.onChange, nil
}

func normalize(value any) (any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeMap(values map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(values))
	for k, v := range values {
		n, err := normalize(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode default %s: %w", k, err)
		}
		out[k] = n
	}
	return out, nil
}
