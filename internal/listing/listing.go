// Package listing renders pages of notes: it merges the stored filter with
// per-request overrides, counts, clamps the page and fetches.
//
// Count and fetch run as two separate reads unless Options.ConsistentReads
// is set. Without it a write landing between them can shift a page boundary
// by one note; with a single user that is accepted.
package listing

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nzaccagnino/notedeck/internal/db"
	"github.com/nzaccagnino/notedeck/internal/metrics"
	"github.com/nzaccagnino/notedeck/internal/pagination"
	"github.com/nzaccagnino/notedeck/internal/query"
)

// Reader is the read surface shared by *db.DB and *db.Tx.
type Reader interface {
	Count(ctx context.Context, spec query.FetchSpec) (int, error)
	Fetch(ctx context.Context, spec query.FetchSpec) ([]db.Note, error)
	AttachmentCounts(ctx context.Context, ids []int64) (map[int64]int, error)
}

type Store interface {
	Reader
	ReadTx(ctx context.Context, fn func(tx *db.Tx) error) error
}

// Profile supplies the stored filter and the current page.
type Profile interface {
	pagination.PageStore
	Filter(ctx context.Context) (query.Filter, error)
}

type Options struct {
	ConsistentReads bool
	// DefaultNoteType applies when neither the profile nor the request
	// names a note type. Empty means "default".
	DefaultNoteType string
}

type Result struct {
	Notes      []db.Note    `json:"notes"`
	Page       int          `json:"page"`
	TotalPages int          `json:"total_pages"`
	Count      int          `json:"count"`
	PageSize   int          `json:"page_size"`
	Filter     query.Filter `json:"filter"`
}

type Service struct {
	store   Store
	profile Profile
	builder query.Builder
	pager   *pagination.Coordinator
	log     zerolog.Logger
	metrics *metrics.ListingMetrics
	opts    Options
}

// New builds a Service. m may be nil.
func New(store Store, profile Profile, builder query.Builder, log zerolog.Logger, m *metrics.ListingMetrics, opts Options) *Service {
	if opts.DefaultNoteType == "" {
		opts.DefaultNoteType = string(db.NoteTypeDefault)
	}
	return &Service{
		store:   store,
		profile: profile,
		builder: builder,
		pager:   pagination.NewCoordinator(profile),
		log:     log.With().Str("component", "listing").Logger(),
		metrics: m,
		opts:    opts,
	}
}

// Filter returns the stored filter with overrides applied.
func (s *Service) Filter(ctx context.Context, overrides query.Filter) (query.Filter, error) {
	base, err := s.profile.Filter(ctx)
	if err != nil {
		return query.Filter{}, err
	}
	f := base.Merge(overrides)
	if f.NoteType == nil {
		f.NoteType = query.String(s.opts.DefaultNoteType)
	}
	return f, nil
}

// Page renders one page. A nil page means the stored current page. A page
// beyond the result set is shown as page 1 and the stored page is left as is.
func (s *Service) Page(ctx context.Context, overrides query.Filter, page *int) (*Result, error) {
	f, err := s.Filter(ctx, overrides)
	if err != nil {
		return nil, err
	}

	requested := 0
	if page != nil {
		requested = *page
	} else if requested, err = s.pager.Current(ctx); err != nil {
		return nil, err
	}

	var res *Result
	err = s.read(ctx, func(r Reader) error {
		res, err = s.render(ctx, r, f, func(total int) (int, error) {
			return pagination.Clamp(requested, total), nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if res.Page != requested {
		if s.metrics != nil {
			s.metrics.Clamped.Inc()
		}
		s.log.Debug().Int("requested", requested).Int("total", res.TotalPages).Msg("page clamped for display")
	}
	return res, nil
}

func (s *Service) Next(ctx context.Context, overrides query.Filter) (*Result, error) {
	return s.navigate(ctx, overrides, func(total int) (int, error) {
		return s.pager.Next(ctx, total)
	})
}

func (s *Service) Previous(ctx context.Context, overrides query.Filter) (*Result, error) {
	return s.navigate(ctx, overrides, func(total int) (int, error) {
		return s.pager.Previous(ctx, total)
	})
}

// Goto jumps to page n; an n outside the result set keeps the current page.
func (s *Service) Goto(ctx context.Context, n int, overrides query.Filter) (*Result, error) {
	return s.navigate(ctx, overrides, func(total int) (int, error) {
		return s.pager.Goto(ctx, n, total)
	})
}

func (s *Service) navigate(ctx context.Context, overrides query.Filter, move func(total int) (int, error)) (*Result, error) {
	f, err := s.Filter(ctx, overrides)
	if err != nil {
		return nil, err
	}
	var res *Result
	err = s.read(ctx, func(r Reader) error {
		res, err = s.render(ctx, r, f, move)
		return err
	})
	return res, err
}

// All returns every note matching f, unpaginated, without consulting the
// stored filter.
func (s *Service) All(ctx context.Context, f query.Filter) ([]db.Note, error) {
	spec, err := s.builder.Build(ctx, f, nil)
	if err != nil {
		return nil, err
	}
	return s.store.Fetch(ctx, spec)
}

func (s *Service) read(ctx context.Context, fn func(r Reader) error) error {
	if !s.opts.ConsistentReads {
		return fn(s.store)
	}
	return s.store.ReadTx(ctx, func(tx *db.Tx) error {
		return fn(tx)
	})
}

// render counts with f, lets pick choose the page from the total, then
// fetches that page. Page size is read once so the total and the offset
// agree.
func (s *Service) render(ctx context.Context, r Reader, f query.Filter, pick func(total int) (int, error)) (*Result, error) {
	start := time.Now()

	countSpec, err := s.builder.Build(ctx, f, nil)
	if err != nil {
		return nil, err
	}
	count, err := r.Count(ctx, countSpec)
	if err != nil {
		return nil, err
	}

	size, err := s.builder.PageSize(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read page size: %w", err)
	}
	total := pagination.TotalPages(count, size)

	page, err := pick(total)
	if err != nil {
		return nil, err
	}

	spec, err := countSpec.Page(page, size)
	if err != nil {
		return nil, err
	}
	s.log.Debug().Object("spec", spec).Int("count", count).Msg("fetching page")

	notes, err := r.Fetch(ctx, spec)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(notes))
	for i, n := range notes {
		ids[i] = n.ID
	}
	counts, err := r.AttachmentCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range notes {
		notes[i].Attachments = counts[notes[i].ID]
	}

	if s.metrics != nil {
		s.metrics.Duration.Observe(time.Since(start).Seconds())
		s.metrics.ResultCount.Set(float64(count))
	}

	return &Result{
		Notes:      notes,
		Page:       page,
		TotalPages: total,
		Count:      count,
		PageSize:   size,
		Filter:     f,
	}, nil
}
