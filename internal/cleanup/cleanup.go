// Package cleanup periodically deletes attachments that were uploaded but
// never attached to a saved note.
package cleanup

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nzaccagnino/notedeck/internal/metrics"
)

const (
	DefaultInterval = 5 * time.Minute
	DefaultGrace    = 5 * time.Minute
	// RetryDelay is used instead of the interval after a failed run.
	RetryDelay = time.Minute
)

type Store interface {
	DeleteOrphanAttachments(ctx context.Context, cutoff time.Time) (int64, error)
}

type Worker struct {
	store    Store
	interval time.Duration
	grace    time.Duration
	retry    time.Duration
	log      zerolog.Logger
	metrics  *metrics.CleanupMetrics
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWorker returns a stopped worker. Zero durations fall back to the
// defaults; m may be nil.
func NewWorker(store Store, interval, grace time.Duration, log zerolog.Logger, m *metrics.CleanupMetrics) *Worker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Worker{
		store:    store,
		interval: interval,
		grace:    grace,
		retry:    RetryDelay,
		log:      log.With().Str("component", "cleanup").Logger(),
		metrics:  m,
		now:      time.Now,
	}
}

// RunOnce deletes orphans older than the grace period.
func (w *Worker) RunOnce(ctx context.Context) (int64, error) {
	cutoff := w.now().Add(-w.grace)
	n, err := w.store.DeleteOrphanAttachments(ctx, cutoff)
	if err != nil {
		if w.metrics != nil {
			w.metrics.Errors.Inc()
		}
		return 0, err
	}
	if w.metrics != nil {
		w.metrics.Deleted.Add(float64(n))
	}
	if n > 0 {
		w.log.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("orphan attachments removed")
	} else {
		w.log.Debug().Time("cutoff", cutoff).Msg("no orphan attachments")
	}
	return n, nil
}

// Start runs the worker in the background until Stop or ctx is done. The
// first run happens one interval after Start.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.loop(ctx, w.done)
}

// Stop cancels the loop and waits for it to exit.
func (w *Worker) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *Worker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		next := w.interval
		if _, err := w.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Dur("retry_in", w.retry).Msg("cleanup failed")
			next = w.retry
		}
		timer.Reset(next)
	}
}
