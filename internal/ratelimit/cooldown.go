package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Cooldown lets one action through and then refuses until the cooldown has
// passed. The first call is always allowed.
type Cooldown struct {
	mu       sync.Mutex
	last     time.Time
	interval func(ctx context.Context) (time.Duration, error)
	now      func() time.Time
}

// NewCooldown reads the interval on every call so a changed setting applies
// immediately.
func NewCooldown(interval func(ctx context.Context) (time.Duration, error)) *Cooldown {
	return &Cooldown{interval: interval, now: time.Now}
}

// Fixed returns an interval source that never changes.
func Fixed(d time.Duration) func(context.Context) (time.Duration, error) {
	return func(context.Context) (time.Duration, error) { return d, nil }
}

// Allow reports whether the action may run now and, when it may not, how
// long until it can. An allowed call starts a new cooldown.
func (c *Cooldown) Allow(ctx context.Context) (bool, time.Duration, error) {
	interval, err := c.interval(ctx)
	if err != nil {
		return false, 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	next := c.last.Add(interval)
	if c.last.IsZero() || !now.Before(next) {
		c.last = now
		return true, 0, nil
	}
	return false, next.Sub(now), nil
}

// Wait blocks until Allow succeeds or ctx is done.
func (c *Cooldown) Wait(ctx context.Context) error {
	for {
		ok, retry, err := c.Allow(ctx)
		if err != nil || ok {
			return err
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
