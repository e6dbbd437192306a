// Package pagination computes page counts and owns the persisted current
// page.
//
// Only explicit navigation (Next, Previous, Goto) writes current_page.
// Resolve corrects an out-of-range page for display and leaves the stored
// value alone, so a filter that briefly shrinks the result set does not
// lose the user's position.
package pagination

import (
	"context"
	"fmt"
)

// TotalPages is ceil(count/pageSize), and never less than 1: an empty
// result is still "page 1 of 1".
func TotalPages(count, pageSize int) int {
	if pageSize < 1 || count <= 0 {
		return 1
	}
	return (count + pageSize - 1) / pageSize
}

// Clamp returns requested when it lies in [1, total], otherwise 1.
// Overshooting resets to the first page, not the last one.
func Clamp(requested, total int) int {
	if total < 1 {
		total = 1
	}
	if requested < 1 || requested > total {
		return 1
	}
	return requested
}

// PageStore is the persisted current page.
type PageStore interface {
	CurrentPage(ctx context.Context) (int, error)
	SetCurrentPage(ctx context.Context, page int) error
}

type Coordinator struct {
	store PageStore
}

func NewCoordinator(store PageStore) *Coordinator {
	return &Coordinator{store: store}
}

// Current returns the stored page without any clamping.
func (c *Coordinator) Current(ctx context.Context) (int, error) {
	return c.store.CurrentPage(ctx)
}

// Resolve returns the page to display for a result set of total pages.
// It never writes.
func (c *Coordinator) Resolve(ctx context.Context, total int) (int, error) {
	current, err := c.store.CurrentPage(ctx)
	if err != nil {
		return 0, err
	}
	return Clamp(current, total), nil
}

// Next moves one page forward. At the last page it is a no-op.
func (c *Coordinator) Next(ctx context.Context, total int) (int, error) {
	current, err := c.Resolve(ctx, total)
	if err != nil {
		return 0, err
	}
	return c.move(ctx, current, current+1, total)
}

// Previous moves one page back. At the first page it is a no-op.
func (c *Coordinator) Previous(ctx context.Context, total int) (int, error) {
	current, err := c.Resolve(ctx, total)
	if err != nil {
		return 0, err
	}
	return c.move(ctx, current, current-1, total)
}

// Goto jumps to page n. An n outside [1, total] leaves the page unchanged.
func (c *Coordinator) Goto(ctx context.Context, n, total int) (int, error) {
	current, err := c.Resolve(ctx, total)
	if err != nil {
		return 0, err
	}
	return c.move(ctx, current, n, total)
}

func (c *Coordinator) move(ctx context.Context, current, target, total int) (int, error) {
	if total < 1 {
		total = 1
	}
	if target < 1 || target > total {
		return current, nil
	}
	if err := c.store.SetCurrentPage(ctx, target); err != nil {
		return current, fmt.Errorf("failed to persist current page: %w", err)
	}
	return target, nil
}
