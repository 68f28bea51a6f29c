package crawler

import (
	"context"
)

// Pager fetches one page of items with IDs strictly above since, ascending.
// Page size is the pager's business and may change between calls.
type Pager[T any] func(ctx context.Context, since int64) ([]T, error)

// Cursor is a lazy, restartable sequence over a paged ID-ordered source.
// The last ID seen on a page becomes the exclusive lower bound of the next
// page request, so no ID is ever skipped or produced twice across page
// boundaries. An empty range yields an empty sequence, not an error.
type Cursor[T any] struct {
	page    Pager[T]
	idOf    func(T) int64
	lastID  int64
	until   int64
	buf     []T
	idx     int
	done    bool
}

// NewCursor starts a sequence strictly after since. until = 0 leaves the
// range open-ended, otherwise IDs at or above until end the sequence.
func NewCursor[T any](page Pager[T], idOf func(T) int64, since, until int64) *Cursor[T] {
	return &Cursor[T]{
		page:   page,
		idOf:   idOf,
		lastID: since,
		until:  until,
	}
}

// Next yields the next item. The second return is false when the sequence
// is exhausted.
func (c *Cursor[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	for {
		if c.done {
			return zero, false, nil
		}

		if c.idx < len(c.buf) {
			item := c.buf[c.idx]
			c.idx++

			id := c.idOf(item)
			if id <= c.lastID {
				// Upstream overlap, already produced
				continue
			}
			c.lastID = id

			if c.until > 0 && id >= c.until {
				c.done = true
				return zero, false, nil
			}
			return item, true, nil
		}

		items, err := c.page(ctx, c.lastID)
		if err != nil {
			return zero, false, err
		}
		if len(items) == 0 {
			c.done = true
			return zero, false, nil
		}
		c.buf = items
		c.idx = 0
	}
}

// LastID is the exclusive lower bound the next page request would use.
func (c *Cursor[T]) LastID() int64 {
	return c.lastID
}
