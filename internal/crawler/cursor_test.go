package crawler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	id int64
}

// fakePager serves ascending IDs from a fixed set with a page size that
// changes on every call.
func fakePager(ids []int64, sizes []int) Pager[item] {
	call := 0
	return func(ctx context.Context, since int64) ([]item, error) {
		size := sizes[call%len(sizes)]
		call++

		var page []item
		for _, id := range ids {
			if id > since && len(page) < size {
				page = append(page, item{id: id})
			}
		}
		return page, nil
	}
}

func collect(t *testing.T, cursor *Cursor[item]) []int64 {
	t.Helper()
	var got []int64
	for {
		it, ok, err := cursor.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			return got
		}
		got = append(got, it.id)
	}
}

func TestCursorRangeExactUnderChangingPageSizes(t *testing.T) {
	ids := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	cursor := NewCursor(fakePager(ids, []int{3, 1, 4, 2}), func(i item) int64 { return i.id }, 2, 9)

	got := collect(t, cursor)

	assert.Equal(t, []int64{3, 4, 5, 6, 7, 8}, got)
}

func TestCursorOpenEnded(t *testing.T) {
	ids := []int64{5, 8, 13}
	cursor := NewCursor(fakePager(ids, []int{2}), func(i item) int64 { return i.id }, 0, 0)

	got := collect(t, cursor)

	assert.Equal(t, []int64{5, 8, 13}, got)
	assert.Equal(t, int64(13), cursor.LastID())
}

func TestCursorEmptyRange(t *testing.T) {
	cursor := NewCursor(fakePager(nil, []int{10}), func(i item) int64 { return i.id }, 0, 0)

	_, ok, err := cursor.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCursorDropsOverlappingIDs(t *testing.T) {
	// A pager that re-serves the boundary ID must not produce duplicates.
	call := 0
	pager := func(ctx context.Context, since int64) ([]item, error) {
		call++
		switch call {
		case 1:
			return []item{{1}, {2}}, nil
		case 2:
			return []item{{2}, {3}}, nil
		default:
			return nil, nil
		}
	}
	cursor := NewCursor(pager, func(i item) int64 { return i.id }, 0, 0)

	got := collect(t, cursor)

	assert.Equal(t, []int64{1, 2, 3}, got)
}

func TestCursorPropagatesPagerError(t *testing.T) {
	wantErr := errors.New("page fetch failed")
	pager := func(ctx context.Context, since int64) ([]item, error) {
		return nil, wantErr
	}
	cursor := NewCursor(pager, func(i item) int64 { return i.id }, 0, 0)

	_, _, err := cursor.Next(context.Background())
	assert.ErrorIs(t, err, wantErr)
}
