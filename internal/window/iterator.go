// Package window walks an archive window by window and group by group.
package window

import (
	"context"
	"fmt"

	"github.com/bft-labs/tracejack/internal/domain"
	"github.com/bft-labs/tracejack/internal/interrupt"
	"github.com/bft-labs/tracejack/internal/plan"
	"github.com/bft-labs/tracejack/internal/ports"
)

// Iterator yields the non-empty batches of a plan in window order.
//
// It is a pull iterator in the style of bufio.Scanner:
//
//	it := window.NewIterator(archive, p, domain.GroupNone, token)
//	for it.Next(ctx) {
//		b := it.Batch()
//		...
//	}
//	if err := it.Err(); err != nil { ... }
//
// An Iterator is single use and not safe for concurrent use. Only the traces
// of the current batch are held.
type Iterator struct {
	archive  ports.Archive
	plan     plan.Plan
	grouping domain.Grouping
	token    *interrupt.Token

	nwin    int
	next    int
	cur     domain.Window
	keys    []domain.GroupKey
	nextKey int

	batch   domain.Batch
	err     error
	stopped bool
	done    bool
}

// NewIterator returns an iterator over the windows of p. A nil token never
// stops.
func NewIterator(archive ports.Archive, p plan.Plan, grouping domain.Grouping, token *interrupt.Token) *Iterator {
	return &Iterator{
		archive:  archive,
		plan:     p,
		grouping: grouping,
		token:    token,
		nwin:     p.Windows(),
	}
}

// Next advances to the next non-empty batch. It returns false when the plan
// is exhausted, the token was stopped or an error occurred.
func (it *Iterator) Next(ctx context.Context) bool {
	if it.done {
		return false
	}
	it.batch = domain.Batch{}

	for {
		if it.next >= it.nwin && it.nextKey >= len(it.keys) {
			it.done = true
			return false
		}
		if it.token.Stopped() {
			it.stopped = true
			it.done = true
			return false
		}
		if err := ctx.Err(); err != nil {
			return it.fail(err)
		}

		if it.nextKey >= len(it.keys) {
			if err := it.enter(ctx, it.plan.Window(it.next)); err != nil {
				return it.fail(err)
			}
			it.next++
			continue
		}

		key := it.keys[it.nextKey]
		it.nextKey++

		tmin, tmax := it.padded()
		traces, err := it.archive.Load(ctx, tmin, tmax, key)
		if err != nil {
			return it.fail(fmt.Errorf("load window %d group %s: %w", it.cur.Index, key, err))
		}
		b := domain.Batch{Window: it.cur, Key: key, Traces: traces}
		if b.Empty() {
			continue
		}
		for _, tr := range traces {
			tr.Wmin = it.cur.Tmin
			tr.Wmax = it.cur.Tmax
		}
		it.batch = b
		return true
	}
}

func (it *Iterator) enter(ctx context.Context, w domain.Window) error {
	it.cur = w
	tmin, tmax := it.padded()
	keys, err := it.archive.Keys(ctx, tmin, tmax, it.grouping)
	if err != nil {
		return fmt.Errorf("list groups of window %d: %w", w.Index, err)
	}
	it.keys = keys
	it.nextKey = 0
	return nil
}

func (it *Iterator) padded() (float64, float64) {
	return it.cur.Tmin - it.plan.Padding, it.cur.Tmax + it.plan.Padding
}

func (it *Iterator) fail(err error) bool {
	it.err = err
	it.done = true
	return false
}

// Batch returns the current batch. Valid until the next call to Next.
func (it *Iterator) Batch() domain.Batch {
	return it.batch
}

// Err returns the error that ended the iteration, if any.
func (it *Iterator) Err() error {
	return it.err
}

// Stopped reports whether the iteration was ended by the interrupt token.
func (it *Iterator) Stopped() bool {
	return it.stopped
}

// Entered returns the number of windows visited so far, including windows
// that produced no batch.
func (it *Iterator) Entered() int {
	return it.next
}
