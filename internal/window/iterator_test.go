package window

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/bft-labs/tracejack/internal/domain"
	"github.com/bft-labs/tracejack/internal/interrupt"
	"github.com/bft-labs/tracejack/internal/plan"
	"github.com/bft-labs/tracejack/internal/ports"
)

type fakeArchive struct {
	traces  []*domain.Trace
	loadErr error
	loads   int
}

func (a *fakeArchive) Stats(context.Context) (ports.ArchiveStats, error) {
	return ports.ArchiveStats{}, nil
}

func (a *fakeArchive) Count(_ context.Context, tmin, tmax float64) (int, error) {
	var n int
	for _, tr := range a.traces {
		if tr.Overlaps(tmin, tmax) {
			n++
		}
	}
	return n, nil
}

func (a *fakeArchive) Keys(_ context.Context, tmin, tmax float64, g domain.Grouping) ([]domain.GroupKey, error) {
	seen := map[domain.GroupKey]bool{}
	var keys []domain.GroupKey
	for _, tr := range a.traces {
		k := domain.KeyOf(g, tr.Codes)
		if tr.Overlaps(tmin, tmax) && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys, nil
}

func (a *fakeArchive) Load(_ context.Context, tmin, tmax float64, key domain.GroupKey) ([]*domain.Trace, error) {
	a.loads++
	if a.loadErr != nil {
		return nil, a.loadErr
	}
	var out []*domain.Trace
	for _, tr := range a.traces {
		if !key.Matches(tr.Codes) {
			continue
		}
		c, err := tr.Chop(tmin, tmax)
		if errors.Is(err, domain.ErrNoData) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (a *fakeArchive) Close() error { return nil }

func ramp(cha string, tmin float64, n int) *domain.Trace {
	s := make([]float64, n)
	for i := range s {
		s[i] = float64(i)
	}
	return &domain.Trace{
		Codes:   domain.Codes{Network: "XX", Station: "STA", Channel: cha},
		Deltat:  1,
		Tmin:    tmin,
		Samples: s,
	}
}

func collect(t *testing.T, it *Iterator) []domain.Batch {
	t.Helper()
	var out []domain.Batch
	for it.Next(context.Background()) {
		out = append(out, it.Batch())
	}
	if err := it.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	return out
}

func TestIterator_CoversRangeExactly(t *testing.T) {
	a := &fakeArchive{traces: []*domain.Trace{ramp("BHZ", 0, 30)}}
	p := plan.Plan{Tmin: 0, Tmax: 30, Increment: 10}

	batches := collect(t, NewIterator(a, p, domain.GroupNone, nil))
	if len(batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(batches))
	}

	var total int
	for i, b := range batches {
		if b.Window.Index != i {
			t.Errorf("batch %d window index = %d", i, b.Window.Index)
		}
		tr := b.Traces[0]
		if tr.Tmin != float64(10*i) || tr.Len() != 10 {
			t.Errorf("batch %d: tmin=%v len=%d", i, tr.Tmin, tr.Len())
		}
		if tr.Wmin != b.Window.Tmin || tr.Wmax != b.Window.Tmax {
			t.Errorf("batch %d: trace window [%v, %v) != %+v", i, tr.Wmin, tr.Wmax, b.Window)
		}
		total += tr.Len()
	}
	if total != 30 {
		t.Errorf("samples over all windows = %d, want 30", total)
	}
}

func TestIterator_Grouping(t *testing.T) {
	a := &fakeArchive{traces: []*domain.Trace{ramp("BHN", 0, 10), ramp("BHZ", 0, 10)}}
	p := plan.Plan{Tmin: 0, Tmax: 10, Increment: 10}

	tests := []struct {
		grouping    domain.Grouping
		wantBatches int
	}{
		{domain.GroupNone, 1},
		{domain.GroupStation, 1},
		{domain.GroupChannel, 2},
	}
	for _, tt := range tests {
		t.Run(tt.grouping.String(), func(t *testing.T) {
			batches := collect(t, NewIterator(a, p, tt.grouping, nil))
			if len(batches) != tt.wantBatches {
				t.Fatalf("got %d batches, want %d", len(batches), tt.wantBatches)
			}
			var n int
			for _, b := range batches {
				for _, tr := range b.Traces {
					if !b.Key.Matches(tr.Codes) {
						t.Errorf("trace %s in batch %s", tr.Codes, b.Key)
					}
				}
				n += b.Size()
			}
			if n != 2 {
				t.Errorf("got %d traces, want 2", n)
			}
		})
	}
}

func TestIterator_SkipsEmptyWindows(t *testing.T) {
	a := &fakeArchive{traces: []*domain.Trace{ramp("BHZ", 0, 10), ramp("BHZ", 40, 10)}}
	p := plan.Plan{Tmin: 0, Tmax: 50, Increment: 10}

	it := NewIterator(a, p, domain.GroupNone, nil)
	batches := collect(t, it)
	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	if batches[1].Window.Index != 4 {
		t.Errorf("second batch window = %d, want 4", batches[1].Window.Index)
	}
	if it.Entered() != 5 {
		t.Errorf("Entered() = %d, want 5", it.Entered())
	}
}

func TestIterator_Padding(t *testing.T) {
	a := &fakeArchive{traces: []*domain.Trace{ramp("BHZ", 0, 100)}}
	p := plan.Plan{Tmin: 20, Tmax: 40, Increment: 10, Padding: 5}

	batches := collect(t, NewIterator(a, p, domain.GroupNone, nil))
	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	tr := batches[0].Traces[0]
	if tr.Tmin != 15 || tr.Len() != 20 {
		t.Errorf("padded trace tmin=%v len=%d, want 15 and 20", tr.Tmin, tr.Len())
	}
	if tr.Wmin != 20 || tr.Wmax != 30 {
		t.Errorf("window bounds [%v, %v), want [20, 30)", tr.Wmin, tr.Wmax)
	}
}

func TestIterator_TokenStops(t *testing.T) {
	a := &fakeArchive{traces: []*domain.Trace{ramp("BHZ", 0, 50)}}
	p := plan.Plan{Tmin: 0, Tmax: 50, Increment: 10}
	token := &interrupt.Token{}

	it := NewIterator(a, p, domain.GroupNone, token)
	var n int
	for it.Next(context.Background()) {
		n++
		if n == 2 {
			token.Stop()
		}
	}
	if n != 2 {
		t.Errorf("got %d batches, want 2", n)
	}
	if !it.Stopped() || it.Err() != nil {
		t.Errorf("Stopped() = %v, Err() = %v", it.Stopped(), it.Err())
	}
	if it.Next(context.Background()) {
		t.Error("Next() after stop returned true")
	}
}

func TestIterator_TokenAfterLastBatch(t *testing.T) {
	a := &fakeArchive{traces: []*domain.Trace{ramp("BHZ", 0, 50)}}
	p := plan.Plan{Tmin: 0, Tmax: 50, Increment: 10}
	token := &interrupt.Token{}

	it := NewIterator(a, p, domain.GroupNone, token)
	var n int
	for it.Next(context.Background()) {
		n++
		if n == 5 {
			token.Stop()
		}
	}
	if n != 5 {
		t.Errorf("got %d batches, want 5", n)
	}
	if it.Stopped() || it.Err() != nil {
		t.Errorf("Stopped() = %v, Err() = %v, want a completed run", it.Stopped(), it.Err())
	}
}

func TestIterator_LoadError(t *testing.T) {
	boom := errors.New("boom")
	a := &fakeArchive{traces: []*domain.Trace{ramp("BHZ", 0, 10)}, loadErr: boom}
	p := plan.Plan{Tmin: 0, Tmax: 10, Increment: 10}

	it := NewIterator(a, p, domain.GroupNone, nil)
	if it.Next(context.Background()) {
		t.Fatal("Next() = true, want false")
	}
	if !errors.Is(it.Err(), boom) {
		t.Errorf("Err() = %v, want wrapped boom", it.Err())
	}
	if it.Stopped() {
		t.Error("Stopped() = true after error")
	}
}
