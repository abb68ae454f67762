// Package archive indexes waveform files and serves windowed reads.
//
// Opening an archive decodes every input file once and records its trace
// segments in a sqlite index. The index may be kept in a cache directory, in
// which case files whose size and modification time are unchanged are not
// decoded again on the next run. Reads go through a bounded LRU cache of
// decoded files.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/multierr"

	"github.com/bft-labs/tracejack/internal/domain"
	"github.com/bft-labs/tracejack/internal/format"
	"github.com/bft-labs/tracejack/internal/ports"
	"github.com/bft-labs/tracejack/pkg/log"
)

// DefaultFileCache is the number of decoded files kept in memory.
const DefaultFileCache = 16

// Options configures Open.
type Options struct {
	// Paths are files or directories, walked recursively.
	Paths []string

	// Format forces the input format. Nil detects it from file extensions.
	Format *format.Format

	// Pattern is an NSLC glob such as "*.HAM3.*.BH?". Empty selects all.
	Pattern string

	// CacheDir keeps the index on disk between runs. Empty indexes in memory.
	CacheDir string

	// FileCache is the number of decoded files kept in memory.
	FileCache int

	// Watch enables warnings for input files modified during the run.
	Watch bool

	Logger ports.Logger
}

// Archive is an indexed, filtered set of waveform files.
type Archive struct {
	index  *index
	cache  *lru.Cache[string, []*domain.Trace]
	guard  *guard
	logger ports.Logger

	files   int
	decoded int
}

var _ ports.Archive = (*Archive)(nil)

// Open indexes the input files and applies the NSLC filter.
// Returns domain.ErrEmptySelection if no trace is selected.
func Open(ctx context.Context, opts Options) (*Archive, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	matcher, err := NewMatcher(opts.Pattern)
	if err != nil {
		return nil, err
	}
	files, err := collect(opts.Paths, opts.Format, logger)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no waveform files found: %w", domain.ErrEmptySelection)
	}

	size := opts.FileCache
	if size <= 0 {
		size = DefaultFileCache
	}
	cache, err := lru.New[string, []*domain.Trace](size)
	if err != nil {
		return nil, fmt.Errorf("file cache: %w", err)
	}
	ix, err := openIndex(ctx, opts.CacheDir)
	if err != nil {
		return nil, err
	}
	a := &Archive{index: ix, cache: cache, logger: logger, files: len(files)}

	if err := a.build(ctx, files, matcher); err != nil {
		return nil, multierr.Append(err, a.Close())
	}

	if opts.Watch {
		g, err := newGuard(files, logger)
		if err != nil {
			logger.Warn("input file watching disabled", ports.Err(err))
		} else {
			a.guard = g
		}
	}
	return a, nil
}

func (a *Archive) build(ctx context.Context, files []inputFile, matcher *Matcher) error {
	var (
		reused int
		picked []traceRow
	)
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		id, err := a.index.lookup(ctx, f)
		if err != nil {
			return err
		}
		if id != 0 {
			reused++
		} else {
			traces, err := a.decode(f.path, f.format)
			if err != nil {
				return err
			}
			if id, err = a.index.store(ctx, f, traces); err != nil {
				return err
			}
		}

		rows, err := a.index.rowsOf(ctx, id)
		if err != nil {
			return fmt.Errorf("index %s: %w", f.path, err)
		}
		for _, r := range rows {
			if matcher.Match(r.codes) {
				picked = append(picked, r)
			}
		}
	}
	a.logger.Debug("archive indexed",
		ports.Int("files", len(files)),
		ports.Int("reused", reused),
		ports.Int("selected_traces", len(picked)))

	if len(picked) == 0 {
		return fmt.Errorf("no trace matches the selection: %w", domain.ErrEmptySelection)
	}
	if err := a.index.selectRows(ctx, picked); err != nil {
		return fmt.Errorf("select traces: %w", err)
	}
	return nil
}

// decode reads a file and remembers the result in the file cache.
func (a *Archive) decode(path string, f format.Format) ([]*domain.Trace, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()

	traces, err := f.Codec(nil).Decode(fh)
	if err != nil {
		return nil, fmt.Errorf("decode %s as %s: %w", path, f, err)
	}
	a.decoded++
	a.cache.Add(path, traces)
	return traces, nil
}

func (a *Archive) traces(path, name string) ([]*domain.Trace, error) {
	if traces, ok := a.cache.Get(path); ok {
		return traces, nil
	}
	f, err := format.Parse(name)
	if err != nil {
		return nil, err
	}
	return a.decode(path, f)
}

// Stats returns the extent of the selection.
func (a *Archive) Stats(ctx context.Context) (ports.ArchiveStats, error) {
	earliest, end, dt, n, err := a.index.stats(ctx)
	if err != nil {
		return ports.ArchiveStats{}, err
	}
	return ports.ArchiveStats{Earliest: earliest, End: end, MinDeltat: dt, Traces: n}, nil
}

// Count returns the number of selected segments overlapping [tmin, tmax).
func (a *Archive) Count(ctx context.Context, tmin, tmax float64) (int, error) {
	return a.index.count(ctx, tmin, tmax)
}

// Keys returns the group keys present in [tmin, tmax).
func (a *Archive) Keys(ctx context.Context, tmin, tmax float64, grouping domain.Grouping) ([]domain.GroupKey, error) {
	codes, err := a.index.codes(ctx, tmin, tmax)
	if err != nil {
		return nil, err
	}
	seen := map[domain.GroupKey]bool{}
	var keys []domain.GroupKey
	for _, c := range codes {
		k := domain.KeyOf(grouping, c)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Load returns the segments of key chopped to [tmin, tmax). Segments with
// no sample inside the range are left out.
func (a *Archive) Load(ctx context.Context, tmin, tmax float64, key domain.GroupKey) ([]*domain.Trace, error) {
	segs, err := a.index.segments(ctx, tmin, tmax, key)
	if err != nil {
		return nil, err
	}
	var out []*domain.Trace
	for _, s := range segs {
		traces, err := a.traces(s.path, s.format)
		if err != nil {
			return nil, err
		}
		if s.seq >= len(traces) {
			return nil, fmt.Errorf("%s changed since indexing: trace %d missing", s.path, s.seq)
		}
		tr, err := traces[s.seq].Chop(tmin, tmax)
		if errors.Is(err, domain.ErrNoData) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, nil
}

// Files returns the number of indexed input files.
func (a *Archive) Files() int {
	return a.files
}

// Decoded returns the number of file decodes performed so far.
func (a *Archive) Decoded() int {
	return a.decoded
}

// Changed returns the input files modified since Open, sorted. Always empty
// when watching is disabled.
func (a *Archive) Changed() []string {
	if a.guard == nil {
		return nil
	}
	out := a.guard.Changed()
	sort.Strings(out)
	return out
}

// Close stops the watcher and closes the index.
func (a *Archive) Close() error {
	var err error
	if a.guard != nil {
		err = multierr.Append(err, a.guard.close())
		a.guard = nil
	}
	a.cache.Purge()
	return multierr.Append(err, a.index.close())
}
