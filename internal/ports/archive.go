package ports

import (
	"context"

	"github.com/bft-labs/tracejack/internal/domain"
)

// ArchiveStats summarizes the selected part of an archive.
type ArchiveStats struct {
	// Earliest is the time of the first sample of the selection.
	Earliest float64

	// End is the end of the selection's data extent (exclusive).
	End float64

	// MinDeltat is the smallest sample interval in the selection.
	MinDeltat float64

	// Traces is the number of indexed trace segments in the selection.
	Traces int
}

// Archive provides windowed access to an indexed waveform archive.
// Implementations never hold more than the traces of one Load call in memory
// on behalf of the caller.
type Archive interface {
	// Stats returns the extent and sampling statistics of the selection.
	Stats(ctx context.Context) (ArchiveStats, error)

	// Count returns the number of trace segments overlapping [tmin, tmax).
	Count(ctx context.Context, tmin, tmax float64) (int, error)

	// Keys returns the distinct group keys of the traces overlapping
	// [tmin, tmax), in ascending code order.
	Keys(ctx context.Context, tmin, tmax float64, grouping domain.Grouping) ([]domain.GroupKey, error)

	// Load returns the traces of group key chopped to [tmin, tmax).
	Load(ctx context.Context, tmin, tmax float64, key domain.GroupKey) ([]*domain.Trace, error)

	// Close releases all resources held by the archive.
	Close() error
}
