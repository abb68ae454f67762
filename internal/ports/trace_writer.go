package ports

import (
	"context"

	"github.com/bft-labs/tracejack/internal/domain"
)

// TraceWriter serializes traces to files.
type TraceWriter interface {
	// Write stores traces in a single file at path.
	// The directory of path must exist; it is not created.
	Write(ctx context.Context, path string, traces []*domain.Trace) error
}
