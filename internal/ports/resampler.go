package ports

import "github.com/bft-labs/tracejack/internal/domain"

// Resampler downsamples traces.
type Resampler interface {
	// Downsample returns tr resampled to the target sample interval.
	// Returns domain.ErrTooShort if tr has too few samples for the filter and
	// domain.ErrNoData if no sample remains after aligning to the target grid.
	Downsample(tr *domain.Trace, deltat float64) (*domain.Trace, error)

	// Padding returns the margin, in seconds, needed on both sides of a time
	// range so that resampling to deltat leaves the range free of filter edge
	// effects and without lost samples, whatever the source interval.
	Padding(deltat float64) float64
}
