// Package dsp downsamples traces by integer factors.
package dsp

import (
	"fmt"
	"math"
	"sync"

	"github.com/bft-labs/tracejack/internal/domain"
)

// DefaultOrder is the FIR filter order used per decimation stage.
const DefaultOrder = 30

// ratioTolerance is the relative deviation from an integer ratio accepted
// between target and source sample interval.
const ratioTolerance = 1e-4

// snapEps absorbs floating point noise when aligning to the target grid, in
// units of the target interval.
const snapEps = 1e-6

// Decimator downsamples traces with a chain of FIR low-pass stages.
type Decimator struct {
	order int

	mu      sync.Mutex
	filters map[int][]float64
}

// NewDecimator creates a decimator whose stages use FIR filters of the given
// order (taps - 1). Non-positive order selects DefaultOrder.
func NewDecimator(order int) *Decimator {
	if order <= 0 {
		order = DefaultOrder
	}
	if order%2 != 0 {
		order++
	}
	return &Decimator{order: order, filters: map[int][]float64{}}
}

// MinSamples is the minimum number of input samples of a decimation stage.
func (d *Decimator) MinSamples() int {
	return d.order + 1
}

// Padding returns the margin needed around a range resampled to deltat.
//
// Each stage of factor q >= 2 with input interval dt delays the clean
// output by order/2 samples at both ends, order/2*dt seconds. The stage
// input intervals of a chain ending at deltat sum to less than deltat, so
// the chain's delay stays below order/2*deltat. One more deltat covers the
// alignment to the target grid and one the rounding of each stage's output
// grid.
func (d *Decimator) Padding(deltat float64) float64 {
	return float64(d.order/2+2) * deltat
}

func (d *Decimator) filter(q int) []float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.filters[q]
	if !ok {
		h = lowpass(d.order+1, 1/float64(q))
		d.filters[q] = h
	}
	return h
}

// Downsample returns tr resampled to deltat. The first output sample is
// aligned to a multiple of deltat. The input trace is not modified.
func (d *Decimator) Downsample(tr *domain.Trace, deltat float64) (*domain.Trace, error) {
	if tr.Len() == 0 {
		return nil, fmt.Errorf("downsample %s: %w", tr.Codes, domain.ErrNoData)
	}

	ratio := deltat / tr.Deltat
	rratio := math.Round(ratio)
	if rratio < 1 || math.Abs(rratio-ratio)/ratio > ratioTolerance {
		return nil, fmt.Errorf("downsample %s from %g s to %g s (ratio %g): %w",
			tr.Codes, tr.Deltat, deltat, ratio, domain.ErrUnavailableDecimation)
	}

	seq, err := Decitab(int(rratio))
	if err != nil {
		return nil, fmt.Errorf("downsample %s: %w", tr.Codes, err)
	}

	tsnap := math.Ceil(tr.Tmin/deltat-snapEps) * deltat
	out, err := tr.Chop(tsnap, tr.End())
	if err != nil {
		return nil, fmt.Errorf("downsample %s: %w", tr.Codes, err)
	}

	data := out.Samples
	for _, q := range seq {
		if len(data) < d.MinSamples() {
			return nil, fmt.Errorf("downsample %s: %d samples, stage needs %d: %w",
				tr.Codes, len(data), d.MinSamples(), domain.ErrTooShort)
		}
		data = decimate(data, d.filter(q), q)
	}

	out.Samples = data
	out.Deltat = deltat
	return out, nil
}
