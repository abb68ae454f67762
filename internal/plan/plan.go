// Package plan computes the window length and alignment of a run.
package plan

import (
	"fmt"
	"math"

	"github.com/bft-labs/tracejack/internal/domain"
	"github.com/bft-labs/tracejack/internal/ports"
)

// niceBoundaries are the window lengths, in seconds, that a guessed
// increment is rounded down to.
var niceBoundaries = []float64{1, 10, 60, 600, 3600, 10800, 43200, 86400, 172800}

// guessFactor is the number of samples of the finest channel per default window.
const guessFactor = 500000

// NiceFloor rounds x down to the greatest nice boundary not above it.
// Values below the smallest or above the greatest boundary are returned
// unchanged.
func NiceFloor(x float64) float64 {
	if x < niceBoundaries[0] || x > niceBoundaries[len(niceBoundaries)-1] {
		return x
	}
	best := niceBoundaries[0]
	for _, b := range niceBoundaries {
		if b <= x {
			best = b
		}
	}
	return best
}

// GuessIncrement picks a default window length from the archive's smallest
// sample interval.
func GuessIncrement(minDeltat float64) float64 {
	return NiceFloor(guessFactor * minDeltat)
}

// Snap floors t to the nearest lower multiple of inc.
func Snap(t, inc float64) float64 {
	return math.Floor(t/inc) * inc
}

// Request holds the user's choices; nil pointers mean "not given".
type Request struct {
	Tmin      *float64
	Tmax      *float64
	Increment *float64
	Snap      bool

	// TargetDeltat is the downsampling target interval, 0 for no resampling.
	TargetDeltat float64

	// Padding is the margin loaded on both sides of a window so that the
	// resampler's edge effects stay outside it. Ignored without TargetDeltat.
	Padding float64
}

// Plan is the resolved iteration plan of a run.
type Plan struct {
	Tmin      float64
	Tmax      float64
	Increment float64
	Padding   float64

	// Guessed is true when the increment was derived from the archive.
	Guessed bool
}

// Windows returns the number of windows covering [Tmin, Tmax).
func (p Plan) Windows() int {
	if p.Tmax <= p.Tmin {
		return 0
	}
	n := int(math.Ceil((p.Tmax - p.Tmin) / p.Increment))
	// guard against a last window made of rounding noise
	if n > 1 && p.Tmin+float64(n-1)*p.Increment >= p.Tmax {
		n--
	}
	return n
}

// Window returns the i-th window. The last one is clipped to Tmax.
func (p Plan) Window(i int) domain.Window {
	wmin := p.Tmin + float64(i)*p.Increment
	wmax := math.Min(p.Tmin+float64(i+1)*p.Increment, p.Tmax)
	return domain.Window{Index: i, Tmin: wmin, Tmax: wmax}
}

// Resolve combines the request with archive statistics.
func Resolve(req Request, stats ports.ArchiveStats) (Plan, error) {
	var p Plan

	switch {
	case req.Increment != nil:
		p.Increment = *req.Increment
	case stats.MinDeltat > 0:
		p.Increment = GuessIncrement(stats.MinDeltat)
		p.Guessed = true
	default:
		return Plan{}, fmt.Errorf("cannot guess increment without sample interval: %w", domain.ErrInvalidConfig)
	}
	if !(p.Increment > 0) {
		return Plan{}, fmt.Errorf("increment must be positive: %w", domain.ErrInvalidDuration)
	}

	p.Tmin = stats.Earliest
	if req.Tmin != nil {
		p.Tmin = *req.Tmin
	}
	p.Tmax = stats.End
	if req.Tmax != nil {
		p.Tmax = *req.Tmax
	}
	if req.Snap {
		p.Tmin = Snap(p.Tmin, p.Increment)
	}
	if p.Tmax <= p.Tmin {
		return Plan{}, fmt.Errorf("empty time range [%f, %f): %w", p.Tmin, p.Tmax, domain.ErrInvalidConfig)
	}

	if req.TargetDeltat > 0 {
		if req.Padding < 0 {
			return Plan{}, fmt.Errorf("padding must not be negative: %w", domain.ErrInvalidConfig)
		}
		p.Padding = req.Padding
	}
	return p, nil
}
