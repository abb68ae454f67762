package domain

import (
	"fmt"
	"math"
)

// chopEps absorbs floating point noise when deciding which sample falls on a
// boundary, in units of samples.
const chopEps = 1e-6

// Codes is the network/station/location/channel identifier of a trace.
type Codes struct {
	Network  string
	Station  string
	Location string
	Channel  string
}

// String joins the codes with dots, e.g. "GR.BFO..BHZ".
func (c Codes) String() string {
	return c.Network + "." + c.Station + "." + c.Location + "." + c.Channel
}

// Trace is a contiguous, uniformly sampled time series segment.
type Trace struct {
	Codes Codes

	// Deltat is the sample interval in seconds.
	Deltat float64

	// Tmin is the time of the first sample.
	Tmin float64

	// Samples holds the data; sample i is at Tmin + i*Deltat.
	Samples []float64

	// Wmin and Wmax are the bounds of the window this trace is reported for.
	Wmin float64
	Wmax float64
}

// Len returns the number of samples.
func (t *Trace) Len() int {
	return len(t.Samples)
}

// Tmax returns the time of the last sample.
func (t *Trace) Tmax() float64 {
	if len(t.Samples) == 0 {
		return t.Tmin
	}
	return t.Tmin + float64(len(t.Samples)-1)*t.Deltat
}

// End returns the end of the data extent, one interval after the last sample.
func (t *Trace) End() float64 {
	return t.Tmin + float64(len(t.Samples))*t.Deltat
}

// Overlaps reports whether any sample of the trace falls into [tmin, tmax).
func (t *Trace) Overlaps(tmin, tmax float64) bool {
	return len(t.Samples) > 0 && t.Tmin < tmax && t.Tmax() >= tmin
}

// Index returns the index of the first sample at or after time tm.
// The result is not clamped to the trace.
func (t *Trace) Index(tm float64) int {
	return int(math.Ceil((tm-t.Tmin)/t.Deltat - chopEps))
}

// Chop returns a copy holding the samples with tmin <= t < tmax.
// Adjacent chops [a, b) and [b, c) never share a sample.
// Returns ErrNoData if no sample falls into the range.
func (t *Trace) Chop(tmin, tmax float64) (*Trace, error) {
	ibeg := max(0, t.Index(tmin))
	iend := min(len(t.Samples), t.Index(tmax))
	if iend <= ibeg {
		return nil, fmt.Errorf("chop %s [%.6f, %.6f): %w", t.Codes, tmin, tmax, ErrNoData)
	}
	out := &Trace{
		Codes:   t.Codes,
		Deltat:  t.Deltat,
		Tmin:    t.Tmin + float64(ibeg)*t.Deltat,
		Samples: append([]float64(nil), t.Samples[ibeg:iend]...),
		Wmin:    t.Wmin,
		Wmax:    t.Wmax,
	}
	return out, nil
}
