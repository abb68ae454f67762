package domain

import "fmt"

// Window is a half-open time interval [Tmin, Tmax).
type Window struct {
	// Index is the position of the window in the run, starting at 0.
	Index int
	Tmin  float64
	Tmax  float64
}

// Length returns Tmax - Tmin.
func (w Window) Length() float64 {
	return w.Tmax - w.Tmin
}

// Grouping selects how the traces of a window are partitioned into batches.
type Grouping int

const (
	// GroupNone yields one batch per window.
	GroupNone Grouping = iota
	// GroupChannel yields one batch per full NSLC identifier.
	GroupChannel
	// GroupStation yields one batch per network+station.
	GroupStation
)

// String returns the flag spelling of the grouping.
func (g Grouping) String() string {
	switch g {
	case GroupNone:
		return "none"
	case GroupChannel:
		return "channel"
	case GroupStation:
		return "station"
	default:
		return "unknown"
	}
}

// ParseGrouping returns the grouping with the given flag spelling.
func ParseGrouping(s string) (Grouping, error) {
	for _, g := range []Grouping{GroupNone, GroupChannel, GroupStation} {
		if g.String() == s {
			return g, nil
		}
	}
	return 0, fmt.Errorf("grouping %q (want none, channel or station): %w", s, ErrInvalidConfig)
}

// GroupKey identifies one group within a window. Fields not covered by the
// grouping are empty.
type GroupKey struct {
	Grouping Grouping
	Codes    Codes
}

// KeyOf returns the group key of codes under grouping.
func KeyOf(g Grouping, c Codes) GroupKey {
	switch g {
	case GroupChannel:
		return GroupKey{Grouping: g, Codes: c}
	case GroupStation:
		return GroupKey{Grouping: g, Codes: Codes{Network: c.Network, Station: c.Station}}
	default:
		return GroupKey{Grouping: GroupNone}
	}
}

// Matches reports whether codes belong to the group.
func (k GroupKey) Matches(c Codes) bool {
	return KeyOf(k.Grouping, c) == k
}

// String returns a printable form of the key.
func (k GroupKey) String() string {
	switch k.Grouping {
	case GroupChannel:
		return k.Codes.String()
	case GroupStation:
		return k.Codes.Network + "." + k.Codes.Station
	default:
		return "*"
	}
}

// Batch is the set of traces of one window and one group.
type Batch struct {
	Window Window
	Key    GroupKey
	Traces []*Trace
}

// Size returns the number of traces in the batch.
func (b *Batch) Size() int {
	return len(b.Traces)
}

// Empty returns true if the batch has no traces.
func (b *Batch) Empty() bool {
	return len(b.Traces) == 0
}

// Samples returns the total number of samples in the batch.
func (b *Batch) Samples() int {
	var n int
	for _, tr := range b.Traces {
		n += tr.Len()
	}
	return n
}
