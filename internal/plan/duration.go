package plan

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bft-labs/tracejack/internal/domain"
)

// Unit is a duration unit accepted in increment strings.
type Unit int

const (
	Second Unit = iota
	Minute
	Hour
	Day
)

// unitTable maps suffixes to units and units to seconds.
var unitTable = []struct {
	suffix  byte
	unit    Unit
	seconds float64
}{
	{'s', Second, 1},
	{'m', Minute, 60},
	{'h', Hour, 3600},
	{'d', Day, 86400},
}

// Units returns the accepted units, shortest first.
func Units() []Unit {
	units := make([]Unit, len(unitTable))
	for i, e := range unitTable {
		units[i] = e.unit
	}
	return units
}

// Seconds returns the length of the unit in seconds.
func (u Unit) Seconds() float64 {
	for _, e := range unitTable {
		if e.unit == u {
			return e.seconds
		}
	}
	return 0
}

// String returns the unit suffix.
func (u Unit) String() string {
	for _, e := range unitTable {
		if e.unit == u {
			return string(e.suffix)
		}
	}
	return "?"
}

// ParseUnit maps a suffix character to its unit.
func ParseUnit(c byte) (Unit, bool) {
	for _, e := range unitTable {
		if e.suffix == c {
			return e.unit, true
		}
	}
	return 0, false
}

// ParseDuration parses "<number>[s|m|h|d]" into seconds. A bare number is
// seconds. The result must be positive.
func ParseDuration(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("parse duration %q: empty: %w", s, domain.ErrInvalidDuration)
	}

	num, unit := s, Second
	last := s[len(s)-1]
	if last < '0' || last > '9' {
		u, ok := ParseUnit(last)
		if !ok && last != '.' {
			return 0, fmt.Errorf("parse duration %q: unknown unit %q: %w", s, last, domain.ErrInvalidDuration)
		}
		if ok {
			num, unit = s[:len(s)-1], u
		}
	}

	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, domain.ErrInvalidDuration)
	}
	d := v * unit.Seconds()
	if !(d > 0) {
		return 0, fmt.Errorf("parse duration %q: must be positive: %w", s, domain.ErrInvalidDuration)
	}
	return d, nil
}
