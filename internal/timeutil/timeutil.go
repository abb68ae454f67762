// Package timeutil converts between epoch seconds and the UTC time strings
// used on the command line, in catalogs and in output file names.
package timeutil

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/tracejack/internal/domain"
)

const (
	// Layout is the accepted input form, fractional seconds optional.
	Layout = "2006-01-02 15:04:05"

	// FileLayout is used in output file names.
	FileLayout = "2006-01-02_15-04-05"
)

// ParseTime parses "YYYY-mm-dd HH:MM:SS[.xxx]" as UTC and returns epoch seconds.
// Any number of fractional digits is accepted after the dot; a trailing dot
// without digits is ignored.
func ParseTime(s string) (float64, error) {
	s = strings.TrimSpace(s)
	base, frac := s, ""
	if i := strings.LastIndexByte(s, '.'); i != -1 {
		base, frac = s[:i], s[i+1:]
	}

	t, err := time.ParseInLocation(Layout, base, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("parse time %q: %w", s, domain.ErrInvalidConfig)
	}

	var f float64
	if frac != "" {
		for _, c := range frac {
			if c < '0' || c > '9' {
				return 0, fmt.Errorf("parse time %q: bad fractional seconds: %w", s, domain.ErrInvalidConfig)
			}
		}
		f, err = strconv.ParseFloat("0."+frac, 64)
		if err != nil {
			return 0, fmt.Errorf("parse time %q: %w", s, domain.ErrInvalidConfig)
		}
	}
	return float64(t.Unix()) + f, nil
}

// split returns whole seconds and the fractional part rounded to digits,
// carrying into the seconds when the rounding reaches 1.
func split(epoch float64, digits int) (int64, int64) {
	sec := math.Floor(epoch)
	if digits <= 0 {
		return int64(sec), 0
	}
	scale := math.Pow10(digits)
	frac := int64(math.Round((epoch - sec) * scale))
	if frac >= int64(scale) {
		sec++
		frac = 0
	}
	return int64(sec), frac
}

// FormatTime renders epoch seconds as "YYYY-mm-dd HH:MM:SS.xxx" with the
// given number of fractional digits (0 omits the dot).
func FormatTime(epoch float64, digits int) string {
	return format(epoch, Layout, digits)
}

// FormatFilename renders epoch seconds as "YYYY-mm-dd_HH-MM-SS" with the
// given number of fractional digits.
func FormatFilename(epoch float64, digits int) string {
	return format(epoch, FileLayout, digits)
}

func format(epoch float64, layout string, digits int) string {
	sec, frac := split(epoch, digits)
	s := time.Unix(sec, 0).UTC().Format(layout)
	if digits <= 0 {
		return s
	}
	return fmt.Sprintf("%s.%0*d", s, digits, frac)
}

// ToTime converts epoch seconds to a UTC time.Time, rounded to microseconds.
func ToTime(epoch float64) time.Time {
	sec, us := split(epoch, 6)
	return time.Unix(sec, us*1000).UTC()
}

// FromTime converts a time.Time to epoch seconds.
func FromTime(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}
