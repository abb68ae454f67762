// Package rename rewrites trace identifiers with ordered, field-scoped
// regular expression rules.
package rename

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/bft-labs/tracejack/internal/domain"
)

// Field names one part of an NSLC identifier.
type Field int

const (
	Network Field = iota
	Station
	Location
	Channel
)

var fieldNames = [...]string{"network", "station", "location", "channel"}

// String returns the lowercase field name.
func (f Field) String() string {
	if f < Network || f > Channel {
		return "unknown"
	}
	return fieldNames[f]
}

func (f Field) set(c *domain.Codes, v string) {
	switch f {
	case Network:
		c.Network = v
	case Station:
		c.Station = v
	case Location:
		c.Location = v
	default:
		c.Channel = v
	}
}

// Rule replaces matches of Pattern in one field with Replacement.
// Replacement uses regexp expansion syntax ($1, ${name}).
type Rule struct {
	Field       Field
	Pattern     *regexp.Regexp
	Replacement string
}

// ParseRule parses an expression of the form /pattern/replacement/. The
// first character is the delimiter and must be a punctuation character; it
// may not appear inside pattern or replacement.
func ParseRule(field Field, expr string) (Rule, error) {
	bad := func(reason string) (Rule, error) {
		return Rule{}, fmt.Errorf("rename %s %q: %s: %w", field, expr, reason, domain.ErrInvalidRenameRule)
	}

	if field < Network || field > Channel {
		return bad("unknown field")
	}
	if len(expr) < 3 {
		return bad("expected /pattern/replacement/")
	}
	delim := rune(expr[0])
	if unicode.IsLetter(delim) || unicode.IsDigit(delim) || unicode.IsSpace(delim) || delim == '\\' {
		return bad("delimiter must be punctuation")
	}
	parts := strings.Split(expr[1:], string(delim))
	if len(parts) != 3 || parts[2] != "" {
		return bad("expected /pattern/replacement/")
	}
	if parts[0] == "" {
		return bad("empty pattern")
	}

	re, err := regexp.Compile(parts[0])
	if err != nil {
		return bad(err.Error())
	}
	return Rule{Field: field, Pattern: re, Replacement: parts[1]}, nil
}

// String renders the rule in its input form.
func (r Rule) String() string {
	return fmt.Sprintf("%s:/%s/%s/", r.Field, r.Pattern, r.Replacement)
}

// Rules is an ordered list of rename rules.
type Rules []Rule

// Empty returns true if there are no rules.
func (rs Rules) Empty() bool {
	return len(rs) == 0
}

// Apply returns the rewritten codes. Each field is rewritten from its own
// current value by the rules targeting it, in order; the new codes are
// assembled after all rules have run.
func (rs Rules) Apply(c domain.Codes) domain.Codes {
	if len(rs) == 0 {
		return c
	}
	values := [4]string{c.Network, c.Station, c.Location, c.Channel}
	for _, r := range rs {
		values[r.Field] = r.Pattern.ReplaceAllString(values[r.Field], r.Replacement)
	}
	var out domain.Codes
	for f := Network; f <= Channel; f++ {
		f.set(&out, values[f])
	}
	return out
}

// ApplyTrace rewrites the codes of tr in place.
func (rs Rules) ApplyTrace(tr *domain.Trace) {
	tr.Codes = rs.Apply(tr.Codes)
}
