// Package output resolves output file paths from a template with %(name)s
// placeholders.
package output

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bft-labs/tracejack/internal/domain"
	"github.com/bft-labs/tracejack/internal/timeutil"
)

// resolvers maps placeholder names to their value for a trace.
var resolvers = map[string]func(tr *domain.Trace) string{
	"network":  func(tr *domain.Trace) string { return tr.Codes.Network },
	"station":  func(tr *domain.Trace) string { return tr.Codes.Station },
	"location": func(tr *domain.Trace) string { return tr.Codes.Location },
	"channel":  func(tr *domain.Trace) string { return tr.Codes.Channel },
	"wmin":     func(tr *domain.Trace) string { return timeutil.FormatFilename(tr.Wmin, 0) },
	"wmax":     func(tr *domain.Trace) string { return timeutil.FormatFilename(tr.Wmax, 0) },
	"tmin":     func(tr *domain.Trace) string { return timeutil.FormatFilename(tr.Tmin, 0) },
	"tmax":     func(tr *domain.Trace) string { return timeutil.FormatFilename(tr.Tmax(), 0) },
	"wmin_ms":  func(tr *domain.Trace) string { return timeutil.FormatFilename(tr.Wmin, 3) },
	"tmin_ms":  func(tr *domain.Trace) string { return timeutil.FormatFilename(tr.Tmin, 3) },
	"wmin_year": func(tr *domain.Trace) string {
		return strconv.Itoa(timeutil.ToTime(tr.Wmin).Year())
	},
	"wmin_jday": func(tr *domain.Trace) string {
		return fmt.Sprintf("%03d", timeutil.ToTime(tr.Wmin).YearDay())
	},
}

// timeNames are the placeholders that vary between windows.
var timeNames = map[string]bool{"wmin": true, "wmin_ms": true, "tmin": true, "tmin_ms": true, "wmax": true, "tmax": true}

// Placeholders returns the supported placeholder names.
func Placeholders() []string {
	names := make([]string, 0, len(resolvers))
	for n := range resolvers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type segment struct {
	literal string
	name    string
}

// Template is a parsed output path template.
type Template struct {
	raw      string
	segments []segment
}

// ParseTemplate parses s. Unknown or unterminated placeholders are errors.
// A literal percent sign is written as %%.
func ParseTemplate(s string) (*Template, error) {
	if s == "" {
		return nil, fmt.Errorf("empty output template: %w", domain.ErrInvalidConfig)
	}
	t := &Template{raw: s}
	var lit strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '%' {
			lit.WriteByte(c)
			continue
		}
		if i+1 < len(s) && s[i+1] == '%' {
			lit.WriteByte('%')
			i++
			continue
		}
		if i+1 >= len(s) || s[i+1] != '(' {
			return nil, fmt.Errorf("output template %q: stray %% at %d: %w", s, i, domain.ErrInvalidConfig)
		}
		end := strings.Index(s[i:], ")s")
		if end == -1 {
			return nil, fmt.Errorf("output template %q: unterminated placeholder at %d: %w", s, i, domain.ErrInvalidConfig)
		}
		name := s[i+2 : i+end]
		if _, ok := resolvers[name]; !ok {
			return nil, fmt.Errorf("output template %q: unknown placeholder %q: %w", s, name, domain.ErrInvalidConfig)
		}
		if lit.Len() > 0 {
			t.segments = append(t.segments, segment{literal: lit.String()})
			lit.Reset()
		}
		t.segments = append(t.segments, segment{name: name})
		i += end + 1
	}
	if lit.Len() > 0 {
		t.segments = append(t.segments, segment{literal: lit.String()})
	}
	return t, nil
}

// DefaultTemplate returns the template used with an output directory.
func DefaultTemplate(dir, ext string) string {
	name := "trace_%(network)s-%(station)s-%(location)s-%(channel)s_%(wmin)s." + ext
	return filepath.Join(dir, name)
}

// Expand resolves the template for tr.
func (t *Template) Expand(tr *domain.Trace) string {
	var b strings.Builder
	for _, seg := range t.segments {
		if seg.name == "" {
			b.WriteString(seg.literal)
			continue
		}
		b.WriteString(resolvers[seg.name](tr))
	}
	return b.String()
}

// HasTimePlaceholder reports whether paths differ between windows.
func (t *Template) HasTimePlaceholder() bool {
	for _, seg := range t.segments {
		if timeNames[seg.name] {
			return true
		}
	}
	return false
}

// String returns the template as given.
func (t *Template) String() string {
	return t.raw
}
