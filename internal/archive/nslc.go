package archive

import (
	"fmt"
	"path"
	"strings"

	"github.com/bft-labs/tracejack/internal/domain"
)

// Matcher selects traces by a shell style pattern over "net.sta.loc.cha".
// The pattern supports *, ?, [seq] and [!seq] and is case-insensitive.
// An empty pattern matches everything.
type Matcher struct {
	pattern string
}

// NewMatcher validates and compiles an NSLC pattern.
func NewMatcher(pattern string) (*Matcher, error) {
	p := strings.ToLower(strings.ReplaceAll(pattern, "[!", "[^"))
	if _, err := path.Match(p, ""); err != nil {
		return nil, fmt.Errorf("pattern %q: %v: %w", pattern, err, domain.ErrInvalidConfig)
	}
	return &Matcher{pattern: p}, nil
}

// Match reports whether codes match the pattern.
func (m *Matcher) Match(c domain.Codes) bool {
	if m == nil || m.pattern == "" {
		return true
	}
	ok, _ := path.Match(m.pattern, strings.ToLower(c.String()))
	return ok
}
