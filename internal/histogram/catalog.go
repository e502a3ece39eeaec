package histogram

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ErrDuplicateName is returned when two histograms share a name.
var ErrDuplicateName = errors.New("duplicate histogram name")

// Catalog indexes the histograms of one input file by name.
type Catalog struct {
	// byName maps names to histograms.
	byName map[string]*Histogram
	// names holds the sorted histogram names.
	names []string
}

// NewCatalog indexes the given histograms.
func NewCatalog(histograms ...*Histogram) (*Catalog, error) {
	c := &Catalog{
		byName: make(map[string]*Histogram, len(histograms)),
		names:  make([]string, 0, len(histograms)),
	}

	for _, h := range histograms {
		if _, ok := c.byName[h.Name()]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, h.Name())
		}

		c.byName[h.Name()] = h
		c.names = append(c.names, h.Name())
	}

	sort.Strings(c.names)

	return c, nil
}

// Len returns the number of histograms.
func (c *Catalog) Len() int {
	return len(c.names)
}

// Get returns the histogram with the given name.
func (c *Catalog) Get(name string) (*Histogram, bool) {
	h, ok := c.byName[name]

	return h, ok
}

// All returns every histogram sorted by name.
func (c *Catalog) All() []*Histogram {
	out := make([]*Histogram, 0, len(c.names))
	for _, name := range c.names {
		out = append(out, c.byName[name])
	}

	return out
}

// Match returns the histograms whose name matches pattern, sorted by name.
// See MatchPattern for the pattern syntax.
func (c *Catalog) Match(pattern string) []*Histogram {
	if !strings.Contains(pattern, "*") {
		if h, ok := c.byName[pattern]; ok {
			return []*Histogram{h}
		}

		return nil
	}

	re := compilePattern(pattern)

	var out []*Histogram

	for _, name := range c.names {
		if re.MatchString(name) {
			out = append(out, c.byName[name])
		}
	}

	return out
}

// MatchPattern reports whether name matches pattern. Each "*" stands for a
// non-empty run of decimal digits, e.g. "CalXAdcPed_TH1_Tower_*" matches
// "CalXAdcPed_TH1_Tower_12". A pattern without "*" matches only itself.
func MatchPattern(pattern, name string) bool {
	if !strings.Contains(pattern, "*") {
		return pattern == name
	}

	return compilePattern(pattern).MatchString(name)
}

// compilePattern turns a wildcard pattern into an anchored expression.
func compilePattern(pattern string) *regexp.Regexp {
	pieces := strings.Split(pattern, "*")
	for i, p := range pieces {
		pieces[i] = regexp.QuoteMeta(p)
	}

	return regexp.MustCompile("^" + strings.Join(pieces, `\d+`) + "$")
}
