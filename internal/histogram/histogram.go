package histogram

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// Supported histogram types.
const (
	// TypeTH1F is a one-dimensional histogram with single precision contents.
	TypeTH1F = "TH1F"
	// TypeTH1D is a one-dimensional histogram with double precision contents.
	TypeTH1D = "TH1D"
)

var (
	// ErrEmptyRange is returned when a statistic is requested over a range
	// holding no weight.
	ErrEmptyRange = errors.New("empty range")
	// ErrInvalidRange is returned for inverted or NaN ranges.
	ErrInvalidRange = errors.New("invalid range")
	// ErrInvalidBinning is returned by New for unusable binning.
	ErrInvalidBinning = errors.New("invalid binning")
)

// Histogram is a fixed-binning one-dimensional histogram.
//
// Bin 0 is the underflow, bins 1..n are the regular bins and bin n+1 is the
// overflow. Statistics are computed over the current axis range [first,
// last], which defaults to all regular bins. The range may only be changed
// for the duration of a WithRange call; the restriction lock guarantees that
// at most one caller restricts a histogram at a time.
type Histogram struct {
	// name is the unique name of the histogram.
	name string
	// kind is the histogram type, e.g. TH1F.
	kind string
	// xmin is the low edge of the first regular bin.
	xmin float64
	// xmax is the high edge of the last regular bin.
	xmax float64
	// contents holds underflow, regular bins and overflow.
	contents []float64
	// entries is the number of fills; negative means "sum of contents".
	entries float64
	// first is the first bin of the current range.
	first int
	// last is the last bin of the current range.
	last int
	// restrict serializes range restrictions.
	restrict sync.Mutex
}

// New creates an empty histogram with n bins over [xmin, xmax).
func New(name, kind string, n int, xmin, xmax float64) (*Histogram, error) {
	switch {
	case name == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalidBinning)
	case n <= 0:
		return nil, fmt.Errorf("%w: %s has %d bins", ErrInvalidBinning, name, n)
	case math.IsNaN(xmin) || math.IsNaN(xmax) || xmin >= xmax:
		return nil, fmt.Errorf("%w: %s axis [%g, %g]", ErrInvalidBinning, name, xmin, xmax)
	}

	if kind == "" {
		kind = TypeTH1F
	}

	return &Histogram{
		name:     name,
		kind:     kind,
		xmin:     xmin,
		xmax:     xmax,
		contents: make([]float64, n+2), //nolint:mnd // Underflow and overflow.
		entries:  -1,
		first:    1,
		last:     n,
	}, nil
}

// Name returns the histogram name.
func (h *Histogram) Name() string {
	return h.name
}

// Type returns the histogram type.
func (h *Histogram) Type() string {
	return h.kind
}

// NumBins returns the number of regular bins.
func (h *Histogram) NumBins() int {
	return len(h.contents) - 2 //nolint:mnd // Underflow and overflow.
}

// NativeRange returns the axis limits.
func (h *Histogram) NativeRange() (float64, float64) {
	return h.xmin, h.xmax
}

// Range returns the first and last bin of the current range.
func (h *Histogram) Range() (int, int) {
	return h.first, h.last
}

// BinWidth returns the width of every regular bin.
func (h *Histogram) BinWidth() float64 {
	return (h.xmax - h.xmin) / float64(h.NumBins())
}

// BinLowEdge returns the low edge of bin i.
func (h *Histogram) BinLowEdge(i int) float64 {
	return h.xmin + float64(i-1)*h.BinWidth()
}

// BinCenter returns the center of bin i. Underflow and overflow get the
// center they would have as regular bins.
func (h *Histogram) BinCenter(i int) float64 {
	return h.BinLowEdge(i) + h.BinWidth()/2 //nolint:mnd // Half width.
}

// BinContent returns the content of bin i, or 0 outside [0, n+1].
func (h *Histogram) BinContent(i int) float64 {
	if i < 0 || i >= len(h.contents) {
		return 0
	}

	return h.contents[i]
}

// SetBinContent sets the content of bin i. Out of range indices are ignored.
func (h *Histogram) SetBinContent(i int, v float64) {
	if i < 0 || i >= len(h.contents) {
		return
	}

	h.contents[i] = v
}

// FindBin returns the bin containing x, 0 for underflow and n+1 for overflow.
func (h *Histogram) FindBin(x float64) int {
	switch {
	case x < h.xmin:
		return 0
	case x >= h.xmax:
		return h.NumBins() + 1
	default:
		return 1 + int((x-h.xmin)/h.BinWidth())
	}
}

// Fill adds weight w to the bin containing x and counts one entry.
func (h *Histogram) Fill(x, w float64) {
	h.contents[h.FindBin(x)] += w

	if h.entries < 0 {
		h.entries = 0
	}

	h.entries++
}

// SetEntries overrides the number of entries.
func (h *Histogram) SetEntries(n float64) {
	h.entries = n
}

// Entries returns the number of entries. When never filled nor set, it is
// the sum of all contents including underflow and overflow.
func (h *Histogram) Entries() float64 {
	if h.entries >= 0 {
		return h.entries
	}

	var sum float64
	for _, c := range h.contents {
		sum += c
	}

	return sum
}

// Integral returns the sum of the contents in the current range.
func (h *Histogram) Integral() float64 {
	var sum float64
	for i := h.first; i <= h.last; i++ {
		sum += h.contents[i]
	}

	return sum
}

// SetRangeUser restricts the current range to the bins covering [xmin, xmax].
// Values beyond the axis are clamped to the regular bins.
//
// Prefer WithRange, which restores the previous range on every exit path.
func (h *Histogram) SetRangeUser(xmin, xmax float64) error {
	if math.IsNaN(xmin) || math.IsNaN(xmax) || xmin > xmax {
		return fmt.Errorf("%w: [%g, %g] on %s", ErrInvalidRange, xmin, xmax, h.name)
	}

	n := h.NumBins()
	first := clamp(h.FindBin(xmin), 1, n)
	last := clamp(h.FindBin(xmax), 1, n)

	// A range ending exactly on a low edge does not include that bin.
	if last > first && xmax == h.BinLowEdge(last) {
		last--
	}

	h.first, h.last = first, last

	return nil
}

// ResetRange restores the full range of regular bins.
func (h *Histogram) ResetRange() {
	h.first, h.last = 1, h.NumBins()
}

// WithRange restricts the range to [xmin, xmax], runs fn and restores the
// previous range, whether fn succeeds, fails or panics. Concurrent callers
// on the same histogram are serialized.
func (h *Histogram) WithRange(xmin, xmax float64, fn func() error) error {
	h.restrict.Lock()
	defer h.restrict.Unlock()

	first, last := h.first, h.last

	defer func() {
		h.first, h.last = first, last
	}()

	if err := h.SetRangeUser(xmin, xmax); err != nil {
		return err
	}

	return fn()
}

// Clone returns a deep copy with the full range.
func (h *Histogram) Clone() *Histogram {
	contents := make([]float64, len(h.contents))
	copy(contents, h.contents)

	return &Histogram{
		name:     h.name,
		kind:     h.kind,
		xmin:     h.xmin,
		xmax:     h.xmax,
		contents: contents,
		entries:  h.entries,
		first:    1,
		last:     h.NumBins(),
	}
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
