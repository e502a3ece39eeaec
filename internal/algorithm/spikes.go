package algorithm

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/oshokin/latmon/internal/domain/alarm"
)

// Defaults of the neighbourhood variants.
const (
	defaultNumNeighbours   = 4
	defaultOutlierCut      = 0.3
	defaultWindowHalfWidth = 5
	defaultEdgeThreshold   = 7.0
)

// spikesAndHoles reports the significance |o - e| / sqrt(e) of the most
// pronounced spike or hole, where e is the trimmed average of the
// num_neighbours bins on each side. Every bin is classified; exempted bins
// only stay out of the worst selection. Bins whose expectation is not
// positive are skipped.
func spikesAndHoles(_ context.Context, in *Input) (alarm.Output, error) {
	numNeighbours, err := in.Params.Int(ParamNumNeighbours, defaultNumNeighbours)
	if err != nil {
		return alarm.Output{}, err
	}

	if numNeighbours <= 0 {
		return alarm.Output{}, errNonPositive(ParamNumNeighbours)
	}

	lowCut, err := in.Params.Float(ParamOutLowCut, defaultOutlierCut)
	if err != nil {
		return alarm.Output{}, err
	}

	highCut, err := in.Params.Float(ParamOutHighCut, defaultOutlierCut)
	if err != nil {
		return alarm.Output{}, err
	}

	if lowCut < 0 || highCut < 0 || lowCut+highCut >= 1 {
		return alarm.Output{}, fmt.Errorf("%w: %s and %s must be non-negative fractions summing below 1",
			alarm.ErrInvalidParameter, ParamOutLowCut, ParamOutHighCut)
	}

	var (
		h          = in.Histogram
		worst      alarm.Point
		worstScore = math.Inf(-1)
		warnings   []alarm.Point
		errorBins  []alarm.Point
		exempt     int
		skipped    int
	)

	for bin := 1; bin <= h.NumBins(); bin++ {
		expected := neighbouringAverage(in, bin, numNeighbours, lowCut, highCut)
		if expected <= 0 {
			skipped++

			continue
		}

		significance := math.Abs(h.BinContent(bin)-expected) / math.Sqrt(expected)
		p := alarm.Point{Bin: bin, Center: h.BinCenter(bin), Value: significance}

		switch in.Limits.Classify(significance, 0) {
		case alarm.StatusError:
			errorBins = append(errorBins, p)
		case alarm.StatusWarning:
			warnings = append(warnings, p)
		default:
		}

		if in.isExempt(strconv.Itoa(bin)) {
			exempt++

			continue
		}

		if badness := in.Limits.Badness(significance, 0); badness > worstScore {
			worstScore = badness
			worst = p
		}
	}

	out := alarm.NewOutput(0)
	if worst.Bin > 0 {
		out = alarm.NewOutput(worst.Value).WithDetail("worst_bin", worst.Bin)
	}

	return out.
		WithDetail("num_warning_bins", len(warnings)).
		WithDetail("num_error_bins", len(errorBins)).
		WithDetail("warning_bins", warnings).
		WithDetail("error_bins", errorBins).
		WithDetail("num_exempt_bins", exempt).
		WithDetail("num_skipped_bins", skipped), nil
}

// neighbouringAverage is the mean content of the bins within n of bin, bin
// itself excluded, after dropping the lowCut fraction of the lowest and the
// highCut fraction of the highest contents.
func neighbouringAverage(in *Input, bin, n int, lowCut, highCut float64) float64 {
	h := in.Histogram

	contents := make([]float64, 0, 2*n)

	for i := max(1, bin-n); i <= min(h.NumBins(), bin+n); i++ {
		if i != bin {
			contents = append(contents, h.BinContent(i))
		}
	}

	slices.Sort(contents)

	drop := int(lowCut * float64(len(contents)))
	keep := len(contents) - int(highCut*float64(len(contents)))

	if drop >= keep {
		return 0
	}

	var sum float64
	for _, c := range contents[drop:keep] {
		sum += c
	}

	return sum / float64(keep-drop)
}

// leftmostEdge slides a window of window_half_width bins on each side over
// the histogram and stops at the first bin where the significance of the
// step between the halves exceeds threshold. The search is then refined over
// the next window_half_width bins and the center of the most significant
// bin is reported.
func leftmostEdge(_ context.Context, in *Input) (alarm.Output, error) {
	halfWidth, err := in.Params.Int(ParamWindowHalfWidth, defaultWindowHalfWidth)
	if err != nil {
		return alarm.Output{}, err
	}

	if halfWidth <= 0 {
		return alarm.Output{}, errNonPositive(ParamWindowHalfWidth)
	}

	threshold, err := in.Params.Float(ParamThreshold, defaultEdgeThreshold)
	if err != nil {
		return alarm.Output{}, err
	}

	h := in.Histogram
	last := h.NumBins() - halfWidth

	for bin := 1 + halfWidth; bin <= last; bin++ {
		significance := edgeSignificance(in, bin, halfWidth)
		if significance <= threshold {
			continue
		}

		best := bin

		for k := bin + 1; k <= min(bin+halfWidth, last); k++ {
			if s := edgeSignificance(in, k, halfWidth); s > significance {
				significance = s
				best = k
			}
		}

		return alarm.NewOutput(h.BinCenter(best)).
			WithDetail("significance", significance).
			WithDetail("edge_bin", best), nil
	}

	return alarm.UndefinedOutput("no edge above threshold"), nil
}

// edgeSignificance compares the sums of the halfWidth bins left and right
// of bin: sqrt(halfWidth) * |right - left| / sqrt(right + left).
func edgeSignificance(in *Input, bin, halfWidth int) float64 {
	var left, right float64

	for j := bin - halfWidth; j < bin; j++ {
		left += in.Histogram.BinContent(j)
	}

	for j := bin + 1; j <= bin+halfWidth; j++ {
		right += in.Histogram.BinContent(j)
	}

	if left+right <= 0 {
		return 0
	}

	return math.Sqrt(float64(halfWidth)) * math.Abs(right-left) / math.Sqrt(right+left)
}
