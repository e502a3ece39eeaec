package algorithm

import (
	"fmt"
	"sort"

	"github.com/oshokin/latmon/internal/domain/alarm"
	"github.com/oshokin/latmon/internal/histogram"
)

// Factory builds an algorithm.
type Factory func() Algorithm

// Registry maps algorithm names to factories.
type Registry struct {
	// factories holds the registered algorithms by name.
	factories map[string]Factory
}

// NewRegistry returns a registry holding every built-in algorithm.
func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
	}

	for _, v := range builtins() {
		r.Register(v.name, func() Algorithm { return v })
	}

	return r
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Lookup builds the algorithm registered under name.
func (r *Registry) Lookup(name string) (Algorithm, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", alarm.ErrUnknownAlgorithm, name)
	}

	return f(), nil
}

// Names returns the registered names sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// builtins lists the built-in variants.
func builtins() []*variant {
	both := []string{histogram.TypeTH1F, histogram.TypeTH1D}
	fit := []string{ParamMin, ParamMax, ParamNumSigma}
	peakParams := []string{ParamMin, ParamMax, ParamNumSigma, ParamNumIterations, ParamFitRangeWidth}
	ranged := []string{ParamMin, ParamMax}

	return []*variant{
		{name: "x_average", types: both, params: ranged, run: xAverage},
		{name: "x_rms", types: both, params: ranged, run: xRMS},
		{name: "num_entries", types: both, params: ranged, run: numEntries},
		{name: "x_min_bin", types: both, params: []string{ParamNumAdjacentBins}, run: xMinBin},
		{name: "x_max_bin", types: both, params: []string{ParamNumAdjacentBins}, run: xMaxBin},
		{name: "x_max_minus_min_bin", types: both, run: xMaxMinusMinBin},
		{name: "x_overflow", types: both, run: xOverflow},
		{name: "x_underflow", types: both, run: xUnderflow},
		{name: "y_average", types: both, params: []string{ParamMin, ParamMax, ParamExclude}, run: yAverage},
		{name: "y_rms", types: both, params: []string{ParamMin, ParamMax, ParamExclude}, run: yRMS},
		{name: "y_values", types: both, params: []string{ParamMin, ParamMax, ParamNormalize}, run: yValues},
		{name: "gauss_mean", types: both, params: fit, run: fitParameter(histogram.Gaussian, gaussMean)},
		{name: "gauss_rms", types: both, params: fit, run: fitParameter(histogram.Gaussian, gaussSigma)},
		{name: "gauss_norm", types: both, params: fit, run: fitParameter(histogram.Gaussian, gaussNorm)},
		{name: "exponential_lambda", types: both, params: fit, run: fitParameter(histogram.Exponential, expoSlope)},
		{name: "powerlaw_index", types: both, params: fit, run: fitParameter(histogram.PowerLaw, powerLawIndex)},
		{name: "peak_position", types: both, params: peakParams, run: peak(peakMean)},
		{name: "peak_width", types: both, params: peakParams, run: peak(peakSigma)},
		{name: "low_high_ratio", types: both, params: []string{ParamPivot, ParamMin, ParamMax}, run: lowHighRatio},
		{
			name:   "spikes_and_holes",
			types:  both,
			params: []string{ParamNumNeighbours, ParamOutLowCut, ParamOutHighCut},
			run:    spikesAndHoles,
		},
		{name: "leftmost_edge", types: both, params: []string{ParamWindowHalfWidth, ParamThreshold}, run: leftmostEdge},
	}
}
