package algorithm

import (
	"context"
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/latmon/internal/domain/alarm"
	"github.com/oshokin/latmon/internal/histogram"
)

// newHistogram builds a histogram with the given regular bin contents.
func newHistogram(t *testing.T, kind string, xmin, xmax float64, contents ...float64) *histogram.Histogram {
	t.Helper()

	h, err := histogram.New("plot", kind, len(contents), xmin, xmax)
	require.NoError(t, err)

	for i, c := range contents {
		h.SetBinContent(i+1, c)
	}

	return h
}

// gaussian builds a histogram sampling a Gaussian peak.
func gaussian(t *testing.T, norm, mean, sigma float64) *histogram.Histogram {
	t.Helper()

	h, err := histogram.New("peak", histogram.TypeTH1F, 100, -5, 5)
	require.NoError(t, err)

	for i := 1; i <= 100; i++ {
		z := (h.BinCenter(i) - mean) / sigma
		h.SetBinContent(i, math.Round(norm*math.Exp(-z*z/2)))
	}

	return h
}

// mustParams parses parameter literals.
func mustParams(t *testing.T, raw map[string]string) Params {
	t.Helper()

	p, err := ParseParams(raw)
	require.NoError(t, err)

	return p
}

// mustLimits builds limits.
func mustLimits(t *testing.T, errMin, warnMin, warnMax, errMax float64) alarm.Limits {
	t.Helper()

	l, err := alarm.NewLimits(errMin, warnMin, warnMax, errMax)
	require.NoError(t, err)

	return l
}

// run looks up name and runs it.
func run(t *testing.T, name string, in *Input) (alarm.Output, error) {
	t.Helper()

	alg, err := NewRegistry().Lookup(name)
	require.NoError(t, err)

	return alg.Run(context.Background(), in)
}

// requireFullRange asserts the histogram range covers all regular bins.
func requireFullRange(t *testing.T, h *histogram.Histogram) {
	t.Helper()

	first, last := h.Range()
	require.Equal(t, 1, first)
	require.Equal(t, h.NumBins(), last)
}

// TestRegistry lists the built-ins and rejects unknown names.
func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.Equal(t, []string{
		"exponential_lambda", "gauss_mean", "gauss_norm", "gauss_rms",
		"leftmost_edge", "low_high_ratio", "num_entries", "peak_position", "peak_width",
		"powerlaw_index", "spikes_and_holes", "x_average", "x_max_bin", "x_max_minus_min_bin",
		"x_min_bin", "x_overflow", "x_rms", "x_underflow",
		"y_average", "y_rms", "y_values",
	}, r.Names())

	_, err := r.Lookup("x_median")
	require.ErrorIs(t, err, alarm.ErrUnknownAlgorithm)

	for _, name := range r.Names() {
		alg, err := r.Lookup(name)
		require.NoError(t, err)
		require.Equal(t, name, alg.Name())
		require.NotEmpty(t, alg.SupportedTypes())
	}
}

// TestPrepare checks type support and unknown parameter handling.
func TestPrepare(t *testing.T) {
	t.Parallel()

	alg, err := NewRegistry().Lookup("x_average")
	require.NoError(t, err)

	h := newHistogram(t, histogram.TypeTH1F, 0, 1, 1)
	params := mustParams(t, map[string]string{"min": "0", "colour": "'red'"})

	accepted, warnings, err := Prepare(alg, h, params)
	require.NoError(t, err)
	require.True(t, accepted.Has("min"))
	require.False(t, accepted.Has("colour"))
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0], "colour")

	h2 := newHistogram(t, "TH2F", 0, 1, 1)
	_, _, err = Prepare(alg, h2, params)
	require.ErrorIs(t, err, alarm.ErrUnsupportedType)
}

// TestXAverage_RestrictsAndRestoresRange covers min/max and the round-trip
// of the histogram range on success and failure.
func TestXAverage_RestrictsAndRestoresRange(t *testing.T) {
	t.Parallel()

	h := newHistogram(t, histogram.TypeTH1F, 0, 4, 1, 0, 0, 3)

	out, err := run(t, "x_average", &Input{Histogram: h})
	require.NoError(t, err)
	require.InDelta(t, 2.75, out.Value(), 1e-12)
	requireFullRange(t, h)

	out, err = run(t, "x_average", &Input{Histogram: h, Params: mustParams(t, map[string]string{"max": "1"})})
	require.NoError(t, err)
	require.InDelta(t, 0.5, out.Value(), 1e-12)
	requireFullRange(t, h)

	_, err = run(t, "x_rms", &Input{Histogram: h, Params: mustParams(t, map[string]string{"min": "1", "max": "3"})})
	require.ErrorIs(t, err, alarm.ErrComputation)
	requireFullRange(t, h)

	_, err = run(t, "x_average", &Input{Histogram: h, Params: mustParams(t, map[string]string{"min": "'low'"})})
	require.ErrorIs(t, err, alarm.ErrInvalidParameter)
}

// TestBinVariants covers entries, edges and flow bins.
func TestBinVariants(t *testing.T) {
	t.Parallel()

	h := newHistogram(t, histogram.TypeTH1D, 0, 6, 0, 2, 0, 4, 5, 0)
	h.SetBinContent(0, 7)
	h.SetBinContent(7, 9)

	tests := []struct {
		name   string
		params map[string]string
		want   float64
	}{
		{name: "num_entries", want: 27},
		{name: "num_entries", params: map[string]string{"min": "3", "max": "5"}, want: 9},
		{name: "x_min_bin", want: 1.5},
		{name: "x_min_bin", params: map[string]string{"num_adjacent_bins": "2"}, want: 3.5},
		{name: "x_max_bin", want: 4.5},
		{name: "x_max_bin", params: map[string]string{"num_adjacent_bins": "2"}, want: 4.5},
		{name: "x_max_minus_min_bin", want: 3},
		{name: "x_overflow", want: 9},
		{name: "x_underflow", want: 7},
	}

	for _, tt := range tests {
		out, err := run(t, tt.name, &Input{Histogram: h, Params: mustParams(t, tt.params)})
		require.NoError(t, err, tt.name)
		require.InDelta(t, tt.want, out.Value(), 1e-12, "%s %v", tt.name, tt.params)
	}

	empty := newHistogram(t, histogram.TypeTH1F, 0, 3, 0, 0, 0)

	out, err := run(t, "x_max_minus_min_bin", &Input{Histogram: empty})
	require.NoError(t, err)
	require.InDelta(t, -1.0, out.Value(), 1e-12)

	out, err = run(t, "x_min_bin", &Input{Histogram: empty})
	require.NoError(t, err)
	require.Equal(t, alarm.StatusUndefined, out.Status())
}

// TestYAverage covers exclusion, open bounds and the empty case.
func TestYAverage(t *testing.T) {
	t.Parallel()

	h := newHistogram(t, histogram.TypeTH1F, 0, 4, 2, 4, 100, 6)

	out, err := run(t, "y_average", &Input{
		Histogram: h,
		Params:    mustParams(t, map[string]string{"exclude": "[3]"}),
	})
	require.NoError(t, err)
	require.InDelta(t, 4.0, out.Value(), 1e-12)

	out, err = run(t, "y_rms", &Input{
		Histogram: h,
		Params:    mustParams(t, map[string]string{"min": "0.5", "max": "2.5"}),
	})
	require.NoError(t, err)
	require.InDelta(t, 0.0, out.Value(), 1e-12)

	out, err = run(t, "y_average", &Input{
		Histogram: h,
		Params:    mustParams(t, map[string]string{"min": "10", "max": "20"}),
	})
	require.NoError(t, err)
	require.Equal(t, alarm.StatusUndefined, out.Status())
	require.Zero(t, out.Value())
}

// TestYValues_SkipsExemptWorstBin reports the worst non-exempt bin while
// still listing the exempted one.
func TestYValues_SkipsExemptWorstBin(t *testing.T) {
	t.Parallel()

	h := newHistogram(t, histogram.TypeTH1F, 0, 5, 5, 50, 1000, 7, 15)
	limits := mustLimits(t, 0, 1, 10, 20)

	out, err := run(t, "y_values", &Input{
		Histogram: h,
		Limits:    limits,
		Exempt:    func(id string) bool { return id == strconv.Itoa(3) },
	})
	require.NoError(t, err)
	require.InDelta(t, 50.0, out.Value(), 1e-12)
	require.Equal(t, alarm.StatusError, out.Status())

	worst, ok := out.Detail("worst_bin")
	require.True(t, ok)
	require.Equal(t, 2, worst)

	exempt, _ := out.Detail("num_exempt_bins")
	require.Equal(t, 1, exempt)

	warnings, _ := out.Detail("warning_points")
	require.Equal(t, []alarm.Point{{Bin: 5, Center: 4.5, Value: 15}}, warnings)

	errorPoints, _ := out.Detail("error_points")
	require.Equal(t, []alarm.Point{{Bin: 2, Center: 1.5, Value: 50}, {Bin: 3, Center: 2.5, Value: 1000}}, errorPoints)

	numErrors, _ := out.Detail("num_error_points")
	require.Equal(t, 2, numErrors)

	exemptPoints, _ := out.Detail("exempt_points")
	require.Equal(t, []alarm.Point{{Bin: 3, Center: 2.5, Value: 1000}}, exemptPoints)

	out, err = run(t, "y_values", &Input{Histogram: h, Limits: limits})
	require.NoError(t, err)
	require.InDelta(t, 1000.0, out.Value(), 1e-12)
}

// TestYValues_ExemptErrorBinStaysListed keeps an exempted error bin in the
// error details while the output comes from the other bins.
func TestYValues_ExemptErrorBinStaysListed(t *testing.T) {
	t.Parallel()

	h := newHistogram(t, histogram.TypeTH1F, 0, 3, 5, 1000, 5)

	out, err := run(t, "y_values", &Input{
		Histogram: h,
		Limits:    mustLimits(t, 0, 1, 10, 20),
		Exempt:    func(id string) bool { return id == "2" },
	})
	require.NoError(t, err)
	require.InDelta(t, 5.0, out.Value(), 1e-12)
	require.Equal(t, alarm.StatusClean, out.Status())

	numErrors, _ := out.Detail("num_error_points")
	require.Equal(t, 1, numErrors)

	errorPoints, _ := out.Detail("error_points")
	require.Equal(t, []alarm.Point{{Bin: 2, Center: 1.5, Value: 1000}}, errorPoints)
}

// TestYValues_TiesAndNormalize covers earliest-wins ties and limit scaling.
func TestYValues_TiesAndNormalize(t *testing.T) {
	t.Parallel()

	h := newHistogram(t, histogram.TypeTH1F, 0, 4, 30, 5, 30, 5)
	limits := mustLimits(t, 0, 1, 10, 20)

	out, err := run(t, "y_values", &Input{Histogram: h, Limits: limits})
	require.NoError(t, err)

	worst, _ := out.Detail("worst_bin")
	require.Equal(t, 1, worst)

	h.SetEntries(10)

	out, err = run(t, "y_values", &Input{
		Histogram: h,
		Limits:    mustLimits(t, 0, 0.1, 1, 2),
		Params:    mustParams(t, map[string]string{"normalize": "True"}),
	})
	require.NoError(t, err)
	require.Equal(t, alarm.StatusError, out.Status())

	effective, ok := out.Detail("effective_limits")
	require.True(t, ok)
	require.Equal(t, "[0/1; 10/20]", effective)
}

// TestGaussFits recovers the Gaussian parameters and scales the error.
func TestGaussFits(t *testing.T) {
	t.Parallel()

	h := gaussian(t, 500, 0.5, 0.8)

	mean, err := run(t, "gauss_mean", &Input{Histogram: h})
	require.NoError(t, err)
	require.InDelta(t, 0.5, mean.Value(), 0.03)

	bar, ok := mean.Error()
	require.True(t, ok)

	scaled, err := run(t, "gauss_mean", &Input{Histogram: h, Params: mustParams(t, map[string]string{"num_sigma": "3"})})
	require.NoError(t, err)

	scaledBar, _ := scaled.Error()
	require.InDelta(t, 3*bar, scaledBar, 1e-6)

	rms, err := run(t, "gauss_rms", &Input{Histogram: h})
	require.NoError(t, err)
	require.InDelta(t, 0.8, rms.Value(), 0.03)

	norm, err := run(t, "gauss_norm", &Input{Histogram: h})
	require.NoError(t, err)
	require.InDelta(t, 500, norm.Value(), 15)

	chi2, ok := norm.Detail(DetailReducedChi2)
	require.True(t, ok)
	require.Less(t, chi2, 1.0)

	requireFullRange(t, h)
}

// TestFit_DegenerateIsUndefined reports a zero reduced chi-square.
func TestFit_DegenerateIsUndefined(t *testing.T) {
	t.Parallel()

	h := newHistogram(t, histogram.TypeTH1F, 0, 3, 10, 20, 10)

	out, err := run(t, "gauss_mean", &Input{Histogram: h})
	require.NoError(t, err)
	require.Equal(t, alarm.StatusUndefined, out.Status())
	require.Zero(t, out.Value())

	chi2, ok := out.Detail(DetailReducedChi2)
	require.True(t, ok)
	require.InDelta(t, 0.0, chi2, 0)
	requireFullRange(t, h)
}

// TestPeak finds the main peak next to a smaller one.
func TestPeak(t *testing.T) {
	t.Parallel()

	h := gaussian(t, 800, -1, 0.6)
	side := gaussian(t, 100, 3, 0.4)

	for i := 1; i <= h.NumBins(); i++ {
		h.SetBinContent(i, h.BinContent(i)+side.BinContent(i))
	}

	pos, err := run(t, "peak_position", &Input{
		Histogram: h,
		Params:    mustParams(t, map[string]string{"num_iterations": "3", "fit_range_width": "1.5"}),
	})
	require.NoError(t, err)
	require.InDelta(t, -1.0, pos.Value(), 0.05)

	width, err := run(t, "peak_width", &Input{
		Histogram: h,
		Params:    mustParams(t, map[string]string{"num_iterations": "3", "fit_range_width": "1.5"}),
	})
	require.NoError(t, err)
	require.InDelta(t, 0.6, width.Value(), 0.05)
	requireFullRange(t, h)

	_, err = run(t, "peak_width", &Input{Histogram: h, Params: mustParams(t, map[string]string{"num_iterations": "0"})})
	require.ErrorIs(t, err, alarm.ErrInvalidParameter)
}

// TestLowHighRatio covers fractional edge bins and the missing pivot.
func TestLowHighRatio(t *testing.T) {
	t.Parallel()

	h := newHistogram(t, histogram.TypeTH1F, 0, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10)

	out, err := run(t, "low_high_ratio", &Input{
		Histogram: h,
		Params:    mustParams(t, map[string]string{"pivot": "2.5", "min": "0.5", "max": "9"}),
	})
	require.NoError(t, err)
	require.InDelta(t, 20.0/65.0, out.Value(), 1e-9)

	bar, ok := out.Error()
	require.True(t, ok)
	require.Positive(t, bar)

	out, err = run(t, "low_high_ratio", &Input{Histogram: h})
	require.NoError(t, err)
	require.Equal(t, alarm.StatusUndefined, out.Status())
	require.Equal(t, "pivot point not defined", out.Reason())
}

// TestSpikesAndHoles reports the most significant non-exempt spike and
// lists every flagged bin.
func TestSpikesAndHoles(t *testing.T) {
	t.Parallel()

	h := newHistogram(t, histogram.TypeTH1F, 0, 11, 100, 100, 200, 100, 100, 400, 100, 100, 100, 100, 100)
	params := mustParams(t, map[string]string{"num_neighbours": "2", "out_low_cut": "0.25", "out_high_cut": "0.25"})
	limits := mustLimits(t, 0, 0, 5, 20)

	out, err := run(t, "spikes_and_holes", &Input{Histogram: h, Params: params, Limits: limits})
	require.NoError(t, err)
	require.InDelta(t, 30.0, out.Value(), 1e-12)

	worst, _ := out.Detail("worst_bin")
	require.Equal(t, 6, worst)

	out, err = run(t, "spikes_and_holes", &Input{
		Histogram: h,
		Params:    params,
		Limits:    limits,
		Exempt:    func(id string) bool { return id == "6" },
	})
	require.NoError(t, err)
	require.InDelta(t, 10.0, out.Value(), 1e-12)

	worst, _ = out.Detail("worst_bin")
	require.Equal(t, 3, worst)

	errorBins, _ := out.Detail("error_bins")
	require.Equal(t, []alarm.Point{{Bin: 6, Center: 5.5, Value: 30}}, errorBins)

	warningBins, _ := out.Detail("warning_bins")
	require.Equal(t, []alarm.Point{{Bin: 3, Center: 2.5, Value: 10}}, warningBins)

	exempt, _ := out.Detail("num_exempt_bins")
	require.Equal(t, 1, exempt)

	_, err = run(t, "spikes_and_holes", &Input{
		Histogram: h,
		Params:    mustParams(t, map[string]string{"out_low_cut": "0.6", "out_high_cut": "0.5"}),
		Limits:    limits,
	})
	require.ErrorIs(t, err, alarm.ErrInvalidParameter)
}

// TestSpikesAndHoles_EmptyNeighbourhood skips bins with nothing to compare to.
func TestSpikesAndHoles_EmptyNeighbourhood(t *testing.T) {
	t.Parallel()

	h := newHistogram(t, histogram.TypeTH1F, 0, 4, 0, 0, 0, 0)

	out, err := run(t, "spikes_and_holes", &Input{Histogram: h, Limits: mustLimits(t, 0, 0, 5, 20)})
	require.NoError(t, err)
	require.Zero(t, out.Value())

	skipped, _ := out.Detail("num_skipped_bins")
	require.Equal(t, 4, skipped)
}

// TestLeftmostEdge finds the first step and refines it within the window.
func TestLeftmostEdge(t *testing.T) {
	t.Parallel()

	contents := make([]float64, 20)
	for i := range contents {
		contents[i] = 5
		if i >= 8 {
			contents[i] = 50
		}
	}

	h := newHistogram(t, histogram.TypeTH1F, 0, 20, contents...)
	params := mustParams(t, map[string]string{"window_half_width": "3", "threshold": "5"})

	out, err := run(t, "leftmost_edge", &Input{Histogram: h, Params: params})
	require.NoError(t, err)
	require.InDelta(t, 7.5, out.Value(), 1e-12)

	bin, _ := out.Detail("edge_bin")
	require.Equal(t, 8, bin)

	significance, _ := out.Detail("significance")
	require.InDelta(t, math.Sqrt(3)*135/math.Sqrt(165), significance, 1e-9)

	flat := newHistogram(t, histogram.TypeTH1F, 0, 20, make([]float64, 20)...)

	out, err = run(t, "leftmost_edge", &Input{Histogram: flat, Params: params})
	require.NoError(t, err)
	require.Equal(t, alarm.StatusUndefined, out.Status())
	require.Equal(t, "no edge above threshold", out.Reason())

	_, err = run(t, "leftmost_edge", &Input{Histogram: h, Params: mustParams(t, map[string]string{"window_half_width": "0"})})
	require.ErrorIs(t, err, alarm.ErrInvalidParameter)
}

// TestRun_HonorsCancellation stops before computing.
func TestRun_HonorsCancellation(t *testing.T) {
	t.Parallel()

	alg, err := NewRegistry().Lookup("x_average")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = alg.Run(ctx, &Input{Histogram: newHistogram(t, histogram.TypeTH1F, 0, 1, 1)})
	require.ErrorIs(t, err, context.Canceled)
}
