package histogram

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// sampled builds a histogram whose contents follow f at the bin centers.
func sampled(t *testing.T, n int, xmin, xmax float64, f func(x float64) float64) *Histogram {
	t.Helper()

	h, err := New("sampled", TypeTH1D, n, xmin, xmax)
	require.NoError(t, err)

	for i := 1; i <= n; i++ {
		h.SetBinContent(i, math.Round(f(h.BinCenter(i))))
	}

	return h
}

// TestFit_Gaussian recovers the parameters of a sampled Gaussian.
func TestFit_Gaussian(t *testing.T) {
	t.Parallel()

	h := sampled(t, 60, -3, 3, func(x float64) float64 {
		z := (x - 0.3) / 0.5

		return 1000 * math.Exp(-z*z/2)
	})

	res, err := h.Fit(Gaussian)
	require.NoError(t, err)
	require.Len(t, res.Params, 3)
	require.InDelta(t, 1000, res.Params[0], 20)
	require.InDelta(t, 0.3, res.Params[1], 0.02)
	require.InDelta(t, 0.5, math.Abs(res.Params[2]), 0.02)
	require.Positive(t, res.NDF)
	require.Less(t, res.ReducedChi2(), 1.0)
	require.False(t, math.IsNaN(res.Errors[1]))
	require.Positive(t, res.Errors[1])

	first, last := h.Range()
	require.Equal(t, 1, first)
	require.Equal(t, 60, last)
}

// TestFit_Exponential recovers the slope of exp(p0 + p1 x).
func TestFit_Exponential(t *testing.T) {
	t.Parallel()

	h := sampled(t, 40, 0, 4, func(x float64) float64 {
		return math.Exp(8 - 1.2*x)
	})

	res, err := h.Fit(Exponential)
	require.NoError(t, err)
	require.InDelta(t, -1.2, res.Params[1], 0.05)
	require.InDelta(t, 8.0, res.Params[0], 0.1)
}

// TestFit_PowerLaw recovers the index of p0 x^p1, skipping x <= 0.
func TestFit_PowerLaw(t *testing.T) {
	t.Parallel()

	h := sampled(t, 50, -1, 9, func(x float64) float64 {
		if x <= 0 {
			return 5
		}

		return 2000 * math.Pow(x, -1.5)
	})

	res, err := h.Fit(PowerLaw)
	require.NoError(t, err)
	require.InDelta(t, -1.5, res.Params[1], 0.05)
}

// TestFit_Degenerate reports zero degrees of freedom.
func TestFit_Degenerate(t *testing.T) {
	t.Parallel()

	h := mustNew(t, "h", 0, 3, 10, 20, 10)

	res, err := h.Fit(Gaussian)
	require.ErrorIs(t, err, ErrDegenerateFit)
	require.Zero(t, res.NDF)
	require.Zero(t, res.ReducedChi2())

	err = h.WithRange(0, 0.5, func() error {
		res, err = h.Fit(Gaussian)

		return err
	})
	require.ErrorIs(t, err, ErrDegenerateFit)
	require.Equal(t, -2, res.NDF)

	empty := mustNew(t, "empty", 0, 3, 0, 0, 0)
	_, err = empty.Fit(Exponential)
	require.ErrorIs(t, err, ErrEmptyRange)
}
