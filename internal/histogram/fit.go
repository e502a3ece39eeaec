package histogram

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrDegenerateFit is returned when a fit has no degrees of freedom left.
	ErrDegenerateFit = errors.New("degenerate fit")
	// ErrFitFailed is returned when the minimizer does not converge.
	ErrFitFailed = errors.New("fit failed")
)

// penalty replaces non-finite chi-square values during minimization.
const penalty = 1e300

// Model is a parametric function fitted to histogram contents.
type Model struct {
	// Name identifies the model in logs and errors.
	Name string
	// NumParams is the number of free parameters.
	NumParams int
	// Eval evaluates the model at x.
	Eval func(x float64, p []float64) float64
	// Guess derives starting parameters from the fitted points.
	Guess func(xs, ys []float64) []float64
	// Accepts reports whether x is inside the model domain. Nil accepts all.
	Accepts func(x float64) bool
}

// Gaussian is p0 * exp(-0.5 * ((x - p1) / p2)^2).
var Gaussian = Model{
	Name:      "gaus",
	NumParams: 3, //nolint:mnd // Norm, mean, sigma.
	Eval: func(x float64, p []float64) float64 {
		z := (x - p[1]) / p[2]

		return p[0] * math.Exp(-z*z/2) //nolint:mnd // Gaussian exponent.
	},
	Guess: func(xs, ys []float64) []float64 {
		mean, std := stat.PopMeanStdDev(xs, ys)
		if std <= 0 && len(xs) > 1 {
			std = math.Abs(xs[1] - xs[0])
		}

		return []float64{maxOf(ys), mean, std}
	},
}

// Exponential is exp(p0 + p1 * x).
var Exponential = Model{
	Name:      "expo",
	NumParams: 2, //nolint:mnd // Constant, slope.
	Eval: func(x float64, p []float64) float64 {
		return math.Exp(p[0] + p[1]*x)
	},
	Guess: func(xs, ys []float64) []float64 {
		alpha, beta := logRegression(xs, ys, false)

		return []float64{alpha, beta}
	},
}

// PowerLaw is p0 * x^p1, defined for x > 0.
var PowerLaw = Model{
	Name:      "powerlaw",
	NumParams: 2, //nolint:mnd // Norm, index.
	Eval: func(x float64, p []float64) float64 {
		return p[0] * math.Pow(x, p[1])
	},
	Guess: func(xs, ys []float64) []float64 {
		alpha, beta := logRegression(xs, ys, true)

		return []float64{math.Exp(alpha), beta}
	},
	Accepts: func(x float64) bool {
		return x > 0
	},
}

// FitResult holds the outcome of a chi-square fit.
type FitResult struct {
	// Params are the best-fit parameters.
	Params []float64
	// Errors are the parameter uncertainties, NaN when unavailable.
	Errors []float64
	// Chi2 is the chi-square at the minimum.
	Chi2 float64
	// NDF is the number of degrees of freedom.
	NDF int
}

// ReducedChi2 returns Chi2/NDF, or 0 when there are no degrees of freedom.
func (r FitResult) ReducedChi2() float64 {
	if r.NDF <= 0 {
		return 0
	}

	return r.Chi2 / float64(r.NDF)
}

// Fit fits model to the bins of the current range, using the bin content
// as variance. Empty bins are skipped. When there are no degrees of freedom
// left the returned result carries the NDF along with ErrDegenerateFit.
func (h *Histogram) Fit(model Model) (FitResult, error) {
	var xs, ys []float64

	for i := h.first; i <= h.last; i++ {
		x, y := h.BinCenter(i), h.contents[i]
		if y <= 0 {
			continue
		}

		if model.Accepts != nil && !model.Accepts(x) {
			continue
		}

		xs = append(xs, x)
		ys = append(ys, y)
	}

	if len(xs) == 0 {
		return FitResult{}, fmt.Errorf("%w: no points to fit %s on %s bins [%d, %d]",
			ErrEmptyRange, model.Name, h.name, h.first, h.last)
	}

	result := FitResult{NDF: len(xs) - model.NumParams}
	if result.NDF <= 0 {
		return result, fmt.Errorf("%w: %d points for %d parameters of %s on %s",
			ErrDegenerateFit, len(xs), model.NumParams, model.Name, h.name)
	}

	chi2 := func(p []float64) float64 {
		var sum float64

		for i, x := range xs {
			d := ys[i] - model.Eval(x, p)
			sum += d * d / ys[i]
		}

		if math.IsNaN(sum) || math.IsInf(sum, 0) {
			return penalty
		}

		return sum
	}

	settings := &optimize.Settings{
		MajorIterations: 10000, //nolint:mnd // Generous for small parameter counts.
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-9, //nolint:mnd // Chi-square tolerance.
			Relative:   1e-9, //nolint:mnd // Chi-square tolerance.
			Iterations: 200,  //nolint:mnd // Iterations without improvement.
		},
	}

	minimum, err := optimize.Minimize(optimize.Problem{Func: chi2}, model.Guess(xs, ys), settings, &optimize.NelderMead{})
	if minimum == nil || minimum.F >= penalty {
		return result, fmt.Errorf("%w: %s on %s: %v", ErrFitFailed, model.Name, h.name, err)
	}

	result.Params = minimum.X
	result.Chi2 = minimum.F
	result.Errors = parameterErrors(chi2, minimum.X)

	return result, nil
}

// parameterErrors estimates uncertainties from the inverse of half the
// chi-square Hessian at the minimum.
func parameterErrors(chi2 func([]float64) float64, x []float64) []float64 {
	n := len(x)
	errs := make([]float64, n)

	for i := range errs {
		errs[i] = math.NaN()
	}

	hess := mat.NewSymDense(n, nil)
	fd.Hessian(hess, chi2, x, nil)

	var cov mat.Dense
	if err := cov.Inverse(hess); err != nil {
		return errs
	}

	for i := range n {
		if v := 2 * cov.At(i, i); v > 0 { //nolint:mnd // Covariance is twice the inverse Hessian of chi2.
			errs[i] = math.Sqrt(v)
		}
	}

	return errs
}

// logRegression fits log(y) = alpha + beta * x, or log(y) = alpha + beta *
// log(x) when logX is set, weighting points by their content.
func logRegression(xs, ys []float64, logX bool) (float64, float64) {
	lx := make([]float64, 0, len(xs))
	ly := make([]float64, 0, len(ys))
	w := make([]float64, 0, len(ys))

	for i, x := range xs {
		if logX {
			x = math.Log(x)
		}

		lx = append(lx, x)
		ly = append(ly, math.Log(ys[i]))
		w = append(w, ys[i])
	}

	if len(lx) < 2 { //nolint:mnd // A line needs two points.
		return 0, 0
	}

	return stat.LinearRegression(lx, ly, w, false)
}

// maxOf returns the largest value of a non-empty slice.
func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		m = max(m, v)
	}

	return m
}
