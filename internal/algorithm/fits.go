package algorithm

import (
	"context"
	"errors"
	"math"

	"github.com/oshokin/latmon/internal/domain/alarm"
	"github.com/oshokin/latmon/internal/histogram"
)

// Fit defaults.
const (
	// defaultNumSigma is the default error multiplier.
	defaultNumSigma = 1.0
	// defaultNumIterations is the default number of peak refinement passes.
	defaultNumIterations = 2
	// defaultFitRangeWidth is the default peak window half-width in sigmas.
	defaultFitRangeWidth = 2.0
)

// Detail names of fitting variants.
const (
	// DetailReducedChi2 is the chi-square per degree of freedom.
	DetailReducedChi2 = "reduced_chi2"
	// DetailNDOF is the number of degrees of freedom.
	DetailNDOF = "ndof"
)

// Fit parameter indices.
const (
	gaussNorm     = 0
	gaussMean     = 1
	gaussSigma    = 2
	expoSlope     = 1
	powerLawIndex = 1
)

// fitParameter fits model over the user range and reports parameter index.
func fitParameter(model histogram.Model, index int) runFunc {
	return func(_ context.Context, in *Input) (alarm.Output, error) {
		numSigma, err := in.Params.Float(ParamNumSigma, defaultNumSigma)
		if err != nil {
			return alarm.Output{}, err
		}

		var res histogram.FitResult

		err = in.withUserRange(func() error {
			res, err = in.Histogram.Fit(model)

			return err
		})

		switch {
		case errors.Is(err, histogram.ErrDegenerateFit):
			return degenerateFit(res), nil
		case err != nil:
			return alarm.Output{}, computation(model.Name, err)
		}

		value := res.Params[index]
		if index == gaussSigma && model.Name == histogram.Gaussian.Name {
			value = math.Abs(value)
		}

		return fitOutput(value, res.Errors[index], numSigma, res), nil
	}
}

// peakEstimate picks the reported quantity of a peak fit.
type peakEstimate int

const (
	// peakMean reports the fitted peak position.
	peakMean peakEstimate = iota
	// peakSigma reports the fitted peak width.
	peakSigma
)

// peak fits a Gaussian to the main peak. Each pass re-centers the window on
// mean ± fit_range_width × sigma of the previous pass, starting from the
// moments of the user range.
func peak(estimate peakEstimate) runFunc {
	return func(_ context.Context, in *Input) (alarm.Output, error) {
		numSigma, err := in.Params.Float(ParamNumSigma, defaultNumSigma)
		if err != nil {
			return alarm.Output{}, err
		}

		iterations, err := in.Params.Int(ParamNumIterations, defaultNumIterations)
		if err != nil {
			return alarm.Output{}, err
		}

		width, err := in.Params.Float(ParamFitRangeWidth, defaultFitRangeWidth)
		if err != nil {
			return alarm.Output{}, err
		}

		switch {
		case iterations < 1:
			return alarm.Output{}, errNonPositive(ParamNumIterations)
		case width <= 0:
			return alarm.Output{}, errNonPositive(ParamFitRangeWidth)
		}

		var mean, sigma float64

		err = in.withUserRange(func() error {
			if mean, err = in.Histogram.Mean(); err != nil {
				return err
			}

			sigma, err = in.Histogram.RMS()

			return err
		})
		if err != nil {
			return alarm.Output{}, computation("peak", err)
		}

		var res histogram.FitResult

		for range iterations {
			err = in.Histogram.WithRange(mean-width*sigma, mean+width*sigma, func() error {
				res, err = in.Histogram.Fit(histogram.Gaussian)

				return err
			})

			switch {
			case errors.Is(err, histogram.ErrDegenerateFit):
				return degenerateFit(res), nil
			case err != nil:
				return alarm.Output{}, computation("peak", err)
			}

			mean, sigma = res.Params[gaussMean], math.Abs(res.Params[gaussSigma])
		}

		if estimate == peakSigma {
			return fitOutput(sigma, res.Errors[gaussSigma], numSigma, res), nil
		}

		return fitOutput(mean, res.Errors[gaussMean], numSigma, res), nil
	}
}

// fitOutput builds the output of a successful fit.
func fitOutput(value, fitError, numSigma float64, res histogram.FitResult) alarm.Output {
	out := alarm.NewOutput(value)
	if !math.IsNaN(fitError) {
		out = out.WithError(fitError * numSigma)
	}

	return out.
		WithDetail(DetailReducedChi2, res.ReducedChi2()).
		WithDetail(DetailNDOF, res.NDF)
}

// degenerateFit is the output of a fit without degrees of freedom.
func degenerateFit(res histogram.FitResult) alarm.Output {
	return alarm.UndefinedOutput("fit has no degrees of freedom").
		WithDetail(DetailReducedChi2, 0.0).
		WithDetail(DetailNDOF, res.NDF)
}
