package algorithm

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/oshokin/latmon/internal/domain/alarm"
	"github.com/oshokin/latmon/internal/histogram"
)

// Algorithm computes one Output from a histogram.
type Algorithm interface {
	// Name returns the configuration name of the algorithm.
	Name() string
	// SupportedTypes lists the histogram types the algorithm accepts.
	SupportedTypes() []string
	// SupportedParameters lists the accepted parameter names.
	SupportedParameters() []string
	// Run computes the output. Computation failures wrap alarm.ErrComputation.
	Run(ctx context.Context, in *Input) (alarm.Output, error)
}

// Input is everything an algorithm needs for one run.
type Input struct {
	// Histogram is the data object under evaluation.
	Histogram *histogram.Histogram
	// Params are the validated parameters.
	Params Params
	// Limits are the resolved thresholds.
	Limits alarm.Limits
	// Exempt reports whether an identifier is excluded from worst-offender
	// selection. Nil exempts nothing.
	Exempt func(identifier string) bool
}

// isExempt applies the exemption predicate.
func (in *Input) isExempt(identifier string) bool {
	return in.Exempt != nil && in.Exempt(identifier)
}

// userRange returns the [min, max] parameters, defaulting to the native range.
func (in *Input) userRange() (float64, float64, error) {
	lo, hi := in.Histogram.NativeRange()

	lo, err := in.Params.Float(ParamMin, lo)
	if err != nil {
		return 0, 0, err
	}

	hi, err = in.Params.Float(ParamMax, hi)
	if err != nil {
		return 0, 0, err
	}

	return lo, hi, nil
}

// withUserRange runs fn with the histogram restricted to the user range.
func (in *Input) withUserRange(fn func() error) error {
	lo, hi, err := in.userRange()
	if err != nil {
		return err
	}

	return in.Histogram.WithRange(lo, hi, fn)
}

// runFunc is the body of a variant.
type runFunc func(ctx context.Context, in *Input) (alarm.Output, error)

// variant is the shared implementation of the built-in algorithms.
type variant struct {
	// name is the configuration name.
	name string
	// types are the accepted histogram types.
	types []string
	// params are the accepted parameter names.
	params []string
	// run computes the output.
	run runFunc
}

// Name implements Algorithm.
func (v *variant) Name() string {
	return v.name
}

// SupportedTypes implements Algorithm.
func (v *variant) SupportedTypes() []string {
	return slices.Clone(v.types)
}

// SupportedParameters implements Algorithm.
func (v *variant) SupportedParameters() []string {
	return slices.Clone(v.params)
}

// Run implements Algorithm.
func (v *variant) Run(ctx context.Context, in *Input) (alarm.Output, error) {
	if err := ctx.Err(); err != nil {
		return alarm.Output{}, err
	}

	return v.run(ctx, in)
}

// Prepare checks that alg can run on h and drops the parameters alg does
// not know. An unsupported type fails with alarm.ErrUnsupportedType. Each
// dropped parameter is returned as a warning so the alarm can run with its
// defaults.
func Prepare(alg Algorithm, h *histogram.Histogram, params Params) (Params, []string, error) {
	if !slices.Contains(alg.SupportedTypes(), h.Type()) {
		return nil, nil, fmt.Errorf("%w: %s cannot run on %s (%s)",
			alarm.ErrUnsupportedType, alg.Name(), h.Name(), h.Type())
	}

	supported := alg.SupportedParameters()
	accepted := make(Params, len(params))

	var warnings []string

	for _, name := range params.Names() {
		if !slices.Contains(supported, name) {
			warnings = append(warnings, fmt.Errorf("%w: %s does not accept %q, ignored",
				alarm.ErrInvalidParameter, alg.Name(), name).Error())

			continue
		}

		accepted[name] = params[name]
	}

	sort.Strings(warnings)

	return accepted, warnings, nil
}

// computation wraps an error raised while computing an output.
func computation(name string, err error) error {
	return fmt.Errorf("%w: %s: %w", alarm.ErrComputation, name, err)
}

// errNonPositive reports a parameter that must be strictly positive.
func errNonPositive(name string) error {
	return fmt.Errorf("%w: %s must be positive", alarm.ErrInvalidParameter, name)
}
