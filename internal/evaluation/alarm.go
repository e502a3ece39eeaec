package evaluation

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/oshokin/latmon/internal/algorithm"
	"github.com/oshokin/latmon/internal/domain/alarm"
	"github.com/oshokin/latmon/internal/histogram"
	"github.com/oshokin/latmon/internal/logger"
)

// errPanic marks a recovered algorithm panic.
var errPanic = errors.New("algorithm panicked")

// Alarm binds a definition to one histogram.
type Alarm struct {
	// Definition is the configured alarm.
	Definition *Definition
	// Histogram is the bound data object.
	Histogram *histogram.Histogram
	// Algorithm is the resolved algorithm, nil when the name is unknown.
	Algorithm algorithm.Algorithm
	// Exceptions are the exemptions consulted for worst-offender selection
	// and status rollups.
	Exceptions *alarm.ExceptionList
}

// Name returns the alarm name, which is the histogram name.
func (a *Alarm) Name() string {
	return a.Histogram.Name()
}

// Evaluate runs the algorithm and classifies its output. It never fails and
// never panics: any problem becomes an UNDEFINED result with a diagnostic.
func (a *Alarm) Evaluate(ctx context.Context) alarm.Result {
	def := a.Definition
	result := alarm.Result{
		Set:        def.Set,
		Alarm:      a.Name(),
		Algorithm:  def.Algorithm,
		Parameters: def.Parameters,
		Rollup:     alarm.StatusUndefined,
	}

	ctx = logger.WithFields(ctx,
		"set", def.Set,
		"alarm", a.Name(),
		"algorithm", def.Algorithm,
		"plot", a.Histogram.Name(),
	)

	output, limits, warnings, err := a.evaluate(ctx)

	result.Limits = limits
	result.Warnings = warnings

	for _, w := range warnings {
		logger.WarnKV(ctx, "Alarm parameter ignored", "warning", w)
	}

	if err != nil {
		logger.WarnKV(ctx, "Alarm evaluation failed", "error", err)

		result.Output = alarm.UndefinedOutput(err.Error())
		result.Diagnostic = err.Error()

		return result
	}

	result.Output = output
	if output.Status() == alarm.StatusUndefined {
		result.Diagnostic = output.Reason()
	}

	result.Rollup = a.Exceptions.RollupStatus(a.Name(), def.Algorithm, output.Status())

	logger.DebugKV(ctx, "Alarm evaluated",
		"value", output.Value(),
		"status", output.Status(),
		"rollup", result.Rollup,
	)

	return result
}

// evaluate does the work of Evaluate and converts panics into errors.
func (a *Alarm) evaluate(ctx context.Context) (out alarm.Output, limits alarm.Limits, warnings []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorKV(ctx, "Recovered algorithm panic", "panic", r, "stack", string(debug.Stack()))

			err = fmt.Errorf("%w: %v", errPanic, r)
		}
	}()

	def := a.Definition
	if def.Err != nil {
		return alarm.Output{}, alarm.Limits{}, nil, def.Err
	}

	if a.Algorithm == nil {
		return alarm.Output{}, alarm.Limits{}, nil, fmt.Errorf("%w: %q", alarm.ErrUnknownAlgorithm, def.Algorithm)
	}

	params, err := algorithm.ParseParams(def.RawParameters())
	if err != nil {
		return alarm.Output{}, alarm.Limits{}, nil, fmt.Errorf("%w: %w", alarm.ErrConfiguration, err)
	}

	params, warnings, err = algorithm.Prepare(a.Algorithm, a.Histogram, params)
	if err != nil {
		return alarm.Output{}, alarm.Limits{}, nil, err
	}

	limits, err = def.Limits.Resolve(a.Histogram)
	if err != nil {
		return alarm.Output{}, alarm.Limits{}, warnings, err
	}

	in := &algorithm.Input{
		Histogram: a.Histogram,
		Params:    params,
		Limits:    limits,
		Exempt:    a.Exceptions.Exemptor(a.Name(), def.Algorithm),
	}

	out, err = a.Algorithm.Run(ctx, in)
	if err != nil {
		return alarm.Output{}, limits, warnings, err
	}

	return out.Classified(limits), limits, warnings, nil
}
