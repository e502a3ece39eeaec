package evaluation

import (
	"fmt"

	"github.com/oshokin/latmon/internal/domain/alarm"
	"github.com/oshokin/latmon/internal/histogram"
)

// LimitExpressions are the four thresholds as written in the configuration.
type LimitExpressions struct {
	// ErrorMin is the lower error threshold.
	ErrorMin string
	// WarningMin is the lower warning threshold.
	WarningMin string
	// WarningMax is the upper warning threshold.
	WarningMax string
	// ErrorMax is the upper error threshold.
	ErrorMax string
}

// Resolve evaluates the expressions against h and builds validated limits.
// Failures wrap alarm.ErrConfiguration.
func (e LimitExpressions) Resolve(h *histogram.Histogram) (alarm.Limits, error) {
	resolve := histogramResolver(h)
	texts := [4]string{e.ErrorMin, e.WarningMin, e.WarningMax, e.ErrorMax}

	var values [4]float64

	for i, text := range texts {
		expr, err := ParseExpression(text)
		if err != nil {
			return alarm.Limits{}, fmt.Errorf("%w: %w", alarm.ErrConfiguration, err)
		}

		if values[i], err = expr.Eval(resolve); err != nil {
			return alarm.Limits{}, fmt.Errorf("%w: limit %q: %w", alarm.ErrConfiguration, text, err)
		}
	}

	return alarm.NewLimits(values[0], values[1], values[2], values[3])
}

// String renders the expressions the way limits are printed.
func (e LimitExpressions) String() string {
	return fmt.Sprintf("[%s/%s; %s/%s]", e.ErrorMin, e.WarningMin, e.WarningMax, e.ErrorMax)
}

// histogramResolver binds the placeholders to the full range of h.
func histogramResolver(h *histogram.Histogram) Resolver {
	return func(name string) (float64, error) {
		switch name {
		case PlaceholderMean:
			return h.Mean()
		case PlaceholderRMS:
			return h.RMS()
		case PlaceholderEntries:
			return h.Entries(), nil
		default:
			return 0, fmt.Errorf("%w: unknown placeholder %s", errExpression, name)
		}
	}
}

// Definition is one configured alarm before it is bound to histograms.
type Definition struct {
	// List is the name of the enclosing alarm list.
	List string
	// Group is the group of the enclosing alarm list.
	Group string
	// Set is the alarm set name, which is also the plot name pattern.
	Set string
	// Algorithm is the algorithm name.
	Algorithm string
	// Parameters are the raw parameters in declaration order.
	Parameters []alarm.Parameter
	// Limits are the threshold expressions.
	Limits LimitExpressions
	// Index is the declaration position inside the set.
	Index int
	// Err is a configuration error found while reading the definition.
	// Such definitions are reported but never evaluated.
	Err error
}

// RawParameters returns the parameters as a map of literals.
func (d *Definition) RawParameters() map[string]string {
	raw := make(map[string]string, len(d.Parameters))
	for _, p := range d.Parameters {
		raw[p.Name] = p.Value
	}

	return raw
}
