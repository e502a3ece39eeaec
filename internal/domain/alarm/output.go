package alarm

import (
	"fmt"
	"math"
	"strings"
)

// Detail is a named auxiliary sub-result of an algorithm,
// e.g. "reduced_chi2" or the list of bins out of limits.
type Detail struct {
	// Name identifies the sub-result.
	Name string
	// Value holds a number, a string, a list or a []Point.
	Value any
}

// Point is a single bin singled out by a multi-bin algorithm.
type Point struct {
	// Bin is the bin index.
	Bin int
	// Center is the bin center on the x axis.
	Center float64
	// Value is the bin content.
	Value float64
}

// String renders the point as (bin, center, value).
func (p Point) String() string {
	return fmt.Sprintf("(%d, %s, %s)", p.Bin, FormatNumber(p.Center), FormatNumber(p.Value))
}

// DetailReason is the detail name carrying the cause of an UNDEFINED status.
const DetailReason = "undefined_reason"

// Output is the value/error/status triple produced by one algorithm run.
// It is immutable: every With* method returns a modified copy.
type Output struct {
	// value is the computed scalar.
	value float64
	// errorBar is the symmetric error on value when hasError is set.
	errorBar float64
	// hasError tells whether errorBar is meaningful.
	hasError bool
	// status is the classification of value.
	status Status
	// settled is true once status was decided.
	settled bool
	// details holds the ordered auxiliary sub-results.
	details []Detail
}

// NewOutput returns an unclassified output for value.
func NewOutput(value float64) Output {
	return Output{value: value}
}

// UndefinedOutput returns the sentinel output of a failed computation:
// value 0, status UNDEFINED and the reason as a detail.
func UndefinedOutput(reason string) Output {
	return Output{
		status:  StatusUndefined,
		settled: true,
		details: []Detail{{Name: DetailReason, Value: reason}},
	}
}

// Value returns the computed value.
func (o Output) Value() float64 {
	return o.value
}

// Error returns the error bar and whether it is set.
func (o Output) Error() (float64, bool) {
	return o.errorBar, o.hasError
}

// Status returns the classification.
func (o Output) Status() Status {
	return o.status
}

// Settled reports whether the status has been decided.
func (o Output) Settled() bool {
	return o.settled
}

// Details returns a copy of the auxiliary sub-results.
func (o Output) Details() []Detail {
	if len(o.details) == 0 {
		return nil
	}

	out := make([]Detail, len(o.details))
	copy(out, o.details)

	return out
}

// Detail returns a single sub-result by name.
func (o Output) Detail(name string) (any, bool) {
	for _, d := range o.details {
		if d.Name == name {
			return d.Value, true
		}
	}

	return nil, false
}

// Reason returns the cause of an UNDEFINED status, if any.
func (o Output) Reason() string {
	v, ok := o.Detail(DetailReason)
	if !ok {
		return ""
	}

	s, _ := v.(string)

	return s
}

// WithError returns a copy carrying the error bar.
func (o Output) WithError(errorBar float64) Output {
	o.errorBar = math.Abs(errorBar)
	o.hasError = true

	return o
}

// WithStatus returns a copy with an explicitly decided status.
func (o Output) WithStatus(status Status) Output {
	o.status = status
	o.settled = true

	return o
}

// WithDetail returns a copy with the sub-result appended or replaced.
func (o Output) WithDetail(name string, value any) Output {
	details := make([]Detail, 0, len(o.details)+1)
	replaced := false

	for _, d := range o.details {
		if d.Name == name {
			d.Value = value
			replaced = true
		}

		details = append(details, d)
	}

	if !replaced {
		details = append(details, Detail{Name: name, Value: value})
	}

	o.details = details

	return o
}

// Classified returns a copy whose status is decided by the limits,
// unless the status was already settled by the algorithm.
func (o Output) Classified(l Limits) Output {
	if o.settled {
		return o
	}

	bar := 0.0
	if o.hasError {
		bar = o.errorBar
	}

	return o.WithStatus(l.Classify(o.value, bar))
}

// TextSummary renders the output the way terminal summaries show it.
func (o Output) TextSummary(l Limits) string {
	var b strings.Builder

	b.WriteString("Output value: " + FormatNumber(o.value))

	if o.hasError {
		b.WriteString(" +/- " + FormatNumber(o.errorBar))
	}

	b.WriteString("\nLimits      : " + l.String())
	b.WriteString("\nStatus      : " + o.status.String() + "\n")

	if len(o.details) == 0 {
		return b.String()
	}

	for _, d := range o.details {
		fmt.Fprintf(&b, "%-20s: %s\n", d.Name, FormatDetail(d.Value))
	}

	return b.String()
}

// FormatDetail renders a detail value for text and XML summaries.
func FormatDetail(v any) string {
	switch value := v.(type) {
	case float64:
		return FormatNumber(value)
	case []Point:
		parts := make([]string, 0, len(value))
		for _, p := range value {
			parts = append(parts, p.String())
		}

		return "[" + strings.Join(parts, ", ") + "]"
	case []float64:
		parts := make([]string, 0, len(value))
		for _, f := range value {
			parts = append(parts, FormatNumber(f))
		}

		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(value)
	}
}
