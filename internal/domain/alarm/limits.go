package alarm

import (
	"fmt"
	"math"
	"strconv"
)

// Limits is the four-threshold range model used to classify a value.
// The zero value is not valid; use NewLimits.
type Limits struct {
	// ErrorMin is the lower error threshold.
	ErrorMin float64
	// WarningMin is the lower warning threshold.
	WarningMin float64
	// WarningMax is the upper warning threshold.
	WarningMax float64
	// ErrorMax is the upper error threshold.
	ErrorMax float64
}

// NewLimits validates the thresholds and returns the limits.
// Ties are allowed; errorMin <= warningMin <= warningMax <= errorMax must hold.
func NewLimits(errorMin, warningMin, warningMax, errorMax float64) (Limits, error) {
	l := Limits{
		ErrorMin:   errorMin,
		WarningMin: warningMin,
		WarningMax: warningMax,
		ErrorMax:   errorMax,
	}

	if err := l.Validate(); err != nil {
		return Limits{}, err
	}

	return l, nil
}

// Validate checks the ordering of the thresholds.
func (l Limits) Validate() error {
	for _, v := range []float64{l.ErrorMin, l.WarningMin, l.WarningMax, l.ErrorMax} {
		if math.IsNaN(v) {
			return fmt.Errorf("%w: limits %s contain NaN", ErrConfiguration, l)
		}
	}

	switch {
	case l.ErrorMin > l.WarningMin:
		return fmt.Errorf("%w: error min %g higher than warning min %g", ErrConfiguration, l.ErrorMin, l.WarningMin)
	case l.WarningMax > l.ErrorMax:
		return fmt.Errorf("%w: warning max %g higher than error max %g", ErrConfiguration, l.WarningMax, l.ErrorMax)
	case l.WarningMin > l.WarningMax:
		return fmt.Errorf("%w: warning min %g higher than warning max %g",
			ErrConfiguration, l.WarningMin, l.WarningMax)
	}

	return nil
}

// Classify returns the status of value given a symmetric error bar.
// The value is an ERROR only when the whole window [value-errorBar,
// value+errorBar] lies outside the error limits, and a WARNING when it lies
// outside the warning limits.
func (l Limits) Classify(value, errorBar float64) Status {
	if math.IsNaN(value) {
		return StatusUndefined
	}

	lo, hi := window(value, errorBar)

	switch {
	case hi < l.ErrorMin || lo > l.ErrorMax:
		return StatusError
	case hi < l.WarningMin || lo > l.WarningMax:
		return StatusWarning
	default:
		return StatusClean
	}
}

// Badness scores how far value lies past the warning limits.
//
// Past a warning bound the score is the distance from that bound divided by
// the margin between the warning and the error threshold on the same side,
// so 1 means "at the error threshold". With a zero margin the raw distance
// is used. Inside the warning window the score is minus the distance to the
// nearest warning bound divided by half the window width (raw when the
// window is a single point), i.e. it lies in [-1, 0].
// The error bar moves the value towards the window before scoring.
func (l Limits) Badness(value, errorBar float64) float64 {
	if math.IsNaN(value) {
		return math.NaN()
	}

	lo, hi := window(value, errorBar)

	switch {
	case lo > l.WarningMax:
		return ratio(lo-l.WarningMax, l.ErrorMax-l.WarningMax)
	case hi < l.WarningMin:
		return ratio(l.WarningMin-hi, l.WarningMin-l.ErrorMin)
	}

	inner := math.Max(0, math.Min(value-l.WarningMin, l.WarningMax-value))

	return -ratio(inner, (l.WarningMax-l.WarningMin)/2) //nolint:mnd // Half width.
}

// Scaled returns a copy with all four thresholds multiplied by factor.
// The receiver is left untouched, so repeated scaling never accumulates.
func (l Limits) Scaled(factor float64) (Limits, error) {
	if math.IsNaN(factor) || factor < 0 {
		return Limits{}, fmt.Errorf("%w: invalid limits scale factor %g", ErrConfiguration, factor)
	}

	return NewLimits(l.ErrorMin*factor, l.WarningMin*factor, l.WarningMax*factor, l.ErrorMax*factor)
}

// String renders the limits as [errorMin/warningMin; warningMax/errorMax].
func (l Limits) String() string {
	return fmt.Sprintf("[%s/%s; %s/%s]",
		FormatNumber(l.ErrorMin), FormatNumber(l.WarningMin),
		FormatNumber(l.WarningMax), FormatNumber(l.ErrorMax))
}

// FormatNumber renders a float compactly for summaries.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64) //nolint:mnd // Six significant digits.
}

// window returns [value-errorBar, value+errorBar], ignoring negative or NaN bars.
func window(value, errorBar float64) (float64, float64) {
	if math.IsNaN(errorBar) || errorBar < 0 {
		errorBar = 0
	}

	return value - errorBar, value + errorBar
}

// ratio divides distance by margin, falling back to the raw distance for
// degenerate (zero) margins.
func ratio(distance, margin float64) float64 {
	if margin == 0 {
		return distance
	}

	return distance / margin
}
