package algorithm

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/latmon/internal/domain/alarm"
)

// Parameter names shared by several variants.
const (
	// ParamMin is the low edge of the evaluated range.
	ParamMin = "min"
	// ParamMax is the high edge of the evaluated range.
	ParamMax = "max"
	// ParamNumSigma scales fit errors.
	ParamNumSigma = "num_sigma"
	// ParamNumIterations is the number of peak refinement passes.
	ParamNumIterations = "num_iterations"
	// ParamFitRangeWidth is the half-width of the peak window in sigmas.
	ParamFitRangeWidth = "fit_range_width"
	// ParamExclude lists bin indices excluded from y statistics.
	ParamExclude = "exclude"
	// ParamNormalize scales y limits by the number of entries.
	ParamNormalize = "normalize"
	// ParamPivot splits the range of low_high_ratio.
	ParamPivot = "pivot"
	// ParamNumAdjacentBins is the run length of populated bins x_min_bin looks for.
	ParamNumAdjacentBins = "num_adjacent_bins"
	// ParamNumNeighbours is the number of bins on each side averaged by spikes_and_holes.
	ParamNumNeighbours = "num_neighbours"
	// ParamOutLowCut is the fraction of the lowest neighbours dropped before averaging.
	ParamOutLowCut = "out_low_cut"
	// ParamOutHighCut is the fraction of the highest neighbours dropped before averaging.
	ParamOutHighCut = "out_high_cut"
	// ParamWindowHalfWidth is the number of bins on each side of the edge window.
	ParamWindowHalfWidth = "window_half_width"
	// ParamThreshold is the edge significance to exceed.
	ParamThreshold = "threshold"
)

// Value is a parameter value: a number, a boolean, a list of numbers or a string.
type Value struct {
	// literal is the text the value was parsed from.
	literal string
	// parsed is a float64, bool, []float64 or string.
	parsed any
}

// ParseValue parses a parameter literal such as "1.5", "true", "[3, 7]" or "'text'".
func ParseValue(literal string) (Value, error) {
	var raw any
	if err := yaml.Unmarshal([]byte(literal), &raw); err != nil {
		return Value{}, fmt.Errorf("%w: cannot parse %q: %w", alarm.ErrInvalidParameter, literal, err)
	}

	v := Value{literal: strings.TrimSpace(literal)}

	switch typed := raw.(type) {
	case nil:
		v.parsed = ""
	case int:
		v.parsed = float64(typed)
	case float64, bool, string:
		v.parsed = typed
	case []any:
		list := make([]float64, 0, len(typed))

		for _, item := range typed {
			switch n := item.(type) {
			case int:
				list = append(list, float64(n))
			case float64:
				list = append(list, n)
			default:
				return Value{}, fmt.Errorf("%w: list %q must hold numbers", alarm.ErrInvalidParameter, literal)
			}
		}

		v.parsed = list
	default:
		return Value{}, fmt.Errorf("%w: unsupported value %q", alarm.ErrInvalidParameter, literal)
	}

	return v, nil
}

// NumberValue wraps a number.
func NumberValue(f float64) Value {
	return Value{literal: alarm.FormatNumber(f), parsed: f}
}

// String returns the literal the value was parsed from.
func (v Value) String() string {
	return v.literal
}

// Params maps parameter names to values.
type Params map[string]Value

// ParseParams parses every literal of raw.
func ParseParams(raw map[string]string) (Params, error) {
	params := make(Params, len(raw))

	for name, literal := range raw {
		v, err := ParseValue(literal)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", name, err)
		}

		params[name] = v
	}

	return params, nil
}

// Names returns the parameter names sorted.
func (p Params) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Has reports whether name is set.
func (p Params) Has(name string) bool {
	_, ok := p[name]

	return ok
}

// Float returns a numeric parameter or def when unset.
func (p Params) Float(name string, def float64) (float64, error) {
	v, ok := p[name]
	if !ok {
		return def, nil
	}

	f, ok := v.parsed.(float64)
	if !ok || math.IsNaN(f) {
		return 0, fmt.Errorf("%w: %s must be a number, got %q", alarm.ErrInvalidParameter, name, v.literal)
	}

	return f, nil
}

// Int returns an integer parameter or def when unset.
func (p Params) Int(name string, def int) (int, error) {
	f, err := p.Float(name, float64(def))
	if err != nil {
		return 0, err
	}

	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %s must be an integer, got %s", alarm.ErrInvalidParameter, name, alarm.FormatNumber(f))
	}

	return int(f), nil
}

// Bool returns a boolean parameter or def when unset.
func (p Params) Bool(name string, def bool) (bool, error) {
	v, ok := p[name]
	if !ok {
		return def, nil
	}

	b, ok := v.parsed.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s must be a boolean, got %q", alarm.ErrInvalidParameter, name, v.literal)
	}

	return b, nil
}

// Ints returns a list of integers, empty when unset. A single number is a
// list of one.
func (p Params) Ints(name string) ([]int, error) {
	v, ok := p[name]
	if !ok {
		return nil, nil
	}

	var list []float64

	switch typed := v.parsed.(type) {
	case []float64:
		list = typed
	case float64:
		list = []float64{typed}
	default:
		return nil, fmt.Errorf("%w: %s must be a list of integers, got %q", alarm.ErrInvalidParameter, name, v.literal)
	}

	out := make([]int, 0, len(list))

	for _, f := range list {
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("%w: %s holds non-integer %s", alarm.ErrInvalidParameter, name, alarm.FormatNumber(f))
		}

		out = append(out, int(f))
	}

	return out, nil
}
