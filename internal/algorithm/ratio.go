package algorithm

import (
	"context"
	"fmt"
	"math"

	"github.com/oshokin/latmon/internal/domain/alarm"
)

// lowHighRatio is the ratio of the integral in [min, pivot] to the integral
// in [pivot, max]. Bins straddling an edge contribute the fraction of their
// width inside the interval. The error assumes Poisson bin contents.
func lowHighRatio(_ context.Context, in *Input) (alarm.Output, error) {
	if !in.Params.Has(ParamPivot) {
		return alarm.UndefinedOutput("pivot point not defined"), nil
	}

	pivot, err := in.Params.Float(ParamPivot, 0)
	if err != nil {
		return alarm.Output{}, err
	}

	lo, hi, err := in.userRange()
	if err != nil {
		return alarm.Output{}, err
	}

	if pivot < lo || pivot > hi {
		return alarm.Output{}, fmt.Errorf("%w: pivot %s outside [%s, %s]", alarm.ErrInvalidParameter,
			alarm.FormatNumber(pivot), alarm.FormatNumber(lo), alarm.FormatNumber(hi))
	}

	h := in.Histogram
	width := h.BinWidth()

	var lowSum, lowVar, highSum, highVar float64

	for bin := 1; bin <= h.NumBins(); bin++ {
		edge := h.BinLowEdge(bin)
		content := h.BinContent(bin)

		lowFraction := overlap(edge, edge+width, lo, pivot) / width
		highFraction := overlap(edge, edge+width, pivot, hi) / width

		lowSum += content * lowFraction
		lowVar += content * lowFraction * lowFraction
		highSum += content * highFraction
		highVar += content * highFraction * highFraction
	}

	if lowSum <= 0 || highSum <= 0 {
		return alarm.Output{}, computation("low_high_ratio",
			fmt.Errorf("empty side: low %s, high %s", alarm.FormatNumber(lowSum), alarm.FormatNumber(highSum)))
	}

	ratio := lowSum / highSum
	ratioError := ratio * math.Sqrt(lowVar/(lowSum*lowSum)+highVar/(highSum*highSum))

	return alarm.NewOutput(ratio).
		WithError(ratioError).
		WithDetail("low_integral", lowSum).
		WithDetail("high_integral", highSum), nil
}

// overlap returns the length of the intersection of [a0, a1] and [b0, b1].
func overlap(a0, a1, b0, b1 float64) float64 {
	return math.Max(0, math.Min(a1, b1)-math.Max(a0, b0))
}
