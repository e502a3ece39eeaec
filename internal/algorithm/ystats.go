package algorithm

import (
	"context"
	"math"
	"slices"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/oshokin/latmon/internal/domain/alarm"
)

// reasonNoEligibleBins is the undefined reason of empty y statistics.
const reasonNoEligibleBins = "no eligible bins"

// yAverage is the mean of the contents of the bins whose centers lie
// strictly inside (min, max), minus the excluded bins.
func yAverage(_ context.Context, in *Input) (alarm.Output, error) {
	contents, err := eligibleContents(in)
	if err != nil {
		return alarm.Output{}, err
	}

	if len(contents) == 0 {
		return alarm.UndefinedOutput(reasonNoEligibleBins), nil
	}

	return alarm.NewOutput(stat.Mean(contents, nil)).WithDetail("num_bins", len(contents)), nil
}

// yRMS is the population standard deviation of the same contents yAverage uses.
func yRMS(_ context.Context, in *Input) (alarm.Output, error) {
	contents, err := eligibleContents(in)
	if err != nil {
		return alarm.Output{}, err
	}

	if len(contents) == 0 {
		return alarm.UndefinedOutput(reasonNoEligibleBins), nil
	}

	_, std := stat.PopMeanStdDev(contents, nil)

	return alarm.NewOutput(std).WithDetail("num_bins", len(contents)), nil
}

// eligibleContents collects the contents selected by min, max and exclude.
func eligibleContents(in *Input) ([]float64, error) {
	lo, err := in.Params.Float(ParamMin, math.Inf(-1))
	if err != nil {
		return nil, err
	}

	hi, err := in.Params.Float(ParamMax, math.Inf(1))
	if err != nil {
		return nil, err
	}

	exclude, err := in.Params.Ints(ParamExclude)
	if err != nil {
		return nil, err
	}

	h := in.Histogram

	var contents []float64

	for bin := 1; bin <= h.NumBins(); bin++ {
		center := h.BinCenter(bin)
		if center <= lo || center >= hi || slices.Contains(exclude, bin) {
			continue
		}

		contents = append(contents, h.BinContent(bin))
	}

	return contents, nil
}

// yValues checks every bin content against the limits and reports the
// content of the worst bin. Exempted bins are listed with the others but
// never selected as worst.
// With normalize set, a copy of the limits is scaled by the entry count.
func yValues(_ context.Context, in *Input) (alarm.Output, error) {
	normalize, err := in.Params.Bool(ParamNormalize, false)
	if err != nil {
		return alarm.Output{}, err
	}

	limits := in.Limits
	if normalize {
		if limits, err = in.Limits.Scaled(in.Histogram.Entries()); err != nil {
			return alarm.Output{}, computation("y_values", err)
		}
	}

	var scan binScan

	err = in.withUserRange(func() error {
		scan = scanBins(in, limits)

		return nil
	})
	if err != nil {
		return alarm.Output{}, computation("y_values", err)
	}

	out := alarm.NewOutput(0)
	status := alarm.StatusClean

	if scan.worst.Bin > 0 {
		out = alarm.NewOutput(scan.worst.Value).WithDetail("worst_bin", scan.worst.Bin)
		status = limits.Classify(scan.worst.Value, 0)
	}

	out = out.
		WithDetail("num_warning_points", len(scan.warnings)).
		WithDetail("num_error_points", len(scan.errors)).
		WithDetail("warning_points", scan.warnings).
		WithDetail("error_points", scan.errors).
		WithDetail("num_exempt_bins", scan.exempt).
		WithDetail("exempt_points", scan.exemptPoints)

	if normalize {
		out = out.WithDetail("effective_limits", limits.String())
	}

	return out.WithStatus(status), nil
}

// binScan is the outcome of a y_values pass.
type binScan struct {
	// worst is the non-exempt bin with the highest badness; Bin is 0 when none.
	worst alarm.Point
	// warnings are the bins in the warning band, exempt or not.
	warnings []alarm.Point
	// errors are the bins past the error limits, exempt or not.
	errors []alarm.Point
	// exemptPoints are the exempted bins outside the warning window.
	exemptPoints []alarm.Point
	// exempt counts the exempted bins seen.
	exempt int
}

// scanBins walks the current range once. Every bin is classified; exempted
// bins only stay out of the worst selection.
func scanBins(in *Input, limits alarm.Limits) binScan {
	var (
		h          = in.Histogram
		first, end = h.Range()
		scan       binScan
		worstScore = math.Inf(-1)
	)

	for bin := first; bin <= end; bin++ {
		p := alarm.Point{Bin: bin, Center: h.BinCenter(bin), Value: h.BinContent(bin)}
		exempt := in.isExempt(strconv.Itoa(bin))

		status := limits.Classify(p.Value, 0)
		switch status {
		case alarm.StatusError:
			scan.errors = append(scan.errors, p)
		case alarm.StatusWarning:
			scan.warnings = append(scan.warnings, p)
		default:
		}

		if exempt {
			scan.exempt++

			if status != alarm.StatusClean {
				scan.exemptPoints = append(scan.exemptPoints, p)
			}

			continue
		}

		if badness := limits.Badness(p.Value, 0); badness > worstScore {
			worstScore = badness
			scan.worst = p
		}
	}

	return scan
}
