package algorithm

import (
	"context"

	"github.com/oshokin/latmon/internal/domain/alarm"
)

// undefinedBin is reported by x_max_minus_min_bin when nothing is populated.
const undefinedBin = -1

// xAverage is the content-weighted mean of the bin centers.
func xAverage(_ context.Context, in *Input) (alarm.Output, error) {
	var mean float64

	err := in.withUserRange(func() error {
		var err error

		mean, err = in.Histogram.Mean()

		return err
	})
	if err != nil {
		return alarm.Output{}, computation("x_average", err)
	}

	return alarm.NewOutput(mean), nil
}

// xRMS is the content-weighted standard deviation of the bin centers.
func xRMS(_ context.Context, in *Input) (alarm.Output, error) {
	var rms float64

	err := in.withUserRange(func() error {
		var err error

		rms, err = in.Histogram.RMS()

		return err
	})
	if err != nil {
		return alarm.Output{}, computation("x_rms", err)
	}

	return alarm.NewOutput(rms), nil
}

// numEntries is the number of entries, or the integral of the range when
// min or max is set.
func numEntries(_ context.Context, in *Input) (alarm.Output, error) {
	if !in.Params.Has(ParamMin) && !in.Params.Has(ParamMax) {
		return alarm.NewOutput(in.Histogram.Entries()), nil
	}

	var integral float64

	err := in.withUserRange(func() error {
		integral = in.Histogram.Integral()

		return nil
	})
	if err != nil {
		return alarm.Output{}, computation("num_entries", err)
	}

	return alarm.NewOutput(integral).WithDetail("range_integral", true), nil
}

// xMinBin is the center of the first bin starting a run of
// num_adjacent_bins populated bins.
func xMinBin(_ context.Context, in *Input) (alarm.Output, error) {
	return populatedRun(in, true)
}

// xMaxBin is the center of the last bin ending a run of num_adjacent_bins
// populated bins.
func xMaxBin(_ context.Context, in *Input) (alarm.Output, error) {
	return populatedRun(in, false)
}

// populatedRun scans the current range from the left or the right for a
// run of populated bins.
func populatedRun(in *Input, fromLeft bool) (alarm.Output, error) {
	k, err := in.Params.Int(ParamNumAdjacentBins, 1)
	if err != nil {
		return alarm.Output{}, err
	}

	if k < 1 {
		return alarm.Output{}, errNonPositive(ParamNumAdjacentBins)
	}

	h := in.Histogram
	first, last := h.Range()
	run := 0

	for step := 0; step <= last-first; step++ {
		bin := first + step
		if !fromLeft {
			bin = last - step
		}

		if h.BinContent(bin) <= 0 {
			run = 0

			continue
		}

		run++
		if run < k {
			continue
		}

		edge := bin - (k - 1)
		if !fromLeft {
			edge = bin + (k - 1)
		}

		return alarm.NewOutput(h.BinCenter(edge)).WithDetail("bin", edge), nil
	}

	return alarm.UndefinedOutput("no run of populated bins"), nil
}

// xMaxMinusMinBin is the distance between the centers of the last and the
// first populated bins, or -1 when no bin is populated.
func xMaxMinusMinBin(_ context.Context, in *Input) (alarm.Output, error) {
	h := in.Histogram
	first, last := h.Range()
	lo, hi := undefinedBin, undefinedBin

	for bin := first; bin <= last; bin++ {
		if h.BinContent(bin) > 0 {
			lo = bin

			break
		}
	}

	for bin := last; bin >= first; bin-- {
		if h.BinContent(bin) > 0 {
			hi = bin

			break
		}
	}

	if lo == undefinedBin || hi == undefinedBin {
		return alarm.NewOutput(undefinedBin), nil
	}

	return alarm.NewOutput(h.BinCenter(hi) - h.BinCenter(lo)), nil
}

// xOverflow is the content of the overflow bin.
func xOverflow(_ context.Context, in *Input) (alarm.Output, error) {
	return alarm.NewOutput(in.Histogram.BinContent(in.Histogram.NumBins() + 1)), nil
}

// xUnderflow is the content of the underflow bin.
func xUnderflow(_ context.Context, in *Input) (alarm.Output, error) {
	return alarm.NewOutput(in.Histogram.BinContent(0)), nil
}
