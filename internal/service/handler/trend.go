package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/oshokin/latmon/internal/config"
	"github.com/oshokin/latmon/internal/domain/alarm"
	"github.com/oshokin/latmon/internal/report"
	"github.com/oshokin/latmon/internal/repository/trend"
)

// TrendOptions controls the trend subcommand.
type TrendOptions struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// TrendDB overrides the trend database path.
	TrendDB string
	// Alarm is the alarm (plot) name, or a pattern with Distribution.
	Alarm string
	// Algorithm is the algorithm name.
	Algorithm string
	// Limit caps the number of samples; zero prints the whole history.
	Limit int
	// Distribution prints the binned outputs across plots matching Alarm.
	Distribution bool
	// Bins is the number of distribution bins.
	Bins int
	// Min is the low edge of the distribution.
	Min float64
	// Max is the high edge of the distribution.
	Max float64
}

var (
	// errNoTrendDB is returned when no trend database is configured.
	errNoTrendDB = errors.New("no trend database configured")
	// errTrendQuery is returned when the alarm or algorithm is missing.
	errTrendQuery = errors.New("alarm and algorithm must be provided")
)

// RunTrend prints the output series of one alarm, or the distribution of an
// algorithm's outputs across plots.
func RunTrend(ctx context.Context, opts *TrendOptions, w io.Writer) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	path := cfg.TrendDB
	if opts.TrendDB != "" {
		path = opts.TrendDB
	}

	switch {
	case path == "":
		return errNoTrendDB
	case opts.Alarm == "" || opts.Algorithm == "":
		return errTrendQuery
	}

	store, err := trend.Open(ctx, path)
	if err != nil {
		return err
	}

	defer func() { _ = store.Close() }()

	if opts.Distribution {
		return printDistribution(ctx, store, opts, w)
	}

	samples, err := store.Series(ctx, opts.Alarm, opts.Algorithm, opts.Limit)
	if err != nil {
		return err
	}

	return PrintSeries(w, samples)
}

// PrintSeries writes one aligned line per sample.
func PrintSeries(w io.Writer, samples []trend.Sample) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0) //nolint:mnd // column padding

	_, _ = fmt.Fprintln(tw, "TIME\tRUN\tSTATUS\tVALUE\tERROR")

	for _, s := range samples {
		value, bar := "-", "-"
		if s.Defined {
			value = alarm.FormatNumber(s.Value)
		}

		if s.HasError {
			bar = alarm.FormatNumber(s.Error)
		}

		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			s.Time.Format(report.TimeLayout), s.RunID, s.Status, value, bar)
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write series: %w", err)
	}

	return nil
}

// printDistribution writes the non-empty bins of the output distribution.
func printDistribution(ctx context.Context, store *trend.Store, opts *TrendOptions, w io.Writer) error {
	dist, err := store.OutputDistribution(ctx, trend.DistributionOptions{
		Pattern:   opts.Alarm,
		Algorithm: opts.Algorithm,
		Bins:      opts.Bins,
		Min:       opts.Min,
		Max:       opts.Max,
	})
	if err != nil {
		return err
	}

	h := dist.Histogram

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0) //nolint:mnd // column padding

	_, _ = fmt.Fprintf(tw, "%s: %d matches, %d defined, run %s\n", h.Name(), dist.Matches, dist.Defined, dist.RunID)
	_, _ = fmt.Fprintln(tw, "LOW\tHIGH\tCOUNT")

	if under := h.BinContent(0); under > 0 {
		_, _ = fmt.Fprintf(tw, "-inf\t%s\t%s\n", alarm.FormatNumber(h.BinLowEdge(1)), alarm.FormatNumber(under))
	}

	for i := 1; i <= h.NumBins(); i++ {
		if c := h.BinContent(i); c > 0 {
			low := h.BinLowEdge(i)
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n",
				alarm.FormatNumber(low), alarm.FormatNumber(low+h.BinWidth()), alarm.FormatNumber(c))
		}
	}

	if over := h.BinContent(h.NumBins() + 1); over > 0 {
		_, xmax := h.NativeRange()
		_, _ = fmt.Fprintf(tw, "%s\t+inf\t%s\n", alarm.FormatNumber(xmax), alarm.FormatNumber(over))
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write distribution: %w", err)
	}

	return nil
}
