package trend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/oshokin/latmon/internal/histogram"
)

// Distribution defaults.
const (
	DefaultDistributionBins      = 100
	DefaultDistributionMin       = 0.0
	DefaultDistributionMax       = 1.0
	DefaultDistributionUndefined = -1.0
)

// DistributionOptions select and bin the outputs of one algorithm across
// every plot matching a name pattern.
type DistributionOptions struct {
	// Pattern is the plot name pattern, "*" matching a run of digits.
	Pattern string
	// Algorithm is the algorithm name.
	Algorithm string
	// RunID selects the run; empty means the latest one.
	RunID string
	// Bins is the number of bins.
	Bins int
	// Min is the low edge of the binning.
	Min float64
	// Max is the high edge of the binning.
	Max float64
	// UndefinedValue is where undefined outputs are counted.
	UndefinedValue *float64
}

// withDefaults fills unset fields.
func (o DistributionOptions) withDefaults() DistributionOptions {
	if o.Bins <= 0 {
		o.Bins = DefaultDistributionBins
	}

	if o.Min == 0 && o.Max == 0 {
		o.Min, o.Max = DefaultDistributionMin, DefaultDistributionMax
	}

	if o.UndefinedValue == nil {
		undefined := DefaultDistributionUndefined
		o.UndefinedValue = &undefined
	}

	return o
}

// DistributionName names the histogram of a pattern, dropping wildcards.
func DistributionName(pattern string) string {
	return strings.NewReplacer("_*", "", "*", "").Replace(pattern)
}

// Distribution is the binned outputs of one algorithm across plots.
type Distribution struct {
	// Histogram holds one entry per matching plot.
	Histogram *histogram.Histogram
	// RunID is the run the outputs come from.
	RunID string
	// Matches is the number of matching plots.
	Matches int
	// Defined is the number of matches with a defined output.
	Defined int
}

// OutputDistribution fills a histogram with the outputs of one algorithm on
// every plot matching the pattern within a run. Undefined outputs are counted
// at UndefinedValue.
func (s *Store) OutputDistribution(ctx context.Context, opts DistributionOptions) (*Distribution, error) {
	opts = opts.withDefaults()

	h, err := histogram.New(DistributionName(opts.Pattern), histogram.TypeTH1F, opts.Bins, opts.Min, opts.Max)
	if err != nil {
		return nil, fmt.Errorf("create distribution: %w", err)
	}

	runID := opts.RunID
	if runID == "" {
		if runID, err = s.LatestRun(ctx); err != nil {
			return nil, err
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT alarm, value FROM alarm_outputs WHERE run_id = ? AND algorithm = ? ORDER BY alarm`,
		runID, opts.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("query outputs: %w", err)
	}

	defer func() { _ = rows.Close() }()

	dist := &Distribution{Histogram: h, RunID: runID}

	for rows.Next() {
		var (
			name  string
			value sql.NullFloat64
		)

		if err = rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan output: %w", err)
		}

		if !histogram.MatchPattern(opts.Pattern, name) {
			continue
		}

		dist.Matches++

		if !value.Valid {
			h.Fill(*opts.UndefinedValue, 1)

			continue
		}

		dist.Defined++

		h.Fill(value.Float64, 1)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outputs: %w", err)
	}

	return dist, nil
}
