package trend

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/latmon/internal/domain/alarm"
)

// openStore opens a fresh store in a temp dir.
func openStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "trend.db"))
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, store.Close()) })

	return store
}

// towerSummary builds a run with one x_average result per tower; the value
// of tower i is base+i, and tower 3 is undefined.
func towerSummary(t *testing.T, runID string, at time.Time, base float64) *alarm.Summary {
	t.Helper()

	limits, err := alarm.NewLimits(0, 0.1, 0.9, 1)
	require.NoError(t, err)

	s := &alarm.Summary{RunID: runID, Timestamp: at}

	for i := range 4 {
		output := alarm.NewOutput(base + float64(i)/10).WithError(0.01).Classified(limits)
		if i == 3 {
			output = alarm.UndefinedOutput("empty histogram")
		}

		s.Results = append(s.Results, alarm.Result{
			Set:       "Tower_*",
			Alarm:     fmt.Sprintf("Tower_%d", i),
			Algorithm: "x_average",
			Limits:    limits,
			Output:    output,
			Rollup:    output.Status(),
		})
	}

	s.Results = append(s.Results, alarm.Result{
		Set: "Other", Alarm: "Other", Algorithm: "x_average",
		Limits: limits, Output: alarm.NewOutput(0.5).Classified(limits), Rollup: alarm.StatusClean,
	})

	return s
}

// TestStore_RecordSeries records runs and reads a series back in order.
func TestStore_RecordSeries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openStore(t)
	start := time.Date(2008, 6, 11, 16, 0, 0, 0, time.UTC)

	_, err := store.LatestRun(ctx)
	require.ErrorIs(t, err, ErrNoRuns)

	for i, base := range []float64{0.2, 0.3, 0.4} {
		at := start.Add(time.Duration(i) * 500 * time.Millisecond)
		require.NoError(t, store.Record(ctx, towerSummary(t, fmt.Sprintf("run-%d", i), at, base)))
	}

	err = store.Record(ctx, towerSummary(t, "run-1", start, 0))
	require.ErrorIs(t, err, ErrDuplicateRun)

	latest, err := store.LatestRun(ctx)
	require.NoError(t, err)
	require.Equal(t, "run-2", latest)

	series, err := store.Series(ctx, "Tower_1", "x_average", 0)
	require.NoError(t, err)
	require.Len(t, series, 3)

	for i, sample := range series {
		require.Equal(t, fmt.Sprintf("run-%d", i), sample.RunID)
		require.True(t, sample.Defined)
		require.True(t, sample.HasError)
		require.Equal(t, "Tower_*", sample.Set)
		require.InDelta(t, 0.2+float64(i)/10+0.1, sample.Value, 1e-12)
		require.True(t, start.Add(time.Duration(i)*500*time.Millisecond).Equal(sample.Time))
	}

	last, err := store.Series(ctx, "Tower_1", "x_average", 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	require.Equal(t, "run-1", last[0].RunID)
	require.Equal(t, "run-2", last[1].RunID)

	undefined, err := store.Series(ctx, "Tower_3", "x_average", 1)
	require.NoError(t, err)
	require.Len(t, undefined, 1)
	require.False(t, undefined[0].Defined)
	require.Equal(t, alarm.StatusUndefined, undefined[0].Status)

	none, err := store.Series(ctx, "Tower_1", "x_rms", 0)
	require.NoError(t, err)
	require.Empty(t, none)
}

// TestStore_OutputDistribution bins outputs across matching plots.
func TestStore_OutputDistribution(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openStore(t)
	start := time.Date(2008, 6, 11, 16, 0, 0, 0, time.UTC)

	require.NoError(t, store.Record(ctx, towerSummary(t, "old", start, 0.05)))
	require.NoError(t, store.Record(ctx, towerSummary(t, "new", start.Add(time.Minute), 0.25)))

	dist, err := store.OutputDistribution(ctx, DistributionOptions{Pattern: "Tower_*", Algorithm: "x_average", Bins: 10})
	require.NoError(t, err)
	require.Equal(t, "new", dist.RunID)
	require.Equal(t, 4, dist.Matches)
	require.Equal(t, 3, dist.Defined)

	h := dist.Histogram
	require.Equal(t, "Tower", h.Name())
	require.InDelta(t, 4.0, h.Entries(), 1e-12)
	// 0.25, 0.35, 0.45 land in bins 3, 4, 5; the undefined output at -1 underflows.
	require.InDelta(t, 1.0, h.BinContent(3), 1e-12)
	require.InDelta(t, 1.0, h.BinContent(4), 1e-12)
	require.InDelta(t, 1.0, h.BinContent(5), 1e-12)
	require.InDelta(t, 1.0, h.BinContent(0), 1e-12)

	undefinedAt := 0.95
	old, err := store.OutputDistribution(ctx, DistributionOptions{
		Pattern: "Tower_*", Algorithm: "x_average", RunID: "old", Bins: 10, UndefinedValue: &undefinedAt,
	})
	require.NoError(t, err)
	require.Equal(t, 4, old.Matches)
	require.InDelta(t, 1.0, old.Histogram.BinContent(10), 1e-12)
	require.InDelta(t, 1.0, old.Histogram.BinContent(1), 1e-12)
}
