package evaluation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/latmon/internal/domain/alarm"
	"github.com/oshokin/latmon/internal/histogram"
)

// fixedResolver resolves placeholders from a map.
func fixedResolver(values map[string]float64) Resolver {
	return func(name string) (float64, error) {
		v, ok := values[name]
		if !ok {
			return 0, errors.New("missing " + name)
		}

		return v, nil
	}
}

// TestExpression_Eval covers numbers, placeholders and operator precedence.
func TestExpression_Eval(t *testing.T) {
	t.Parallel()

	resolve := fixedResolver(map[string]float64{"MEAN": 10, "RMS": 2, "ENTRIES": 1000})

	tests := []struct {
		text string
		want float64
	}{
		{text: "5", want: 5},
		{text: " -1.5e2 ", want: -150},
		{text: "MEAN - 3*RMS", want: 4},
		{text: "(mean + rms) / 2", want: 6},
		{text: "ENTRIES * 0.01", want: 10},
		{text: "-(MEAN)", want: -10},
		{text: "0x10", want: 16},
		{text: "1_000 + 0b11", want: 1003},
		{text: "010", want: 10},
		{text: "2_500.5", want: 2500.5},
	}

	for _, tt := range tests {
		expr, err := ParseExpression(tt.text)
		require.NoError(t, err, tt.text)

		got, err := expr.Eval(resolve)
		require.NoError(t, err, tt.text)
		require.InDelta(t, tt.want, got, 1e-12, tt.text)
	}

	expr, err := ParseExpression("MEAN + RMS*2")
	require.NoError(t, err)
	require.Equal(t, []string{"MEAN", "RMS"}, expr.Placeholders())
	require.Equal(t, "MEAN + RMS*2", expr.String())
}

// TestExpression_Rejects covers the grammar limits.
func TestExpression_Rejects(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "MEDIAN", "os.Exit(1)", "1 % 2", "'a'", "1 +", "x[0]", "1 << 2"} {
		_, err := ParseExpression(text)
		require.ErrorIs(t, err, errExpression, text)
	}

	expr, err := ParseExpression("1 / (RMS - 2)")
	require.NoError(t, err)

	_, err = expr.Eval(fixedResolver(map[string]float64{"RMS": 2}))
	require.ErrorIs(t, err, errDivisionByZero)
}

// TestLimitExpressions_Resolve binds placeholders to a histogram.
func TestLimitExpressions_Resolve(t *testing.T) {
	t.Parallel()

	h, err := histogram.New("h", histogram.TypeTH1F, 4, 0, 4)
	require.NoError(t, err)

	for i, c := range []float64{1, 0, 0, 1} {
		h.SetBinContent(i+1, c)
	}

	limits, err := LimitExpressions{
		ErrorMin:   "MEAN - 2*RMS",
		WarningMin: "MEAN - RMS",
		WarningMax: "MEAN + RMS",
		ErrorMax:   "ENTRIES * 10",
	}.Resolve(h)
	require.NoError(t, err)
	require.InDelta(t, -1.0, limits.ErrorMin, 1e-12)
	require.InDelta(t, 0.5, limits.WarningMin, 1e-12)
	require.InDelta(t, 3.5, limits.WarningMax, 1e-12)
	require.InDelta(t, 20.0, limits.ErrorMax, 1e-12)

	_, err = LimitExpressions{ErrorMin: "5", WarningMin: "1", WarningMax: "2", ErrorMax: "3"}.Resolve(h)
	require.ErrorIs(t, err, alarm.ErrConfiguration)

	_, err = LimitExpressions{ErrorMin: "0", WarningMin: "1", WarningMax: "two", ErrorMax: "3"}.Resolve(h)
	require.ErrorIs(t, err, alarm.ErrConfiguration)

	empty, err := histogram.New("empty", histogram.TypeTH1F, 4, 0, 4)
	require.NoError(t, err)

	_, err = LimitExpressions{ErrorMin: "MEAN", WarningMin: "1", WarningMax: "2", ErrorMax: "3"}.Resolve(empty)
	require.ErrorIs(t, err, alarm.ErrConfiguration)
	require.ErrorIs(t, err, histogram.ErrEmptyRange)
}
