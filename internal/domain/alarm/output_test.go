package alarm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestOutput_Immutable ensures With* methods never modify the receiver.
func TestOutput_Immutable(t *testing.T) {
	t.Parallel()

	base := NewOutput(2.5).WithDetail("ndof", 10)
	withErr := base.WithError(-0.1)
	withDetail := base.WithDetail("reduced_chi2", 1.2)

	_, hasErr := base.Error()
	require.False(t, hasErr)

	bar, hasErr := withErr.Error()
	require.True(t, hasErr)
	require.InDelta(t, 0.1, bar, 1e-12)

	require.Len(t, base.Details(), 1)
	require.Len(t, withDetail.Details(), 2)

	details := withDetail.Details()
	details[0].Value = "tampered"

	v, ok := withDetail.Detail("ndof")
	require.True(t, ok)
	require.Equal(t, 10, v)
}

// TestOutput_Classified uses the error bar and respects settled statuses.
func TestOutput_Classified(t *testing.T) {
	t.Parallel()

	l := mustLimits(t, 0, 1, 2, 3)

	require.Equal(t, StatusWarning, NewOutput(2.5).Classified(l).Status())
	require.Equal(t, StatusClean, NewOutput(2.5).WithError(1).Classified(l).Status())

	settled := NewOutput(100).WithStatus(StatusClean)
	require.Equal(t, StatusClean, settled.Classified(l).Status())

	undefined := UndefinedOutput("empty range")
	require.Equal(t, StatusUndefined, undefined.Classified(l).Status())
	require.Zero(t, undefined.Value())
	require.Equal(t, "empty range", undefined.Reason())
}

// TestOutput_WithDetailReplaces keeps one entry per name.
func TestOutput_WithDetailReplaces(t *testing.T) {
	t.Parallel()

	o := NewOutput(1).WithDetail("a", 1).WithDetail("b", 2).WithDetail("a", 3)

	require.Equal(t, []Detail{{Name: "a", Value: 3}, {Name: "b", Value: 2}}, o.Details())
}

// TestOutput_TextSummary covers rendering of values, limits and details.
func TestOutput_TextSummary(t *testing.T) {
	t.Parallel()

	l := mustLimits(t, 0, 1, 2, 3)
	o := NewOutput(2.5).
		WithError(0.25).
		WithDetail("error_points", []Point{{Bin: 4, Center: 0.5, Value: 2.5}}).
		Classified(l)

	summary := o.TextSummary(l)
	require.Contains(t, summary, "Output value: 2.5 +/- 0.25")
	require.Contains(t, summary, "[0/1; 2/3]")
	require.Contains(t, summary, "WARNING")
	require.Contains(t, summary, "(4, 0.5, 2.5)")
}
