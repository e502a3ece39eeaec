package alarm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// result builds a result with the given output and rollup status.
func result(name string, out Output, rollup Status) Result {
	return Result{
		Set:       "set",
		Alarm:     name,
		Algorithm: "x_average",
		Output:    out,
		Rollup:    rollup,
	}
}

// TestSummary_StatusAndCounts verifies rollup and counters.
func TestSummary_StatusAndCounts(t *testing.T) {
	t.Parallel()

	s := &Summary{
		Results: []Result{
			result("a", NewOutput(1).WithStatus(StatusClean), StatusClean),
			result("b", NewOutput(2).WithStatus(StatusError), StatusWarning),
			result("c", UndefinedOutput("boom"), StatusUndefined),
		},
	}

	require.Equal(t, StatusWarning, s.Status())

	counts := s.Counts()
	require.Equal(t, 1, counts[StatusClean])
	require.Equal(t, 1, counts[StatusError])
	require.Equal(t, 1, counts[StatusUndefined])
	require.Zero(t, counts[StatusWarning])

	require.Len(t, s.Filter(StatusWarning), 1)
	require.Len(t, s.Filter(StatusClean), 2)
	require.Len(t, s.Filter(StatusUndefined), 3)

	require.Len(t, s.Find("b", ""), 1)
	require.Empty(t, s.Find("b", "x_rms"))

	empty := new(Summary)
	require.Equal(t, StatusUndefined, empty.Status())
}
