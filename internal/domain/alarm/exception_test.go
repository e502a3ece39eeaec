package alarm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestExceptionList_IsExempt covers lookups, merging and nil lists.
func TestExceptionList_IsExempt(t *testing.T) {
	t.Parallel()

	list := NewExceptionList(
		Exception{
			Alarm:       "CalXAdcPed_TH1_Tower_3",
			Algorithm:   "y_values",
			Identifiers: map[string]Status{"12": StatusClean},
		},
		Exception{
			Alarm:       "CalXAdcPed_TH1_Tower_3",
			Algorithm:   "y_values",
			Identifiers: map[string]Status{"40": StatusWarning},
		},
	)

	require.Equal(t, 1, list.Len())
	require.True(t, list.IsExempt("CalXAdcPed_TH1_Tower_3", "y_values", "12"))
	require.True(t, list.IsExempt("CalXAdcPed_TH1_Tower_3", "y_values", "40"))
	require.False(t, list.IsExempt("CalXAdcPed_TH1_Tower_3", "y_values", "13"))
	require.False(t, list.IsExempt("CalXAdcPed_TH1_Tower_3", "x_average", "12"))

	exempt := list.Exemptor("CalXAdcPed_TH1_Tower_3", "y_values")
	require.True(t, exempt("12"))
	require.False(t, exempt("1"))

	var empty *ExceptionList
	require.False(t, empty.IsExempt("a", "b", "c"))
	require.Zero(t, empty.Len())
	require.Nil(t, empty.Exceptions())
}

// TestExceptionList_RollupStatus caps acknowledged alarms only.
func TestExceptionList_RollupStatus(t *testing.T) {
	t.Parallel()

	list := NewExceptionList(
		Exception{
			Alarm:       "AcdHitMap",
			Algorithm:   "x_average",
			Identifiers: map[string]Status{IdentifierStatus: StatusWarning},
		},
		Exception{
			Alarm:       "TkrNoise",
			Algorithm:   "x_rms",
			Identifiers: map[string]Status{IdentifierStatus: StatusClean},
		},
	)

	require.Equal(t, StatusWarning, list.RollupStatus("AcdHitMap", "x_average", StatusError))
	require.Equal(t, StatusClean, list.RollupStatus("AcdHitMap", "x_average", StatusClean))
	require.Equal(t, StatusClean, list.RollupStatus("TkrNoise", "x_rms", StatusError))
	require.Equal(t, StatusUndefined, list.RollupStatus("TkrNoise", "x_rms", StatusUndefined))
	require.Equal(t, StatusError, list.RollupStatus("Other", "x_rms", StatusError))

	entries := list.Exceptions()
	require.Len(t, entries, 2)
	require.Equal(t, "AcdHitMap", entries[0].Alarm)
}
