package report

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/latmon/internal/domain/alarm"
	"github.com/oshokin/latmon/internal/repository/results"
)

var errBroken = errors.New("broken disk")

// fakeService implements the report Service interface for unit testing the transport.
type fakeService struct {
	// summary is returned by Summary.
	summary *alarm.Summary
	// err is returned by Summary.
	err error
}

// Summary returns the configured summary and error.
func (f *fakeService) Summary(context.Context) (*alarm.Summary, error) {
	return f.summary, f.err
}

// summaryFixture holds one clean, one error and one warning result.
func summaryFixture(t *testing.T) *alarm.Summary {
	t.Helper()

	limits, err := alarm.NewLimits(0, 1, 2, 3)
	require.NoError(t, err)

	result := func(plot, algorithm string, value float64) alarm.Result {
		output := alarm.NewOutput(value).Classified(limits)

		return alarm.Result{
			Set: "Tower_*", Alarm: plot, Algorithm: algorithm,
			Limits: limits, Output: output, Rollup: output.Status(),
		}
	}

	return &alarm.Summary{
		RunID: "run-7",
		Results: []alarm.Result{
			result("Tower_1", "x_average", 1.5),
			result("Tower_1", "x_rms", 4),
			result("Tower_2", "x_average", 2.5),
		},
	}
}

// request builds a Struct request from string fields.
func request(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()

	st, err := structpb.NewStruct(fields)
	require.NoError(t, err)

	return st
}

// TestServer_GetSummary covers filtering and error codes.
func TestServer_GetSummary(t *testing.T) {
	t.Parallel()

	s := NewServer(&fakeService{summary: summaryFixture(t)})

	all, err := s.GetSummary(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "ERROR", all.GetFields()[results.FieldStatus].GetStringValue())
	require.Len(t, all.GetFields()[results.FieldResults].GetListValue().GetValues(), 3)

	warnings, err := s.GetSummary(context.Background(), request(t, map[string]any{FieldMinStatus: "warning"}))
	require.NoError(t, err)

	decoded, err := results.FromStruct(warnings)
	require.NoError(t, err)
	require.Equal(t, "run-7", decoded.RunID)
	require.Len(t, decoded.Results, 2)
	require.Equal(t, "x_rms", decoded.Results[0].Algorithm)
	require.Equal(t, "Tower_2", decoded.Results[1].Alarm)

	_, err = s.GetSummary(context.Background(), request(t, map[string]any{FieldMinStatus: "fatal"}))
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = NewServer(&fakeService{err: results.ErrNotFound}).GetSummary(context.Background(), nil)
	require.Equal(t, codes.NotFound, status.Code(err))

	_, err = NewServer(&fakeService{err: errBroken}).GetSummary(context.Background(), nil)
	require.Equal(t, codes.Internal, status.Code(err))
}

// TestServer_GetAlarm covers lookups by alarm and algorithm.
func TestServer_GetAlarm(t *testing.T) {
	t.Parallel()

	s := NewServer(&fakeService{summary: summaryFixture(t)})

	_, err := s.GetAlarm(context.Background(), nil)
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	both, err := s.GetAlarm(context.Background(), request(t, map[string]any{FieldAlarm: "Tower_1"}))
	require.NoError(t, err)
	require.Len(t, both.GetFields()[results.FieldResults].GetListValue().GetValues(), 2)

	one, err := s.GetAlarm(context.Background(), request(t, map[string]any{
		FieldAlarm: "Tower_1", FieldAlgorithm: "x_rms",
	}))
	require.NoError(t, err)

	values := one.GetFields()[results.FieldResults].GetListValue().GetValues()
	require.Len(t, values, 1)

	r, err := results.ResultFromStruct(values[0].GetStructValue())
	require.NoError(t, err)
	require.Equal(t, alarm.StatusError, r.Status())

	_, err = s.GetAlarm(context.Background(), request(t, map[string]any{FieldAlarm: "Tower_9"}))
	require.Equal(t, codes.NotFound, status.Code(err))
}
