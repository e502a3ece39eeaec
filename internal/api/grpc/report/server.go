package report

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/latmon/internal/domain/alarm"
	"github.com/oshokin/latmon/internal/repository/results"
)

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	// Summary returns the latest summary or results.ErrNotFound.
	Summary(ctx context.Context) (*alarm.Summary, error)
}

// Server implements the ReportService gRPC API.
type Server struct {
	// service provides the latest summary.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// GetSummary returns the latest summary; min_status drops the results below
// that status while the overall status and counts still cover every result.
func (s *Server) GetSummary(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	threshold := alarm.StatusUndefined

	if text := req.GetFields()[FieldMinStatus].GetStringValue(); text != "" {
		parsed, err := alarm.ParseStatus(text)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid %s: %q", FieldMinStatus, text)
		}

		threshold = parsed
	}

	summary, err := s.summary(ctx)
	if err != nil {
		return nil, err
	}

	filtered := summary.Filter(threshold)

	response := results.ToStruct(summary)
	response.Fields[results.FieldResults] = resultList(filtered)

	return response, nil
}

// GetAlarm returns every result of one alarm, optionally for one algorithm.
func (s *Server) GetAlarm(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()

	name := fields[FieldAlarm].GetStringValue()
	if name == "" {
		return nil, status.Errorf(codes.InvalidArgument, "%s is required", FieldAlarm)
	}

	algorithm := fields[FieldAlgorithm].GetStringValue()

	summary, err := s.summary(ctx)
	if err != nil {
		return nil, err
	}

	found := summary.Find(name, algorithm)
	if len(found) == 0 {
		return nil, status.Errorf(codes.NotFound, "no result for alarm %q", name)
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		results.FieldRunID:   structpb.NewStringValue(summary.RunID),
		FieldAlarm:           structpb.NewStringValue(name),
		results.FieldResults: resultList(found),
	}}, nil
}

// summary loads the latest summary and maps errors to status codes.
func (s *Server) summary(ctx context.Context) (*alarm.Summary, error) {
	summary, err := s.service.Summary(ctx)

	switch {
	case err == nil && summary != nil:
		return summary, nil
	case err == nil, errors.Is(err, results.ErrNotFound):
		return nil, status.Error(codes.NotFound, "no summary available")
	default:
		return nil, status.Error(codes.Internal, "unable to load summary")
	}
}

// resultList converts results into a list value.
func resultList(list []alarm.Result) *structpb.Value {
	values := make([]*structpb.Value, 0, len(list))
	for i := range list {
		values = append(values, structpb.NewStructValue(results.ResultToStruct(&list[i])))
	}

	return structpb.NewListValue(&structpb.ListValue{Values: values})
}
