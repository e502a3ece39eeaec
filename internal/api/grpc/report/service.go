package report

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "latmon.v1.ReportService"

// Full method names, as clients invoke them.
const (
	MethodGetSummary = "/" + ServiceName + "/GetSummary"
	MethodGetAlarm   = "/" + ServiceName + "/GetAlarm"
)

// Request and response field names beyond the snapshot layout.
const (
	// FieldMinStatus filters GetSummary results by status.
	FieldMinStatus = "min_status"
	// FieldAlarm selects the alarm of GetAlarm.
	FieldAlarm = "alarm"
	// FieldAlgorithm optionally narrows GetAlarm to one algorithm.
	FieldAlgorithm = "algorithm"
)

// ReportServiceServer is the server API of the report service. Requests and
// responses are well-known Struct messages.
type ReportServiceServer interface {
	GetSummary(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetAlarm(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the report service for grpc.Server registration.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReportServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetSummary", Handler: getSummaryHandler},
		{MethodName: "GetAlarm", Handler: getAlarmHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "latmon/v1/report.proto",
}

// Register adds the report service to a gRPC server.
func Register(registrar grpc.ServiceRegistrar, srv ReportServiceServer) {
	registrar.RegisterService(&ServiceDesc, srv)
}

func getSummaryHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(ReportServiceServer).GetSummary(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodGetSummary}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ReportServiceServer).GetSummary(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}

func getAlarmHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(ReportServiceServer).GetAlarm(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodGetAlarm}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ReportServiceServer).GetAlarm(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}
