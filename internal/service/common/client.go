//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	api "github.com/oshokin/latmon/internal/api/grpc/report"
	"github.com/oshokin/latmon/internal/config"
	"github.com/oshokin/latmon/internal/domain/alarm"
	"github.com/oshokin/latmon/internal/repository/results"
	"github.com/oshokin/latmon/internal/version"
)

// Client wraps a gRPC connection to the report service with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the report server.
	conn *grpc.ClientConn

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errAlarmRequired is returned when an alarm lookup has no alarm name.
	errAlarmRequired = errors.New("alarm name must be provided")
	// errNotConnected is returned when a call is made on a closed or zero client.
	errNotConnected = errors.New("client is not connected")
)

// Dial establishes a gRPC connection to the report server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUserAgent(version.UserAgent("latmon-client")))
	if err != nil {
		return nil, fmt.Errorf("dial report server: %w", err)
	}

	client := &Client{
		conn:        conn,
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// GetSummary retrieves the latest summary with the results at least as
// severe as minStatus. StatusUndefined returns every result.
func (c *Client) GetSummary(ctx context.Context, minStatus alarm.Status) (*alarm.Summary, error) {
	fields := map[string]*structpb.Value{}
	if minStatus != alarm.StatusUndefined {
		fields[api.FieldMinStatus] = structpb.NewStringValue(minStatus.String())
	}

	response, err := c.invoke(ctx, api.MethodGetSummary, fields)
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}

	summary, err := results.FromStruct(response)
	if err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}

	return summary, nil
}

// GetAlarm retrieves the results of one alarm; an empty algorithm matches all.
func (c *Client) GetAlarm(ctx context.Context, alarmName, algorithm string) ([]alarm.Result, error) {
	if alarmName == "" {
		return nil, errAlarmRequired
	}

	fields := map[string]*structpb.Value{
		api.FieldAlarm: structpb.NewStringValue(alarmName),
	}

	if algorithm != "" {
		fields[api.FieldAlgorithm] = structpb.NewStringValue(algorithm)
	}

	response, err := c.invoke(ctx, api.MethodGetAlarm, fields)
	if err != nil {
		return nil, fmt.Errorf("get alarm %s: %w", alarmName, err)
	}

	values := response.GetFields()[results.FieldResults].GetListValue().GetValues()
	out := make([]alarm.Result, 0, len(values))

	for _, v := range values {
		r, err := results.ResultFromStruct(v.GetStructValue())
		if err != nil {
			return nil, fmt.Errorf("decode alarm %s: %w", alarmName, err)
		}

		out = append(out, r)
	}

	return out, nil
}

// invoke performs one unary call with Struct messages.
func (c *Client) invoke(ctx context.Context, method string, fields map[string]*structpb.Value) (*structpb.Struct, error) {
	if c == nil || c.conn == nil {
		return nil, errNotConnected
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response := new(structpb.Struct)
	if err := c.conn.Invoke(callCtx, method, &structpb.Struct{Fields: fields}, response); err != nil {
		return nil, err
	}

	return response, nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
