package inspector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oshokin/latmon/internal/config"
	"github.com/oshokin/latmon/internal/domain/alarm"
	"github.com/oshokin/latmon/internal/logger"
	"github.com/oshokin/latmon/internal/report"
	"github.com/oshokin/latmon/internal/service/common"
)

// Options controls the inspector.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ServerAddress provides an optional gRPC server address override.
	ServerAddress string
	// MinStatus is the lowest status printed; empty prints every result.
	MinStatus string
	// Alarm restricts the output to one alarm (plot).
	Alarm string
	// Algorithm restricts the alarm lookup to one algorithm.
	Algorithm string
	// Watch keeps polling and prints every new summary.
	Watch bool
	// PollInterval defines the interval between polls in watch mode.
	PollInterval time.Duration
}

// DefaultPollInterval is the watch-mode polling interval.
const DefaultPollInterval = 5 * time.Second

// errAlgorithmWithoutAlarm is returned when an algorithm is given alone.
var errAlgorithmWithoutAlarm = errors.New("algorithm requires an alarm")

// Run queries the report server and prints to w.
func Run(ctx context.Context, opts *Options, w io.Writer) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarm-inspector")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if opts.Algorithm != "" && opts.Alarm == "" {
		return errAlgorithmWithoutAlarm
	}

	minStatus := alarm.StatusUndefined
	if opts.MinStatus != "" {
		if minStatus, err = alarm.ParseStatus(opts.MinStatus); err != nil {
			return fmt.Errorf("invalid min status: %w", err)
		}
	}

	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return fmt.Errorf("dial server: %w", err)
	}

	defer func() {
		_ = client.Close()
	}()

	q := &query{client: client, opts: opts, minStatus: minStatus, w: w}

	if !opts.Watch {
		_, err = q.print(ctx, "")

		return err
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	logger.InfoKV(ctx, "Watching summaries", "server_address", serverAddress, "interval", opts.PollInterval.String())

	lastRun, err := q.print(ctx, "")
	if err != nil {
		logger.ErrorKV(ctx, "Query failed", "error", err)
	}

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")
			return nil
		case <-ticker.C:
			runID, err := q.print(ctx, lastRun)
			if err != nil {
				logger.ErrorKV(ctx, "Query failed", "error", err)

				continue
			}

			lastRun = runID
		}
	}
}

// query prints one answer of the report server.
type query struct {
	// client is the report service client.
	client *common.Client
	// opts selects what is printed.
	opts *Options
	// minStatus is the parsed minimum status.
	minStatus alarm.Status
	// w receives the output.
	w io.Writer
}

// print fetches the summary and writes it unless its run ID equals skip.
// It returns the run ID of the fetched summary.
func (q *query) print(ctx context.Context, skip string) (string, error) {
	summary, err := q.client.GetSummary(ctx, q.minStatus)
	if err != nil {
		return "", err
	}

	if skip != "" && summary.RunID == skip {
		return skip, nil
	}

	if q.opts.Alarm == "" {
		return summary.RunID, report.WriteText(q.w, summary, q.minStatus)
	}

	found, err := q.client.GetAlarm(ctx, q.opts.Alarm, q.opts.Algorithm)
	if err != nil {
		return "", err
	}

	for i := range found {
		if _, err = io.WriteString(q.w, report.ResultText(&found[i])); err != nil {
			return "", fmt.Errorf("write result: %w", err)
		}
	}

	return summary.RunID, nil
}
