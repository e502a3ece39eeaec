package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/oshokin/latmon/internal/api/grpc/report"
	"github.com/oshokin/latmon/internal/config"
	"github.com/oshokin/latmon/internal/logger"
	"github.com/oshokin/latmon/internal/repository/results"
	"github.com/oshokin/latmon/internal/version"
)

// Options controls the alarm-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// MetricsAddress provides an optional listen address override for the metrics endpoint.
	MetricsAddress string
	// ResultsFile overrides the results snapshot path.
	ResultsFile string
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// metricsShutdownTimeout bounds the graceful shutdown of the metrics endpoint.
const metricsShutdownTimeout = 5 * time.Second

// Run serves the latest alarm summary over gRPC and blocks until the context
// is canceled or a component fails. The snapshot is reloaded whenever the
// alarm handler rewrites it.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarm-server")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	resultsFile := settings.ResultsFile
	if opts.ResultsFile != "" {
		resultsFile = opts.ResultsFile
	}

	metricsAddress := settings.MetricsAddress
	if opts.MetricsAddress != "" {
		metricsAddress = opts.MetricsAddress
	}

	// CLI argument overrides config port extraction.
	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	repo := results.NewFileRepository(resultsFile)

	// The watcher needs the snapshot directory before the first pass writes it.
	if err = os.MkdirAll(filepath.Dir(repo.Path()), config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create results directory: %w", err)
	}

	gauges := newMetrics()

	svc, err := newService(ctx, repo, gauges.Observe)
	if err != nil {
		return fmt.Errorf("initialise service: %w", err)
	}

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	grpcServer := grpc.NewServer()
	report.Register(grpcServer, report.NewServer(svc))

	logger.InfoKV(ctx, "Report server listening",
		"listen_address", listenAddress,
		"results_file", repo.Path(),
		"version", version.Short())

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()

		return nil
	})

	group.Go(func() error {
		return watchResults(groupCtx, repo.Path(), func(ctx context.Context) {
			if err := svc.Reload(ctx); err != nil {
				logger.WarnKV(ctx, "Failed to reload results", "error", err)
			}
		})
	})

	if metricsAddress != "" {
		group.Go(func() error {
			return serveMetrics(groupCtx, metricsAddress, gauges.Handler())
		})
	}

	if err = group.Wait(); err != nil {
		return err
	}

	logger.Info(ctx, "Report server stopped")

	return nil
}

// serveMetrics exposes handler on /metrics until the context is canceled.
func serveMetrics(ctx context.Context, address string, handler http.Handler) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	srv := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: metricsShutdownTimeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.InfoKV(ctx, "Metrics listening", "listen_address", address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}

	return nil
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
// Returns appropriate listen address (e.g., ":8080" for port-only binding).
func resolveListenAddress(configAddr, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Bind on all interfaces.
	return ":" + port, nil
}

var _ report.Service = (*service)(nil)
