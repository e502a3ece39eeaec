package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/latmon/internal/config"
	"github.com/oshokin/latmon/internal/service/common"
	"github.com/oshokin/latmon/internal/service/server"
	"github.com/oshokin/latmon/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// resultsFile overrides the results snapshot path.
	resultsFile string
	// metricsAddress overrides the metrics listen address.
	metricsAddress string
	// logLevel overrides the log level of the settings file.
	logLevel string

	// rootCmd represents the base command for running the report server.
	rootCmd = &cobra.Command{
		Use:   "alarm-server [listen-address]",
		Short: "Serve the latest alarm summary over gRPC.",
		Long: `Starts the gRPC report server that answers summary and alarm queries.

The server reads the results snapshot written by alarm-handler and reloads it
whenever the file changes. Only the port from server_addr is used for listening
(e.g., :50051). Listen address can be provided as argument to override config
(e.g., :9090, 0.0.0.0:8080). When metrics_addr is set, alarm counts and the
overall status are exposed on /metrics in the Prometheus format.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			ctx = common.LoggerContext(ctx, logLevel, configPath, os.Stderr)

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &server.Options{
				ConfigPath:     configPath,
				ListenAddress:  listenAddress,
				MetricsAddress: metricsAddress,
				ResultsFile:    resultsFile,
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the alarm-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&resultsFile, "results-file", "r", "", "path of the results snapshot to serve")
	rootCmd.Flags().StringVarP(&metricsAddress, "metrics-addr", "m", "", "listen address of the Prometheus endpoint")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "log level (debug, info, warn, error)")
}
