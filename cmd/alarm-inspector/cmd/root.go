package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/latmon/internal/config"
	"github.com/oshokin/latmon/internal/service/common"
	"github.com/oshokin/latmon/internal/service/inspector"
	"github.com/oshokin/latmon/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// minStatus is the lowest status printed.
	minStatus string
	// alarmName restricts the output to one alarm.
	alarmName string
	// algorithmName restricts the alarm lookup to one algorithm.
	algorithmName string
	// watch keeps polling for new summaries.
	watch bool
	// interval is the watch polling interval.
	interval time.Duration
	// logLevel overrides the log level of the settings file.
	logLevel string

	// rootCmd represents the base command for querying the report server.
	rootCmd = &cobra.Command{
		Use:   "alarm-inspector [server-address]",
		Short: "Print the latest alarm summary from the report server.",
		Long: `Queries the report server and prints the latest alarm summary.

With --alarm only the results of that plot are printed, optionally narrowed to
one algorithm. With --watch the server is polled and every new evaluation pass
is printed. Server address can be provided as argument or loaded from
configuration file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			ctx = common.LoggerContext(ctx, logLevel, configPath, os.Stderr)

			// Use server address argument if provided, otherwise rely on config.
			var serverAddress string
			if len(args) > 0 {
				serverAddress = args[0]
			}

			options := &inspector.Options{
				ConfigPath:    configPath,
				ServerAddress: serverAddress,
				MinStatus:     minStatus,
				Alarm:         alarmName,
				Algorithm:     algorithmName,
				Watch:         watch,
				PollInterval:  interval,
			}

			return inspector.Run(ctx, options, os.Stdout)
		},
	}
)

// Execute runs the alarm-inspector CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&minStatus, "min-status", "s", "", "lowest status to print (clean, warning, error)")
	rootCmd.Flags().StringVarP(&alarmName, "alarm", "a", "", "print only the results of this alarm")
	rootCmd.Flags().StringVarP(&algorithmName, "algorithm", "g", "", "narrow --alarm to one algorithm")
	rootCmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep polling and print every new summary")
	rootCmd.Flags().DurationVarP(&interval, "interval", "i", inspector.DefaultPollInterval, "polling interval with --watch")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "log level (debug, info, warn, error)")
}
