package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/latmon/internal/config"
	"github.com/oshokin/latmon/internal/logger"
	"github.com/oshokin/latmon/internal/service/common"
	"github.com/oshokin/latmon/internal/service/handler"
	"github.com/oshokin/latmon/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// logLevel overrides the log level of the settings file.
	logLevel string
	// options collects the evaluation overrides.
	options handler.Options
	// trendOptions collects the trend query.
	trendOptions handler.TrendOptions

	// rootCmd represents the base command for evaluating alarms.
	rootCmd = &cobra.Command{
		Use:   "alarm-handler",
		Short: "Evaluate data-monitoring alarms on a histogram file.",
		Long: `Evaluates every enabled alarm of the XML alarm configuration against the
histograms of the input file and writes the results.

The results snapshot served by alarm-server is always written. The XML
summary, the text and HTML reports with plots, and the trend database are
written when configured. With --schedule the evaluation repeats on every
tick of the cron expression until interrupted.

Exit status is non-zero when --fail-on is set and the overall status is at
least that severe, or when --strict is set and an alarm is misconfigured.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			ctx = common.LoggerContext(ctx, logLevel, configPath, os.Stderr)
			defer logger.Sync(ctx)

			options.ConfigPath = configPath

			return handler.Run(ctx, &options)
		},
	}

	// trendCmd prints the recorded history of an alarm.
	trendCmd = &cobra.Command{
		Use:   "trend <alarm> <algorithm>",
		Short: "Print the recorded outputs of an alarm.",
		Long: `Reads the trend database and prints every recorded output of one alarm and
algorithm, oldest first. With --distribution the alarm argument is a plot
name pattern and the outputs of the latest run across matching plots are
binned instead.`,
		Args: cobra.ExactArgs(2), //nolint:mnd // alarm and algorithm
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := common.LoggerContext(cmd.Context(), logLevel, configPath, os.Stderr)
			if logLevel == "" {
				ctx = logger.WithLevelContext(ctx, zapcore.WarnLevel)
			}

			trendOptions.ConfigPath = configPath
			trendOptions.Alarm = args[0]
			trendOptions.Algorithm = args[1]

			return handler.RunTrend(ctx, &trendOptions, cmd.OutOrStdout())
		},
	}
)

// Execute runs the alarm-handler CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "log level (debug, info, warn, error)")

	flags := rootCmd.Flags()
	flags.StringVarP(&options.AlarmConfig, "alarms", "a", "", "path of the XML alarm configuration")
	flags.StringVarP(&options.ExceptionsFile, "exceptions", "e", "", "path of the XML exception list")
	flags.StringVarP(&options.InputFile, "input", "i", "", "path of the histogram file")
	flags.StringVarP(&options.SummaryFile, "summary", "x", "", "path of the XML summary to write")
	flags.StringVarP(&options.ReportDir, "report-dir", "o", "", "directory for the text and HTML reports")
	flags.StringVarP(&options.ResultsFile, "results-file", "r", "", "path of the results snapshot")
	flags.StringVarP(&options.TrendDB, "trend-db", "t", "", "path of the SQLite trend database")
	flags.StringVar(&options.Schedule, "schedule", "", "cron expression to evaluate repeatedly")
	flags.BoolVar(&options.Strict, "strict", false, "fail on misconfigured alarms")
	flags.StringVar(&options.FailOn, "fail-on", "", "fail when the overall status is at least this (warning, error)")
	flags.StringVar(&options.ReportThreshold, "report-threshold", "",
		"lowest status listed in the reports (clean, warning, error)")

	trendFlags := trendCmd.Flags()
	trendFlags.StringVarP(&trendOptions.TrendDB, "trend-db", "t", "", "path of the SQLite trend database")
	trendFlags.IntVarP(&trendOptions.Limit, "limit", "n", 0, "print only the latest samples")
	trendFlags.BoolVarP(&trendOptions.Distribution, "distribution", "d", false,
		"bin the latest outputs across plots matching the alarm pattern")
	trendFlags.IntVar(&trendOptions.Bins, "bins", 0, "number of distribution bins")
	trendFlags.Float64Var(&trendOptions.Min, "min", 0, "low edge of the distribution")
	trendFlags.Float64Var(&trendOptions.Max, "max", 0, "high edge of the distribution")

	rootCmd.AddCommand(trendCmd)
}
