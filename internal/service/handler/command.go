package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/oshokin/latmon/internal/algorithm"
	"github.com/oshokin/latmon/internal/config"
	"github.com/oshokin/latmon/internal/domain/alarm"
	"github.com/oshokin/latmon/internal/evaluation"
	"github.com/oshokin/latmon/internal/histogram"
	"github.com/oshokin/latmon/internal/logger"
	"github.com/oshokin/latmon/internal/repository/alarmxml"
	"github.com/oshokin/latmon/internal/version"
)

// Options controls the alarm-handler process. Non-empty fields override the
// settings file.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// AlarmConfig overrides the XML alarm configuration path.
	AlarmConfig string
	// ExceptionsFile overrides the XML exception document path.
	ExceptionsFile string
	// InputFile overrides the histogram file path.
	InputFile string
	// SummaryFile overrides the XML summary path.
	SummaryFile string
	// ReportDir overrides the report directory.
	ReportDir string
	// ResultsFile overrides the results snapshot path.
	ResultsFile string
	// TrendDB overrides the trend database path.
	TrendDB string
	// Schedule overrides the cron schedule.
	Schedule string
	// Strict makes misconfigured alarms fatal even if the settings do not.
	Strict bool
	// FailOn makes a run fail when the rollup is at least this status.
	FailOn string
	// ReportThreshold is the lowest status listed in text and HTML reports.
	ReportThreshold string
}

// ErrFailOn is returned when the overall status reaches the fail-on status.
var ErrFailOn = errors.New("overall status reached the fail-on status")

// errInvalidStatus is returned for status flags that are not classified.
var errInvalidStatus = errors.New("status must be clean, warning or error")

// Run evaluates the configured alarms once, or on every tick of the schedule
// until the context is canceled.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarm-handler")

	cfg, err := loadSettings(opts)
	if err != nil {
		return err
	}

	failOn, err := parseOptionalStatus(opts.FailOn)
	if err != nil {
		return fmt.Errorf("invalid fail-on: %w", err)
	}

	threshold, err := parseOptionalStatus(opts.ReportThreshold)
	if err != nil {
		return fmt.Errorf("invalid report threshold: %w", err)
	}

	pass := func(ctx context.Context) error {
		result, err := Evaluate(ctx, cfg)
		if err != nil {
			return err
		}

		if err = WriteOutputs(ctx, cfg, result.Catalog, result.Summary, threshold); err != nil {
			return err
		}

		if status := result.Summary.Status(); failOn.IsClassified() && status.AtLeast(failOn) {
			return fmt.Errorf("%w: %s", ErrFailOn, status)
		}

		return nil
	}

	logger.InfoKV(ctx, "Alarm handler starting", "version", version.Short(), "strict", cfg.Strict)

	if cfg.Schedule == "" {
		return pass(ctx)
	}

	return runScheduled(ctx, cfg.Schedule, pass)
}

// loadSettings reads the settings file and applies the overrides.
func loadSettings(opts *Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	for _, o := range []struct {
		dst *string
		src string
	}{
		{&cfg.AlarmConfig, opts.AlarmConfig},
		{&cfg.ExceptionsFile, opts.ExceptionsFile},
		{&cfg.InputFile, opts.InputFile},
		{&cfg.SummaryFile, opts.SummaryFile},
		{&cfg.ReportDir, opts.ReportDir},
		{&cfg.ResultsFile, opts.ResultsFile},
		{&cfg.TrendDB, opts.TrendDB},
		{&cfg.Schedule, opts.Schedule},
	} {
		if o.src != "" {
			*o.dst = o.src
		}
	}

	cfg.Strict = cfg.Strict || opts.Strict

	if err = config.Validate(cfg); err != nil {
		return nil, err
	}

	if err = cfg.RequireHandler(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseOptionalStatus parses a classified status; empty means none.
func parseOptionalStatus(text string) (alarm.Status, error) {
	if text == "" {
		return alarm.StatusUndefined, nil
	}

	status, err := alarm.ParseStatus(text)
	if err != nil || !status.IsClassified() {
		return alarm.StatusUndefined, fmt.Errorf("%w: %q", errInvalidStatus, text)
	}

	return status, nil
}

// Evaluation is a summary together with the catalog it was computed on.
type Evaluation struct {
	// Summary is the outcome of the pass.
	Summary *alarm.Summary
	// Catalog holds the evaluated histograms.
	Catalog *histogram.Catalog
}

// Evaluate loads the alarm configuration, exceptions and histograms and
// runs one evaluation pass.
func Evaluate(ctx context.Context, cfg *config.Config) (*Evaluation, error) {
	sets, err := alarmxml.LoadConfig(cfg.AlarmConfig)
	if err != nil {
		return nil, fmt.Errorf("load alarm configuration: %w", err)
	}

	var exceptions *alarm.ExceptionList
	if cfg.ExceptionsFile != "" {
		if exceptions, err = alarmxml.LoadExceptions(cfg.ExceptionsFile); err != nil {
			return nil, fmt.Errorf("load exceptions: %w", err)
		}
	}

	catalog, err := histogram.LoadFile(cfg.InputFile)
	if err != nil {
		return nil, fmt.Errorf("load histograms: %w", err)
	}

	logger.InfoKV(ctx, "Inputs loaded",
		"alarm_sets", len(sets),
		"exceptions", exceptions.Len(),
		"histograms", catalog.Len())

	handler := evaluation.NewHandler(evaluation.HandlerOptions{
		Registry:   algorithm.NewRegistry(),
		Sets:       sets,
		Exceptions: exceptions,
		Strict:     cfg.Strict,
	})

	summary, err := handler.Evaluate(ctx, catalog)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	return &Evaluation{Summary: summary, Catalog: catalog}, nil
}

// runScheduled runs pass on every tick of the cron schedule until the
// context is canceled. Failed passes are logged and do not stop the loop.
func runScheduled(ctx context.Context, spec string, pass func(context.Context) error) error {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("parse schedule: %w", err)
	}

	for {
		next := schedule.Next(time.Now())
		logger.InfoKV(ctx, "Next evaluation scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info(ctx, "Context canceled, exiting")

			return nil
		case <-timer.C:
		}

		if err = pass(ctx); err != nil {
			logger.ErrorKV(ctx, "Scheduled evaluation failed", "error", err)
		}
	}
}
