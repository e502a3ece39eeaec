package handler

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/oshokin/latmon/internal/config"
	"github.com/oshokin/latmon/internal/domain/alarm"
	"github.com/oshokin/latmon/internal/histogram"
	"github.com/oshokin/latmon/internal/logger"
	"github.com/oshokin/latmon/internal/report"
	"github.com/oshokin/latmon/internal/repository/results"
	"github.com/oshokin/latmon/internal/repository/trend"
)

// Report file names inside the report directory.
const (
	TextReportFilename = "summary.txt"
	HTMLReportFilename = "index.html"
)

// WriteOutputs persists the summary to every configured destination: the
// results snapshot always, the XML summary, report directory and trend
// database when set.
func WriteOutputs(
	ctx context.Context,
	cfg *config.Config,
	catalog *histogram.Catalog,
	summary *alarm.Summary,
	threshold alarm.Status,
) error {
	if err := results.NewFileRepository(cfg.ResultsFile).Save(ctx, summary); err != nil {
		return fmt.Errorf("save results: %w", err)
	}

	logger.InfoKV(ctx, "Results saved", "run_id", summary.RunID, "path", cfg.ResultsFile)

	if cfg.SummaryFile != "" {
		if err := writeFile(cfg.SummaryFile, func(w io.Writer) error {
			return report.WriteXML(w, summary)
		}); err != nil {
			return err
		}

		logger.InfoKV(ctx, "XML summary written", "path", cfg.SummaryFile)
	}

	if cfg.ReportDir != "" {
		if err := writeReportDir(cfg.ReportDir, catalog, summary, threshold); err != nil {
			return err
		}

		logger.InfoKV(ctx, "Reports written", "dir", cfg.ReportDir)
	}

	if cfg.TrendDB != "" {
		if err := recordTrend(ctx, cfg.TrendDB, summary); err != nil {
			return err
		}
	}

	return nil
}

// writeReportDir writes the text and HTML reports and the plots.
func writeReportDir(dir string, catalog *histogram.Catalog, summary *alarm.Summary, threshold alarm.Status) error {
	if err := os.MkdirAll(dir, config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	if err := writeFile(filepath.Join(dir, TextReportFilename), func(w io.Writer) error {
		return report.WriteText(w, summary, threshold)
	}); err != nil {
		return err
	}

	images, err := report.RenderPlots(dir, catalog, summary)
	if err != nil {
		return fmt.Errorf("render plots: %w", err)
	}

	return writeFile(filepath.Join(dir, HTMLReportFilename), func(w io.Writer) error {
		return report.WriteHTML(w, summary, threshold, images)
	})
}

// recordTrend appends the summary to the trend database.
func recordTrend(ctx context.Context, path string, summary *alarm.Summary) error {
	store, err := trend.Open(ctx, path)
	if err != nil {
		return err
	}

	defer func() { _ = store.Close() }()

	if err = store.Record(ctx, summary); err != nil {
		return fmt.Errorf("record trend: %w", err)
	}

	return nil
}

// writeFile creates path with restricted permissions and fills it.
func writeFile(path string, fill func(io.Writer) error) (err error) {
	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, config.DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	return fill(f)
}
