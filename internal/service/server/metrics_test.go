package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/latmon/internal/domain/alarm"
	"github.com/oshokin/latmon/internal/repository/results"
)

// TestMetrics_Observe publishes counts and the rollup severity.
func TestMetrics_Observe(t *testing.T) {
	t.Parallel()

	m := newMetrics()
	require.InDelta(t, -1, testutil.ToFloat64(m.rollup), 0)

	m.Observe(warningSummary("run-1"))

	require.InDelta(t, 1, testutil.ToFloat64(m.alarms.WithLabelValues("CLEAN")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.alarms.WithLabelValues("WARNING")), 0)
	require.InDelta(t, 0, testutil.ToFloat64(m.alarms.WithLabelValues("ERROR")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.rollup), 0)
	require.InDelta(t, 1700000000, testutil.ToFloat64(m.loaded), 0)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL) //nolint:noctx // test request
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `latmon_alarms{status="WARNING"} 1`)
}

// TestWatchResults reloads the service when the snapshot is rewritten.
func TestWatchResults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "results.json")
	repo := results.NewFileRepository(path)

	s, err := newService(context.Background(), repo, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- watchResults(ctx, path, func(ctx context.Context) { _ = s.Reload(ctx) })
	}()

	// Give the watcher time to register the directory.
	require.Eventually(t, func() bool {
		if err := repo.Save(context.Background(), warningSummary("run-3")); err != nil {
			return false
		}

		got, err := s.Summary(context.Background())

		return err == nil && got.RunID == "run-3"
	}, 5*time.Second, 50*time.Millisecond)

	// Unrelated files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.txt"), []byte("x"), 0o600))

	cancel()
	require.NoError(t, <-done)

	got, err := s.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, alarm.StatusWarning, got.Status())
}
