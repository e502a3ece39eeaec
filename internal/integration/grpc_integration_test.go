package integration

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/latmon/internal/config"
	"github.com/oshokin/latmon/internal/domain/alarm"
	"github.com/oshokin/latmon/internal/service/common"
	"github.com/oshokin/latmon/internal/service/handler"
	"github.com/oshokin/latmon/internal/service/inspector"
	"github.com/oshokin/latmon/internal/service/server"
)

const alarmsDocument = `<?xml version="1.0"?>
<alarmConfig>
  <alarmList name="towers">
    <alarmSet name="Tower_*">
      <alarm function="x_average">
        <warning_limits min="2" max="3"/>
        <error_limits min="0" max="4"/>
      </alarm>
      <alarm function="num_entries">
        <warning_limits min="5" max="100"/>
        <error_limits min="1" max="1000"/>
      </alarm>
    </alarmSet>
  </alarmList>
</alarmConfig>`

const exceptionsDocument = `<?xml version="1.0"?>
<alarmExceptions>
  <alarm name="Tower_2" algorithm="x_average">
    <exception status_on_violation="CLEAN"/>
  </alarm>
</alarmExceptions>`

const histogramsDocument = `histograms:
  - name: Tower_1
    bins: 4
    xmin: 0
    xmax: 4
    contents: [0, 0, 10, 0]
  - name: Tower_2
    bins: 4
    xmin: 0
    xmax: 4
    contents: [0, 0, 0, 10]
`

// reservePort returns a free local TCP address.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	_ = l.Close()

	return addr
}

// writeSettings stores the inputs and a settings file in a temporary
// directory and returns the settings path and content.
func writeSettings(t *testing.T, addr string) (string, *config.Config) {
	t.Helper()

	dir := t.TempDir()

	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

		return path
	}

	cfg := &config.Config{
		AlarmConfig:    write("alarms.xml", alarmsDocument),
		ExceptionsFile: write("exceptions.xml", exceptionsDocument),
		InputFile:      write("histograms.yaml", histogramsDocument),
		ResultsFile:    filepath.Join(dir, "results", "latest.json"),
		ServerAddress:  addr,
		Timeout:        3 * time.Second,
	}

	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, config.Save(path, cfg))

	return path, cfg
}

// startServer runs the report server until the returned stop function is called.
func startServer(t *testing.T, cfgPath string) (stop func()) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- server.Run(ctx, &server.Options{ConfigPath: cfgPath})
	}()

	// Wait briefly for server to start listening.
	time.Sleep(150 * time.Millisecond)

	return func() {
		cancel()
		require.NoError(t, <-done)
	}
}

// TestPipeline_HandlerToServer evaluates alarms and reads them back through the report service.
func TestPipeline_HandlerToServer(t *testing.T) {
	t.Parallel()

	addr := reservePort(t)
	cfgPath, _ := writeSettings(t, addr)

	stop := startServer(t, cfgPath)
	defer stop()

	ctx := context.Background()

	c, err := common.Dial(ctx, addr, common.WithCallTimeout(3*time.Second))
	require.NoError(t, err)

	defer func() {
		_ = c.Close()
	}()

	// Nothing evaluated yet.
	_, err = c.GetSummary(ctx, alarm.StatusUndefined)
	require.Error(t, err)

	require.NoError(t, handler.Run(ctx, &handler.Options{ConfigPath: cfgPath}))

	var summary *alarm.Summary

	// The server picks the snapshot up from the file watcher.
	require.Eventually(t, func() bool {
		summary, err = c.GetSummary(ctx, alarm.StatusUndefined)

		return err == nil
	}, 5*time.Second, 50*time.Millisecond)

	require.Len(t, summary.Results, 4)
	// Tower_2 x_average is a warning, rolled up as clean by the exception.
	require.Equal(t, alarm.StatusClean, summary.Status())

	found, err := c.GetAlarm(ctx, "Tower_2", "x_average")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, alarm.StatusWarning, found[0].Status())
	require.Equal(t, alarm.StatusClean, found[0].Rollup)

	warnings, err := c.GetSummary(ctx, alarm.StatusWarning)
	require.NoError(t, err)
	require.Len(t, warnings.Results, 1)

	var out bytes.Buffer

	require.NoError(t, inspector.Run(ctx, &inspector.Options{ConfigPath: cfgPath, MinStatus: "warning"}, &out))
	require.Contains(t, out.String(), "x_average on Tower_2")
	require.NotContains(t, out.String(), "on Tower_1")
}

// TestInspector_WatchReturnsOnCancel runs the inspector in watch mode and cancels it.
func TestInspector_WatchReturnsOnCancel(t *testing.T) {
	t.Parallel()

	addr := reservePort(t)
	cfgPath, _ := writeSettings(t, addr)

	stop := startServer(t, cfgPath)
	defer stop()

	require.NoError(t, handler.Run(context.Background(), &handler.Options{ConfigPath: cfgPath}))

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	var out bytes.Buffer

	go func() {
		done <- inspector.Run(runCtx, &inspector.Options{
			ConfigPath:   cfgPath,
			Alarm:        "Tower_1",
			Watch:        true,
			PollInterval: 50 * time.Millisecond,
		}, &out)
	}()

	// Wait for a few polls, then cancel.
	time.Sleep(300 * time.Millisecond)
	cancel()

	require.NoError(t, <-done)
	require.Contains(t, out.String(), "on Tower_1")
}
