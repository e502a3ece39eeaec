package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oshokin/latmon/internal/domain/alarm"
)

// metrics exports the latest summary as Prometheus gauges.
type metrics struct {
	// registry holds only the collectors below.
	registry *prometheus.Registry
	// alarms counts results per status.
	alarms *prometheus.GaugeVec
	// rollup is the severity of the overall status, -1 when undefined.
	rollup prometheus.Gauge
	// loaded is the Unix time of the summary timestamp.
	loaded prometheus.Gauge
}

// newMetrics registers the summary gauges on a fresh registry.
func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		alarms: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "latmon",
			Name:      "alarms",
			Help:      "Number of alarms per status in the latest summary.",
		}, []string{"status"}),
		rollup: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "latmon",
			Name:      "rollup_severity",
			Help:      "Severity of the overall status: 0 clean, 1 warning, 2 error, -1 undefined.",
		}),
		loaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "latmon",
			Name:      "summary_timestamp_seconds",
			Help:      "Start time of the evaluation pass of the latest summary.",
		}),
	}

	m.registry.MustRegister(m.alarms, m.rollup, m.loaded)
	m.rollup.Set(float64(alarm.StatusUndefined.Severity()))

	return m
}

// Observe publishes a summary.
func (m *metrics) Observe(summary *alarm.Summary) {
	counts := summary.Counts()

	for _, status := range []alarm.Status{
		alarm.StatusClean,
		alarm.StatusWarning,
		alarm.StatusError,
		alarm.StatusUndefined,
	} {
		m.alarms.WithLabelValues(status.String()).Set(float64(counts[status]))
	}

	m.rollup.Set(float64(summary.Status().Severity()))

	if !summary.Timestamp.IsZero() {
		m.loaded.Set(float64(summary.Timestamp.Unix()))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
