package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nholik/bt-sentinel/internal/check"
	"github.com/nholik/bt-sentinel/internal/health"
	"github.com/nholik/bt-sentinel/internal/recovery"
)

// Metrics wraps Prometheus collectors for bt-sentinel.
type Metrics struct {
	registry              *prometheus.Registry
	cycleDurationSeconds  prometheus.Histogram
	cyclesTotal           *prometheus.CounterVec
	checkStatus           *prometheus.GaugeVec
	recoveryAttemptsTotal *prometheus.CounterVec
	broadcomResetDetected prometheus.Counter
	lastHealthyGauge      prometheus.Gauge
}

// New initializes a Metrics registry with all collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		cycleDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bt_sentinel_cycle_duration_seconds",
			Help:    "Duration of health evaluation cycles in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		cyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bt_sentinel_cycles_total",
			Help: "Total health cycles by result.",
		}, []string{"result"}),
		checkStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bt_sentinel_check_status",
			Help: "Latest per-check verdict: 1 ok, 0 fail, -1 unknown.",
		}, []string{"check"}),
		recoveryAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bt_sentinel_recovery_attempts_total",
			Help: "Total recovery actions by action and outcome.",
		}, []string{"action", "outcome"}),
		broadcomResetDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bt_sentinel_broadcom_reset_detected_total",
			Help: "Times the Broadcom reset signature was detected.",
		}),
		lastHealthyGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bt_sentinel_last_healthy_timestamp",
			Help: "Unix timestamp of the last healthy cycle.",
		}),
	}

	registry.MustRegister(
		m.cycleDurationSeconds,
		m.cyclesTotal,
		m.checkStatus,
		m.recoveryAttemptsTotal,
		m.broadcomResetDetected,
		m.lastHealthyGauge,
	)

	return m
}

// Handler returns a Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCycle records the duration and result of a completed cycle.
func (m *Metrics) ObserveCycle(duration time.Duration, report health.Report) {
	if m == nil {
		return
	}
	m.cycleDurationSeconds.Observe(duration.Seconds())

	result := "healthy"
	if !report.Healthy() {
		result = "unhealthy"
	}
	m.cyclesTotal.WithLabelValues(result).Inc()

	for _, checkResult := range report.Checks {
		m.checkStatus.WithLabelValues(checkResult.Name).Set(statusValue(checkResult.Status))
	}
	if report.BroadcomReset {
		m.broadcomResetDetected.Inc()
	}
	if report.Healthy() {
		m.lastHealthyGauge.Set(float64(report.EvaluatedAt.Unix()))
	}
}

// ObserveRecovery records the per-action outcomes of a ladder run.
func (m *Metrics) ObserveRecovery(summary recovery.Summary) {
	if m == nil {
		return
	}
	for _, outcome := range summary.Outcomes {
		result := "failure"
		if outcome.Succeeded {
			result = "success"
		}
		m.recoveryAttemptsTotal.WithLabelValues(outcome.Action, result).Inc()
	}
}

func statusValue(status check.Status) float64 {
	switch status {
	case check.StatusOK:
		return 1
	case check.StatusFail:
		return 0
	default:
		return -1
	}
}
