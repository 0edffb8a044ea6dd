// Package observability provides Prometheus metrics for pnlrisk runs.
//
// The CLI is a batch tool, so metrics are collected on a private registry
// and written to a node_exporter textfile at the end of a run instead of
// being served over HTTP.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for one process. All methods are
// safe to call on a nil *Metrics, which records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	// Ingestion
	TradesIngested prometheus.Counter
	TradesSkipped  *prometheus.CounterVec

	// Attribution
	DaysAttributed prometheus.Counter

	// Monte Carlo
	IterationsCompleted *prometheus.CounterVec
	RunsCancelled       prometheus.Counter

	// Pipeline
	StageDuration *prometheus.HistogramVec
	RunsTotal     *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered on a fresh registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pnlrisk"
	}

	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		TradesIngested: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "trades_ingested_total",
			Help:      "Total number of trade rows accepted from the ledger",
		}),
		TradesSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "trades_skipped_total",
			Help:      "Total number of trade rows skipped, by reason",
		}, []string{"reason"}),

		DaysAttributed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "attribution",
			Name:      "days_attributed_total",
			Help:      "Total number of session days with attributed PnL",
		}),

		IterationsCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "montecarlo",
			Name:      "iterations_completed_total",
			Help:      "Total number of completed resampling iterations, by period type",
		}, []string{"period"}),
		RunsCancelled: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "montecarlo",
			Name:      "runs_cancelled_total",
			Help:      "Total number of resampling runs stopped by cancellation",
		}),

		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"status"}),
	}
}

func (m *Metrics) IncIngested(n int) {
	if m == nil {
		return
	}
	m.TradesIngested.Add(float64(n))
}

func (m *Metrics) IncSkipped(reason string) {
	if m == nil {
		return
	}
	m.TradesSkipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) AddDays(n int) {
	if m == nil {
		return
	}
	m.DaysAttributed.Add(float64(n))
}

func (m *Metrics) AddIterations(period string, n int) {
	if m == nil {
		return
	}
	m.IterationsCompleted.WithLabelValues(period).Add(float64(n))
}

func (m *Metrics) IncCancelled() {
	if m == nil {
		return
	}
	m.RunsCancelled.Inc()
}

func (m *Metrics) IncRun(status string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
}

// ObserveStage records the time since start under the given stage label.
// Typical use: defer m.ObserveStage("attribution", time.Now()).
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// WriteTextfile writes the current metric values in the text exposition
// format, for pickup by the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
