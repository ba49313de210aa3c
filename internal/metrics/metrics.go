// Package metrics exposes Prometheus instrumentation for catalog
// reconciliation. Collectors are registered on the default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// Connector operation label values.
const (
	OperationCreate  = "create"
	OperationDrop    = "drop"
	OperationPublish = "publish"
	OperationRetract = "retract"
)

var (
	cyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalogd",
			Subsystem: "reconcile",
			Name:      "cycles_total",
			Help:      "Total number of reconcile cycles by result",
		},
		[]string{"result"},
	)

	cycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "catalogd",
			Subsystem: "reconcile",
			Name:      "duration_seconds",
			Help:      "Duration of reconcile cycles in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		},
	)

	catalogsApplied = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "catalogd",
			Name:      "catalogs_applied",
			Help:      "Number of catalogs currently applied",
		},
	)

	catalogsReady = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "catalogd",
			Name:      "catalogs_ready",
			Help:      "Whether the initial catalog load completed (1) or not (0)",
		},
	)

	connectorOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalogd",
			Subsystem: "connector",
			Name:      "operations_total",
			Help:      "Total number of connector and announcement operations by result",
		},
		[]string{"operation", "result"},
	)

	sourceLoadErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalogd",
			Subsystem: "source",
			Name:      "load_errors_total",
			Help:      "Total number of failed catalog source loads by error kind",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		cyclesTotal,
		cycleDuration,
		catalogsApplied,
		catalogsReady,
		connectorOperationsTotal,
		sourceLoadErrorsTotal,
	)
}

// RecordCycle records a finished reconcile cycle.
func RecordCycle(result string, seconds float64) {
	cyclesTotal.WithLabelValues(result).Inc()
	cycleDuration.Observe(seconds)
}

// SetApplied records the size of the applied catalog set.
func SetApplied(n int) {
	catalogsApplied.Set(float64(n))
}

// SetReady records the readiness flag.
func SetReady(ready bool) {
	if ready {
		catalogsReady.Set(1)
	} else {
		catalogsReady.Set(0)
	}
}

// RecordConnectorOperation records a registry or announcer call.
func RecordConnectorOperation(operation, result string) {
	connectorOperationsTotal.WithLabelValues(operation, result).Inc()
}

// RecordSourceError records a failed source load.
func RecordSourceError(kind string) {
	sourceLoadErrorsTotal.WithLabelValues(kind).Inc()
}
