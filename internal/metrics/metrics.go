// Package metrics records vault operation counters on a private Prometheus
// registry. Nothing is served over the network; the CLI prints the registry
// in the text exposition format on request.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Metric names.
const (
	OperationsTotal     = "satvault_operations_total"
	UnlockFailuresTotal = "satvault_unlock_failures_total"
	KDFSeconds          = "satvault_kdf_seconds"
	Unlocked            = "satvault_unlocked"
)

// Result label values.
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultRejected = "rejected"
)

// Metrics holds the vault collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry       *prometheus.Registry
	operations     *prometheus.CounterVec
	unlockFailures prometheus.Counter
	kdfSeconds     prometheus.Histogram
	unlocked       prometheus.Gauge
}

// Global is the process-wide instance used by the CLI.
//
//nolint:gochecknoglobals // Intentional global for metrics access
var Global = New()

// New creates a Metrics with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: OperationsTotal,
				Help: "Vault lifecycle operations by name and result",
			},
			[]string{"op", "result"},
		),
		unlockFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: UnlockFailuresTotal,
				Help: "Unlock attempts rejected because of a wrong password",
			},
		),
		kdfSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    KDFSeconds,
				Help:    "Time spent deriving keys from passwords",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
		),
		unlocked: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: Unlocked,
				Help: "1 while the vault holds unlocked key material",
			},
		),
	}
	m.registry.MustRegister(m.operations, m.unlockFailures, m.kdfSeconds, m.unlocked)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordOperation counts one op with its outcome.
func (m *Metrics) RecordOperation(op string, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.operations.WithLabelValues(op, result).Inc()
}

// RecordRejection counts an op that completed without error but refused
// its input, such as an unlock with the wrong password.
func (m *Metrics) RecordRejection(op string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, ResultRejected).Inc()
}

// RecordUnlockFailure counts a wrong-password unlock.
func (m *Metrics) RecordUnlockFailure() {
	if m == nil {
		return
	}
	m.unlockFailures.Inc()
}

// ObserveKDF records one key derivation.
func (m *Metrics) ObserveKDF(d time.Duration) {
	if m == nil {
		return
	}
	m.kdfSeconds.Observe(d.Seconds())
}

// SetUnlocked tracks whether key material is resident.
func (m *Metrics) SetUnlocked(unlocked bool) {
	if m == nil {
		return
	}
	if unlocked {
		m.unlocked.Set(1)
		return
	}
	m.unlocked.Set(0)
}

// OpCounts holds the outcome counters of a single operation.
type OpCounts struct {
	OK       int64 `json:"ok"`
	Error    int64 `json:"error"`
	Rejected int64 `json:"rejected"`
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	Operations     map[string]OpCounts `json:"operations"`
	UnlockFailures int64               `json:"unlock_failures"`
	KDFCount       uint64              `json:"kdf_count"`
	KDFSeconds     float64             `json:"kdf_seconds"`
	Unlocked       bool                `json:"unlocked"`
}

// Snapshot gathers the registry into a Snapshot.
func (m *Metrics) Snapshot() (Snapshot, error) {
	snap := Snapshot{Operations: map[string]OpCounts{}}
	if m == nil {
		return snap, nil
	}

	families, err := m.registry.Gather()
	if err != nil {
		return snap, fmt.Errorf("gathering metrics: %w", err)
	}

	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch mf.GetName() {
			case OperationsTotal:
				addOperation(snap.Operations, metric)
			case UnlockFailuresTotal:
				snap.UnlockFailures = int64(metric.GetCounter().GetValue())
			case KDFSeconds:
				snap.KDFCount = metric.GetHistogram().GetSampleCount()
				snap.KDFSeconds = metric.GetHistogram().GetSampleSum()
			case Unlocked:
				snap.Unlocked = metric.GetGauge().GetValue() > 0
			}
		}
	}
	return snap, nil
}

func addOperation(ops map[string]OpCounts, metric *dto.Metric) {
	var op, result string
	for _, lp := range metric.GetLabel() {
		switch lp.GetName() {
		case "op":
			op = lp.GetValue()
		case "result":
			result = lp.GetValue()
		}
	}

	counts := ops[op]
	value := int64(metric.GetCounter().GetValue())
	switch result {
	case ResultOK:
		counts.OK += value
	case ResultRejected:
		counts.Rejected += value
	default:
		counts.Error += value
	}
	ops[op] = counts
}

// WriteText writes the registry in the Prometheus text exposition format.
func (m *Metrics) WriteText(w io.Writer) error {
	if m == nil {
		return nil
	}

	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err = expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("encoding %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
