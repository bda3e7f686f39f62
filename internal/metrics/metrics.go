// Package metrics exposes Prometheus counters for the transaction engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "financas"

// Metrics groups the engine's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	SnapshotsApplied   prometheus.Counter
	SnapshotsDiscarded prometheus.Counter
	StreamErrors       prometheus.Counter
	Subscriptions      prometheus.Counter
	Writes             *prometheus.CounterVec
	ListSize           prometheus.Gauge
	ChangeMessages     *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SnapshotsApplied: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_applied_total",
			Help:      "Snapshots that replaced the local transaction list.",
		}),
		SnapshotsDiscarded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_discarded_total",
			Help:      "Snapshots dropped because their subscription generation was superseded.",
		}),
		StreamErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_errors_total",
			Help:      "Subscription failures, at setup or mid-stream.",
		}),
		Subscriptions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriptions_opened_total",
			Help:      "Subscriptions opened by the store.",
		}),
		Writes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writes_total",
			Help:      "Store writes by operation and result.",
		}, []string{"op", "result"}),
		ListSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transactions",
			Help:      "Transactions in the current local list.",
		}),
		ChangeMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "change_messages_total",
			Help:      "AMQP change notifications by direction.",
		}, []string{"direction"}),
	}
}

// Write result labels.
const (
	ResultOK       = "ok"
	ResultInvalid  = "invalid"
	ResultNotFound = "not_found"
	ResultFailed   = "failed"
)

func (m *Metrics) Applied(size int) {
	if m == nil {
		return
	}
	m.SnapshotsApplied.Inc()
	m.ListSize.Set(float64(size))
}

func (m *Metrics) Discarded() {
	if m == nil {
		return
	}
	m.SnapshotsDiscarded.Inc()
}

func (m *Metrics) StreamError() {
	if m == nil {
		return
	}
	m.StreamErrors.Inc()
}

func (m *Metrics) Subscribed() {
	if m == nil {
		return
	}
	m.Subscriptions.Inc()
}

func (m *Metrics) Cleared() {
	if m == nil {
		return
	}
	m.ListSize.Set(0)
}

func (m *Metrics) Write(op, result string) {
	if m == nil {
		return
	}
	m.Writes.WithLabelValues(op, result).Inc()
}

func (m *Metrics) Change(direction string) {
	if m == nil {
		return
	}
	m.ChangeMessages.WithLabelValues(direction).Inc()
}
