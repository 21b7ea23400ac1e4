// Package obs provides observability functionality including metrics and HTTP endpoints
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the relay.
type Metrics struct {
	QueueDepth          prometheus.Gauge
	EventsIngestedTotal prometheus.Counter
	EventsSkippedTotal  *prometheus.CounterVec
	OutcomesTotal       *prometheus.CounterVec
	AuditFailuresTotal  prometheus.Counter
	DLQMessagesTotal    prometheus.Counter
	RetryAttemptsTotal  prometheus.Counter
}

// NewMetrics creates and registers the relay metrics on reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(serviceName string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	labels := prometheus.Labels{"service": serviceName}

	return &Metrics{
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "queue_depth",
			Help:        "Current depth of the internal event queue",
			ConstLabels: labels,
		}),
		EventsIngestedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name:        "events_ingested_total",
			Help:        "Total number of gateway events accepted into the internal queue",
			ConstLabels: labels,
		}),
		EventsSkippedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "events_skipped_total",
			Help:        "Total number of events filtered out without side effects, by guard",
			ConstLabels: labels,
		}, []string{"reason"}),
		OutcomesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "events_processed_total",
			Help:        "Total number of events that advanced the watermark, by outcome",
			ConstLabels: labels,
		}, []string{"outcome"}),
		AuditFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Name:        "audit_failures_total",
			Help:        "Total number of audit entries that could not be posted",
			ConstLabels: labels,
		}),
		DLQMessagesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name:        "dlq_messages_total",
			Help:        "Total number of failed outcomes published to the dead-letter topic",
			ConstLabels: labels,
		}),
		RetryAttemptsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name:        "gateway_retry_attempts_total",
			Help:        "Total number of retried gateway connection attempts",
			ConstLabels: labels,
		}),
	}
}

// IncrementEventsIngested increments the events ingested counter by 1
func (m *Metrics) IncrementEventsIngested() {
	m.EventsIngestedTotal.Inc()
}

// IncrementQueueDepth increments the queue depth gauge metric by 1
func (m *Metrics) IncrementQueueDepth() {
	m.QueueDepth.Inc()
}

// DecrementQueueDepth decrements the queue depth gauge metric by 1
func (m *Metrics) DecrementQueueDepth() {
	m.QueueDepth.Dec()
}

// NullifyQueueDepth sets the queue depth gauge metric to 0
func (m *Metrics) NullifyQueueDepth() {
	m.QueueDepth.Set(0)
}

// ObserveSkip counts an event dropped by the named guard
func (m *Metrics) ObserveSkip(reason string) {
	m.EventsSkippedTotal.WithLabelValues(reason).Inc()
}

// ObserveOutcome counts a processed event by its final state
func (m *Metrics) ObserveOutcome(outcome string) {
	m.OutcomesTotal.WithLabelValues(outcome).Inc()
}

// IncrementAuditFailures increments the audit failures counter by 1
func (m *Metrics) IncrementAuditFailures() {
	m.AuditFailuresTotal.Inc()
}

// IncrementDLQMessages increments the DLQ messages counter by 1
func (m *Metrics) IncrementDLQMessages() {
	m.DLQMessagesTotal.Inc()
}

// IncrementRetryAttempts increments the retry attempts counter by 1
func (m *Metrics) IncrementRetryAttempts() {
	m.RetryAttemptsTotal.Inc()
}
