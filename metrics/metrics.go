// Package metrics exposes prometheus instrumentation for the sync core.
// All observation methods are nil-safe so instrumentation stays optional
// on every component.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the instruments shared by the REST client, the event
// channel, and the controllers.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	eventsPublished *prometheus.CounterVec
	eventsReceived  *prometheus.CounterVec
	mergesApplied   *prometheus.CounterVec
	mergesIgnored   *prometheus.CounterVec
	dragRollbacks   prometheus.Counter
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boardsync_requests_total",
			Help: "REST requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "boardsync_request_duration_seconds",
			Help:    "REST request latency by operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boardsync_events_published_total",
			Help: "Push events published by topic.",
		}, []string{"topic"}),
		eventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boardsync_events_received_total",
			Help: "Push events received by topic.",
		}, []string{"topic"}),
		mergesApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boardsync_merges_applied_total",
			Help: "Store merges that changed the collection, by collection and operation.",
		}, []string{"collection", "operation"}),
		mergesIgnored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boardsync_merges_ignored_total",
			Help: "Idempotent store merges that were already applied (duplicate delivery).",
		}, []string{"collection", "operation"}),
		dragRollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boardsync_drag_rollbacks_total",
			Help: "Optimistic drag moves rolled back after a failed update.",
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.eventsPublished,
		m.eventsReceived,
		m.mergesApplied,
		m.mergesIgnored,
		m.dragRollbacks,
	)
	return m
}

// Registry returns the underlying prometheus registry for exposition.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRequest records one REST request.
func (m *Metrics) ObserveRequest(operation string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.requests.WithLabelValues(operation, outcome).Inc()
	m.requestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// EventPublished records one outgoing push event.
func (m *Metrics) EventPublished(topic string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(topic).Inc()
}

// EventReceived records one incoming push event.
func (m *Metrics) EventReceived(topic string) {
	if m == nil {
		return
	}
	m.eventsReceived.WithLabelValues(topic).Inc()
}

// MergeApplied records a store merge that changed the collection.
func (m *Metrics) MergeApplied(collection, operation string) {
	if m == nil {
		return
	}
	m.mergesApplied.WithLabelValues(collection, operation).Inc()
}

// MergeIgnored records an idempotent merge that had already been applied.
func (m *Metrics) MergeIgnored(collection, operation string) {
	if m == nil {
		return
	}
	m.mergesIgnored.WithLabelValues(collection, operation).Inc()
}

// DragRollback records one rolled-back optimistic drag move.
func (m *Metrics) DragRollback() {
	if m == nil {
		return
	}
	m.dragRollbacks.Inc()
}
