// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics holds the bot's Prometheus instruments. Each Metrics
// owns its registry so tests and multiple bots in one process do not
// collide on the global one. All methods are safe on a nil *Metrics,
// which records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mcwhitelist"

// Metrics records command, transition, notification and store
// activity.
type Metrics struct {
	registry *prometheus.Registry

	// Commands counts dispatched commands by name and outcome. The bot
	// counts unknown commands under the name "unknown".
	Commands *prometheus.CounterVec

	// Transitions counts state machine operations by operation and
	// result ("ok" or the error kind).
	Transitions *prometheus.CounterVec

	// Notifications counts delivered and failed intents by kind.
	Notifications *prometheus.CounterVec

	// Records is the number of records in the store by state.
	Records *prometheus.GaugeVec

	// IdentityLatency is the duration of identity service requests.
	IdentityLatency *prometheus.HistogramVec
}

// New creates a Metrics with every instrument registered on a fresh
// registry, plus the Go runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		Commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Chat commands dispatched, by command and outcome.",
		}, []string{"command", "outcome"}),

		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Whitelist state machine operations, by operation and result.",
		}, []string{"operation", "result"}),

		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification intents, by kind and delivery outcome.",
		}, []string{"kind", "outcome"}),

		Records: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records",
			Help:      "Whitelist records in the store, by state.",
		}, []string{"state"}),

		IdentityLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "identity_request_duration_seconds",
			Help:      "Duration of identity service requests, by endpoint.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCommand records a dispatched command.
func (m *Metrics) ObserveCommand(command, outcome string) {
	if m != nil {
		m.Commands.WithLabelValues(command, outcome).Inc()
	}
}

// ObserveTransition records a state machine operation.
func (m *Metrics) ObserveTransition(operation, result string) {
	if m != nil {
		m.Transitions.WithLabelValues(operation, result).Inc()
	}
}

// ObserveNotification records an intent delivery attempt.
func (m *Metrics) ObserveNotification(kind, outcome string) {
	if m != nil {
		m.Notifications.WithLabelValues(kind, outcome).Inc()
	}
}

// SetRecords sets the record gauges.
func (m *Metrics) SetRecords(pending, approved int) {
	if m != nil {
		m.Records.WithLabelValues("pending").Set(float64(pending))
		m.Records.WithLabelValues("approved").Set(float64(approved))
	}
}

// ObserveIdentityLatency records the duration of an identity request.
func (m *Metrics) ObserveIdentityLatency(endpoint string, d time.Duration) {
	if m != nil {
		m.IdentityLatency.WithLabelValues(endpoint).Observe(d.Seconds())
	}
}
