// Notifier - Real-Time Notification Delivery for CampusConnect
// Copyright 2026 CampusConnect
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusconnect/notifier

// Package metrics exposes Prometheus instrumentation for the delivery
// layer: connection counts, dispatch outcomes, offline queue depth, and
// heartbeat evictions. Metrics are served on /metrics by the API router.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connection Metrics
	WSActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notifier_ws_active_connections",
			Help: "Current number of active WebSocket sessions",
		},
	)

	WSConnectedUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notifier_ws_connected_users",
			Help: "Current number of distinct users with at least one session",
		},
	)

	WSConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifier_ws_connections_total",
			Help: "Total number of WebSocket sessions accepted",
		},
	)

	WSHeartbeatEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifier_ws_heartbeat_evictions_total",
			Help: "Total number of sessions evicted for missing heartbeat probes",
		},
	)

	// Dispatch Metrics
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_dispatch_total",
			Help: "Total number of dispatched notifications",
		},
		[]string{"kind", "outcome"}, // outcome: "delivered", "queued", "broadcast", "dropped"
	)

	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifier_ws_messages_sent_total",
			Help: "Total number of messages written to WebSocket sessions",
		},
	)

	MessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifier_ws_messages_received_total",
			Help: "Total number of messages read from WebSocket sessions",
		},
	)

	// Offline Queue Metrics
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notifier_queue_depth",
			Help: "Current number of notifications held for offline users",
		},
	)

	QueuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifier_queue_enqueued_total",
			Help: "Total number of notifications queued for offline delivery",
		},
	)

	QueueDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifier_queue_dropped_total",
			Help: "Total number of queued notifications evicted at the per-user cap",
		},
	)

	QueueDrainedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifier_queue_drained_total",
			Help: "Total number of queued notifications flushed on reconnect",
		},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notifier_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordDispatch records a dispatch outcome for a notification kind.
func RecordDispatch(kind, outcome string) {
	DispatchTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordConnect records a session registration.
func RecordConnect(activeSessions, activeUsers int) {
	WSConnectionsTotal.Inc()
	WSActiveConnections.Set(float64(activeSessions))
	WSConnectedUsers.Set(float64(activeUsers))
}

// RecordDisconnect records a session removal.
func RecordDisconnect(activeSessions, activeUsers int) {
	WSActiveConnections.Set(float64(activeSessions))
	WSConnectedUsers.Set(float64(activeUsers))
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
