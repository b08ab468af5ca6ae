// SignalGuard - Behavioral Signal Burst Detection
// Copyright 2026 SignalGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalguard/signalguard

// Package metrics provides Prometheus instrumentation for the ingestion
// path, the anomaly engine, the window store, and alert dispatch.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics
	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalguard_events_ingested_total",
			Help: "Total number of events durably ingested",
		},
		[]string{"signal_type"},
	)

	IngestFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalguard_ingest_failures_total",
			Help: "Total number of ingestions that failed after exhausting retries",
		},
		[]string{"stage"}, // "event", "anomaly"
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "signalguard_ingest_duration_seconds",
			Help:    "End-to-end ingestion latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	// Anomaly engine metrics
	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalguard_anomalies_detected_total",
			Help: "Total number of burst anomalies detected",
		},
		[]string{"signal_type", "severity"},
	)

	WindowCount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "signalguard_window_observed_count",
			Help:    "Observed per-user window counts at evaluation time",
			Buckets: []float64{1, 2, 5, 10, 15, 20, 30, 50, 100},
		},
	)

	// Window store metrics
	ActiveWindows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "signalguard_active_windows",
			Help: "Current number of per-user windows held in memory",
		},
	)

	WindowsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "signalguard_windows_evicted_total",
			Help: "Total number of idle windows evicted",
		},
	)

	// Persistence metrics
	PersistenceRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalguard_persistence_retries_total",
			Help: "Total number of retried persistence attempts",
		},
		[]string{"operation"},
	)

	// Alert dispatch metrics
	AlertsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalguard_alerts_dispatched_total",
			Help: "Total number of alert dispatch attempts by outcome",
		},
		[]string{"outcome"}, // "delivered", "failed", "dropped", "rejected"
	)

	AlertDispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "signalguard_alert_dispatch_duration_seconds",
			Help:    "Alert webhook delivery latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalguard_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signalguard_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordAPIRequest records a completed API request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
