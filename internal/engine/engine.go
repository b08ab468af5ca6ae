// SignalGuard - Behavioral Signal Burst Detection
// Copyright 2026 SignalGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalguard/signalguard

// Package engine orchestrates event ingestion: durable persistence, sliding
// window update, threshold evaluation, anomaly recording, and alert
// dispatch.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/signalguard/signalguard/internal/dispatch"
	"github.com/signalguard/signalguard/internal/logging"
	"github.com/signalguard/signalguard/internal/metrics"
	"github.com/signalguard/signalguard/internal/models"
	"github.com/signalguard/signalguard/internal/policy"
	"github.com/signalguard/signalguard/internal/store"
	"github.com/signalguard/signalguard/internal/window"
)

// Gateway is the durable persistence contract the engine depends on.
type Gateway interface {
	AppendEvent(ctx context.Context, event *models.Event) error
	AppendAnomaly(ctx context.Context, anomaly *models.Anomaly) error
}

// Config holds engine tunables.
type Config struct {
	// Horizon is the trailing interval over which events are counted.
	Horizon time.Duration
}

// Engine is the anomaly detection core. It is stateless per call; all
// per-user state lives in the window store, all durable state behind the
// gateway. Safe for concurrent use.
type Engine struct {
	gateway  Gateway
	windows  window.Store
	policy   *policy.Policy
	notifier dispatch.Notifier
	retry    store.RetryPolicy
	horizon  time.Duration
}

// New creates an anomaly engine.
func New(
	gateway Gateway,
	windows window.Store,
	pol *policy.Policy,
	notifier dispatch.Notifier,
	retry store.RetryPolicy,
	cfg Config,
) *Engine {
	horizon := cfg.Horizon
	if horizon <= 0 {
		horizon = 5 * time.Second
	}
	if notifier == nil {
		notifier = dispatch.NopNotifier{}
	}
	return &Engine{
		gateway:  gateway,
		windows:  windows,
		policy:   pol,
		notifier: notifier,
		retry:    retry,
		horizon:  horizon,
	}
}

// Ingest processes one event end to end:
//
//  1. Durably persist the event (retried; exhaustion is a hard failure and
//     the caller must know the event was not recorded).
//  2. Record the timestamp into the user's window, prune at ts-horizon, and
//     read count and earliest in one serialized step.
//  3. Evaluate the threshold policy. On breach, build and persist an
//     anomaly record.
//  4. For critical breaches, hand the anomaly to the dispatcher,
//     fire-and-forget.
//
// The returned anomaly is nil when no breach occurred. Anomaly persistence
// and dispatch failures never fail the ingestion: by then the event is
// already durable.
func (e *Engine) Ingest(ctx context.Context, event *models.Event) (*models.Anomaly, error) {
	start := time.Now()

	if err := e.retry.Do(ctx, "append_event", func(ctx context.Context) error {
		return e.gateway.AppendEvent(ctx, event)
	}); err != nil {
		metrics.IngestFailures.WithLabelValues("event").Inc()
		return nil, fmt.Errorf("event not durably recorded: %w", err)
	}

	cutoff := event.Timestamp.Add(-e.horizon)
	obs, err := e.windows.Observe(ctx, event.UserID, event.Timestamp, cutoff)
	if err != nil {
		// The event is durable; losing one window update only delays
		// detection. Ingestion still succeeds.
		logging.Ctx(ctx).Error().
			Err(err).
			Str("user_id", event.UserID).
			Msg("window update failed")
		metrics.EventsIngested.WithLabelValues(event.SignalType).Inc()
		metrics.IngestDuration.Observe(time.Since(start).Seconds())
		return nil, nil
	}

	metrics.EventsIngested.WithLabelValues(event.SignalType).Inc()
	metrics.WindowCount.Observe(float64(obs.Count))

	threshold := e.policy.Threshold(event.SignalType)
	severity, breached := e.policy.Severity(obs.Count, threshold)
	if !breached {
		metrics.IngestDuration.Observe(time.Since(start).Seconds())
		return nil, nil
	}

	anomaly := &models.Anomaly{
		ID:          uuid.New().String(),
		UserID:      event.UserID,
		SignalType:  event.SignalType,
		DetectedAt:  event.Timestamp,
		Count:       obs.Count,
		WindowStart: obs.Earliest,
		Severity:    severity,
		Rule:        e.policy.Rule(event.SignalType),
	}

	logging.Ctx(ctx).Warn().
		Str("user_id", anomaly.UserID).
		Str("signal_type", anomaly.SignalType).
		Str("severity", string(anomaly.Severity)).
		Int("count", anomaly.Count).
		Int("threshold", threshold).
		Str("rule", anomaly.Rule).
		Msg("burst anomaly detected")
	metrics.AnomaliesDetected.WithLabelValues(anomaly.SignalType, string(anomaly.Severity)).Inc()

	if err := e.retry.Do(ctx, "append_anomaly", func(ctx context.Context) error {
		return e.gateway.AppendAnomaly(ctx, anomaly)
	}); err != nil {
		metrics.IngestFailures.WithLabelValues("anomaly").Inc()
		logging.Ctx(ctx).Error().
			Err(err).
			Str("user_id", anomaly.UserID).
			Msg("anomaly record not persisted")
	}

	if anomaly.Severity == models.SeverityCritical {
		e.notifier.Notify(anomaly.View())
	}

	metrics.IngestDuration.Observe(time.Since(start).Seconds())
	return anomaly, nil
}
