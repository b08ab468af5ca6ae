// SignalGuard - Behavioral Signal Burst Detection
// Copyright 2026 SignalGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalguard/signalguard

// Package dispatch delivers critical-anomaly notifications to an external
// alert sink. Delivery is fire-and-forget: the ingestion path enqueues and
// moves on, a background worker posts with a bounded timeout, and every
// failure mode (queue full, breaker open, timeout, non-2xx) is recorded for
// observability and swallowed.
package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/signalguard/signalguard/internal/logging"
	"github.com/signalguard/signalguard/internal/metrics"
	"github.com/signalguard/signalguard/internal/models"
)

// Notifier is the alert dispatch contract consumed by the anomaly engine.
type Notifier interface {
	// Notify enqueues a notification. It never blocks and never returns an
	// error to the caller; delivery is best-effort, at-most-once.
	Notify(view models.AlertView)
}

// Config configures the webhook dispatcher.
type Config struct {
	// WebhookURL is the alert sink endpoint. Empty disables dispatch.
	WebhookURL string

	// Headers are extra request headers (e.g. auth).
	Headers map[string]string

	// Timeout bounds each delivery attempt. Default: 1s.
	Timeout time.Duration

	// QueueSize bounds the dispatch queue. A full queue drops notifications
	// rather than blocking the ingestion path. Default: 256.
	QueueSize int

	// RatePerSecond caps outbound notifications. Zero means unlimited.
	RatePerSecond float64
}

// WebhookDispatcher posts alert notifications to an HTTP endpoint from a
// background worker. A circuit breaker stops hammering a sink that keeps
// failing; the breaker's own rejections count as failed dispatches.
type WebhookDispatcher struct {
	cfg     Config
	client  *http.Client
	queue   chan models.AlertView
	breaker *gobreaker.CircuitBreaker[*http.Response]
	limiter *rate.Limiter

	// results carries per-delivery outcomes. Nothing on the ingestion path
	// ever reads it; it exists so tests can observe delivery completion.
	results chan error
}

// NewWebhookDispatcher creates a dispatcher. Run the delivery worker via
// Serve.
func NewWebhookDispatcher(cfg Config) *WebhookDispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	settings := gobreaker.Settings{
		Name:     "alert-webhook",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}

	return &WebhookDispatcher{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		queue:   make(chan models.AlertView, cfg.QueueSize),
		breaker: gobreaker.NewCircuitBreaker[*http.Response](settings),
		limiter: limiter,
		results: make(chan error, cfg.QueueSize),
	}
}

// Enabled reports whether a sink is configured.
func (d *WebhookDispatcher) Enabled() bool {
	return d.cfg.WebhookURL != ""
}

// Notify enqueues an alert for background delivery. When the queue is full
// the notification is dropped and counted; ingestion is never delayed.
func (d *WebhookDispatcher) Notify(view models.AlertView) {
	if !d.Enabled() {
		return
	}

	select {
	case d.queue <- view:
	default:
		metrics.AlertsDispatched.WithLabelValues("dropped").Inc()
		logging.Warn().
			Str("user_id", view.UserID).
			Msg("alert queue full, dropping notification")
	}
}

// Serve runs the delivery worker until the context is canceled, then drains
// whatever is already queued. It implements suture.Service.
func (d *WebhookDispatcher) Serve(ctx context.Context) error {
	log := logging.With().Str("component", "alert-dispatcher").Logger()
	log.Info().Str("sink", d.cfg.WebhookURL).Msg("alert dispatcher started")

	for {
		select {
		case <-ctx.Done():
			d.drain()
			log.Info().Msg("alert dispatcher stopped")
			return ctx.Err()
		case view := <-d.queue:
			d.deliver(ctx, view)
		}
	}
}

// String identifies the dispatcher in supervisor log messages.
func (d *WebhookDispatcher) String() string { return "alert-dispatcher" }

// drain delivers queued notifications during shutdown, each still bounded by
// the per-attempt timeout.
func (d *WebhookDispatcher) drain() {
	for {
		select {
		case view := <-d.queue:
			d.deliver(context.Background(), view)
		default:
			return
		}
	}
}

// deliver posts one notification. All failures are swallowed after being
// recorded; there is no inline retry.
func (d *WebhookDispatcher) deliver(ctx context.Context, view models.AlertView) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			d.finish(fmt.Errorf("rate limiter: %w", err), "failed", view)
			return
		}
	}

	start := time.Now()
	_, err := d.breaker.Execute(func() (*http.Response, error) {
		return d.post(ctx, view)
	})
	metrics.AlertDispatchDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		d.finish(nil, "delivered", view)
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		d.finish(err, "rejected", view)
	default:
		d.finish(err, "failed", view)
	}
}

// post performs the HTTP delivery with the configured bounded timeout.
func (d *WebhookDispatcher) post(ctx context.Context, view models.AlertView) (*http.Response, error) {
	body, err := json.Marshal(view)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal alert payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range d.cfg.Headers {
		req.Header.Set(key, value)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to post alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("alert sink returned status %d", resp.StatusCode)
	}
	return resp, nil
}

// finish records a delivery outcome and publishes it on the never-awaited
// results channel.
func (d *WebhookDispatcher) finish(err error, outcome string, view models.AlertView) {
	metrics.AlertsDispatched.WithLabelValues(outcome).Inc()

	if err != nil {
		logging.Error().
			Err(err).
			Str("user_id", view.UserID).
			Str("signal_type", view.SignalType).
			Msg("alert dispatch failed")
	} else {
		logging.Debug().
			Str("user_id", view.UserID).
			Str("signal_type", view.SignalType).
			Msg("alert delivered")
	}

	select {
	case d.results <- err:
	default:
	}
}

// Results exposes delivery outcomes for tests. The ingestion path never
// reads this channel.
func (d *WebhookDispatcher) Results() <-chan error {
	return d.results
}

var _ Notifier = (*WebhookDispatcher)(nil)

// NopNotifier discards all notifications. Used when no sink is configured.
type NopNotifier struct{}

func (NopNotifier) Notify(models.AlertView) {}
