// SignalGuard - Behavioral Signal Burst Detection
// Copyright 2026 SignalGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalguard/signalguard

// Package api provides HTTP handlers and routing for the SignalGuard
// ingestion and query surface.
//
// Handler methods are split across files:
//   - handlers.go: Handler struct, constructor, dependency contracts
//   - handlers_events.go: event ingestion and anomaly queries
//   - handlers_interactions.go: interaction journal endpoints
//   - handlers_health.go: health probe
//   - helpers.go: response envelope and validation helpers
package api

import (
	"context"
	"time"

	"github.com/signalguard/signalguard/internal/config"
	"github.com/signalguard/signalguard/internal/journal"
	"github.com/signalguard/signalguard/internal/models"
)

// Ingestor runs the detection pipeline for one event.
type Ingestor interface {
	Ingest(ctx context.Context, event *models.Event) (*models.Anomaly, error)
}

// AnomalyStore is the durable-store surface the API reads from.
type AnomalyStore interface {
	QueryAnomalies(ctx context.Context, userID string, limit int) ([]models.Anomaly, error)
	Ping(ctx context.Context) error
}

// WindowBackend is the health surface of the sliding-window store.
type WindowBackend interface {
	Ping(ctx context.Context) error
}

// Handler contains dependencies for the API handlers.
type Handler struct {
	engine    Ingestor
	store     AnomalyStore
	windows   WindowBackend
	journal   *journal.Journal
	config    *config.Config
	startTime time.Time
}

// NewHandler creates an API handler wired to the detection engine, the
// durable store, the window backend and the interaction journal.
func NewHandler(eng Ingestor, store AnomalyStore, windows WindowBackend, jnl *journal.Journal, cfg *config.Config) *Handler {
	return &Handler{
		engine:    eng,
		store:     store,
		windows:   windows,
		journal:   jnl,
		config:    cfg,
		startTime: time.Now(),
	}
}
