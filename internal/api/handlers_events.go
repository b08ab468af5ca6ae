// SignalGuard - Behavioral Signal Burst Detection
// Copyright 2026 SignalGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalguard/signalguard

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/signalguard/signalguard/internal/logging"
	"github.com/signalguard/signalguard/internal/models"
)

// IngestEventRequest is the POST /api/v1/events body.
type IngestEventRequest struct {
	UserID     string                 `json:"user_id" validate:"required,max=128"`
	AgentID    string                 `json:"agent_id" validate:"omitempty,max=128"`
	SignalType string                 `json:"signal_type" validate:"required,max=64"`
	Timestamp  string                 `json:"timestamp" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Payload    map[string]interface{} `json:"payload"`
}

// IngestEventResponse acknowledges a durably recorded event. Anomaly is
// present only when the event breached its threshold.
type IngestEventResponse struct {
	Accepted bool            `json:"accepted"`
	Anomaly  *models.Anomaly `json:"anomaly,omitempty"`
}

// IngestEvent handles POST /api/v1/events.
//
// The event is durably persisted before the request is acknowledged; a 503
// means the event was NOT recorded and the client should retry. Detection
// runs inline, so a breaching event carries its anomaly in the response.
func (h *Handler) IngestEvent(w http.ResponseWriter, r *http.Request) {
	var req IngestEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Malformed JSON body", err)
		return
	}

	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	// The datetime validator guarantees this parses.
	ts, err := time.Parse(time.RFC3339, req.Timestamp)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "timestamp must be RFC3339", err)
		return
	}

	event := &models.Event{
		UserID:     req.UserID,
		AgentID:    req.AgentID,
		SignalType: req.SignalType,
		Timestamp:  ts,
		Payload:    req.Payload,
	}

	anomaly, err := h.engine.Ingest(r.Context(), event)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "STORAGE_ERROR",
			"Event could not be durably recorded, retry later", err)
		return
	}

	logging.Ctx(r.Context()).Debug().
		Str("user_id", sanitizeLogValue(req.UserID)).
		Str("signal_type", sanitizeLogValue(req.SignalType)).
		Bool("anomaly", anomaly != nil).
		Msg("Event ingested")

	respondSuccess(w, http.StatusAccepted, IngestEventResponse{
		Accepted: true,
		Anomaly:  anomaly,
	})
}

// AnomaliesResponse is the GET /api/v1/anomalies/{userID} payload.
type AnomaliesResponse struct {
	UserID    string           `json:"user_id"`
	Anomalies []models.Anomaly `json:"anomalies"`
	Total     int              `json:"total"`
}

// Anomalies handles GET /api/v1/anomalies/{userID}. Results are most recent
// first; limit defaults to 100, capped at 1000.
func (h *Handler) Anomalies(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "userID path parameter is required", nil)
		return
	}

	limit := getIntParam(r, "limit", 100)
	if limit < 1 || limit > 1000 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be 1 to 1000", nil)
		return
	}

	anomalies, err := h.store.QueryAnomalies(r.Context(), userID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORAGE_ERROR", "Failed to query anomalies", err)
		return
	}
	if anomalies == nil {
		anomalies = []models.Anomaly{}
	}

	respondSuccess(w, http.StatusOK, AnomaliesResponse{
		UserID:    userID,
		Anomalies: anomalies,
		Total:     len(anomalies),
	})
}
