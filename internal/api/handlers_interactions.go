// SignalGuard - Behavioral Signal Burst Detection
// Copyright 2026 SignalGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalguard/signalguard

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/signalguard/signalguard/internal/journal"
)

// CreateInteractionRequest is the POST /api/v1/interactions body. When
// DetectedSignal is empty the journal derives it from UserInput.
type CreateInteractionRequest struct {
	AgentID         string   `json:"agent_id" validate:"required,max=128"`
	UserID          string   `json:"user_id" validate:"required,max=128"`
	UserInput       string   `json:"user_input" validate:"required"`
	DetectedSignal  string   `json:"detected_signal" validate:"omitempty,max=64"`
	ResponseType    string   `json:"response_type" validate:"omitempty,max=64"`
	CoherenceImpact *float64 `json:"coherence_score_impact"`
	EscalationFlag  bool     `json:"escalation_flag"`
	SessionID       string   `json:"session_id" validate:"omitempty,max=128"`
}

// CreateInteraction handles POST /api/v1/interactions.
func (h *Handler) CreateInteraction(w http.ResponseWriter, r *http.Request) {
	var req CreateInteractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Malformed JSON body", err)
		return
	}

	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	entry := journal.Entry{
		AgentID:         req.AgentID,
		UserID:          req.UserID,
		UserInput:       req.UserInput,
		DetectedSignal:  req.DetectedSignal,
		ResponseType:    req.ResponseType,
		CoherenceImpact: req.CoherenceImpact,
		EscalationFlag:  req.EscalationFlag,
		SessionID:       req.SessionID,
	}
	if err := h.journal.Write(entry); err != nil {
		respondError(w, http.StatusInternalServerError, "STORAGE_ERROR", "Failed to journal interaction", err)
		return
	}

	respondSuccess(w, http.StatusCreated, map[string]interface{}{"recorded": true})
}

// Interactions handles GET /api/v1/interactions/{agentID}/{userID}. Returns
// the most recent entries for the pair, oldest first; limit defaults to 10.
func (h *Handler) Interactions(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	userID := chi.URLParam(r, "userID")
	if agentID == "" || userID == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "agentID and userID path parameters are required", nil)
		return
	}

	limit := getIntParam(r, "limit", 10)
	if limit < 1 || limit > 1000 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be 1 to 1000", nil)
		return
	}

	entries, err := h.journal.Recent(agentID, userID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORAGE_ERROR", "Failed to read journal", err)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"agent_id":     agentID,
		"user_id":      userID,
		"interactions": entries,
		"total":        len(entries),
	})
}

// Summary handles GET /api/v1/summary/{agentID}/{userID}. Returns detected
// signal frequencies for the pair.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	userID := chi.URLParam(r, "userID")
	if agentID == "" || userID == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "agentID and userID path parameters are required", nil)
		return
	}

	counts, err := h.journal.Summarize(agentID, userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORAGE_ERROR", "Failed to summarize journal", err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"agent_id": agentID,
		"user_id":  userID,
		"signals":  counts,
	})
}
