// SignalGuard - Behavioral Signal Burst Detection
// Copyright 2026 SignalGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalguard/signalguard

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/signalguard/signalguard/internal/logging"
	"github.com/signalguard/signalguard/internal/models"
)

const healthProbeTimeout = 2 * time.Second

// Health handles GET /api/v1/health.
//
// The service is healthy only when both stateful dependencies answer: the
// durable store and the window backend. Either one failing yields a 503 with
// the component breakdown, so an operator can see which side is down.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
	defer cancel()

	storeStatus := "ok"
	if err := h.store.Ping(ctx); err != nil {
		storeStatus = "unreachable"
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Durable store health probe failed")
	}

	windowStatus := "ok"
	if err := h.windows.Ping(ctx); err != nil {
		windowStatus = "unreachable"
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Window backend health probe failed")
	}

	status := models.HealthStatus{
		Status:    "healthy",
		Store:     storeStatus,
		Windows:   windowStatus,
		Timestamp: time.Now(),
		UptimeSec: int64(time.Since(h.startTime).Seconds()),
	}

	code := http.StatusOK
	envelope := &models.APIResponse{
		Status:   "success",
		Data:     status,
		Metadata: models.Metadata{Timestamp: time.Now()},
	}
	if storeStatus != "ok" || windowStatus != "ok" {
		status.Status = "unhealthy"
		envelope.Status = "error"
		envelope.Data = status
		envelope.Error = &models.APIError{
			Code:    "DEPENDENCY_UNREACHABLE",
			Message: "One or more stateful dependencies are unreachable",
		}
		code = http.StatusServiceUnavailable
	}

	respondJSON(w, code, envelope)
}
