// SignalGuard - Behavioral Signal Burst Detection
// Copyright 2026 SignalGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalguard/signalguard

package models

import (
	"time"
)

// APIResponse is the standardized response wrapper used by all HTTP
// endpoints.
//
// Status is "success" or "error". Data carries the payload on success;
// Error is populated only on failure.
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {
//	    "code": "VALIDATION_ERROR",
//	    "message": "user_id is required"
//	  },
//	  "metadata": {"timestamp": "2026-08-31T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response metadata for observability.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError is a structured error payload.
//
// Common codes: VALIDATION_ERROR, STORAGE_ERROR, NOT_FOUND,
// RATE_LIMIT_EXCEEDED.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus reports reachability of the service's two stateful
// dependencies. The service is healthy only when both are reachable.
type HealthStatus struct {
	Status    string    `json:"status"`
	Store     string    `json:"store"`
	Windows   string    `json:"windows"`
	Timestamp time.Time `json:"timestamp"`
	UptimeSec int64     `json:"uptime_seconds"`
	Version   string    `json:"version,omitempty"`
}
