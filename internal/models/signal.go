// SignalGuard - Behavioral Signal Burst Detection
// Copyright 2026 SignalGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalguard/signalguard

// Package models defines the core data types shared across SignalGuard:
// behavioral signal events, detected anomalies, and interaction journal
// entries.
package models

import (
	"time"
)

// Event is a single behavioral signal observation for a user.
// Events are immutable once created: they are validated at the API boundary,
// durably persisted, used to update the user's sliding window, and then
// discarded from working memory.
type Event struct {
	// UserID identifies the end user the signal belongs to.
	UserID string `json:"user_id"`

	// AgentID identifies the agent that observed the signal.
	AgentID string `json:"agent_id,omitempty"`

	// SignalType is the behavioral signal label (e.g. "stressed", "uncertain").
	SignalType string `json:"signal_type"`

	// Timestamp is when the signal was observed.
	Timestamp time.Time `json:"timestamp"`

	// Payload carries opaque signal context. Defaults to an empty map.
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Severity indicates how far a burst exceeded its threshold.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Anomaly records a single burst-threshold breach for a user.
// Anomalies are created exactly once per breaching ingestion and are never
// updated. Repeated breaches within the same still-hot window each produce
// their own anomaly; suppressing repeats would change alerting semantics.
type Anomaly struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	SignalType  string    `json:"signal_type"`
	DetectedAt  time.Time `json:"detected_at"`
	Count       int       `json:"count"`
	WindowStart time.Time `json:"window_start"`
	Severity    Severity  `json:"severity"`

	// Rule is a human-readable encoding of "<signal_type>:<threshold>" kept
	// for audit purposes.
	Rule string `json:"rule"`
}

// AlertView is the outbound notification payload delivered to the alert sink
// for critical anomalies. It is a reduced projection of Anomaly; delivery is
// at-most-once and best-effort.
type AlertView struct {
	UserID     string    `json:"user_id"`
	SignalType string    `json:"signal_type"`
	Count      int       `json:"count"`
	Severity   Severity  `json:"severity"`
	DetectedAt time.Time `json:"detected_at"`
}

// View projects an anomaly into its alert notification form.
func (a *Anomaly) View() AlertView {
	return AlertView{
		UserID:     a.UserID,
		SignalType: a.SignalType,
		Count:      a.Count,
		Severity:   a.Severity,
		DetectedAt: a.DetectedAt,
	}
}
