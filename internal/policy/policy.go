// SignalGuard - Behavioral Signal Burst Detection
// Copyright 2026 SignalGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalguard/signalguard

// Package policy maps signal types to burst thresholds and classifies
// observed counts into severity tiers.
package policy

import (
	"fmt"

	"github.com/signalguard/signalguard/internal/models"
)

// criticalMultiplier is the factor by which a count must exceed its
// threshold to be classified critical rather than warning.
const criticalMultiplier = 1.5

// Policy maps signal types to burst thresholds with a default fallback.
// It is read-only after construction and safe for concurrent use without
// locking.
type Policy struct {
	thresholds   map[string]int
	defaultLimit int
}

// New builds a policy from a threshold map. The map must contain the
// defaultKey entry; config validation guarantees this at startup.
func New(thresholds map[string]int, defaultKey string) (*Policy, error) {
	def, ok := thresholds[defaultKey]
	if !ok {
		return nil, fmt.Errorf("threshold map is missing required %q key", defaultKey)
	}

	m := make(map[string]int, len(thresholds))
	for signal, limit := range thresholds {
		if signal == defaultKey {
			continue
		}
		m[signal] = limit
	}

	return &Policy{thresholds: m, defaultLimit: def}, nil
}

// Threshold returns the configured burst threshold for a signal type, or the
// default for unmapped types.
func (p *Policy) Threshold(signalType string) int {
	if limit, ok := p.thresholds[signalType]; ok {
		return limit
	}
	return p.defaultLimit
}

// Severity classifies an observed count against a threshold. The boolean is
// false when the count does not breach the threshold: a count equal to the
// threshold is not a breach, only counts strictly above it are.
func (p *Policy) Severity(count, threshold int) (models.Severity, bool) {
	if count <= threshold {
		return "", false
	}
	if float64(count) > float64(threshold)*criticalMultiplier {
		return models.SeverityCritical, true
	}
	return models.SeverityWarning, true
}

// Rule returns the audit encoding "<signal_type>:<threshold>" for the rule
// that applies to a signal type.
func (p *Policy) Rule(signalType string) string {
	return fmt.Sprintf("%s:%d", signalType, p.Threshold(signalType))
}
