// SignalGuard - Behavioral Signal Burst Detection
// Copyright 2026 SignalGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalguard/signalguard

// Package classify derives a behavioral signal type from free-form user
// input with a keyword heuristic. It backstops ingestion paths that carry
// raw text instead of a pre-classified signal.
package classify

import "strings"

// Signal types produced by the classifier.
const (
	SignalUncertain = "uncertain"
	SignalStressed  = "stressed"
	SignalPositive  = "positive"
	SignalNeutral   = "neutral"
)

// Keyword groups are checked in priority order: uncertainty markers win
// over stress markers, which win over positive markers.
var (
	uncertainMarkers = []string{"maybe", "not sure", "unsure", "confused", "?"}
	stressedMarkers  = []string{"angry", "frustrated", "upset", "stressed"}
	positiveMarkers  = []string{"thank", "great", "happy", "awesome", "good"}
)

// Signal classifies user input into one of the known signal types. Matching
// is case-insensitive substring containment; input with no markers is
// neutral.
func Signal(input string) string {
	text := strings.ToLower(input)
	switch {
	case containsAny(text, uncertainMarkers):
		return SignalUncertain
	case containsAny(text, stressedMarkers):
		return SignalStressed
	case containsAny(text, positiveMarkers):
		return SignalPositive
	default:
		return SignalNeutral
	}
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
