// SignalGuard - Behavioral Signal Burst Detection
// Copyright 2026 SignalGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalguard/signalguard

package policy

import (
	"math"
	"testing"

	"github.com/signalguard/signalguard/internal/models"
)

func newTestPolicy(t *testing.T, thresholds map[string]int) *Policy {
	t.Helper()
	p, err := New(thresholds, "default")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return p
}

func TestNew_MissingDefault(t *testing.T) {
	if _, err := New(map[string]int{"stressed": 10}, "default"); err == nil {
		t.Fatal("expected error for missing default key")
	}
}

func TestThreshold_Lookup(t *testing.T) {
	p := newTestPolicy(t, map[string]int{
		"default":  10,
		"stressed": 5,
	})

	if got := p.Threshold("stressed"); got != 5 {
		t.Errorf("Threshold(stressed) = %d, want 5", got)
	}
	if got := p.Threshold("uncertain"); got != 10 {
		t.Errorf("Threshold(uncertain) = %d, want default 10", got)
	}
	if got := p.Threshold(""); got != 10 {
		t.Errorf("Threshold(empty) = %d, want default 10", got)
	}
}

func TestSeverity_ThresholdBoundary(t *testing.T) {
	p := newTestPolicy(t, map[string]int{"default": 10})

	// count == threshold never breaches
	if _, breached := p.Severity(10, 10); breached {
		t.Error("count equal to threshold must not breach")
	}

	// count == threshold+1 is always at least a warning
	sev, breached := p.Severity(11, 10)
	if !breached {
		t.Fatal("count of threshold+1 must breach")
	}
	if sev != models.SeverityWarning {
		t.Errorf("Severity(11, 10) = %s, want warning", sev)
	}
}

func TestSeverity_CriticalBoundary(t *testing.T) {
	tests := []struct {
		count     int
		threshold int
		want      models.Severity
	}{
		{15, 10, models.SeverityWarning},  // 15 is not > 15
		{16, 10, models.SeverityCritical}, // 16 > 15
		{7, 5, models.SeverityWarning},    // 7 is not > 7.5
		{8, 5, models.SeverityCritical},   // 8 > 7.5
		{4, 3, models.SeverityWarning},    // 4 is not > 4.5
		{5, 3, models.SeverityCritical},   // 5 > 4.5
	}

	p := newTestPolicy(t, map[string]int{"default": 10})
	for _, tt := range tests {
		sev, breached := p.Severity(tt.count, tt.threshold)
		if !breached {
			t.Errorf("Severity(%d, %d) should breach", tt.count, tt.threshold)
			continue
		}
		if sev != tt.want {
			t.Errorf("Severity(%d, %d) = %s, want %s", tt.count, tt.threshold, sev, tt.want)
		}
	}
}

// First critical count is ceil(threshold*1.5) when that exceeds the
// plain-warning region, checked across a range of thresholds.
func TestSeverity_FirstCriticalCount(t *testing.T) {
	p := newTestPolicy(t, map[string]int{"default": 10})

	for threshold := 1; threshold <= 40; threshold++ {
		firstCritical := int(math.Floor(float64(threshold)*1.5)) + 1

		if sev, breached := p.Severity(firstCritical, threshold); !breached || sev != models.SeverityCritical {
			t.Errorf("threshold %d: count %d should be critical, got %v/%v",
				threshold, firstCritical, sev, breached)
		}

		below := firstCritical - 1
		if below > threshold {
			if sev, breached := p.Severity(below, threshold); !breached || sev != models.SeverityWarning {
				t.Errorf("threshold %d: count %d should be warning, got %v/%v",
					threshold, below, sev, breached)
			}
		}
	}
}

func TestRule_Encoding(t *testing.T) {
	p := newTestPolicy(t, map[string]int{
		"default":  10,
		"stressed": 5,
	})

	if got := p.Rule("stressed"); got != "stressed:5" {
		t.Errorf("Rule(stressed) = %q, want stressed:5", got)
	}
	if got := p.Rule("uncertain"); got != "uncertain:10" {
		t.Errorf("Rule(uncertain) = %q, want uncertain:10", got)
	}
}
