// SignalGuard - Behavioral Signal Burst Detection
// Copyright 2026 SignalGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalguard/signalguard

// Package journal keeps an append-only JSONL record of agent-user
// interactions. Each line is one interaction with its detected signal, so
// the file doubles as a replayable audit trail and the source for
// per-pair signal summaries.
package journal

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/signalguard/signalguard/internal/classify"
)

// Entry is one journaled interaction.
type Entry struct {
	Timestamp       time.Time `json:"timestamp"`
	AgentID         string    `json:"agent_id"`
	UserID          string    `json:"user_id"`
	UserInput       string    `json:"user_input"`
	DetectedSignal  string    `json:"detected_signal"`
	ResponseType    string    `json:"response_type,omitempty"`
	CoherenceImpact *float64  `json:"coherence_score_impact,omitempty"`
	EscalationFlag  bool      `json:"escalation_flag"`
	SessionID       string    `json:"session_id,omitempty"`
}

// Journal is a file-backed JSONL interaction log. Writes are serialized;
// reads open the file independently and tolerate a missing file.
type Journal struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// New creates a journal backed by the given path. Parent directories are
// created on first write.
func New(path string) *Journal {
	return &Journal{path: path, now: time.Now}
}

// Path returns the backing file path.
func (j *Journal) Path() string { return j.path }

// Write appends one interaction. A missing DetectedSignal is derived from
// the user input.
func (j *Journal) Write(entry Entry) error {
	if entry.DetectedSignal == "" {
		entry.DetectedSignal = classify.Signal(entry.UserInput)
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = j.now()
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if dir := filepath.Dir(j.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create journal directory: %w", err)
		}
	}

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}
	return f.Sync()
}

// Recent returns the last limit entries for an agent-user pair, oldest
// first. A missing journal file yields an empty slice.
func (j *Journal) Recent(agentID, userID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}

	entries, err := j.readAll()
	if err != nil {
		return nil, err
	}

	var filtered []Entry
	for _, e := range entries {
		if e.AgentID == agentID && e.UserID == userID {
			filtered = append(filtered, e)
		}
	}
	if len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}
	return filtered, nil
}

// Summarize returns detected-signal frequencies over the last 1000 entries
// for an agent-user pair.
func (j *Journal) Summarize(agentID, userID string) (map[string]int, error) {
	recent, err := j.Recent(agentID, userID, 1000)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, 4)
	for _, e := range recent {
		counts[e.DetectedSignal]++
	}
	return counts, nil
}

func (j *Journal) readAll() ([]Entry, error) {
	f, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			// Skip torn or corrupt lines rather than failing the read.
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan journal: %w", err)
	}
	return entries, nil
}
