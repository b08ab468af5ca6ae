// SignalGuard - Behavioral Signal Burst Detection
// Copyright 2026 SignalGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalguard/signalguard

package window

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/signalguard/signalguard/internal/logging"
	"github.com/signalguard/signalguard/internal/metrics"
)

// shardCount spreads user keys across independently locked shards so that
// ingestion scales with the number of distinct users instead of degrading
// to a single global lock.
const shardCount = 64

// userWindow is one user's ordered timestamp sequence.
type userWindow struct {
	timestamps []time.Time // ascending
	lastInsert time.Time   // wall clock of the most recent Record, for idle eviction
}

type shard struct {
	mu      sync.Mutex
	windows map[string]*userWindow
}

// MemoryStore is the embedded window backend: a sharded map of per-user
// windows with shard-level locking and a janitor that evicts idle windows.
type MemoryStore struct {
	shards       [shardCount]*shard
	idleEviction time.Duration
	interval     time.Duration

	// now is the wall clock used for idle tracking; replaced in tests.
	now func() time.Time
}

// MemoryConfig configures the embedded window backend.
type MemoryConfig struct {
	// IdleEviction is how long a window may go without inserts before the
	// janitor removes it.
	IdleEviction time.Duration

	// JanitorInterval is how often the janitor sweeps.
	JanitorInterval time.Duration
}

// NewMemoryStore creates an embedded window store. Run the janitor via
// Serve to enable idle eviction.
func NewMemoryStore(cfg MemoryConfig) *MemoryStore {
	if cfg.IdleEviction <= 0 {
		cfg.IdleEviction = 60 * time.Second
	}
	if cfg.JanitorInterval <= 0 {
		cfg.JanitorInterval = 10 * time.Second
	}

	s := &MemoryStore{
		idleEviction: cfg.IdleEviction,
		interval:     cfg.JanitorInterval,
		now:          time.Now,
	}
	for i := range s.shards {
		s.shards[i] = &shard{windows: make(map[string]*userWindow)}
	}
	return s
}

// shardFor returns the shard owning a user key (FNV-1a).
func (s *MemoryStore) shardFor(userID string) *shard {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	var h uint64 = offset64
	for i := 0; i < len(userID); i++ {
		h ^= uint64(userID[i])
		h *= prime64
	}
	return s.shards[h%shardCount]
}

// Record appends a timestamp to the user's window, keeping order for
// out-of-order arrivals.
func (s *MemoryStore) Record(_ context.Context, userID string, ts time.Time) error {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.record(userID, ts, s.now())
	return nil
}

// record inserts ts into the user's window. Must be called with the shard
// lock held.
func (sh *shard) record(userID string, ts, now time.Time) *userWindow {
	w, ok := sh.windows[userID]
	if !ok {
		w = &userWindow{timestamps: make([]time.Time, 0, 8)}
		sh.windows[userID] = w
	}
	w.lastInsert = now

	n := len(w.timestamps)
	if n == 0 || !ts.Before(w.timestamps[n-1]) {
		// Common case: non-decreasing per user
		w.timestamps = append(w.timestamps, ts)
		return w
	}

	// Out-of-order arrival: ordered insert, arbitrary tie-break
	i := sort.Search(n, func(i int) bool { return w.timestamps[i].After(ts) })
	w.timestamps = append(w.timestamps, time.Time{})
	copy(w.timestamps[i+1:], w.timestamps[i:])
	w.timestamps[i] = ts
	return w
}

// prune drops entries strictly older than cutoff. Must be called with the
// shard lock held.
func (w *userWindow) prune(cutoff time.Time) {
	i := 0
	for i < len(w.timestamps) && w.timestamps[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		w.timestamps = w.timestamps[i:]
	}
}

// Prune removes all entries strictly older than cutoff.
func (s *MemoryStore) Prune(_ context.Context, userID string, cutoff time.Time) error {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if w, ok := sh.windows[userID]; ok {
		w.prune(cutoff)
	}
	return nil
}

// Count returns the number of entries currently in the user's window.
func (s *MemoryStore) Count(_ context.Context, userID string) (int, error) {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if w, ok := sh.windows[userID]; ok {
		return len(w.timestamps), nil
	}
	return 0, nil
}

// EarliestTimestamp returns the smallest remaining timestamp for the user.
func (s *MemoryStore) EarliestTimestamp(_ context.Context, userID string) (time.Time, bool, error) {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if w, ok := sh.windows[userID]; ok && len(w.timestamps) > 0 {
		return w.timestamps[0], true, nil
	}
	return time.Time{}, false, nil
}

// Observe records ts, prunes at cutoff, and returns count and earliest under
// a single shard lock acquisition.
func (s *MemoryStore) Observe(_ context.Context, userID string, ts, cutoff time.Time) (Observation, error) {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	w := sh.record(userID, ts, s.now())
	w.prune(cutoff)

	obs := Observation{Count: len(w.timestamps)}
	if obs.Count > 0 {
		obs.Earliest = w.timestamps[0]
	}
	return obs, nil
}

// Ping always succeeds for the embedded backend.
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Len returns the total number of live windows across all shards.
func (s *MemoryStore) Len() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		total += len(sh.windows)
		sh.mu.Unlock()
	}
	return total
}

// EvictIdle removes windows that have seen no inserts for the idle eviction
// period and returns the number removed. Holding the shard lock during the
// sweep means eviction cannot race a concurrent insert for the same user.
func (s *MemoryStore) EvictIdle() int {
	deadline := s.now().Add(-s.idleEviction)
	evicted := 0

	for _, sh := range s.shards {
		sh.mu.Lock()
		for userID, w := range sh.windows {
			if w.lastInsert.Before(deadline) {
				delete(sh.windows, userID)
				evicted++
			}
		}
		sh.mu.Unlock()
	}

	if evicted > 0 {
		metrics.WindowsEvicted.Add(float64(evicted))
	}
	return evicted
}

// Serve runs the idle eviction janitor until the context is canceled. It
// implements suture.Service.
func (s *MemoryStore) Serve(ctx context.Context) error {
	log := logging.With().Str("component", "window-janitor").Logger()
	log.Info().
		Str("idle_eviction", s.idleEviction.String()).
		Str("interval", s.interval.String()).
		Msg("window janitor started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("window janitor stopped")
			return ctx.Err()
		case <-ticker.C:
			if evicted := s.EvictIdle(); evicted > 0 {
				log.Debug().Int("evicted", evicted).Msg("evicted idle windows")
			}
			metrics.ActiveWindows.Set(float64(s.Len()))
		}
	}
}

// String identifies the janitor in supervisor log messages.
func (s *MemoryStore) String() string { return "window-janitor" }

var _ Store = (*MemoryStore)(nil)
