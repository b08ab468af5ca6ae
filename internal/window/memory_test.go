// SignalGuard - Behavioral Signal Burst Detection
// Copyright 2026 SignalGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalguard/signalguard

package window

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"
)

func newTestStore() *MemoryStore {
	return NewMemoryStore(MemoryConfig{
		IdleEviction:    60 * time.Second,
		JanitorInterval: 10 * time.Second,
	})
}

func TestMemoryStore_RecordAndCount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	base := time.Now()

	for i := 0; i < 5; i++ {
		if err := s.Record(ctx, "u1", base.Add(time.Duration(i)*time.Millisecond)); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	count, err := s.Count(ctx, "u1")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 5 {
		t.Errorf("Count = %d, want 5", count)
	}

	// Unknown user counts zero
	if count, _ := s.Count(ctx, "nobody"); count != 0 {
		t.Errorf("Count for unknown user = %d, want 0", count)
	}
}

func TestMemoryStore_OutOfOrderInsertion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	base := time.Now()

	// Insert in scrambled order; window must stay ordered.
	offsets := []int{3, 1, 4, 0, 2}
	for _, off := range offsets {
		_ = s.Record(ctx, "u1", base.Add(time.Duration(off)*time.Second))
	}

	earliest, ok, err := s.EarliestTimestamp(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("EarliestTimestamp failed: %v ok=%v", err, ok)
	}
	if !earliest.Equal(base) {
		t.Errorf("earliest = %v, want %v", earliest, base)
	}

	// Pruning at base+2s must keep exactly the 3 newest regardless of
	// insertion order.
	if err := s.Prune(ctx, "u1", base.Add(2*time.Second)); err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if count, _ := s.Count(ctx, "u1"); count != 3 {
		t.Errorf("count after prune = %d, want 3", count)
	}
}

// Count after Prune(cutoff) equals the number of recorded timestamps at or
// after cutoff, independent of insertion order.
func TestMemoryStore_PruneCountProperty(t *testing.T) {
	ctx := context.Background()
	base := time.Now()
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 50; trial++ {
		s := newTestStore()

		n := 1 + rng.Intn(30)
		offsets := make([]int, n)
		for i := range offsets {
			offsets[i] = rng.Intn(20)
		}
		rng.Shuffle(n, func(i, j int) { offsets[i], offsets[j] = offsets[j], offsets[i] })

		for _, off := range offsets {
			_ = s.Record(ctx, "u1", base.Add(time.Duration(off)*time.Second))
		}

		cutoffOffset := rng.Intn(20)
		cutoff := base.Add(time.Duration(cutoffOffset) * time.Second)

		want := 0
		for _, off := range offsets {
			if off >= cutoffOffset {
				want++
			}
		}

		_ = s.Prune(ctx, "u1", cutoff)
		if count, _ := s.Count(ctx, "u1"); count != want {
			t.Fatalf("trial %d: count after prune = %d, want %d (offsets %v, cutoff %d)",
				trial, count, want, offsets, cutoffOffset)
		}
	}
}

func TestMemoryStore_PruneIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	base := time.Now()

	for i := 0; i < 10; i++ {
		_ = s.Record(ctx, "u1", base.Add(time.Duration(i)*time.Second))
	}

	cutoff := base.Add(4 * time.Second)
	_ = s.Prune(ctx, "u1", cutoff)
	first, _ := s.Count(ctx, "u1")

	_ = s.Prune(ctx, "u1", cutoff)
	second, _ := s.Count(ctx, "u1")

	if first != second {
		t.Errorf("prune not idempotent: first = %d, second = %d", first, second)
	}
	if first != 6 {
		t.Errorf("count after prune = %d, want 6", first)
	}
}

func TestMemoryStore_PruneKeepsEqualTimestamp(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	base := time.Now()

	_ = s.Record(ctx, "u1", base)
	// Strictly-older semantics: an entry equal to the cutoff survives.
	_ = s.Prune(ctx, "u1", base)

	if count, _ := s.Count(ctx, "u1"); count != 1 {
		t.Errorf("entry equal to cutoff was pruned: count = %d, want 1", count)
	}
}

func TestMemoryStore_Observe(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	base := time.Now()

	for i := 0; i < 4; i++ {
		obs, err := s.Observe(ctx, "u1", base.Add(time.Duration(i)*time.Second), base.Add(-5*time.Second))
		if err != nil {
			t.Fatalf("Observe failed: %v", err)
		}
		if obs.Count != i+1 {
			t.Errorf("Observe count = %d, want %d", obs.Count, i+1)
		}
		if !obs.Earliest.Equal(base) {
			t.Errorf("Observe earliest = %v, want %v", obs.Earliest, base)
		}
	}

	// A cutoff past the first three entries leaves only the last two
	// (the surviving entry at 3s plus the new one at 10s).
	obs, err := s.Observe(ctx, "u1", base.Add(10*time.Second), base.Add(3*time.Second))
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if obs.Count != 2 {
		t.Errorf("Observe count after cutoff = %d, want 2", obs.Count)
	}
	if !obs.Earliest.Equal(base.Add(3 * time.Second)) {
		t.Errorf("Observe earliest = %v, want %v", obs.Earliest, base.Add(3*time.Second))
	}
}

// N concurrent ingestions for one user inside the horizon must yield
// Count == N: no lost updates under any interleaving.
func TestMemoryStore_ConcurrentObserve(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	base := time.Now()
	cutoff := base.Add(-5 * time.Second)

	const n = 200
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			if _, err := s.Observe(ctx, "u1", base.Add(time.Duration(i)*time.Microsecond), cutoff); err != nil {
				t.Errorf("Observe failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if count, _ := s.Count(ctx, "u1"); count != n {
		t.Errorf("concurrent count = %d, want %d", count, n)
	}
}

func TestMemoryStore_CrossUserIndependence(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	base := time.Now()

	const users = 50
	var wg sync.WaitGroup
	wg.Add(users)
	for u := 0; u < users; u++ {
		go func(u int) {
			defer wg.Done()
			userID := string(rune('a'+u%26)) + "-user"
			for i := 0; i < 10; i++ {
				_, _ = s.Observe(ctx, userID, base.Add(time.Duration(i)*time.Millisecond), base.Add(-5*time.Second))
			}
		}(u)
	}
	wg.Wait()

	// 26 distinct keys, some shared by two goroutines
	if s.Len() != 26 {
		t.Errorf("Len = %d, want 26", s.Len())
	}
}

func TestMemoryStore_IdleEviction(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	current := time.Now()
	s.now = func() time.Time { return current }

	_ = s.Record(ctx, "u1", current)
	_ = s.Record(ctx, "u2", current)
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}

	// u2 stays active, u1 goes idle
	current = current.Add(40 * time.Second)
	_ = s.Record(ctx, "u2", current)

	current = current.Add(30 * time.Second)
	evicted := s.EvictIdle()

	if evicted != 1 {
		t.Errorf("evicted = %d, want 1", evicted)
	}
	if count, _ := s.Count(ctx, "u1"); count != 0 {
		t.Errorf("evicted user count = %d, want 0", count)
	}
	if count, _ := s.Count(ctx, "u2"); count == 0 {
		t.Error("active user window should survive eviction")
	}
}

// After eviction a new event for the same user starts a fresh window of
// size 1.
func TestMemoryStore_FreshWindowAfterEviction(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	current := time.Now()
	s.now = func() time.Time { return current }

	for i := 0; i < 8; i++ {
		_ = s.Record(ctx, "u1", current.Add(time.Duration(i)*time.Millisecond))
	}

	current = current.Add(2 * time.Minute)
	s.EvictIdle()

	obs, err := s.Observe(ctx, "u1", current, current.Add(-5*time.Second))
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if obs.Count != 1 {
		t.Errorf("fresh window count = %d, want 1", obs.Count)
	}
	if !obs.Earliest.Equal(current) {
		t.Errorf("fresh window earliest = %v, want %v", obs.Earliest, current)
	}
}

func TestMemoryStore_EarliestTimestampEmpty(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	if _, ok, _ := s.EarliestTimestamp(ctx, "nobody"); ok {
		t.Error("EarliestTimestamp for unknown user should report absent")
	}

	base := time.Now()
	_ = s.Record(ctx, "u1", base)
	_ = s.Prune(ctx, "u1", base.Add(time.Second))

	if _, ok, _ := s.EarliestTimestamp(ctx, "u1"); ok {
		t.Error("EarliestTimestamp for fully pruned window should report absent")
	}
}

func TestMemoryStore_Ping(t *testing.T) {
	if err := newTestStore().Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}
