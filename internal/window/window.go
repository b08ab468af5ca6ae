// SignalGuard - Behavioral Signal Burst Detection
// Copyright 2026 SignalGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalguard/signalguard

// Package window maintains per-user sliding windows of event timestamps.
//
// A window holds the timestamps observed for one user within the trailing
// horizon. Windows are transient state: losing them only delays detection,
// it never corrupts the durable event record. Two backends implement the
// Store contract, an embedded sharded map and a Redis sorted-set store.
package window

import (
	"context"
	"time"
)

// Observation is the result of an atomic record-prune-count pass over one
// user's window.
type Observation struct {
	// Count is the number of timestamps remaining in the window.
	Count int

	// Earliest is the smallest remaining timestamp, used as the anomaly's
	// window_start. Zero when the window is empty.
	Earliest time.Time
}

// Store is the per-user sliding window contract. All operations on the same
// user key are serialized by the implementation; operations across distinct
// users must not contend on a single global lock.
type Store interface {
	// Record appends a timestamp to the user's window. Out-of-order
	// insertion is tolerated; the window stays ordered.
	Record(ctx context.Context, userID string, ts time.Time) error

	// Prune removes all entries strictly older than cutoff. Pruning twice
	// with the same cutoff is a no-op the second time.
	Prune(ctx context.Context, userID string, cutoff time.Time) error

	// Count returns the number of entries currently in the window.
	Count(ctx context.Context, userID string) (int, error)

	// EarliestTimestamp returns the smallest remaining timestamp. The
	// boolean is false when the window is empty or absent.
	EarliestTimestamp(ctx context.Context, userID string) (time.Time, bool, error)

	// Observe records ts, prunes entries older than cutoff, and returns the
	// resulting count and earliest timestamp in one serialized step. The
	// ingestion path uses this to avoid lost updates under concurrent
	// ingestion for the same user.
	Observe(ctx context.Context, userID string, ts, cutoff time.Time) (Observation, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}
