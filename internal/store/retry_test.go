// SignalGuard - Behavioral Signal Burst Detection
// Copyright 2026 SignalGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalguard/signalguard

package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRetryPolicy_SucceedsFirstTry(t *testing.T) {
	p := RetryPolicy{Attempts: 3, Backoff: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), "append_event", func(context.Context) error {
		calls++
		return nil
	})

	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryPolicy_RecoversOnSecondTry(t *testing.T) {
	p := RetryPolicy{Attempts: 3, Backoff: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), "append_event", func(context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("transient outage")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetryPolicy_ExhaustionSurfacesError(t *testing.T) {
	p := RetryPolicy{Attempts: 3, Backoff: time.Millisecond}

	sentinel := errors.New("store down")
	calls := 0
	err := p.Do(context.Background(), "append_event", func(context.Context) error {
		calls++
		return sentinel
	})

	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if err == nil {
		t.Fatal("expected error after exhaustion")
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("error chain should contain the last error, got %v", err)
	}
	if !strings.Contains(err.Error(), "append_event") {
		t.Errorf("error should name the operation, got %v", err)
	}
}

func TestRetryPolicy_PermanentFailsFast(t *testing.T) {
	p := RetryPolicy{Attempts: 5, Backoff: time.Millisecond}

	sentinel := errors.New("malformed row")
	calls := 0
	err := p.Do(context.Background(), "append_event", func(context.Context) error {
		calls++
		return &Permanent{Err: sentinel}
	})

	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on permanent error)", calls)
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("expected sentinel error, got %v", err)
	}
}

func TestRetryPolicy_ContextCancelAbortsBackoff(t *testing.T) {
	p := RetryPolicy{Attempts: 3, Backoff: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := p.Do(ctx, "append_event", func(context.Context) error {
		return errors.New("transient")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("backoff wait was not aborted by cancellation: %s", elapsed)
	}
}

func TestRetryPolicy_ZeroAttemptsRunsOnce(t *testing.T) {
	p := RetryPolicy{Attempts: 0, Backoff: 0}

	calls := 0
	_ = p.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return errors.New("fail")
	})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()
	if p.Attempts != 3 || p.Backoff != time.Second {
		t.Errorf("DefaultRetryPolicy = %+v, want 3 attempts / 1s backoff", p)
	}
}
