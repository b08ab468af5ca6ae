// SignalGuard - Behavioral Signal Burst Detection
// Copyright 2026 SignalGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalguard/signalguard

package main

import (
	"testing"

	"github.com/signalguard/signalguard/internal/config"
	"github.com/signalguard/signalguard/internal/logging"
	"github.com/signalguard/signalguard/internal/supervisor"
	"github.com/signalguard/signalguard/internal/window"
)

func newTestTree() *supervisor.SupervisorTree {
	return supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
}

// TestBuildWindowStore_Memory tests the default in-memory backend selection.
func TestBuildWindowStore_Memory(t *testing.T) {
	for _, backend := range []string{"", "memory"} {
		cfg := config.Default()
		cfg.Window.Backend = backend

		ws, err := buildWindowStore(cfg, newTestTree())
		if err != nil {
			t.Fatalf("buildWindowStore(%q): %v", backend, err)
		}
		if _, ok := ws.(*window.MemoryStore); !ok {
			t.Errorf("buildWindowStore(%q) = %T, want *window.MemoryStore", backend, ws)
		}
	}
}

// TestBuildWindowStore_RedisUnreachable verifies that an unreachable Redis
// backend aborts startup instead of degrading to a half-initialized store.
func TestBuildWindowStore_RedisUnreachable(t *testing.T) {
	cfg := config.Default()
	cfg.Window.Backend = "redis"
	cfg.Redis.Addr = "127.0.0.1:1"

	ws, err := buildWindowStore(cfg, newTestTree())
	if err == nil {
		t.Fatal("expected error for unreachable redis backend, got nil")
	}
	if ws != nil {
		t.Errorf("expected nil store on unreachable redis backend, got %T", ws)
	}
}

// TestBuildWindowStore_UnknownBackend tests rejection of unknown backends.
func TestBuildWindowStore_UnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Window.Backend = "memcached"

	if _, err := buildWindowStore(cfg, newTestTree()); err == nil {
		t.Fatal("expected error for unknown window backend, got nil")
	}
}
