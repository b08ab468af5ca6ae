// SignalGuard - Behavioral Signal Burst Detection
// Copyright 2026 SignalGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalguard/signalguard

// Package main is the entry point for the SignalGuard server.
//
// SignalGuard ingests behavioral signal events from conversational agents,
// tracks per-user bursts over a sliding window, and raises anomalies when a
// signal type exceeds its configured threshold. Critical anomalies are
// dispatched to a webhook sink.
//
// # Startup order
//
//  1. Configuration: Koanf v2 layered load (defaults, config.yaml, env)
//  2. Logging: zerolog with level/format from config
//  3. Durable store: DuckDB for events and anomalies
//  4. Window backend: embedded memory store or Redis
//  5. Alert dispatcher: webhook sink with circuit breaker
//  6. HTTP server: REST API plus Prometheus metrics
//
// All long-running components run under a Suture supervisor tree, so a
// crashing janitor or dispatcher is restarted without taking down the API.
//
// # Configuration
//
// Environment variables override config.yaml, which overrides defaults:
//
//	export SERVER_PORT=8380
//	export DATABASE_PATH=/data/signalguard.duckdb
//	export WINDOW_BACKEND=memory
//	export THRESHOLDS_DEFAULT=10
//	export THRESHOLDS_STRESSED=5
//	export ALERT_WEBHOOK_URL=https://hooks.example.com/signalguard
//	./signalguard
//
// The thresholds map must contain a "default" entry; startup fails without
// it.
//
// # Signal handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server stops
// accepting connections, in-flight requests get 10 seconds to finish, the
// dispatcher drains its queue, and the database is closed.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/signalguard/signalguard/internal/api"
	"github.com/signalguard/signalguard/internal/config"
	"github.com/signalguard/signalguard/internal/dispatch"
	"github.com/signalguard/signalguard/internal/engine"
	"github.com/signalguard/signalguard/internal/journal"
	"github.com/signalguard/signalguard/internal/logging"
	"github.com/signalguard/signalguard/internal/policy"
	"github.com/signalguard/signalguard/internal/store"
	"github.com/signalguard/signalguard/internal/supervisor"
	"github.com/signalguard/signalguard/internal/supervisor/services"
	"github.com/signalguard/signalguard/internal/window"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config not yet available, use the default logger.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("window_backend", cfg.Window.Backend).
		Int("thresholds", len(cfg.Thresholds)).
		Bool("alerts_enabled", cfg.Alert.WebhookURL != "").
		Msg("Starting SignalGuard")

	db, err := store.New(store.Config{
		Path:      cfg.Database.Path,
		MaxMemory: cfg.Database.MaxMemory,
		Threads:   cfg.Database.Threads,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize durable store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing durable store")
		}
	}()
	logging.Info().Msg("Durable store initialized")

	pol, err := policy.New(cfg.Thresholds, config.DefaultThresholdKey)
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid threshold policy")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The supervisor logs through slog; bridge it back to zerolog.
	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	windows, err := buildWindowStore(cfg, tree)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize window backend")
	}

	dispatcher := dispatch.NewWebhookDispatcher(dispatch.Config{
		WebhookURL:    cfg.Alert.WebhookURL,
		Headers:       cfg.Alert.Headers,
		Timeout:       cfg.Alert.Timeout,
		QueueSize:     cfg.Alert.QueueSize,
		RatePerSecond: cfg.Alert.RatePerSecond,
	})
	var notifier dispatch.Notifier = dispatch.NopNotifier{}
	if cfg.Alert.WebhookURL != "" {
		notifier = dispatcher
		tree.AddDetectionService(dispatcher)
		logging.Info().Str("sink", cfg.Alert.WebhookURL).Msg("Alert dispatch enabled")
	} else {
		logging.Info().Msg("Alert dispatch disabled (no webhook configured)")
	}

	eng := engine.New(db, windows, pol, notifier,
		store.RetryPolicy{Attempts: cfg.Retry.Attempts, Backoff: cfg.Retry.Backoff},
		engine.Config{Horizon: cfg.Window.Horizon},
	)

	jnl := journal.New(cfg.Journal.Path)

	handler := api.NewHandler(eng, db, windows, jnl, cfg)
	router := api.NewRouter(handler, api.NewChiMiddleware(&api.ChiMiddlewareConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		CORSAllowedMethods: []string{"GET", "POST", "OPTIONS"},
		CORSAllowedHeaders: []string{"Content-Type", "Authorization"},
		CORSMaxAge:         86400,
		RateLimitRequests:  cfg.Server.RateLimitReqs,
		RateLimitWindow:    cfg.Server.RateLimitWindow,
	}))

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(httpServer, 10*time.Second))

	errCh := tree.ServeBackground(ctx)
	logging.Info().Str("addr", httpServer.Addr).Msg("SignalGuard started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Shutting down")
		cancel()
		select {
		case <-errCh:
		case <-time.After(15 * time.Second):
			if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
				logging.Warn().Int("unstopped", len(report)).Msg("Services did not stop in time")
			}
		}
	case err := <-errCh:
		if err != nil && ctx.Err() == nil {
			logging.Fatal().Err(err).Msg("Supervisor tree failed")
		}
	}

	logging.Info().Msg("SignalGuard stopped")
}

// buildWindowStore selects the window backend from config. The memory
// backend gets its idle janitor supervised; Redis expires windows with
// per-key TTLs and needs no janitor.
func buildWindowStore(cfg *config.Config, tree *supervisor.SupervisorTree) (window.Store, error) {
	switch cfg.Window.Backend {
	case "", "memory":
		mem := window.NewMemoryStore(window.MemoryConfig{
			IdleEviction:    cfg.Window.IdleEviction,
			JanitorInterval: cfg.Window.JanitorInterval,
		})
		tree.AddDetectionService(mem)
		return mem, nil

	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis window backend %s unreachable: %w", cfg.Redis.Addr, err)
		}
		return window.NewRedisStore(rdb, cfg.Window.IdleEviction), nil

	default:
		return nil, fmt.Errorf("unknown window backend %q", cfg.Window.Backend)
	}
}
