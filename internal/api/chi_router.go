// SignalGuard - Behavioral Signal Burst Detection
// Copyright 2026 SignalGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalguard/signalguard

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalguard/signalguard/internal/middleware"
)

// Router wires handlers and middleware into the HTTP surface.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil middleware factory falls back to the
// secure defaults.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: mw}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	// Health: permissive rate limit so monitors can poll freely.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Get("/", router.handler.Health)
	})

	// Ingest and query surface.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(middleware.PrometheusMetrics)

		r.Post("/events", router.handler.IngestEvent)
		r.Get("/anomalies/{userID}", router.handler.Anomalies)

		r.Post("/interactions", router.handler.CreateInteraction)
		r.Get("/interactions/{agentID}/{userID}", router.handler.Interactions)
		r.Get("/summary/{agentID}/{userID}", router.handler.Summary)
	})

	// Prometheus scrape endpoint, outside the API rate limits.
	r.Handle("/metrics", promhttp.Handler())

	return r
}
