// Notifier - Real-Time Notification Delivery for CampusConnect
// Copyright 2026 CampusConnect
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusconnect/notifier

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campusconnect/notifier/internal/metrics"
)

// Router wires the handler into a Chi router.
type Router struct {
	handler *Handler
}

// NewRouter creates a router around handler.
func NewRouter(handler *Handler) *Router {
	return &Router{handler: handler}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	h := router.handler
	r := chi.NewRouter()

	// Global middleware, applied to every route in order
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.Security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health probes get permissive rate limiting so monitoring can poll
	// frequently without tripping the API budget
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, time.Minute))
		r.Get("/", h.Health)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1/notifications", func(r chi.Router) {
		if !h.cfg.Security.RateLimitDisabled {
			r.Use(httprate.LimitByIP(h.cfg.Security.RateLimitReqs, h.cfg.Security.RateLimitWindow))
		}
		r.Use(requestMetrics)
		r.Post("/", h.Dispatch)
		r.Get("/stats", h.Stats)
	})

	// The WebSocket endpoint stays outside the rate-limited group: a
	// reconnect storm after a deploy must not lock users out
	r.Get(h.cfg.WebSocket.Path, h.WebSocket)

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// requestMetrics records request counts and latency per endpoint.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(wrapped, r)

		metrics.RecordAPIRequest(
			r.Method,
			r.URL.Path,
			strconv.Itoa(wrapped.Status()),
			time.Since(start),
		)
	})
}
