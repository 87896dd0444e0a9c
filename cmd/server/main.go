// Notifier - Real-Time Notification Delivery for CampusConnect
// Copyright 2026 CampusConnect
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusconnect/notifier

// Package main is the entry point for the notifier server.
//
// The notifier delivers campus notifications (event announcements,
// deadline reminders, recommendations, status updates) to connected
// clients over WebSocket, queueing messages for users who are offline
// and replaying them on reconnect.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: settings from environment variables and config files (Koanf v2)
//  2. Delivery hub: per-user session registry, offline queue, liveness monitor
//  3. HTTP API: WebSocket endpoint, dispatch REST API, health and metrics (chi)
//  4. Supervisor tree: restart-on-failure management of the hub and HTTP server
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (HTTP_PORT, WS_PATH, LOG_LEVEL, ...)
//   - Config file (config.yaml, or the path in CONFIG_PATH)
//   - Built-in defaults
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete
//   - Closes every WebSocket session with a going-away frame
//
// # Example Usage
//
// Development defaults (listens on :8090):
//
//	./notifier
//
// Production:
//
//	export HTTP_PORT=8090
//	export CORS_ORIGINS=https://campus.example.edu
//	export LOG_FORMAT=json
//	./notifier
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/campusconnect/notifier/internal/api"
	"github.com/campusconnect/notifier/internal/config"
	"github.com/campusconnect/notifier/internal/logging"
	"github.com/campusconnect/notifier/internal/supervisor"
	"github.com/campusconnect/notifier/internal/supervisor/services"
	ws "github.com/campusconnect/notifier/internal/websocket"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("ws_path", cfg.WebSocket.Path).
		Dur("heartbeat", cfg.WebSocket.HeartbeatInterval).
		Int("queue_max_per_user", cfg.WebSocket.QueueMaxPerUser).
		Msg("Starting notifier")

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	hub := ws.NewHub(cfg.WebSocket)

	handler := api.NewHandler(hub, cfg)
	router := api.NewRouter(handler)

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.Setup(),
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// zerolog bridged to slog for sutureslog compatibility
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddDeliveryService(services.NewHubService(hub))
	tree.AddAPIService(services.NewHTTPService(srv, cfg.Server.Timeout))

	logging.Info().Msg("Supervisor tree starting")
	if err := <-tree.ServeBackground(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree exited with error")
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
		}
	}

	logging.Info().Msg("Notifier stopped")
}
