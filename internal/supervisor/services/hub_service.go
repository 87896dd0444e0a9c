// Notifier - Real-Time Notification Delivery for CampusConnect
// Copyright 2026 CampusConnect
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusconnect/notifier

// Package services wraps the server's long-running components as
// suture.Service implementations.
package services

import (
	"context"
)

// ContextRunner matches *websocket.Hub's RunWithContext method. Taking
// an interface here keeps this package free of a websocket import and
// makes the wrapper trivial to test.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// HubService wraps the WebSocket hub as a supervised service. The hub's
// RunWithContext already follows the suture.Service pattern, so this
// wrapper only delegates and names the service for logging.
//
//	hub := websocket.NewHub(cfg.WebSocket)
//	tree.AddDeliveryService(services.NewHubService(hub))
type HubService struct {
	hub  ContextRunner
	name string
}

// NewHubService creates a hub service wrapper.
func NewHubService(hub ContextRunner) *HubService {
	return &HubService{
		hub:  hub,
		name: "websocket-hub",
	}
}

// Serve implements suture.Service. It returns ctx.Err() on normal
// shutdown after the hub closes all sessions.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer; suture uses it in log messages.
func (s *HubService) String() string {
	return s.name
}
