// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package services

import (
	"context"
)

// ContextHub matches the hub's context-aware run loop.
//
// Satisfied by *websocket.Hub. RunWithContext registers and unregisters
// subscribers and fans out broadcast frames until the context is canceled.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// WebSocketHubService wraps the WebSocket hub as a supervised service.
//
// The hub already speaks a context-aware lifecycle, so Serve is pure
// delegation. On a supervised restart, subscribers reconnect and receive
// a fresh initial_data snapshot.
type WebSocketHubService struct {
	hub  ContextHub
	name string
}

// NewWebSocketHubService creates a new WebSocket hub service wrapper.
func NewWebSocketHubService(hub ContextHub) *WebSocketHubService {
	return &WebSocketHubService{
		hub:  hub,
		name: "websocket-hub",
	}
}

// Serve implements suture.Service by delegating to the hub's run loop.
func (s *WebSocketHubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (s *WebSocketHubService) String() string {
	return s.name
}
