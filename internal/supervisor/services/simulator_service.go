// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package services

import (
	"context"
)

// PlaybackSource matches the simulator's run loop.
//
// Satisfied by *ingest.Simulator. Run blocks until the context is
// canceled; the control API flips the running and paused flags without
// touching the loop itself.
type PlaybackSource interface {
	Run(ctx context.Context) error
}

// SimulatorService runs the traffic simulator under supervision.
//
// Transport control state (running, paused, speed, dataset position)
// lives on the simulator, not the loop, so a supervised restart resumes
// playback exactly where it left off.
type SimulatorService struct {
	source PlaybackSource
	name   string
}

// NewSimulatorService creates a new simulator service wrapper.
func NewSimulatorService(source PlaybackSource) *SimulatorService {
	return &SimulatorService{
		source: source,
		name:   "traffic-simulator",
	}
}

// Serve implements suture.Service by delegating to the playback loop.
func (s *SimulatorService) Serve(ctx context.Context) error {
	return s.source.Run(ctx)
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (s *SimulatorService) String() string {
	return s.name
}
