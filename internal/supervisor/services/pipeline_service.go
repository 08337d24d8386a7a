// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package services

import (
	"context"
)

// EventPipeline matches the pipeline's supervised entry point.
//
// Satisfied by *pipeline.Pipeline, whose Serve runs the single producer
// loop: ingest, window append, detection scan, and notification fan-out
// happen in order on one goroutine.
type EventPipeline interface {
	Serve(ctx context.Context) error
}

// PipelineService runs the event pipeline under supervision.
//
// The pipeline already implements suture.Service; this wrapper adds a
// stable service name for supervisor logs and keeps the tree wiring
// decoupled from the pipeline package. A supervised restart rebuilds the
// pipeline's source goroutines while the window, detector state, and
// device registry carry over.
type PipelineService struct {
	pipeline EventPipeline
	name     string
}

// NewPipelineService creates a new pipeline service wrapper.
func NewPipelineService(p EventPipeline) *PipelineService {
	return &PipelineService{
		pipeline: p,
		name:     "event-pipeline",
	}
}

// Serve implements suture.Service by delegating to the producer loop.
func (s *PipelineService) Serve(ctx context.Context) error {
	return s.pipeline.Serve(ctx)
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (s *PipelineService) String() string {
	return s.name
}
