// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package analytics

import (
	"errors"
	"time"

	"github.com/tomtom215/netsentry/internal/window"
)

// Builder answers the timeline and graph queries from the rolling window.
// Stateless beyond the window reference; safe for concurrent use.
type Builder struct {
	window *window.Store
}

// NewBuilder binds a builder to the window store it reads.
func NewBuilder(win *window.Store) (*Builder, error) {
	if win == nil {
		return nil, errors.New("analytics: window store is required")
	}
	return &Builder{window: win}, nil
}

// Timeline returns per-minute attack buckets covering the last minutes of
// the window, newest first. Non-positive minutes falls back to the default
// query range.
func (b *Builder) Timeline(minutes int) []TimelineBucket {
	if minutes <= 0 {
		minutes = DefaultTimelineMinutes
	}
	events := b.window.Recent(time.Duration(minutes) * time.Minute)
	return BuildTimeline(events)
}

// Graph returns the network graph derived from the newest window events.
func (b *Builder) Graph() Graph {
	return BuildGraph(b.window.Tail(GraphEventLimit))
}
