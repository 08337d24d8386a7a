// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package pipeline

import (
	"time"

	"github.com/tomtom215/netsentry/internal/detection"
	"github.com/tomtom215/netsentry/internal/ingest"
	"github.com/tomtom215/netsentry/internal/metrics"
	"github.com/tomtom215/netsentry/internal/notify"
)

// Status is the aggregate state snapshot served by GET /realtime/status.
type Status struct {
	StartedAt        time.Time               `json:"started_at"`
	UptimeSeconds    float64                 `json:"uptime_seconds"`
	Ingested         uint64                  `json:"ingested"`
	Dropped          uint64                  `json:"dropped"`
	WindowSize       int                     `json:"window_size"`
	WindowCapacity   int                     `json:"window_capacity"`
	Subscribers      int                     `json:"subscribers"`
	SubscriberStates map[string]int          `json:"subscriber_states"`
	Devices          int                     `json:"devices"`
	Classifier       *ClassifierStatus       `json:"classifier,omitempty"`
	Simulator        *ingest.SimulatorStatus `json:"simulator,omitempty"`
	Engine           detection.EngineMetrics `json:"engine"`
	Limiter          notify.Status           `json:"limiter"`
}

// ClassifierStatus reports the external classifier feed state.
type ClassifierStatus struct {
	Connected bool `json:"connected"`
	Degraded  bool `json:"degraded"`
}

// Status assembles the current pipeline state. Safe to call from API
// handlers while the producer loop runs.
func (p *Pipeline) Status() Status {
	s := Status{
		StartedAt:        p.startedAt,
		UptimeSeconds:    p.timeFunc().Sub(p.startedAt).Seconds(),
		Ingested:         p.adapter.Count(),
		Dropped:          p.dropped.Load(),
		WindowSize:       p.window.Len(),
		WindowCapacity:   p.window.Capacity(),
		Subscribers:      p.hub.GetSubscriberCount(),
		SubscriberStates: p.hub.StateCounts(),
		Devices:          p.devices.Count(),
		Engine:           p.engine.Metrics(),
		Limiter:          p.limiter.Status(),
	}
	if p.simulator != nil {
		simulator := p.simulator.Status()
		s.Simulator = &simulator
	}
	if p.stream != nil {
		s.Classifier = &ClassifierStatus{
			Connected: p.stream.IsConnected(),
			Degraded:  p.stream.Degraded(),
		}
	}
	return s
}

// Reset restores playback-fresh state: simulator progress, the window, all
// detector dedup state, limiter cooldown, and the device inventory. Live
// subscribers keep their connections.
func (p *Pipeline) Reset() {
	if p.simulator != nil {
		p.simulator.Reset()
	}
	p.window.Clear()
	p.engine.Reset()
	p.limiter.Reset()
	p.devices.Reset()
	metrics.SetWindowSize(0)
}
