// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/netsentry/internal/config"
	"github.com/tomtom215/netsentry/internal/detection"
	"github.com/tomtom215/netsentry/internal/devices"
	"github.com/tomtom215/netsentry/internal/ingest"
	"github.com/tomtom215/netsentry/internal/logging"
	"github.com/tomtom215/netsentry/internal/metrics"
	"github.com/tomtom215/netsentry/internal/models"
	"github.com/tomtom215/netsentry/internal/notify"
	"github.com/tomtom215/netsentry/internal/websocket"
	"github.com/tomtom215/netsentry/internal/window"
)

const (
	// recordQueueSize bounds the intake queue between sources and the
	// producer loop. Submit drops with a counter once it is full so no
	// source ever blocks on a stalled consumer.
	recordQueueSize = 1024

	// deviceSweepInterval is how often silent devices are checked for the
	// active-to-idle transition.
	deviceSweepInterval = 15 * time.Second

	// snapshotAnomalyLimit caps the recent anomalies included in the
	// initial_data payload for new subscribers.
	snapshotAnomalyLimit = 50
)

// Mirror forwards emitted notifications to an external broker. The default
// build wires a disabled stub.
type Mirror interface {
	Publish(ctx context.Context, n *models.Notification) error
	Enabled() bool
}

// Components are the collaborators the pipeline drives. Window, Engine,
// Limiter, Hub, and Devices are required; Notifications and Mirror may be
// nil.
type Components struct {
	Window        *window.Store
	Engine        *detection.Engine
	Limiter       *notify.Limiter
	Hub           *websocket.Hub
	Devices       *devices.Registry
	Notifications detection.NotificationStore
	Mirror        Mirror
}

// Pipeline is the single producer path: every source submits RawRecords
// into one queue, and one goroutine ingests, appends, scans, rate-limits,
// and publishes in order. Detector and limiter dedup state is therefore
// only ever touched sequentially.
type Pipeline struct {
	cfg *config.Config

	adapter       *ingest.Adapter
	window        *window.Store
	engine        *detection.Engine
	limiter       *notify.Limiter
	hub           *websocket.Hub
	devices       *devices.Registry
	notifications detection.NotificationStore
	mirror        Mirror

	simulator *ingest.Simulator
	stream    *ingest.StreamClient
	poller    *ingest.Poller

	records   chan ingest.RawRecord
	degraded  chan *ingest.ConnectionLostError
	dropped   atomic.Uint64
	scanRange time.Duration
	startedAt time.Time
	timeFunc  func() time.Time
}

// New assembles the pipeline and constructs its event sources from
// configuration. Construction fails fast on invalid source settings so a
// misconfigured deployment never starts half-wired.
func New(cfg *config.Config, c Components) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("pipeline: config is required")
	}
	if c.Window == nil || c.Engine == nil || c.Limiter == nil || c.Hub == nil || c.Devices == nil {
		return nil, errors.New("pipeline: window, engine, limiter, hub, and devices are required")
	}

	p := &Pipeline{
		cfg:           cfg,
		adapter:       ingest.NewAdapter("pipeline"),
		window:        c.Window,
		engine:        c.Engine,
		limiter:       c.Limiter,
		hub:           c.Hub,
		devices:       c.Devices,
		notifications: c.Notifications,
		mirror:        c.Mirror,
		records:       make(chan ingest.RawRecord, recordQueueSize),
		degraded:      make(chan *ingest.ConnectionLostError, 1),
		scanRange:     time.Duration(cfg.Window.MaxAgeSeconds) * time.Second,
		startedAt:     time.Now(),
		timeFunc:      time.Now,
	}

	if cfg.Simulator.Enabled {
		simulator, err := ingest.NewSimulator(cfg.Simulator, p.Submit)
		if err != nil {
			return nil, fmt.Errorf("pipeline: simulator: %w", err)
		}
		p.simulator = simulator
	}

	if cfg.Classifier.Enabled {
		stream, err := ingest.NewStreamClient(cfg.Classifier, cfg.Client, p.Submit)
		if err != nil {
			return nil, fmt.Errorf("pipeline: classifier stream: %w", err)
		}
		pull, err := ingest.NewPullClient(cfg.Classifier)
		if err != nil {
			return nil, fmt.Errorf("pipeline: classifier pull: %w", err)
		}
		poller, err := ingest.NewPoller(pull, cfg.Classifier.PullInterval, p.Submit)
		if err != nil {
			return nil, fmt.Errorf("pipeline: classifier poller: %w", err)
		}
		p.stream = stream
		p.poller = poller
	}

	c.Hub.SetSnapshotFunc(p.snapshot)

	return p, nil
}

// Simulator returns the playback source, nil when disabled. The supervisor
// runs it as its own service; the control API drives it directly.
func (p *Pipeline) Simulator() *ingest.Simulator {
	return p.simulator
}

// Submit queues one raw record for ingestion. Never blocks: when the
// producer loop has fallen behind and the queue is full, the record is
// dropped and counted.
func (p *Pipeline) Submit(raw ingest.RawRecord) {
	select {
	case p.records <- raw:
	default:
		p.dropped.Add(1)
		logging.Warn().
			Str("record_id", raw.ID).
			Uint64("dropped_total", p.dropped.Load()).
			Msg("Intake queue full, record dropped")
	}
}

// Serve runs the producer loop until the context is canceled. Implements
// suture.Service.
func (p *Pipeline) Serve(ctx context.Context) error {
	var wg sync.WaitGroup
	pollerRunning := false

	startPoller := func() {
		if p.poller == nil || pollerRunning {
			return
		}
		pollerRunning = true
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logging.Warn().Err(err).Msg("Pull poller stopped")
			}
		}()
	}

	if p.stream != nil {
		p.stream.OnDegraded(func(lost *ingest.ConnectionLostError) {
			select {
			case p.degraded <- lost:
			default:
			}
		})
		if p.stream.Degraded() {
			// Restarted after an earlier degradation: go straight to
			// polling instead of re-dialing a stream we already gave up on.
			startPoller()
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := p.stream.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logging.Warn().Err(err).Msg("Classifier stream stopped")
				}
			}()
		}
	}

	sweep := time.NewTicker(deviceSweepInterval)
	defer sweep.Stop()

	logging.Info().
		Bool("simulator", p.simulator != nil).
		Bool("classifier", p.stream != nil).
		Msg("Pipeline started")

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			logging.Info().Msg("Pipeline stopped")
			return ctx.Err()
		case raw := <-p.records:
			p.process(ctx, raw)
		case lost := <-p.degraded:
			p.announceDegraded(ctx, lost)
			startPoller()
		case <-sweep.C:
			p.devices.SweepIdle()
		}
	}
}

// process runs one record through the full producer path. Ordering is the
// causal guarantee: the classification is published before any new_alert
// or notification derived from it.
func (p *Pipeline) process(ctx context.Context, raw ingest.RawRecord) {
	event, err := p.adapter.Ingest(raw)
	if err != nil {
		// Already logged and counted by the adapter.
		return
	}

	p.window.Append(event)
	metrics.SetWindowSize(p.window.Len())
	p.hub.BroadcastClassification(&event)
	p.devices.Observe(event)

	anomalies := p.engine.Scan(ctx, p.window.Recent(p.scanRange))
	if len(anomalies) == 0 {
		return
	}
	for i := range anomalies {
		p.hub.BroadcastAnomaly(&anomalies[i])
	}

	if n := p.limiter.Process(anomalies); n != nil {
		p.deliver(ctx, n)
	}
}

// deliver persists, broadcasts, and mirrors one notification. Persistence
// and mirror failures degrade to logging.
func (p *Pipeline) deliver(ctx context.Context, n *models.Notification) {
	if p.notifications != nil {
		if err := p.notifications.SaveNotification(ctx, n); err != nil {
			logging.Error().Err(err).Str("notification_id", n.ID).Msg("Failed to persist notification")
		}
	}

	p.hub.BroadcastNotification(n)

	if p.mirror != nil && p.mirror.Enabled() {
		if err := p.mirror.Publish(ctx, n); err != nil {
			logging.Warn().Err(err).Str("notification_id", n.ID).Msg("Mirror publish failed")
		}
	}
}

// announceDegraded emits the single switched-to-polling notification after
// the stream client exhausts its reconnect budget.
func (p *Pipeline) announceDegraded(ctx context.Context, lost *ingest.ConnectionLostError) {
	logging.Error().
		Err(lost).
		Int("attempts", lost.Attempts).
		Msg("Classifier stream degraded, switching to polling")

	n := &models.Notification{
		ID:        uuid.NewString(),
		Message:   fmt.Sprintf("Classifier stream lost after %d reconnect attempts; switched to polling", lost.Attempts),
		Severity:  models.SeverityHigh,
		Category:  "system",
		EmittedAt: p.timeFunc(),
	}
	metrics.RecordNotification()
	p.deliver(ctx, n)
}

// snapshot builds the initial_data payload for a newly registered
// subscriber: current window, recent anomalies, known devices, and a few
// headline counters.
func (p *Pipeline) snapshot() *websocket.InitialData {
	return &websocket.InitialData{
		Classifications: p.window.Snapshot(),
		Anomalies:       p.engine.Recent(snapshotAnomalyLimit),
		Devices:         p.devices.List(),
		Stats: map[string]interface{}{
			"ingested":    p.adapter.Count(),
			"window_size": p.window.Len(),
			"subscribers": p.hub.GetSubscriberCount(),
		},
	}
}
