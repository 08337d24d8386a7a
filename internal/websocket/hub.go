// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package websocket

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/netsentry/internal/config"
	"github.com/tomtom215/netsentry/internal/logging"
	"github.com/tomtom215/netsentry/internal/metrics"
	"github.com/tomtom215/netsentry/internal/models"
)

// ShutdownReason identifies why the hub is shutting down.
// This enables clear observability in logs and metrics.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was canceled.
	// This is the normal graceful shutdown path (e.g., SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	// This may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types pushed to subscribers.
const (
	MessageTypeClassification = "classification"
	MessageTypeNewAlert       = "new_alert"
	MessageTypeDeviceUpdate   = "device_update"
	MessageTypeInitialData    = "initial_data"
	MessageTypeNotification   = "notification"
	MessageTypePing           = "ping"
	MessageTypePong           = "pong"
)

// Message represents a WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// InitialData is the snapshot sent to every subscriber on connect, before
// any live traffic.
type InitialData struct {
	Classifications []models.Event         `json:"classifications"`
	Anomalies       []models.Anomaly       `json:"anomalies"`
	Devices         []models.Device        `json:"devices,omitempty"`
	Stats           map[string]interface{} `json:"stats,omitempty"`
}

// SnapshotFunc builds the initial_data payload for a new subscriber.
// It runs on the hub loop, so registration ordering guarantees the snapshot
// reflects everything broadcast before the subscriber's first live message.
type SnapshotFunc func() *InitialData

// Hub owns the subscriber set and fans published messages out to every open
// subscriber's bounded queue. A full queue moves that one subscriber into
// the draining state without affecting the others or the publisher.
type Hub struct {
	subscribers map[*Subscriber]bool
	broadcast   chan Message
	Register    chan *Subscriber
	Unregister  chan *Subscriber
	mu          sync.RWMutex
	running     atomic.Bool

	queueSize  int
	drainGrace time.Duration
	snapshotFn SnapshotFunc
}

// NewHub creates a hub with the configured per-subscriber queue size and
// drain grace period.
func NewHub(cfg config.BroadcastConfig) *Hub {
	return &Hub{
		broadcast:   make(chan Message, 256),
		Register:    make(chan *Subscriber),
		Unregister:  make(chan *Subscriber),
		subscribers: make(map[*Subscriber]bool),
		queueSize:   cfg.QueueSize,
		drainGrace:  cfg.DrainGrace(),
	}
}

// SetSnapshotFunc wires the provider for initial_data payloads. Must be set
// before the hub starts accepting registrations.
func (h *Hub) SetSnapshotFunc(fn SnapshotFunc) {
	h.snapshotFn = fn
}

// RunWithContext starts the hub with context support for graceful shutdown.
// This method is designed for use with suture supervision.
//
// When the context is canceled:
//  1. All connected subscribers are gracefully closed
//  2. The method returns ctx.Err()
//
// DETERMINISM: Uses priority-based selection to ensure predictable behavior:
// - Priority 1: Context cancellation (shutdown)
// - Priority 2: Subscriber lifecycle events (Register/Unregister)
// - Priority 3: Broadcast messages
func (h *Hub) RunWithContext(ctx context.Context) error {
	h.running.Store(true)
	defer h.running.Store(false)

	for {
		// Priority 1: Check for shutdown (highest priority, non-blocking)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: Handle lifecycle events (non-blocking check)
		select {
		case s := <-h.Register:
			h.handleRegister(s)
			continue
		case s := <-h.Unregister:
			h.handleUnregister(s)
			continue
		default:
		}

		// Priority 3: Handle broadcast messages or wait for any event (blocking)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()

		case s := <-h.Register:
			h.handleRegister(s)

		case s := <-h.Unregister:
			h.handleUnregister(s)

		case message := <-h.broadcast:
			h.broadcastToSubscribers(message)
		}
	}
}

// Run starts the hub without context support (blocks forever).
//
// Deprecated: Use RunWithContext for supervised operation.
func (h *Hub) Run() {
	_ = h.RunWithContext(context.Background())
}

// Running reports whether the hub loop is accepting registrations and
// broadcasts. The readiness probe uses this to gate traffic.
func (h *Hub) Running() bool {
	return h.running.Load()
}

// handleRegister adds the subscriber, queues its initial snapshot, and
// opens it. Runs on the hub loop, so no broadcast can interleave between
// the snapshot and the subscriber's first live message.
func (h *Hub) handleRegister(s *Subscriber) {
	h.mu.Lock()
	h.subscribers[s] = true
	h.mu.Unlock()

	if h.snapshotFn != nil {
		snapshot := Message{Type: MessageTypeInitialData, Data: h.snapshotFn()}
		if !s.trySend(snapshot) {
			// Fresh queue rejected the snapshot: queue size is zero or the
			// subscriber is already gone. Drop it rather than track it.
			h.mu.Lock()
			h.removeSubscriber(s)
			h.mu.Unlock()
			logging.Warn().Uint64("subscriber_id", s.id).Msg("dropping subscriber that cannot take initial snapshot")
			return
		}
		metrics.RecordWSMessage(MessageTypeInitialData)
	}
	s.setState(StateOpen)

	metrics.WSConnections.Inc()
	logging.Info().
		Uint64("subscriber_id", s.id).
		Int("total_subscribers", h.GetSubscriberCount()).
		Msg("subscriber connected")
}

// handleUnregister removes the subscriber if still present. Idempotent:
// repeated unregisters and unregister-after-force-close are no-ops.
func (h *Hub) handleUnregister(s *Subscriber) {
	h.mu.Lock()
	_, present := h.subscribers[s]
	if present {
		h.removeSubscriber(s)
	}
	h.mu.Unlock()

	if present {
		metrics.WSConnections.Dec()
		logging.Info().
			Uint64("subscriber_id", s.id).
			Int("total_subscribers", h.GetSubscriberCount()).
			Msg("subscriber disconnected")
	}
}

// removeSubscriber deletes the subscriber and closes its queue.
// Caller must hold h.mu.
func (h *Hub) removeSubscriber(s *Subscriber) {
	delete(h.subscribers, s)
	close(s.send)
	s.setState(StateClosed)
}

// broadcastToSubscribers delivers one message to every subscriber according
// to its state: open subscribers get it queued, draining subscribers get it
// coalesced into their latest-state slot, and draining subscribers past the
// grace period are forcibly closed. Slowness of one subscriber never blocks
// the others.
//
// DETERMINISM: Subscribers are visited in id order so delivery and forced
// closes happen in a reproducible sequence.
func (h *Hub) broadcastToSubscribers(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subscribers := make([]*Subscriber, 0, len(h.subscribers))
	for s := range h.subscribers {
		subscribers = append(subscribers, s)
	}
	sort.Slice(subscribers, func(i, j int) bool {
		return subscribers[i].id < subscribers[j].id
	})

	now := time.Now()
	var toClose []*Subscriber

	for _, s := range subscribers {
		switch s.State() {
		case StateOpen:
			// Flush any leftover coalesced state from a drain episode the
			// subscriber just recovered from, so it is not silently lost.
			if leftover := s.takeLatest(); leftover != nil {
				if !s.trySend(*leftover) {
					s.startDraining(message, now)
					metrics.WSMessagesDropped.Inc()
					continue
				}
				metrics.RecordWSMessage(leftover.Type)
			}
			if s.trySend(message) {
				metrics.RecordWSMessage(message.Type)
				continue
			}
			s.startDraining(message, now)
			metrics.WSMessagesDropped.Inc()
			logging.Warn().
				Uint64("subscriber_id", s.id).
				Str("message_type", message.Type).
				Msg("subscriber queue full, draining")

		case StateDraining:
			if s.drainExpired(h.drainGrace, now) {
				toClose = append(toClose, s)
				continue
			}
			s.coalesce(message)
			metrics.WSMessagesDropped.Inc()

		case StateConnecting, StateClosed:
			// Not yet snapshotted, or already torn down
		}
	}

	for _, s := range toClose {
		h.removeSubscriber(s)
		metrics.WSConnections.Dec()
		metrics.WSSlowClientsClosed.Inc()
		logging.Warn().
			Uint64("subscriber_id", s.id).
			Dur("grace", h.drainGrace).
			Msg("closing subscriber that did not catch up within drain grace")
	}
}

// logGracefulShutdown closes all subscribers and logs structured shutdown
// information. ctx.Err() is not logged as an error because cancellation is
// expected during graceful shutdown.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	count := h.GetSubscriberCount()
	h.closeAllSubscribers()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("subscribers_closed", count).
		Msg("websocket hub stopped")
}

// getShutdownReason determines the shutdown reason from the context error.
func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.Canceled:
		return ShutdownReasonContextCanceled
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// closeAllSubscribers tears down every subscriber in id order.
func (h *Hub) closeAllSubscribers() {
	h.mu.Lock()
	defer h.mu.Unlock()

	subscribers := make([]*Subscriber, 0, len(h.subscribers))
	for s := range h.subscribers {
		subscribers = append(subscribers, s)
	}
	sort.Slice(subscribers, func(i, j int) bool {
		return subscribers[i].id < subscribers[j].id
	})

	for _, s := range subscribers {
		h.removeSubscriber(s)
		metrics.WSConnections.Dec()
	}
}

// enqueueBroadcast pushes a message onto the hub's broadcast channel without
// ever blocking the caller. When the channel is full the oldest queued
// message is dropped to make room, so ingestion keeps flowing and
// subscribers converge on the newest state.
func (h *Hub) enqueueBroadcast(message Message) {
	select {
	case h.broadcast <- message:
		return
	default:
	}

	select {
	case <-h.broadcast:
		metrics.WSMessagesDropped.Inc()
	default:
	}

	select {
	case h.broadcast <- message:
	default:
		metrics.WSMessagesDropped.Inc()
		logging.Warn().Str("message_type", message.Type).Msg("broadcast channel full, dropping message")
	}
}

// BroadcastClassification publishes one classified event to all subscribers.
func (h *Hub) BroadcastClassification(event *models.Event) {
	h.enqueueBroadcast(Message{Type: MessageTypeClassification, Data: event})
}

// BroadcastAnomaly publishes a detected anomaly as a new_alert message.
func (h *Hub) BroadcastAnomaly(anomaly *models.Anomaly) {
	h.enqueueBroadcast(Message{Type: MessageTypeNewAlert, Data: anomaly})
}

// BroadcastNotification publishes a rate-limited notification.
func (h *Hub) BroadcastNotification(n *models.Notification) {
	h.enqueueBroadcast(Message{Type: MessageTypeNotification, Data: n})
}

// BroadcastDeviceUpdate publishes a device registry change.
func (h *Hub) BroadcastDeviceUpdate(device *models.Device) {
	h.enqueueBroadcast(Message{Type: MessageTypeDeviceUpdate, Data: device})
}

// BroadcastJSON publishes an arbitrary typed payload to all subscribers.
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	h.enqueueBroadcast(Message{Type: messageType, Data: data})
}

// GetSubscriberCount returns the number of tracked subscribers.
func (h *Hub) GetSubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// StateCounts returns subscriber counts keyed by state name, for the
// status endpoint.
func (h *Hub) StateCounts() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	counts := make(map[string]int, 4)
	for s := range h.subscribers {
		counts[s.State().String()]++
	}
	return counts
}

// MarshalMessage converts a message to JSON
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
