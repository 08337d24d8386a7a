// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tomtom215/netsentry/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024 // 512 KB
)

// SubscriberState tracks where a subscriber is in its lifecycle.
// Transitions: connecting -> open -> (draining) -> closed; draining returns
// to open when the subscriber catches up within the grace period.
type SubscriberState int32

const (
	StateConnecting SubscriberState = iota
	StateOpen
	StateDraining
	StateClosed
)

// String returns the lowercase state name used in logs and status payloads.
func (s SubscriberState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// subscriberIDCounter generates unique, monotonically increasing IDs.
// DETERMINISM: Lets the hub sort subscribers into a consistent order for
// broadcast operations, eliminating non-deterministic map iteration order.
var subscriberIDCounter atomic.Uint64

// Subscriber is one push connection: the middleman between the websocket
// connection and the hub. Its bounded send queue isolates the hub from the
// connection's write speed.
type Subscriber struct {
	id    uint64
	hub   *Hub
	conn  *websocket.Conn
	send  chan Message
	state atomic.Int32

	// latest holds the coalesced newest message while draining, along with
	// the time the drain episode started.
	latestMu   sync.Mutex
	latest     *Message
	drainStart time.Time
}

// NewSubscriber creates a subscriber in the connecting state with the hub's
// configured queue size.
func NewSubscriber(hub *Hub, conn *websocket.Conn) *Subscriber {
	return &Subscriber{
		id:   subscriberIDCounter.Add(1),
		hub:  hub,
		conn: conn,
		send: make(chan Message, hub.queueSize),
	}
}

// ID returns the subscriber's unique identifier.
func (s *Subscriber) ID() uint64 {
	return s.id
}

// State returns the current lifecycle state.
func (s *Subscriber) State() SubscriberState {
	return SubscriberState(s.state.Load())
}

func (s *Subscriber) setState(state SubscriberState) {
	s.state.Store(int32(state))
}

func (s *Subscriber) casState(from, to SubscriberState) bool {
	return s.state.CompareAndSwap(int32(from), int32(to))
}

// trySend queues a message without blocking. Returns false when the queue
// is full or closed.
func (s *Subscriber) trySend(message Message) (ok bool) {
	defer func() {
		if recover() != nil {
			// Send on the closed queue of a subscriber torn down moments ago
			ok = false
		}
	}()

	select {
	case s.send <- message:
		return true
	default:
		return false
	}
}

// startDraining moves the subscriber from open to draining and seeds the
// coalescing slot. No-op on the state if already draining.
func (s *Subscriber) startDraining(message Message, now time.Time) {
	s.latestMu.Lock()
	if s.casState(StateOpen, StateDraining) {
		s.drainStart = now
	}
	s.latest = &message
	s.latestMu.Unlock()
}

// coalesce replaces the pending latest-state message. Intermediate states
// are deliberately dropped; a draining subscriber only ever needs the
// newest one.
func (s *Subscriber) coalesce(message Message) {
	s.latestMu.Lock()
	s.latest = &message
	s.latestMu.Unlock()
}

// takeLatest removes and returns the coalesced message, nil if none.
func (s *Subscriber) takeLatest() *Message {
	s.latestMu.Lock()
	defer s.latestMu.Unlock()
	latest := s.latest
	s.latest = nil
	return latest
}

// drainExpired reports whether the drain episode has outlived the grace
// period.
func (s *Subscriber) drainExpired(grace time.Duration, now time.Time) bool {
	s.latestMu.Lock()
	defer s.latestMu.Unlock()
	return now.Sub(s.drainStart) > grace
}

// readPump pumps control messages from the websocket connection and tears
// the subscriber down when the connection drops.
func (s *Subscriber) readPump() {
	defer func() {
		s.hub.Unregister <- s
		_ = s.conn.Close() // Explicitly ignore error - best-effort cleanup
	}()

	s.conn.SetReadLimit(maxMessageSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		err := s.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Uint64("subscriber_id", s.id).Msg("unexpected websocket close error")
			}
			break
		}

		if msg.Type == MessageTypePing {
			pong := Message{Type: MessageTypePong, Data: nil}
			select {
			case s.send <- pong:
			default:
			}
		}
	}
}

// writePump pumps messages from the queue to the websocket connection and
// finishes drain episodes: after each write a draining subscriber flushes
// its coalesced state and, once its queue is empty, reopens.
func (s *Subscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close() // Explicitly ignore error - best-effort cleanup
	}()

	for {
		select {
		case message, ok := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}

			if !ok {
				// The hub closed the queue
				if err := s.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					logging.Error().Err(err).Msg("failed to write close message")
				}
				return
			}

			if err := s.conn.WriteJSON(message); err != nil {
				logging.Error().Err(err).Uint64("subscriber_id", s.id).Msg("failed to write JSON message")
				return
			}

			if !s.finishDrain() {
				return
			}

		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}

			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// finishDrain flushes the coalesced latest-state message when draining and
// reopens the subscriber once its queue is empty. Returns false on a fatal
// write error.
func (s *Subscriber) finishDrain() bool {
	if s.State() != StateDraining {
		return true
	}

	if latest := s.takeLatest(); latest != nil {
		if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return false
		}
		if err := s.conn.WriteJSON(*latest); err != nil {
			logging.Error().Err(err).Uint64("subscriber_id", s.id).Msg("failed to write coalesced message")
			return false
		}
	}

	if len(s.send) == 0 && s.casState(StateDraining, StateOpen) {
		logging.Debug().Uint64("subscriber_id", s.id).Msg("subscriber caught up, reopened")
	}
	return true
}

// Start begins reading and writing for the subscriber
func (s *Subscriber) Start() {
	go s.writePump()
	go s.readPump()
}
