// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

// Package window implements the rolling window store: a fixed-capacity,
// time-and-count bounded buffer of recent events.
//
// The store is the only mutable structure shared between the producer path
// and readers (the aggregation engine, snapshot pollers). Appends evict
// FIFO once the buffer exceeds capacity or the oldest entry ages past the
// window relative to the newest append. Reads return immutable copies, so
// writers never wait on readers beyond the short critical section.
//
// Complexity:
//   - Append: O(1) amortized (eviction advances the head pointer)
//   - Snapshot: O(n) copy where n = current window size
//   - Memory: O(capacity)
package window

import (
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/netsentry/internal/models"
)

// Store is a bounded ring buffer of classified events.
// The zero value is unusable; construct with New.
type Store struct {
	mu       sync.RWMutex
	events   []models.Event // circular buffer, fixed length == capacity
	head     int            // index of the oldest entry
	count    int
	capacity int
	maxAge   time.Duration
	nowFunc  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.nowFunc = now
	}
}

// New creates a rolling window store.
// Capacity and maxAge must both be positive; anything else is a
// configuration error and fails fast.
func New(capacity int, maxAge time.Duration, opts ...Option) (*Store, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("window: capacity must be positive, got %d", capacity)
	}
	if maxAge <= 0 {
		return nil, fmt.Errorf("window: max age must be positive, got %s", maxAge)
	}

	s := &Store{
		events:   make([]models.Event, capacity),
		capacity: capacity,
		maxAge:   maxAge,
		nowFunc:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Append adds an event, evicting the oldest entries once the buffer exceeds
// capacity or the oldest entry is older than maxAge relative to the newest
// append. Never blocks on readers.
func (s *Store) Append(event models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count == s.capacity {
		// Overwrite the oldest slot.
		s.head = (s.head + 1) % s.capacity
		s.count--
	}

	tail := (s.head + s.count) % s.capacity
	s.events[tail] = event
	s.count++

	s.evictAged(event.Timestamp)
}

// evictAged drops entries older than maxAge relative to the given reference
// timestamp. Must be called with mu held.
func (s *Store) evictAged(reference time.Time) {
	for s.count > 0 {
		oldest := s.events[s.head]
		if reference.Sub(oldest.Timestamp) <= s.maxAge {
			return
		}
		s.events[s.head] = models.Event{}
		s.head = (s.head + 1) % s.capacity
		s.count--
	}
}

// Snapshot returns a consistent, immutable copy of the window at call time,
// oldest first. An empty or zero-capacity window yields an empty slice,
// never an error.
func (s *Store) Snapshot() []models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Event, s.count)
	for i := 0; i < s.count; i++ {
		out[i] = s.events[(s.head+i)%s.capacity]
	}
	return out
}

// Recent returns the snapshot filtered to events whose timestamp is within
// d of the current clock, oldest first.
func (s *Store) Recent(d time.Duration) []models.Event {
	now := s.nowFunc()

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Event, 0, s.count)
	for i := 0; i < s.count; i++ {
		e := s.events[(s.head+i)%s.capacity]
		if now.Sub(e.Timestamp) <= d {
			out = append(out, e)
		}
	}
	return out
}

// Tail returns up to n of the newest events, oldest first.
// n <= 0 returns the full snapshot.
func (s *Store) Tail(n int) []models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > s.count {
		n = s.count
	}
	out := make([]models.Event, n)
	start := s.count - n
	for i := 0; i < n; i++ {
		out[i] = s.events[(s.head+start+i)%s.capacity]
	}
	return out
}

// Len returns the number of events currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Capacity returns the configured maximum entry count.
func (s *Store) Capacity() int {
	return s.capacity
}

// MaxAge returns the configured maximum entry age.
func (s *Store) MaxAge() time.Duration {
	return s.maxAge
}

// Latest returns the newest event and true, or a zero event and false when
// the window is empty.
func (s *Store) Latest() (models.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.count == 0 {
		return models.Event{}, false
	}
	return s.events[(s.head+s.count-1)%s.capacity], true
}

// Clear empties the window. Used by simulation reset.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.events {
		s.events[i] = models.Event{}
	}
	s.head = 0
	s.count = 0
}
