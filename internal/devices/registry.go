// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

// Package devices derives an endpoint inventory from the classified
// traffic stream. There is no external source of truth: a device exists
// because its address appeared as a source or destination, and its status
// follows its traffic. First appearances and status changes surface as
// device_update broadcasts.
package devices

import (
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/netsentry/internal/logging"
	"github.com/tomtom215/netsentry/internal/models"
)

// defaultIdleAfter marks a device idle when it has produced no traffic
// for this long.
const defaultIdleAfter = 60 * time.Second

// UpdateHandler receives a device snapshot when it first appears or its
// status flips. Called outside the registry lock.
type UpdateHandler func(models.Device)

// Registry tracks every endpoint address observed in the event stream.
//
// Thread Safety: Safe for concurrent use.
type Registry struct {
	mu        sync.Mutex
	devices   map[string]*models.Device
	idleAfter time.Duration
	onUpdate  UpdateHandler
	timeFunc  func() time.Time
}

// Option customizes registry construction.
type Option func(*Registry)

// WithClock overrides the clock used for idle detection.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.timeFunc = now
	}
}

// NewRegistry creates a registry. idleAfter bounds how long a device may
// stay silent before it is marked idle; non-positive values fall back to
// the default. onUpdate may be nil.
func NewRegistry(idleAfter time.Duration, onUpdate UpdateHandler, opts ...Option) *Registry {
	if idleAfter <= 0 {
		idleAfter = defaultIdleAfter
	}
	r := &Registry{
		devices:   make(map[string]*models.Device),
		idleAfter: idleAfter,
		onUpdate:  onUpdate,
		timeFunc:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Observe folds one event into the registry: both endpoint addresses are
// tracked, counts updated, and idle devices reactivated. New devices and
// idle-to-active transitions fire the update handler.
func (r *Registry) Observe(event models.Event) {
	updates := r.observeLocked(event)
	for _, device := range updates {
		r.onUpdate(device)
	}
}

func (r *Registry) observeLocked(event models.Event) []models.Device {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.timeFunc()
	attack := event.IsAttack()

	var updates []models.Device
	for _, ip := range []string{event.SourceIP, event.DestinationIP} {
		if ip == "" {
			continue
		}
		device, known := r.devices[ip]
		if !known {
			device = &models.Device{
				IP:        ip,
				FirstSeen: now,
				Status:    models.DeviceActive,
			}
			r.devices[ip] = device
			logging.Debug().Str("ip", ip).Msg("New device observed")
			device.LastSeen = now
			bumpCounts(device, attack)
			if r.onUpdate != nil {
				updates = append(updates, *device)
			}
			continue
		}

		device.LastSeen = now
		bumpCounts(device, attack)
		if device.Status == models.DeviceIdle {
			device.Status = models.DeviceActive
			logging.Debug().Str("ip", ip).Msg("Idle device active again")
			if r.onUpdate != nil {
				updates = append(updates, *device)
			}
		}
	}
	return updates
}

func bumpCounts(device *models.Device, attack bool) {
	if attack {
		device.AttackCount++
	} else {
		device.NormalCount++
	}
}

// SweepIdle transitions devices silent for longer than the idle bound to
// idle status, firing the update handler for each transition. Returns the
// number of devices transitioned. The pipeline calls this periodically.
func (r *Registry) SweepIdle() int {
	var updates []models.Device

	r.mu.Lock()
	now := r.timeFunc()
	for _, device := range r.devices {
		if device.Status == models.DeviceActive && now.Sub(device.LastSeen) > r.idleAfter {
			device.Status = models.DeviceIdle
			if r.onUpdate != nil {
				updates = append(updates, *device)
			}
		}
	}
	r.mu.Unlock()

	for _, device := range updates {
		r.onUpdate(device)
	}
	return len(updates)
}

// List returns all known devices sorted by address.
func (r *Registry) List() []models.Device {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Device, 0, len(r.devices))
	for _, device := range r.devices {
		out = append(out, *device)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].IP < out[j].IP
	})
	return out
}

// Get returns one device by address.
func (r *Registry) Get(ip string) (models.Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	device, ok := r.devices[ip]
	if !ok {
		return models.Device{}, false
	}
	return *device, true
}

// Count returns the number of known devices.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices)
}

// Reset forgets every device.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices = make(map[string]*models.Device)
}
