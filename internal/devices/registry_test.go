// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package devices

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/netsentry/internal/logging"
	"github.com/tomtom215/netsentry/internal/models"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type updateCollector struct {
	mu      sync.Mutex
	updates []models.Device
}

func (u *updateCollector) handle(device models.Device) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.updates = append(u.updates, device)
}

func (u *updateCollector) snapshot() []models.Device {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]models.Device, len(u.updates))
	copy(out, u.updates)
	return out
}

func trafficEvent(src, dst string, attack bool) models.Event {
	class := "normal"
	if attack {
		class = "tcp_syn_ddos"
	}
	return models.Event{
		SourceIP:       src,
		DestinationIP:  dst,
		Protocol:       "TCP",
		PredictedClass: class,
		Confidence:     0.9,
	}
}

func TestRegistryObserveTracksBothEndpoints(t *testing.T) {
	clock := newFakeClock()
	registry := NewRegistry(time.Minute, nil, WithClock(clock.Now))

	registry.Observe(trafficEvent("10.0.0.1", "10.0.0.2", false))

	if got := registry.Count(); got != 2 {
		t.Fatalf("Count() = %d, want 2", got)
	}
	src, ok := registry.Get("10.0.0.1")
	if !ok {
		t.Fatal("source device not tracked")
	}
	if src.NormalCount != 1 || src.AttackCount != 0 {
		t.Errorf("source counts = %d normal / %d attack, want 1/0", src.NormalCount, src.AttackCount)
	}
	if src.Status != models.DeviceActive {
		t.Errorf("source status = %q, want %q", src.Status, models.DeviceActive)
	}
	if !src.FirstSeen.Equal(clock.Now()) || !src.LastSeen.Equal(clock.Now()) {
		t.Error("first/last seen not stamped from clock")
	}
	if _, ok := registry.Get("10.0.0.2"); !ok {
		t.Fatal("destination device not tracked")
	}
}

func TestRegistryAttackCounts(t *testing.T) {
	registry := NewRegistry(time.Minute, nil, WithClock(newFakeClock().Now))

	registry.Observe(trafficEvent("10.0.0.1", "10.0.0.2", true))
	registry.Observe(trafficEvent("10.0.0.1", "10.0.0.2", true))
	registry.Observe(trafficEvent("10.0.0.2", "10.0.0.1", false))

	src, _ := registry.Get("10.0.0.1")
	if src.AttackCount != 2 || src.NormalCount != 1 {
		t.Errorf("10.0.0.1 counts = %d attack / %d normal, want 2/1", src.AttackCount, src.NormalCount)
	}
	dst, _ := registry.Get("10.0.0.2")
	if dst.AttackCount != 2 || dst.NormalCount != 1 {
		t.Errorf("10.0.0.2 counts = %d attack / %d normal, want 2/1", dst.AttackCount, dst.NormalCount)
	}
}

func TestRegistryEmitsUpdateOncePerNewDevice(t *testing.T) {
	collector := &updateCollector{}
	registry := NewRegistry(time.Minute, collector.handle, WithClock(newFakeClock().Now))

	registry.Observe(trafficEvent("10.0.0.1", "10.0.0.2", false))
	registry.Observe(trafficEvent("10.0.0.1", "10.0.0.2", false))
	registry.Observe(trafficEvent("10.0.0.2", "10.0.0.1", true))

	updates := collector.snapshot()
	if len(updates) != 2 {
		t.Fatalf("got %d updates, want 2 (one per new device)", len(updates))
	}
	if updates[0].IP != "10.0.0.1" || updates[1].IP != "10.0.0.2" {
		t.Errorf("update order = %q, %q", updates[0].IP, updates[1].IP)
	}
}

func TestRegistryIgnoresEmptyAddresses(t *testing.T) {
	registry := NewRegistry(time.Minute, nil, WithClock(newFakeClock().Now))

	registry.Observe(trafficEvent("10.0.0.1", "", false))

	if got := registry.Count(); got != 1 {
		t.Fatalf("Count() = %d, want 1", got)
	}
}

func TestRegistrySweepIdleTransitions(t *testing.T) {
	clock := newFakeClock()
	collector := &updateCollector{}
	registry := NewRegistry(time.Minute, collector.handle, WithClock(clock.Now))

	registry.Observe(trafficEvent("10.0.0.1", "10.0.0.2", false))
	clock.Advance(30 * time.Second)
	registry.Observe(trafficEvent("10.0.0.2", "", false))
	clock.Advance(45 * time.Second)

	// 10.0.0.1 last seen 75s ago, 10.0.0.2 45s ago.
	if got := registry.SweepIdle(); got != 1 {
		t.Fatalf("SweepIdle() = %d, want 1", got)
	}
	idle, _ := registry.Get("10.0.0.1")
	if idle.Status != models.DeviceIdle {
		t.Errorf("10.0.0.1 status = %q, want %q", idle.Status, models.DeviceIdle)
	}
	active, _ := registry.Get("10.0.0.2")
	if active.Status != models.DeviceActive {
		t.Errorf("10.0.0.2 status = %q, want %q", active.Status, models.DeviceActive)
	}

	updates := collector.snapshot()
	if len(updates) != 3 {
		t.Fatalf("got %d updates, want 3 (two new + one idle)", len(updates))
	}
	last := updates[2]
	if last.IP != "10.0.0.1" || last.Status != models.DeviceIdle {
		t.Errorf("idle update = %s/%s, want 10.0.0.1/%s", last.IP, last.Status, models.DeviceIdle)
	}

	// A second sweep must not re-announce the same idle device.
	if got := registry.SweepIdle(); got != 0 {
		t.Fatalf("second SweepIdle() = %d, want 0", got)
	}
}

func TestRegistryIdleDeviceReactivates(t *testing.T) {
	clock := newFakeClock()
	collector := &updateCollector{}
	registry := NewRegistry(time.Minute, collector.handle, WithClock(clock.Now))

	registry.Observe(trafficEvent("10.0.0.1", "", false))
	clock.Advance(2 * time.Minute)
	registry.SweepIdle()
	registry.Observe(trafficEvent("10.0.0.1", "", false))

	device, _ := registry.Get("10.0.0.1")
	if device.Status != models.DeviceActive {
		t.Fatalf("status = %q, want %q", device.Status, models.DeviceActive)
	}

	updates := collector.snapshot()
	if len(updates) != 3 {
		t.Fatalf("got %d updates, want 3 (new + idle + active)", len(updates))
	}
	if updates[2].Status != models.DeviceActive {
		t.Errorf("last update status = %q, want %q", updates[2].Status, models.DeviceActive)
	}
}

func TestRegistryListSortedByAddress(t *testing.T) {
	registry := NewRegistry(time.Minute, nil, WithClock(newFakeClock().Now))

	registry.Observe(trafficEvent("192.168.1.9", "10.0.0.5", false))
	registry.Observe(trafficEvent("172.16.0.1", "", true))

	list := registry.List()
	if len(list) != 3 {
		t.Fatalf("List() returned %d devices, want 3", len(list))
	}
	want := []string{"10.0.0.5", "172.16.0.1", "192.168.1.9"}
	for i, ip := range want {
		if list[i].IP != ip {
			t.Errorf("List()[%d].IP = %q, want %q", i, list[i].IP, ip)
		}
	}
}

func TestRegistryReset(t *testing.T) {
	registry := NewRegistry(time.Minute, nil, WithClock(newFakeClock().Now))

	registry.Observe(trafficEvent("10.0.0.1", "10.0.0.2", false))
	registry.Reset()

	if got := registry.Count(); got != 0 {
		t.Fatalf("Count() after Reset = %d, want 0", got)
	}
	if _, ok := registry.Get("10.0.0.1"); ok {
		t.Fatal("device survived Reset")
	}
}

func TestRegistryDefaultIdleBound(t *testing.T) {
	registry := NewRegistry(0, nil)
	if registry.idleAfter != defaultIdleAfter {
		t.Fatalf("idleAfter = %v, want %v", registry.idleAfter, defaultIdleAfter)
	}
}
