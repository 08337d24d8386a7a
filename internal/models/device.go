// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package models

import (
	"time"
)

// DeviceStatus describes whether an endpoint has produced traffic recently.
type DeviceStatus string

const (
	DeviceActive DeviceStatus = "active"
	DeviceIdle   DeviceStatus = "idle"
)

// Device is an endpoint observed in the classified traffic stream.
// The registry derives devices entirely from event source and destination
// addresses; there is no external inventory.
type Device struct {
	IP          string       `json:"ip"`
	FirstSeen   time.Time    `json:"first_seen"`
	LastSeen    time.Time    `json:"last_seen"`
	AttackCount int          `json:"attack_count"`
	NormalCount int          `json:"normal_count"`
	Status      DeviceStatus `json:"status"`
}
