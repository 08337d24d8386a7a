// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

//go:build !nats

package eventprocessor

import (
	"context"

	"github.com/tomtom215/netsentry/internal/config"
	"github.com/tomtom215/netsentry/internal/models"
)

// Mirror is a disabled stand-in when the binary is built without the nats
// tag. The pipeline checks Enabled() and skips publishing entirely.
type Mirror struct{}

// NewMirror returns a disabled mirror. Build with -tags=nats for the
// Watermill JetStream publisher.
func NewMirror(_ config.NATSConfig) (*Mirror, error) {
	return &Mirror{}, nil
}

// Enabled always reports false for the stub build.
func (m *Mirror) Enabled() bool { return false }

// Publish is a no-op for the stub build.
func (m *Mirror) Publish(_ context.Context, _ *models.Notification) error {
	return nil
}

// Close is a no-op for the stub build.
func (m *Mirror) Close() error { return nil }
