// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

//go:build nats

package eventprocessor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/netsentry/internal/config"
	"github.com/tomtom215/netsentry/internal/logging"
	"github.com/tomtom215/netsentry/internal/metrics"
	"github.com/tomtom215/netsentry/internal/models"
)

// Mirror publishes emitted notifications to a JetStream subject so external
// consumers (SIEM forwarders, pager bridges) can follow the feed without
// holding a WebSocket open.
type Mirror struct {
	publisher message.Publisher
	breaker   *gobreaker.CircuitBreaker[interface{}]
	subject   string

	mu     sync.RWMutex
	closed bool
}

// NewMirror creates a Watermill NATS publisher for the configured subject.
// The notification ID doubles as Nats-Msg-Id, so JetStream deduplicates
// redeliveries within the stream's duplicate window.
func NewMirror(cfg config.NATSConfig) (*Mirror, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("eventprocessor: NATS URL is required")
	}
	if cfg.Subject == "" {
		return nil, fmt.Errorf("eventprocessor: NATS subject is required")
	}

	logger := watermillLogger{}

	natsOpts := []natsgo.Option{
		natsgo.Timeout(cfg.ConnectTimeout),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.ReconnectBufSize(8 * 1024 * 1024),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("eventprocessor: create publisher: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        "notification-mirror",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Mirror circuit breaker state change")
		},
	})

	return &Mirror{
		publisher: pub,
		breaker:   breaker,
		subject:   cfg.Subject,
	}, nil
}

// Enabled reports whether publishes reach a broker. Always true for the
// NATS build; the stub build returns false.
func (m *Mirror) Enabled() bool { return true }

// Publish forwards one notification. Failures count against the circuit
// breaker; an open breaker fails fast without dialing.
func (m *Mirror) Publish(_ context.Context, n *models.Notification) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return fmt.Errorf("eventprocessor: mirror is closed")
	}
	m.mu.RUnlock()

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("eventprocessor: marshal notification: %w", err)
	}

	msg := message.NewMessage(n.ID, data)
	msg.Metadata.Set("severity", string(n.Severity))
	if n.Category != "" {
		msg.Metadata.Set("category", n.Category)
	}
	msg.Metadata.Set(natsgo.MsgIdHdr, n.ID)

	_, err = m.breaker.Execute(func() (interface{}, error) {
		return nil, m.publisher.Publish(m.subject, msg)
	})
	if err != nil {
		return fmt.Errorf("eventprocessor: publish %s: %w", n.ID, err)
	}

	metrics.RecordMirrorPublish()
	return nil
}

// Close shuts the publisher down. Idempotent.
func (m *Mirror) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	return m.publisher.Close()
}

// watermillLogger routes Watermill's internal logging through zerolog.
type watermillLogger struct {
	fields watermill.LogFields
}

func (l watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.event(logging.Error().Err(err), fields).Msg(msg)
}

func (l watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.event(logging.Info(), fields).Msg(msg)
}

func (l watermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.event(logging.Debug(), fields).Msg(msg)
}

func (l watermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.event(logging.Trace(), fields).Msg(msg)
}

func (l watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return watermillLogger{fields: l.fields.Add(fields)}
}

func (l watermillLogger) event(e *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for k, v := range l.fields {
		e = e.Interface(k, v)
	}
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	return e
}
