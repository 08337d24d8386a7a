// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package ingest

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/netsentry/internal/config"
	"github.com/tomtom215/netsentry/internal/logging"
	"github.com/tomtom215/netsentry/internal/metrics"
)

const (
	// streamHandshakeTimeout bounds the WebSocket dial.
	streamHandshakeTimeout = 10 * time.Second

	// streamReadTimeout is the per-read deadline. A classifier silent for
	// longer is treated as a dead connection.
	streamReadTimeout = 60 * time.Second

	// streamPingInterval is how often keepalive pings are sent.
	streamPingInterval = 30 * time.Second
)

// streamEnvelope is the classifier's wire framing: a type tag and payload.
type streamEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// DegradedHandler is invoked exactly once when the stream client exhausts
// its reconnect budget and hands ingestion over to the pull fallback.
type DegradedHandler func(err *ConnectionLostError)

// StreamClient consumes the external classifier's WebSocket event stream.
//
// Reconnection policy: an abnormal close triggers reconnect attempts with a
// fixed delay between them, up to the configured cap. A successful
// connection resets the budget. Exhausting the budget fires the degraded
// handler once and stops the client; a normal close (CloseNormalClosure or
// CloseGoingAway) stops it immediately without any reconnection.
//
// Thread Safety: Safe for concurrent use alongside the Run loop.
type StreamClient struct {
	streamURL      string
	reconnectDelay time.Duration
	maxAttempts    int

	conn   *websocket.Conn
	connMu sync.RWMutex

	callbackMu sync.RWMutex
	onRecord   RecordHandler
	onDegraded DegradedHandler

	stateMu     sync.Mutex
	normalClose bool
	degraded    bool

	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewStreamClient creates a classifier stream client delivering records to
// onRecord.
func NewStreamClient(classifier config.ClassifierConfig, client config.ClientConfig, onRecord RecordHandler) (*StreamClient, error) {
	if classifier.StreamURL == "" {
		return nil, fmt.Errorf("stream client: classifier stream URL is required")
	}
	if onRecord == nil {
		return nil, fmt.Errorf("stream client: record handler is required")
	}

	streamURL, err := normalizeStreamURL(classifier.StreamURL)
	if err != nil {
		return nil, fmt.Errorf("stream client: %w", err)
	}

	return &StreamClient{
		streamURL:      streamURL,
		reconnectDelay: client.ReconnectDelay(),
		maxAttempts:    client.MaxReconnectAttempts,
		onRecord:       onRecord,
		stopChan:       make(chan struct{}),
	}, nil
}

// OnDegraded registers the handler fired when the reconnect budget runs out.
func (c *StreamClient) OnDegraded(fn DegradedHandler) {
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()
	c.onDegraded = fn
}

// normalizeStreamURL converts http(s) scheme URLs to their ws(s)
// equivalents so either form can be configured.
func normalizeStreamURL(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse stream url: %w", err)
	}
	switch parsed.Scheme {
	case "ws", "wss":
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported stream url scheme %q", parsed.Scheme)
	}
	return parsed.String(), nil
}

// Run drives the read loop until the context is canceled, the server closes
// normally, or the reconnect budget is exhausted. Returns nil on a clean
// stop (including degradation); the pull fallback takes over ingestion in
// the degraded case.
func (c *StreamClient) Run(ctx context.Context) error {
	if err := c.connect(ctx); err != nil {
		logging.Error().Err(err).Str("url", c.streamURL).Msg("Classifier stream initial connection failed")
	}

	c.wg.Add(1)
	go c.pingLoop(ctx)
	defer func() {
		_ = c.Close()
	}()

	attempts := 0
	var lastErr error

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Classifier stream stopping (context canceled)")
			return ctx.Err()
		case <-c.stopChan:
			logging.Info().Msg("Classifier stream stopping (stop signal received)")
			return nil
		default:
		}

		conn := c.currentConn()
		if conn == nil {
			if c.closedNormally() {
				logging.Info().Msg("Classifier stream closed normally, not reconnecting")
				return nil
			}
			if attempts >= c.maxAttempts {
				c.degrade(&ConnectionLostError{URL: c.streamURL, Attempts: attempts, Err: lastErr})
				return nil
			}

			select {
			case <-time.After(c.reconnectDelay):
			case <-ctx.Done():
				return ctx.Err()
			case <-c.stopChan:
				return nil
			}

			attempts++
			metrics.ClassifierReconnects.Inc()
			logging.Info().Int("attempt", attempts).Int("max_attempts", c.maxAttempts).
				Msg("Reconnecting to classifier stream")

			if err := c.connect(ctx); err != nil {
				lastErr = err
				logging.Error().Err(err).Int("attempt", attempts).Msg("Classifier stream reconnection failed")
				continue
			}
			attempts = 0
			continue
		}

		if err := conn.SetReadDeadline(time.Now().Add(streamReadTimeout)); err != nil {
			logging.Warn().Err(err).Msg("Classifier stream: failed to set read deadline")
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.markNormalClose()
				c.closeConnection()
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			logging.Warn().Err(err).Msg("Classifier stream read error")
			c.closeConnection()
			continue
		}

		c.handleMessage(message)
	}
}

// connect dials the classifier stream. Already-connected calls are no-ops.
func (c *StreamClient) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil {
		return nil
	}

	dialer := websocket.Dialer{
		HandshakeTimeout:  streamHandshakeTimeout,
		EnableCompression: true,
	}

	conn, resp, err := dialer.DialContext(ctx, c.streamURL, nil)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			return fmt.Errorf("dial classifier stream (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("dial classifier stream: %w", err)
	}
	if resp != nil {
		_ = resp.Body.Close()
	}

	c.conn = conn
	logging.Info().Str("url", c.streamURL).Msg("Connected to classifier stream")
	return nil
}

// handleMessage parses the envelope and routes classification payloads to
// the record handler. Unknown types are logged and dropped.
func (c *StreamClient) handleMessage(data []byte) {
	var envelope streamEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		logging.Warn().Err(err).Msg("Failed to parse classifier stream message")
		return
	}

	switch envelope.Type {
	case "classification":
		var raw RawRecord
		if err := json.Unmarshal(envelope.Data, &raw); err != nil {
			logging.Warn().Err(err).Msg("Failed to parse classification payload")
			return
		}
		c.callbackMu.RLock()
		handler := c.onRecord
		c.callbackMu.RUnlock()
		handler(raw)

	case "ping", "pong":
		// Application-level heartbeat, nothing to route.

	default:
		logging.Debug().Str("type", envelope.Type).Msg("Ignoring unknown classifier message type")
	}
}

// pingLoop sends keepalive pings so half-dead connections surface as read
// errors instead of silent stalls.
func (c *StreamClient) pingLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopChan:
			return
		case <-ticker.C:
			conn := c.currentConn()
			if conn == nil {
				continue
			}
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(streamHandshakeTimeout)); err != nil {
				logging.Warn().Err(err).Msg("Classifier stream ping failed")
				c.closeConnection()
			}
		}
	}
}

func (c *StreamClient) currentConn() *websocket.Conn {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.conn
}

// closeConnection tears down the current connection, sending a close frame
// on a best-effort basis.
func (c *StreamClient) closeConnection() {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return
	}
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	if err := c.conn.Close(); err != nil {
		logging.Debug().Err(err).Msg("Classifier stream connection close failed")
	}
	c.conn = nil
}

func (c *StreamClient) markNormalClose() {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.normalClose = true
}

func (c *StreamClient) closedNormally() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.normalClose
}

// degrade fires the degraded handler exactly once.
func (c *StreamClient) degrade(lost *ConnectionLostError) {
	c.stateMu.Lock()
	if c.degraded {
		c.stateMu.Unlock()
		return
	}
	c.degraded = true
	c.stateMu.Unlock()

	logging.Error().Err(lost).Int("attempts", lost.Attempts).
		Msg("Classifier stream degraded, switching to pull fallback")

	c.callbackMu.RLock()
	handler := c.onDegraded
	c.callbackMu.RUnlock()
	if handler != nil {
		handler(lost)
	}
}

// Degraded reports whether the client has given up on streaming.
func (c *StreamClient) Degraded() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.degraded
}

// IsConnected reports whether a stream connection is currently established.
func (c *StreamClient) IsConnected() bool {
	return c.currentConn() != nil
}

// Close stops the client and waits for its goroutines to finish.
func (c *StreamClient) Close() error {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
	c.closeConnection()
	c.wg.Wait()
	return nil
}
