// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/netsentry/internal/config"
	"github.com/tomtom215/netsentry/internal/logging"
	"github.com/tomtom215/netsentry/internal/metrics"
)

// maxErrorBodySize caps how much of an error response body is read back
// for diagnostics.
const maxErrorBodySize = 64 * 1024

// pullResponse is the classifier's pull endpoint envelope.
type pullResponse struct {
	Data []RawRecord `json:"data"`
}

// PullClient fetches recent classified records over HTTP. It backs the
// degraded mode entered when streaming fails, and is wrapped in a circuit
// breaker so a down classifier is probed instead of hammered.
//
// Circuit breaker configuration:
//   - opens at a 60% failure rate once at least 10 requests were observed
//   - allows 3 concurrent probes in half-open state
//   - counts reset after 1 minute closed; recovery attempted after 2 minutes open
//
// Thread Safety: Safe for concurrent use.
type PullClient struct {
	baseURL string
	limit   int
	client  *http.Client
	cb      *gobreaker.CircuitBreaker[[]RawRecord]
	name    string
}

// NewPullClient creates a pull client for the classifier's recent-records
// endpoint.
func NewPullClient(cfg config.ClassifierConfig) (*PullClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("pull client: classifier URL is required")
	}

	limit := cfg.PullLimit
	if limit <= 0 {
		limit = 100
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	cbName := "classifier-pull"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]RawRecord](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening classifier pull circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := breakerStateString(from)
			toStr := breakerStateString(to)
			logging.Info().Str("from", fromStr).Str("to", toStr).
				Msg("[CIRCUIT BREAKER] Classifier pull state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &PullClient{
		baseURL: cfg.URL,
		limit:   limit,
		client:  &http.Client{Timeout: timeout},
		cb:      cb,
		name:    cbName,
	}, nil
}

// Recent fetches the most recent classified records, newest last. Returns
// gobreaker.ErrOpenState without touching the network while the circuit
// is open.
func (p *PullClient) Recent(ctx context.Context) ([]RawRecord, error) {
	records, err := p.cb.Execute(func() ([]RawRecord, error) {
		return p.fetch(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Classifier pull request rejected")
		}
		return nil, err
	}
	return records, nil
}

func (p *PullClient) fetch(ctx context.Context) ([]RawRecord, error) {
	reqURL := fmt.Sprintf("%s/recent?limit=%d", p.baseURL, p.limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pull request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		return nil, fmt.Errorf("pull request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var payload pullResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode pull response: %w", err)
	}
	return payload.Data, nil
}

// State exposes the breaker state for status endpoints.
func (p *PullClient) State() string {
	return breakerStateString(p.cb.State())
}

// readBodyForError reads a bounded prefix of an error response body.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("... (truncated)")...)
	}
	return body
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func breakerStateString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Poller drives the pull client on a fixed cadence in degraded mode,
// forwarding records the previous poll has not already delivered.
// Deduplication keys on record IDs with a bounded memory of recent IDs.
type Poller struct {
	client   *PullClient
	interval time.Duration
	handler  RecordHandler

	seen     map[string]struct{}
	order    []string
	capacity int
}

// NewPoller creates a poller that delivers fresh records to handler every
// interval.
func NewPoller(client *PullClient, interval time.Duration, handler RecordHandler) (*Poller, error) {
	if client == nil {
		return nil, fmt.Errorf("poller: pull client is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("poller: record handler is required")
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}

	return &Poller{
		client:   client,
		interval: interval,
		handler:  handler,
		seen:     make(map[string]struct{}),
		capacity: client.limit * 4,
	}, nil
}

// Run polls until ctx is canceled. The first poll happens immediately so
// degraded mode does not open with an empty window.
func (p *Poller) Run(ctx context.Context) error {
	logging.Info().Dur("interval", p.interval).Msg("Pull poller started")

	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Pull poller stopping")
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	records, err := p.client.Recent(ctx)
	if err != nil {
		if !errors.Is(err, gobreaker.ErrOpenState) && !errors.Is(err, gobreaker.ErrTooManyRequests) {
			logging.Warn().Err(err).Msg("Pull poll failed")
		}
		return
	}

	fresh := 0
	for _, record := range records {
		if record.ID != "" {
			if _, dup := p.seen[record.ID]; dup {
				continue
			}
			p.remember(record.ID)
		}
		p.handler(record)
		fresh++
	}
	if fresh > 0 {
		logging.Debug().Int("records", fresh).Msg("Pull poll delivered records")
	}
}

// remember adds id to the dedup set, evicting the oldest entries once the
// bound is reached.
func (p *Poller) remember(id string) {
	p.seen[id] = struct{}{}
	p.order = append(p.order, id)
	for len(p.order) > p.capacity {
		oldest := p.order[0]
		p.order = p.order[1:]
		delete(p.seen, oldest)
	}
}
