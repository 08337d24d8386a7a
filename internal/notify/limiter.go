// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package notify

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tomtom215/netsentry/internal/config"
	"github.com/tomtom215/netsentry/internal/logging"
	"github.com/tomtom215/netsentry/internal/metrics"
	"github.com/tomtom215/netsentry/internal/models"
)

// ackCountThreshold is the per-category anomaly count at which a
// notification is flagged for required acknowledgment in the UI.
const ackCountThreshold = 3

// suppressionCategory marks the notice emitted when high-volume suppression
// engages in place of individual notifications.
const suppressionCategory = "high_volume"

// Limiter turns bursts of anomalies into at most one user-facing
// notification per call, applying an allow-set filter, high-volume
// suppression, and a global cooldown, in that order.
//
// The producer pipeline is the only writer; the mutex exists so status
// endpoints can read limiter state concurrently.
type Limiter struct {
	mu sync.Mutex

	cooldown            time.Duration
	highVolumeThreshold int
	suppressHighVolume  bool
	allowedSeverities   map[models.Severity]struct{}
	allowedCategories   map[string]struct{}

	lastNotification time.Time
	suppressed       bool
	categoryCounts   map[string]int64
	emitted          int64
	dropped          int64

	timeFunc func() time.Time
}

// NewLimiter creates a rate limiter from the notification config.
func NewLimiter(cfg config.NotifyConfig) *Limiter {
	severities := make(map[models.Severity]struct{}, len(cfg.AllowedSeverities))
	for _, s := range cfg.AllowedSeverities {
		severities[models.Severity(strings.ToLower(s))] = struct{}{}
	}

	categories := make(map[string]struct{}, len(cfg.AllowedCategories))
	for _, c := range cfg.AllowedCategories {
		categories[strings.ToLower(c)] = struct{}{}
	}

	return &Limiter{
		cooldown:            cfg.Cooldown(),
		highVolumeThreshold: cfg.HighVolumeThreshold,
		suppressHighVolume:  cfg.SuppressHighVolume,
		allowedSeverities:   severities,
		allowedCategories:   categories,
		categoryCounts:      make(map[string]int64),
		timeFunc:            time.Now,
	}
}

// Process applies the notification policy to one batch of anomalies and
// returns at most one notification, nil when nothing should surface.
//
// Policy order: allow-set filter, high-volume suppression, cooldown,
// then one summarizing notification for the dominant category.
func (l *Limiter) Process(anomalies []models.Anomaly) *models.Notification {
	l.mu.Lock()
	defer l.mu.Unlock()

	remaining := l.filter(anomalies)

	// High-volume suppression replaces the whole batch with a single
	// notice, emitted once per suppression episode.
	if l.suppressHighVolume && len(remaining) > l.highVolumeThreshold {
		if l.suppressed {
			metrics.RecordSuppression()
			return nil
		}
		l.suppressed = true
		metrics.RecordSuppression()
		return l.emit(l.suppressionNotice(len(remaining)))
	}

	// Volume fell back under the threshold: the next burst notifies again.
	if l.suppressed {
		l.suppressed = false
		logging.Debug().Msg("high-volume suppression lifted")
	}

	if len(remaining) == 0 {
		return nil
	}

	now := l.timeFunc()
	if now.Sub(l.lastNotification) < l.cooldown {
		return nil
	}

	n := l.summarize(remaining, now)
	l.lastNotification = now
	return l.emit(n)
}

// filter drops anomalies outside the configured severity and category
// allow-sets. An empty category set allows every category.
func (l *Limiter) filter(anomalies []models.Anomaly) []models.Anomaly {
	remaining := make([]models.Anomaly, 0, len(anomalies))
	for _, a := range anomalies {
		if _, ok := l.allowedSeverities[a.Severity]; !ok {
			l.dropped++
			continue
		}
		if len(l.allowedCategories) > 0 {
			if _, ok := l.allowedCategories[strings.ToLower(a.Category())]; !ok {
				l.dropped++
				continue
			}
		}
		remaining = append(remaining, a)
	}
	return remaining
}

// categoryGroup collects the anomalies sharing one category.
type categoryGroup struct {
	category    string
	anomalies   []models.Anomaly
	maxSeverity models.Severity
}

// summarize groups anomalies by category, picks the dominant group, and
// builds the single notification for this call.
func (l *Limiter) summarize(anomalies []models.Anomaly, now time.Time) *models.Notification {
	groups := make(map[string]*categoryGroup)
	order := make([]string, 0, 4)
	for _, a := range anomalies {
		category := a.Category()
		g, ok := groups[category]
		if !ok {
			g = &categoryGroup{category: category, maxSeverity: a.Severity}
			groups[category] = g
			order = append(order, category)
		}
		g.anomalies = append(g.anomalies, a)
		g.maxSeverity = models.MaxSeverity(g.maxSeverity, a.Severity)
	}

	// Dominant group: highest severity wins, then size, then first seen.
	best := groups[order[0]]
	for _, category := range order[1:] {
		g := groups[category]
		if g.maxSeverity.Rank() > best.maxSeverity.Rank() {
			best = g
			continue
		}
		if g.maxSeverity.Rank() == best.maxSeverity.Rank() && len(g.anomalies) > len(best.anomalies) {
			best = g
		}
	}

	count := len(best.anomalies)
	message := best.anomalies[0].Message
	if count > 1 {
		message = fmt.Sprintf("%s: %d anomalies detected", best.category, count)
	}

	return &models.Notification{
		ID:          uuid.NewString(),
		Message:     message,
		Severity:    best.maxSeverity,
		Category:    best.category,
		Count:       count,
		RequiresAck: count >= ackCountThreshold,
		EmittedAt:   now,
	}
}

// suppressionNotice builds the one notification that marks the start of a
// suppression episode, so operators know alerts are throttled, not lost.
func (l *Limiter) suppressionNotice(pending int) *models.Notification {
	return &models.Notification{
		ID:         uuid.NewString(),
		Message:    fmt.Sprintf("high anomaly volume: notifications suppressed (%d pending)", pending),
		Severity:   models.SeverityHigh,
		Category:   suppressionCategory,
		Count:      pending,
		Suppressed: true,
		EmittedAt:  l.timeFunc(),
	}
}

// emit records counters for an outgoing notification.
func (l *Limiter) emit(n *models.Notification) *models.Notification {
	l.emitted++
	l.categoryCounts[n.Category]++
	metrics.RecordNotification()
	logging.Debug().
		Str("category", n.Category).
		Str("severity", string(n.Severity)).
		Int("count", n.Count).
		Bool("suppressed", n.Suppressed).
		Msg("notification emitted")
	return n
}

// Status is a point-in-time snapshot of limiter state for the API.
type Status struct {
	LastNotificationAt time.Time        `json:"last_notification_at"`
	CooldownRemaining  float64          `json:"cooldown_remaining_seconds"`
	Suppressed         bool             `json:"suppressed"`
	Emitted            int64            `json:"emitted"`
	Dropped            int64            `json:"dropped"`
	ByCategory         map[string]int64 `json:"by_category"`
}

// Status returns current limiter counters and cooldown state.
func (l *Limiter) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	remaining := l.cooldown - l.timeFunc().Sub(l.lastNotification)
	if remaining < 0 || l.lastNotification.IsZero() {
		remaining = 0
	}

	byCategory := make(map[string]int64, len(l.categoryCounts))
	for k, v := range l.categoryCounts {
		byCategory[k] = v
	}

	return Status{
		LastNotificationAt: l.lastNotification,
		CooldownRemaining:  remaining.Seconds(),
		Suppressed:         l.suppressed,
		Emitted:            l.emitted,
		Dropped:            l.dropped,
		ByCategory:         byCategory,
	}
}

// Reset clears cooldown and suppression state. Used when playback restarts.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastNotification = time.Time{}
	l.suppressed = false
}
