// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package analytics

import (
	"sort"
	"time"

	"github.com/tomtom215/netsentry/internal/models"
)

// DefaultTimelineMinutes bounds the timeline query when the caller passes a
// non-positive minutes value.
const DefaultTimelineMinutes = 60

// TimelineBucket aggregates the attack traffic of one wall-clock minute.
type TimelineBucket struct {
	Timestamp  time.Time      `json:"timestamp"`
	Total      int            `json:"total"`
	ByType     map[string]int `json:"by_type"`
	BySeverity map[string]int `json:"by_severity"`
}

// BuildTimeline groups attack events into per-minute buckets, newest bucket
// first. Normal and clean traffic never appears; callers pass events already
// filtered to the requested time range.
func BuildTimeline(events []models.Event) []TimelineBucket {
	buckets := make(map[time.Time]*TimelineBucket)

	for i := range events {
		event := &events[i]
		if !event.IsAttack() {
			continue
		}
		minute := event.Timestamp.UTC().Truncate(time.Minute)
		bucket, ok := buckets[minute]
		if !ok {
			bucket = &TimelineBucket{
				Timestamp:  minute,
				ByType:     make(map[string]int),
				BySeverity: make(map[string]int),
			}
			buckets[minute] = bucket
		}
		bucket.Total++
		bucket.ByType[event.Category()]++
		bucket.BySeverity[string(event.EffectiveSeverity())]++
	}

	out := make([]TimelineBucket, 0, len(buckets))
	for _, bucket := range buckets {
		out = append(out, *bucket)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}
