// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package liveview

import (
	"sync"
	"time"

	"github.com/Azure/iot-telemetry-liveview/internal/wallclock"
)

// DefaultStaleThreshold is the arrival gap after which a channel is reported
// stale when no threshold is configured.
const DefaultStaleThreshold = 2 * time.Second

type (
	// StalenessMonitor tracks the wall-clock arrival time of each channel's
	// latest sample and reports channels whose feed has gone quiet. It never
	// extrapolates; a stale channel's last-known window remains the truth and
	// the stale state is surfaced alongside it.
	StalenessMonitor struct {
		mu        sync.Mutex
		threshold time.Duration
		last      map[ChannelKey]time.Time
	}
)

// NewStalenessMonitor creates a monitor with the given threshold, or
// DefaultStaleThreshold if zero or negative.
func NewStalenessMonitor(threshold time.Duration) *StalenessMonitor {
	if threshold <= 0 {
		threshold = DefaultStaleThreshold
	}
	return &StalenessMonitor{
		threshold: threshold,
		last:      make(map[ChannelKey]time.Time),
	}
}

// Observe records the arrival of a sample for a channel.
func (sm *StalenessMonitor) Observe(key ChannelKey) {
	now := wallclock.Instance.Now()
	sm.mu.Lock()
	sm.last[key] = now
	sm.mu.Unlock()
}

// IsStale reports whether the channel's most recent sample arrived longer
// than the threshold ago. A channel that has never produced data is stale.
func (sm *StalenessMonitor) IsStale(key ChannelKey) bool {
	now := wallclock.Instance.Now()
	sm.mu.Lock()
	defer sm.mu.Unlock()

	last, ok := sm.last[key]
	if !ok {
		return true
	}
	return now.Sub(last) > sm.threshold
}

// LastArrival returns the wall-clock time of the channel's latest sample.
func (sm *StalenessMonitor) LastArrival(key ChannelKey) (time.Time, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	last, ok := sm.last[key]
	return last, ok
}

// Clear drops all arrival state. Used at session boundaries.
func (sm *StalenessMonitor) Clear() {
	sm.mu.Lock()
	sm.last = make(map[ChannelKey]time.Time)
	sm.mu.Unlock()
}
