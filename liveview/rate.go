// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package liveview

import "sync"

// DefaultRateHistory is the per-channel timestamp history used when none is
// configured. Large enough to smooth irregular arrival, small enough to track
// rate changes within a second or two at typical rates.
const DefaultRateHistory = 256

type (
	// RateEstimator derives the effective sample rate of each channel from a
	// short rolling window of its timestamps. The estimate is computed lazily
	// on query, not per sample.
	RateEstimator struct {
		mu      sync.Mutex
		history int
		keys    map[ChannelKey]*rateRing
	}

	rateRing struct {
		stamps []float64
		head   int
		size   int
	}
)

// NewRateEstimator creates an estimator keeping the given number of
// timestamps per channel, or DefaultRateHistory if zero or negative.
func NewRateEstimator(history int) *RateEstimator {
	if history <= 0 {
		history = DefaultRateHistory
	}
	return &RateEstimator{
		history: history,
		keys:    make(map[ChannelKey]*rateRing),
	}
}

// OnSample records the arrival of one sample timestamp for a channel.
func (re *RateEstimator) OnSample(key ChannelKey, timestamp float64) {
	re.mu.Lock()
	r := re.keys[key]
	if r == nil {
		r = &rateRing{stamps: make([]float64, re.history)}
		re.keys[key] = r
	}
	r.stamps[r.head] = timestamp
	r.head = (r.head + 1) % len(r.stamps)
	if r.size < len(r.stamps) {
		r.size++
	}
	re.mu.Unlock()
}

// Hz returns the estimated sample rate for a channel: (n-1)/(tLast-tFirst)
// over the retained history. Zero when fewer than two samples are held or
// the span is not positive.
func (re *RateEstimator) Hz(key ChannelKey) float64 {
	re.mu.Lock()
	defer re.mu.Unlock()

	r := re.keys[key]
	if r == nil || r.size < 2 {
		return 0
	}

	newest := r.head - 1
	if newest < 0 {
		newest += len(r.stamps)
	}
	oldest := r.head - r.size
	if oldest < 0 {
		oldest += len(r.stamps)
	}

	span := r.stamps[newest] - r.stamps[oldest]
	if span <= 0 {
		return 0
	}
	return float64(r.size-1) / span
}

// Clear drops all per-channel history. Used at session boundaries.
func (re *RateEstimator) Clear() {
	re.mu.Lock()
	re.keys = make(map[ChannelKey]*rateRing)
	re.mu.Unlock()
}
