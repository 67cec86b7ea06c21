// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package liveview

import (
	"sync"

	"github.com/Azure/iot-telemetry-liveview/liveview/errors"
)

type (
	// Ring is a fixed-capacity circular store of points for one channel. Once
	// full, each append overwrites the oldest point, bounding memory while
	// favoring recent data.
	//
	// Concurrency contract: exactly one writer (the ingest loop) may call
	// Append; readers take point-in-time copies via Snapshot. The mutex is
	// held only for constant-time bookkeeping or a bounded copy, never for
	// render-duration work.
	Ring struct {
		mu     sync.Mutex
		points []point
		head   int
		size   int
	}

	point struct {
		t float64
		v float64
	}
)

// NewRing creates a ring with the given capacity.
func NewRing(capacity int) (*Ring, error) {
	if capacity <= 0 {
		return nil, &errors.Error{
			Message:       "ring capacity must be positive",
			Kind:          errors.ConfigurationInvalid,
			PropertyName:  "Capacity",
			PropertyValue: capacity,
		}
	}
	return &Ring{points: make([]point, capacity)}, nil
}

// Append adds a point, evicting the oldest if the ring is full.
func (r *Ring) Append(timestamp, value float64) {
	r.mu.Lock()
	r.points[r.head] = point{t: timestamp, v: value}
	r.head = (r.head + 1) % len(r.points)
	if r.size < len(r.points) {
		r.size++
	}
	r.mu.Unlock()
}

// Len returns the current number of stored points.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Cap returns the fixed capacity.
func (r *Ring) Cap() int {
	return len(r.points)
}

// Snapshot copies the stored points in append order, oldest first. The copy
// is taken under the lock but is bounded by capacity, so the writer is never
// blocked for long.
func (r *Ring) Snapshot() (times, values []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	times = make([]float64, r.size)
	values = make([]float64, r.size)
	start := r.head - r.size
	if start < 0 {
		start += len(r.points)
	}
	for i := 0; i < r.size; i++ {
		p := r.points[(start+i)%len(r.points)]
		times[i] = p.t
		values[i] = p.v
	}
	return times, values
}

// Window copies the points within the trailing lookback (in sample-time
// seconds, measured back from the newest point), oldest first.
func (r *Ring) Window(lookback float64) (times, values []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size == 0 {
		return nil, nil
	}

	start := r.head - r.size
	if start < 0 {
		start += len(r.points)
	}

	newest := r.head - 1
	if newest < 0 {
		newest += len(r.points)
	}
	since := r.points[newest].t - lookback

	// Points are appended in arrival order, so scan back from the newest to
	// find the cut. Minor timestamp jitter only costs a few extra points.
	first := r.size
	for i := r.size - 1; i >= 0; i-- {
		if r.points[(start+i)%len(r.points)].t < since {
			break
		}
		first = i
	}

	n := r.size - first
	times = make([]float64, n)
	values = make([]float64, n)
	for i := 0; i < n; i++ {
		p := r.points[(start+first+i)%len(r.points)]
		times[i] = p.t
		values[i] = p.v
	}
	return times, values
}

// Clear resets the ring to empty. Used at session boundaries so no data from
// a prior session leaks into a new one.
func (r *Ring) Clear() {
	r.mu.Lock()
	r.head = 0
	r.size = 0
	r.mu.Unlock()
}
