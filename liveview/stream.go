// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package liveview

import (
	"github.com/Azure/iot-telemetry-liveview/liveview/errors"
)

type (
	// AggregateMode selects how the streaming aggregator groups input.
	AggregateMode int

	// Aggregator is the stateful streaming counterpart of Decimate, used for
	// pre-aggregation ahead of spectral processing. It groups pushed values
	// into fixed blocks or a sliding window and optionally applies a
	// first-order exponential smoother to its output.
	//
	// Internal state persists across calls; it is reset only by an explicit
	// Reset at session restart, never as a side effect of other calls.
	Aggregator struct {
		mode   AggregateMode
		window []float64
		head   int
		size   int
		sum    float64

		alpha    float64
		smoothed float64
		warm     bool
	}
)

const (
	// Block emits one value per completed block of inputs.
	Block AggregateMode = iota

	// Sliding emits a value on every push, averaged over the trailing window.
	Sliding
)

// NewAggregator creates a streaming aggregator over the given window size.
// An alpha in (0, 1] enables exponential smoothing of the output; zero
// disables it. Other values are configuration errors.
func NewAggregator(size int, mode AggregateMode, alpha float64) (*Aggregator, error) {
	if size <= 0 {
		return nil, &errors.Error{
			Message:       "aggregation window must be positive",
			Kind:          errors.ConfigurationInvalid,
			PropertyName:  "Size",
			PropertyValue: size,
		}
	}
	if alpha < 0 || alpha > 1 {
		return nil, &errors.Error{
			Message:       "smoothing factor must be in (0, 1]",
			Kind:          errors.ConfigurationInvalid,
			PropertyName:  "Alpha",
			PropertyValue: alpha,
		}
	}
	return &Aggregator{
		mode:   mode,
		window: make([]float64, size),
		alpha:  alpha,
	}, nil
}

// Push feeds one value. The returned value is valid only when ok is true: on
// block completion in Block mode, or on every push in Sliding mode.
func (a *Aggregator) Push(v float64) (float64, bool) {
	if a.size == len(a.window) {
		// Sliding window full; evict the oldest from the running sum.
		a.sum -= a.window[a.head]
		a.size--
	}
	a.window[a.head] = v
	a.head = (a.head + 1) % len(a.window)
	a.size++
	a.sum += v

	switch a.mode {
	case Block:
		if a.size < len(a.window) {
			return 0, false
		}
		out := a.sum / float64(a.size)
		a.head = 0
		a.size = 0
		a.sum = 0
		return a.smooth(out), true

	case Sliding:
		return a.smooth(a.sum / float64(a.size)), true
	}
	return 0, false
}

// smooth applies the optional exponential smoother: y += alpha*(x - y).
func (a *Aggregator) smooth(x float64) float64 {
	if a.alpha == 0 {
		return x
	}
	if !a.warm {
		a.warm = true
		a.smoothed = x
		return x
	}
	a.smoothed += a.alpha * (x - a.smoothed)
	return a.smoothed
}

// Reset clears all aggregation and smoothing state for a new session.
func (a *Aggregator) Reset() {
	a.head = 0
	a.size = 0
	a.sum = 0
	a.smoothed = 0
	a.warm = false
}
