// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package liveview

import (
	"context"
	"sync"
	"time"

	"github.com/Azure/iot-telemetry-liveview/internal/wallclock"
	"github.com/Azure/iot-telemetry-liveview/liveview/errors"
)

// Render scheduler defaults. The fixed interval and adaptive clamp bounds
// cover the typical 20-250 ms refresh range of a live telemetry view.
const (
	DefaultInterval      = 100 * time.Millisecond
	DefaultMinInterval   = 20 * time.Millisecond
	DefaultMaxInterval   = 250 * time.Millisecond
	DefaultWindowSeconds = 10.0
	DefaultMaxPoints     = 500
)

type (
	// Display receives decimated trace data from the render scheduler. All
	// methods are called from the scheduler's goroutine only.
	Display interface {
		// Rebuild reconfigures the displayed trace set. It is called only
		// when the set of visible channels changes, never on the common
		// per-tick path.
		Rebuild(keys []ChannelKey)

		// UpdateTrace replaces one trace's data in place. An empty series
		// clears the trace but keeps its slot, so the layout stays stable.
		UpdateTrace(key ChannelKey, times, values []float64, stale bool)

		// Flush requests a single repaint covering every update made this
		// tick. It is called once per tick, not once per channel.
		Flush()
	}

	// Scheduler drives the periodic render path: on each tick it snapshots
	// the visible channels' windows, decimates them, and pushes the results
	// to the display. It runs single-threaded; only cooperative yielding
	// between ticks is assumed on the render side.
	Scheduler struct {
		store   *Store
		display Display

		window    float64
		maxPoints int
		mode      DecimationMode
		interval  time.Duration
		adaptive  bool
		minIvl    time.Duration
		maxIvl    time.Duration
		slack     time.Duration

		// visible may be replaced from any goroutine while the scheduler
		// ticks; shown is owned by the tick path alone.
		mu      sync.RWMutex
		visible []ChannelKey

		shown []ChannelKey
	}
)

// NewScheduler creates a render scheduler over the store and display.
// Configuration is validated here, fail-fast, never mid-stream.
func NewScheduler(
	store *Store,
	display Display,
	opt ...SchedulerOption,
) (*Scheduler, error) {
	var options SchedulerOptions
	options.Apply(opt)

	if store == nil || display == nil {
		return nil, &errors.Error{
			Message:      "store and display cannot be nil",
			Kind:         errors.ArgumentInvalid,
			PropertyName: "display",
		}
	}

	window := options.WindowSeconds
	if window == 0 {
		window = DefaultWindowSeconds
	}
	if window < 0 {
		return nil, &errors.Error{
			Message:       "render window must be positive",
			Kind:          errors.ConfigurationInvalid,
			PropertyName:  "WindowSeconds",
			PropertyValue: options.WindowSeconds,
		}
	}

	maxPoints := options.MaxPoints
	if maxPoints == 0 {
		maxPoints = DefaultMaxPoints
	}
	if maxPoints < 2 {
		return nil, &errors.Error{
			Message:       "points per trace must be at least 2",
			Kind:          errors.ConfigurationInvalid,
			PropertyName:  "MaxPoints",
			PropertyValue: options.MaxPoints,
		}
	}

	interval := options.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	minIvl, maxIvl := options.MinInterval, options.MaxInterval
	if minIvl == 0 {
		minIvl = DefaultMinInterval
	}
	if maxIvl == 0 {
		maxIvl = DefaultMaxInterval
	}
	if interval < 0 || minIvl < 0 || maxIvl < minIvl {
		return nil, &errors.Error{
			Message:       "invalid refresh interval configuration",
			Kind:          errors.ConfigurationInvalid,
			PropertyName:  "Interval",
			PropertyValue: options.Interval,
		}
	}

	return &Scheduler{
		store:     store,
		display:   display,
		window:    window,
		maxPoints: maxPoints,
		mode:      options.Mode,
		interval:  interval,
		adaptive:  options.Adaptive,
		minIvl:    minIvl,
		maxIvl:    maxIvl,
		slack:     options.Slack,
	}, nil
}

// SetVisible restricts rendering to the given channels. A nil set renders
// every channel the store has seen. Safe to call while the scheduler is
// running; structural display rebuilds happen on the next tick.
func (s *Scheduler) SetVisible(keys []ChannelKey) {
	var copied []ChannelKey
	if keys != nil {
		copied = append([]ChannelKey(nil), keys...)
	}

	s.mu.Lock()
	s.visible = copied
	s.mu.Unlock()
}

// visibleKeys resolves the channel set for this tick. The returned slice is
// never mutated by the tick path.
func (s *Scheduler) visibleKeys() []ChannelKey {
	s.mu.RLock()
	visible := s.visible
	s.mu.RUnlock()

	if visible == nil {
		return s.store.Keys()
	}
	return visible
}

// Run ticks the render path until the context is done. In adaptive mode the
// tick interval tracks the measured sample rate, clamped to the configured
// bounds.
func (s *Scheduler) Run(ctx context.Context) error {
	interval := s.interval
	if s.adaptive {
		interval = s.adaptiveInterval()
	}

	ticker := wallclock.Instance.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return errors.Context(ctx, "render scheduler")

		case <-ticker.C():
			s.Tick()

			if s.adaptive {
				if next := s.adaptiveInterval(); next != interval {
					interval = next
					ticker.Reset(interval)
				}
			}
		}
	}
}

// Tick renders one frame: snapshot, decimate, and update every visible
// trace, then request a single coalesced repaint.
func (s *Scheduler) Tick() {
	keys := s.visibleKeys()

	if !sameKeys(s.shown, keys) {
		s.shown = append([]ChannelKey(nil), keys...)
		s.display.Rebuild(s.shown)
	}

	for _, key := range keys {
		times, values := s.store.Window(key, s.window)
		times, values = s.trimSlack(times, values)
		stale := s.store.IsStale(key)

		if len(values) == 0 {
			s.display.UpdateTrace(key, nil, nil, stale)
			continue
		}

		// Decimation cannot fail here: maxPoints was validated at
		// construction and the slices are parallel by construction.
		dt, dv, _ := Decimate(times, values, s.maxPoints, s.mode)
		s.display.UpdateTrace(key, dt, dv, stale)
	}

	s.display.Flush()
}

// trimSlack drops the trailing slack's worth of points so the view draws
// slightly behind the newest sample, absorbing short network jitter.
func (s *Scheduler) trimSlack(times, values []float64) ([]float64, []float64) {
	if s.slack <= 0 || len(times) == 0 {
		return times, values
	}
	cut := times[len(times)-1] - s.slack.Seconds()
	n := len(times)
	for n > 0 && times[n-1] > cut {
		n--
	}
	return times[:n], values[:n]
}

// adaptiveInterval derives the tick interval from the fastest visible
// channel, clamped to the configured bounds.
func (s *Scheduler) adaptiveInterval() time.Duration {
	keys := s.visibleKeys()

	var fastest float64
	for _, key := range keys {
		if hz := s.store.Hz(key); hz > fastest {
			fastest = hz
		}
	}

	if fastest <= 0 {
		return s.maxIvl
	}

	interval := time.Duration(float64(time.Second) / fastest)
	if interval < s.minIvl {
		return s.minIvl
	}
	if interval > s.maxIvl {
		return s.maxIvl
	}
	return interval
}

func sameKeys(a, b []ChannelKey) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
