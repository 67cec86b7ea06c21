// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package source

import (
	"context"
	"encoding/json"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Azure/iot-telemetry-liveview/internal/wallclock"
	"github.com/Azure/iot-telemetry-liveview/liveview/errors"
)

type (
	// Simulator is a synthetic line source: it emits one header line and
	// then JSON sample lines at the configured rate, each carrying a phased
	// sine wave plus noise per channel with an occasional spike. Useful for
	// demos and for exercising the ingest path without a device.
	Simulator struct {
		sensor   uint32
		channels []string
		rate     float64
		interval time.Duration

		n      uint64
		rng    *rand.Rand
		header bool

		closeOnce sync.Once
		closed    chan struct{}
	}
)

// Spike shape: roughly one sample in a thousand jumps well outside the
// waveform so envelope decimation has something to preserve.
const (
	spikeChance    = 0.001
	spikeMagnitude = 5.0
)

// NewSimulator creates a simulator for one sensor emitting the named
// channels at the given rate.
func NewSimulator(sensor uint32, channels []string, hz float64) (*Simulator, error) {
	if hz <= 0 {
		return nil, &errors.Error{
			Message:       "simulated rate must be positive",
			Kind:          errors.ConfigurationInvalid,
			PropertyName:  "Hz",
			PropertyValue: hz,
		}
	}
	if len(channels) == 0 {
		return nil, &errors.Error{
			Message:      "at least one channel is required",
			Kind:         errors.ConfigurationInvalid,
			PropertyName: "Channels",
		}
	}

	return &Simulator{
		sensor:   sensor,
		channels: channels,
		rate:     hz,
		interval: time.Duration(float64(time.Second) / hz),
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		closed:   make(chan struct{}),
	}, nil
}

// ReadLine produces the next line, pacing itself to the configured rate.
func (s *Simulator) ReadLine(ctx context.Context) ([]byte, error) {
	select {
	case <-s.closed:
		return nil, &errors.Error{
			Message: "source closed",
			Kind:    errors.SourceClosed,
		}
	case <-ctx.Done():
		return nil, errors.Context(ctx, "line read")
	default:
	}

	if !s.header {
		s.header = true
		line, _ := json.Marshal(map[string]any{
			"sample_rate_hz": s.rate,
			"decimation":     1,
		})
		return line, nil
	}

	timer := wallclock.Instance.NewTimer(s.interval)
	defer timer.Stop()
	select {
	case <-timer.C():
	case <-s.closed:
		return nil, &errors.Error{
			Message: "source closed",
			Kind:    errors.SourceClosed,
		}
	case <-ctx.Done():
		return nil, errors.Context(ctx, "line read")
	}

	t := float64(s.n) / s.rate
	s.n++

	fields := map[string]any{
		"t_s":       t,
		"sensor_id": s.sensor,
	}
	for i, name := range s.channels {
		phase := float64(i) * math.Pi / 4
		value := math.Sin(2*math.Pi*t+phase) + s.rng.NormFloat64()*0.05
		if s.rng.Float64() < spikeChance {
			value += spikeMagnitude
		}
		fields[name] = value
	}

	return json.Marshal(fields)
}

// Close stops the simulator, unblocking any pending ReadLine.
func (s *Simulator) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}
