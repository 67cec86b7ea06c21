// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package liveview

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/Azure/iot-telemetry-liveview/internal/log"
	"github.com/google/uuid"
)

// DefaultCapacity bounds each channel ring when none is configured. Sized
// for a few seconds of data at high sample rates with headroom for rate
// spikes (capacity ~= window seconds * max rate * safety factor).
const DefaultCapacity = 4096

type (
	// Store owns all per-channel state for one stream session: the ring
	// buffer, rate history, and arrival tracking for every channel seen. It
	// is the query surface consumed by rendering code.
	//
	// Buffers are written only by the session's ingest loop and read via
	// bounded snapshot copies, so readers never stall the writer.
	Store struct {
		mu      sync.RWMutex
		rings   map[ChannelKey]*Ring
		session uuid.UUID
		info    StreamInfo
		hasInfo bool

		capacity int
		rate     *RateEstimator
		stale    *StalenessMonitor
		logger   log.Logger
	}
)

// NewStore creates a store with the provided options.
func NewStore(opt ...StoreOption) (*Store, error) {
	var options StoreOptions
	options.Apply(opt)

	capacity := options.Capacity
	if capacity == 0 {
		capacity = DefaultCapacity
	}

	// Validate once up front so per-channel ring creation cannot fail
	// mid-stream.
	if _, err := NewRing(capacity); err != nil {
		return nil, err
	}

	return &Store{
		rings:    make(map[ChannelKey]*Ring),
		session:  uuid.New(),
		capacity: capacity,
		rate:     NewRateEstimator(options.RateHistory),
		stale:    NewStalenessMonitor(options.StaleThreshold),
		logger:   log.Wrap(options.Logger),
	}, nil
}

// Append records one sample into its channel's ring and updates the rate and
// arrival tracking. Channels are created on first sight.
func (s *Store) Append(sample Sample) {
	key := sample.Key()

	s.mu.RLock()
	ring := s.rings[key]
	s.mu.RUnlock()

	if ring == nil {
		s.mu.Lock()
		ring = s.rings[key]
		if ring == nil {
			ring, _ = NewRing(s.capacity)
			s.rings[key] = ring
			s.logger.Debug(context.Background(), "channel added",
				slog.String("channel", key.String()))
		}
		s.mu.Unlock()
	}

	ring.Append(sample.Timestamp, sample.Value)
	s.rate.OnSample(key, sample.Timestamp)
	s.stale.Observe(key)
}

// Keys returns the channels seen this session, in stable order.
func (s *Store) Keys() []ChannelKey {
	s.mu.RLock()
	keys := make([]ChannelKey, 0, len(s.rings))
	for key := range s.rings {
		keys = append(keys, key)
	}
	s.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].SensorID != keys[j].SensorID {
			return keys[i].SensorID < keys[j].SensorID
		}
		return keys[i].Channel < keys[j].Channel
	})
	return keys
}

// Window returns the channel's points for the trailing lookback in seconds
// of sample time, oldest first. Unknown channels yield an empty window.
func (s *Store) Window(key ChannelKey, seconds float64) (times, values []float64) {
	s.mu.RLock()
	ring := s.rings[key]
	s.mu.RUnlock()

	if ring == nil {
		return nil, nil
	}
	return ring.Window(seconds)
}

// Hz returns the channel's estimated sample rate.
func (s *Store) Hz(key ChannelKey) float64 {
	return s.rate.Hz(key)
}

// IsStale reports whether the channel's feed has gone quiet.
func (s *Store) IsStale(key ChannelKey) bool {
	return s.stale.IsStale(key)
}

// SessionID identifies the current stream session.
func (s *Store) SessionID() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// SetStreamInfo records the header advertised by the device, if any.
func (s *Store) SetStreamInfo(info StreamInfo) {
	s.mu.Lock()
	s.info = info
	s.hasInfo = true
	s.mu.Unlock()
}

// StreamInfo returns the advertised header for this session, if one was seen.
func (s *Store) StreamInfo() (StreamInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info, s.hasInfo
}

// Reset clears all channel state and starts a new session, returning its ID.
// Rings are cleared rather than abandoned so no data from a prior session can
// leak into a new one's view.
func (s *Store) Reset() uuid.UUID {
	s.mu.Lock()
	for _, ring := range s.rings {
		ring.Clear()
	}
	s.rings = make(map[ChannelKey]*Ring)
	s.session = uuid.New()
	s.info = StreamInfo{}
	s.hasInfo = false
	session := s.session
	s.mu.Unlock()

	s.rate.Clear()
	s.stale.Clear()
	return session
}
