// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package liveview

import "fmt"

type (
	// Sample is a single typed telemetry point on one channel.
	Sample struct {
		// Timestamp is in session-relative seconds. Timestamps are expected
		// to be non-decreasing per channel, but minor jitter is tolerated.
		Timestamp float64

		SensorID uint32
		Channel  string
		Value    float64
	}

	// ChannelKey identifies one logical time series. All per-channel state is
	// keyed by it.
	ChannelKey struct {
		SensorID uint32
		Channel  string
	}

	// StreamInfo carries the optional one-time header advertised by a device
	// ahead of its data lines. It is not a sample.
	StreamInfo struct {
		SampleRateHz float64
		Decimation   int
	}
)

// Key returns the channel key for the sample.
func (s Sample) Key() ChannelKey {
	return ChannelKey{SensorID: s.SensorID, Channel: s.Channel}
}

// String renders the key as "sensor/channel" for logs and status readouts.
func (k ChannelKey) String() string {
	return fmt.Sprintf("%d/%s", k.SensorID, k.Channel)
}
