// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package liveview_test

import (
	"testing"

	"github.com/Azure/iot-telemetry-liveview/liveview"
	"github.com/stretchr/testify/require"
)

// High-rate windowing scenario: 1000 samples at a simulated 500 Hz into a
// capacity-1000 buffer, a 2 s window, and mean decimation to 200 points.
func TestStoreHighRateWindow(t *testing.T) {
	store, err := liveview.NewStore(liveview.WithCapacity(1000))
	require.NoError(t, err)

	const hz = 500.0
	key := liveview.ChannelKey{SensorID: 1, Channel: "accel_x"}

	for i := 0; i < 1000; i++ {
		store.Append(liveview.Sample{
			Timestamp: float64(i) / hz,
			SensorID:  1,
			Channel:   "accel_x",
			Value:     float64(i),
		})
	}

	times, values := store.Window(key, 2)
	require.Len(t, times, 1000)

	require.InEpsilon(t, hz, store.Hz(key), 0.01)

	dt, dv, err := liveview.Decimate(times, values, 200, liveview.Mean)
	require.NoError(t, err)
	require.Len(t, dv, 200)
	require.Len(t, dt, 200)
}

func TestStoreKeysStableOrder(t *testing.T) {
	store, err := liveview.NewStore()
	require.NoError(t, err)

	store.Append(liveview.Sample{SensorID: 2, Channel: "b", Value: 1})
	store.Append(liveview.Sample{SensorID: 1, Channel: "z", Value: 1})
	store.Append(liveview.Sample{SensorID: 1, Channel: "a", Value: 1})

	require.Equal(t, []liveview.ChannelKey{
		{SensorID: 1, Channel: "a"},
		{SensorID: 1, Channel: "z"},
		{SensorID: 2, Channel: "b"},
	}, store.Keys())
}

func TestStoreUnknownChannelWindow(t *testing.T) {
	store, err := liveview.NewStore()
	require.NoError(t, err)

	times, values := store.Window(liveview.ChannelKey{Channel: "none"}, 1)
	require.Empty(t, times)
	require.Empty(t, values)
}

func TestStoreCapacityValidation(t *testing.T) {
	_, err := liveview.NewStore(liveview.WithCapacity(-1))
	require.Error(t, err)
}

func TestStoreStreamInfo(t *testing.T) {
	store, err := liveview.NewStore()
	require.NoError(t, err)

	_, ok := store.StreamInfo()
	require.False(t, ok)

	store.SetStreamInfo(liveview.StreamInfo{SampleRateHz: 800, Decimation: 2})
	info, ok := store.StreamInfo()
	require.True(t, ok)
	require.Equal(t, 800.0, info.SampleRateHz)
}

func TestStoreResetStartsCleanSession(t *testing.T) {
	store, err := liveview.NewStore()
	require.NoError(t, err)

	key := liveview.ChannelKey{SensorID: 1, Channel: "ch"}
	store.Append(liveview.Sample{Timestamp: 1, SensorID: 1, Channel: "ch", Value: 5})
	store.SetStreamInfo(liveview.StreamInfo{SampleRateHz: 100})

	first := store.SessionID()
	second := store.Reset()
	require.NotEqual(t, first, second)
	require.Equal(t, second, store.SessionID())

	require.Empty(t, store.Keys())
	times, _ := store.Window(key, 10)
	require.Empty(t, times)
	require.Equal(t, 0.0, store.Hz(key))

	_, ok := store.StreamInfo()
	require.False(t, ok)
}
