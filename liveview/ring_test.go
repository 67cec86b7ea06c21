// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package liveview_test

import (
	"testing"

	"github.com/Azure/iot-telemetry-liveview/liveview"
	"github.com/Azure/iot-telemetry-liveview/liveview/errors"
	"github.com/stretchr/testify/require"
)

func TestRingRetention(t *testing.T) {
	const capacity = 8
	const appends = 20

	ring, err := liveview.NewRing(capacity)
	require.NoError(t, err)

	for i := 0; i < appends; i++ {
		ring.Append(float64(i), float64(i)*10)
	}

	require.Equal(t, capacity, ring.Len())

	times, values := ring.Snapshot()
	require.Len(t, times, capacity)

	// After N > C appends the oldest retained element is element N - C.
	require.Equal(t, float64(appends-capacity), times[0])
	require.Equal(t, float64(appends-1), times[capacity-1])
	require.Equal(t, float64(appends-1)*10, values[capacity-1])
}

func TestRingPartialFill(t *testing.T) {
	ring, err := liveview.NewRing(16)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		ring.Append(float64(i), 0)
	}

	require.Equal(t, 5, ring.Len())
	times, _ := ring.Snapshot()
	require.Equal(t, []float64{0, 1, 2, 3, 4}, times)
}

func TestRingCapacityValidation(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		_, err := liveview.NewRing(capacity)
		require.Error(t, err)

		var e *errors.Error
		require.ErrorAs(t, err, &e)
		require.Equal(t, errors.ConfigurationInvalid, e.Kind)
	}
}

func TestRingWindow(t *testing.T) {
	ring, err := liveview.NewRing(100)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		ring.Append(float64(i)*0.1, float64(i))
	}

	// Newest point is at t=9.9; a 0.5 s lookback keeps t >= 9.4.
	times, values := ring.Window(0.5)
	require.Len(t, times, 6)
	require.InDelta(t, 9.4, times[0], 1e-9)
	require.InDelta(t, 9.9, times[len(times)-1], 1e-9)
	require.Equal(t, float64(99), values[len(values)-1])
}

func TestRingWindowEmpty(t *testing.T) {
	ring, err := liveview.NewRing(4)
	require.NoError(t, err)

	times, values := ring.Window(1)
	require.Empty(t, times)
	require.Empty(t, values)
}

func TestRingClear(t *testing.T) {
	ring, err := liveview.NewRing(4)
	require.NoError(t, err)

	ring.Append(1, 1)
	ring.Append(2, 2)
	ring.Clear()

	require.Equal(t, 0, ring.Len())
	times, _ := ring.Snapshot()
	require.Empty(t, times)

	// The ring remains usable after a clear.
	ring.Append(3, 3)
	times, _ = ring.Snapshot()
	require.Equal(t, []float64{3}, times)
}
