// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package liveview_test

import (
	"testing"
	"time"

	"github.com/Azure/iot-telemetry-liveview/liveview"
	"github.com/stretchr/testify/require"
)

func TestStalenessEdge(t *testing.T) {
	clock := installTestClock(t)

	monitor := liveview.NewStalenessMonitor(2 * time.Second)
	key := liveview.ChannelKey{SensorID: 1, Channel: "ch"}

	monitor.Observe(key)
	require.False(t, monitor.IsStale(key))

	// Stale exactly once elapsed time crosses the threshold, not before.
	clock.Advance(2 * time.Second)
	require.False(t, monitor.IsStale(key))

	clock.Advance(time.Millisecond)
	require.True(t, monitor.IsStale(key))

	// Remains stale until the next sample arrives.
	clock.Advance(time.Minute)
	require.True(t, monitor.IsStale(key))

	monitor.Observe(key)
	require.False(t, monitor.IsStale(key))
}

func TestStalenessUnknownChannel(t *testing.T) {
	installTestClock(t)

	monitor := liveview.NewStalenessMonitor(0)
	require.True(t, monitor.IsStale(liveview.ChannelKey{Channel: "never"}))
}

func TestStalenessLastArrival(t *testing.T) {
	clock := installTestClock(t)

	monitor := liveview.NewStalenessMonitor(0)
	key := liveview.ChannelKey{Channel: "ch"}

	_, ok := monitor.LastArrival(key)
	require.False(t, ok)

	monitor.Observe(key)
	last, ok := monitor.LastArrival(key)
	require.True(t, ok)
	require.Equal(t, clock.Now(), last)
}

func TestStalenessClear(t *testing.T) {
	installTestClock(t)

	monitor := liveview.NewStalenessMonitor(0)
	key := liveview.ChannelKey{Channel: "ch"}

	monitor.Observe(key)
	monitor.Clear()
	require.True(t, monitor.IsStale(key))
}
