// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package liveview_test

import (
	"testing"

	"github.com/Azure/iot-telemetry-liveview/liveview"
	"github.com/Azure/iot-telemetry-liveview/liveview/errors"
	"github.com/stretchr/testify/require"
)

func TestAggregatorBlock(t *testing.T) {
	agg, err := liveview.NewAggregator(4, liveview.Block, 0)
	require.NoError(t, err)

	for _, v := range []float64{1, 2, 3} {
		_, ok := agg.Push(v)
		require.False(t, ok)
	}

	out, ok := agg.Push(4)
	require.True(t, ok)
	require.Equal(t, 2.5, out)

	// The next block starts fresh.
	_, ok = agg.Push(10)
	require.False(t, ok)
}

func TestAggregatorSliding(t *testing.T) {
	agg, err := liveview.NewAggregator(3, liveview.Sliding, 0)
	require.NoError(t, err)

	out, ok := agg.Push(3)
	require.True(t, ok)
	require.Equal(t, 3.0, out)

	out, ok = agg.Push(6)
	require.True(t, ok)
	require.Equal(t, 4.5, out)

	out, ok = agg.Push(9)
	require.True(t, ok)
	require.Equal(t, 6.0, out)

	// Window is full; the oldest value falls out.
	out, ok = agg.Push(12)
	require.True(t, ok)
	require.Equal(t, 9.0, out)
}

func TestAggregatorSmoothing(t *testing.T) {
	agg, err := liveview.NewAggregator(1, liveview.Block, 0.5)
	require.NoError(t, err)

	// First output seeds the smoother.
	out, ok := agg.Push(10)
	require.True(t, ok)
	require.Equal(t, 10.0, out)

	// y += alpha*(x - y)
	out, ok = agg.Push(20)
	require.True(t, ok)
	require.Equal(t, 15.0, out)

	out, ok = agg.Push(20)
	require.True(t, ok)
	require.Equal(t, 17.5, out)
}

func TestAggregatorReset(t *testing.T) {
	agg, err := liveview.NewAggregator(2, liveview.Block, 0.5)
	require.NoError(t, err)

	_, ok := agg.Push(1)
	require.False(t, ok)

	agg.Reset()

	// Block progress and smoother state are both gone.
	_, ok = agg.Push(100)
	require.False(t, ok)
	out, ok := agg.Push(100)
	require.True(t, ok)
	require.Equal(t, 100.0, out)
}

func TestAggregatorStatePersistsAcrossCalls(t *testing.T) {
	agg, err := liveview.NewAggregator(3, liveview.Block, 0)
	require.NoError(t, err)

	// No other call resets progress implicitly.
	_, ok := agg.Push(1)
	require.False(t, ok)
	_, ok = agg.Push(2)
	require.False(t, ok)

	out, ok := agg.Push(3)
	require.True(t, ok)
	require.Equal(t, 2.0, out)
}

func TestAggregatorValidation(t *testing.T) {
	_, err := liveview.NewAggregator(0, liveview.Block, 0)
	require.Error(t, err)

	for _, alpha := range []float64{-0.1, 1.1} {
		_, err := liveview.NewAggregator(4, liveview.Block, alpha)
		require.Error(t, err)

		var e *errors.Error
		require.ErrorAs(t, err, &e)
		require.Equal(t, errors.ConfigurationInvalid, e.Kind)
	}

	// Alpha of exactly 1 is a valid, smoothing-free edge.
	_, err = liveview.NewAggregator(4, liveview.Block, 1)
	require.NoError(t, err)
}
