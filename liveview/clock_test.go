// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package liveview_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Azure/iot-telemetry-liveview/internal/wallclock"
)

type (
	// testClock interposes on the wallclock so tests can control apparent
	// time. Timer and ticker calls fall through to real time; the staleness
	// and session tests only steer Now.
	testClock struct {
		mu  sync.Mutex
		now time.Time
	}
)

func installTestClock(t *testing.T) *testClock {
	t.Helper()

	clock := &testClock{now: time.Unix(1700000000, 0)}
	previous := wallclock.Instance
	wallclock.Instance = clock
	t.Cleanup(func() { wallclock.Instance = previous })
	return clock
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *testClock) WithTimeoutCause(
	parent context.Context,
	timeout time.Duration,
	cause error,
) (context.Context, context.CancelFunc) {
	return context.WithTimeoutCause(parent, timeout, cause)
}

func (c *testClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

func (c *testClock) NewTimer(d time.Duration) wallclock.Timer {
	return realTimer{time.NewTimer(d)}
}

func (c *testClock) NewTicker(d time.Duration) wallclock.Ticker {
	return realTicker{time.NewTicker(d)}
}

type realTimer struct{ *time.Timer }

func (t realTimer) C() <-chan time.Time { return t.Timer.C }

type realTicker struct{ *time.Ticker }

func (t realTicker) C() <-chan time.Time { return t.Ticker.C }
