// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package liveview

import (
	"log/slog"
	"time"

	"github.com/Azure/iot-telemetry-liveview/internal"
)

type (
	// Option represents any liveview option.
	Option interface{ option() }

	// StoreOption represents a single store option.
	StoreOption interface {
		store(*StoreOptions)
	}

	// StoreOptions are the resolved store options.
	StoreOptions struct {
		Capacity       int
		RateHistory    int
		StaleThreshold time.Duration
		Logger         *slog.Logger
	}

	// WorkerOption represents a single ingest worker option.
	WorkerOption interface {
		worker(*WorkerOptions)
	}

	// WorkerOptions are the resolved ingest worker options.
	WorkerOptions struct {
		Logger *slog.Logger

		// OnFatal, if set, is called from the ingest goroutine when the loop
		// terminates on a source failure.
		OnFatal func(error)
	}

	// SchedulerOption represents a single render scheduler option.
	SchedulerOption interface {
		scheduler(*SchedulerOptions)
	}

	// SchedulerOptions are the resolved render scheduler options.
	SchedulerOptions struct {
		WindowSeconds float64
		MaxPoints     int
		Mode          DecimationMode

		// Fixed refresh interval; ignored when Adaptive is set.
		Interval time.Duration

		// Adaptive derives the interval from the measured rate, clamped to
		// [MinInterval, MaxInterval].
		Adaptive    bool
		MinInterval time.Duration
		MaxInterval time.Duration

		// Slack lets the renderer draw slightly behind the latest sample to
		// absorb short network jitter.
		Slack time.Duration

		Logger *slog.Logger
	}

	// WithCapacity sets the per-channel ring capacity.
	WithCapacity int

	// WithRateHistory sets the number of timestamps retained per channel for
	// rate estimation.
	WithRateHistory int

	// WithStaleThreshold sets the arrival gap after which a channel is
	// reported stale.
	WithStaleThreshold time.Duration

	// WithWindow sets the render lookback in seconds of sample time.
	WithWindow float64

	// WithMaxPoints bounds the number of points per rendered trace.
	WithMaxPoints int

	// WithDecimation selects the display decimation mode.
	WithDecimation DecimationMode

	// WithRefreshInterval sets a fixed render tick interval.
	WithRefreshInterval time.Duration

	// WithAdaptiveRefresh derives the render interval from the measured
	// sample rate, clamped to the given bounds.
	WithAdaptiveRefresh struct {
		Min time.Duration
		Max time.Duration
	}

	// WithDisplaySlack sets the bounded display-lag slack.
	WithDisplaySlack time.Duration

	// WithFatalHandler registers a callback for ingest-fatal errors.
	WithFatalHandler func(error)

	// This option is not used directly; see WithLogger below.
	withLogger struct{ *slog.Logger }
)

func (o WithCapacity) store(opt *StoreOptions) {
	opt.Capacity = int(o)
}

func (WithCapacity) option() {}

func (o WithRateHistory) store(opt *StoreOptions) {
	opt.RateHistory = int(o)
}

func (WithRateHistory) option() {}

func (o WithStaleThreshold) store(opt *StoreOptions) {
	opt.StaleThreshold = time.Duration(o)
}

func (WithStaleThreshold) option() {}

func (o WithWindow) scheduler(opt *SchedulerOptions) {
	opt.WindowSeconds = float64(o)
}

func (WithWindow) option() {}

func (o WithMaxPoints) scheduler(opt *SchedulerOptions) {
	opt.MaxPoints = int(o)
}

func (WithMaxPoints) option() {}

func (o WithDecimation) scheduler(opt *SchedulerOptions) {
	opt.Mode = DecimationMode(o)
}

func (WithDecimation) option() {}

func (o WithRefreshInterval) scheduler(opt *SchedulerOptions) {
	opt.Adaptive = false
	opt.Interval = time.Duration(o)
}

func (WithRefreshInterval) option() {}

func (o WithAdaptiveRefresh) scheduler(opt *SchedulerOptions) {
	opt.Adaptive = true
	opt.MinInterval = o.Min
	opt.MaxInterval = o.Max
}

func (WithAdaptiveRefresh) option() {}

func (o WithDisplaySlack) scheduler(opt *SchedulerOptions) {
	opt.Slack = time.Duration(o)
}

func (WithDisplaySlack) option() {}

func (o WithFatalHandler) worker(opt *WorkerOptions) {
	opt.OnFatal = o
}

func (WithFatalHandler) option() {}

func (o withLogger) store(opt *StoreOptions) {
	opt.Logger = o.Logger
}

func (o withLogger) worker(opt *WorkerOptions) {
	opt.Logger = o.Logger
}

func (o withLogger) scheduler(opt *SchedulerOptions) {
	opt.Logger = o.Logger
}

func (withLogger) option() {}

// WithLogger enables logging with the provided slog logger.
func WithLogger(logger *slog.Logger) interface {
	Option
	StoreOption
	WorkerOption
	SchedulerOption
} {
	return withLogger{logger}
}

// Apply resolves the provided list of options.
func (o *StoreOptions) Apply(opts []StoreOption, rest ...StoreOption) {
	for opt := range internal.Apply[StoreOption](opts, rest...) {
		opt.store(o)
	}
}

// ApplyOptions filters and resolves the provided list of options.
func (o *StoreOptions) ApplyOptions(opts []Option, rest ...Option) {
	for opt := range internal.Apply[StoreOption](opts, rest...) {
		opt.store(o)
	}
}

func (o *StoreOptions) store(opt *StoreOptions) {
	if o != nil {
		*opt = *o
	}
}

func (*StoreOptions) option() {}

// Apply resolves the provided list of options.
func (o *WorkerOptions) Apply(opts []WorkerOption, rest ...WorkerOption) {
	for opt := range internal.Apply[WorkerOption](opts, rest...) {
		opt.worker(o)
	}
}

// ApplyOptions filters and resolves the provided list of options.
func (o *WorkerOptions) ApplyOptions(opts []Option, rest ...Option) {
	for opt := range internal.Apply[WorkerOption](opts, rest...) {
		opt.worker(o)
	}
}

func (o *WorkerOptions) worker(opt *WorkerOptions) {
	if o != nil {
		*opt = *o
	}
}

func (*WorkerOptions) option() {}

// Apply resolves the provided list of options.
func (o *SchedulerOptions) Apply(
	opts []SchedulerOption,
	rest ...SchedulerOption,
) {
	for opt := range internal.Apply[SchedulerOption](opts, rest...) {
		opt.scheduler(o)
	}
}

// ApplyOptions filters and resolves the provided list of options.
func (o *SchedulerOptions) ApplyOptions(opts []Option, rest ...Option) {
	for opt := range internal.Apply[SchedulerOption](opts, rest...) {
		opt.scheduler(o)
	}
}

func (o *SchedulerOptions) scheduler(opt *SchedulerOptions) {
	if o != nil {
		*opt = *o
	}
}

func (*SchedulerOptions) option() {}
