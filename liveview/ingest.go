// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package liveview

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Azure/iot-telemetry-liveview/internal/log"
	"github.com/Azure/iot-telemetry-liveview/liveview/errors"
)

type (
	// WorkerState is the lifecycle state of an ingest worker.
	WorkerState int32

	// Worker owns the ingest loop for one stream at a time: it pulls lines
	// from a LineSource on a dedicated goroutine, parses them, and appends
	// the resulting samples into the store. Parse failures are counted and
	// skipped; source failures terminate the loop and are surfaced via Err
	// and the optional fatal handler. The worker never restarts itself;
	// restart policy belongs to the owner.
	Worker struct {
		store  *Store
		parser *Parser
		logger log.Logger

		onFatal func(error)

		// lifecycle serializes Start and Stop transitions; state remains
		// atomic for lock-free observation.
		lifecycle sync.Mutex
		state     atomic.Int32

		mu     sync.Mutex
		source LineSource
		cancel context.CancelFunc
		done   chan struct{}
		err    error

		lines    atomic.Uint64
		samples  atomic.Uint64
		failures atomic.Uint64
	}

	// IngestStats is a point-in-time snapshot of ingest counters.
	IngestStats struct {
		Lines         uint64
		Samples       uint64
		ParseFailures uint64
	}
)

// The worker lifecycle states. A worker moves Idle → Running → Stopping →
// Stopped and may be started again once Stopped.
const (
	Idle WorkerState = iota
	Running
	Stopping
	Stopped
)

// String returns the state name.
func (s WorkerState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// NewWorker creates an ingest worker feeding the given store.
func NewWorker(store *Store, opt ...WorkerOption) (*Worker, error) {
	var options WorkerOptions
	options.Apply(opt)

	if store == nil {
		return nil, &errors.Error{
			Message:      "store cannot be nil",
			Kind:         errors.ArgumentInvalid,
			PropertyName: "store",
		}
	}

	return &Worker{
		store:   store,
		parser:  NewParser(),
		logger:  log.Wrap(options.Logger),
		onFatal: options.OnFatal,
	}, nil
}

// State returns the current lifecycle state.
func (w *Worker) State() WorkerState {
	return WorkerState(w.state.Load())
}

// Stats returns a snapshot of the ingest counters.
func (w *Worker) Stats() IngestStats {
	return IngestStats{
		Lines:         w.lines.Load(),
		Samples:       w.samples.Load(),
		ParseFailures: w.failures.Load(),
	}
}

// Err returns the error that terminated the ingest loop, if any. It is valid
// once the worker has stopped.
func (w *Worker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Done is closed when the ingest goroutine has fully exited. It is valid
// after a successful Start and until the next one.
func (w *Worker) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done
}

// Start begins a new stream session reading from the source. The store and
// parser are reset first, so no data from a prior session survives into the
// new one's view. It fails if the worker is already running.
func (w *Worker) Start(ctx context.Context, source LineSource) error {
	if source == nil {
		return &errors.Error{
			Message:      "source cannot be nil",
			Kind:         errors.ArgumentInvalid,
			PropertyName: "source",
		}
	}

	w.lifecycle.Lock()
	defer w.lifecycle.Unlock()

	if !w.state.CompareAndSwap(int32(Idle), int32(Running)) &&
		!w.state.CompareAndSwap(int32(Stopped), int32(Running)) {
		return &errors.Error{
			Message:       "ingest worker already started",
			Kind:          errors.StateInvalid,
			PropertyName:  "State",
			PropertyValue: w.State().String(),
		}
	}

	session := w.store.Reset()
	w.parser.Reset()
	w.lines.Store(0)
	w.samples.Store(0)
	w.failures.Store(0)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	w.mu.Lock()
	w.source = source
	w.cancel = cancel
	w.done = done
	w.err = nil
	w.mu.Unlock()

	w.logger.Info(ctx, "ingest started",
		slog.String("session_id", session.String()))

	go w.run(runCtx, source, done, cancel)
	return nil
}

// Stop ends the session: it signals cancellation, closes the source so a
// blocked read unblocks deterministically, and waits for the ingest
// goroutine to exit. It is idempotent and safe to call repeatedly; calls
// before Start are no-ops.
func (w *Worker) Stop() {
	w.lifecycle.Lock()
	defer w.lifecycle.Unlock()

	w.mu.Lock()
	cancel := w.cancel
	source := w.source
	done := w.done
	w.mu.Unlock()

	if done == nil {
		return
	}

	if w.state.CompareAndSwap(int32(Running), int32(Stopping)) {
		cancel()

		// Closing the source is what actually unblocks a pending read;
		// relying on the context alone would leave the transport orphaned.
		if err := source.Close(); err != nil {
			w.logger.Err(
				context.Background(),
				errors.Normalize(err, "source close"),
			)
		}
	}

	<-done
	w.state.Store(int32(Stopped))
}

func (w *Worker) run(
	ctx context.Context,
	source LineSource,
	done chan struct{},
	cancel context.CancelFunc,
) {
	defer close(done)
	defer cancel()

	sawData := false
	for {
		line, err := source.ReadLine(ctx)
		if err != nil {
			w.finish(ctx, source, err)
			return
		}
		if len(line) == 0 {
			continue
		}
		w.lines.Add(1)

		// Header lines may only precede data.
		if !sawData {
			if info, ok := w.parser.ParseHeader(line); ok {
				w.store.SetStreamInfo(info)
				w.logger.Info(ctx, "stream header",
					slog.Float64("sample_rate_hz", info.SampleRateHz),
					slog.Int("decimation", info.Decimation))
				continue
			}
		}

		samples, err := w.parser.Parse(line)
		if err != nil {
			w.failures.Add(1)
			w.logger.Err(ctx, err)
			continue
		}
		sawData = true

		for _, sample := range samples {
			w.store.Append(sample)
		}
		w.samples.Add(uint64(len(samples)))
	}
}

// finish records the loop outcome. A read failure during cooperative
// shutdown is a clean exit, not an ingest error. The loop may also end here
// because the Start context was cancelled without a Stop call; the teardown
// obligations are the same either way.
func (w *Worker) finish(ctx context.Context, source LineSource, err error) {
	stopping := WorkerState(w.state.Load()) != Running || ctx.Err() != nil

	// The transport is done on every exit path; Close is idempotent, so
	// racing with Stop's own close is safe.
	_ = source.Close()

	if stopping {
		w.state.Store(int32(Stopped))
		w.logger.Info(ctx, "ingest stopped",
			slog.Uint64("samples", w.samples.Load()),
			slog.Uint64("parse_failures", w.failures.Load()))
		return
	}

	fatal := &errors.Error{
		Message:     "source read failed",
		Kind:        errors.SourceRead,
		NestedError: err,
	}

	w.mu.Lock()
	w.err = fatal
	w.mu.Unlock()
	w.state.Store(int32(Stopped))

	w.logger.Err(ctx, fatal)
	if w.onFatal != nil {
		w.onFatal(fatal)
	}
}
