// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package source provides reference LineSource implementations: an adapter
// over any io.ReadCloser and a synthetic waveform generator. Broker-fed
// transports live in the mqttsource and wssource subpackages.
package source

import (
	"bufio"
	"context"
	"io"
	"sync"

	"github.com/Azure/iot-telemetry-liveview/liveview/errors"
)

type (
	// Reader adapts a stream of newline-delimited text (remote-process
	// stdout, a pipe, a file) into a line source. A dedicated goroutine
	// pumps lines into a channel so ReadLine can honor both context
	// cancellation and Close.
	Reader struct {
		rc    io.ReadCloser
		lines chan []byte

		closeOnce sync.Once
		closed    chan struct{}

		mu  sync.Mutex
		err error
	}
)

// Lines above this size are malformed by any reasonable device; the pump
// fails rather than buffering without bound.
const maxLineSize = 1 << 20

// NewReader wraps the read closer. Ownership transfers: closing the source
// closes the underlying stream.
func NewReader(rc io.ReadCloser) *Reader {
	r := &Reader{
		rc:     rc,
		lines:  make(chan []byte),
		closed: make(chan struct{}),
	}
	go r.pump()
	return r
}

func (r *Reader) pump() {
	defer close(r.lines)

	scanner := bufio.NewScanner(r.rc)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := append([]byte(nil), scanner.Bytes()...)
		select {
		case r.lines <- line:
		case <-r.closed:
			return
		}
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

// ReadLine returns the next line from the stream.
func (r *Reader) ReadLine(ctx context.Context) ([]byte, error) {
	select {
	case line, ok := <-r.lines:
		if !ok {
			return nil, r.readErr()
		}
		return line, nil

	case <-r.closed:
		return nil, &errors.Error{
			Message: "source closed",
			Kind:    errors.SourceClosed,
		}

	case <-ctx.Done():
		return nil, errors.Context(ctx, "line read")
	}
}

func (r *Reader) readErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	select {
	case <-r.closed:
		return &errors.Error{
			Message: "source closed",
			Kind:    errors.SourceClosed,
		}
	default:
	}

	if r.err == io.EOF {
		return &errors.Error{
			Message:     "end of stream",
			Kind:        errors.SourceClosed,
			NestedError: io.EOF,
		}
	}
	return &errors.Error{
		Message:     "stream read failed",
		Kind:        errors.SourceRead,
		NestedError: r.err,
	}
}

// Close closes the underlying stream, unblocking the pump and any pending
// ReadLine. Safe to call repeatedly and from any goroutine.
func (r *Reader) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.closed)
		err = r.rc.Close()
	})
	return err
}
