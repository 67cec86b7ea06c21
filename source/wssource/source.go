// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package wssource feeds telemetry lines from a websocket endpoint sending
// newline-delimited JSON in text frames.
package wssource

import (
	"bytes"
	"context"
	"sync"

	"github.com/Azure/iot-telemetry-liveview/liveview/errors"
	"github.com/gorilla/websocket"
)

type (
	// Source is a line source over one websocket connection. A pump
	// goroutine owns all reads from the connection, as required by the
	// websocket package, and fans frames out line by line.
	Source struct {
		conn  *websocket.Conn
		lines chan []byte

		closeOnce sync.Once
		closed    chan struct{}

		mu  sync.Mutex
		err error
	}
)

// Dial connects to the websocket endpoint. The context bounds the handshake
// only.
func Dial(ctx context.Context, url string) (*Source, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Normalize(err, "websocket dial")
	}

	s := &Source{
		conn:   conn,
		lines:  make(chan []byte),
		closed: make(chan struct{}),
	}
	go s.pump()
	return s, nil
}

func (s *Source) pump() {
	defer close(s.lines)

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			return
		}

		for _, line := range bytes.Split(frame, []byte{'\n'}) {
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			select {
			case s.lines <- append([]byte(nil), line...):
			case <-s.closed:
				return
			}
		}
	}
}

// ReadLine returns the next line from the connection.
func (s *Source) ReadLine(ctx context.Context) ([]byte, error) {
	select {
	case line, ok := <-s.lines:
		if !ok {
			return nil, s.readErr()
		}
		return line, nil

	case <-s.closed:
		return nil, &errors.Error{
			Message: "source closed",
			Kind:    errors.SourceClosed,
		}

	case <-ctx.Done():
		return nil, errors.Context(ctx, "line read")
	}
}

func (s *Source) readErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.closed:
		return &errors.Error{
			Message: "source closed",
			Kind:    errors.SourceClosed,
		}
	default:
	}

	if websocket.IsCloseError(s.err, websocket.CloseNormalClosure) {
		return &errors.Error{
			Message:     "end of stream",
			Kind:        errors.SourceClosed,
			NestedError: s.err,
		}
	}
	return &errors.Error{
		Message:     "websocket read failed",
		Kind:        errors.SourceRead,
		NestedError: s.err,
	}
}

// Close closes the connection, unblocking the pump and any pending
// ReadLine. Safe to call repeatedly.
func (s *Source) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.conn.Close()
	})
	return err
}
