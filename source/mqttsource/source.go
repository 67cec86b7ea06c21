// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package mqttsource feeds telemetry lines from an MQTT topic. Each message
// payload carries one or more newline-delimited JSON lines.
package mqttsource

import (
	"bytes"
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Azure/iot-telemetry-liveview/liveview/errors"
	"github.com/eclipse/paho.golang/paho"
)

type (
	// Source is a line source backed by a paho MQTT v5 client subscribed to
	// a single topic. Messages are split into lines and buffered; when the
	// buffer is full, new lines are dropped and counted rather than
	// blocking the client's receive path. Loss under overload is bounded
	// and deliberate.
	Source struct {
		client *paho.Client
		conn   net.Conn
		topic  string
		lines  chan []byte

		dropped atomic.Uint64

		closeOnce sync.Once
		closed    chan struct{}
	}
)

const (
	// Incoming lines buffered ahead of the ingest loop. Sized for a short
	// burst at high sample rates.
	lineBuffer = 4096

	// Upper bound on the unsubscribe/disconnect handshake during Close. A
	// broker that stops acking must not hold up worker teardown; past this
	// the TCP close tears the session down regardless.
	closeTimeout = 3 * time.Second
)

// Connect dials the MQTT server, subscribes to the topic at QoS 0, and
// returns the source. The context bounds connection establishment only.
func Connect(
	ctx context.Context,
	server, clientID, topic string,
) (*Source, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", server)
	if err != nil {
		return nil, errors.Normalize(err, "mqtt dial")
	}

	s := &Source{
		conn:   conn,
		topic:  topic,
		lines:  make(chan []byte, lineBuffer),
		closed: make(chan struct{}),
	}

	s.client = paho.NewClient(paho.ClientConfig{
		ClientID: clientID,
		Conn:     conn,
		OnPublishReceived: []func(paho.PublishReceived) (bool, error){
			func(pub paho.PublishReceived) (bool, error) {
				s.receive(pub.Packet.Payload)
				return true, nil
			},
		},
	})

	if _, err := s.client.Connect(ctx, &paho.Connect{
		ClientID:  clientID,
		KeepAlive: 30,
	}); err != nil {
		_ = conn.Close()
		return nil, errors.Normalize(err, "mqtt connect")
	}

	if _, err := s.client.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: topic}},
	}); err != nil {
		_ = s.client.Disconnect(&paho.Disconnect{})
		return nil, errors.Normalize(err, "mqtt subscribe")
	}

	return s, nil
}

// receive splits a payload into lines and buffers them, dropping on
// overflow so the client's receive path never blocks.
func (s *Source) receive(payload []byte) {
	for _, line := range bytes.Split(payload, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		select {
		case s.lines <- append([]byte(nil), line...):
		default:
			s.dropped.Add(1)
		}
	}
}

// ReadLine returns the next buffered line.
func (s *Source) ReadLine(ctx context.Context) ([]byte, error) {
	select {
	case line := <-s.lines:
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

// Dropped returns the number of lines discarded due to buffer overflow.
func (s *Source) Dropped() uint64 {
	return s.dropped.Load()
}

// Close unsubscribes, disconnects, and unblocks any pending ReadLine. The
// clean handshake is best-effort and bounded; the connection is torn down
// either way, so Close returns promptly even against a dead broker. Safe to
// call repeatedly.
func (s *Source) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)

		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()

		if _, e := s.client.Unsubscribe(ctx, &paho.Unsubscribe{
			Topics: []string{s.topic},
		}); e != nil {
			err = e
		}
		if e := s.client.Disconnect(&paho.Disconnect{}); e != nil && err == nil {
			err = e
		}
		_ = s.conn.Close()
	})
	return err
}
