// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package wssource_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Azure/iot-telemetry-liveview/liveview/errors"
	"github.com/Azure/iot-telemetry-liveview/source/wssource"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// serve starts a websocket server that hands each connection to feed.
func serve(t *testing.T, feed func(*websocket.Conn)) string {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			defer conn.Close()
			feed(conn)
		},
	))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWSSourceDeliversLines(t *testing.T) {
	ctx := context.Background()
	url := serve(t, func(conn *websocket.Conn) {
		// One line per frame, then a multi-line frame.
		err := conn.WriteMessage(websocket.TextMessage, []byte(`{"t_s":0.0,"x":1}`))
		require.NoError(t, err)
		err = conn.WriteMessage(
			websocket.TextMessage,
			[]byte("{\"t_s\":0.1,\"x\":2}\n{\"t_s\":0.2,\"x\":3}\n"),
		)
		require.NoError(t, err)

		// Hold the connection open until the client is done reading.
		_, _, _ = conn.ReadMessage()
	})

	src, err := wssource.Dial(ctx, url)
	require.NoError(t, err)
	defer src.Close()

	readCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for _, want := range []string{
		`{"t_s":0.0,"x":1}`,
		`{"t_s":0.1,"x":2}`,
		`{"t_s":0.2,"x":3}`,
	} {
		line, err := src.ReadLine(readCtx)
		require.NoError(t, err)
		require.JSONEq(t, want, string(line))
	}
}

func TestWSSourceNormalClosure(t *testing.T) {
	ctx := context.Background()
	done := make(chan struct{})
	url := serve(t, func(conn *websocket.Conn) {
		err := conn.WriteMessage(websocket.TextMessage, []byte(`{"t_s":0.0,"x":1}`))
		require.NoError(t, err)
		err = conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		require.NoError(t, err)
		<-done
	})
	defer close(done)

	src, err := wssource.Dial(ctx, url)
	require.NoError(t, err)
	defer src.Close()

	readCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	line, err := src.ReadLine(readCtx)
	require.NoError(t, err)
	require.JSONEq(t, `{"t_s":0.0,"x":1}`, string(line))

	// A clean peer close reads as end of stream, not a failure.
	_, err = src.ReadLine(readCtx)
	require.Error(t, err)

	var e *errors.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, errors.SourceClosed, e.Kind)
}

func TestWSSourceAbruptClose(t *testing.T) {
	ctx := context.Background()
	url := serve(t, func(conn *websocket.Conn) {
		// Drop the connection without a close handshake.
		_ = conn.UnderlyingConn().Close()
	})

	src, err := wssource.Dial(ctx, url)
	require.NoError(t, err)
	defer src.Close()

	readCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err = src.ReadLine(readCtx)
	require.Error(t, err)

	var e *errors.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, errors.SourceRead, e.Kind)
}

func TestWSSourceCloseUnblocksRead(t *testing.T) {
	ctx := context.Background()
	done := make(chan struct{})
	url := serve(t, func(conn *websocket.Conn) { <-done })
	defer close(done)

	src, err := wssource.Dial(ctx, url)
	require.NoError(t, err)

	read := make(chan error, 1)
	go func() {
		_, err := src.ReadLine(context.Background())
		read <- err
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, src.Close())

	select {
	case err := <-read:
		var e *errors.Error
		require.ErrorAs(t, err, &e)
		require.Equal(t, errors.SourceClosed, e.Kind)
	case <-time.After(time.Second):
		t.Fatal("ReadLine did not unblock after Close")
	}

	require.NoError(t, src.Close())
}

func TestWSSourceDialFailure(t *testing.T) {
	_, err := wssource.Dial(context.Background(), "ws://127.0.0.1:1/nope")
	require.Error(t, err)
}
