// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package source_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/Azure/iot-telemetry-liveview/liveview/errors"
	"github.com/Azure/iot-telemetry-liveview/source"
	"github.com/stretchr/testify/require"
)

func TestReaderDeliversLines(t *testing.T) {
	ctx := context.Background()
	r := source.NewReader(io.NopCloser(strings.NewReader("one\ntwo\nthree\n")))
	defer r.Close()

	for _, want := range []string{"one", "two", "three"} {
		line, err := r.ReadLine(ctx)
		require.NoError(t, err)
		require.Equal(t, want, string(line))
	}

	// End of stream surfaces as a source-closed error.
	_, err := r.ReadLine(ctx)
	require.Error(t, err)

	var e *errors.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, errors.SourceClosed, e.Kind)
}

func TestReaderCloseUnblocksRead(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	r := source.NewReader(pr)

	read := make(chan error, 1)
	go func() {
		_, err := r.ReadLine(context.Background())
		read <- err
	}()

	// The read is pending on the pipe; Close must unblock it promptly.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, r.Close())

	select {
	case err := <-read:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("ReadLine did not unblock after Close")
	}

	// Close is idempotent.
	require.NoError(t, r.Close())
}

func TestReaderContextCancellation(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	r := source.NewReader(pr)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.ReadLine(ctx)
	require.Error(t, err)
}
