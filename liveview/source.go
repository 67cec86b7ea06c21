// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package liveview

import "context"

type (
	// LineSource represents the transport supplying raw telemetry lines. The
	// core depends only on this interface; concrete transports (simulated,
	// remote-process, broker-fed) live in the source packages.
	LineSource interface {
		// ReadLine blocks until the next UTF-8 text line is available, the
		// context is done, or the source is closed. End of stream and reads
		// after Close return an error.
		ReadLine(ctx context.Context) ([]byte, error)

		// Close releases the underlying transport and unblocks any pending
		// ReadLine within a bounded time. It must be safe to call from a
		// goroutine other than the reader, and to call repeatedly.
		Close() error
	}
)
