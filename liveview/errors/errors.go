// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package errors

import "time"

type (
	// Error represents a structured liveview error.
	Error struct {
		Message string
		Kind    Kind

		NestedError error

		FieldName  string
		FieldValue string

		TimeoutName  string
		TimeoutValue time.Duration

		PropertyName  string
		PropertyValue any
	}

	// Kind defines the type of error being thrown.
	Kind int
)

// The following are the defined error kinds.
const (
	// Per-line ingest failures; recovered by skipping the line.
	PayloadMalformed Kind = iota
	TimestampMissing

	// Ingest-fatal failures; terminate the ingest loop.
	SourceClosed
	SourceRead

	// Construction-time failures; fail fast, never mid-stream.
	ConfigurationInvalid
	ArgumentInvalid
	StateInvalid

	Timeout
	Cancellation
	UnknownError
)

// Error returns the error as a string.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the nested error, if any.
func (e *Error) Unwrap() error {
	return e.NestedError
}

// Recoverable indicates whether the ingest loop may continue past this error.
func (e *Error) Recoverable() bool {
	return e.Kind == PayloadMalformed || e.Kind == TimestampMissing
}
