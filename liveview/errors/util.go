package errors

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Normalize converts well-known failure modes into liveview errors. Errors
// that are already structured pass through unchanged, keeping their kind.
func Normalize(err error, op string) error {
	if e, ok := err.(*Error); ok {
		return e
	}

	switch {
	case err == nil:
		return nil

	case os.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		return &Error{
			Message:     fmt.Sprintf("%s timed out", op),
			Kind:        Timeout,
			NestedError: err,
		}

	case errors.Is(err, context.Canceled):
		return &Error{
			Message: fmt.Sprintf("%s cancelled", op),
			Kind:    Cancellation,
		}

	default:
		return &Error{
			Message:     fmt.Sprintf("%s failed: %s", op, err.Error()),
			Kind:        UnknownError,
			NestedError: err,
		}
	}
}

// Context surfaces why a context ended. A cancellation cause is returned
// as-is: it is either a liveview error from the stream's own teardown or an
// error an owning caller attached, and both should reach the operator
// unwrapped. Without a cause, the bare context error is normalized.
func Context(ctx context.Context, op string) error {
	if err := context.Cause(ctx); err != nil {
		return err
	}
	return Normalize(ctx.Err(), op)
}
