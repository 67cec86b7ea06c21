package internal

import "iter"

// Apply yields every option assignable to the requested component type,
// skipping nils, so an Options struct can resolve a mixed option list in
// declaration order.
func Apply[T, O any](opts []O, rest ...O) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, list := range [][]O{opts, rest} {
			for _, opt := range list {
				if op, ok := any(opt).(T); ok && any(op) != nil && !yield(op) {
					return
				}
			}
		}
	}
}
