package workpool

import "context"

// Iterator is a stateful cursor over a pool's result slots: it fetches slot
// i, then increments. Multiple Iterators over the same pool are
// independent — each holds its own cursor, and all observe the same slot
// contents.
//
// It follows the usual "pull the next value, handle end/error" shape,
// adapted from a callback-handler loop to an explicit Next method.
type Iterator[T any] struct {
	core   *core[T]
	cursor int
}

func newIterator[T any](c *core[T]) *Iterator[T] {
	return &Iterator[T]{core: c}
}

// Next awaits the next result and advances the cursor. ok is false with a
// nil error at end-of-results; ok is false with a non-nil error on failure
// or cancellation (including ctx's own cancellation, which does not affect
// the pool). If ctx is done while awaiting a slot that already exists, the
// cursor has already moved past that slot, so this Iterator's next call
// reads the following one. Calling Next again after end-of-results keeps
// returning end-of-results; it never panics.
func (it *Iterator[T]) Next(ctx context.Context) (value T, ok bool, err error) {
	f, err := it.core.slot(ctx, it.cursor)
	if err != nil {
		var zero T
		return zero, false, err
	}
	it.cursor++

	out, err := f.await(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}
	if out.err != nil {
		var zero T
		return zero, false, out.err
	}
	if out.end {
		var zero T
		return zero, false, nil
	}
	return out.value, true, nil
}

// Collect awaits every remaining result into a slice, stopping at the first
// error or at end-of-results.
func (it *Iterator[T]) Collect(ctx context.Context) ([]T, error) {
	return collect(ctx, it)
}

// collect drains it, accumulating values until end-of-results or an error.
func collect[T any](ctx context.Context, it *Iterator[T]) ([]T, error) {
	var out []T
	for {
		v, ok, err := it.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}
