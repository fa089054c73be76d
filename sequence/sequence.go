package sequence

import (
	"context"

	workpool "github.com/joeycumines/go-workpool"
)

// Process runs f(item) for every item in in, under a concurrency cap of
// limit (<= 0 means unbounded), discarding results. It returns the first
// error encountered from f; if ctx is cancelled first, it returns either
// ctx's error or workpool.ErrCancelled, whichever is observed first.
func Process[T any](ctx context.Context, limit int, in []T, f func(context.Context, T) error) error {
	p := workpool.Run[T, struct{}](ctx, in, limit, func(ctx context.Context, item T) (struct{}, error) {
		return struct{}{}, f(ctx, item)
	})
	return p.Wait(ctx)
}

// Map runs f(item) for every item in in, under a concurrency cap of limit
// (<= 0 means unbounded), and collects the results in completion order
// (matching workpool.Run's default ordering).
func Map[I, O any](ctx context.Context, limit int, in []I, f func(context.Context, I) (O, error)) ([]O, error) {
	p := workpool.Run(ctx, in, limit, f)
	return p.Collect(ctx)
}

// ProcessChan drains ch, running f(item) for each received value under a
// concurrency cap of limit (<= 0 means unbounded), discarding results. It
// returns the first error encountered from f; if ctx is cancelled first, it
// returns either ctx's error or workpool.ErrCancelled. It keeps receiving
// until ch is closed or ctx is done, so a channel that is never closed keeps
// it waiting until ctx is cancelled.
//
// It follows the usual "receive from a channel, stop at ctx-done or
// channel-close" shape, feeding each received value into a pool's intake
// instead of an inline handler.
func ProcessChan[T any](ctx context.Context, limit int, ch <-chan T, f func(context.Context, T) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	p := workpool.New[struct{}](ctx, limit)
	drainChan(ctx, p, ch, func(ctx context.Context, item T) (struct{}, error) {
		return struct{}{}, f(ctx, item)
	})
	return p.Wait(ctx)
}

// MapChan drains ch, running f(item) for each received value under a
// concurrency cap of limit (<= 0 means unbounded), and collects the results
// in completion order.
func MapChan[I, O any](ctx context.Context, limit int, ch <-chan I, f func(context.Context, I) (O, error)) ([]O, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	p := workpool.New[O](ctx, limit)
	drainChan(ctx, p, ch, f)
	return p.Collect(ctx)
}

// drainChan is shared by ProcessChan/MapChan: it receives from ch until the
// channel closes or ctx is done, submitting one work item per received
// value, then seals the pool's intake. A cancelled ctx just stops the drain
// early - CloseIntake still runs, and the pool's own context-watcher (see
// workpool.New) takes care of failing outstanding/future work.
func drainChan[I, O any](ctx context.Context, p *workpool.Pool[O], ch <-chan I, f func(context.Context, I) (O, error)) {
	defer p.CloseIntake()

	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-ch:
			if !ok {
				return
			}
			// ErrIntakeClosed can't occur: this loop is the only submitter,
			// and it submits only until it calls CloseIntake itself.
			_ = p.Submit(func(ctx context.Context) (O, error) {
				return f(ctx, item)
			})
		}
	}
}
