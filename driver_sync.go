package workpool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// RunWithWorkers is the worker-pool (synchronous) static entry point: it
// runs process(item) for every item in items using a fixed-size pool of
// worker goroutines, each looping over the same
// core.nextWork/workCompleted/fail contract the goroutine-per-slot driver
// uses, rather than one goroutine per item.
//
// If workers <= 0, it defaults to runtime.GOMAXPROCS(0) -
// container-CPU-quota-aware, since go.uber.org/automaxprocs adjusts
// GOMAXPROCS during process init (see automaxprocs.go).
//
// The worker-pool driver's cap policy is Unbounded: the fixed number of
// worker goroutines is already the concurrency bound, so the Pool Core
// doesn't need to separately enforce one. errgroup.SetLimit defensively
// documents that same bound at the driver level.
func RunWithWorkers[I, O any](ctx context.Context, workers int, items []I, process func(context.Context, I) (O, error)) *Pool[O] {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	p := New[O](ctx, 0) // unbounded cap policy: bounded externally, by the fixed worker count below

	works := make([]WorkFunc[O], len(items))
	for i, item := range items {
		works[i] = func(ctx context.Context) (O, error) {
			return process(ctx, item)
		}
	}
	_ = p.core.addProducers(works...)
	p.core.seal()

	group, groupCtx := errgroup.WithContext(p.ctx)
	group.SetLimit(workers)

	for range workers {
		group.Go(func() error {
			return runWorkerLoop(groupCtx, p)
		})
	}

	return p
}

// runWorkerLoop repeatedly pulls and executes work via the shared core,
// until the core reports Finished (no cap gating applies to this driver,
// since its cap policy is Unbounded).
func runWorkerLoop[T any](ctx context.Context, p *Pool[T]) error {
	for {
		work, execIndex, status := p.core.nextWork()
		switch status {
		case statusFinished:
			return nil
		case statusAtCapacity:
			// unreachable for an Unbounded cap policy, but handled for
			// completeness/future-proofing rather than assumed away.
			continue
		}

		value, err := work(ctx)
		if err != nil {
			p.core.fail(err)
			return err
		}
		p.core.workCompleted(execIndex, value)
	}
}
