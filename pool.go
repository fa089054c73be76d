package workpool

import (
	"context"
	"sync"
)

// Pool is the dynamic, goroutine-per-slot bounded work pool. Construct with
// New, or use Run for the common case of processing a fixed slice of input.
//
// The goroutine-per-slot driver mirrors a counting-semaphore pattern: a
// buffered channel gates how many batches run at once, freeing a slot when
// one finishes. Here that becomes "launch a slot-check, which launches (at
// most) one work item and then launches its own successor".
type Pool[T any] struct {
	core   *core[T]
	ctx    context.Context
	cancel context.CancelFunc

	iterOnce sync.Once
	iter     *Iterator[T]
}

// New constructs a dynamic pool with the given concurrency limit (<= 0
// means unbounded) and ordering mode (selected via opts; completion-order by
// default). ctx bounds the lifetime of every work item the pool runs:
// cancelling it is equivalent to calling Cancel.
func New[T any](ctx context.Context, limit int, opts ...Option) *Pool[T] {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := newConfig(opts)
	policy := capPolicy{bounded: limit > 0, limit: clampNonNegative(limit)}

	innerCtx, cancel := context.WithCancel(ctx)
	p := &Pool[T]{
		core:   newCore[T](policy, cfg.mode),
		ctx:    innerCtx,
		cancel: cancel,
	}

	if ctx.Done() != nil {
		go p.watchParentContext(ctx)
	}

	return p
}

func (p *Pool[T]) watchParentContext(parent context.Context) {
	select {
	case <-parent.Done():
		p.Cancel()
	case <-p.ctx.Done():
	}
}

// Submit schedules a single work item for execution, returning
// ErrIntakeClosed if the pool's intake has been sealed (nil if the pool has
// merely failed — the submission is silently dropped).
func (p *Pool[T]) Submit(work WorkFunc[T]) error {
	return p.SubmitMany(work)
}

// SubmitMany schedules zero or more work items, as per Submit, then
// triggers up to min(len(works), limit) slot-check goroutines (len(works)
// when unbounded) to saturate available capacity quickly.
func (p *Pool[T]) SubmitMany(works ...WorkFunc[T]) error {
	if err := p.core.addProducers(works...); err != nil {
		return err
	}
	n := len(works)
	if p.core.policy.bounded && p.core.policy.limit < n {
		n = p.core.policy.limit
	}
	for range n {
		p.spawnSlotCheck()
	}
	return nil
}

// spawnSlotCheck launches a goroutine that consumes at most one unit of
// capacity: it pulls the next available work item (if any), runs it, and -
// on success - spawns a successor to pick up the capacity it just freed.
func (p *Pool[T]) spawnSlotCheck() {
	go p.slotCheck()
}

func (p *Pool[T]) slotCheck() {
	work, execIndex, status := p.core.nextWork()
	if status != statusWork {
		return
	}

	value, err := work(p.ctx)
	if err != nil {
		p.core.fail(err)
		return
	}
	p.core.workCompleted(execIndex, value)

	// capacity may have freed up; try to pick up more work.
	p.spawnSlotCheck()
}

// CloseIntake seals the pool: no further Submit/SubmitMany call will
// succeed, and any consumer waiting past the last submitted slot resolves
// to end-of-results once already-submitted work drains.
func (p *Pool[T]) CloseIntake() {
	p.core.seal()
}

// Cancel fails the pool with ErrCancelled: every outstanding and future
// await resolves to ErrCancelled, and no further work is dequeued.
// Already-running work items continue running to completion (their context
// is cancelled, but whether they respect that is up to them), but their
// outcome is discarded.
func (p *Pool[T]) Cancel() {
	// fail first, so a running item that returns its context's error can't
	// win the race and become the pool's terminal error instead.
	p.core.fail(ErrCancelled)
	p.cancel()
}

// Iterate returns a new, independent Iterator over the pool's results.
func (p *Pool[T]) Iterate() *Iterator[T] {
	return newIterator(p.core)
}

// Next is a convenience equivalent to Iterate().Next for callers that only
// need a single consumer; repeated calls share one lazily-created Iterator.
func (p *Pool[T]) Next(ctx context.Context) (T, bool, error) {
	return p.defaultIterator().Next(ctx)
}

// Collect awaits all results into a slice, via the pool's default Iterator.
func (p *Pool[T]) Collect(ctx context.Context) ([]T, error) {
	return p.defaultIterator().Collect(ctx)
}

// Wait awaits completion, discarding results. Most useful when T is
// struct{}, i.e. the work items exist purely for their side effects.
func (p *Pool[T]) Wait(ctx context.Context) error {
	_, err := p.Collect(ctx)
	return err
}

func (p *Pool[T]) defaultIterator() *Iterator[T] {
	p.iterOnce.Do(func() { p.iter = p.Iterate() })
	return p.iter
}

// Run constructs a dynamic pool pre-loaded with process(item) for every
// item in items, closes its intake, and returns the pool for iteration.
func Run[I, O any](ctx context.Context, items []I, limit int, process func(context.Context, I) (O, error), opts ...Option) *Pool[O] {
	p := New[O](ctx, limit, opts...)

	works := make([]WorkFunc[O], len(items))
	for i, item := range items {
		works[i] = func(ctx context.Context) (O, error) {
			return process(ctx, item)
		}
	}

	// a static pool owns its intake end-to-end; ErrIntakeClosed can't occur
	// here since nothing else can have sealed it yet.
	_ = p.SubmitMany(works...)
	p.CloseIntake()

	return p
}
