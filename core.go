package workpool

import (
	"context"
	"sync"
)

// WorkFunc is a single unit of work submitted to a pool. It must be safe to
// invoke concurrently with other work items; the pool places no further
// constraint on it.
type WorkFunc[T any] func(ctx context.Context) (T, error)

// capPolicy is the concurrency cap applied by a core: either a fixed
// maximum of concurrent work items (bounded), or no cap at all, used by the
// worker-pool driver, which is already bounded by its fixed goroutine count.
type capPolicy struct {
	bounded bool
	limit   int
}

// poolState is the Pool Core's tagged state.
type poolState int

const (
	stateExpectingWork poolState = iota
	stateSealed
	stateFailed
)

// workStatus is the result of a nextWork call.
type workStatus int

const (
	// statusWork indicates a work item was dequeued.
	statusWork workStatus = iota
	// statusAtCapacity indicates the cap has been reached; the caller
	// should wait for capacity to free up and retry.
	statusAtCapacity
	// statusFinished indicates no further work will ever be available:
	// the pool has failed, or is sealed and drained, or the queue is
	// empty with no cap hold in place.
	statusFinished
)

// core is the Pool Core state machine: the shared state coordinating
// producers, workers, and consumers for a single pool instance. It is the
// single owner of all mutable state; iterators and worker drivers hold a
// plain pointer to it.
//
// Its single-owner mutable state and fulfil-after-unlock discipline
// generalizes "one batch of N jobs, M concurrent batches" into "one work
// item per slot, K concurrent slots".
type core[T any] struct {
	mu sync.Mutex

	state poolState
	err   error // meaningful only once state == stateFailed

	policy   capPolicy
	ordering *orderingStrategy

	queue []WorkFunc[T]

	// slots holds one future per submitted work item, in submission order.
	// It only ever grows, via addProducers; index i beyond len(slots) means
	// "not submitted (yet)", resolved dynamically by slot rather than by a
	// pre-allocated placeholder.
	slots []*future[outcome[T]]

	// changed is closed, and immediately replaced with a fresh channel,
	// every time slots grows or state leaves stateExpectingWork. slot uses
	// it to wake a call blocked on an index that doesn't exist yet, without
	// binding that call to any particular future object ahead of time.
	changed chan struct{}
}

// newCore constructs a core in state ExpectingWork, with no slots yet.
func newCore[T any](policy capPolicy, mode orderingMode) *core[T] {
	return &core[T]{
		policy:   policy,
		ordering: newOrderingStrategy(mode),
		changed:  make(chan struct{}),
	}
}

// notifyLocked closes the current changed channel and installs a fresh one,
// waking everything blocked on the old one. Callers must hold mu.
func (c *core[T]) notifyLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}

// addProducers appends zero or more work items. Returns ErrIntakeClosed if
// the pool is Sealed; silently drops (no slot allocated) if the pool is
// Failed.
func (c *core[T]) addProducers(items ...WorkFunc[T]) error {
	if len(items) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateSealed:
		return ErrIntakeClosed
	case stateFailed:
		return nil
	}

	for range items {
		c.slots = append(c.slots, newFuture[outcome[T]]())
	}
	c.queue = append(c.queue, items...)
	c.notifyLocked()

	return nil
}

// nextWork dequeues the next work item, if capacity and the queue both
// allow it. See workStatus for the meaning of the returned status.
func (c *core[T]) nextWork() (work WorkFunc[T], execIndex int, status workStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == stateFailed {
		return nil, 0, statusFinished
	}
	if c.policy.bounded && c.ordering.inFlight() >= c.policy.limit {
		return nil, 0, statusAtCapacity
	}
	if len(c.queue) == 0 {
		return nil, 0, statusFinished
	}

	work = c.queue[0]
	c.queue[0] = nil // avoid retaining the closure past its dequeue
	c.queue = c.queue[1:]
	execIndex = c.ordering.addExecution()
	return work, execIndex, statusWork
}

// workCompleted records a successful outcome for execIndex, computing its
// slot position via the ordering strategy and fulfilling that slot's
// future. A no-op if the pool is Failed.
func (c *core[T]) workCompleted(execIndex int, value T) {
	c.mu.Lock()
	if c.state == stateFailed {
		c.mu.Unlock()
		return
	}
	pos := c.ordering.resultPosition(execIndex)
	f := c.slots[pos]
	c.mu.Unlock()

	f.fulfil(outcome[T]{value: value})
}

// seal transitions ExpectingWork to Sealed. Idempotent after the first
// call; a no-op if the pool is Failed. No slot is fulfilled here: end of
// results beyond the last submitted slot is resolved by slot itself, once
// sealing rules out any further growth before a given index.
func (c *core[T]) seal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateExpectingWork {
		return
	}
	c.state = stateSealed
	c.notifyLocked()
}

// fail transitions any non-terminal state to Failed(err), clearing the work
// queue and rejecting every still-pending slot future with err. Idempotent:
// a second call is a no-op, and already-delivered (Success) slots are never
// rescinded, since future.fulfil no-ops on an already-ready future. slots
// itself is left intact, so already-delivered results stay reachable
// through slot.
func (c *core[T]) fail(err error) {
	c.mu.Lock()
	if c.state == stateFailed {
		c.mu.Unlock()
		return
	}
	c.state = stateFailed
	c.err = err
	c.queue = nil
	pending := c.slots
	c.notifyLocked()
	c.mu.Unlock()

	// fulfilled outside the lock, in slot-index order, so waiter
	// notification order is deterministic. Already-ready futures (values
	// delivered before the failure) simply no-op here.
	for _, f := range pending {
		f.fulfil(outcome[T]{err: err})
	}
}

// slot returns the future backing result slot i, blocking until either slot
// i exists or the pool reaches a terminal state that settles i's fate for
// good: Failed (every index resolves to the failure), or Sealed with no
// more room to grow past i (index i resolves to end-of-results). It never
// binds its answer to a relocatable placeholder: the condition is
// re-evaluated under the lock every time something changes, so the result
// always reflects what's actually at index i by the time it's known.
//
// ctx governs only this call: if it's done before i is settled, slot
// returns ctx's own error and the pool is otherwise unaffected.
func (c *core[T]) slot(ctx context.Context, i int) (*future[outcome[T]], error) {
	for {
		c.mu.Lock()
		if i < len(c.slots) {
			f := c.slots[i]
			c.mu.Unlock()
			return f, nil
		}
		switch c.state {
		case stateFailed:
			f := newReadyFuture(outcome[T]{err: c.err})
			c.mu.Unlock()
			return f, nil
		case stateSealed:
			f := newReadyFuture(outcome[T]{end: true})
			c.mu.Unlock()
			return f, nil
		}
		changed := c.changed
		c.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
