package workpool_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	workpool "github.com/joeycumines/go-workpool"
)

// newMaxRunningTracker tracks the peak number of concurrently-running
// callers between inc() and the func it returns.
func newMaxRunningTracker() (inc func() func(), peak func() int) {
	var mu sync.Mutex
	var running, max int
	inc = func() func() {
		mu.Lock()
		running++
		if running > max {
			max = running
		}
		mu.Unlock()
		return func() {
			mu.Lock()
			running--
			mu.Unlock()
		}
	}
	peak = func() int {
		mu.Lock()
		defer mu.Unlock()
		return max
	}
	return inc, peak
}

func TestPool_boundedThroughput(t *testing.T) {
	const k = 5
	const n = 1024

	inc, peak := newMaxRunningTracker()

	items := make([]int, n)
	for i := range items {
		items[i] = i
	}

	p := workpool.Run(context.Background(), items, k, func(ctx context.Context, item int) (int, error) {
		defer inc()()
		return item * 2, nil
	})

	got, err := p.Collect(context.Background())
	if err != nil {
		t.Fatalf(`Collect: %v`, err)
	}
	if len(got) != n {
		t.Fatalf(`got %d results, want %d`, len(got), n)
	}
	if peak() > k {
		t.Fatalf(`peak concurrency %d exceeds cap %d`, peak(), k)
	}

	want := make([]int, n)
	for i := range items {
		want[i] = i * 2
	}
	sort.Ints(got)
	sort.Ints(want)
	if diff := cmp.Diff(want, got); diff != `` {
		t.Fatalf(`result multiset mismatch (-want +got):\n%s`, diff)
	}
}

func TestPool_growDuringIteration(t *testing.T) {
	const k = 20
	const initial = 1024
	const extra = 9

	p := workpool.New[int](context.Background(), k)

	works := make([]workpool.WorkFunc[int], initial)
	for i := range works {
		i := i
		works[i] = func(ctx context.Context) (int, error) { return i, nil }
	}
	if err := p.SubmitMany(works...); err != nil {
		t.Fatal(err)
	}

	// take the iterator before the pool grows, so later Next calls race
	// against concurrent submission near (and past) the current slot count.
	it := p.Iterate()

	var got []int
	for len(got) < initial/2 {
		v, ok, err := it.Next(context.Background())
		if err != nil {
			t.Fatalf(`Next: %v`, err)
		}
		if !ok {
			t.Fatal(`unexpected end-of-results before growth`)
		}
		got = append(got, v)
	}

	more := make([]workpool.WorkFunc[int], extra)
	for i := range more {
		v := initial + i
		more[i] = func(ctx context.Context) (int, error) { return v, nil }
	}
	if err := p.SubmitMany(more...); err != nil {
		t.Fatal(err)
	}
	p.CloseIntake()

	rest, err := it.Collect(context.Background())
	if err != nil {
		t.Fatalf(`Collect: %v`, err)
	}
	got = append(got, rest...)

	if len(got) != initial+extra {
		t.Fatalf(`got %d results, want %d`, len(got), initial+extra)
	}
}

func TestPool_nextBlockedPastEndObservesLateSubmission(t *testing.T) {
	p := workpool.New[int](context.Background(), 0)

	if err := p.Submit(func(ctx context.Context) (int, error) { return 1, nil }); err != nil {
		t.Fatal(err)
	}

	it := p.Iterate()
	v, ok, err := it.Next(context.Background())
	if err != nil || !ok || v != 1 {
		t.Fatalf(`first Next = (%d, %v, %v), want (1, true, nil)`, v, ok, err)
	}

	// it.cursor now equals the slot count exactly: the next Next call must
	// block (there's nothing at that index yet, and the pool isn't sealed)
	// rather than resolve to end-of-results. A late Submit lands while it's
	// blocked there; the call must wake up and serve that item, not skip it.
	done := make(chan struct{})
	var got int
	var gotOK bool
	var gotErr error
	go func() {
		defer close(done)
		got, gotOK, gotErr = it.Next(context.Background())
	}()

	time.Sleep(20 * time.Millisecond) // give Next a chance to start blocking
	if err := p.Submit(func(ctx context.Context) (int, error) { return 2, nil }); err != nil {
		t.Fatal(err)
	}
	p.CloseIntake()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal(`Next never returned after the late submission`)
	}

	if gotErr != nil || !gotOK || got != 2 {
		t.Fatalf(`got (%d, %v, %v), want (2, true, nil) - late submission must not be skipped`, got, gotOK, gotErr)
	}
}

func TestPool_postDrainResubmission(t *testing.T) {
	const k = 20
	const first = 1024
	const second = 8

	p := workpool.New[int](context.Background(), k)

	works := make([]workpool.WorkFunc[int], first)
	for i := range works {
		i := i
		works[i] = func(ctx context.Context) (int, error) { return i, nil }
	}
	if err := p.SubmitMany(works...); err != nil {
		t.Fatal(err)
	}

	it := p.Iterate()
	var got []int
	for len(got) < first {
		v, ok, err := it.Next(context.Background())
		if err != nil {
			t.Fatalf(`Next: %v`, err)
		}
		if !ok {
			t.Fatal(`unexpected early end-of-results`)
		}
		got = append(got, v)
	}

	more := make([]workpool.WorkFunc[int], second)
	for i := range more {
		v := first + i
		more[i] = func(ctx context.Context) (int, error) { return v, nil }
	}
	if err := p.SubmitMany(more...); err != nil {
		t.Fatal(err)
	}
	p.CloseIntake()

	rest, err := it.Collect(context.Background())
	if err != nil {
		t.Fatalf(`Collect: %v`, err)
	}
	got = append(got, rest...)

	if len(got) != first+second {
		t.Fatalf(`got %d results, want %d`, len(got), first+second)
	}
}

func TestPool_submissionOrderPreservedDespiteReverseCompletion(t *testing.T) {
	release := make([]chan struct{}, 4)
	for i := range release {
		release[i] = make(chan struct{})
	}

	p := workpool.New[int](context.Background(), 2, workpool.SubmissionOrder())

	works := make([]workpool.WorkFunc[int], 4)
	for i := range works {
		i := i
		works[i] = func(ctx context.Context) (int, error) {
			<-release[i]
			return i, nil
		}
	}
	if err := p.SubmitMany(works...); err != nil {
		t.Fatal(err)
	}
	p.CloseIntake()

	// release in reverse order; with cap 2, items 0 and 1 start first, then
	// each completion admits the next queued item.
	go func() {
		close(release[3])
		close(release[2])
		close(release[1])
		close(release[0])
	}()

	got, err := p.Collect(context.Background())
	if err != nil {
		t.Fatalf(`Collect: %v`, err)
	}
	want := []int{0, 1, 2, 3}
	if diff := cmp.Diff(want, got); diff != `` {
		t.Fatalf(`submission order not preserved (-want +got):\n%s`, diff)
	}
}

func TestPool_capacityGatingWithExternalSignal(t *testing.T) {
	const k = 5
	const n = 11

	p := workpool.New[struct{}](context.Background(), k)

	var running int32
	var maxRunning int32
	gate := make(chan struct{})

	works := make([]workpool.WorkFunc[struct{}], n)
	for i := range works {
		works[i] = func(ctx context.Context) (struct{}, error) {
			cur := atomic.AddInt32(&running, 1)
			for {
				old := atomic.LoadInt32(&maxRunning)
				if cur <= old || atomic.CompareAndSwapInt32(&maxRunning, old, cur) {
					break
				}
			}
			<-gate
			atomic.AddInt32(&running, -1)
			return struct{}{}, nil
		}
	}
	if err := p.SubmitMany(works...); err != nil {
		t.Fatal(err)
	}
	p.CloseIntake()

	// give the pool a moment to reach (and hold at) its cap.
	time.Sleep(20 * time.Millisecond)
	if got := atomic.LoadInt32(&running); got != k {
		t.Fatalf(`running = %d, want %d (at capacity before external signal)`, got, k)
	}

	close(gate) // external signal releases every gated item at once

	if _, err := p.Collect(context.Background()); err != nil {
		t.Fatalf(`Collect: %v`, err)
	}
	if atomic.LoadInt32(&maxRunning) > k {
		t.Fatalf(`observed running count %d exceeded cap %d`, maxRunning, k)
	}
}

func TestPool_failurePropagation(t *testing.T) {
	const n = 100
	boom := errors.New(`item 17 failed`)

	items := make([]int, n)
	for i := range items {
		items[i] = i
	}

	p := workpool.Run(context.Background(), items, 10, func(ctx context.Context, item int) (int, error) {
		if item == 17 {
			return 0, boom
		}
		return item, nil
	})

	_, err := p.Collect(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf(`got %v, want %v`, err, boom)
	}
}

func TestPool_cancelContextTerminatesPromptly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := workpool.New[struct{}](ctx, 2)

	block := make(chan struct{})
	_ = p.Submit(func(ctx context.Context) (struct{}, error) {
		<-block
		return struct{}{}, nil
	})
	p.CloseIntake()

	cancel()

	_, err := p.Collect(context.Background())
	if !errors.Is(err, workpool.ErrCancelled) {
		t.Fatalf(`got %v, want ErrCancelled`, err)
	}
	close(block)
}

func TestPool_submitAfterCloseIntakeReturnsErrIntakeClosed(t *testing.T) {
	p := workpool.New[int](context.Background(), 1)
	p.CloseIntake()

	err := p.Submit(func(ctx context.Context) (int, error) { return 0, nil })
	if !errors.Is(err, workpool.ErrIntakeClosed) {
		t.Fatalf(`got %v, want ErrIntakeClosed`, err)
	}
}

func ExampleRun() {
	items := []int{1, 2, 3, 4, 5}

	p := workpool.Run(context.Background(), items, 2, func(ctx context.Context, item int) (int, error) {
		return item * item, nil
	}, workpool.SubmissionOrder())

	got, err := p.Collect(context.Background())
	if err != nil {
		fmt.Println(`error:`, err)
		return
	}

	fmt.Println(got) // deterministic: SubmissionOrder() ties slot i to item i

	// Output:
	// [1 4 9 16 25]
}
