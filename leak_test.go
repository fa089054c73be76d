package workpool

import (
	"runtime"
	"testing"
	"time"
)

// checkNumGoroutines records the current goroutine count and returns a
// checker to be run (typically deferred) at the end of a test, which fails
// the test if the goroutine count hasn't returned to baseline within
// timeout. Used by this package's future tests via
// `defer checkNumGoroutines(time.Second * 3)(t)`.
func checkNumGoroutines(timeout time.Duration) func(t *testing.T) {
	before := runtime.NumGoroutine()
	return func(t *testing.T) {
		t.Helper()
		deadline := time.Now().Add(timeout)
		for {
			after := runtime.NumGoroutine()
			if after <= before {
				return
			}
			if time.Now().After(deadline) {
				t.Errorf(`leaked goroutines: before = %d after = %d`, before, after)
				return
			}
			runtime.Gosched()
			time.Sleep(time.Millisecond)
		}
	}
}
