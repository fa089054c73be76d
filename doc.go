// Package workpool implements a bounded-concurrency work pool: a reusable
// concurrency primitive that runs a pool of user-supplied work items under a
// strict cap on the number of simultaneously running items, surfacing
// results incrementally as a lazy, consumable sequence.
//
// The dynamic pool ([Pool], via [New]) accepts work items as they're
// submitted and runs at most limit of them concurrently, regardless of how
// many are submitted. [Run] and [RunWithWorkers] are static entry points
// over a fixed slice of input, the latter using a fixed-size worker-goroutine
// pool instead of a goroutine-per-slot driver.
//
// See also [github.com/joeycumines/go-workpool/sequence], for higher-level
// helpers that feed a pool directly from a slice or channel and collect its
// results, if you don't need direct control over submission or iteration.
package workpool
