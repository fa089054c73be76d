package workpool

import "golang.org/x/exp/constraints"

// Option configures a pool's ordering mode at construction. The zero value
// of config (no options supplied) is completion-order: a struct of
// tunables, all optional, with documented defaults, rather than a
// required-argument constructor.
type Option func(*config)

type config struct {
	mode orderingMode
}

func newConfig(opts []Option) config {
	var cfg config // completionOrder is the zero value
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// FIFO selects completion-order result delivery: slot i receives the
// outcome of the i-th item to *complete*, regardless of submission order.
// This is the default even without an explicit Option.
func FIFO() Option {
	return func(c *config) { c.mode = completionOrder }
}

// SubmissionOrder selects submission-order result delivery: slot i always
// receives the outcome of the i-th *submitted* item, regardless of
// completion order.
func SubmissionOrder() Option {
	return func(c *config) { c.mode = submissionOrder }
}

// clampNonNegative returns v, or 0 if v is negative. Used by New to
// normalize the caller-supplied limit, where "0 or negative" means
// unbounded.
func clampNonNegative[T constraints.Integer](v T) T {
	if v < 0 {
		return 0
	}
	return v
}
