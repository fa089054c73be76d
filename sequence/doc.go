// Package sequence provides convenience wrappers over workpool for the
// common cases of running a function over every element of a slice or a
// channel, under a concurrency cap, without touching Pool/Iterator directly.
//
// Each helper owns its pool's intake lifecycle end-to-end, so
// workpool.ErrIntakeClosed can never surface from one of these functions;
// it is suppressed internally rather than returned.
package sequence
