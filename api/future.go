// File: api/future.go
// Package api defines the asynchronous completion contracts.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "context"

// Future is a single-assignment asynchronous result. Exactly one of
// success, failure or cancellation is ever recorded; every listener,
// whether attached before or after completion, observes that outcome
// exactly once. Listeners attached before completion run on the
// goroutine that completes the future, which for channel operations is
// the channel's loop.
type Future interface {
	// IsDone reports whether an outcome has been recorded.
	IsDone() bool

	// Done is closed once an outcome is recorded.
	Done() <-chan struct{}

	// Err returns nil for success, the failure cause otherwise.
	// Meaningful only after completion. Cancellation reports
	// ErrCanceled.
	Err() error

	// IsCanceled reports completion by cancellation.
	IsCanceled() bool

	// Value returns the success value, nil otherwise.
	Value() any

	// Await blocks until completion or ctx expiry and returns the
	// outcome (or the ctx error).
	Await(ctx context.Context) error

	// AddListener attaches a continuation. Listeners attached after
	// completion run immediately on the calling goroutine.
	AddListener(fn func(Future))
}

// Promise is the writable side of a Future. Each Try method records the
// outcome and reports false if another outcome won the race.
type Promise interface {
	Future

	TrySuccess(value any) bool
	TryFailure(err error) bool
	TryCancel() bool
}
