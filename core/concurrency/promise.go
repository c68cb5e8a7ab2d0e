// File: core/concurrency/promise.go
// Package concurrency implements the single-assignment promise.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A promise records exactly one of success, failure or cancellation.
// Listeners attached before completion run on the goroutine that
// completes the promise; for channel operations that is the channel's
// loop, which keeps continuations on the right thread without extra
// marshaling. Listeners attached afterwards run inline.

package concurrency

import (
	"context"
	"sync"

	"github.com/momentics/hioload-net/api"
)

// Promise is the concrete api.Promise implementation.
type Promise struct {
	mu        sync.Mutex
	done      chan struct{}
	value     any
	err       error
	canceled  bool
	completed bool
	listeners []func(api.Future)
}

var _ api.Promise = (*Promise)(nil)

// NewPromise returns an incomplete promise.
func NewPromise() *Promise {
	return &Promise{done: make(chan struct{})}
}

// Succeeded returns a promise already completed with value.
func Succeeded(value any) *Promise {
	p := NewPromise()
	p.TrySuccess(value)
	return p
}

// Failed returns a promise already failed with err.
func Failed(err error) *Promise {
	p := NewPromise()
	p.TryFailure(err)
	return p
}

// TrySuccess records a successful outcome.
func (p *Promise) TrySuccess(value any) bool {
	return p.complete(value, nil, false)
}

// TryFailure records a failed outcome.
func (p *Promise) TryFailure(err error) bool {
	return p.complete(nil, err, false)
}

// TryCancel records cancellation; Err reports api.ErrCanceled.
func (p *Promise) TryCancel() bool {
	return p.complete(nil, api.ErrCanceled, true)
}

func (p *Promise) complete(value any, err error, canceled bool) bool {
	p.mu.Lock()
	if p.completed {
		p.mu.Unlock()
		return false
	}
	p.completed = true
	p.value = value
	p.err = err
	p.canceled = canceled
	listeners := p.listeners
	p.listeners = nil
	close(p.done)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(p)
	}
	return true
}

// IsDone reports whether an outcome has been recorded.
func (p *Promise) IsDone() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Done is closed once an outcome is recorded.
func (p *Promise) Done() <-chan struct{} { return p.done }

// Err returns the failure cause, nil on success.
func (p *Promise) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// IsCanceled reports completion by cancellation.
func (p *Promise) IsCanceled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed && p.canceled
}

// Value returns the success value, nil otherwise.
func (p *Promise) Value() any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// Await blocks until completion or ctx expiry.
func (p *Promise) Await(ctx context.Context) error {
	select {
	case <-p.done:
		return p.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AddListener attaches a continuation, running it inline when the
// outcome is already recorded.
func (p *Promise) AddListener(fn func(api.Future)) {
	p.mu.Lock()
	if !p.completed {
		p.listeners = append(p.listeners, fn)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	fn(p)
}

// Cascade completes target with this promise's eventual outcome.
func (p *Promise) Cascade(target api.Promise) {
	p.AddListener(func(f api.Future) {
		switch {
		case f.IsCanceled():
			target.TryCancel()
		case f.Err() != nil:
			target.TryFailure(f.Err())
		default:
			target.TrySuccess(f.Value())
		}
	})
}
