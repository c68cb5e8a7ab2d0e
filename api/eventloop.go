// File: api/eventloop.go
// Package api defines event loop and group contracts.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import (
	"context"
	"time"
)

// EventLoop is a single-threaded task executor owning a set of
// registered channels. All pipeline events and configuration changes of
// a registered channel execute on its loop; submissions from foreign
// goroutines are queued and run in submission order, never concurrently
// with the loop's own dispatch.
type EventLoop interface {
	// InLoop reports whether the caller is running on this loop.
	InLoop() bool

	// Execute queues the task for execution on the loop. Tasks queued
	// after shutdown are dropped with a warning.
	Execute(task func())

	// Schedule runs the task on the loop after the delay. The returned
	// handle cancels the task if it has not started yet.
	Schedule(delay time.Duration, task func()) Timeout

	// Register binds a channel to this loop.
	Register(ch Channel) Future

	// Parent returns the owning group, nil for standalone loops.
	Parent() EventLoopGroup

	// Shutdown stops the loop after draining queued tasks, waiting at
	// most until ctx is done.
	Shutdown(ctx context.Context) error
}

// Timeout is a handle to one scheduled task.
type Timeout interface {
	// Cancel prevents execution; reports whether it came in time.
	Cancel() bool
}

// EventLoopGroup owns a fixed set of loops and distributes new channel
// registrations across them.
type EventLoopGroup interface {
	// Next selects the loop for the next registration.
	Next() EventLoop

	// Register binds the channel to the loop chosen by Next.
	Register(ch Channel) Future

	// Shutdown stops every loop in the group.
	Shutdown(ctx context.Context) error
}
