// File: api/errors.go
// Package api defines common error values shared across the framework.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "errors"

// Errors surfaced by pipelines, loops and bootstraps. Callers branch on
// these with errors.Is; wrapped variants carry position/name context.
var (
	// ErrDuplicateName reports a pipeline insert under a name that is
	// already bound to another context.
	ErrDuplicateName = errors.New("handler name already in use")

	// ErrNotFound reports a pipeline lookup (anchor, remove, replace)
	// for a name, handler or type with no matching context.
	ErrNotFound = errors.New("handler not found")

	// ErrPipelineEmpty reports RemoveFirst/RemoveLast on a pipeline
	// holding only the sentinels.
	ErrPipelineEmpty = errors.New("pipeline is empty")

	// ErrHandlerReused reports binding a non-shareable handler instance
	// to a second context while still attached to a first one.
	ErrHandlerReused = errors.New("non-shareable handler bound to multiple contexts")

	// ErrChannelClosed reports an operation on a channel whose transport
	// has been closed.
	ErrChannelClosed = errors.New("channel is closed")

	// ErrNotRegistered reports an operation requiring a bound event loop
	// on a channel that was never registered.
	ErrNotRegistered = errors.New("channel is not registered")

	// ErrAlreadyRegistered reports a second registration attempt; the
	// channel-loop binding is permanent.
	ErrAlreadyRegistered = errors.New("channel is already registered")

	// ErrCanceled reports a future completed by cancellation.
	ErrCanceled = errors.New("operation canceled")

	// ErrConnectTimeout reports a connect attempt that exceeded the
	// channel's configured connect timeout.
	ErrConnectTimeout = errors.New("connect timed out")
)
