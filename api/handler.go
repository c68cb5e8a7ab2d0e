// File: api/handler.go
// Package api defines the handler capability contracts.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A handler participates in a pipeline through up to three capability
// sets: the lifecycle hooks every handler carries, the inbound event
// set, and the outbound operation set. The pipeline inspects which sets
// an instance implements when it is added and routes propagation only
// through capable contexts.

package api

import "net"

// Handler is the minimal contract of anything installed in a pipeline.
// Implementations embed channel.InboundAdapter or channel.OutboundAdapter
// for no-op defaults. Handler instances must be comparable (in practice,
// pointers) so the pipeline can track bindings.
type Handler interface {
	// HandlerAdded runs after the handler's context joined a pipeline.
	HandlerAdded(ctx HandlerContext) error

	// HandlerRemoved runs after the handler's context left a pipeline.
	HandlerRemoved(ctx HandlerContext) error
}

// NonShareable marks handler instances that may be bound to at most one
// context at a time. Handlers not implementing this interface, or
// returning true from Shareable, may be installed in many pipelines
// concurrently and must therefore hold no per-channel state.
type NonShareable interface {
	Shareable() bool
}

// InboundHandler observes events travelling from the transport toward
// the application. A non-nil error terminates the event at this context
// and is re-propagated as an exception event from here.
type InboundHandler interface {
	Handler

	// ChannelRegistered runs once the channel is bound to its loop.
	ChannelRegistered(ctx HandlerContext) error

	// ChannelUnregistered runs after the channel left its loop.
	ChannelUnregistered(ctx HandlerContext) error

	// ChannelActive runs when the transport becomes connected/bound.
	ChannelActive(ctx HandlerContext) error

	// ChannelInactive runs when the transport is no longer active.
	ChannelInactive(ctx HandlerContext) error

	// ChannelRead delivers one inbound message.
	ChannelRead(ctx HandlerContext, msg any) error

	// ChannelReadComplete marks the end of a read batch.
	ChannelReadComplete(ctx HandlerContext) error

	// WritabilityChanged signals a write-buffer watermark crossing.
	WritabilityChanged(ctx HandlerContext) error

	// UserEventTriggered delivers an application-defined event.
	UserEventTriggered(ctx HandlerContext, evt any) error

	// ExceptionCaught observes an error raised by an earlier context.
	// Implementations forward with ctx.FireExceptionCaught unless they
	// intentionally consume the error.
	ExceptionCaught(ctx HandlerContext, err error)
}

// OutboundHandler intercepts operations travelling from the application
// toward the transport. Each operation carries the promise that the
// originating caller observes; interceptors either forward through ctx
// or complete the promise themselves.
type OutboundHandler interface {
	Handler

	Bind(ctx HandlerContext, addr net.Addr, p Promise)
	Connect(ctx HandlerContext, remote, local net.Addr, p Promise)
	Disconnect(ctx HandlerContext, p Promise)
	Close(ctx HandlerContext, p Promise)
	Deregister(ctx HandlerContext, p Promise)
	Read(ctx HandlerContext)
	Write(ctx HandlerContext, msg any, p Promise)
	Flush(ctx HandlerContext)
}
