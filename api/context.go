// File: api/context.go
// Package api defines the propagation cursor contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "net"

// HandlerContext is one node of the pipeline chain: it binds a named
// handler instance to a channel and a position, and acts as the
// propagation cursor for that position. FireXxx methods advance an
// inbound event to the next capable context toward the application;
// outbound methods advance an operation to the previous capable context
// toward the transport.
type HandlerContext interface {
	// Name returns the context's pipeline-unique name.
	Name() string

	// Handler returns the bound handler instance.
	Handler() Handler

	// Channel returns the owning channel.
	Channel() Channel

	// Pipeline returns the owning pipeline.
	Pipeline() Pipeline

	// EventLoop returns the channel's bound loop, nil before registration.
	EventLoop() EventLoop

	// Removed reports whether this context has left its pipeline.
	Removed() bool

	// Inbound propagation. Each returns the receiver for chaining.
	FireChannelRegistered() HandlerContext
	FireChannelUnregistered() HandlerContext
	FireChannelActive() HandlerContext
	FireChannelInactive() HandlerContext
	FireChannelRead(msg any) HandlerContext
	FireChannelReadComplete() HandlerContext
	FireWritabilityChanged() HandlerContext
	FireUserEventTriggered(evt any) HandlerContext
	FireExceptionCaught(err error) HandlerContext

	// Outbound operations, travelling toward the transport from this
	// context's position.
	Bind(addr net.Addr) Future
	Connect(remote, local net.Addr) Future
	Disconnect() Future
	Close() Future
	Deregister() Future
	Read()
	Write(msg any) Future
	WriteAndFlush(msg any) Future
	Flush()
}
