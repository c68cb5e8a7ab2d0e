// File: api/pipeline.go
// Package api defines the pipeline contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import (
	"net"
	"reflect"
)

// Pipeline owns the ordered chain of handler contexts for one channel.
// Head and tail sentinels are always present; mutation never touches
// them. Names are unique within a pipeline; passing an empty name to an
// Add method derives one from the handler's type.
type Pipeline interface {
	// Channel returns the owning channel.
	Channel() Channel

	// AddFirst inserts the handler just after the head sentinel.
	AddFirst(name string, h Handler) error

	// AddLast inserts the handler just before the tail sentinel.
	AddLast(name string, h Handler) error

	// AddBefore inserts the handler before the named anchor context.
	AddBefore(anchor, name string, h Handler) error

	// AddAfter inserts the handler after the named anchor context.
	AddAfter(anchor, name string, h Handler) error

	// Remove detaches the context with the given name.
	Remove(name string) (Handler, error)

	// RemoveHandler detaches the context bound to the given instance.
	RemoveHandler(h Handler) error

	// RemoveType detaches the first context, transport side first,
	// whose handler has the given dynamic type.
	RemoveType(typ reflect.Type) (Handler, error)

	// RemoveFirst detaches the context nearest the transport.
	RemoveFirst() (Handler, error)

	// RemoveLast detaches the context nearest the application.
	RemoveLast() (Handler, error)

	// Replace atomically substitutes the named context with a new
	// handler at the same chain position, returning the old handler.
	Replace(old, newName string, h Handler) (Handler, error)

	// Context returns the context bound to name, nil if absent.
	Context(name string) HandlerContext

	// ContextOf returns the context bound to the instance, nil if absent.
	ContextOf(h Handler) HandlerContext

	// Names enumerates user contexts in transport-to-application order.
	Names() []string

	// Event origination at the transport end of the chain.
	FireChannelRegistered() Pipeline
	FireChannelUnregistered() Pipeline
	FireChannelActive() Pipeline
	FireChannelInactive() Pipeline
	FireChannelRead(msg any) Pipeline
	FireChannelReadComplete() Pipeline
	FireWritabilityChanged() Pipeline
	FireUserEventTriggered(evt any) Pipeline
	FireExceptionCaught(err error) Pipeline

	// Outbound origination at the application end of the chain.
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
