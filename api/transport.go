// File: api/transport.go
// Package api defines the narrow transport collaborator contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The framework never performs socket I/O itself. A Transport supplies
// the physical operations; outbound operations reaching the head of a
// pipeline are satisfied by calling into it, and the transport delivers
// inbound events by firing them into the attached channel's pipeline on
// the channel's loop.

package api

import "net"

// Transport is the physical endpoint behind one channel.
type Transport interface {
	// Attach hands the transport its owning channel. Called exactly
	// once, before any operation.
	Attach(ch Channel)

	// Bind makes the transport a listening/bound endpoint.
	Bind(addr net.Addr) error

	// Connect establishes the transport toward remote, optionally from
	// local.
	Connect(remote, local net.Addr) error

	// Disconnect tears down the established link, keeping the transport
	// reusable where the underlying medium allows it.
	Disconnect() error

	// Close releases the transport permanently.
	Close() error

	// BeginRead asks the transport to deliver pending and future
	// inbound data through the pipeline until told otherwise.
	BeginRead() error

	// Write enqueues one outbound message.
	Write(msg any) error

	// Flush pushes enqueued messages to the peer.
	Flush() error

	LocalAddr() net.Addr
	RemoteAddr() net.Addr
	IsOpen() bool
	IsActive() bool
}

// Resolver is the name-resolution collaborator used by the client
// bootstrap before connecting.
type Resolver interface {
	// IsResolved reports whether addr needs no further resolution.
	IsResolved(addr net.Addr) bool

	// Resolve produces the resolved form of addr. Called off-loop; the
	// bootstrap marshals the result back onto the channel's loop.
	Resolve(addr net.Addr) (net.Addr, error)
}
