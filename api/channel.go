// File: api/channel.go
// Package api defines the channel contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import (
	"net"

	"github.com/momentics/hioload-net/core/constant"
)

// Channel is one logical connection or listening endpoint. A channel
// owns exactly one pipeline and one configuration for its whole
// lifetime, and is bound to exactly one event loop at registration
// time; the binding never changes afterwards.
type Channel interface {
	// ID returns the channel's process-unique identity.
	ID() string

	// Parent returns the listening channel that accepted this one, nil
	// for client and listening channels.
	Parent() Channel

	// Config returns the channel's typed option store.
	Config() Config

	// Attributes returns the channel's attribute map.
	Attributes() AttributeMap

	// Pipeline returns the channel's handler chain.
	Pipeline() Pipeline

	// EventLoop returns the bound loop, nil before registration.
	EventLoop() EventLoop

	// LocalAddr and RemoteAddr report transport endpoints, nil when
	// unbound/unconnected.
	LocalAddr() net.Addr
	RemoteAddr() net.Addr

	IsOpen() bool
	IsActive() bool
	IsRegistered() bool

	// RegisterTo binds the channel to the loop and fires registration
	// through the pipeline. The binding is permanent; a second call
	// fails with ErrAlreadyRegistered.
	RegisterTo(loop EventLoop) Future

	// Outbound entry points; each travels the full pipeline from the
	// application end.
	Bind(addr net.Addr) Future
	Connect(remote, local net.Addr) Future
	Disconnect() Future
	Close() Future
	Deregister() Future
	Read()
	Write(msg any) Future
	WriteAndFlush(msg any) Future
	Flush()

	// CloseForcibly tears the transport down immediately without
	// travelling the pipeline. Used for channels that failed setup
	// before any loop owned them.
	CloseForcibly()

	// CloseFuture completes when the channel is fully closed.
	CloseFuture() Future
}

// ChannelFactory produces an unregistered channel for a bootstrap.
type ChannelFactory func() (Channel, error)

// Config is a channel's typed option store. Option keys are interned
// constants; typed accessors live in the channel package.
type Config interface {
	// Set applies one option. handled is false when the option is not
	// recognized by this configuration; err is non-nil when the option
	// is recognized but the value is invalid or of the wrong type. The
	// caller decides how to report unrecognized options.
	Set(opt *constant.Token, value any) (handled bool, err error)

	// Get returns the current value of a recognized option.
	Get(opt *constant.Token) (any, bool)

	// AutoRead reports whether the channel requests reads eagerly.
	AutoRead() bool

	// SetAutoRead toggles eager reading; enabling it on an active
	// channel issues an immediate read request.
	SetAutoRead(on bool)
}

// AttributeMap stores per-channel attribute values keyed by interned
// attribute constants. Safe for concurrent use.
type AttributeMap interface {
	SetAttr(key *constant.Token, value any)
	Attr(key *constant.Token) (any, bool)
	DelAttr(key *constant.Token)
}
