// File: channel/adapters.go
// Package channel provides pass-through handler adapters.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Handlers embed one of these and override only the events they care
// about. The defaults forward every event to the next capable context,
// which keeps propagation alive unless a handler intentionally
// intercepts.

package channel

import (
	"net"
	"sync/atomic"

	"github.com/momentics/hioload-net/api"
)

// binding records whether a handler instance is currently linked into a
// pipeline. The adapters embed it so every instance carries its own
// flag; without it, distinct zero-size handler values share one address
// and cannot be told apart by identity.
type binding struct {
	bound atomic.Bool
}

func (b *binding) tryBind() bool { return b.bound.CompareAndSwap(false, true) }
func (b *binding) unbind()       { b.bound.Store(false) }

// InboundAdapter is a no-op pass-through api.InboundHandler.
type InboundAdapter struct {
	binding
}

var _ api.InboundHandler = (*InboundAdapter)(nil)

func (*InboundAdapter) HandlerAdded(api.HandlerContext) error   { return nil }
func (*InboundAdapter) HandlerRemoved(api.HandlerContext) error { return nil }

func (*InboundAdapter) ChannelRegistered(ctx api.HandlerContext) error {
	ctx.FireChannelRegistered()
	return nil
}

func (*InboundAdapter) ChannelUnregistered(ctx api.HandlerContext) error {
	ctx.FireChannelUnregistered()
	return nil
}

func (*InboundAdapter) ChannelActive(ctx api.HandlerContext) error {
	ctx.FireChannelActive()
	return nil
}

func (*InboundAdapter) ChannelInactive(ctx api.HandlerContext) error {
	ctx.FireChannelInactive()
	return nil
}

func (*InboundAdapter) ChannelRead(ctx api.HandlerContext, msg any) error {
	ctx.FireChannelRead(msg)
	return nil
}

func (*InboundAdapter) ChannelReadComplete(ctx api.HandlerContext) error {
	ctx.FireChannelReadComplete()
	return nil
}

func (*InboundAdapter) WritabilityChanged(ctx api.HandlerContext) error {
	ctx.FireWritabilityChanged()
	return nil
}

func (*InboundAdapter) UserEventTriggered(ctx api.HandlerContext, evt any) error {
	ctx.FireUserEventTriggered(evt)
	return nil
}

func (*InboundAdapter) ExceptionCaught(ctx api.HandlerContext, err error) {
	ctx.FireExceptionCaught(err)
}

// OutboundAdapter is a no-op pass-through api.OutboundHandler.
type OutboundAdapter struct {
	binding
}

var _ api.OutboundHandler = (*OutboundAdapter)(nil)

func (*OutboundAdapter) HandlerAdded(api.HandlerContext) error   { return nil }
func (*OutboundAdapter) HandlerRemoved(api.HandlerContext) error { return nil }

func (*OutboundAdapter) Bind(ctx api.HandlerContext, addr net.Addr, p api.Promise) {
	ForwardBind(ctx, addr, p)
}

func (*OutboundAdapter) Connect(ctx api.HandlerContext, remote, local net.Addr, p api.Promise) {
	ForwardConnect(ctx, remote, local, p)
}

func (*OutboundAdapter) Disconnect(ctx api.HandlerContext, p api.Promise) {
	ForwardDisconnect(ctx, p)
}

func (*OutboundAdapter) Close(ctx api.HandlerContext, p api.Promise) {
	ForwardClose(ctx, p)
}

func (*OutboundAdapter) Deregister(ctx api.HandlerContext, p api.Promise) {
	ForwardDeregister(ctx, p)
}

func (*OutboundAdapter) Read(ctx api.HandlerContext) {
	ctx.Read()
}

func (*OutboundAdapter) Write(ctx api.HandlerContext, msg any, p api.Promise) {
	ForwardWrite(ctx, msg, p)
}

func (*OutboundAdapter) Flush(ctx api.HandlerContext) {
	ctx.Flush()
}
