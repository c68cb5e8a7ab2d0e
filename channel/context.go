// File: channel/context.go
// Package channel implements the handler-context chain node.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Each context is a propagation cursor. Inbound events walk forward over
// next links to the nearest inbound-capable context; outbound operations
// walk backward over prev links to the nearest outbound-capable context.
// Capability flags are resolved once, when the context is created, so
// the walk is a plain pointer chase. Every invocation is marshaled onto
// the channel's loop; a handler error or panic turns into an
// exception-caught event at the failing context.

package channel

import (
	"fmt"
	"net"
	"sync/atomic"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/core/concurrency"
)

type handlerContext struct {
	name     string
	handler  api.Handler
	pipeline *pipeline
	prev     *handlerContext
	next     *handlerContext

	inbound  bool
	outbound bool
	removed  atomic.Bool
}

var _ api.HandlerContext = (*handlerContext)(nil)

func newContext(pl *pipeline, name string, h api.Handler) *handlerContext {
	_, in := h.(api.InboundHandler)
	_, out := h.(api.OutboundHandler)
	return &handlerContext{
		name:     name,
		handler:  h,
		pipeline: pl,
		inbound:  in,
		outbound: out,
	}
}

func (c *handlerContext) Name() string             { return c.name }
func (c *handlerContext) Handler() api.Handler     { return c.handler }
func (c *handlerContext) Channel() api.Channel     { return c.pipeline.ch }
func (c *handlerContext) Pipeline() api.Pipeline   { return c.pipeline }
func (c *handlerContext) EventLoop() api.EventLoop { return c.pipeline.ch.EventLoop() }
func (c *handlerContext) Removed() bool            { return c.removed.Load() }

// run executes fn on the channel's loop, inline when already there or
// when the channel has no loop yet.
func (c *handlerContext) run(fn func()) {
	if loop := c.pipeline.ch.EventLoop(); loop != nil && !loop.InLoop() {
		loop.Execute(fn)
		return
	}
	fn()
}

func (c *handlerContext) nextInbound() *handlerContext {
	c.pipeline.mu.RLock()
	defer c.pipeline.mu.RUnlock()
	for n := c.next; n != nil; n = n.next {
		if n.inbound {
			return n
		}
	}
	return nil
}

func (c *handlerContext) prevOutbound() *handlerContext {
	c.pipeline.mu.RLock()
	defer c.pipeline.mu.RUnlock()
	for p := c.prev; p != nil; p = p.prev {
		if p.outbound {
			return p
		}
	}
	return nil
}

// protect converts a handler panic into an error so dispatch faults are
// never silently swallowed and never unwind the loop.
func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return fn()
}

// ---- inbound propagation ----

func (c *handlerContext) FireChannelRegistered() api.HandlerContext {
	if n := c.nextInbound(); n != nil {
		n.invokeChannelRegistered()
	}
	return c
}

func (c *handlerContext) invokeChannelRegistered() {
	c.run(func() {
		h := c.handler.(api.InboundHandler)
		if err := protect(func() error { return h.ChannelRegistered(c) }); err != nil {
			c.invokeExceptionCaught(err)
		}
	})
}

func (c *handlerContext) FireChannelUnregistered() api.HandlerContext {
	if n := c.nextInbound(); n != nil {
		n.invokeChannelUnregistered()
	}
	return c
}

func (c *handlerContext) invokeChannelUnregistered() {
	c.run(func() {
		h := c.handler.(api.InboundHandler)
		if err := protect(func() error { return h.ChannelUnregistered(c) }); err != nil {
			c.invokeExceptionCaught(err)
		}
	})
}

func (c *handlerContext) FireChannelActive() api.HandlerContext {
	if n := c.nextInbound(); n != nil {
		n.invokeChannelActive()
	}
	return c
}

func (c *handlerContext) invokeChannelActive() {
	c.run(func() {
		h := c.handler.(api.InboundHandler)
		if err := protect(func() error { return h.ChannelActive(c) }); err != nil {
			c.invokeExceptionCaught(err)
		}
	})
}

func (c *handlerContext) FireChannelInactive() api.HandlerContext {
	if n := c.nextInbound(); n != nil {
		n.invokeChannelInactive()
	}
	return c
}

func (c *handlerContext) invokeChannelInactive() {
	c.run(func() {
		h := c.handler.(api.InboundHandler)
		if err := protect(func() error { return h.ChannelInactive(c) }); err != nil {
			c.invokeExceptionCaught(err)
		}
	})
}

func (c *handlerContext) FireChannelRead(msg any) api.HandlerContext {
	if n := c.nextInbound(); n != nil {
		n.invokeChannelRead(msg)
	}
	return c
}

func (c *handlerContext) invokeChannelRead(msg any) {
	c.run(func() {
		h := c.handler.(api.InboundHandler)
		if err := protect(func() error { return h.ChannelRead(c, msg) }); err != nil {
			c.invokeExceptionCaught(err)
		}
	})
}

func (c *handlerContext) FireChannelReadComplete() api.HandlerContext {
	if n := c.nextInbound(); n != nil {
		n.invokeChannelReadComplete()
	}
	return c
}

func (c *handlerContext) invokeChannelReadComplete() {
	c.run(func() {
		h := c.handler.(api.InboundHandler)
		if err := protect(func() error { return h.ChannelReadComplete(c) }); err != nil {
			c.invokeExceptionCaught(err)
		}
	})
}

func (c *handlerContext) FireWritabilityChanged() api.HandlerContext {
	if n := c.nextInbound(); n != nil {
		n.invokeWritabilityChanged()
	}
	return c
}

func (c *handlerContext) invokeWritabilityChanged() {
	c.run(func() {
		h := c.handler.(api.InboundHandler)
		if err := protect(func() error { return h.WritabilityChanged(c) }); err != nil {
			c.invokeExceptionCaught(err)
		}
	})
}

func (c *handlerContext) FireUserEventTriggered(evt any) api.HandlerContext {
	if n := c.nextInbound(); n != nil {
		n.invokeUserEventTriggered(evt)
	}
	return c
}

func (c *handlerContext) invokeUserEventTriggered(evt any) {
	c.run(func() {
		h := c.handler.(api.InboundHandler)
		if err := protect(func() error { return h.UserEventTriggered(c, evt) }); err != nil {
			c.invokeExceptionCaught(err)
		}
	})
}

func (c *handlerContext) FireExceptionCaught(err error) api.HandlerContext {
	if n := c.nextInbound(); n != nil {
		n.invokeExceptionCaught(err)
	}
	return c
}

// invokeExceptionCaught delivers err to this context's own handler. The
// handler that raised an error observes it first, then decides whether
// to forward.
func (c *handlerContext) invokeExceptionCaught(err error) {
	c.run(func() {
		h, ok := c.handler.(api.InboundHandler)
		if !ok {
			c.FireExceptionCaught(err)
			return
		}
		if perr := protect(func() error { h.ExceptionCaught(c, err); return nil }); perr != nil {
			c.pipeline.logger().Warn("exception handler failed",
				"channel", c.pipeline.ch.ID(), "name", c.name, "error", perr, "cause", err)
		}
	})
}

// ---- outbound propagation ----

func (c *handlerContext) Bind(addr net.Addr) api.Future {
	p := concurrency.NewPromise()
	c.bind(addr, p)
	return p
}

func (c *handlerContext) bind(addr net.Addr, p api.Promise) {
	if prev := c.prevOutbound(); prev != nil {
		prev.invokeBind(addr, p)
	} else {
		p.TryFailure(api.ErrChannelClosed)
	}
}

func (c *handlerContext) invokeBind(addr net.Addr, p api.Promise) {
	c.run(func() {
		h := c.handler.(api.OutboundHandler)
		if err := protect(func() error { h.Bind(c, addr, p); return nil }); err != nil {
			p.TryFailure(err)
		}
	})
}

func (c *handlerContext) Connect(remote, local net.Addr) api.Future {
	p := concurrency.NewPromise()
	c.connect(remote, local, p)
	return p
}

func (c *handlerContext) connect(remote, local net.Addr, p api.Promise) {
	if prev := c.prevOutbound(); prev != nil {
		prev.invokeConnect(remote, local, p)
	} else {
		p.TryFailure(api.ErrChannelClosed)
	}
}

func (c *handlerContext) invokeConnect(remote, local net.Addr, p api.Promise) {
	c.run(func() {
		h := c.handler.(api.OutboundHandler)
		if err := protect(func() error { h.Connect(c, remote, local, p); return nil }); err != nil {
			p.TryFailure(err)
		}
	})
}

func (c *handlerContext) Disconnect() api.Future {
	p := concurrency.NewPromise()
	c.disconnect(p)
	return p
}

func (c *handlerContext) disconnect(p api.Promise) {
	if prev := c.prevOutbound(); prev != nil {
		prev.invokeDisconnect(p)
	} else {
		p.TryFailure(api.ErrChannelClosed)
	}
}

func (c *handlerContext) invokeDisconnect(p api.Promise) {
	c.run(func() {
		h := c.handler.(api.OutboundHandler)
		if err := protect(func() error { h.Disconnect(c, p); return nil }); err != nil {
			p.TryFailure(err)
		}
	})
}

func (c *handlerContext) Close() api.Future {
	p := concurrency.NewPromise()
	c.close(p)
	return p
}

func (c *handlerContext) close(p api.Promise) {
	if prev := c.prevOutbound(); prev != nil {
		prev.invokeClose(p)
	} else {
		p.TrySuccess(c.pipeline.ch)
	}
}

func (c *handlerContext) invokeClose(p api.Promise) {
	c.run(func() {
		h := c.handler.(api.OutboundHandler)
		if err := protect(func() error { h.Close(c, p); return nil }); err != nil {
			p.TryFailure(err)
		}
	})
}

func (c *handlerContext) Deregister() api.Future {
	p := concurrency.NewPromise()
	c.deregister(p)
	return p
}

func (c *handlerContext) deregister(p api.Promise) {
	if prev := c.prevOutbound(); prev != nil {
		prev.invokeDeregister(p)
	} else {
		p.TryFailure(api.ErrNotRegistered)
	}
}

func (c *handlerContext) invokeDeregister(p api.Promise) {
	c.run(func() {
		h := c.handler.(api.OutboundHandler)
		if err := protect(func() error { h.Deregister(c, p); return nil }); err != nil {
			p.TryFailure(err)
		}
	})
}

func (c *handlerContext) Read() {
	if prev := c.prevOutbound(); prev != nil {
		prev.invokeRead()
	}
}

func (c *handlerContext) invokeRead() {
	c.run(func() {
		h := c.handler.(api.OutboundHandler)
		if err := protect(func() error { h.Read(c); return nil }); err != nil {
			c.invokeExceptionCaught(err)
		}
	})
}

func (c *handlerContext) Write(msg any) api.Future {
	p := concurrency.NewPromise()
	c.write(msg, p)
	return p
}

func (c *handlerContext) write(msg any, p api.Promise) {
	if prev := c.prevOutbound(); prev != nil {
		prev.invokeWrite(msg, p)
	} else {
		p.TryFailure(api.ErrChannelClosed)
	}
}

func (c *handlerContext) invokeWrite(msg any, p api.Promise) {
	c.run(func() {
		h := c.handler.(api.OutboundHandler)
		if err := protect(func() error { h.Write(c, msg, p); return nil }); err != nil {
			p.TryFailure(err)
		}
	})
}

func (c *handlerContext) WriteAndFlush(msg any) api.Future {
	p := concurrency.NewPromise()
	c.write(msg, p)
	c.Flush()
	return p
}

func (c *handlerContext) Flush() {
	if prev := c.prevOutbound(); prev != nil {
		prev.invokeFlush()
	}
}

func (c *handlerContext) invokeFlush() {
	c.run(func() {
		h := c.handler.(api.OutboundHandler)
		if err := protect(func() error { h.Flush(c); return nil }); err != nil {
			c.invokeExceptionCaught(err)
		}
	})
}

// ---- forwarding with an existing promise ----
//
// Interceptors embedding OutboundAdapter keep the caller's promise alive
// across the remaining chain with these helpers instead of opening a new
// future via the ctx methods.

func ForwardBind(ctx api.HandlerContext, addr net.Addr, p api.Promise) {
	ctx.(*handlerContext).bind(addr, p)
}

func ForwardConnect(ctx api.HandlerContext, remote, local net.Addr, p api.Promise) {
	ctx.(*handlerContext).connect(remote, local, p)
}

func ForwardDisconnect(ctx api.HandlerContext, p api.Promise) {
	ctx.(*handlerContext).disconnect(p)
}

func ForwardClose(ctx api.HandlerContext, p api.Promise) {
	ctx.(*handlerContext).close(p)
}

func ForwardDeregister(ctx api.HandlerContext, p api.Promise) {
	ctx.(*handlerContext).deregister(p)
}

func ForwardWrite(ctx api.HandlerContext, msg any, p api.Promise) {
	ctx.(*handlerContext).write(msg, p)
}
