// File: channel/pipeline.go
// Package channel implements the handler pipeline.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The pipeline owns the context chain of one channel. Mutation is
// guarded by a read-write mutex; propagation walks take the read side.
// Sentinel contexts are installed at construction and never removed:
// head bridges outbound operations to the transport, tail logs inbound
// leftovers.

package channel

import (
	"fmt"
	"log/slog"
	"net"
	"reflect"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/momentics/hioload-net/api"
)

const (
	headName = "head"
	tailName = "tail"
)

type pipeline struct {
	ch    *chann
	mu    sync.RWMutex
	head  *handlerContext
	tail  *handlerContext
	named map[string]*handlerContext
}

var _ api.Pipeline = (*pipeline)(nil)

func newPipeline(ch *chann) *pipeline {
	pl := &pipeline{ch: ch, named: make(map[string]*handlerContext)}
	pl.head = newContext(pl, headName, &headHandler{pl: pl})
	pl.tail = newContext(pl, tailName, &tailHandler{pl: pl})
	pl.head.next = pl.tail
	pl.tail.prev = pl.head
	// Sentinel names are reserved.
	pl.named[headName] = pl.head
	pl.named[tailName] = pl.tail
	return pl
}

func (pl *pipeline) logger() *slog.Logger { return pl.ch.logger }

func (pl *pipeline) Channel() api.Channel { return pl.ch }

// ---- mutation ----

func (pl *pipeline) AddFirst(name string, h api.Handler) error {
	return pl.insertAfter(func() *handlerContext { return pl.head }, name, h)
}

func (pl *pipeline) AddLast(name string, h api.Handler) error {
	return pl.insertAfter(func() *handlerContext { return pl.tail.prev }, name, h)
}

func (pl *pipeline) AddBefore(anchor, name string, h api.Handler) error {
	return pl.insertAfter(func() *handlerContext {
		if a := pl.userContextLocked(anchor); a != nil {
			return a.prev
		}
		return nil
	}, name, h)
}

func (pl *pipeline) AddAfter(anchor, name string, h api.Handler) error {
	return pl.insertAfter(func() *handlerContext { return pl.userContextLocked(anchor) }, name, h)
}

// userContextLocked resolves an anchor name, excluding sentinels.
func (pl *pipeline) userContextLocked(name string) *handlerContext {
	if name == headName || name == tailName {
		return nil
	}
	return pl.named[name]
}

// insertAfter links a new context after the anchor produced by pick,
// which is evaluated under the chain lock. The chain is untouched when
// any check fails.
func (pl *pipeline) insertAfter(pick func() *handlerContext, name string, h api.Handler) error {
	pl.mu.Lock()
	after := pick()
	if after == nil {
		pl.mu.Unlock()
		return fmt.Errorf("pipeline: anchor: %w", api.ErrNotFound)
	}
	if name == "" {
		name = pl.generateNameLocked(h)
	} else if _, exists := pl.named[name]; exists {
		pl.mu.Unlock()
		return fmt.Errorf("pipeline: %q: %w", name, api.ErrDuplicateName)
	}
	ctx := newContext(pl, name, h)
	if err := acquireHandler(h, ctx); err != nil {
		pl.mu.Unlock()
		return fmt.Errorf("pipeline: %q: %w", name, err)
	}
	ctx.prev = after
	ctx.next = after.next
	after.next.prev = ctx
	after.next = ctx
	pl.named[name] = ctx
	pl.mu.Unlock()

	return pl.callHandlerAdded(ctx)
}

// callHandlerAdded runs the added hook, inline when possible. A hook
// failure rolls the insert back and surfaces through the exception path
// when it cannot be returned to the caller.
func (pl *pipeline) callHandlerAdded(ctx *handlerContext) error {
	loop := pl.ch.EventLoop()
	if loop == nil || loop.InLoop() {
		err := protect(func() error { return ctx.handler.HandlerAdded(ctx) })
		if err != nil {
			pl.removeContext(ctx)
			return fmt.Errorf("pipeline: handler added hook: %w", err)
		}
		return nil
	}
	loop.Execute(func() {
		// The context may have been unlinked between the insert and
		// this task running; a removed handler gets no added hook.
		if ctx.removed.Load() {
			return
		}
		if err := protect(func() error { return ctx.handler.HandlerAdded(ctx) }); err != nil {
			pl.removeContext(ctx)
			pl.FireExceptionCaught(fmt.Errorf("pipeline: handler added hook: %w", err))
		}
	})
	return nil
}

func (pl *pipeline) Remove(name string) (api.Handler, error) {
	pl.mu.Lock()
	ctx := pl.userContextLocked(name)
	if ctx == nil {
		pl.mu.Unlock()
		return nil, fmt.Errorf("pipeline: %q: %w", name, api.ErrNotFound)
	}
	pl.unlinkLocked(ctx)
	pl.mu.Unlock()
	pl.callHandlerRemoved(ctx)
	return ctx.handler, nil
}

func (pl *pipeline) RemoveHandler(h api.Handler) error {
	pl.mu.Lock()
	var ctx *handlerContext
	for c := pl.head.next; c != pl.tail; c = c.next {
		if c.handler == h {
			ctx = c
			break
		}
	}
	if ctx == nil {
		pl.mu.Unlock()
		return fmt.Errorf("pipeline: handler: %w", api.ErrNotFound)
	}
	pl.unlinkLocked(ctx)
	pl.mu.Unlock()
	pl.callHandlerRemoved(ctx)
	return nil
}

func (pl *pipeline) RemoveType(typ reflect.Type) (api.Handler, error) {
	pl.mu.Lock()
	var ctx *handlerContext
	for c := pl.head.next; c != pl.tail; c = c.next {
		if reflect.TypeOf(c.handler) == typ {
			ctx = c
			break
		}
	}
	if ctx == nil {
		pl.mu.Unlock()
		return nil, fmt.Errorf("pipeline: %v: %w", typ, api.ErrNotFound)
	}
	pl.unlinkLocked(ctx)
	pl.mu.Unlock()
	pl.callHandlerRemoved(ctx)
	return ctx.handler, nil
}

func (pl *pipeline) RemoveFirst() (api.Handler, error) {
	return pl.removeEnd(func() *handlerContext { return pl.head.next })
}

func (pl *pipeline) RemoveLast() (api.Handler, error) {
	return pl.removeEnd(func() *handlerContext { return pl.tail.prev })
}

func (pl *pipeline) removeEnd(pick func() *handlerContext) (api.Handler, error) {
	pl.mu.Lock()
	ctx := pick()
	if ctx == pl.head || ctx == pl.tail {
		pl.mu.Unlock()
		return nil, api.ErrPipelineEmpty
	}
	pl.unlinkLocked(ctx)
	pl.mu.Unlock()
	pl.callHandlerRemoved(ctx)
	return ctx.handler, nil
}

// removeContext is the rollback path for failed added hooks.
func (pl *pipeline) removeContext(ctx *handlerContext) {
	pl.mu.Lock()
	if !ctx.removed.Load() {
		pl.unlinkLocked(ctx)
	}
	pl.mu.Unlock()
}

func (pl *pipeline) unlinkLocked(ctx *handlerContext) {
	ctx.prev.next = ctx.next
	ctx.next.prev = ctx.prev
	delete(pl.named, ctx.name)
	ctx.removed.Store(true)
	releaseHandler(ctx.handler, ctx)
}

func (pl *pipeline) callHandlerRemoved(ctx *handlerContext) {
	run := func() {
		if err := protect(func() error { return ctx.handler.HandlerRemoved(ctx) }); err != nil {
			pl.logger().Warn("handler removed hook failed",
				"channel", pl.ch.ID(), "name", ctx.name, "error", err)
		}
	}
	if loop := pl.ch.EventLoop(); loop != nil && !loop.InLoop() {
		loop.Execute(run)
		return
	}
	run()
}

func (pl *pipeline) Replace(old, newName string, h api.Handler) (api.Handler, error) {
	pl.mu.Lock()
	octx := pl.userContextLocked(old)
	if octx == nil {
		pl.mu.Unlock()
		return nil, fmt.Errorf("pipeline: %q: %w", old, api.ErrNotFound)
	}
	if newName == "" {
		newName = pl.generateNameLocked(h)
	} else if newName != old {
		if _, exists := pl.named[newName]; exists {
			pl.mu.Unlock()
			return nil, fmt.Errorf("pipeline: %q: %w", newName, api.ErrDuplicateName)
		}
	}
	nctx := newContext(pl, newName, h)
	if err := acquireHandler(h, nctx); err != nil {
		pl.mu.Unlock()
		return nil, fmt.Errorf("pipeline: %q: %w", newName, err)
	}
	nctx.prev = octx.prev
	nctx.next = octx.next
	octx.prev.next = nctx
	octx.next.prev = nctx
	delete(pl.named, old)
	octx.removed.Store(true)
	releaseHandler(octx.handler, octx)
	pl.named[newName] = nctx
	pl.mu.Unlock()

	pl.callHandlerRemoved(octx)
	if err := pl.callHandlerAdded(nctx); err != nil {
		return nil, err
	}
	return octx.handler, nil
}

// ---- enumeration ----

func (pl *pipeline) Context(name string) api.HandlerContext {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	ctx := pl.userContextLocked(name)
	if ctx == nil {
		return nil
	}
	return ctx
}

func (pl *pipeline) ContextOf(h api.Handler) api.HandlerContext {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	for c := pl.head.next; c != pl.tail; c = c.next {
		if c.handler == h {
			return c
		}
	}
	return nil
}

func (pl *pipeline) Names() []string {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	var names []string
	for c := pl.head.next; c != pl.tail; c = c.next {
		names = append(names, c.name)
	}
	return names
}

// ---- event origination ----

func (pl *pipeline) FireChannelRegistered() api.Pipeline {
	pl.head.invokeChannelRegistered()
	return pl
}

func (pl *pipeline) FireChannelUnregistered() api.Pipeline {
	pl.head.invokeChannelUnregistered()
	return pl
}

func (pl *pipeline) FireChannelActive() api.Pipeline {
	pl.head.invokeChannelActive()
	return pl
}

func (pl *pipeline) FireChannelInactive() api.Pipeline {
	pl.head.invokeChannelInactive()
	return pl
}

func (pl *pipeline) FireChannelRead(msg any) api.Pipeline {
	pl.head.invokeChannelRead(msg)
	return pl
}

func (pl *pipeline) FireChannelReadComplete() api.Pipeline {
	pl.head.invokeChannelReadComplete()
	return pl
}

func (pl *pipeline) FireWritabilityChanged() api.Pipeline {
	pl.head.invokeWritabilityChanged()
	return pl
}

func (pl *pipeline) FireUserEventTriggered(evt any) api.Pipeline {
	pl.head.invokeUserEventTriggered(evt)
	return pl
}

func (pl *pipeline) FireExceptionCaught(err error) api.Pipeline {
	pl.head.invokeExceptionCaught(err)
	return pl
}

func (pl *pipeline) Bind(addr net.Addr) api.Future         { return pl.tail.Bind(addr) }
func (pl *pipeline) Connect(r, l net.Addr) api.Future      { return pl.tail.Connect(r, l) }
func (pl *pipeline) Disconnect() api.Future                { return pl.tail.Disconnect() }
func (pl *pipeline) Close() api.Future                     { return pl.tail.Close() }
func (pl *pipeline) Deregister() api.Future                { return pl.tail.Deregister() }
func (pl *pipeline) Read()                                 { pl.tail.Read() }
func (pl *pipeline) Write(msg any) api.Future              { return pl.tail.Write(msg) }
func (pl *pipeline) WriteAndFlush(msg any) api.Future      { return pl.tail.WriteAndFlush(msg) }
func (pl *pipeline) Flush()                                { pl.tail.Flush() }

// ---- name generation ----

// nameCache memoizes the derived base name per handler type; the LRU
// bound keeps dynamically generated handler types from pinning memory.
var nameCache, _ = lru.New[reflect.Type, string](64)

func typeBaseName(h api.Handler) string {
	t := reflect.TypeOf(h)
	if base, ok := nameCache.Get(t); ok {
		return base
	}
	e := t
	for e.Kind() == reflect.Ptr {
		e = e.Elem()
	}
	base := strings.ToLower(e.Name())
	if base == "" {
		base = "handler"
	}
	nameCache.Add(t, base)
	return base
}

func (pl *pipeline) generateNameLocked(h api.Handler) string {
	base := typeBaseName(h)
	for i := 0; ; i++ {
		cand := fmt.Sprintf("%s#%d", base, i)
		if _, exists := pl.named[cand]; !exists {
			return cand
		}
	}
}

// ---- non-shareable handler tracking ----

// Handlers embedding one of the adapters carry their binding state
// inline. bindings is the fallback for handlers that implement the
// interfaces directly; it keys on identity, so such handlers must not
// be zero-size.
var bindings sync.Map // api.Handler -> *handlerContext

func acquireHandler(h api.Handler, ctx *handlerContext) error {
	ns, ok := h.(api.NonShareable)
	if !ok || ns.Shareable() {
		return nil
	}
	if b, ok := h.(interface{ tryBind() bool }); ok {
		if !b.tryBind() {
			return api.ErrHandlerReused
		}
		return nil
	}
	if _, loaded := bindings.LoadOrStore(h, ctx); loaded {
		return api.ErrHandlerReused
	}
	return nil
}

func releaseHandler(h api.Handler, ctx *handlerContext) {
	if b, ok := h.(interface{ unbind() }); ok {
		b.unbind()
		return
	}
	bindings.CompareAndDelete(h, ctx)
}

// ---- sentinels ----

// headHandler bridges the pipeline to the channel's transport. Inbound
// events enter the chain through it; outbound operations terminate in
// it. It also triggers read requests when auto-read is on.
type headHandler struct {
	pl *pipeline
}

var (
	_ api.InboundHandler  = (*headHandler)(nil)
	_ api.OutboundHandler = (*headHandler)(nil)
)

func (*headHandler) HandlerAdded(api.HandlerContext) error   { return nil }
func (*headHandler) HandlerRemoved(api.HandlerContext) error { return nil }

func (h *headHandler) ChannelRegistered(ctx api.HandlerContext) error {
	ctx.FireChannelRegistered()
	return nil
}

func (h *headHandler) ChannelUnregistered(ctx api.HandlerContext) error {
	ctx.FireChannelUnregistered()
	return nil
}

func (h *headHandler) ChannelActive(ctx api.HandlerContext) error {
	ctx.FireChannelActive()
	h.readIfAutoRead()
	return nil
}

func (h *headHandler) ChannelInactive(ctx api.HandlerContext) error {
	ctx.FireChannelInactive()
	return nil
}

func (h *headHandler) ChannelRead(ctx api.HandlerContext, msg any) error {
	ctx.FireChannelRead(msg)
	return nil
}

func (h *headHandler) ChannelReadComplete(ctx api.HandlerContext) error {
	ctx.FireChannelReadComplete()
	h.readIfAutoRead()
	return nil
}

func (h *headHandler) WritabilityChanged(ctx api.HandlerContext) error {
	ctx.FireWritabilityChanged()
	return nil
}

func (h *headHandler) UserEventTriggered(ctx api.HandlerContext, evt any) error {
	ctx.FireUserEventTriggered(evt)
	return nil
}

func (h *headHandler) ExceptionCaught(ctx api.HandlerContext, err error) {
	ctx.FireExceptionCaught(err)
}

func (h *headHandler) readIfAutoRead() {
	if h.pl.ch.Config().AutoRead() {
		h.pl.ch.Read()
	}
}

func (h *headHandler) Bind(ctx api.HandlerContext, addr net.Addr, p api.Promise) {
	ch := h.pl.ch
	if err := ch.transport.Bind(addr); err != nil {
		p.TryFailure(err)
		return
	}
	p.TrySuccess(ch)
	if ch.transport.IsActive() {
		h.pl.FireChannelActive()
	}
}

func (h *headHandler) Connect(ctx api.HandlerContext, remote, local net.Addr, p api.Promise) {
	ch := h.pl.ch
	if err := ch.transport.Connect(remote, local); err != nil {
		p.TryFailure(err)
		return
	}
	p.TrySuccess(ch)
	if ch.transport.IsActive() {
		h.pl.FireChannelActive()
	}
}

func (h *headHandler) Disconnect(ctx api.HandlerContext, p api.Promise) {
	h.pl.ch.disconnect0(p)
}

func (h *headHandler) Close(ctx api.HandlerContext, p api.Promise) {
	h.pl.ch.close0(p)
}

func (h *headHandler) Deregister(ctx api.HandlerContext, p api.Promise) {
	h.pl.ch.deregister0(p)
}

func (h *headHandler) Read(ctx api.HandlerContext) {
	if err := h.pl.ch.transport.BeginRead(); err != nil {
		ctx.FireExceptionCaught(err)
	}
}

func (h *headHandler) Write(ctx api.HandlerContext, msg any, p api.Promise) {
	if err := h.pl.ch.transport.Write(msg); err != nil {
		p.TryFailure(err)
		return
	}
	p.TrySuccess(h.pl.ch)
}

func (h *headHandler) Flush(ctx api.HandlerContext) {
	if err := h.pl.ch.transport.Flush(); err != nil {
		ctx.FireExceptionCaught(err)
	}
}

// tailHandler terminates inbound propagation. Events reaching it were
// consumed by nobody, which is worth a warning but never fatal.
type tailHandler struct {
	pl *pipeline
}

var _ api.InboundHandler = (*tailHandler)(nil)

func (*tailHandler) HandlerAdded(api.HandlerContext) error   { return nil }
func (*tailHandler) HandlerRemoved(api.HandlerContext) error { return nil }

func (t *tailHandler) ChannelRegistered(api.HandlerContext) error   { return nil }
func (t *tailHandler) ChannelUnregistered(api.HandlerContext) error { return nil }
func (t *tailHandler) ChannelActive(api.HandlerContext) error       { return nil }
func (t *tailHandler) ChannelInactive(api.HandlerContext) error     { return nil }

func (t *tailHandler) ChannelRead(ctx api.HandlerContext, msg any) error {
	t.pl.logger().Warn("discarded inbound message that reached the pipeline tail",
		"channel", t.pl.ch.ID(), "message", fmt.Sprintf("%T", msg))
	return nil
}

func (t *tailHandler) ChannelReadComplete(api.HandlerContext) error { return nil }
func (t *tailHandler) WritabilityChanged(api.HandlerContext) error  { return nil }

func (t *tailHandler) UserEventTriggered(ctx api.HandlerContext, evt any) error {
	t.pl.logger().Warn("discarded user event that reached the pipeline tail",
		"channel", t.pl.ch.ID(), "event", fmt.Sprintf("%T", evt))
	return nil
}

func (t *tailHandler) ExceptionCaught(ctx api.HandlerContext, err error) {
	t.pl.logger().Warn("unhandled exception reached the pipeline tail",
		"channel", t.pl.ch.ID(), "error", err)
}
