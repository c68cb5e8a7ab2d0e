// File: channel/channel.go
// Package channel implements the concrete channel.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A channel is created unregistered with its transport, pipeline,
// configuration and attribute map; a bootstrap (or test) later binds it
// to an event loop. The loop binding happens exactly once and all
// lifecycle transitions fire through the pipeline on that loop.

package channel

import (
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/core/concurrency"
)

type chann struct {
	id        string
	parent    api.Channel
	transport api.Transport
	logger    *slog.Logger

	pl    *pipeline
	cfg   *Config
	attrs attrMap

	loop       atomic.Value // api.EventLoop, set once
	registered atomic.Bool
	closing    atomic.Bool
	closeP     *concurrency.Promise
}

var _ api.Channel = (*chann)(nil)

// New creates an unregistered channel over the given transport. parent
// is the accepting listener for child channels, nil otherwise.
func New(parent api.Channel, tr api.Transport) api.Channel {
	return NewWithLogger(parent, tr, slog.Default())
}

// NewWithLogger is New with an explicit diagnostic sink.
func NewWithLogger(parent api.Channel, tr api.Transport, logger *slog.Logger) api.Channel {
	ch := &chann{
		id:        uuid.NewString(),
		parent:    parent,
		transport: tr,
		logger:    logger,
		closeP:    concurrency.NewPromise(),
	}
	ch.pl = newPipeline(ch)
	ch.cfg = newConfig(ch)
	tr.Attach(ch)
	return ch
}

func (ch *chann) ID() string                    { return ch.id }
func (ch *chann) Parent() api.Channel           { return ch.parent }
func (ch *chann) Config() api.Config            { return ch.cfg }
func (ch *chann) Attributes() api.AttributeMap  { return &ch.attrs }
func (ch *chann) Pipeline() api.Pipeline        { return ch.pl }
func (ch *chann) LocalAddr() net.Addr           { return ch.transport.LocalAddr() }
func (ch *chann) RemoteAddr() net.Addr          { return ch.transport.RemoteAddr() }
func (ch *chann) IsOpen() bool                  { return ch.transport.IsOpen() }
func (ch *chann) IsActive() bool                { return ch.transport.IsActive() }
func (ch *chann) IsRegistered() bool            { return ch.registered.Load() }
func (ch *chann) CloseFuture() api.Future       { return ch.closeP }

func (ch *chann) EventLoop() api.EventLoop {
	if l, ok := ch.loop.Load().(api.EventLoop); ok {
		return l
	}
	return nil
}

// RegisterTo binds the channel permanently to loop. The registration
// body runs on the loop, so the registered event and everything that
// follows already observe the thread-affinity invariant.
func (ch *chann) RegisterTo(loop api.EventLoop) api.Future {
	p := concurrency.NewPromise()
	if ch.EventLoop() != nil {
		p.TryFailure(api.ErrAlreadyRegistered)
		return p
	}
	if loop.InLoop() {
		ch.register0(loop, p)
	} else {
		loop.Execute(func() { ch.register0(loop, p) })
	}
	return p
}

func (ch *chann) register0(loop api.EventLoop, p api.Promise) {
	if !ch.loop.CompareAndSwap(nil, loop) {
		p.TryFailure(api.ErrAlreadyRegistered)
		return
	}
	if !ch.IsOpen() {
		p.TryFailure(api.ErrChannelClosed)
		return
	}
	ch.registered.Store(true)
	p.TrySuccess(ch)
	ch.pl.FireChannelRegistered()
	// Channels accepted by a listener arrive already connected; their
	// active event fires here, right after registration.
	if ch.transport.IsActive() {
		ch.pl.FireChannelActive()
	}
}

// ---- outbound entry points (full pipeline traversal) ----

func (ch *chann) Bind(addr net.Addr) api.Future            { return ch.pl.Bind(addr) }
func (ch *chann) Connect(remote, local net.Addr) api.Future { return ch.pl.Connect(remote, local) }
func (ch *chann) Disconnect() api.Future                   { return ch.pl.Disconnect() }
func (ch *chann) Close() api.Future                        { return ch.pl.Close() }
func (ch *chann) Deregister() api.Future                   { return ch.pl.Deregister() }
func (ch *chann) Read()                                    { ch.pl.Read() }
func (ch *chann) Write(msg any) api.Future                 { return ch.pl.Write(msg) }
func (ch *chann) WriteAndFlush(msg any) api.Future         { return ch.pl.WriteAndFlush(msg) }
func (ch *chann) Flush()                                   { ch.pl.Flush() }

// CloseForcibly tears down the transport without pipeline traversal.
// Meant for setup failures on channels no loop owns yet.
func (ch *chann) CloseForcibly() {
	ch.closing.Store(true)
	if err := ch.transport.Close(); err != nil {
		ch.logger.Warn("forced transport close failed", "channel", ch.id, "error", err)
	}
	ch.closeP.TrySuccess(ch)
}

// ---- head-delegated operations ----

func (ch *chann) close0(p api.Promise) {
	if !ch.closing.CompareAndSwap(false, true) {
		// A close is already in flight; follow its outcome.
		ch.closeP.Cascade(p)
		return
	}
	wasActive := ch.transport.IsActive()
	if err := ch.transport.Close(); err != nil {
		ch.logger.Warn("transport close failed", "channel", ch.id, "error", err)
	}
	if wasActive {
		ch.pl.FireChannelInactive()
	}
	if ch.registered.CompareAndSwap(true, false) {
		ch.pl.FireChannelUnregistered()
	}
	ch.closeP.TrySuccess(ch)
	p.TrySuccess(ch)
}

func (ch *chann) disconnect0(p api.Promise) {
	wasActive := ch.transport.IsActive()
	if err := ch.transport.Disconnect(); err != nil {
		p.TryFailure(err)
		return
	}
	if wasActive {
		ch.pl.FireChannelInactive()
	}
	p.TrySuccess(ch)
}

func (ch *chann) deregister0(p api.Promise) {
	if !ch.registered.CompareAndSwap(true, false) {
		p.TryFailure(api.ErrNotRegistered)
		return
	}
	ch.pl.FireChannelUnregistered()
	p.TrySuccess(ch)
}
