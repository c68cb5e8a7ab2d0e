// File: transport/pipe.go
// Package transport implements the connected in-memory pipe end.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"fmt"
	"net"
	"sync"

	"github.com/momentics/hioload-net/api"
)

// PipeEnd is one side of an in-memory duplex link.
type PipeEnd struct {
	mu      sync.Mutex
	ch      api.Channel
	peer    *PipeEnd
	local   net.Addr
	remote  net.Addr
	open    bool
	active  bool
	armed   bool
	pending []any
	outbox  []any
}

var _ api.Transport = (*PipeEnd)(nil)

// NewEnd returns an unconnected pipe end for a client channel.
func NewEnd() *PipeEnd {
	return &PipeEnd{open: true}
}

// Pipe returns two ends already linked and active, for tests that need
// a connection without the bootstrap machinery.
func Pipe() (*PipeEnd, *PipeEnd) {
	a := NewEnd()
	b := NewEnd()
	a.peer, b.peer = b, a
	a.active, b.active = true, true
	a.local, a.remote = Addr("pipe:a"), Addr("pipe:b")
	b.local, b.remote = Addr("pipe:b"), Addr("pipe:a")
	return a, b
}

// Attach hands the end its owning channel.
func (e *PipeEnd) Attach(ch api.Channel) {
	e.mu.Lock()
	e.ch = ch
	e.mu.Unlock()
}

// Bind is not supported on a pipe end; listeners bind.
func (e *PipeEnd) Bind(addr net.Addr) error {
	return fmt.Errorf("transport: pipe end cannot bind to %v", addr)
}

// Connect performs the registry rendezvous: the named listener receives
// a freshly linked peer end wrapped into an accepted child channel.
func (e *PipeEnd) Connect(remote, local net.Addr) error {
	e.mu.Lock()
	if !e.open {
		e.mu.Unlock()
		return api.ErrChannelClosed
	}
	if e.active {
		e.mu.Unlock()
		return fmt.Errorf("transport: pipe end already connected to %v", e.remote)
	}
	l, ok := lookupListener(remote.String())
	if !ok {
		e.mu.Unlock()
		return ErrConnectionRefused
	}
	server := NewEnd()
	if local == nil {
		local = Addr(fmt.Sprintf("client:%p", e))
	}
	e.peer = server
	e.local = local
	e.remote = remote
	e.active = true
	e.mu.Unlock()

	server.mu.Lock()
	server.peer = e
	server.local = remote
	server.remote = local
	server.active = true
	server.mu.Unlock()

	return l.accept(server)
}

// Disconnect tears the link down; pipes do not support reconnection, so
// this is a close in disguise.
func (e *PipeEnd) Disconnect() error { return e.Close() }

// Close releases the end and gracefully closes the peer's channel.
func (e *PipeEnd) Close() error {
	e.mu.Lock()
	if !e.open {
		e.mu.Unlock()
		return nil
	}
	e.open = false
	e.active = false
	peer := e.peer
	e.peer = nil
	e.mu.Unlock()

	if peer != nil {
		peer.onPeerClosed()
	}
	return nil
}

func (e *PipeEnd) onPeerClosed() {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return
	}
	e.peer = nil
	ch := e.ch
	if ch == nil {
		e.active = false
		e.mu.Unlock()
		return
	}
	// The end stays active until the close travels through the owning
	// channel, so its handlers observe the inactive transition.
	e.mu.Unlock()

	if loop := ch.EventLoop(); loop != nil {
		loop.Execute(func() { ch.Close() })
		return
	}
	ch.CloseForcibly()
}

// BeginRead arms the end for one inbound batch.
func (e *PipeEnd) BeginRead() error {
	e.mu.Lock()
	if !e.open {
		e.mu.Unlock()
		return api.ErrChannelClosed
	}
	e.armed = true
	e.mu.Unlock()
	e.deliver()
	return nil
}

// Write enqueues one message for the next flush.
func (e *PipeEnd) Write(msg any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.open || !e.active {
		return api.ErrChannelClosed
	}
	e.outbox = append(e.outbox, msg)
	return nil
}

// Flush hands the outbox to the peer and triggers its delivery.
func (e *PipeEnd) Flush() error {
	e.mu.Lock()
	if !e.open {
		e.mu.Unlock()
		return api.ErrChannelClosed
	}
	batch := e.outbox
	e.outbox = nil
	peer := e.peer
	e.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	if peer == nil {
		return api.ErrChannelClosed
	}
	peer.enqueue(batch)
	return nil
}

func (e *PipeEnd) enqueue(msgs []any) {
	e.mu.Lock()
	e.pending = append(e.pending, msgs...)
	ch := e.ch
	e.mu.Unlock()

	if ch == nil {
		return
	}
	if loop := ch.EventLoop(); loop != nil {
		loop.Execute(e.deliver)
	}
}

// deliver fires one armed batch into the pipeline. Runs on the
// channel's loop (BeginRead is issued there, enqueue marshals).
func (e *PipeEnd) deliver() {
	e.mu.Lock()
	if !e.armed || len(e.pending) == 0 || e.ch == nil {
		e.mu.Unlock()
		return
	}
	batch := e.pending
	e.pending = nil
	e.armed = false
	ch := e.ch
	e.mu.Unlock()

	pl := ch.Pipeline()
	for _, msg := range batch {
		pl.FireChannelRead(msg)
	}
	pl.FireChannelReadComplete()
}

func (e *PipeEnd) LocalAddr() net.Addr {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.local
}

func (e *PipeEnd) RemoteAddr() net.Addr {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remote
}

func (e *PipeEnd) IsOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.open
}

func (e *PipeEnd) IsActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}
