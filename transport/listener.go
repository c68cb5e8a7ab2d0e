// File: transport/listener.go
// Package transport implements the in-memory listening transport.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Accepted peers surface as child channels read from the listening
// channel's pipeline, which is exactly the shape the server bootstrap's
// acceptor consumes. Auto-read throttling on the listening channel
// therefore throttles accepts.

package transport

import (
	"fmt"
	"net"
	"sync"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/channel"
)

// Listener is the api.Transport of a listening channel.
type Listener struct {
	mu      sync.Mutex
	ch      api.Channel
	addr    net.Addr
	open    bool
	active  bool
	armed   bool
	backlog []api.Channel
}

var _ api.Transport = (*Listener)(nil)

// NewListener returns an unbound listening transport.
func NewListener() *Listener {
	return &Listener{open: true}
}

// Attach hands the listener its owning channel.
func (l *Listener) Attach(ch api.Channel) {
	l.mu.Lock()
	l.ch = ch
	l.mu.Unlock()
}

// Bind claims the address in the registry and activates the listener.
func (l *Listener) Bind(addr net.Addr) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.open {
		return api.ErrChannelClosed
	}
	if l.active {
		return fmt.Errorf("transport: listener already bound to %v", l.addr)
	}
	if err := registerListener(addr.String(), l); err != nil {
		return err
	}
	l.addr = addr
	l.active = true
	return nil
}

// accept wraps the server-side pipe end into a child channel and queues
// it for delivery through the listening channel's pipeline.
func (l *Listener) accept(server *PipeEnd) error {
	l.mu.Lock()
	if !l.open || !l.active || l.ch == nil {
		l.mu.Unlock()
		return ErrConnectionRefused
	}
	parent := l.ch
	l.mu.Unlock()

	child := channel.New(parent, server)

	l.mu.Lock()
	l.backlog = append(l.backlog, child)
	ch := l.ch
	l.mu.Unlock()

	if loop := ch.EventLoop(); loop != nil {
		loop.Execute(l.deliver)
	}
	return nil
}

// BeginRead arms the listener for one accept batch.
func (l *Listener) BeginRead() error {
	l.mu.Lock()
	if !l.open {
		l.mu.Unlock()
		return api.ErrChannelClosed
	}
	l.armed = true
	l.mu.Unlock()
	l.deliver()
	return nil
}

func (l *Listener) deliver() {
	l.mu.Lock()
	if !l.armed || len(l.backlog) == 0 || l.ch == nil {
		l.mu.Unlock()
		return
	}
	batch := l.backlog
	l.backlog = nil
	l.armed = false
	ch := l.ch
	l.mu.Unlock()

	pl := ch.Pipeline()
	for _, child := range batch {
		pl.FireChannelRead(child)
	}
	pl.FireChannelReadComplete()
}

// Connect is not supported on a listener.
func (l *Listener) Connect(remote, local net.Addr) error {
	return fmt.Errorf("transport: listener cannot connect")
}

// Disconnect is not supported on a listener.
func (l *Listener) Disconnect() error {
	return fmt.Errorf("transport: listener cannot disconnect")
}

// Close releases the address. Accepted children stay up.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.open {
		return nil
	}
	l.open = false
	l.active = false
	if l.addr != nil {
		unregisterListener(l.addr.String())
	}
	return nil
}

// Write is not supported on a listener.
func (l *Listener) Write(msg any) error {
	return fmt.Errorf("transport: listener cannot write")
}

// Flush is a no-op on a listener.
func (l *Listener) Flush() error { return nil }

func (l *Listener) LocalAddr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.addr
}

func (l *Listener) RemoteAddr() net.Addr { return nil }

func (l *Listener) IsOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open
}

func (l *Listener) IsActive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}
