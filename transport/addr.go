// File: transport/addr.go
// Package transport defines in-memory endpoint addresses.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"errors"
	"sync"
)

// Addr is an in-memory endpoint name.
type Addr string

// Network returns the synthetic network name.
func (Addr) Network() string { return "mem" }

func (a Addr) String() string { return string(a) }

// ErrConnectionRefused reports a connect to an address nobody listens on.
var ErrConnectionRefused = errors.New("transport: connection refused")

// ErrAddrInUse reports a bind to an address already taken.
var ErrAddrInUse = errors.New("transport: address already in use")

// registry is the process-wide rendezvous between listeners and
// connecting ends.
var registry sync.Map // string -> *Listener

func registerListener(name string, l *Listener) error {
	if _, loaded := registry.LoadOrStore(name, l); loaded {
		return ErrAddrInUse
	}
	return nil
}

func lookupListener(name string) (*Listener, bool) {
	v, ok := registry.Load(name)
	if !ok {
		return nil, false
	}
	return v.(*Listener), true
}

func unregisterListener(name string) { registry.Delete(name) }
