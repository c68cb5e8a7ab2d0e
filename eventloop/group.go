// File: eventloop/group.go
// Package eventloop implements the loop group.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package eventloop

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"

	"github.com/momentics/hioload-net/api"
)

// Group owns a fixed set of loops and hands out registrations
// round-robin. The selection policy is deliberately dumb: channels are
// long-lived, so balance evens out across registrations.
type Group struct {
	loops []*Loop
	next  atomic.Uint64
}

var _ api.EventLoopGroup = (*Group)(nil)

// NewGroup starts n loops (GOMAXPROCS when n <= 0). Options apply to
// every loop; WithPinnedCPU pins loop i to cpu i.
func NewGroup(n int, opts ...Option) *Group {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	g := &Group{loops: make([]*Loop, n)}
	for i := 0; i < n; i++ {
		g.loops[i] = NewLoop(append([]Option{withParent(g)}, opts...)...)
	}
	return g
}

// PinnedGroup starts one pinned loop per CPU in cpus.
func PinnedGroup(cpus []int, opts ...Option) *Group {
	g := &Group{loops: make([]*Loop, len(cpus))}
	for i, cpu := range cpus {
		g.loops[i] = NewLoop(append([]Option{withParent(g), WithPinnedCPU(cpu)}, opts...)...)
	}
	return g
}

// Next selects the loop for the next registration, round-robin.
func (g *Group) Next() api.EventLoop {
	return g.loops[g.next.Add(1)%uint64(len(g.loops))]
}

// Register binds the channel to the loop chosen by Next.
func (g *Group) Register(ch api.Channel) api.Future {
	return g.Next().Register(ch)
}

// Shutdown stops every loop, draining their queued tasks.
func (g *Group) Shutdown(ctx context.Context) error {
	var errs []error
	for _, l := range g.loops {
		if err := l.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Size returns the number of loops in the group.
func (g *Group) Size() int { return len(g.loops) }
