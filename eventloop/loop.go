// File: eventloop/loop.go
// Package eventloop implements the single-threaded execution context.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// One goroutine drains one task FIFO. Everything a registered channel
// does runs as a task here, which is what makes per-channel state safe
// without locks. Delayed tasks go through an injectable clock so tests
// drive time deterministically.

package eventloop

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/momentics/hioload-net/affinity"
	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/core/concurrency"
)

// Loop is the concrete api.EventLoop.
type Loop struct {
	tasks  *concurrency.TaskQueue
	clk    clock.Clock
	logger *slog.Logger
	parent api.EventLoopGroup

	gid      atomic.Int64
	pinCPU   int
	started  atomic.Bool
	shutdown chan struct{}
	done     chan struct{}
}

var _ api.EventLoop = (*Loop)(nil)

// Option customizes loop construction.
type Option func(*Loop)

// WithClock injects the time source, a mock clock in tests.
func WithClock(clk clock.Clock) Option {
	return func(l *Loop) { l.clk = clk }
}

// WithLogger sets the diagnostic sink.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) { l.logger = logger }
}

// WithPinnedCPU pins the loop's OS thread to the given logical CPU.
// Best-effort; failures are logged and the loop runs unpinned.
func WithPinnedCPU(cpuID int) Option {
	return func(l *Loop) { l.pinCPU = cpuID }
}

func withParent(g api.EventLoopGroup) Option {
	return func(l *Loop) { l.parent = g }
}

// NewLoop creates and starts a loop.
func NewLoop(opts ...Option) *Loop {
	l := &Loop{
		tasks:    concurrency.NewTaskQueue(),
		clk:      clock.New(),
		logger:   slog.Default(),
		pinCPU:   -1,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, o := range opts {
		o(l)
	}
	l.started.Store(true)
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.done)
	if l.pinCPU >= 0 {
		runtime.LockOSThread()
		if err := affinity.Pin(l.pinCPU); err != nil {
			l.logger.Warn("event loop cpu pinning failed", "cpu", l.pinCPU, "error", err)
		}
	}
	l.gid.Store(concurrency.GoroutineID())

	for {
		l.drain()
		select {
		case <-l.tasks.Wakeup():
		case <-l.shutdown:
			l.drain()
			return
		}
	}
}

func (l *Loop) drain() {
	for task := l.tasks.Pop(); task != nil; task = l.tasks.Pop() {
		l.safeRun(task)
	}
}

func (l *Loop) safeRun(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Warn("event loop task panicked", "panic", r)
		}
	}()
	task()
}

// InLoop reports whether the caller runs on this loop's goroutine.
func (l *Loop) InLoop() bool {
	return concurrency.GoroutineID() == l.gid.Load()
}

// Execute queues task for execution in submission order. Tasks given to
// a shut-down loop are dropped with a warning, never run elsewhere.
func (l *Loop) Execute(task func()) {
	if !l.tasks.Push(task) {
		l.logger.Warn("task submitted to shut down event loop, dropped")
	}
}

// Schedule runs task on the loop after delay.
func (l *Loop) Schedule(delay time.Duration, task func()) api.Timeout {
	t := l.clk.AfterFunc(delay, func() { l.Execute(task) })
	return (*timeout)(t)
}

type timeout clock.Timer

func (t *timeout) Cancel() bool { return (*clock.Timer)(t).Stop() }

// Register binds ch to this loop.
func (l *Loop) Register(ch api.Channel) api.Future {
	return ch.RegisterTo(l)
}

// Parent returns the owning group, nil for a standalone loop.
func (l *Loop) Parent() api.EventLoopGroup { return l.parent }

// Shutdown stops the loop after draining already queued tasks, waiting
// at most until ctx is done.
func (l *Loop) Shutdown(ctx context.Context) error {
	if l.started.CompareAndSwap(true, false) {
		l.tasks.Close()
		close(l.shutdown)
	}
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
