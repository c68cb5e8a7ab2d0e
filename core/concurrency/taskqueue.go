// File: core/concurrency/taskqueue.go
// Package concurrency wraps the loop's pending-task FIFO.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The queue is an unbounded ring (eapache/queue) guarded by a mutex,
// with a one-slot wakeup channel so an idle loop parks cheaply and a
// burst of producers costs one wakeup.

package concurrency

import (
	"sync"

	"github.com/eapache/queue"
)

// TaskQueue is a multi-producer FIFO drained by a single loop goroutine.
type TaskQueue struct {
	mu     sync.Mutex
	tasks  *queue.Queue
	wakeup chan struct{}
	closed bool
}

// NewTaskQueue returns an empty queue.
func NewTaskQueue() *TaskQueue {
	return &TaskQueue{
		tasks:  queue.New(),
		wakeup: make(chan struct{}, 1),
	}
}

// Push enqueues a task; reports false after Close.
func (q *TaskQueue) Push(task func()) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.tasks.Add(task)
	q.mu.Unlock()

	select {
	case q.wakeup <- struct{}{}:
	default:
	}
	return true
}

// Pop dequeues the oldest task, nil when empty.
func (q *TaskQueue) Pop() func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.tasks.Length() == 0 {
		return nil
	}
	return q.tasks.Remove().(func())
}

// Len returns the number of pending tasks.
func (q *TaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tasks.Length()
}

// Wakeup is signalled after each Push while the queue is open.
func (q *TaskQueue) Wakeup() <-chan struct{} { return q.wakeup }

// Close rejects further pushes. Already queued tasks stay poppable so
// the loop can drain on shutdown.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}
