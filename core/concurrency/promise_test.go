// File: core/concurrency/promise_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/core/concurrency"
)

func TestPromiseSingleAssignment(t *testing.T) {
	p := concurrency.NewPromise()
	assert.True(t, p.TrySuccess("ok"))
	assert.False(t, p.TryFailure(errors.New("late")))
	assert.False(t, p.TryCancel())
	assert.True(t, p.IsDone())
	assert.NoError(t, p.Err())
	assert.Equal(t, "ok", p.Value())
}

func TestPromiseListenersObserveOutcomeOnce(t *testing.T) {
	p := concurrency.NewPromise()
	var calls atomic.Int32
	for i := 0; i < 3; i++ {
		p.AddListener(func(f api.Future) {
			require.NoError(t, f.Err())
			calls.Add(1)
		})
	}
	p.TrySuccess(nil)
	// Attached after completion: runs inline.
	p.AddListener(func(f api.Future) { calls.Add(1) })
	assert.Equal(t, int32(4), calls.Load())
}

func TestPromiseCancel(t *testing.T) {
	p := concurrency.NewPromise()
	require.True(t, p.TryCancel())
	assert.True(t, p.IsCanceled())
	assert.ErrorIs(t, p.Err(), api.ErrCanceled)
}

func TestPromiseAwait(t *testing.T) {
	p := concurrency.NewPromise()
	cause := errors.New("boom")
	go func() {
		time.Sleep(10 * time.Millisecond)
		p.TryFailure(cause)
	}()
	err := p.Await(context.Background())
	assert.ErrorIs(t, err, cause)

	stuck := concurrency.NewPromise()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, stuck.Await(ctx), context.DeadlineExceeded)
}

func TestPromiseConcurrentCompletion(t *testing.T) {
	p := concurrency.NewPromise()
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if p.TrySuccess(i) {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestTaskQueueOrder(t *testing.T) {
	q := concurrency.NewTaskQueue()
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		require.True(t, q.Push(func() { got = append(got, i) }))
	}
	for task := q.Pop(); task != nil; task = q.Pop() {
		task()
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)

	q.Close()
	assert.False(t, q.Push(func() {}))
}

func TestGoroutineIDStable(t *testing.T) {
	a := concurrency.GoroutineID()
	b := concurrency.GoroutineID()
	require.Positive(t, a)
	assert.Equal(t, a, b)

	other := make(chan int64, 1)
	go func() { other <- concurrency.GoroutineID() }()
	assert.NotEqual(t, a, <-other)
}
