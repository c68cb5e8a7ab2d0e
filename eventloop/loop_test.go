// File: eventloop/loop_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package eventloop_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-net/eventloop"
)

func TestExecuteRunsOnLoopGoroutine(t *testing.T) {
	l := eventloop.NewLoop()
	defer l.Shutdown(context.Background())

	got := make(chan bool, 1)
	l.Execute(func() { got <- l.InLoop() })
	assert.True(t, <-got)
	assert.False(t, l.InLoop())
}

// Counter increments from many goroutines must serialize on the loop:
// an unguarded counter loses no updates.
func TestLoopSerializesForeignSubmissions(t *testing.T) {
	l := eventloop.NewLoop()
	defer l.Shutdown(context.Background())

	const producers = 8
	const perProducer = 125
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				l.Execute(func() { counter++ })
			}
		}()
	}
	wg.Wait()

	done := make(chan int)
	l.Execute(func() { done <- counter })
	assert.Equal(t, producers*perProducer, <-done)
}

func TestSubmissionOrderPreserved(t *testing.T) {
	l := eventloop.NewLoop()
	defer l.Shutdown(context.Background())

	var got []int
	var wg sync.WaitGroup
	wg.Add(1)
	// All from one goroutine: FIFO relative order is guaranteed.
	for i := 0; i < 100; i++ {
		i := i
		l.Execute(func() { got = append(got, i) })
	}
	l.Execute(func() { wg.Done() })
	wg.Wait()
	for i := 1; i < len(got); i++ {
		require.Less(t, got[i-1], got[i])
	}
	assert.Len(t, got, 100)
}

func TestScheduleFiresAfterDelay(t *testing.T) {
	mock := clock.NewMock()
	l := eventloop.NewLoop(eventloop.WithClock(mock))
	defer l.Shutdown(context.Background())

	fired := make(chan struct{}, 1)
	l.Schedule(time.Second, func() { fired <- struct{}{} })

	mock.Add(999 * time.Millisecond)
	select {
	case <-fired:
		t.Fatal("fired before the delay elapsed")
	case <-time.After(20 * time.Millisecond):
	}

	mock.Add(time.Millisecond)
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("did not fire after the delay elapsed")
	}
}

func TestScheduleCancel(t *testing.T) {
	mock := clock.NewMock()
	l := eventloop.NewLoop(eventloop.WithClock(mock))
	defer l.Shutdown(context.Background())

	fired := make(chan struct{}, 1)
	h := l.Schedule(time.Second, func() { fired <- struct{}{} })
	assert.True(t, h.Cancel())

	mock.Add(2 * time.Second)
	select {
	case <-fired:
		t.Fatal("canceled task fired")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestShutdownDrainsQueuedTasks(t *testing.T) {
	l := eventloop.NewLoop()
	ran := 0
	var mu sync.Mutex
	for i := 0; i < 50; i++ {
		l.Execute(func() {
			mu.Lock()
			ran++
			mu.Unlock()
		})
	}
	require.NoError(t, l.Shutdown(context.Background()))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 50, ran)
}

func TestGroupRoundRobin(t *testing.T) {
	g := eventloop.NewGroup(4)
	defer g.Shutdown(context.Background())

	require.Equal(t, 4, g.Size())
	seen := map[any]int{}
	for i := 0; i < 8; i++ {
		seen[g.Next()]++
	}
	assert.Len(t, seen, 4)
	for _, n := range seen {
		assert.Equal(t, 2, n)
	}
}
