// File: channel/initializer_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package channel

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
	"github.com/momentics/hioload-net/eventloop"
)

// inlineLoop runs everything on the caller's goroutine, which keeps
// registration-driven tests fully synchronous.
type inlineLoop struct{}

func (inlineLoop) InLoop() bool      { return true }
func (inlineLoop) Execute(fn func()) { fn() }

func (inlineLoop) Schedule(delay time.Duration, task func()) api.Timeout {
	return noopTimeout{}
}

func (l inlineLoop) Register(ch api.Channel) api.Future { return ch.RegisterTo(l) }
func (inlineLoop) Parent() api.EventLoopGroup           { return nil }
func (inlineLoop) Shutdown(context.Context) error       { return nil }

type noopTimeout struct{}

func (noopTimeout) Cancel() bool { return false }

func TestInitializerRunsOnceAtRegistration(t *testing.T) {
	ch, _ := newTestChannel()
	var trace []string
	runs := 0

	init := NewInitializer(func(ch api.Channel) error {
		runs++
		return ch.Pipeline().AddLast("probe", &inboundProbe{label: "probe", trace: &trace})
	})
	require.NoError(t, ch.Pipeline().AddLast("init", init))

	// Nothing runs before registration.
	assert.Zero(t, runs)

	f := ch.RegisterTo(inlineLoop{})
	require.True(t, f.IsDone())
	require.NoError(t, f.Err())

	assert.Equal(t, 1, runs)
	assert.Equal(t, []string{"probe"}, ch.Pipeline().Names(), "initializer must be gone after running")

	ch.Pipeline().FireChannelRead("msg")
	assert.Equal(t, []string{"probe"}, trace)
}

func TestInitializerSharedAcrossChannels(t *testing.T) {
	runs := 0
	init := NewInitializer(func(ch api.Channel) error {
		runs++
		return nil
	})

	for i := 0; i < 3; i++ {
		ch, _ := newTestChannel()
		require.NoError(t, ch.Pipeline().AddLast("init", init))
		require.NoError(t, ch.RegisterTo(inlineLoop{}).Err())
		assert.Empty(t, ch.Pipeline().Names())
	}
	assert.Equal(t, 3, runs)
}

func TestInitializerRunsImmediatelyWhenAddedLate(t *testing.T) {
	ch, _ := newTestChannel()
	require.NoError(t, ch.RegisterTo(inlineLoop{}).Err())

	runs := 0
	init := NewInitializer(func(ch api.Channel) error {
		runs++
		return nil
	})
	require.NoError(t, ch.Pipeline().AddLast("init", init))

	assert.Equal(t, 1, runs)
	assert.Empty(t, ch.Pipeline().Names())
}

func TestInitializerFailureClosesChannel(t *testing.T) {
	ch, _ := newTestChannel()
	boom := errors.New("setup rejected")

	init := NewInitializer(func(api.Channel) error { return boom })
	require.NoError(t, ch.Pipeline().AddLast("init", init))

	require.NoError(t, ch.RegisterTo(inlineLoop{}).Err())

	assert.False(t, ch.IsOpen())
	assert.True(t, ch.CloseFuture().IsDone())
	assert.Empty(t, ch.Pipeline().Names())
}

func TestInitializerInstalledHandlersObserveRegistration(t *testing.T) {
	ch, _ := newTestChannel()
	registered := 0

	init := NewInitializer(func(ch api.Channel) error {
		return ch.Pipeline().AddLast("probe", &registrationProbe{count: &registered})
	})
	require.NoError(t, ch.Pipeline().AddLast("init", init))

	require.NoError(t, ch.RegisterTo(inlineLoop{}).Err())
	assert.Equal(t, 1, registered, "re-fired registration must reach the installed handler")
}

func TestInitializerConcurrentInstallAndRegistration(t *testing.T) {
	loop := eventloop.NewLoop()
	defer loop.Shutdown(context.Background())

	// Install from a foreign goroutine while registration is in flight.
	// Whichever of the added hook and the registration event wins, setup
	// must run exactly once and the initializer must be gone afterwards.
	for i := 0; i < 64; i++ {
		ch, _ := newTestChannel()
		var runs atomic.Int32
		init := NewInitializer(func(api.Channel) error {
			runs.Add(1)
			return nil
		})

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, ch.Pipeline().AddLast("init", init))
		}()
		go func() {
			defer wg.Done()
			loop.Register(ch)
		}()
		wg.Wait()

		// Both racers have enqueued their loop work; a sentinel task
		// marks the point where it has all drained.
		settled := make(chan struct{})
		loop.Execute(func() { close(settled) })
		<-settled

		assert.True(t, ch.IsRegistered())
		assert.EqualValues(t, 1, runs.Load())
		assert.NotContains(t, ch.Pipeline().Names(), "init")
	}
}

type registrationProbe struct {
	InboundAdapter

	count *int
}

func (p *registrationProbe) ChannelRegistered(ctx api.HandlerContext) error {
	*p.count++
	ctx.FireChannelRegistered()
	return nil
}
