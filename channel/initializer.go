// File: channel/initializer.go
// Package channel implements the one-shot pipeline initializer.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// An Initializer populates a channel's pipeline exactly once, at
// registration time, then removes itself. One instance is routinely
// shared by many channels (a server installs the same initializer into
// every accepted child), so the one-shot guard is per channel and the
// setup function must not keep per-channel state in the initializer.

package channel

import (
	"sync"

	"github.com/momentics/hioload-net/api"
)

// Initializer is a shareable, self-removing setup handler.
type Initializer struct {
	InboundAdapter
	seen sync.Map // channel id -> struct{}, one-shot guard

	setup func(ch api.Channel) error
}

var _ api.InboundHandler = (*Initializer)(nil)

// NewInitializer wraps the setup function. setup runs once per channel,
// on the channel's loop.
func NewInitializer(setup func(ch api.Channel) error) *Initializer {
	return &Initializer{setup: setup}
}

// HandlerAdded runs setup immediately when the channel is already
// registered (late install); otherwise setup waits for registration.
func (in *Initializer) HandlerAdded(ctx api.HandlerContext) error {
	if ctx.Channel().IsRegistered() {
		return in.runOnce(ctx)
	}
	return nil
}

// ChannelRegistered runs setup, removes the initializer and re-fires
// the registration event so handlers installed by setup observe it.
func (in *Initializer) ChannelRegistered(ctx api.HandlerContext) error {
	if err := in.runOnce(ctx); err != nil {
		return err
	}
	ctx.FireChannelRegistered()
	return nil
}

// runOnce performs the guarded setup and self-removal. A setup failure
// removes the initializer, closes the channel and surfaces the error
// through the exception path of the caller.
func (in *Initializer) runOnce(ctx api.HandlerContext) error {
	// Late hook delivery can hand us a context that already ran setup
	// through the other trigger and removed itself.
	if ctx.Removed() {
		return nil
	}
	ch := ctx.Channel()
	if _, ran := in.seen.LoadOrStore(ch.ID(), struct{}{}); ran {
		return nil
	}
	err := in.setup(ch)
	in.removeSelf(ctx)
	in.seen.Delete(ch.ID())
	if err != nil {
		ch.Close()
		return err
	}
	return nil
}

func (in *Initializer) removeSelf(ctx api.HandlerContext) {
	if !ctx.Removed() {
		_, _ = ctx.Pipeline().Remove(ctx.Name())
	}
}
