// File: bootstrap/bootstrap.go
// Package bootstrap implements the client bootstrap.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Connect walks the lifecycle: validate, create the channel, install
// the handler and apply the template, register on a loop, resolve the
// remote address, connect on the channel's own loop. Failures before
// registration force-close the channel (no loop owns it yet); failures
// afterwards close it gracefully and surface the cause.

package bootstrap

import (
	"log/slog"
	"net"
	"time"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/channel"
	"github.com/momentics/hioload-net/core/concurrency"
	"github.com/momentics/hioload-net/core/constant"
)

// Bootstrap is the reusable client-channel template.
type Bootstrap struct {
	template
	handler  api.Handler
	resolver api.Resolver
}

// NewBootstrap returns an empty client bootstrap.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{template: newTemplate(), resolver: DefaultResolver()}
}

// Group sets the event-loop group channels register on.
func (b *Bootstrap) Group(g api.EventLoopGroup) *Bootstrap {
	b.group = g
	return b
}

// ChannelFactory sets the factory producing unregistered channels.
func (b *Bootstrap) ChannelFactory(f api.ChannelFactory) *Bootstrap {
	b.factory = f
	return b
}

// Handler sets the handler installed into every produced channel,
// typically a channel.Initializer.
func (b *Bootstrap) Handler(h api.Handler) *Bootstrap {
	b.handler = h
	return b
}

// Resolver overrides the address resolver.
func (b *Bootstrap) Resolver(r api.Resolver) *Bootstrap {
	b.resolver = r
	return b
}

// LocalAddr sets the default local address for connects.
func (b *Bootstrap) LocalAddr(addr net.Addr) *Bootstrap {
	b.local = addr
	return b
}

// Logger sets the diagnostic sink.
func (b *Bootstrap) Logger(l *slog.Logger) *Bootstrap {
	b.logger = l
	return b
}

// Option stores a template option applied to every produced channel.
func (b *Bootstrap) Option(opt *constant.Token, value any) *Bootstrap {
	b.options.Store(opt, value)
	return b
}

// Attr stores a template attribute applied to every produced channel.
func (b *Bootstrap) Attr(key *constant.Token, value any) *Bootstrap {
	b.attrs.Store(key, value)
	return b
}

// Clone returns an independent template sharing no channel state.
func (b *Bootstrap) Clone() *Bootstrap {
	c := &Bootstrap{handler: b.handler, resolver: b.resolver}
	c.template.cloneFrom(&b.template)
	return c
}

// Validate checks that the template can produce channels.
func (b *Bootstrap) Validate() error {
	if err := b.template.validate(); err != nil {
		return err
	}
	if b.handler == nil {
		return ErrNoHandler
	}
	return nil
}

// Connect produces a channel and connects it to remote.
func (b *Bootstrap) Connect(remote net.Addr) api.Future {
	return b.ConnectTo(remote, b.local)
}

// ConnectTo is Connect with an explicit local address.
func (b *Bootstrap) ConnectTo(remote, local net.Addr) api.Future {
	if err := b.Validate(); err != nil {
		return concurrency.Failed(err)
	}
	ch, err := b.factory()
	if err != nil {
		return concurrency.Failed(err)
	}
	if err := b.init(ch); err != nil {
		// Setup failed before registration: no loop owns the channel,
		// force close.
		ch.CloseForcibly()
		return concurrency.Failed(err)
	}

	p := concurrency.NewPromise()
	b.group.Register(ch).AddListener(func(f api.Future) {
		if f.Err() != nil {
			ch.CloseForcibly()
			p.TryFailure(f.Err())
			return
		}
		b.resolveAndConnect(ch, remote, local, p)
	})
	return p
}

func (b *Bootstrap) init(ch api.Channel) error {
	if err := ch.Pipeline().AddLast("", b.handler); err != nil {
		return err
	}
	if err := applyOptions(ch.Config(), &b.options, b.logger); err != nil {
		return err
	}
	applyAttrs(ch, &b.attrs)
	return nil
}

// resolveAndConnect runs on the channel's loop after registration.
func (b *Bootstrap) resolveAndConnect(ch api.Channel, remote, local net.Addr, p api.Promise) {
	if b.resolver.IsResolved(remote) {
		b.doConnect(ch, remote, local, p)
		return
	}
	// Resolution may block; keep it off the loop and marshal back.
	go func() {
		resolved, err := b.resolver.Resolve(remote)
		loop := ch.EventLoop()
		if loop == nil {
			ch.CloseForcibly()
			p.TryFailure(err)
			return
		}
		loop.Execute(func() {
			if err != nil {
				ch.Close()
				p.TryFailure(err)
				return
			}
			b.doConnect(ch, resolved, local, p)
		})
	}()
}

func (b *Bootstrap) doConnect(ch api.Channel, remote, local net.Addr, p api.Promise) {
	var timeout api.Timeout
	if d := connectTimeout(ch); d > 0 {
		timeout = ch.EventLoop().Schedule(d, func() {
			if p.TryFailure(api.ErrConnectTimeout) {
				ch.Close()
			}
		})
	}
	ch.Connect(remote, local).AddListener(func(f api.Future) {
		if timeout != nil {
			timeout.Cancel()
		}
		if f.Err() != nil {
			// Connected channels close gracefully: registration already
			// succeeded, a loop owns the channel.
			ch.Close()
			p.TryFailure(f.Err())
			return
		}
		p.TrySuccess(ch)
	})
}

func connectTimeout(ch api.Channel) (d time.Duration) {
	if v, ok := channel.GetOption(ch.Config(), channel.OptConnectTimeout); ok {
		return v
	}
	return 0
}
