// File: bootstrap/server.go
// Package bootstrap implements the server bootstrap.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A server bootstrap binds a listening channel on the acceptor group
// and installs the acceptor handler that wires every accepted child:
// child handler, child options, child attributes, registration on the
// child group. Child failures never stop the accept loop.

package bootstrap

import (
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/channel"
	"github.com/momentics/hioload-net/core/concurrency"
	"github.com/momentics/hioload-net/core/constant"
)

// defaultAcceptBackoff is how long accepts stay paused after an
// acceptor exception. Tunable via AcceptBackoff.
const defaultAcceptBackoff = time.Second

// ServerBootstrap is the reusable listening-channel template.
type ServerBootstrap struct {
	template
	handler       api.Handler
	childGroup    api.EventLoopGroup
	childHandler  api.Handler
	childOptions  sync.Map // *constant.Token -> any
	childAttrs    sync.Map // *constant.Token -> any
	acceptBackoff time.Duration
}

// NewServerBootstrap returns an empty server bootstrap.
func NewServerBootstrap() *ServerBootstrap {
	return &ServerBootstrap{template: newTemplate(), acceptBackoff: defaultAcceptBackoff}
}

// Group sets the acceptor group (and the child group unless ChildGroup
// is called).
func (b *ServerBootstrap) Group(g api.EventLoopGroup) *ServerBootstrap {
	b.group = g
	return b
}

// ChildGroup sets the group accepted children register on.
func (b *ServerBootstrap) ChildGroup(g api.EventLoopGroup) *ServerBootstrap {
	b.childGroup = g
	return b
}

// ChannelFactory sets the factory producing listening channels.
func (b *ServerBootstrap) ChannelFactory(f api.ChannelFactory) *ServerBootstrap {
	b.factory = f
	return b
}

// Handler sets an optional handler for the listening channel itself.
func (b *ServerBootstrap) Handler(h api.Handler) *ServerBootstrap {
	b.handler = h
	return b
}

// ChildHandler sets the handler installed into every accepted child.
func (b *ServerBootstrap) ChildHandler(h api.Handler) *ServerBootstrap {
	b.childHandler = h
	return b
}

// Logger sets the diagnostic sink.
func (b *ServerBootstrap) Logger(l *slog.Logger) *ServerBootstrap {
	b.logger = l
	return b
}

// Option stores an option for the listening channel.
func (b *ServerBootstrap) Option(opt *constant.Token, value any) *ServerBootstrap {
	b.options.Store(opt, value)
	return b
}

// Attr stores an attribute for the listening channel.
func (b *ServerBootstrap) Attr(key *constant.Token, value any) *ServerBootstrap {
	b.attrs.Store(key, value)
	return b
}

// ChildOption stores an option applied to every accepted child.
func (b *ServerBootstrap) ChildOption(opt *constant.Token, value any) *ServerBootstrap {
	b.childOptions.Store(opt, value)
	return b
}

// ChildAttr stores an attribute applied to every accepted child.
func (b *ServerBootstrap) ChildAttr(key *constant.Token, value any) *ServerBootstrap {
	b.childAttrs.Store(key, value)
	return b
}

// AcceptBackoff overrides the accept-pause delay used after an acceptor
// exception.
func (b *ServerBootstrap) AcceptBackoff(d time.Duration) *ServerBootstrap {
	b.acceptBackoff = d
	return b
}

// Clone returns an independent template sharing no channel state.
func (b *ServerBootstrap) Clone() *ServerBootstrap {
	c := &ServerBootstrap{
		handler:       b.handler,
		childGroup:    b.childGroup,
		childHandler:  b.childHandler,
		acceptBackoff: b.acceptBackoff,
	}
	c.template.cloneFrom(&b.template)
	copySyncMap(&c.childOptions, &b.childOptions)
	copySyncMap(&c.childAttrs, &b.childAttrs)
	return c
}

// Validate checks the template and substitutes the acceptor group for a
// missing child group with a warning.
func (b *ServerBootstrap) Validate() error {
	if err := b.template.validate(); err != nil {
		return err
	}
	if b.childHandler == nil {
		return ErrNoChildHandler
	}
	if b.childGroup == nil {
		b.logger.Warn("child event loop group not set, using the acceptor group for children")
		b.childGroup = b.group
	}
	return nil
}

// Bind produces the listening channel, registers it on the acceptor
// group and binds it to addr.
func (b *ServerBootstrap) Bind(addr net.Addr) api.Future {
	if err := b.Validate(); err != nil {
		return concurrency.Failed(err)
	}
	ch, err := b.factory()
	if err != nil {
		return concurrency.Failed(err)
	}
	if err := b.init(ch); err != nil {
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
		ch.Bind(addr).AddListener(func(bf api.Future) {
			if bf.Err() != nil {
				ch.Close()
				p.TryFailure(bf.Err())
				return
			}
			p.TrySuccess(ch)
		})
	})
	return p
}

func (b *ServerBootstrap) init(ch api.Channel) error {
	if b.handler != nil {
		if err := ch.Pipeline().AddLast("", b.handler); err != nil {
			return err
		}
	}
	if err := applyOptions(ch.Config(), &b.options, b.logger); err != nil {
		return err
	}
	applyAttrs(ch, &b.attrs)

	acc := &acceptor{
		childGroup:   b.childGroup,
		childHandler: b.childHandler,
		childOptions: &b.childOptions,
		childAttrs:   &b.childAttrs,
		backoff:      b.acceptBackoff,
		logger:       b.logger,
	}
	// The acceptor joins at registration time so handlers installed by
	// a user initializer end up in front of it.
	return ch.Pipeline().AddLast("", channel.NewInitializer(func(ch api.Channel) error {
		return ch.Pipeline().AddLast("acceptor", acc)
	}))
}
