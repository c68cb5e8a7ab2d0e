// File: bootstrap/acceptor.go
// Package bootstrap implements the accept-time child configuration.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The acceptor sits at the tail of every listening channel's pipeline.
// Each inbound read is one freshly accepted child channel; the acceptor
// configures it from the stored child template and registers it on the
// child group. One child's failure is logged and force-closes that
// child only. An exception on the accept path pauses accepts by
// disabling auto-read on the listening channel and re-enables it after
// the backoff delay, so a persistent fault (e.g. descriptor exhaustion)
// does not spin the accept loop.

package bootstrap

import (
	"log/slog"
	"sync"
	"time"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/channel"
)

type acceptor struct {
	channel.InboundAdapter

	childGroup   api.EventLoopGroup
	childHandler api.Handler
	childOptions *sync.Map
	childAttrs   *sync.Map
	backoff      time.Duration
	logger       *slog.Logger
}

var _ api.InboundHandler = (*acceptor)(nil)

func (a *acceptor) ChannelRead(ctx api.HandlerContext, msg any) error {
	child, ok := msg.(api.Channel)
	if !ok {
		ctx.FireChannelRead(msg)
		return nil
	}

	if err := child.Pipeline().AddLast("", a.childHandler); err != nil {
		a.failChild(child, err)
		return nil
	}
	if err := applyOptions(child.Config(), a.childOptions, a.logger); err != nil {
		a.failChild(child, err)
		return nil
	}
	applyAttrs(child, a.childAttrs)

	a.childGroup.Register(child).AddListener(func(f api.Future) {
		if f.Err() != nil {
			a.failChild(child, f.Err())
		}
	})
	return nil
}

// failChild isolates one child's failure from the accept loop.
func (a *acceptor) failChild(child api.Channel, err error) {
	a.logger.Warn("failed to configure accepted child channel",
		"child", child.ID(), "error", err)
	child.CloseForcibly()
}

// ExceptionCaught pauses accepts for the backoff delay, then forwards
// the exception so other handlers can react as well.
func (a *acceptor) ExceptionCaught(ctx api.HandlerContext, err error) {
	cfg := ctx.Channel().Config()
	if cfg.AutoRead() {
		cfg.SetAutoRead(false)
		ctx.EventLoop().Schedule(a.backoff, func() {
			cfg.SetAutoRead(true)
		})
	}
	ctx.FireExceptionCaught(err)
}
