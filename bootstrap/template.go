// File: bootstrap/template.go
// Package bootstrap implements channel creation and wiring templates.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Client and server bootstraps share one configuration-template value:
// the event-loop group, the channel factory and the option/attribute
// maps. Templates may be configured from several goroutines before any
// channel exists, so the maps are concurrency-safe; at init time values
// are copied into the channel's single-owner stores and never shared
// again.

package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/core/constant"
)

// Config-validation errors.
var (
	ErrNoGroup        = errors.New("bootstrap: event loop group not set")
	ErrNoFactory      = errors.New("bootstrap: channel factory not set")
	ErrNoHandler      = errors.New("bootstrap: handler not set")
	ErrNoChildHandler = errors.New("bootstrap: child handler not set")
)

// template is the shared configuration of both bootstrap variants.
type template struct {
	group   api.EventLoopGroup
	factory api.ChannelFactory
	local   net.Addr
	logger  *slog.Logger
	options sync.Map // *constant.Token -> any
	attrs   sync.Map // *constant.Token -> any
}

func newTemplate() template {
	return template{logger: slog.Default()}
}

// cloneFrom shallow-copies the template; map contents are copied so the
// clone mutates independently, values are shared.
func (t *template) cloneFrom(src *template) {
	t.group = src.group
	t.factory = src.factory
	t.local = src.local
	t.logger = src.logger
	copySyncMap(&t.options, &src.options)
	copySyncMap(&t.attrs, &src.attrs)
}

func copySyncMap(dst, src *sync.Map) {
	src.Range(func(k, v any) bool {
		dst.Store(k, v)
		return true
	})
}

func (t *template) validate() error {
	if t.group == nil {
		return ErrNoGroup
	}
	if t.factory == nil {
		return ErrNoFactory
	}
	return nil
}

// applyOptions copies an option map into a channel configuration.
// Unknown options are reported to the diagnostic sink and skipped;
// recognized options with invalid values abort with an error.
func applyOptions(cfg api.Config, options *sync.Map, logger *slog.Logger) error {
	var err error
	options.Range(func(k, v any) bool {
		tok := k.(*constant.Token)
		handled, serr := cfg.Set(tok, v)
		if !handled {
			logger.Warn("unknown channel option", "option", tok.Name())
			return true
		}
		if serr != nil {
			err = fmt.Errorf("bootstrap: option %q: %w", tok.Name(), serr)
			return false
		}
		return true
	})
	return err
}

// applyAttrs copies an attribute map onto a channel.
func applyAttrs(ch api.Channel, attrs *sync.Map) {
	attrs.Range(func(k, v any) bool {
		ch.Attributes().SetAttr(k.(*constant.Token), v)
		return true
	})
}
