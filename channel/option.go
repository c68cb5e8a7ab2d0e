// File: channel/option.go
// Package channel defines the typed option and attribute-key tokens.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Options and attribute keys are interned in two process-wide pools, so
// resolving the same name anywhere in the process yields the identical
// token. The generic wrappers bind a Go value type to each token at the
// call site; a name collision with a different type is reported by the
// pool rather than silently accepted.

package channel

import (
	"time"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/core/constant"
)

var (
	optionPool = constant.NewPool()
	attrPool   = constant.NewPool()
)

// Option is a typed channel-configuration key.
type Option[T any] struct {
	tok *constant.Token
}

// NewOption interns an option token under name with value type T.
func NewOption[T any](name string) (Option[T], error) {
	tok, err := optionPool.Resolve(name, constant.TypeFor[T]())
	if err != nil {
		return Option[T]{}, err
	}
	return Option[T]{tok: tok}, nil
}

// MustOption is NewOption for package-level declarations; it panics on
// a name/type collision, which is a programming error.
func MustOption[T any](name string) Option[T] {
	o, err := NewOption[T](name)
	if err != nil {
		panic(err)
	}
	return o
}

// Token returns the interned token backing this option.
func (o Option[T]) Token() *constant.Token { return o.tok }

// Name returns the option's interned name.
func (o Option[T]) Name() string { return o.tok.Name() }

// SetOption applies a typed value to a configuration.
func SetOption[T any](cfg api.Config, opt Option[T], value T) (bool, error) {
	return cfg.Set(opt.tok, value)
}

// GetOption reads a typed value from a configuration.
func GetOption[T any](cfg api.Config, opt Option[T]) (T, bool) {
	var zero T
	v, ok := cfg.Get(opt.tok)
	if !ok {
		return zero, false
	}
	tv, ok := v.(T)
	if !ok {
		return zero, false
	}
	return tv, true
}

// OptionExists reports whether an option name is interned.
func OptionExists(name string) bool { return optionPool.Exists(name) }

// Built-in options recognized by Config.
var (
	OptConnectTimeout           = MustOption[time.Duration]("connect-timeout")
	OptWriteSpinCount           = MustOption[int]("write-spin-count")
	OptWriteBufferHighWatermark = MustOption[int]("write-buffer-high-watermark")
	OptWriteBufferLowWatermark  = MustOption[int]("write-buffer-low-watermark")
	OptAutoRead                 = MustOption[bool]("auto-read")
	OptAllowHalfClosure         = MustOption[bool]("allow-half-closure")
	OptSoKeepalive              = MustOption[bool]("so-keepalive")
	OptSoReuseAddr              = MustOption[bool]("so-reuseaddr")
	OptSoReusePort              = MustOption[bool]("so-reuseport")
	OptSoLinger                 = MustOption[int]("so-linger")
	OptSoBacklog                = MustOption[int]("so-backlog")
	OptSoRcvBuf                 = MustOption[int]("so-rcvbuf")
	OptSoSndBuf                 = MustOption[int]("so-sndbuf")
	OptTCPNoDelay               = MustOption[bool]("tcp-nodelay")
	OptIPMulticastTTL           = MustOption[int]("ip-multicast-ttl")
	OptIPMulticastLoop          = MustOption[bool]("ip-multicast-loop")
)

// AttrKey is a typed channel-attribute key.
type AttrKey[T any] struct {
	tok *constant.Token
}

// NewAttrKey interns an attribute-key token under name with value type T.
func NewAttrKey[T any](name string) (AttrKey[T], error) {
	tok, err := attrPool.Resolve(name, constant.TypeFor[T]())
	if err != nil {
		return AttrKey[T]{}, err
	}
	return AttrKey[T]{tok: tok}, nil
}

// MustAttrKey is NewAttrKey for package-level declarations.
func MustAttrKey[T any](name string) AttrKey[T] {
	k, err := NewAttrKey[T](name)
	if err != nil {
		panic(err)
	}
	return k
}

// Token returns the interned token backing this key.
func (k AttrKey[T]) Token() *constant.Token { return k.tok }

// Name returns the key's interned name.
func (k AttrKey[T]) Name() string { return k.tok.Name() }

// SetAttr stores a typed attribute value.
func SetAttr[T any](m api.AttributeMap, key AttrKey[T], value T) {
	m.SetAttr(key.tok, value)
}

// GetAttr reads a typed attribute value.
func GetAttr[T any](m api.AttributeMap, key AttrKey[T]) (T, bool) {
	var zero T
	v, ok := m.Attr(key.tok)
	if !ok {
		return zero, false
	}
	tv, ok := v.(T)
	if !ok {
		return zero, false
	}
	return tv, true
}
