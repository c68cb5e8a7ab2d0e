// File: channel/config.go
// Package channel implements the per-channel typed option store.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// All accesses of a registered channel's configuration happen on its
// loop, but the store is also touched by bootstraps before registration,
// so a mutex keeps it safe everywhere. Setting is idempotent and
// order-independent except for the watermark pair, where the violating
// Set fails and leaves the previous values in place.

package channel

import (
	"fmt"
	"sync"
	"time"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/core/constant"
)

const (
	defaultConnectTimeout = 30 * time.Second
	defaultWriteSpinCount = 16
	defaultHighWatermark  = 64 * 1024
	defaultLowWatermark   = 32 * 1024
)

// Config is the built-in api.Config implementation.
type Config struct {
	mu sync.Mutex
	ch *chann // owner, used to trigger reads when auto-read flips on

	connectTimeout   time.Duration
	writeSpinCount   int
	highWatermark    int
	lowWatermark     int
	autoRead         bool
	allowHalfClosure bool
	keepalive        bool
	reuseAddr        bool
	reusePort        bool
	linger           int
	backlog          int
	rcvBuf           int
	sndBuf           int
	noDelay          bool
	multicastTTL     int
	multicastLoop    bool
}

var _ api.Config = (*Config)(nil)

func newConfig(ch *chann) *Config {
	return &Config{
		ch:             ch,
		connectTimeout: defaultConnectTimeout,
		writeSpinCount: defaultWriteSpinCount,
		highWatermark:  defaultHighWatermark,
		lowWatermark:   defaultLowWatermark,
		autoRead:       true,
		linger:         -1,
	}
}

// Set applies one option value. Unrecognized options report
// handled=false so the caller can log and continue with the rest.
func (c *Config) Set(opt *constant.Token, value any) (bool, error) {
	triggerRead := false
	c.mu.Lock()
	handled, err := c.setLocked(opt, value, &triggerRead)
	c.mu.Unlock()
	if triggerRead && c.ch != nil {
		c.ch.Read()
	}
	return handled, err
}

func (c *Config) setLocked(opt *constant.Token, value any, triggerRead *bool) (bool, error) {
	switch opt {
	case OptConnectTimeout.Token():
		d, err := optValue[time.Duration](opt, value)
		if err != nil {
			return true, err
		}
		if d < 0 {
			return true, fmt.Errorf("config: negative connect timeout %v", d)
		}
		c.connectTimeout = d
	case OptWriteSpinCount.Token():
		n, err := optValue[int](opt, value)
		if err != nil {
			return true, err
		}
		if n < 1 {
			return true, fmt.Errorf("config: write spin count %d < 1", n)
		}
		c.writeSpinCount = n
	case OptWriteBufferHighWatermark.Token():
		n, err := optValue[int](opt, value)
		if err != nil {
			return true, err
		}
		if n < c.lowWatermark {
			return true, fmt.Errorf("config: high watermark %d below low watermark %d", n, c.lowWatermark)
		}
		c.highWatermark = n
	case OptWriteBufferLowWatermark.Token():
		n, err := optValue[int](opt, value)
		if err != nil {
			return true, err
		}
		if n < 0 {
			return true, fmt.Errorf("config: negative low watermark %d", n)
		}
		if n > c.highWatermark {
			return true, fmt.Errorf("config: low watermark %d above high watermark %d", n, c.highWatermark)
		}
		c.lowWatermark = n
	case OptAutoRead.Token():
		on, err := optValue[bool](opt, value)
		if err != nil {
			return true, err
		}
		*triggerRead = on && !c.autoRead && c.ch != nil && c.ch.IsActive()
		c.autoRead = on
	case OptAllowHalfClosure.Token():
		return boolInto(opt, value, &c.allowHalfClosure)
	case OptSoKeepalive.Token():
		return boolInto(opt, value, &c.keepalive)
	case OptSoReuseAddr.Token():
		return boolInto(opt, value, &c.reuseAddr)
	case OptSoReusePort.Token():
		return boolInto(opt, value, &c.reusePort)
	case OptSoLinger.Token():
		return intInto(opt, value, &c.linger)
	case OptSoBacklog.Token():
		return intInto(opt, value, &c.backlog)
	case OptSoRcvBuf.Token():
		return intInto(opt, value, &c.rcvBuf)
	case OptSoSndBuf.Token():
		return intInto(opt, value, &c.sndBuf)
	case OptTCPNoDelay.Token():
		return boolInto(opt, value, &c.noDelay)
	case OptIPMulticastTTL.Token():
		return intInto(opt, value, &c.multicastTTL)
	case OptIPMulticastLoop.Token():
		return boolInto(opt, value, &c.multicastLoop)
	default:
		return false, nil
	}
	return true, nil
}

// Get returns the current value of a recognized option.
func (c *Config) Get(opt *constant.Token) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch opt {
	case OptConnectTimeout.Token():
		return c.connectTimeout, true
	case OptWriteSpinCount.Token():
		return c.writeSpinCount, true
	case OptWriteBufferHighWatermark.Token():
		return c.highWatermark, true
	case OptWriteBufferLowWatermark.Token():
		return c.lowWatermark, true
	case OptAutoRead.Token():
		return c.autoRead, true
	case OptAllowHalfClosure.Token():
		return c.allowHalfClosure, true
	case OptSoKeepalive.Token():
		return c.keepalive, true
	case OptSoReuseAddr.Token():
		return c.reuseAddr, true
	case OptSoReusePort.Token():
		return c.reusePort, true
	case OptSoLinger.Token():
		return c.linger, true
	case OptSoBacklog.Token():
		return c.backlog, true
	case OptSoRcvBuf.Token():
		return c.rcvBuf, true
	case OptSoSndBuf.Token():
		return c.sndBuf, true
	case OptTCPNoDelay.Token():
		return c.noDelay, true
	case OptIPMulticastTTL.Token():
		return c.multicastTTL, true
	case OptIPMulticastLoop.Token():
		return c.multicastLoop, true
	}
	return nil, false
}

// AutoRead reports whether the channel requests reads eagerly.
func (c *Config) AutoRead() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoRead
}

// SetAutoRead toggles eager reading; turning it on while the channel is
// active issues an immediate read request.
func (c *Config) SetAutoRead(on bool) {
	c.mu.Lock()
	trigger := on && !c.autoRead && c.ch != nil && c.ch.IsActive()
	c.autoRead = on
	c.mu.Unlock()
	if trigger {
		c.ch.Read()
	}
}

// ConnectTimeout returns the configured connect timeout.
func (c *Config) ConnectTimeout() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectTimeout
}

func optValue[T any](opt *constant.Token, value any) (T, error) {
	v, ok := value.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("config: option %q expects %T, got %T", opt.Name(), zero, value)
	}
	return v, nil
}

func boolInto(opt *constant.Token, value any, dst *bool) (bool, error) {
	v, err := optValue[bool](opt, value)
	if err != nil {
		return true, err
	}
	*dst = v
	return true, nil
}

func intInto(opt *constant.Token, value any, dst *int) (bool, error) {
	v, err := optValue[int](opt, value)
	if err != nil {
		return true, err
	}
	*dst = v
	return true, nil
}
