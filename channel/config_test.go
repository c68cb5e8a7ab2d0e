// File: channel/config_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package channel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-net/core/constant"
)

func newTestConfig() *Config { return newConfig(nil) }

func TestConfigDefaults(t *testing.T) {
	cfg := newTestConfig()

	assert.Equal(t, 30*time.Second, cfg.ConnectTimeout())
	assert.True(t, cfg.AutoRead())

	v, ok := GetOption(cfg, OptWriteBufferHighWatermark)
	require.True(t, ok)
	assert.Equal(t, 64*1024, v)
	v, ok = GetOption(cfg, OptWriteBufferLowWatermark)
	require.True(t, ok)
	assert.Equal(t, 32*1024, v)
	v, ok = GetOption(cfg, OptSoLinger)
	require.True(t, ok)
	assert.Equal(t, -1, v)
}

func TestConfigSetAndGetRoundTrip(t *testing.T) {
	cfg := newTestConfig()

	handled, err := SetOption(cfg, OptConnectTimeout, 5*time.Second)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout())

	handled, err = SetOption(cfg, OptTCPNoDelay, true)
	require.NoError(t, err)
	assert.True(t, handled)
	on, ok := GetOption(cfg, OptTCPNoDelay)
	require.True(t, ok)
	assert.True(t, on)
}

func TestConfigUnknownOptionReportedNotFatal(t *testing.T) {
	cfg := newTestConfig()

	foreign := MustOption[int]("config-test-foreign-option")
	handled, err := cfg.Set(foreign.Token(), 42)
	assert.False(t, handled)
	assert.NoError(t, err)

	_, ok := cfg.Get(foreign.Token())
	assert.False(t, ok)
}

func TestConfigTypeMismatchFails(t *testing.T) {
	cfg := newTestConfig()

	handled, err := cfg.Set(OptConnectTimeout.Token(), "soon")
	assert.True(t, handled)
	require.Error(t, err)
	assert.Equal(t, 30*time.Second, cfg.ConnectTimeout())
}

func TestConfigWatermarkPairValidation(t *testing.T) {
	cfg := newTestConfig()

	// High below the current low fails and changes nothing.
	_, err := SetOption(cfg, OptWriteBufferHighWatermark, 16)
	require.Error(t, err)
	high, _ := GetOption(cfg, OptWriteBufferHighWatermark)
	assert.Equal(t, 64*1024, high)

	// Low above the current high fails and changes nothing.
	_, err = SetOption(cfg, OptWriteBufferLowWatermark, 128*1024)
	require.Error(t, err)
	low, _ := GetOption(cfg, OptWriteBufferLowWatermark)
	assert.Equal(t, 32*1024, low)

	// Order matters only for validity: raise high first, then low.
	_, err = SetOption(cfg, OptWriteBufferHighWatermark, 256*1024)
	require.NoError(t, err)
	_, err = SetOption(cfg, OptWriteBufferLowWatermark, 128*1024)
	require.NoError(t, err)
	high, _ = GetOption(cfg, OptWriteBufferHighWatermark)
	low, _ = GetOption(cfg, OptWriteBufferLowWatermark)
	assert.Equal(t, 256*1024, high)
	assert.Equal(t, 128*1024, low)

	_, err = SetOption(cfg, OptWriteBufferLowWatermark, -1)
	assert.Error(t, err)
}

func TestConfigRejectsInvalidValues(t *testing.T) {
	cfg := newTestConfig()

	_, err := SetOption(cfg, OptConnectTimeout, -time.Second)
	assert.Error(t, err)
	_, err = SetOption(cfg, OptWriteSpinCount, 0)
	assert.Error(t, err)
}

func TestOptionIdentityIsInterned(t *testing.T) {
	a := MustOption[bool]("config-test-interned")
	b := MustOption[bool]("config-test-interned")
	assert.Same(t, a.Token(), b.Token())

	// Same name under a different type is a caller bug.
	_, err := NewOption[int]("config-test-interned")
	assert.Error(t, err)
}

func TestAttributeMapSetGetDelete(t *testing.T) {
	ch, _ := newTestChannel()
	key := MustAttrKey[string]("config-test-session")

	_, ok := GetAttr(ch.Attributes(), key)
	assert.False(t, ok)

	SetAttr(ch.Attributes(), key, "s-1")
	v, ok := GetAttr(ch.Attributes(), key)
	require.True(t, ok)
	assert.Equal(t, "s-1", v)

	SetAttr(ch.Attributes(), key, "s-2")
	v, _ = GetAttr(ch.Attributes(), key)
	assert.Equal(t, "s-2", v)

	ch.Attributes().DelAttr(key.Token())
	_, ok = GetAttr(ch.Attributes(), key)
	assert.False(t, ok)
}

func TestAttributeKeysAndOptionsLiveInSeparatePools(t *testing.T) {
	opt := MustOption[int]("config-test-shared-name")
	key := MustAttrKey[int]("config-test-shared-name")
	assert.NotSame(t, opt.Token(), key.Token())
	assert.IsType(t, (*constant.Token)(nil), key.Token())
}
