// File: channel/attributes.go
// Package channel implements the per-channel attribute map.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package channel

import (
	"sync"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/core/constant"
)

// attrMap stores attribute values keyed by interned token identity.
type attrMap struct {
	m sync.Map // *constant.Token -> any
}

var _ api.AttributeMap = (*attrMap)(nil)

func (a *attrMap) SetAttr(key *constant.Token, value any) { a.m.Store(key, value) }

func (a *attrMap) Attr(key *constant.Token) (any, bool) { return a.m.Load(key) }

func (a *attrMap) DelAttr(key *constant.Token) { a.m.Delete(key) }
