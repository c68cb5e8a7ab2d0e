// File: core/constant/constant.go
// Package constant implements process-wide interning of named, typed
// configuration tokens (channel options, attribute keys).
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Equal names resolved against the same pool yield the identical token,
// so tokens can be compared and used as map keys by pointer identity.
// Each token carries a monotonically increasing numeric id used as the
// ordering/hashing tie-break.

package constant

import (
	"fmt"
	"reflect"
	"sync"
)

// Token is one interned constant. Tokens are only created by a Pool and
// are unique per (pool, name) for the lifetime of the process.
type Token struct {
	id   int64
	name string
	typ  reflect.Type
}

// ID returns the token's pool-unique numeric id.
func (t *Token) ID() int64 { return t.id }

// Name returns the name the token was interned under.
func (t *Token) Name() string { return t.name }

// Type returns the value type the token was interned with.
func (t *Token) Type() reflect.Type { return t.typ }

func (t *Token) String() string { return t.name }

// Pool interns tokens by name. Safe for concurrent resolution from any
// number of goroutines; ids are never reused.
type Pool struct {
	mu     sync.Mutex
	tokens map[string]*Token
	nextID int64
}

// NewPool returns an empty interning pool.
func NewPool() *Pool {
	return &Pool{tokens: make(map[string]*Token)}
}

// Resolve returns the token interned under name, creating it with the
// given value type on first use. Resolving an existing name with a
// different value type is a reported error, not undefined behavior.
func (p *Pool) Resolve(name string, typ reflect.Type) (*Token, error) {
	if name == "" {
		return nil, fmt.Errorf("constant: empty name")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if tok, ok := p.tokens[name]; ok {
		if tok.typ != typ {
			return nil, fmt.Errorf("constant: %q already interned as %v, requested %v", name, tok.typ, typ)
		}
		return tok, nil
	}
	return p.createLocked(name, typ), nil
}

// Exists reports whether name is interned, without mutating the pool.
func (p *Pool) Exists(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.tokens[name]
	return ok
}

// Create interns a fresh token under name and fails if the name is
// already taken, regardless of type.
func (p *Pool) Create(name string, typ reflect.Type) (*Token, error) {
	if name == "" {
		return nil, fmt.Errorf("constant: empty name")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.tokens[name]; ok {
		return nil, fmt.Errorf("constant: %q is already registered", name)
	}
	return p.createLocked(name, typ), nil
}

func (p *Pool) createLocked(name string, typ reflect.Type) *Token {
	p.nextID++
	tok := &Token{id: p.nextID, name: name, typ: typ}
	p.tokens[name] = tok
	return tok
}

// TypeFor is a convenience shorthand for reflect.TypeOf on a type
// parameter, usable with interface types as well.
func TypeFor[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
