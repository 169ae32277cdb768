/*
MIT License

Copyright (c) 2019 Nicolas JUHEL

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

// Package context is a context.Context carrying a concurrent-safe,
// generically-keyed value map alongside it, for registries that need
// both cancellation propagation and a Store/Load/Walk surface over an
// arbitrary key type - logger's component registry and
// ioutils/mapCloser's tracked-closer set both key theirs by name.
package context

import (
	"context"

	libatm "github.com/sabouaram/valve/atomic"
)

type FuncContextConfig[T comparable] func() Config[T]
type FuncWalk[T comparable] func(key T, val interface{}) bool

// MapManage is the concurrent-safe key/value surface backing a Config.
type MapManage[T comparable] interface {
	Clean()
	Load(key T) (val interface{}, ok bool)
	Store(key T, cfg interface{})
	Delete(key T)
}

type Context interface {
	// GetContext returns the wrapped context.Context, or context.Background
	// if none was given.
	GetContext() context.Context
}

// Config pairs a context.Context with a MapManage over key type T.
type Config[T comparable] interface {
	context.Context
	MapManage[T]
	Context

	// Clone returns an independent copy with its own underlying map,
	// seeded from the current entries, under ctx (or the current context
	// if ctx is nil). Returns nil if the current context is already done.
	Clone(ctx context.Context) Config[T]
	// Merge copies every entry of cfg into the receiver. Returns false if
	// cfg is nil or the receiver's context is already done.
	Merge(cfg Config[T]) bool
	// Walk calls fct for every stored entry.
	Walk(fct FuncWalk[T])
	// WalkLimit calls fct only for the given keys.
	WalkLimit(fct FuncWalk[T], validKeys ...T)

	LoadOrStore(key T, cfg interface{}) (val interface{}, loaded bool)
	LoadAndDelete(key T) (val interface{}, loaded bool)
}

// New returns a Config wrapping ctx (or context.Background if ctx is nil),
// backed by a fresh, empty map.
func New[T comparable](ctx context.Context) Config[T] {
	if ctx == nil {
		ctx = context.Background()
	}

	return &ccx[T]{
		m: libatm.NewMapAny[T](),
		x: ctx,
	}
}

// NewConfig is New kept for call-site parity with the sibling
// packages, which expose both a generic New and a type-prefixed alias.
func NewConfig[T comparable](ctx context.Context) Config[T] {
	return New[T](ctx)
}
