/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package buffer implements two process-wide byte-buffer pools: a
// FixedPool for plaintext (non-TLS) Directions, whose buffers all share
// one configured capacity, and an ExpandingPool for TLS Directions, whose
// capacity only ever grows (mirroring the TLS record layer's application
// buffer size, which can change at handshake renegotiation).
//
// No third-party dependency models a byte-buffer recycler better than a
// hand-rolled mutex-guarded LIFO stack for this narrow a contract (see
// DESIGN.md); sync.Pool was rejected because its buffers are reclaimable
// by the GC at any GC cycle, which would defeat the "drop buffers of the
// wrong capacity instead of silently keeping mismatched ones" invariant
// this needs to stay deterministic and testable.
package buffer

import "sync"

// Pool is the capability a Direction needs from either buffer pool
// implementation: borrow a buffer, return it when done.
type Pool interface {
	Borrow() []byte
	Return(b []byte)
}

// Grower is implemented by pools whose capacity ceiling can be raised,
// currently only ExpandingPool. A Direction type-asserts for it on the
// buffer-overflow path.
type Grower interface {
	Grow(n int)
	Capacity() int
}

// FixedPool recycles buffers of one fixed capacity. Buffers returned with
// a different length are dropped rather than retained.
type FixedPool struct {
	mu    sync.Mutex
	size  int
	stack [][]byte
}

// NewFixedPool returns a FixedPool whose buffers are all of size bytes.
func NewFixedPool(size int) *FixedPool {
	if size <= 0 {
		size = 2048
	}
	return &FixedPool{size: size}
}

// Size returns the pool's fixed capacity.
func (p *FixedPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size
}

// Borrow returns a buffer of the pool's configured capacity, reusing a
// recycled one (cleared) when available.
func (p *FixedPool) Borrow() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.stack)
	if n == 0 {
		return make([]byte, p.size)
	}

	b := p.stack[n-1]
	p.stack = p.stack[:n-1]

	return b
}

// Return recycles b if it matches the pool's configured capacity;
// otherwise it is silently dropped.
func (p *FixedPool) Return(b []byte) {
	if cap(b) != p.size {
		return
	}

	b = b[:cap(b)]
	for i := range b {
		b[i] = 0
	}

	p.mu.Lock()
	p.stack = append(p.stack, b[:0])
	p.mu.Unlock()
}

// ExpandingPool recycles buffers whose capacity is the pool's current,
// monotonically non-decreasing ceiling. Raising the ceiling discards any
// queued buffers smaller than the new ceiling.
type ExpandingPool struct {
	mu       sync.Mutex
	capacity int
	stack    [][]byte
}

// NewExpandingPool returns an ExpandingPool with an initial capacity.
func NewExpandingPool(initial int) *ExpandingPool {
	if initial <= 0 {
		initial = 2048
	}
	return &ExpandingPool{capacity: initial}
}

// Capacity returns the pool's current ceiling.
func (p *ExpandingPool) Capacity() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.capacity
}

// Grow raises the pool's ceiling to n if n is larger than the current
// ceiling, discarding any smaller queued buffers. Used on the
// buffer-overflow path when a TLS record needs more room than the
// current ceiling provides.
func (p *ExpandingPool) Grow(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n <= p.capacity {
		return
	}

	p.capacity = n
	p.stack = p.stack[:0]
}

// Borrow returns a buffer of the pool's current capacity.
func (p *ExpandingPool) Borrow() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.stack)
	if n == 0 {
		return make([]byte, p.capacity)
	}

	b := p.stack[n-1]
	p.stack = p.stack[:n-1]

	return b
}

// Return recycles b if its capacity still matches the pool's current
// ceiling; smaller buffers (left behind by a prior Grow) are discarded.
func (p *ExpandingPool) Return(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cap(b) != p.capacity {
		return
	}

	b = b[:cap(b)]
	for i := range b {
		b[i] = 0
	}

	p.stack = append(p.stack, b[:0])
}

// Process-wide pools, module-level state initialized at service start.
var (
	Fixed    = NewFixedPool(2048)
	Expanding = NewExpandingPool(4096)
)

// Configure (re)initializes the two process-wide pools; called once at
// service startup from the configured buffer size.
func Configure(fixedSize int) {
	Fixed = NewFixedPool(fixedSize)
}
