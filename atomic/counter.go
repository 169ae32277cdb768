/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
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

package atomic

// Counter is a monotonically-growing uint64 built on top of Value[uint64]
// instead of sync/atomic.Uint64, so callers that already depend on this
// package for typed atomics (state enums, idempotent-close flags) get their
// counters from the same plumbing rather than reaching back into the
// standard library for the numeric case.
//
// A Value[uint64]'s underlying sync/atomic.Value only establishes its
// concrete type on the first Store, and CompareAndSwap on a never-stored
// Value never succeeds. NewCounter stores the zero value during
// construction so every subsequent Add can rely on CompareAndSwap working.
type Counter struct {
	v Value[uint64]
}

// NewCounter returns a ready-to-use Counter starting at zero.
func NewCounter() *Counter {
	c := &Counter{v: NewValue[uint64]()}
	c.v.Store(0)
	return c
}

// Add adds delta to the counter and returns the new total. It retries a
// Load/CompareAndSwap pair under contention, the same idiom sync/atomic.Uint64.Add
// uses internally.
func (c *Counter) Add(delta uint64) uint64 {
	for {
		old := c.v.Load()
		next := old + delta
		if c.v.CompareAndSwap(old, next) {
			return next
		}
	}
}

// Load returns the counter's current value.
func (c *Counter) Load() uint64 {
	return c.v.Load()
}
