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

// Package admission implements a port's per-class connection limit (an
// admission counter tracks active connections up to a configured cap,
// past which new sockets are refused and a counter is bumped) and a
// delegated-task worker pool for handshake/background work dispatched off
// a Direction's read/write goroutine. Both are built on the weighted
// semaphore from semaphore/sem.
package admission

import (
	"context"

	"github.com/sabouaram/valve/semaphore/sem"
)

// Limiter gates admission of new connections against a per-class cap. A
// limit of 0 means unbounded, the default for a port's connection cap.
type Limiter struct {
	s sem.Sem
}

// NewLimiter returns a Limiter. limit == 0 means unbounded.
func NewLimiter(ctx context.Context, limit int64) *Limiter {
	n := limit
	if n == 0 {
		n = -1
	}
	return &Limiter{s: sem.New(ctx, n)}
}

// TryAdmit attempts to admit one connection without blocking, returning
// false when the limit is already reached (the refused path).
func (l *Limiter) TryAdmit() bool {
	return l.s.NewWorkerTry()
}

// Release returns one admission slot; called from Connection.Close so
// the owning port's accounting stays accurate.
func (l *Limiter) Release() {
	l.s.DeferWorker()
}

// Close releases resources tied to the limiter's internal context. It does
// not wait for in-flight connections to close.
func (l *Limiter) Close() {
	l.s.DeferMain()
}

// Tasks is a delegated-task runner: a bounded pool of goroutines used for
// TLS handshake work that must not block a Direction's own read/write
// path.
type Tasks struct {
	s sem.Sem
}

// NewTasks returns a Tasks pool with the given concurrency; 0 uses
// sem.MaxSimultaneous().
func NewTasks(ctx context.Context, concurrency int64) *Tasks {
	return &Tasks{s: sem.New(ctx, concurrency)}
}

// Run submits fn to the pool, blocking the caller until a worker slot is
// free, then until fn completes or ctx is done. A ctx cancellation
// abandons the wait but not fn itself; fn's goroutine releases the slot
// when it finishes.
func (t *Tasks) Run(ctx context.Context, fn func()) error {
	if e := t.s.NewWorker(); e != nil {
		return e
	}

	done := make(chan struct{})
	go func() {
		defer t.s.DeferWorker()
		defer close(done)
		fn()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases resources tied to the pool's internal context.
func (t *Tasks) Close() {
	t.s.DeferMain()
}
