/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
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

// Package sem wraps golang.org/x/sync/semaphore into a worker-counted
// admission primitive: NewWorker/NewWorkerTry acquire a slot, DeferWorker
// releases it, WaitAll blocks until every acquired slot has been released.
// A negative weight puts the semaphore in unlimited (wait-group only) mode.
package sem

import "context"

// Sem is the admission-control contract used by the relay's Port Manager
// (per-class connection limit) and the delegated-task runner (bounded
// handshake worker pool).
type Sem interface {
	// NewWorker blocks until a slot is free or ctx is done.
	NewWorker() error

	// NewWorkerTry acquires a slot without blocking; returns false if none
	// is immediately available.
	NewWorkerTry() bool

	// DeferWorker releases a slot acquired by NewWorker/NewWorkerTry.
	DeferWorker()

	// WaitAll blocks until every outstanding worker has called DeferWorker.
	WaitAll() error

	// DeferMain releases resources tied to the semaphore's context.
	DeferMain()

	// Weighted returns the configured capacity (MaxSimultaneous() when the
	// semaphore was created with nbrSimultaneous == 0).
	Weighted() int64
}

// MaxSimultaneous is the default capacity used when New is called with a
// zero weight: four slots per logical CPU.
func MaxSimultaneous() int {
	return maxSimultaneous()
}

// New returns a Sem. nbrSimultaneous == 0 uses MaxSimultaneous(); a
// negative value creates an unlimited semaphore (NewWorker never blocks,
// only WaitAll / the wait-group semantics apply).
func New(ctx context.Context, nbrSimultaneous int64) Sem {
	return newSem(ctx, nbrSimultaneous)
}
