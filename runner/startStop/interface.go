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

// Package startStop provides a minimal, reusable start/stop lifecycle
// runner: a goroutine supervisor that turns a pair of
// `func(context.Context) error` callbacks into an object with IsRunning,
// Uptime and accumulated-error reporting. Every long-lived reactor in the
// relay core (Port Manager accept loop, Connections Manager, Control Port)
// is built on top of one of these.
package startStop

import (
	"context"
	"time"
)

// FuncStartStop is the signature shared by the start and stop callbacks.
// Start functions are expected to block until ctx is done; stop functions
// run once, after the start function has returned.
type FuncStartStop func(ctx context.Context) error

// StartStop is the lifecycle contract implemented by runner.
type StartStop interface {
	// Start launches the start function in its own goroutine, derived from
	// ctx, and returns immediately. Calling Start while already running is
	// a no-op.
	Start(ctx context.Context) error

	// Stop cancels the context handed to the start function, waits for it
	// to return (or for ctx to expire) and then runs the stop function.
	// Stop always returns nil; failures are available via ErrorsLast.
	Stop(ctx context.Context) error

	// Restart stops then starts.
	Restart(ctx context.Context) error

	// IsRunning reports whether the start function is currently executing.
	IsRunning() bool

	// Uptime returns the duration since the current run started, or zero
	// when not running.
	Uptime() time.Duration

	// ErrorsLast returns the most recent error recorded since the last
	// Start, or nil.
	ErrorsLast() error

	// ErrorsList returns every error recorded since the last Start.
	ErrorsList() []error
}
