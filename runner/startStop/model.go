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

package startStop

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

type runner struct {
	mu sync.Mutex

	start FuncStartStop
	stop  FuncStartStop

	running   atomic.Bool
	startedAt atomic.Value

	cancel context.CancelFunc
	done   chan struct{}

	errMu sync.RWMutex
	errs  []error
}

// New returns a StartStop runner driving the given start/stop functions.
//
// Start launches start in its own goroutine and returns immediately; Stop
// cancels the context handed to start, waits for it to return, then invokes
// stop synchronously. Either function may be nil: the runner still reports
// IsRunning/Uptime correctly and records an "invalid start function" /
// "invalid stop function" error in that phase's slot instead of panicking.
func New(start, stop FuncStartStop) StartStop {
	return &runner{
		start: start,
		stop:  stop,
	}
}

func (r *runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running.Load() {
		r.mu.Unlock()
		return nil
	}

	cctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()

	r.errMu.Lock()
	r.errs = nil
	r.errMu.Unlock()

	r.running.Store(true)
	r.startedAt.Store(time.Now())

	start := r.start

	go func() {
		defer close(done)
		defer r.running.Store(false)

		if start == nil {
			r.addError(fmt.Errorf("invalid start function"))
			return
		}

		if e := start(cctx); e != nil {
			r.addError(e)
		}
	}()

	return nil
}

func (r *runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
		}
	}

	if r.stop == nil {
		r.addError(fmt.Errorf("invalid stop function"))
		return nil
	}

	if e := r.stop(ctx); e != nil {
		r.addError(e)
	}

	return nil
}

func (r *runner) Restart(ctx context.Context) error {
	if e := r.Stop(ctx); e != nil {
		return e
	}

	return r.Start(ctx)
}

func (r *runner) IsRunning() bool {
	return r.running.Load()
}

func (r *runner) Uptime() time.Duration {
	if !r.running.Load() {
		return 0
	}

	t, ok := r.startedAt.Load().(time.Time)
	if !ok {
		return 0
	}

	return time.Since(t)
}

func (r *runner) ErrorsLast() error {
	r.errMu.RLock()
	defer r.errMu.RUnlock()

	if len(r.errs) == 0 {
		return nil
	}

	return r.errs[len(r.errs)-1]
}

func (r *runner) ErrorsList() []error {
	r.errMu.RLock()
	defer r.errMu.RUnlock()

	out := make([]error, len(r.errs))
	copy(out, r.errs)

	return out
}

func (r *runner) addError(e error) {
	r.errMu.Lock()
	defer r.errMu.Unlock()

	r.errs = append(r.errs, e)
}
