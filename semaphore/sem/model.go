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

package sem

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

func maxSimultaneous() int {
	if n := runtime.GOMAXPROCS(0); n > 0 {
		return n * 4
	}

	return 4
}

type sem struct {
	ctx    context.Context
	cancel context.CancelFunc

	weight int64
	weighted *semaphore.Weighted

	wg sync.WaitGroup
}

func newSem(ctx context.Context, nbrSimultaneous int64) Sem {
	n := nbrSimultaneous

	if n == 0 {
		n = int64(MaxSimultaneous())
	}

	cctx, cancel := context.WithCancel(ctx)

	s := &sem{
		ctx:    cctx,
		cancel: cancel,
		weight: n,
	}

	if n > 0 {
		s.weighted = semaphore.NewWeighted(n)
	}

	return s
}

func (s *sem) NewWorker() error {
	if s.weighted != nil {
		if e := s.weighted.Acquire(s.ctx, 1); e != nil {
			return e
		}
	}

	s.wg.Add(1)

	return nil
}

func (s *sem) NewWorkerTry() bool {
	if s.weighted != nil && !s.weighted.TryAcquire(1) {
		return false
	}

	s.wg.Add(1)

	return true
}

func (s *sem) DeferWorker() {
	if s.weighted != nil {
		s.weighted.Release(1)
	}

	s.wg.Done()
}

func (s *sem) WaitAll() error {
	done := make(chan struct{})

	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

func (s *sem) DeferMain() {
	s.cancel()
}

func (s *sem) Weighted() int64 {
	return s.weight
}
