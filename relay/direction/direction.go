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

// Package direction implements one half-duplex byte pipe of a relayed
// connection: read from a source net.Conn, run the optional filter hook,
// write to a destination net.Conn. crypto/tls already performs the
// wrap/unwrap handshake state machine behind the net.Conn interface, so
// this package re-expresses the read/filter/write loop as a single
// blocking goroutine moving through an explicit state enum rather than a
// non-blocking selector loop driven by external readiness events. The
// single in-flight-chunk invariant falls out of the loop being
// synchronous: a direction never starts reading the next chunk until the
// previous one has been handed to Write.
package direction

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/sabouaram/valve/atomic"
	"github.com/sabouaram/valve/buffer"
	liblog "github.com/sabouaram/valve/logger"
	"github.com/sabouaram/valve/logging"
	"github.com/sabouaram/valve/relay/filter"
)

// State is the direction's current position in the read/filter/write
// loop, the Go-idiomatic rendition of the handshake-status branches a
// selector-driven implementation would track.
type State uint8

const (
	StateReading State = iota
	StateFiltering
	StateWriting
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateReading:
		return "reading"
	case StateFiltering:
		return "filtering"
	case StateWriting:
		return "writing"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// CloseWriter is implemented by net.Conn types (notably *net.TCPConn and
// *tls.Conn) that support half-closing their write side without tearing
// down the read side.
type CloseWriter interface {
	CloseWrite() error
}

// Direction moves bytes from src to dst, applying an optional Filter to
// each chunk, until src returns an error/EOF or Stop is called.
type Direction struct {
	Name       string
	FromClient bool

	src  net.Conn
	dst  net.Conn
	pool buffer.Pool
	flt  filter.Filter

	// OnStop is invoked exactly once, from the direction's own goroutine,
	// when the loop exits. err is nil only when Stop was called
	// explicitly; otherwise it is the read/write error that ended the
	// loop (io.EOF included).
	OnStop func(d *Direction, err error)

	state   atomic.Value[uint32]
	stopReq atomic.Value[bool]
	stopped atomic.Value[bool]
	bytes   *atomic.Counter

	mu      sync.Mutex
	done    chan struct{}
	lastErr error

	log liblog.Logger
}

// New builds a Direction reading from src and writing to dst. pool
// supplies the plaintext buffers; flt may be nil.
func New(name string, fromClient bool, src, dst net.Conn, pool buffer.Pool, flt filter.Filter) *Direction {
	d := &Direction{
		Name:       name,
		FromClient: fromClient,
		src:        src,
		dst:        dst,
		pool:       pool,
		flt:        flt,
		state:      atomic.NewValue[uint32](),
		stopReq:    atomic.NewValue[bool](),
		stopped:    atomic.NewValue[bool](),
		bytes:      atomic.NewCounter(),
		done:       make(chan struct{}),
		log:        logging.Component("relay.direction"),
	}
	d.state.Store(uint32(StateReading))
	d.stopReq.Store(false)
	d.stopped.Store(false)
	return d
}

// State returns the direction's current loop position.
func (d *Direction) State() State {
	return State(d.state.Load())
}

func (d *Direction) setState(s State) {
	d.state.Store(uint32(s))
}

// Stopped reports whether the loop has exited.
func (d *Direction) Stopped() bool {
	return d.stopped.Load()
}

// BytesMoved returns the total plaintext bytes this direction has
// forwarded so far.
func (d *Direction) BytesMoved() uint64 {
	return d.bytes.Load()
}

// Done returns a channel closed when the loop has exited.
func (d *Direction) Done() <-chan struct{} {
	return d.done
}

// Stop requests the loop exit at its next opportunity by closing the
// source side for reading. Safe to call multiple times and from any
// goroutine.
func (d *Direction) Stop() {
	if !d.stopReq.CompareAndSwap(false, true) {
		return
	}
	_ = d.src.Close()
}

// Run drives the read -> filter -> write loop until the source returns an
// error, ctx is cancelled, or Stop is called. It always returns after
// cleanup and always invokes OnStop exactly once before returning.
func (d *Direction) Run(ctx context.Context) {
	defer d.finish()

	go func() {
		select {
		case <-ctx.Done():
			d.Stop()
		case <-d.done:
		}
	}()

	for {
		if d.stopReq.Load() {
			return
		}

		d.setState(StateReading)
		buf := d.pool.Borrow()

		n, rerr := d.src.Read(buf)

		if n > 0 {
			chunk := buf[:n]
			d.bytes.Add(uint64(n))

			d.setState(StateFiltering)
			out, ok := filter.Apply(d.flt, d.FromClient, chunk)

			if ok && len(out) > 0 {
				d.setState(StateWriting)
				if _, werr := d.dst.Write(out); werr != nil {
					d.pool.Return(buf)
					d.fail(werr)
					return
				}
			}

			if ok && len(chunk) == cap(chunk) {
				d.growPool()
			}
		}

		d.pool.Return(buf)

		if rerr != nil {
			d.fail(rerr)
			return
		}
	}
}

// growPool raises the expanding pool's ceiling when a read fully filled
// its buffer, a hint that a larger chunk is waiting (the buffer-overflow
// path of an explicit TLS unwrap loop, here handled by growing ahead of
// the next Borrow instead of reacting to a dedicated overflow error).
func (d *Direction) growPool() {
	g, ok := d.pool.(buffer.Grower)
	if !ok {
		return
	}
	g.Grow(g.Capacity() * 2)
}

// fail records the terminal error and begins draining: the write side is
// half-closed (if supported) so the peer observes EOF instead of a reset.
func (d *Direction) fail(err error) {
	d.setState(StateDraining)

	if errors.Is(err, io.EOF) {
		d.logf("peer closed (EOF)")
	} else {
		d.logf("direction ended: %v", err)
	}

	if cw, ok := d.dst.(CloseWriter); ok {
		_ = cw.CloseWrite()
	} else {
		_ = d.dst.Close()
	}

	d.lastErr = err
}

func (d *Direction) finish() {
	d.setState(StateStopped)
	d.stopped.Store(true)

	d.mu.Lock()
	select {
	case <-d.done:
	default:
		close(d.done)
	}
	d.mu.Unlock()

	if d.OnStop != nil {
		d.OnStop(d, d.lastErr)
	}
}

func (d *Direction) logf(message string, args ...interface{}) {
	if d.log != nil {
		d.log.Debug(message, nil, args...)
	}
}
