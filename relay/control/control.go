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

// Package control is the out-of-band Control Port: a single blocking
// accept loop, at most one client held at a time, that toggles a gated
// Port between running and paused for as long as the controlling client
// keeps the socket open. Holding the connection open is the liveness
// signal; any byte, EOF, or I/O error releases control and reverts the
// gated Port, then the loop goes back to accepting.
package control

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/sabouaram/valve/atomic"
	"github.com/sabouaram/valve/duration"
	"github.com/sabouaram/valve/logging"
	"github.com/sabouaram/valve/sockcfg"
)

// State is the Control Port's current position.
type State uint8

const (
	StateUnbound State = iota
	StateListening
	StateHeld
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateListening:
		return "listening"
	case StateHeld:
		return "held"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Gate is the controlled Port Manager's Pause/Resume surface.
type Gate interface {
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
}

// Port is the control listener. When Inverted is false, a held connection
// resumes the gate and its loss pauses it; when true, the polarity is
// reversed (a held connection pauses the gate).
type Port struct {
	listen           sockcfg.Listen
	gate             Gate
	inverted         bool
	handshakeTimeout time.Duration

	state   atomic.Value[uint32]
	resumes *atomic.Counter
	pauses  *atomic.Counter

	mu   sync.Mutex
	ln   net.Listener
	held net.Conn
	stop chan struct{}
	done chan struct{}

	log interface {
		Info(message string, data interface{}, args ...interface{})
		Error(message string, data interface{}, args ...interface{})
	}
}

// Options configures a new control Port.
type Options struct {
	Listen sockcfg.Listen
	Gate   Gate

	// Inverted reverses the held/not-held polarity: a held connection
	// pauses the gate instead of resuming it.
	Inverted bool

	// HandshakeTimeout bounds the TLS handshake on accept when the
	// listener is TLS-enabled. Zero means no bound.
	HandshakeTimeout duration.Duration
}

// New builds a control Port in the unbound state; call Start to open the
// listener and begin accepting.
func New(opt Options) *Port {
	p := &Port{
		listen:           opt.Listen,
		gate:             opt.Gate,
		inverted:         opt.Inverted,
		handshakeTimeout: opt.HandshakeTimeout.Time(),
		state:            atomic.NewValue[uint32](),
		resumes:          atomic.NewCounter(),
		pauses:           atomic.NewCounter(),
		stop:             make(chan struct{}),
		done:             make(chan struct{}),
		log:              logging.Component("relay.control"),
	}
	p.state.Store(uint32(StateUnbound))
	return p
}

// State returns the control Port's current position.
func (p *Port) State() State {
	return State(p.state.Load())
}

// Counters returns the lifetime resume/pause transition counts.
func (p *Port) Counters() (resumes, pauses uint64) {
	return p.resumes.Load(), p.pauses.Load()
}

// Start opens the listener and runs the accept loop on its own goroutine.
func (p *Port) Start(ctx context.Context) error {
	ln, e := p.listen.Listener()
	if e != nil {
		return e
	}

	p.mu.Lock()
	p.ln = ln
	p.mu.Unlock()

	p.state.Store(uint32(StateListening))

	go p.acceptLoop(ctx)

	return nil
}

// Stop closes the listener and unwinds any currently-held connection.
func (p *Port) Stop(ctx context.Context) error {
	p.state.Store(uint32(StateClosing))

	p.mu.Lock()
	ln := p.ln
	held := p.held
	p.mu.Unlock()

	close(p.stop)
	if ln != nil {
		_ = ln.Close()
	}
	if held != nil {
		_ = held.Close()
	}

	select {
	case <-p.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.state.Store(uint32(StateUnbound))

	return nil
}

func (p *Port) acceptLoop(ctx context.Context) {
	defer close(p.done)

	p.mu.Lock()
	ln := p.ln
	p.mu.Unlock()

	for {
		conn, e := ln.Accept()
		if e != nil {
			select {
			case <-p.stop:
				return
			default:
			}
			if errors.Is(e, net.ErrClosed) {
				return
			}
			p.log.Error("control accept failed", nil, "error", e)
			continue
		}

		p.hold(ctx, conn)
	}
}

// hold services one controlling client until it disconnects, then applies
// the inverse transition and returns to accept the next one.
func (p *Port) hold(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	if p.handshakeTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(p.handshakeTimeout))
	}
	if tconn, ok := conn.(*tls.Conn); ok {
		if e := tconn.HandshakeContext(ctx); e != nil {
			p.log.Error("control handshake failed", nil, "error", e)
			return
		}
	}
	if p.handshakeTimeout > 0 {
		_ = conn.SetDeadline(time.Time{})
	}

	p.mu.Lock()
	p.held = conn
	p.mu.Unlock()

	p.state.Store(uint32(StateHeld))
	p.transition(ctx, true)

	// Any byte received counts the same as losing the socket: control is
	// asserted by holding the connection open and silent.
	buf := make([]byte, 1)
	for {
		n, e := conn.Read(buf)
		if n > 0 || e != nil {
			break
		}
	}

	p.mu.Lock()
	p.held = nil
	p.mu.Unlock()

	select {
	case <-p.stop:
		return
	default:
	}

	p.state.Store(uint32(StateListening))
	p.transition(ctx, false)
}

// transition applies Resume or Pause to the gated Port according to held
// and the inverted polarity, and bumps the matching counter.
func (p *Port) transition(ctx context.Context, held bool) {
	resume := held != p.inverted

	var e error
	if resume {
		e = p.gate.Resume(ctx)
		p.resumes.Add(1)
		p.log.Info("control: resumed gated port", nil, "held", held)
	} else {
		e = p.gate.Pause(ctx)
		p.pauses.Add(1)
		p.log.Info("control: paused gated port", nil, "held", held)
	}

	if e != nil {
		p.log.Error("control: gate transition failed", nil, "error", e)
	}
}
