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

// Package port is the Port Manager: an accept loop gating admission
// against a per-class connection limit, dialing the upstream server for
// every accepted client, and handing the pair off to a Connections
// Manager. Accept blocks on its own goroutine (net.Listener.Accept is
// already blocking),
// and each accepted pair gets its own Connection goroutines; "pause"
// stops (and discards) the current Connections Manager while still
// accepting and immediately refusing, "resume" creates a fresh one.
package port

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"sync"

	"github.com/sabouaram/valve/admission"
	"github.com/sabouaram/valve/atomic"
	"github.com/sabouaram/valve/duration"
	"github.com/sabouaram/valve/logging"
	"github.com/sabouaram/valve/relay/connection"
	"github.com/sabouaram/valve/relay/filter"
	"github.com/sabouaram/valve/relay/manager"
	"github.com/sabouaram/valve/sockcfg"
)

// handshakeConcurrency bounds how many TLS handshakes a Port drives at
// once through its Tasks pool, independent of the per-class connection
// limit: a handshake is CPU/crypto bound rather than admission-gated, so
// it gets its own, smaller cap.
const handshakeConcurrency = 256

// Counters is a snapshot of a Port's lifetime admission accounting.
type Counters struct {
	Accepted uint64
	Refused  uint64
	Failed   uint64
}

// Port accepts client connections on one or more listeners, dials the
// configured upstream for each, and hands the pair to a Manager while the
// Port is running. Every listener shares the same admission limiter and
// Manager, so the per-class connection limit and stats are aggregate
// across all of the class's listen endpoints, however many addresses
// the class's configured list carries.
type Port struct {
	Name string

	listens          []sockcfg.Listen
	dial             sockcfg.Dial
	filter           filter.Filter
	limit            int64
	handshakeTimeout duration.Duration

	mu      sync.Mutex
	lns     []net.Listener
	mgr     *manager.Manager
	limiter *admission.Limiter
	tasks   *admission.Tasks
	running bool

	nextID *atomic.Counter

	accepted *atomic.Counter
	refused  *atomic.Counter
	failed   *atomic.Counter

	stopAccept chan struct{}
	acceptDone chan struct{}

	log interface {
		Info(message string, data interface{}, args ...interface{})
		Error(message string, data interface{}, args ...interface{})
	}
}

// Options configures a new Port.
type Options struct {
	Name    string
	Listens []sockcfg.Listen
	Dial    sockcfg.Dial
	Filter  filter.Filter
	Limit   int64

	// HandshakeTimeout bounds the TLS handshake on each accepted
	// connection. Zero means connection.DefaultHandshakeTimeout applies.
	HandshakeTimeout duration.Duration
}

// New builds a Port. No listener is opened until Start is called.
func New(opt Options) *Port {
	return &Port{
		Name:             opt.Name,
		listens:          opt.Listens,
		dial:             opt.Dial,
		filter:           opt.Filter,
		limit:            opt.Limit,
		handshakeTimeout: opt.HandshakeTimeout,
		nextID:           atomic.NewCounter(),
		accepted:         atomic.NewCounter(),
		refused:          atomic.NewCounter(),
		failed:           atomic.NewCounter(),
		stopAccept:       make(chan struct{}),
		acceptDone:       make(chan struct{}),
		log:              logging.Component("relay.port"),
	}
}

// Start opens every configured listening socket and begins accepting on
// each; it creates a fresh Manager shared by all of them, putting the
// Port in the "running" state.
func (p *Port) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	lns := make([]net.Listener, 0, len(p.listens))
	for _, l := range p.listens {
		ln, e := l.Listener()
		if e != nil {
			for _, opened := range lns {
				_ = opened.Close()
			}
			return e
		}
		lns = append(lns, ln)
	}

	p.lns = lns
	p.mgr = manager.New(p.Name)
	p.limiter = admission.NewLimiter(ctx, p.limit)
	p.tasks = admission.NewTasks(ctx, handshakeConcurrency)
	p.running = true
	p.stopAccept = make(chan struct{})
	p.acceptDone = make(chan struct{}, len(lns))

	for i, ln := range lns {
		go p.acceptLoop(ctx, ln)
		p.log.Info("port started", nil, "name", p.Name, "address", p.listens[i].Address)
	}

	return nil
}

// Resume is an alias of Start used by the control channel's inverted
// toggle semantics.
func (p *Port) Resume(ctx context.Context) error {
	return p.Start(ctx)
}

// Pause stops accepting on every listener and closes the current
// Manager's Connections, without tearing down the Port itself: Resume
// starts a fresh set of listeners and a fresh Manager.
func (p *Port) Pause(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	lns := p.lns
	stop := p.stopAccept
	mgr := p.mgr
	limiter := p.limiter
	tasks := p.tasks
	done := p.acceptDone
	p.mu.Unlock()

	close(stop)
	for _, ln := range lns {
		_ = ln.Close()
	}
	for range lns {
		<-done
	}

	if mgr != nil {
		_ = mgr.Shutdown(ctx)
	}
	if limiter != nil {
		limiter.Close()
	}
	if tasks != nil {
		tasks.Close()
	}

	p.log.Info("port paused", nil, "name", p.Name)

	return nil
}

// Stop is Pause plus marking the port permanently closed.
func (p *Port) Stop(ctx context.Context) error {
	return p.Pause(ctx)
}

// IsRunning reports whether the port is currently accepting.
func (p *Port) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// OpenConnections returns the number of Connections currently open on
// this port, or 0 if paused.
func (p *Port) OpenConnections() int64 {
	p.mu.Lock()
	mgr := p.mgr
	p.mu.Unlock()

	if mgr == nil {
		return 0
	}
	return mgr.OpenConnections()
}

// Counters returns the lifetime admission accounting snapshot.
func (p *Port) Counters() Counters {
	return Counters{
		Accepted: p.accepted.Load(),
		Refused:  p.refused.Load(),
		Failed:   p.failed.Load(),
	}
}

func (p *Port) acceptLoop(ctx context.Context, ln net.Listener) {
	p.mu.Lock()
	limiter := p.limiter
	mgr := p.mgr
	tasks := p.tasks
	done := p.acceptDone
	p.mu.Unlock()

	defer func() { done <- struct{}{} }()

	for {
		conn, e := ln.Accept()
		if e != nil {
			select {
			case <-p.stopAccept:
				return
			default:
			}
			if errors.Is(e, net.ErrClosed) {
				return
			}
			p.log.Error("accept failed", nil, "name", p.Name, "error", e)
			continue
		}

		if !limiter.TryAdmit() {
			p.refused.Add(1)
			_ = conn.Close()
			continue
		}

		go p.handle(ctx, conn, limiter, mgr, tasks)
	}
}

func (p *Port) handle(ctx context.Context, client net.Conn, limiter *admission.Limiter, mgr *manager.Manager, tasks *admission.Tasks) {
	timeout := p.handshakeTimeout.Time()
	if timeout <= 0 {
		timeout = connection.DefaultHandshakeTimeout
	}

	// The client-side TLS handshake must finish before the upstream
	// connect is issued, so SNI/cert selection has already happened by
	// the time the server side comes up. The handshake runs through the
	// bounded task pool under its own deadline; a client that never
	// sends a ClientHello is dropped when the deadline fires.
	if tconn, ok := client.(*tls.Conn); ok {
		hsCtx, cancel := context.WithTimeout(ctx, timeout)
		var hsErr error
		runErr := tasks.Run(hsCtx, func() {
			hsErr = tconn.HandshakeContext(hsCtx)
		})
		cancel()
		if runErr == nil {
			runErr = hsErr
		}
		if runErr != nil {
			p.failed.Add(1)
			limiter.Release()
			_ = client.Close()
			p.log.Error("client handshake failed", nil, "name", p.Name, "error", runErr)
			return
		}
	}

	upstream, e := p.dial.DialContext(ctx)
	if e != nil {
		p.failed.Add(1)
		limiter.Release()
		_ = client.Close()
		p.log.Error("upstream connect failed", nil, "name", p.Name, "error", e)
		return
	}

	if tc, ok := upstream.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
		_ = tc.SetKeepAlive(true)
	}

	// The server-side handshake is driven eagerly too, under the same
	// deadline, so a hung upstream negotiation cannot stall a Direction
	// forever once forwarding starts.
	if tconn, ok := upstream.(*tls.Conn); ok {
		hsCtx, cancel := context.WithTimeout(ctx, timeout)
		var hsErr error
		runErr := tasks.Run(hsCtx, func() {
			hsErr = tconn.HandshakeContext(hsCtx)
		})
		cancel()
		if runErr == nil {
			runErr = hsErr
		}
		if runErr != nil {
			p.failed.Add(1)
			limiter.Release()
			_ = client.Close()
			_ = upstream.Close()
			p.log.Error("upstream handshake failed", nil, "name", p.Name, "error", runErr)
			return
		}
	}

	c := connection.New(connection.Options{
		ID:         p.nextID.Add(1),
		Controlled: p.Name == "controlled",
		Client:     client,
		Server:     upstream,
		Filter:     p.filter,
		Limiter:    limiter,
	})

	if !mgr.Add(c) {
		c.Close()
		return
	}

	p.accepted.Add(1)
	c.Open(ctx)
}
