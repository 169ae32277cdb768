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

// Package connection pairs a client-facing and a server-facing net.Conn
// into the two Directions of one relayed session and owns their
// lifetime. The two Directions reference each other only through the
// Connection's onStop callback, which is the
// interior-mutability-owned-by-the-parent rendition of the sibling
// wake-up: neither Direction holds a pointer to the other.
package connection

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/sabouaram/valve/admission"
	"github.com/sabouaram/valve/atomic"
	"github.com/sabouaram/valve/buffer"
	"github.com/sabouaram/valve/logging"
	"github.com/sabouaram/valve/relay/direction"
	"github.com/sabouaram/valve/relay/filter"
)

// DefaultHandshakeTimeout is used when a Connection is not given an
// explicit one.
const DefaultHandshakeTimeout = 60 * time.Second

// Stats is a point-in-time snapshot of one connection's byte counters.
type Stats struct {
	BytesClientToServer uint64
	BytesServerToClient uint64
}

// Connection pairs two Directions sharing one client<->server relay leg.
type Connection struct {
	ID         uint64
	Controlled bool

	client net.Conn
	server net.Conn

	toServer *direction.Direction
	toClient *direction.Direction

	limiter *admission.Limiter

	closed atomic.Value[bool]
	stopCh chan struct{}

	onClose func(c *Connection)

	log interface {
		Debug(message string, data interface{}, args ...interface{})
	}
}

// Options configures a new Connection.
type Options struct {
	ID         uint64
	Controlled bool
	Client     net.Conn
	Server     net.Conn
	Filter     filter.Filter
	Limiter    *admission.Limiter
	OnClose    func(c *Connection)
}

// New builds a Connection from two already-dialed/accepted net.Conn
// endpoints, choosing the expanding buffer pool for either side that
// terminates TLS and the fixed pool otherwise.
func New(opt Options) *Connection {
	c := &Connection{
		ID:         opt.ID,
		Controlled: opt.Controlled,
		client:     opt.Client,
		server:     opt.Server,
		limiter:    opt.Limiter,
		closed:     atomic.NewValue[bool](),
		stopCh:     make(chan struct{}),
		onClose:    opt.OnClose,
		log:        logging.Component("relay.connection"),
	}
	c.closed.Store(false)

	c.toServer = direction.New("client->server", true, c.client, c.server, poolFor(c.client), opt.Filter)
	c.toClient = direction.New("server->client", false, c.server, c.client, poolFor(c.server), opt.Filter)

	c.toServer.OnStop = c.directionStopped
	c.toClient.OnStop = c.directionStopped

	return c
}

func poolFor(conn net.Conn) buffer.Pool {
	if _, ok := conn.(*tls.Conn); ok {
		return buffer.Expanding
	}
	return buffer.Fixed
}

// Open starts both Directions. TLS handshakes on either side have
// already completed by the time a Connection is opened (the Port
// Manager drives them, bounded by its handshake timeout, before dialing
// the upstream), so Open only has to start forwarding.
func (c *Connection) Open(ctx context.Context) {
	go c.toServer.Run(ctx)
	go c.toClient.Run(ctx)
}

// directionStopped is the single collaboration point between the two
// Directions: once both have stopped, the Connection closes itself. One
// side stopping does not tear the other down; a peer that half-closes
// its write side still gets the full response drained to it, and the
// surviving Direction stops on its own read/write error once the
// half-close has propagated.
func (c *Connection) directionStopped(_ *direction.Direction, _ error) {
	if c.toServer.Stopped() && c.toClient.Stopped() {
		c.Close()
	}
}

// Close is idempotent: stops both Directions, closes both sockets,
// releases the admission slot, and notifies the owning Port Manager. The
// first-caller-wins guard is a CompareAndSwap on the atomic closed flag
// rather than a mutex-checked bool, since Close is routinely raced
// between directionStopped and an explicit caller.
func (c *Connection) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}

	close(c.stopCh)

	c.log.Debug("connection closed", nil, "id", c.ID)

	c.toServer.Stop()
	c.toClient.Stop()

	_ = c.client.Close()
	_ = c.server.Close()

	if c.limiter != nil {
		c.limiter.Release()
	}

	if c.onClose != nil {
		c.onClose(c)
	}
}

// Closed reports whether Close has run.
func (c *Connection) Closed() bool {
	return c.closed.Load()
}

// Done returns a channel closed once the connection has been closed.
func (c *Connection) Done() <-chan struct{} {
	return c.stopCh
}

// Stats returns a snapshot of bytes moved in each direction.
func (c *Connection) Stats() Stats {
	return Stats{
		BytesClientToServer: c.toServer.BytesMoved(),
		BytesServerToClient: c.toClient.BytesMoved(),
	}
}
