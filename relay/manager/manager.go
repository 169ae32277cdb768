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

// Package manager is the Connections Manager: a registry of open relayed
// Connections and their aggregate byte counters. Rather than a
// single-threaded reactor polling one selector, each accepted Connection
// already drives itself on its own pair of goroutines (see
// relay/connection and relay/direction); the Manager's job is purely
// bookkeeping - tracking what is open, producing a stats snapshot, and
// closing everything still open on shutdown (IsRunning,
// OpenConnections, Done, Shutdown).
package manager

import (
	"context"
	"sync"

	"github.com/sabouaram/valve/atomic"
	"github.com/sabouaram/valve/logging"
	"github.com/sabouaram/valve/relay/connection"
)

// Manager tracks every open Connection for one port class (direct or
// controlled).
type Manager struct {
	name string

	mu    sync.Mutex
	conns map[uint64]*connection.Connection

	running atomic.Value[bool]
	done    chan struct{}
	closeOn sync.Once

	bytesClientToServer *atomic.Counter
	bytesServerToClient *atomic.Counter
	closedTotal         *atomic.Counter

	log interface {
		Info(message string, data interface{}, args ...interface{})
	}
}

// New returns a running Manager identified by name (used in log lines and
// metrics labels, e.g. "direct" or "controlled").
func New(name string) *Manager {
	m := &Manager{
		name:                name,
		conns:               make(map[uint64]*connection.Connection),
		running:             atomic.NewValue[bool](),
		bytesClientToServer: atomic.NewCounter(),
		bytesServerToClient: atomic.NewCounter(),
		closedTotal:         atomic.NewCounter(),
		done:                make(chan struct{}),
		log:                 logging.Component("relay.manager"),
	}
	m.running.Store(true)
	return m
}

// Name returns the port class this manager tracks.
func (m *Manager) Name() string {
	return m.name
}

// IsRunning reports whether the manager still accepts new Connections.
func (m *Manager) IsRunning() bool {
	return m.running.Load()
}

// Add registers c and arranges for it to be automatically removed once it
// closes. Returns false (and does not register c) if the manager has
// already been shut down.
func (m *Manager) Add(c *connection.Connection) bool {
	if !m.running.Load() {
		return false
	}

	m.mu.Lock()
	if !m.running.Load() {
		m.mu.Unlock()
		return false
	}
	m.conns[c.ID] = c
	m.mu.Unlock()

	go func() {
		<-c.Done()
		m.remove(c)
	}()

	return true
}

func (m *Manager) remove(c *connection.Connection) {
	stats := c.Stats()

	m.mu.Lock()
	delete(m.conns, c.ID)
	m.mu.Unlock()

	m.bytesClientToServer.Add(stats.BytesClientToServer)
	m.bytesServerToClient.Add(stats.BytesServerToClient)
	m.closedTotal.Add(1)
}

// OpenConnections returns the number of Connections currently tracked.
func (m *Manager) OpenConnections() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.conns))
}

// Stats is an aggregate byte/connection snapshot across the manager's
// lifetime, including connections that have already closed.
type Stats struct {
	Open                int64
	ClosedTotal         uint64
	BytesClientToServer uint64
	BytesServerToClient uint64
}

// Stats returns the current aggregate snapshot.
func (m *Manager) Stats() Stats {
	open := m.OpenConnections()

	m.mu.Lock()
	var liveC, liveS uint64
	for _, c := range m.conns {
		s := c.Stats()
		liveC += s.BytesClientToServer
		liveS += s.BytesServerToClient
	}
	m.mu.Unlock()

	return Stats{
		Open:                open,
		ClosedTotal:         m.closedTotal.Load(),
		BytesClientToServer: m.bytesClientToServer.Load() + liveC,
		BytesServerToClient: m.bytesServerToClient.Load() + liveS,
	}
}

// Done returns a channel closed once Shutdown has completed.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Shutdown stops accepting bookkeeping for new Connections and closes
// every Connection still open, waiting (bounded by ctx) for each to
// finish closing.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.running.Store(false)

	m.mu.Lock()
	open := make([]*connection.Connection, 0, len(m.conns))
	for _, c := range m.conns {
		open = append(open, c)
	}
	m.mu.Unlock()

	for _, c := range open {
		c.Close()
	}

	for _, c := range open {
		select {
		case <-c.Done():
		case <-ctx.Done():
			m.closeOn.Do(func() { close(m.done) })
			return ctx.Err()
		}
	}

	m.log.Info("manager shut down", nil, "name", m.name, "closed", len(open))
	m.closeOn.Do(func() { close(m.done) })

	return nil
}
