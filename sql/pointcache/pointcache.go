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

// Package pointcache holds the bidirectional UUID<->name mapping for
// the upstream's points, populated lazily from the Session.
// Concurrent misses on the same key may issue duplicate upstream
// lookups; the duplicate lookup is harmless, Register is idempotent.
package pointcache

import (
	"sync"

	"github.com/google/uuid"
)

// Cache is a thread-safe bidirectional UUID<->name table. The zero value
// is ready to use.
type Cache struct {
	mu        sync.RWMutex
	byUUID    map[uuid.UUID]string
	byName    map[string]uuid.UUID
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{
		byUUID: make(map[uuid.UUID]string),
		byName: make(map[string]uuid.UUID),
	}
}

// GetName returns the name registered for id, if any.
func (c *Cache) GetName(id uuid.UUID) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.byUUID[id]
	return n, ok
}

// GetUUID returns the UUID registered for name, if any.
func (c *Cache) GetUUID(name string) (uuid.UUID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byName[name]
	return id, ok
}

// Register binds id to name, replacing any prior entry on either side so
// the cache never serves a stale UUID for a reused name or vice versa
// so the cache never serves a stale UUID.
func (c *Cache) Register(id uuid.UUID, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.byUUID[id]; ok && old != name {
		delete(c.byName, old)
	}
	if old, ok := c.byName[name]; ok && old != id {
		delete(c.byUUID, old)
	}

	c.byUUID[id] = name
	c.byName[name] = id
}

// Len returns the number of distinct bindings currently cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byUUID)
}
