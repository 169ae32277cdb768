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

// Package filter is the pluggable byte-stream filter capability: a
// callback pair, onClientData/onServerData, through which a Direction
// exposes a read-only view of the chunk just read and a write-only
// buffer the callback may fill in to replace it. Filter.class
// configuration names a Builder registered here instead of being loaded
// reflectively.
package filter

// Replacement is the lazily-written buffer a Filter may fill in to
// rewrite (or drop) a chunk of plaintext.
type Replacement struct {
	buf      []byte
	modified bool
}

// Write appends to the replacement buffer and marks it modified.
func (r *Replacement) Write(p []byte) (int, error) {
	r.buf = append(r.buf, p...)
	r.modified = true
	return len(p), nil
}

// Drop marks the replacement modified with no bytes, which the Direction
// interprets as "forward nothing".
func (r *Replacement) Drop() {
	r.buf = r.buf[:0]
	r.modified = true
}

// Modified reports whether the filter touched the replacement at all.
func (r *Replacement) Modified() bool {
	return r.modified
}

// Bytes returns the bytes written to the replacement so far.
func (r *Replacement) Bytes() []byte {
	return r.buf
}

// Filter is the payload inspection/rewrite capability. Implementations
// must not retain original beyond the call.
type Filter interface {
	// OnClientData is invoked with plaintext read from the client before
	// it is forwarded to the server.
	OnClientData(original []byte, replacement *Replacement)

	// OnServerData is invoked with plaintext read from the server before
	// it is forwarded to the client.
	OnServerData(original []byte, replacement *Replacement)
}

// Builder constructs a Filter instance; used by the build-time registry.
type Builder func() (Filter, error)

var registry = map[string]Builder{}

// Register adds a named Filter builder, the equivalent of reflective
// filter.class loading in a target language that doesn't have it.
func Register(name string, b Builder) {
	registry[name] = b
}

// Lookup returns the builder registered under name, if any.
func Lookup(name string) (Builder, bool) {
	b, ok := registry[name]
	return b, ok
}

// Apply resolves, for one forwarded chunk, what bytes should actually be
// sent. ok is false when the filter dropped the chunk entirely.
func Apply(f Filter, fromClient bool, original []byte) (out []byte, ok bool) {
	if f == nil {
		return original, true
	}

	var r Replacement

	if fromClient {
		f.OnClientData(original, &r)
	} else {
		f.OnServerData(original, &r)
	}

	if !r.Modified() {
		return original, true
	}

	if len(r.Bytes()) == 0 {
		return nil, false
	}

	return r.Bytes(), true
}
