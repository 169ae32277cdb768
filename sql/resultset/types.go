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

// Package resultset implements the positioned row cursor produced by
// executing a parsed request: forward-
// only and scroll-insensitive cursors over the same Row representation,
// wasNull tracking, type coercion, and an updatable path that queues
// pending writes with the owning SQL Connection.
package resultset

// Type is the cursor's scrollability, fixed at statement preparation
// time (JDBC's TYPE_FORWARD_ONLY / TYPE_SCROLL_INSENSITIVE).
type Type uint8

const (
	TypeForwardOnly Type = iota
	TypeScrollInsensitive
)

// Concurrency controls whether updateX/updateRow/insertRow/deleteRow
// are permitted (CONCUR_READ_ONLY / CONCUR_UPDATABLE, the latter valid
// only against ARCHIVE).
type Concurrency uint8

const (
	ConcurReadOnly Concurrency = iota
	ConcurUpdatable
)

// Holdability governs what happens to an open cursor across a commit
// (CLOSE_CURSORS_AT_COMMIT / HOLD_CURSORS_OVER_COMMIT).
type Holdability uint8

const (
	HoldCloseAtCommit Holdability = iota
	HoldOverCommit
)
