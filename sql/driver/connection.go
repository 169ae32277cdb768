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

// Package driver implements the SQL Connection facade over the
// parser/request/paging/resultset packages, plus a thin
// database/sql/driver adapter so the facade can also be reached
// through the standard library's sql.DB.
package driver

import (
	"context"
	"sync"

	"github.com/google/uuid"

	liberr "github.com/sabouaram/valve/errors"
	"github.com/sabouaram/valve/errs"
	"github.com/sabouaram/valve/sql/paging"
	"github.com/sabouaram/valve/sql/pointcache"
	"github.com/sabouaram/valve/sql/resultset"
	"github.com/sabouaram/valve/sql/session"
)

// defaultAutoCommitLimit bounds the statement-local pending-update
// queue before it is flushed into the connection's own queue, absent
// an explicit SetAutoCommitLimit call.
const defaultAutoCommitLimit = 256

// Connection is the SQL Connection facade: a Session, its point cache
// and paging engine, and the autoCommit/holdability/pending-update
// state.
type Connection struct {
	sess   session.Session
	cache  *pointcache.Cache
	engine *paging.Engine

	mu                sync.Mutex
	autoCommit        bool
	transactionFailed bool
	readOnly          bool
	holdability       resultset.Holdability
	autoCommitLimit   int
	pending           []session.PointUpdate
	warnings          []error
	closed            bool
}

// NewConnection builds a Connection bound to sess, with autoCommit
// enabled and CLOSE_CURSORS_AT_COMMIT holdability, matching the
// defaults the connection URL advertises.
func NewConnection(sess session.Session) *Connection {
	cache := pointcache.New()
	return &Connection{
		sess:            sess,
		cache:           cache,
		engine:          paging.New(sess, cache),
		autoCommit:      true,
		holdability:     resultset.HoldCloseAtCommit,
		autoCommitLimit: defaultAutoCommitLimit,
	}
}

func (c *Connection) requireOpen() liberr.Error {
	if c.closed {
		return errs.SQLConnectionClosed.Error()
	}
	return nil
}

// AutoCommit reports the current auto-commit mode.
func (c *Connection) AutoCommit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoCommit
}

// SetAutoCommit toggles auto-commit. Turning it from false to true
// performs an implicit commit first.
func (c *Connection) SetAutoCommit(ctx context.Context, on bool) liberr.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireOpenLocked(); err != nil {
		return err
	}
	if on && !c.autoCommit {
		if err := c.sendPendingLocked(ctx); err != nil {
			return err
		}
	}
	c.autoCommit = on
	return nil
}

func (c *Connection) requireOpenLocked() liberr.Error {
	if c.closed {
		return errs.SQLConnectionClosed.Error()
	}
	return nil
}

// ReadOnly reports whether the connection is marked read-only.
func (c *Connection) ReadOnly() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readOnly
}

// SetReadOnly marks the connection read-only; write statements still
// fail at parse/execute time through the request model's own
// TABLE_READ_ONLY rule, this flag only gates explicit pending writes.
func (c *Connection) SetReadOnly(ro bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readOnly = ro
}

// Holdability returns the connection's cursor holdability.
func (c *Connection) Holdability() resultset.Holdability {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.holdability
}

// SetHoldability sets the connection's cursor holdability. Both
// CLOSE_CURSORS_AT_COMMIT and HOLD_CURSORS_OVER_COMMIT are supported;
// any other value is rejected.
func (c *Connection) SetHoldability(h resultset.Holdability) liberr.Error {
	if h != resultset.HoldCloseAtCommit && h != resultset.HoldOverCommit {
		return errs.SQLResultSetHoldabilityNotSupported.Error()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.holdability = h
	return nil
}

// TransactionIsolationReadCommitted is the sole isolation level the
// driver advertises.
const TransactionIsolationReadCommitted = 1

// SetTransactionIsolation rejects every level except
// TransactionIsolationReadCommitted.
func (c *Connection) SetTransactionIsolation(level int) liberr.Error {
	if level != TransactionIsolationReadCommitted {
		return errs.SQLTransactionLevelNotSupported.Error()
	}
	return nil
}

// SetAutoCommitLimit overrides the pending-queue size that triggers an
// early flush under HOLD_CURSORS_OVER_COMMIT holdability.
func (c *Connection) SetAutoCommitLimit(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoCommitLimit = n
}

// Warnings returns the per-row exceptions chained onto the connection
// by the most recent commit.
func (c *Connection) Warnings() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]error(nil), c.warnings...)
}

// QueueUpdate implements resultset.UpdateSink: it appends u to the
// pending queue and reports whether its size now exceeds
// autoCommitLimit under HOLD_CURSORS_OVER_COMMIT holdability.
func (c *Connection) QueueUpdate(ctx context.Context, u session.PointUpdate) (bool, liberr.Error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireOpenLocked(); err != nil {
		return false, err
	}
	c.pending = append(c.pending, u)
	flush := c.autoCommit || (c.holdability == resultset.HoldOverCommit && len(c.pending) > c.autoCommitLimit)
	return flush, nil
}

// FlushUpdates implements resultset.UpdateSink by sending the pending
// queue to the upstream store without otherwise touching transaction
// state; the resultset calls it when the pending queue outgrows the
// connection's autoCommitLimit.
func (c *Connection) FlushUpdates(ctx context.Context) liberr.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendPendingLocked(ctx)
}

// QueuePending appends one or more direct writes (from an executed
// INSERT/UPDATE/DELETE statement, as opposed to a positioned ResultSet
// edit) and flushes immediately when auto-commit is on.
func (c *Connection) QueuePending(ctx context.Context, updates []session.PointUpdate) liberr.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireOpenLocked(); err != nil {
		return err
	}
	c.pending = append(c.pending, updates...)
	if c.autoCommit {
		return c.sendPendingLocked(ctx)
	}
	return nil
}

// Commit sends all pending updates in order; any per-row exception
// becomes a warning chained onto the connection rather than failing
// the call outright. Invalid while auto-commit is
// enabled.
func (c *Connection) Commit(ctx context.Context) liberr.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.autoCommit {
		return errs.SQLAutoCommit.Error()
	}
	if c.holdability == resultset.HoldCloseAtCommit {
		// Cursors bound to this connection with CLOSE_CURSORS_AT_COMMIT
		// holdability are expected to already be closed by their own
		// Close() call before Commit is reached; nothing further to do
		// here since this facade does not track open cursors itself.
	}
	return c.sendPendingLocked(ctx)
}

// Rollback discards pending updates. Invalid while auto-commit is
// enabled.
func (c *Connection) Rollback(ctx context.Context) liberr.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.autoCommit {
		return errs.SQLAutoCommit.Error()
	}
	c.pending = nil
	c.transactionFailed = false
	return nil
}

func (c *Connection) sendPendingLocked(ctx context.Context) liberr.Error {
	if len(c.pending) == 0 {
		return nil
	}
	batch := c.pending
	c.pending = nil

	rowErrs, err := c.sess.Update(ctx, batch)
	if err != nil {
		c.transactionFailed = true
		return err
	}
	for _, e := range rowErrs {
		if e != nil {
			c.warnings = append(c.warnings, e)
		}
	}
	return nil
}

// PrepareStatement parses sql once; each Query/ExecuteUpdate call
// deep-copies the parsed Request so concurrent batch entries never
// share parameter state.
func (c *Connection) PrepareStatement(sqlText string) (*Statement, liberr.Error) {
	if err := c.requireOpen(); err != nil {
		return nil, err
	}
	req, err := parseSQL(sqlText)
	if err != nil {
		return nil, err
	}
	return &Statement{
		conn:        c,
		template:    req,
		typ:         resultset.TypeForwardOnly,
		concurrency: resultset.ConcurReadOnly,
	}, nil
}

// Close releases the connection's upstream session. Safe to call more
// than once.
func (c *Connection) Close(ctx context.Context) liberr.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.sess.Disconnect(ctx)
}

// pointLabel returns the cached name for id, falling back to its UUID
// string when the cache holds no binding (e.g. the predicate named the
// point by POINT_UUID directly).
func (c *Connection) pointLabel(id uuid.UUID) string {
	if n, ok := c.cache.GetName(id); ok {
		return n
	}
	return id.String()
}
