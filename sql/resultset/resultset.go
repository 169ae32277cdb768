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

package resultset

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	liberr "github.com/sabouaram/valve/errors"
	"github.com/sabouaram/valve/errs"
	"github.com/sabouaram/valve/sql/request"
	"github.com/sabouaram/valve/sql/session"
)

// Row is one materialized result row, keyed by projected column. Both
// the ARCHIVE row shape (point name/uuid/stamp/value/state/version/
// interpolated/extrapolated) and the POINTS row shape (point name/uuid/
// state) fit this same representation.
type Row map[request.Column]interface{}

// Page is one fetched batch of rows plus pagination state, the shape
// Fetcher implementations return.
type Page struct {
	Rows         []Row
	Complete     bool
	Continuation []byte
}

// Fetcher retrieves the next page of rows for a forward-only
// ResultSet, given the continuation token of the previous page (nil
// for the first call).
type Fetcher func(ctx context.Context, continuation []byte) (*Page, liberr.Error)

// UpdateSink is the owning SQL Connection's pending-update queue, which
// ResultSet's updatable path feeds: QueueUpdate
// reports whether the connection's autoCommitLimit/holdability demand
// an immediate flush, and FlushUpdates drains the queue.
type UpdateSink interface {
	QueueUpdate(ctx context.Context, u session.PointUpdate) (flushNow bool, err liberr.Error)
	FlushUpdates(ctx context.Context) liberr.Error
}

// ResultSet is a positioned row cursor over a Row sequence, either
// forward-only (pages fetched lazily via Fetcher) or scroll-insensitive
// (every row materialized up front).
type ResultSet struct {
	meta        *MetaData
	typ         Type
	concurrency Concurrency
	holdability Holdability

	rows         []Row
	complete     bool
	continuation []byte
	fetch        Fetcher

	idx    int // -1 = beforeFirst, len(rows) = afterLast
	closed bool
	wasNull bool

	sink    UpdateSink
	pending Row // edits accumulated by updateX since the last updateRow/insertRow/deleteRow
}

// NewForwardOnly builds a TYPE_FORWARD_ONLY ResultSet that fetches
// pages lazily through fetch as the cursor advances.
func NewForwardOnly(meta *MetaData, concurrency Concurrency, holdability Holdability, fetch Fetcher, sink UpdateSink) *ResultSet {
	return &ResultSet{
		meta:        meta,
		typ:         TypeForwardOnly,
		concurrency: concurrency,
		holdability: holdability,
		fetch:       fetch,
		sink:        sink,
		idx:         -1,
	}
}

// NewScrollInsensitive builds a TYPE_SCROLL_INSENSITIVE ResultSet over
// an already-materialized row slice.
func NewScrollInsensitive(meta *MetaData, concurrency Concurrency, holdability Holdability, rows []Row, sink UpdateSink) *ResultSet {
	return &ResultSet{
		meta:        meta,
		typ:         TypeScrollInsensitive,
		concurrency: concurrency,
		holdability: holdability,
		rows:        rows,
		complete:    true,
		sink:        sink,
		idx:         -1,
	}
}

// MetaData returns the cursor's column metadata.
func (rs *ResultSet) MetaData() *MetaData {
	return rs.meta
}

// fetchMore pulls the next page (forward-only only) and appends its
// rows, returning whether any row was added.
func (rs *ResultSet) fetchMore(ctx context.Context) (bool, liberr.Error) {
	if rs.complete || rs.fetch == nil {
		return false, nil
	}
	page, err := rs.fetch(ctx, rs.continuation)
	if err != nil {
		return false, err
	}
	rs.complete = page.Complete
	rs.continuation = page.Continuation
	rs.rows = append(rs.rows, page.Rows...)
	return len(page.Rows) > 0, nil
}

func (rs *ResultSet) requireOpen() liberr.Error {
	if rs.closed {
		return errs.SQLResultSetClosed.Error()
	}
	return nil
}

func (rs *ResultSet) requireScrollInsensitive() liberr.Error {
	if rs.typ != TypeScrollInsensitive {
		return errs.SQLFeatureNotSupported.Errorf("scroll-insensitive operation on a forward-only result set")
	}
	return nil
}

// Next advances the cursor by one row, fetching the next page on
// demand for a forward-only cursor. Returns false once positioned
// after the last row.
func (rs *ResultSet) Next(ctx context.Context) (bool, liberr.Error) {
	if err := rs.requireOpen(); err != nil {
		return false, err
	}
	if rs.idx < len(rs.rows)-1 {
		rs.idx++
		return true, nil
	}
	if !rs.complete {
		added, err := rs.fetchMore(ctx)
		if err != nil {
			return false, err
		}
		if added {
			rs.idx++
			return true, nil
		}
	}
	rs.idx = len(rs.rows)
	return false, nil
}

// Previous moves the cursor back by one row. Scroll-insensitive only.
func (rs *ResultSet) Previous() (bool, liberr.Error) {
	if err := rs.requireOpen(); err != nil {
		return false, err
	}
	if err := rs.requireScrollInsensitive(); err != nil {
		return false, err
	}
	if rs.idx > 0 {
		rs.idx--
		return true, nil
	}
	rs.idx = -1
	return false, nil
}

// First positions the cursor on the first row. Scroll-insensitive only.
func (rs *ResultSet) First() (bool, liberr.Error) {
	if err := rs.requireOpen(); err != nil {
		return false, err
	}
	if err := rs.requireScrollInsensitive(); err != nil {
		return false, err
	}
	if len(rs.rows) == 0 {
		rs.idx = -1
		return false, nil
	}
	rs.idx = 0
	return true, nil
}

// Last exhausts all remaining pages and positions the cursor on the
// final row.
func (rs *ResultSet) Last(ctx context.Context) (bool, liberr.Error) {
	if err := rs.requireOpen(); err != nil {
		return false, err
	}
	for !rs.complete {
		if _, err := rs.fetchMore(ctx); err != nil {
			return false, err
		}
	}
	if len(rs.rows) == 0 {
		rs.idx = -1
		return false, nil
	}
	rs.idx = len(rs.rows) - 1
	return true, nil
}

// BeforeFirst repositions the cursor before the first row.
// Scroll-insensitive only.
func (rs *ResultSet) BeforeFirst() liberr.Error {
	if err := rs.requireOpen(); err != nil {
		return err
	}
	if err := rs.requireScrollInsensitive(); err != nil {
		return err
	}
	rs.idx = -1
	return nil
}

// AfterLast exhausts all remaining pages and positions the cursor
// after the last row.
func (rs *ResultSet) AfterLast(ctx context.Context) liberr.Error {
	if err := rs.requireOpen(); err != nil {
		return err
	}
	for !rs.complete {
		if _, err := rs.fetchMore(ctx); err != nil {
			return err
		}
	}
	rs.idx = len(rs.rows)
	return nil
}

// IsBeforeFirst reports whether the cursor precedes the first row.
func (rs *ResultSet) IsBeforeFirst() bool {
	return rs.idx == -1
}

// IsAfterLast reports whether the cursor follows the last row of a
// fully-fetched result set.
func (rs *ResultSet) IsAfterLast() bool {
	return rs.complete && rs.idx >= len(rs.rows) && len(rs.rows) > 0
}

// IsFirst reports whether the cursor is positioned on the first row.
func (rs *ResultSet) IsFirst() bool {
	return rs.idx == 0 && len(rs.rows) > 0
}

// IsLast reports whether the cursor is positioned on the last row,
// performing a one-row lookahead fetch for a forward-only cursor that
// has not yet seen its final page.
func (rs *ResultSet) IsLast(ctx context.Context) (bool, liberr.Error) {
	if err := rs.requireOpen(); err != nil {
		return false, err
	}
	if rs.idx < 0 || rs.idx != len(rs.rows)-1 {
		return false, nil
	}
	if rs.complete {
		return true, nil
	}
	added, err := rs.fetchMore(ctx)
	if err != nil {
		return false, err
	}
	return !added, nil
}

// Absolute moves to the n'th row (1-based; negative counts from the
// end on a scroll-insensitive cursor). A forward-only cursor only
// permits moving forward of its current position.
func (rs *ResultSet) Absolute(ctx context.Context, n int) (bool, liberr.Error) {
	if err := rs.requireOpen(); err != nil {
		return false, err
	}

	if rs.typ == TypeScrollInsensitive {
		var target int
		if n >= 0 {
			target = n - 1
		} else {
			target = len(rs.rows) + n
		}
		if target < 0 {
			rs.idx = -1
			return false, nil
		}
		if target >= len(rs.rows) {
			rs.idx = len(rs.rows)
			return false, nil
		}
		rs.idx = target
		return true, nil
	}

	if n <= 0 {
		return false, errs.SQLFeatureNotSupported.Errorf("absolute position must be positive on a forward-only result set")
	}
	target := n - 1
	if target < rs.idx {
		return false, errs.SQLFeatureNotSupported.Errorf("cannot move backward on a forward-only result set")
	}
	for target >= len(rs.rows) && !rs.complete {
		if _, err := rs.fetchMore(ctx); err != nil {
			return false, err
		}
	}
	if target >= len(rs.rows) {
		rs.idx = len(rs.rows)
		return false, nil
	}
	rs.idx = target
	return true, nil
}

// Relative moves the cursor by n rows from its current position.
// Scroll-insensitive only for negative n.
func (rs *ResultSet) Relative(ctx context.Context, n int) (bool, liberr.Error) {
	if err := rs.requireOpen(); err != nil {
		return false, err
	}

	if rs.typ != TypeScrollInsensitive {
		if n < 0 {
			return false, errs.SQLFeatureNotSupported.Errorf("cannot move backward on a forward-only result set")
		}
		ok := false
		for i := 0; i < n; i++ {
			var err liberr.Error
			ok, err = rs.Next(ctx)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return ok, nil
	}

	target := rs.idx + n
	if target < 0 {
		rs.idx = -1
		return false, nil
	}
	if target >= len(rs.rows) {
		rs.idx = len(rs.rows)
		return false, nil
	}
	rs.idx = target
	return true, nil
}

// RowCount returns the number of rows materialized so far.
func (rs *ResultSet) RowCount() int {
	return len(rs.rows)
}

// Close releases the cursor, flushing any pending updates first; the
// pending-update queue is always flushed on statement close.
func (rs *ResultSet) Close(ctx context.Context) liberr.Error {
	if rs.closed {
		return nil
	}
	rs.closed = true
	if rs.sink != nil {
		return rs.sink.FlushUpdates(ctx)
	}
	return nil
}

func (rs *ResultSet) currentRow() (Row, liberr.Error) {
	if err := rs.requireOpen(); err != nil {
		return nil, err
	}
	if rs.idx < 0 || rs.idx >= len(rs.rows) {
		return nil, errs.SQLInvalidCursorPosition.Error()
	}
	return rs.rows[rs.idx], nil
}

func (rs *ResultSet) get(col request.Column) (interface{}, liberr.Error) {
	row, err := rs.currentRow()
	if err != nil {
		return nil, err
	}
	v, ok := row[col]
	rs.wasNull = !ok || v == nil
	if rs.wasNull {
		return nil, nil
	}
	return v, nil
}

// WasNull reports whether the most recently fetched column value was
// NULL.
func (rs *ResultSet) WasNull() bool {
	return rs.wasNull
}

// GetInt64 returns column col coerced to int64.
func (rs *ResultSet) GetInt64(col request.Column) (int64, liberr.Error) {
	v, err := rs.get(col)
	if err != nil || v == nil {
		return 0, err
	}
	return coerceInt64(v)
}

// GetFloat64 returns column col coerced to float64.
func (rs *ResultSet) GetFloat64(col request.Column) (float64, liberr.Error) {
	v, err := rs.get(col)
	if err != nil || v == nil {
		return 0, err
	}
	return coerceFloat64(v)
}

// GetBool returns column col coerced to bool.
func (rs *ResultSet) GetBool(col request.Column) (bool, liberr.Error) {
	v, err := rs.get(col)
	if err != nil || v == nil {
		return false, err
	}
	return coerceBool(v)
}

// GetString returns column col's value formatted as a string, or "" if
// NULL.
func (rs *ResultSet) GetString(col request.Column) (string, liberr.Error) {
	v, err := rs.get(col)
	if err != nil || v == nil {
		return "", err
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return formatValue(v), nil
}

// GetTime returns column col coerced to time.Time.
func (rs *ResultSet) GetTime(col request.Column) (time.Time, liberr.Error) {
	v, err := rs.get(col)
	if err != nil || v == nil {
		return time.Time{}, err
	}
	return coerceTime(v)
}

// GetUUID returns column col coerced to a uuid.UUID.
func (rs *ResultSet) GetUUID(col request.Column) (uuid.UUID, liberr.Error) {
	v, err := rs.get(col)
	if err != nil || v == nil {
		return uuid.UUID{}, err
	}
	return coerceUUID(v)
}

// ---- Updatable path ----

func (rs *ResultSet) requireUpdatable() liberr.Error {
	if rs.concurrency != ConcurUpdatable {
		return errs.SQLResultSetReadOnly.Error()
	}
	return nil
}

// UpdateValue stages col=v in the pending edit set for the current
// row; it takes effect only once UpdateRow is called.
func (rs *ResultSet) UpdateValue(col request.Column, v interface{}) liberr.Error {
	if err := rs.requireUpdatable(); err != nil {
		return err
	}
	if !col.Meta().Writable {
		return errs.SQLColumnReadOnly.Errorf(col.String())
	}
	if rs.pending == nil {
		rs.pending = Row{}
	}
	rs.pending[col] = v
	return nil
}

// UpdateRow applies the staged edits to the current row in the local
// cursor and queues the corresponding write with the owning
// connection.
func (rs *ResultSet) UpdateRow(ctx context.Context) liberr.Error {
	if err := rs.requireUpdatable(); err != nil {
		return err
	}
	row, err := rs.currentRow()
	if err != nil {
		return err
	}
	point, stamp, lerr := rowKey(row)
	if lerr != nil {
		return lerr
	}
	for col, v := range rs.pending {
		row[col] = v
	}
	update := session.PointUpdate{Point: point, Stamp: stamp}
	if v, ok := row[request.ColumnValue]; ok {
		update.Value = v
	}
	if v, ok := row[request.ColumnState]; ok {
		if n, lerr := coerceInt64(v); lerr == nil {
			update.State = n
		}
	}
	rs.pending = nil
	if rs.sink == nil {
		return nil
	}
	flush, err := rs.sink.QueueUpdate(ctx, update)
	if err != nil {
		return err
	}
	if flush {
		return rs.sink.FlushUpdates(ctx)
	}
	return nil
}

// InsertRow queues a new point value built from the staged edits. It
// does not reposition the cursor.
func (rs *ResultSet) InsertRow(ctx context.Context) liberr.Error {
	if err := rs.requireUpdatable(); err != nil {
		return err
	}
	point, stamp, lerr := rowKey(rs.pending)
	if lerr != nil {
		return lerr
	}
	update := session.PointUpdate{Point: point, Stamp: stamp}
	if v, ok := rs.pending[request.ColumnValue]; ok {
		update.Value = v
	}
	if v, ok := rs.pending[request.ColumnState]; ok {
		if n, lerr := coerceInt64(v); lerr == nil {
			update.State = n
		}
	}
	rs.pending = nil
	if rs.sink == nil {
		return nil
	}
	flush, err := rs.sink.QueueUpdate(ctx, update)
	if err != nil {
		return err
	}
	if flush {
		return rs.sink.FlushUpdates(ctx)
	}
	return nil
}

// DeleteRow queues deletion of the current row's (point, stamp) pair.
func (rs *ResultSet) DeleteRow(ctx context.Context) liberr.Error {
	if err := rs.requireUpdatable(); err != nil {
		return err
	}
	row, err := rs.currentRow()
	if err != nil {
		return err
	}
	point, stamp, lerr := rowKey(row)
	if lerr != nil {
		return lerr
	}
	rs.pending = nil
	if rs.sink == nil {
		return nil
	}
	flush, err := rs.sink.QueueUpdate(ctx, session.PointUpdate{Point: point, Stamp: stamp, Delete: true})
	if err != nil {
		return err
	}
	if flush {
		return rs.sink.FlushUpdates(ctx)
	}
	return nil
}

// rowKey extracts the (point, stamp) identity a pending write needs.
// The UUID is expected to already be resolved in the row by the paging
// engine, whether the original predicate named the point by name or by
// UUID.
func rowKey(row Row) (uuid.UUID, time.Time, liberr.Error) {
	v, ok := row[request.ColumnPointUUID]
	if !ok || v == nil {
		return uuid.UUID{}, time.Time{}, errs.SQLPointNotSpecified.Error()
	}
	id, err := coerceUUID(v)
	if err != nil {
		return uuid.UUID{}, time.Time{}, err
	}
	sv, ok := row[request.ColumnStamp]
	if !ok || sv == nil {
		return uuid.UUID{}, time.Time{}, errs.SQLStampNotSpecified.Error()
	}
	t, err := coerceTime(sv)
	if err != nil {
		return uuid.UUID{}, time.Time{}, err
	}
	return id, t, nil
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}
