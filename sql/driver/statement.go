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

package driver

import (
	"context"

	"github.com/google/uuid"

	liberr "github.com/sabouaram/valve/errors"
	"github.com/sabouaram/valve/errs"
	"github.com/sabouaram/valve/sql/parser"
	"github.com/sabouaram/valve/sql/request"
	"github.com/sabouaram/valve/sql/resultset"
	"github.com/sabouaram/valve/sql/session"
)

func parseSQL(sqlText string) (*request.Request, liberr.Error) {
	return parser.Parse(sqlText)
}

// Statement is a prepared statement: sql is parsed once into template,
// and every Query/ExecuteUpdate call deep-copies it before binding
// parameters, so a statement re-executed with different arguments (or
// executed concurrently as part of a batch) never shares parameter
// state across calls.
type Statement struct {
	conn     *Connection
	template *request.Request

	typ         resultset.Type
	concurrency resultset.Concurrency
}

// ParameterCount returns the number of '?' placeholders the statement
// carries.
func (st *Statement) ParameterCount() int {
	return len(st.template.Parameters)
}

// SetResultSetType selects TYPE_FORWARD_ONLY or TYPE_SCROLL_INSENSITIVE
// for ResultSets this statement produces.
func (st *Statement) SetResultSetType(t resultset.Type) {
	st.typ = t
}

// SetConcurrency selects CONCUR_READ_ONLY or CONCUR_UPDATABLE for
// ResultSets this statement produces. CONCUR_UPDATABLE is only
// meaningful against the ARCHIVE table.
func (st *Statement) SetConcurrency(c resultset.Concurrency) {
	st.concurrency = c
}

func bind(req *request.Request, args []interface{}) liberr.Error {
	if len(args) != len(req.Parameters) {
		return errs.SQLInvalidParameterNumber.Errorf("expected %d, got %d", len(req.Parameters), len(args))
	}
	for i, p := range req.Parameters {
		p.Value = args[i]
	}
	return nil
}

// Query executes a SELECT statement, returning a positioned ResultSet
// over its projection. Fails if the statement is not a query.
func (st *Statement) Query(ctx context.Context, args ...interface{}) (*resultset.ResultSet, liberr.Error) {
	if st.template.Command != request.CommandSelect {
		return nil, errs.SQLNotAQueryStatement.Error()
	}
	req := st.template.DeepCopy()
	if err := bind(req, args); err != nil {
		return nil, err
	}

	q, err := st.conn.engine.BuildQuery(ctx, req)
	if err != nil {
		return nil, err
	}

	columns := req.Columns()
	if len(columns) == 1 && columns[0] == request.ColumnCount {
		return st.countResultSet(ctx, q)
	}

	meta := resultset.NewMetaData(columns, req.Query.Titles)
	sink := resultset.UpdateSink(st.conn)

	label := st.conn.pointLabel(q.Point)

	if st.typ == resultset.TypeScrollInsensitive {
		pts, err := st.conn.engine.FetchAll(ctx, q)
		if err != nil {
			return nil, err
		}
		return resultset.NewScrollInsensitive(meta, st.concurrency, st.conn.Holdability(), toRows(columns, label, q.Point, pts), sink), nil
	}

	first := true
	fetch := resultset.Fetcher(func(ctx context.Context, continuation []byte) (*resultset.Page, liberr.Error) {
		pq := q
		if !first {
			pq = &session.StoreQuery{Continuation: continuation}
		}
		first = false
		resp, err := st.conn.engine.FetchPage(ctx, pq)
		if err != nil {
			return nil, err
		}
		return &resultset.Page{
			Rows:         toRows(columns, label, q.Point, resp.Rows),
			Complete:     resp.Complete,
			Continuation: resp.Continuation,
		}, nil
	})
	return resultset.NewForwardOnly(meta, st.concurrency, st.conn.Holdability(), fetch, sink), nil
}

// countResultSet builds the single-row, single-column ResultSet
// SELECT COUNT(*) produces.
func (st *Statement) countResultSet(ctx context.Context, q *session.StoreQuery) (*resultset.ResultSet, liberr.Error) {
	n, err := st.conn.engine.CountStar(ctx, q)
	if err != nil {
		return nil, err
	}
	meta := resultset.NewMetaData([]request.Column{request.ColumnCount}, nil)
	rows := []resultset.Row{{request.ColumnCount: n}}
	return resultset.NewScrollInsensitive(meta, resultset.ConcurReadOnly, st.conn.Holdability(), rows, nil), nil
}

// ExecuteUpdate executes an INSERT, UPDATE or DELETE statement and
// returns the number of points it affected. Fails if the statement is
// a query.
func (st *Statement) ExecuteUpdate(ctx context.Context, args ...interface{}) (int64, liberr.Error) {
	if st.template.Command == request.CommandSelect {
		return 0, errs.SQLNotAnUpdateStatement.Error()
	}
	req := st.template.DeepCopy()
	if err := bind(req, args); err != nil {
		return 0, err
	}

	updates, err := st.buildUpdates(ctx, req)
	if err != nil {
		return 0, err
	}
	if err := st.conn.QueuePending(ctx, updates); err != nil {
		return 0, err
	}
	return int64(len(updates)), nil
}

// buildUpdates translates an INSERT/UPDATE/DELETE Request into the
// batch of point writes it performs. INSERT supplies one row per
// VALUES(...) clause; UPDATE/DELETE resolve their target rows through
// the paging engine first; the positioned-update semantics applied to
// a direct (non-cursor) statement.
func (st *Statement) buildUpdates(ctx context.Context, req *request.Request) ([]session.PointUpdate, liberr.Error) {
	switch req.Command {
	case request.CommandInsert:
		return st.buildInserts(ctx, req)
	case request.CommandUpdate:
		return st.buildRowUpdates(ctx, req, false)
	case request.CommandDelete:
		return st.buildRowUpdates(ctx, req, true)
	default:
		return nil, errs.SQLNotAnUpdateStatement.Error()
	}
}

func (st *Statement) buildInserts(ctx context.Context, req *request.Request) ([]session.PointUpdate, liberr.Error) {
	pointCol := -1
	for i, col := range req.Update.Columns {
		if col == request.ColumnPoint || col == request.ColumnPointName || col == request.ColumnPointUUID {
			pointCol = i
			break
		}
	}
	if pointCol == -1 {
		return nil, errs.SQLPointNotSpecified.Error()
	}

	updates := make([]session.PointUpdate, 0, len(req.Update.ValueRows))
	for _, row := range req.Update.ValueRows {
		sel := &request.PointPredicate{Column: req.Update.Columns[pointCol], Op: request.OpEQ, Value: row[pointCol]}
		point, err := st.conn.engine.ResolvePoint(ctx, sel)
		if err != nil {
			return nil, err
		}

		u := session.PointUpdate{Point: point}
		for i, col := range req.Update.Columns {
			v := row[i]
			switch col {
			case request.ColumnStamp:
				t, terr := valueToTime(v)
				if terr != nil {
					return nil, terr
				}
				u.Stamp = t
			case request.ColumnValue:
				u.Value = valueLiteral(v)
			case request.ColumnState:
				n, nerr := valueToInt(v)
				if nerr != nil {
					return nil, nerr
				}
				u.State = n
			}
		}
		updates = append(updates, u)
	}
	return updates, nil
}

func (st *Statement) buildRowUpdates(ctx context.Context, req *request.Request, delete bool) ([]session.PointUpdate, liberr.Error) {
	if req.PointSelector == nil {
		// ALL without a point predicate spans every point in the table;
		// the single-point StoreQuery this core builds on cannot express
		// that scope, so it is rejected rather than silently scoped to
		// one arbitrary point.
		return nil, errs.SQLFeatureNotSupported.Errorf("UPDATE/DELETE ALL across every point")
	}
	q, err := st.conn.engine.BuildQuery(ctx, req)
	if err != nil {
		return nil, err
	}
	rows, err := st.conn.engine.FetchAll(ctx, q)
	if err != nil {
		return nil, err
	}

	var setValue interface{}
	var setState *int64
	haveValue, haveState := false, false
	if !delete && req.Update != nil {
		row := req.Update.ValueRows[0]
		for i, col := range req.Update.Columns {
			switch col {
			case request.ColumnValue:
				setValue = valueLiteral(row[i])
				haveValue = true
			case request.ColumnState:
				n, nerr := valueToInt(row[i])
				if nerr != nil {
					return nil, nerr
				}
				setState = &n
				haveState = true
			}
		}
	}

	updates := make([]session.PointUpdate, len(rows))
	for i, r := range rows {
		u := session.PointUpdate{Point: q.Point, Stamp: r.Stamp, Delete: delete}
		if !delete {
			if haveValue {
				u.Value = setValue
			} else {
				u.Value = r.Value
			}
			if haveState {
				u.State = *setState
			} else {
				u.State = r.State
			}
		}
		updates[i] = u
	}
	return updates, nil
}

func toRows(columns []request.Column, label string, point uuid.UUID, pts []session.PointRow) []resultset.Row {
	rows := make([]resultset.Row, len(pts))
	for i, p := range pts {
		row := resultset.Row{}
		for _, c := range columns {
			switch c {
			case request.ColumnPoint, request.ColumnPointName:
				row[c] = label
			case request.ColumnPointUUID:
				row[c] = point.String()
			case request.ColumnStamp:
				row[c] = p.Stamp
			case request.ColumnVersion:
				row[c] = p.Version
			case request.ColumnState:
				row[c] = p.State
			case request.ColumnValue:
				row[c] = p.Value
			case request.ColumnInterpolated:
				row[c] = p.Interpolated
			case request.ColumnExtrapolated:
				row[c] = p.Extrapolated
			}
		}
		rows[i] = row
	}
	return rows
}
