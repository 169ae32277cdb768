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
	"database/sql"
	stddriver "database/sql/driver"
	"io"

	"github.com/sabouaram/valve/sql/resultset"
	"github.com/sabouaram/valve/sql/session"
)

// driverName is the name this package registers under with
// database/sql, following the sql.Register/Open("name", dsn) idiom.
const driverName = "valve-sql"

func init() {
	sql.Register(driverName, &stdDriver{})
}

// SessionOpener builds the upstream session.Session a connection URL
// resolves to. Production builds register a real network-backed
// opener here; NewConnection/Open below are otherwise storage-agnostic.
var SessionOpener func(ctx context.Context, cfg *DSNConfig) (session.Session, error)

// stdDriver adapts Connection to database/sql/driver.Driver, so the
// facade can also be reached through sql.Open("valve-sql", dsn) in
// addition to its own native PrepareStatement/Query API.
type stdDriver struct{}

func (d *stdDriver) Open(dsn string) (stddriver.Conn, error) {
	cfg, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	if SessionOpener == nil {
		return nil, errNoSessionOpener
	}
	sess, err := SessionOpener(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	conn := NewConnection(sess)
	conn.SetReadOnly(cfg.ReadOnly)
	if cfg.AutoCommitLimit > 0 {
		conn.SetAutoCommitLimit(cfg.AutoCommitLimit)
	}
	switch cfg.Holdability {
	case "hold":
		_ = conn.SetHoldability(resultset.HoldOverCommit)
	case "close":
		_ = conn.SetHoldability(resultset.HoldCloseAtCommit)
	}
	return &stdConn{conn: conn}, nil
}

var errNoSessionOpener = stdDriverError("valve-sql: no SessionOpener registered")

type stdDriverError string

func (e stdDriverError) Error() string { return string(e) }

// stdConn implements database/sql/driver.Conn/ExecerContext/
// QueryerContext over a Connection, so sql.DB can drive the facade
// without a caller ever touching the native API directly.
type stdConn struct {
	conn *Connection
}

func (c *stdConn) Prepare(query string) (stddriver.Stmt, error) {
	st, err := c.conn.PrepareStatement(query)
	if err != nil {
		return nil, err
	}
	return &stdStmt{st: st}, nil
}

func (c *stdConn) Close() error {
	return c.conn.Close(context.Background())
}

func (c *stdConn) Begin() (stddriver.Tx, error) {
	if err := c.conn.SetAutoCommit(context.Background(), false); err != nil {
		return nil, err
	}
	return &stdTx{conn: c.conn}, nil
}

type stdTx struct {
	conn *Connection
}

func (t *stdTx) Commit() error {
	if err := t.conn.Commit(context.Background()); err != nil {
		return err
	}
	return t.conn.SetAutoCommit(context.Background(), true)
}

func (t *stdTx) Rollback() error {
	if err := t.conn.Rollback(context.Background()); err != nil {
		return err
	}
	return t.conn.SetAutoCommit(context.Background(), true)
}

// stdStmt adapts Statement to database/sql/driver.Stmt.
type stdStmt struct {
	st *Statement
}

func (s *stdStmt) Close() error { return nil }

func (s *stdStmt) NumInput() int { return s.st.ParameterCount() }

func (s *stdStmt) Exec(args []stddriver.Value) (stddriver.Result, error) {
	n, err := s.st.ExecuteUpdate(context.Background(), toArgs(args)...)
	if err != nil {
		return nil, err
	}
	return stdResult{affected: n}, nil
}

func (s *stdStmt) Query(args []stddriver.Value) (stddriver.Rows, error) {
	rs, err := s.st.Query(context.Background(), toArgs(args)...)
	if err != nil {
		return nil, err
	}
	return &stdRows{rs: rs}, nil
}

func toArgs(args []stddriver.Value) []interface{} {
	out := make([]interface{}, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}

type stdResult struct {
	affected int64
}

func (r stdResult) LastInsertId() (int64, error) { return 0, nil }
func (r stdResult) RowsAffected() (int64, error) { return r.affected, nil }

// stdRows adapts resultset.ResultSet to database/sql/driver.Rows. It
// always walks forward, matching the forward-only shape database/sql
// itself expects of a Rows implementation.
type stdRows struct {
	rs *resultset.ResultSet
}

func (r *stdRows) Columns() []string {
	meta := r.rs.MetaData()
	out := make([]string, meta.ColumnCount())
	for i := range out {
		out[i] = meta.Label(i)
	}
	return out
}

func (r *stdRows) Close() error {
	return r.rs.Close(context.Background())
}

func (r *stdRows) Next(dest []stddriver.Value) error {
	ok, err := r.rs.Next(context.Background())
	if err != nil {
		return err
	}
	if !ok {
		return io.EOF
	}
	meta := r.rs.MetaData()
	for i := range dest {
		col := meta.Column(i)
		v, gerr := r.rs.GetString(col)
		if gerr != nil {
			return gerr
		}
		if r.rs.WasNull() {
			dest[i] = nil
		} else {
			dest[i] = v
		}
	}
	return nil
}

var (
	_ stddriver.Driver = (*stdDriver)(nil)
	_ stddriver.Conn   = (*stdConn)(nil)
	_ stddriver.Tx     = (*stdTx)(nil)
	_ stddriver.Stmt   = (*stdStmt)(nil)
	_ stddriver.Rows   = (*stdRows)(nil)
)
