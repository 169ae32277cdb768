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
	"reflect"

	"github.com/sabouaram/valve/sql/request"
)

// MetaData describes the ordered projection of a ResultSet, mirroring a
// JDBC ResultSetMetaData: one Meta entry per projected column, in
// projection order.
type MetaData struct {
	columns []request.Column
	titles  []string
}

// NewMetaData builds a MetaData for columns, using titles (one per
// column, possibly empty strings) as column-label overrides for
// aliased projections; a missing or empty title falls back to the
// column's fixed label.
func NewMetaData(columns []request.Column, titles []string) *MetaData {
	return &MetaData{columns: columns, titles: titles}
}

// ColumnCount returns the number of projected columns.
func (m *MetaData) ColumnCount() int {
	return len(m.columns)
}

// Column returns the column at the given 0-based position.
func (m *MetaData) Column(i int) request.Column {
	return m.columns[i]
}

// Label returns the display label of the column at the given 0-based
// position: its alias if one was given, else its fixed schema label.
func (m *MetaData) Label(i int) string {
	if i < len(m.titles) && m.titles[i] != "" {
		return m.titles[i]
	}
	return m.columns[i].Meta().Label
}

// Type returns the declared Go type of the column at the given
// 0-based position.
func (m *MetaData) Type(i int) reflect.Type {
	return m.columns[i].Meta().Type
}

// DisplaySize returns the column's fixed display size.
func (m *MetaData) DisplaySize(i int) int {
	return m.columns[i].Meta().DisplaySize
}

// IsNullable reports whether the column at i may hold a NULL value.
func (m *MetaData) IsNullable(i int) bool {
	return m.columns[i].Meta().Nullable
}

// IsWritable reports whether the column at i accepts updateX/INSERT/SET.
func (m *MetaData) IsWritable(i int) bool {
	return m.columns[i].Meta().Writable
}
