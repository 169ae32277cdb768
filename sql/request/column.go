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

// Package request holds the normalized, copyable SQL request tree the
// parser builds: the Column enumeration with its
// fixed metadata, the two recognized Tables, and the discriminated
// Request/Query/Update types.
package request

import "reflect"

// Column enumerates every projectable/writable column across both
// tables, each with fixed metadata mirroring a JDBC ResultSetMetaData
// row.
type Column uint8

const (
	ColumnAll Column = iota
	ColumnPoint
	ColumnPointName
	ColumnPointUUID
	ColumnStamp
	ColumnVersion
	ColumnState
	ColumnValue
	ColumnInterpolated
	ColumnExtrapolated
	ColumnCount
	ColumnCrontab
	ColumnElapsed
	ColumnStamps
	ColumnTimeLimit
)

// Meta is a column's fixed descriptor:
// label, declared Go type, display size, nullability and writability.
type Meta struct {
	Label       string
	Type        reflect.Type
	DisplaySize int
	Nullable    bool
	Writable    bool
}

var metaOf = map[Column]Meta{
	ColumnAll:          {"*", nil, 0, false, false},
	ColumnPoint:        {"POINT", reflect.TypeOf(""), 64, false, false},
	ColumnPointName:    {"POINT_NAME", reflect.TypeOf(""), 64, false, true},
	ColumnPointUUID:    {"POINT_UUID", reflect.TypeOf(""), 36, false, false},
	ColumnStamp:        {"STAMP", reflect.TypeOf(int64(0)), 29, false, true},
	ColumnVersion:      {"VERSION", reflect.TypeOf(int64(0)), 29, false, false},
	ColumnState:        {"STATE", reflect.TypeOf(int64(0)), 11, true, false},
	ColumnValue:        {"VALUE", reflect.TypeOf(float64(0)), 24, true, true},
	ColumnInterpolated: {"INTERPOLATED", reflect.TypeOf(false), 1, true, false},
	ColumnExtrapolated: {"EXTRAPOLATED", reflect.TypeOf(false), 1, true, false},
	ColumnCount:        {"COUNT(*)", reflect.TypeOf(int64(0)), 19, false, false},
	ColumnCrontab:      {"CRONTAB", reflect.TypeOf(""), 64, true, false},
	ColumnElapsed:      {"ELAPSED", reflect.TypeOf(""), 32, true, false},
	ColumnStamps:       {"STAMPS", reflect.TypeOf(""), 255, true, false},
	ColumnTimeLimit:    {"TIME_LIMIT", reflect.TypeOf(""), 32, true, false},
}

// Meta returns the fixed metadata for c.
func (c Column) Meta() Meta {
	return metaOf[c]
}

func (c Column) String() string {
	return metaOf[c].Label
}

// ArchiveColumns is the column order "SELECT *" expands to against the
// ARCHIVE table.
var ArchiveColumns = []Column{ColumnPointName, ColumnStamp, ColumnValue, ColumnState}

// PointsColumns is the column order "SELECT *" expands to against the
// POINTS table.
var PointsColumns = []Column{ColumnPointName, ColumnPointUUID, ColumnState}

// The two recognized table names; compared case-insensitively
// by the parser, always returned normalized upper-case.
type Table uint8

const (
	TableArchive Table = iota
	TablePoints
)

func (t Table) String() string {
	switch t {
	case TableArchive:
		return "ARCHIVE"
	case TablePoints:
		return "POINTS"
	default:
		return ""
	}
}

// LookupTable resolves name (case-insensitive) to a recognized Table.
func LookupTable(name string) (Table, bool) {
	switch up(name) {
	case "ARCHIVE":
		return TableArchive, true
	case "POINTS":
		return TablePoints, true
	default:
		return 0, false
	}
}

func up(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}

// ColumnsOf returns the default projection for "SELECT *" against t.
func ColumnsOf(t Table) []Column {
	if t == TablePoints {
		return PointsColumns
	}
	return ArchiveColumns
}
