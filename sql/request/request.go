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

package request

import "github.com/sabouaram/valve/sql/token"

// Command discriminates the four statement shapes the grammar accepts.
type Command uint8

const (
	CommandSelect Command = iota
	CommandInsert
	CommandUpdate
	CommandDelete
)

// Operator is one of the five comparators the grammar's wherePred
// productions accept.
type Operator uint8

const (
	OpEQ Operator = iota
	OpGT
	OpGE
	OpLT
	OpLE
	OpLike
	OpRegexp
)

// ValueKind discriminates the tagged value production:
//
//	value ::= quoted | numeric | ? | NULL | NOW | TODAY | YESTERDAY | BOT | EOT
type ValueKind uint8

const (
	ValNull ValueKind = iota
	ValNow
	ValToday
	ValYesterday
	ValBot
	ValEot
	ValString
	ValInt
	ValFloat
	ValParam
)

// Value is one literal or parameter occupying a value position.
type Value struct {
	Kind  ValueKind
	Str   string
	Int   int64
	Float float64
	Param *token.Parameter
}

// DeepCopy returns a copy of v; if v references a parameter, the copy
// references params[v.Param] instead, so a cloned Request never shares
// parameter state with its original.
func (v Value) DeepCopy(params map[*token.Parameter]*token.Parameter) Value {
	c := v
	if v.Kind == ValParam && v.Param != nil {
		if p, ok := params[v.Param]; ok {
			c.Param = p
		}
	}
	return c
}

// PointPredicate is the pointPred production: a comparison against
// POINT, POINT_NAME or POINT_UUID.
type PointPredicate struct {
	Column Column
	Op     Operator
	Value  Value
}

func (p *PointPredicate) deepCopy(params map[*token.Parameter]*token.Parameter) *PointPredicate {
	if p == nil {
		return nil
	}
	c := *p
	c.Value = p.Value.DeepCopy(params)
	return &c
}

// Bound is one stampPred/versionPred occurrence: STAMP or VERSION
// compared against a time value with one of the five operators, mapped
// at execution time onto the upstream's at/notBefore/after/notAfter/
// before selectors.
type Bound struct {
	Column Column // ColumnStamp or ColumnVersion
	Op     Operator
	Value  Value
}

func (b Bound) deepCopy(params map[*token.Parameter]*token.Parameter) Bound {
	c := b
	c.Value = b.Value.DeepCopy(params)
	return c
}

// SyncModifier is the syncPred production: CRONTAB|ELAPSED|STAMPS|
// TIME_LIMIT '=' quoted.
type SyncModifier struct {
	Column Column
	Text   string
}

// QueryExt is the set of fields the Query subtype adds on top of the
// shared Request fields.
type QueryExt struct {
	Columns  []Column
	Titles   []string
	AliasMap map[string]int
}

func (q *QueryExt) deepCopy() *QueryExt {
	if q == nil {
		return nil
	}
	c := &QueryExt{
		Columns: append([]Column(nil), q.Columns...),
		Titles:  append([]string(nil), q.Titles...),
	}
	if q.AliasMap != nil {
		c.AliasMap = make(map[string]int, len(q.AliasMap))
		for k, v := range q.AliasMap {
			c.AliasMap[k] = v
		}
	}
	return c
}

// UpdateExt is the set of fields the Update subtype (INSERT, UPDATE)
// adds on top of the shared Request fields.
type UpdateExt struct {
	Columns   []Column
	ValueRows [][]Value // one row per VALUES(...) clause, or a single row for SET
}

func (u *UpdateExt) deepCopy(params map[*token.Parameter]*token.Parameter) *UpdateExt {
	if u == nil {
		return nil
	}
	c := &UpdateExt{Columns: append([]Column(nil), u.Columns...)}
	c.ValueRows = make([][]Value, len(u.ValueRows))
	for i, row := range u.ValueRows {
		nr := make([]Value, len(row))
		for j, v := range row {
			nr[j] = v.DeepCopy(params)
		}
		c.ValueRows[i] = nr
	}
	return c
}

// Request is the normalized, deep-copyable request tree the parser
// builds. Command discriminates which of Query /
// Update is populated: CommandSelect sets Query, CommandInsert and
// CommandUpdate set Update, CommandDelete sets neither.
type Request struct {
	Command    Command
	Table      Table
	TableAlias string

	All            bool
	PointSelector  *PointPredicate
	Bounds         []Bound
	Limit          *int64
	Sync           *SyncModifier
	Pull           bool // set when a VERSION bound is present (SELECT only)
	Synced         bool // set when a SyncModifier is present
	NullIgnored    bool // "VALUE IS NOT NULL" was present
	Interpolated   bool
	Extrapolated   bool
	TimeLimitText  string

	Parameters []*token.Parameter

	Query  *QueryExt
	Update *UpdateExt
}

// DeepCopy returns an independent copy of r, including its parameter
// slots: value tokens that reference a parameter are rewritten to point
// at the copy's slot, so concurrent batch executions (or re-executions
// with rebound parameters) never share mutable state.
func (r *Request) DeepCopy() *Request {
	if r == nil {
		return nil
	}

	params := make(map[*token.Parameter]*token.Parameter, len(r.Parameters))
	newParams := make([]*token.Parameter, len(r.Parameters))
	for i, p := range r.Parameters {
		np := &token.Parameter{Ordinal: p.Ordinal, Value: p.Value}
		params[p] = np
		newParams[i] = np
	}

	c := *r
	c.Parameters = newParams
	c.PointSelector = r.PointSelector.deepCopy(params)
	c.Bounds = make([]Bound, len(r.Bounds))
	for i, b := range r.Bounds {
		c.Bounds[i] = b.deepCopy(params)
	}
	if r.Limit != nil {
		l := *r.Limit
		c.Limit = &l
	}
	if r.Sync != nil {
		s := *r.Sync
		c.Sync = &s
	}
	c.Query = r.Query.deepCopy()
	c.Update = r.Update.deepCopy(params)

	return &c
}

// Columns returns the projection columns for a SELECT, or nil for any
// other command.
func (r *Request) Columns() []Column {
	if r.Query == nil {
		return nil
	}
	return r.Query.Columns
}
