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

// Package parser builds a normalized request.Request tree from the
// query grammar by recursive descent over the sql/token tokenizer. Lookahead never exceeds two tokens thanks to the
// tokenizer's own one-token putBack slot.
package parser

import (
	liberr "github.com/sabouaram/valve/errors"
	"github.com/sabouaram/valve/errs"
	"github.com/sabouaram/valve/sql/request"
	"github.com/sabouaram/valve/sql/token"
)

type parser struct {
	tk *token.Tokenizer
}

// Parse tokenizes and parses sql into a normalized Request. Table names
// other than ARCHIVE and POINTS are rejected, and write statements
// against POINTS fail with TableReadOnly.
func Parse(sql string) (*request.Request, liberr.Error) {
	p := &parser{tk: token.New(sql)}

	tok, err := p.next()
	if err != nil {
		return nil, err
	}

	switch {
	case tok.Is(token.SELECT):
		return p.parseSelect()
	case tok.Is(token.INSERT):
		return p.parseInsert()
	case tok.Is(token.UPDATE):
		return p.parseUpdate()
	case tok.Is(token.DELETE):
		return p.parseDelete()
	default:
		return nil, errs.SQLUnexpectedToken.Errorf(tok.String())
	}
}

func (p *parser) next() (token.Token, liberr.Error) {
	return p.tk.Next()
}

func (p *parser) putBack(t token.Token) {
	p.tk.PutBack(t)
}

func (p *parser) expectEOF() liberr.Error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	if tok.Kind != token.KindEOF {
		return errs.SQLUnexpectedToken.Errorf(tok.String())
	}
	return nil
}

func (p *parser) expectPunct(text string) liberr.Error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	if !tok.IsPunct(text) {
		if tok.Kind == token.KindEOF {
			return errs.SQLUnexpectedEnd.Error()
		}
		return errs.SQLUnexpectedToken.Errorf(tok.String())
	}
	return nil
}

func (p *parser) expectReserved(r *token.Reserved) liberr.Error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	if !tok.Is(r) {
		if tok.Kind == token.KindEOF {
			return errs.SQLUnexpectedEnd.Error()
		}
		return errs.SQLUnexpectedToken.Errorf(tok.String())
	}
	return nil
}

// consumeReserved consumes the next token if it is r, putting it back
// otherwise. Used for every optional grammar keyword ([ALL], [INTO],
// [FROM], [WHERE], [LIMIT]).
func (p *parser) consumeReserved(r *token.Reserved) (bool, liberr.Error) {
	tok, err := p.next()
	if err != nil {
		return false, err
	}
	if tok.Is(r) {
		return true, nil
	}
	p.putBack(tok)
	return false, nil
}

func (p *parser) peekIsPunct(text string) (bool, liberr.Error) {
	tok, err := p.next()
	if err != nil {
		return false, err
	}
	p.putBack(tok)
	return tok.IsPunct(text), nil
}

// columnReserved maps every reserved word that names a Column onto its
// request.Column constant.
var columnReserved = map[*token.Reserved]request.Column{
	token.POINT:        request.ColumnPoint,
	token.POINT_NAME:   request.ColumnPointName,
	token.POINT_UUID:   request.ColumnPointUUID,
	token.STAMP:        request.ColumnStamp,
	token.VERSION:      request.ColumnVersion,
	token.STATE:        request.ColumnState,
	token.VALUE:        request.ColumnValue,
	token.INTERPOLATED: request.ColumnInterpolated,
	token.EXTRAPOLATED: request.ColumnExtrapolated,
	token.CRONTAB:      request.ColumnCrontab,
	token.ELAPSED:      request.ColumnElapsed,
	token.STAMPS:       request.ColumnStamps,
	token.TIME_LIMIT:   request.ColumnTimeLimit,
}

func columnOf(r *token.Reserved) (request.Column, bool) {
	c, ok := columnReserved[r]
	return c, ok
}

func isSyncReserved(r *token.Reserved) bool {
	return r == token.CRONTAB || r == token.ELAPSED || r == token.STAMPS || r == token.TIME_LIMIT
}

// parseValue parses the value production:
//
//	value ::= quoted | numeric | ? | NULL | NOW | TODAY | YESTERDAY | BOT | EOT
//
// the keyword forms accept an optional trailing "()".
func (p *parser) parseValue() (request.Value, liberr.Error) {
	tok, err := p.next()
	if err != nil {
		return request.Value{}, err
	}

	switch tok.Kind {
	case token.KindQuoted:
		return request.Value{Kind: request.ValString, Str: tok.Text}, nil
	case token.KindNumericInt:
		return request.Value{Kind: request.ValInt, Int: tok.Int}, nil
	case token.KindNumericFloat:
		return request.Value{Kind: request.ValFloat, Float: tok.Float}, nil
	case token.KindParameter:
		return request.Value{Kind: request.ValParam, Param: tok.Param}, nil
	case token.KindWord:
		switch tok.Reserved {
		case token.NULL:
			return request.Value{Kind: request.ValNull}, nil
		case token.NOW:
			if err := p.optionalParens(); err != nil {
				return request.Value{}, err
			}
			return request.Value{Kind: request.ValNow}, nil
		case token.TODAY:
			if err := p.optionalParens(); err != nil {
				return request.Value{}, err
			}
			return request.Value{Kind: request.ValToday}, nil
		case token.YESTERDAY:
			if err := p.optionalParens(); err != nil {
				return request.Value{}, err
			}
			return request.Value{Kind: request.ValYesterday}, nil
		case token.BOT:
			if err := p.optionalParens(); err != nil {
				return request.Value{}, err
			}
			return request.Value{Kind: request.ValBot}, nil
		case token.EOT:
			if err := p.optionalParens(); err != nil {
				return request.Value{}, err
			}
			return request.Value{Kind: request.ValEot}, nil
		}
	}

	if tok.Kind == token.KindEOF {
		return request.Value{}, errs.SQLUnexpectedEnd.Error()
	}
	return request.Value{}, errs.SQLUnexpectedToken.Errorf(tok.String())
}

func (p *parser) optionalParens() liberr.Error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	if !tok.IsPunct("(") {
		p.putBack(tok)
		return nil
	}
	return p.expectPunct(")")
}

// parseTable parses a table name, validating it against the two
// recognized tables, plus an optional following bare-word alias.
func (p *parser) parseTable() (request.Table, string, liberr.Error) {
	tok, err := p.next()
	if err != nil {
		return 0, "", err
	}
	if tok.Kind != token.KindWord {
		if tok.Kind == token.KindEOF {
			return 0, "", errs.SQLUnexpectedEnd.Error()
		}
		return 0, "", errs.SQLUnexpectedToken.Errorf(tok.String())
	}
	tbl, ok := request.LookupTable(tok.Text)
	if !ok {
		return 0, "", errs.SQLUnknownTable.Errorf(tok.Text)
	}

	alias := ""
	nt, err := p.next()
	if err != nil {
		return tbl, "", err
	}
	if nt.Kind == token.KindWord && nt.Reserved == nil {
		alias = nt.Text
	} else {
		p.putBack(nt)
	}
	return tbl, alias, nil
}

// parsePointPredInto parses the remainder of a pointPred after its
// leading POINT/POINT_NAME/POINT_UUID reserved word has already been
// consumed, and stores it as r's PointSelector.
func (p *parser) parsePointPredInto(r *request.Request, col request.Column) liberr.Error {
	opTok, err := p.next()
	if err != nil {
		return err
	}

	var op request.Operator
	switch {
	case opTok.IsPunct("="):
		op = request.OpEQ
	case opTok.Is(token.LIKE):
		op = request.OpLike
	case opTok.Is(token.REGEXP):
		op = request.OpRegexp
	default:
		return errs.SQLUnexpectedToken.Errorf(opTok.String())
	}

	if col == request.ColumnPointUUID && op != request.OpEQ {
		return errs.SQLUnexpectedToken.Errorf("POINT_UUID only accepts '='")
	}

	val, err := p.parseValue()
	if err != nil {
		return err
	}

	r.PointSelector = &request.PointPredicate{Column: col, Op: op, Value: val}
	return nil
}

// parseBoundInto parses the operator and timeValue of a stampPred or
// versionPred after its leading reserved word has been consumed,
// enforcing that STAMP and VERSION bounds never both appear on the same
// request; the two bound families are mutually exclusive in one query.
func (p *parser) parseBoundInto(r *request.Request, col request.Column) liberr.Error {
	for _, b := range r.Bounds {
		if b.Column != col {
			return errs.SQLUnexpectedColumn.Errorf("STAMP and VERSION bounds are mutually exclusive")
		}
	}

	opTok, err := p.next()
	if err != nil {
		return err
	}

	var op request.Operator
	switch opTok.Text {
	case "=":
		op = request.OpEQ
	case ">":
		op = request.OpGT
	case ">=":
		op = request.OpGE
	case "<":
		op = request.OpLT
	case "<=":
		op = request.OpLE
	default:
		return errs.SQLUnexpectedToken.Errorf(opTok.String())
	}

	val, err := p.parseValue()
	if err != nil {
		return err
	}

	r.Bounds = append(r.Bounds, request.Bound{Column: col, Op: op, Value: val})
	return nil
}

// parseSyncInto parses the remainder of a syncPred after its leading
// reserved word has been consumed.
func (p *parser) parseSyncInto(r *request.Request, reserved *token.Reserved) liberr.Error {
	if err := p.expectPunct("="); err != nil {
		return err
	}
	tok, err := p.next()
	if err != nil {
		return err
	}
	if tok.Kind != token.KindQuoted {
		return errs.SQLUnexpectedToken.Errorf(tok.String())
	}

	col, _ := columnOf(reserved)
	r.Sync = &request.SyncModifier{Column: col, Text: tok.Text}
	r.Synced = true
	if reserved == token.TIME_LIMIT {
		r.TimeLimitText = tok.Text
	}
	return nil
}

// parseSelectWherePred parses one wherePred production (the select
// grammar allows all five alternatives).
func (p *parser) parseSelectWherePred(r *request.Request) liberr.Error {
	tok, err := p.next()
	if err != nil {
		return err
	}

	if tok.Kind != token.KindWord || tok.Reserved == nil {
		if tok.Kind == token.KindEOF {
			return errs.SQLUnexpectedEnd.Error()
		}
		return errs.SQLUnexpectedToken.Errorf(tok.String())
	}

	switch tok.Reserved {
	case token.POINT, token.POINT_NAME, token.POINT_UUID:
		col, _ := columnOf(tok.Reserved)
		return p.parsePointPredInto(r, col)
	case token.STAMP:
		return p.parseBoundInto(r, request.ColumnStamp)
	case token.VERSION:
		if err := p.parseBoundInto(r, request.ColumnVersion); err != nil {
			return err
		}
		r.Pull = true
		return nil
	case token.VALUE:
		if err := p.expectReserved(token.IS); err != nil {
			return err
		}
		if err := p.expectReserved(token.NOT); err != nil {
			return err
		}
		if err := p.expectReserved(token.NULL); err != nil {
			return err
		}
		r.NullIgnored = true
		return nil
	}

	if isSyncReserved(tok.Reserved) {
		return p.parseSyncInto(r, tok.Reserved)
	}

	return errs.SQLUnexpectedToken.Errorf(tok.String())
}

// parseProjectionColumn parses one "column" item of a SELECT's
// projection list: a bare '*', COUNT(*), or a recognized column name
// with an optional bare-word alias.
func (p *parser) parseProjectionColumn() (request.Column, string, liberr.Error) {
	tok, err := p.next()
	if err != nil {
		return 0, "", err
	}

	if tok.IsPunct("*") {
		return request.ColumnAll, "", nil
	}

	if tok.Kind == token.KindWord && tok.Reserved == token.COUNT {
		if err := p.expectPunct("("); err != nil {
			return 0, "", err
		}
		if err := p.expectPunct("*"); err != nil {
			return 0, "", err
		}
		if err := p.expectPunct(")"); err != nil {
			return 0, "", err
		}
		return request.ColumnCount, "", nil
	}

	if tok.Kind == token.KindWord && tok.Reserved != nil {
		if col, ok := columnOf(tok.Reserved); ok {
			alias, err := p.maybeAlias()
			return col, alias, err
		}
	}

	if tok.Kind == token.KindEOF {
		return 0, "", errs.SQLUnexpectedEnd.Error()
	}
	return 0, "", errs.SQLUnexpectedColumn.Errorf(tok.String())
}

func (p *parser) maybeAlias() (string, liberr.Error) {
	tok, err := p.next()
	if err != nil {
		return "", err
	}
	if tok.Kind == token.KindWord && tok.Reserved == nil {
		return tok.Text, nil
	}
	p.putBack(tok)
	return "", nil
}

// parseSelect parses the select production; SELECT itself has already
// been consumed by Parse.
func (p *parser) parseSelect() (*request.Request, liberr.Error) {
	r := &request.Request{
		Command: request.CommandSelect,
		Query:   &request.QueryExt{AliasMap: map[string]int{}},
	}

	if ok, err := p.consumeReserved(token.ALL); err != nil {
		return nil, err
	} else if ok {
		r.All = true
	}

	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if tok.Kind != token.KindEOF && !tok.Is(token.FROM) && !tok.Is(token.WHERE) && !tok.Is(token.LIMIT) {
		p.putBack(tok)
		for {
			col, alias, err := p.parseProjectionColumn()
			if err != nil {
				return nil, err
			}
			r.Query.Columns = append(r.Query.Columns, col)
			r.Query.Titles = append(r.Query.Titles, alias)
			if alias != "" {
				if _, dup := r.Query.AliasMap[alias]; dup {
					return nil, errs.SQLDuplicateAlias.Errorf(alias)
				}
				r.Query.AliasMap[alias] = len(r.Query.Columns) - 1
			}

			nt, err := p.next()
			if err != nil {
				return nil, err
			}
			if nt.IsPunct(",") {
				continue
			}
			p.putBack(nt)
			break
		}
	} else {
		p.putBack(tok)
	}

	if ok, err := p.consumeReserved(token.FROM); err != nil {
		return nil, err
	} else if ok {
		tbl, alias, err := p.parseTable()
		if err != nil {
			return nil, err
		}
		r.Table = tbl
		r.TableAlias = alias
	}

	if ok, err := p.consumeReserved(token.WHERE); err != nil {
		return nil, err
	} else if ok {
		for {
			if err := p.parseSelectWherePred(r); err != nil {
				return nil, err
			}
			if again, err := p.consumeReserved(token.AND); err != nil {
				return nil, err
			} else if !again {
				break
			}
		}
	}

	if ok, err := p.consumeReserved(token.LIMIT); err != nil {
		return nil, err
	} else if ok {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		if tok.Kind != token.KindNumericInt {
			return nil, errs.SQLUnexpectedToken.Errorf(tok.String())
		}
		l := tok.Int
		r.Limit = &l
	}

	if err := p.expectEOF(); err != nil {
		return nil, err
	}

	if err := finishSelect(r); err != nil {
		return nil, err
	}

	return r, nil
}

// finishSelect expands "SELECT *" / an omitted column list to the
// table's default projection, and enforces the projection's semantic
// rules: COUNT(*) may only appear alone, point-table queries are
// restricted to POINT_NAME/POINT_UUID, and a point predicate is required
// unless ALL was given.
func finishSelect(r *request.Request) liberr.Error {
	if len(r.Query.Columns) == 0 {
		r.Query.Columns = append([]request.Column(nil), request.ColumnsOf(r.Table)...)
		r.Query.Titles = make([]string, len(r.Query.Columns))
	} else {
		expanded := make([]request.Column, 0, len(r.Query.Columns))
		titles := make([]string, 0, len(r.Query.Columns))
		for i, c := range r.Query.Columns {
			if c == request.ColumnAll {
				if len(r.Query.Columns) != 1 {
					return errs.SQLUnexpectedColumn.Errorf("'*' must appear alone in the projection")
				}
				expanded = append(expanded, request.ColumnsOf(r.Table)...)
				titles = make([]string, len(expanded))
				continue
			}
			expanded = append(expanded, c)
			titles = append(titles, r.Query.Titles[i])
		}
		r.Query.Columns = expanded
		r.Query.Titles = titles
	}

	countIdx := -1
	for i, c := range r.Query.Columns {
		if c == request.ColumnCount {
			countIdx = i
		}
	}
	if countIdx >= 0 && len(r.Query.Columns) != 1 {
		return errs.SQLUnexpectedColumn.Errorf("COUNT(*) must appear alone in the projection")
	}

	if r.Table == request.TablePoints {
		for _, c := range r.Query.Columns {
			if c != request.ColumnPointName && c != request.ColumnPointUUID && c != request.ColumnState {
				return errs.SQLUnexpectedColumn.Errorf(c.String())
			}
		}
	}

	if !r.All && r.PointSelector == nil && countIdx < 0 {
		return errs.SQLPointNotSpecified.Error()
	}

	return nil
}

// parseSetInto parses the SET col '=' value {',' col '=' value} clause
// shared by insert's "set" alternative and update.
func (p *parser) parseSetInto(r *request.Request) liberr.Error {
	if err := p.expectReserved(token.SET); err != nil {
		return err
	}

	var cols []request.Column
	var vals []request.Value

	for {
		colTok, err := p.next()
		if err != nil {
			return err
		}
		col, ok := columnOf(colTok.Reserved)
		if !ok {
			if colTok.Kind == token.KindEOF {
				return errs.SQLUnexpectedEnd.Error()
			}
			return errs.SQLUnexpectedColumn.Errorf(colTok.String())
		}
		if !col.Meta().Writable {
			return errs.SQLColumnReadOnly.Errorf(col.String())
		}

		if err := p.expectPunct("="); err != nil {
			return err
		}

		v, err := p.parseValue()
		if err != nil {
			return err
		}

		cols = append(cols, col)
		vals = append(vals, v)

		nt, err := p.next()
		if err != nil {
			return err
		}
		if nt.IsPunct(",") {
			continue
		}
		p.putBack(nt)
		break
	}

	r.Update.Columns = cols
	r.Update.ValueRows = [][]request.Value{vals}
	return nil
}

// defaultInsertColumns is the implied column order a VALUES-form INSERT
// without an explicit column list takes against ARCHIVE: point name,
// stamp, state, value.
var defaultInsertColumns = []request.Column{
	request.ColumnPointName, request.ColumnStamp, request.ColumnState, request.ColumnValue,
}

// parseInsert parses the insert production; INSERT itself has already
// been consumed.
func (p *parser) parseInsert() (*request.Request, liberr.Error) {
	r := &request.Request{Command: request.CommandInsert, Update: &request.UpdateExt{}}

	if _, err := p.consumeReserved(token.INTO); err != nil {
		return nil, err
	}

	tbl, alias, err := p.parseTable()
	if err != nil {
		return nil, err
	}
	if tbl != request.TableArchive {
		return nil, errs.SQLTableReadOnly.Errorf(tbl.String())
	}
	r.Table = tbl
	r.TableAlias = alias

	if hasParen, err := p.peekIsPunct("("); err != nil {
		return nil, err
	} else if hasParen {
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		for {
			colTok, err := p.next()
			if err != nil {
				return nil, err
			}
			col, ok := columnOf(colTok.Reserved)
			if !ok {
				return nil, errs.SQLUnexpectedColumn.Errorf(colTok.String())
			}
			r.Update.Columns = append(r.Update.Columns, col)

			nt, err := p.next()
			if err != nil {
				return nil, err
			}
			if nt.IsPunct(",") {
				continue
			}
			if nt.IsPunct(")") {
				break
			}
			return nil, errs.SQLUnexpectedToken.Errorf(nt.String())
		}
	}

	tok, err := p.next()
	if err != nil {
		return nil, err
	}

	switch {
	case tok.Is(token.VALUES):
		p.putBack(tok)
		for {
			if err := p.expectReserved(token.VALUES); err != nil {
				return nil, err
			}
			if err := p.expectPunct("("); err != nil {
				return nil, err
			}
			var row []request.Value
			for {
				v, err := p.parseValue()
				if err != nil {
					return nil, err
				}
				row = append(row, v)

				nt, err := p.next()
				if err != nil {
					return nil, err
				}
				if nt.IsPunct(",") {
					continue
				}
				if nt.IsPunct(")") {
					break
				}
				return nil, errs.SQLUnexpectedToken.Errorf(nt.String())
			}
			r.Update.ValueRows = append(r.Update.ValueRows, row)

			nt, err := p.next()
			if err != nil {
				return nil, err
			}
			if nt.Is(token.VALUES) {
				p.putBack(nt)
				continue
			}
			p.putBack(nt)
			break
		}
	case tok.Is(token.SET):
		p.putBack(tok)
		if err := p.parseSetInto(r); err != nil {
			return nil, err
		}
	default:
		if tok.Kind == token.KindEOF {
			return nil, errs.SQLUnexpectedEnd.Error()
		}
		return nil, errs.SQLUnexpectedToken.Errorf(tok.String())
	}

	if err := p.expectEOF(); err != nil {
		return nil, err
	}

	if len(r.Update.Columns) == 0 {
		r.Update.Columns = append([]request.Column(nil), defaultInsertColumns...)
	}
	for _, row := range r.Update.ValueRows {
		if len(row) != len(r.Update.Columns) {
			return nil, errs.SQLInvalidColumnNumber.Errorf(tbl.String())
		}
	}

	return r, nil
}

// parseUpdate parses the update production; UPDATE itself has already
// been consumed.
func (p *parser) parseUpdate() (*request.Request, liberr.Error) {
	r := &request.Request{Command: request.CommandUpdate, Update: &request.UpdateExt{}}

	if ok, err := p.consumeReserved(token.ALL); err != nil {
		return nil, err
	} else if ok {
		r.All = true
	}

	tbl, alias, err := p.parseTable()
	if err != nil {
		return nil, err
	}
	if tbl != request.TableArchive {
		return nil, errs.SQLTableReadOnly.Errorf(tbl.String())
	}
	r.Table = tbl
	r.TableAlias = alias

	if err := p.parseSetInto(r); err != nil {
		return nil, err
	}

	if ok, err := p.consumeReserved(token.WHERE); err != nil {
		return nil, err
	} else if ok {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		col, ok := pointColumnOf(tok.Reserved)
		if !ok {
			if tok.Kind == token.KindEOF {
				return nil, errs.SQLUnexpectedEnd.Error()
			}
			return nil, errs.SQLUnexpectedToken.Errorf(tok.String())
		}
		if err := p.parsePointPredInto(r, col); err != nil {
			return nil, err
		}
	}

	if !r.All && r.PointSelector == nil {
		return nil, errs.SQLPointNotSpecified.Error()
	}

	if err := p.expectEOF(); err != nil {
		return nil, err
	}

	return r, nil
}

// parseDelete parses the delete production; DELETE itself has already
// been consumed.
func (p *parser) parseDelete() (*request.Request, liberr.Error) {
	r := &request.Request{Command: request.CommandDelete}

	if ok, err := p.consumeReserved(token.ALL); err != nil {
		return nil, err
	} else if ok {
		r.All = true
	}

	if _, err := p.consumeReserved(token.FROM); err != nil {
		return nil, err
	}

	tbl, alias, err := p.parseTable()
	if err != nil {
		return nil, err
	}
	if tbl != request.TableArchive {
		return nil, errs.SQLTableReadOnly.Errorf(tbl.String())
	}
	r.Table = tbl
	r.TableAlias = alias

	if ok, err := p.consumeReserved(token.WHERE); err != nil {
		return nil, err
	} else if ok {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		col, ok := pointColumnOf(tok.Reserved)
		if !ok {
			if tok.Kind == token.KindEOF {
				return nil, errs.SQLUnexpectedEnd.Error()
			}
			return nil, errs.SQLUnexpectedToken.Errorf(tok.String())
		}
		if err := p.parsePointPredInto(r, col); err != nil {
			return nil, err
		}
	}

	if !r.All && r.PointSelector == nil {
		return nil, errs.SQLPointNotSpecified.Error()
	}

	if err := p.expectEOF(); err != nil {
		return nil, err
	}

	return r, nil
}

func pointColumnOf(r *token.Reserved) (request.Column, bool) {
	switch r {
	case token.POINT:
		return request.ColumnPoint, true
	case token.POINT_NAME:
		return request.ColumnPointName, true
	case token.POINT_UUID:
		return request.ColumnPointUUID, true
	default:
		return 0, false
	}
}
