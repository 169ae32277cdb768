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

// Package paging builds session.StoreQuery values from a parsed
// request.Request and drives the upstream's paged Select calls: it
// resolves the point predicate through the point
// cache, maps time bounds onto at/notBefore/after/notAfter/before, and
// either materializes every row (scroll-insensitive cursors, COUNT(*))
// or hands back one page at a time (forward-only cursors).
package paging

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	liberr "github.com/sabouaram/valve/errors"
	"github.com/sabouaram/valve/errs"
	"github.com/sabouaram/valve/sql/pointcache"
	"github.com/sabouaram/valve/sql/request"
	"github.com/sabouaram/valve/sql/session"
)

// Engine ties a Session to the PointCache used to resolve point names.
type Engine struct {
	Session session.Session
	Cache   *pointcache.Cache
}

// New builds an Engine.
func New(sess session.Session, cache *pointcache.Cache) *Engine {
	return &Engine{Session: sess, Cache: cache}
}

// BuildQuery resolves r's point predicate and translates its bounds and
// modifiers into a StoreQuery ready for Select.
func (e *Engine) BuildQuery(ctx context.Context, r *request.Request) (*session.StoreQuery, liberr.Error) {
	q := &session.StoreQuery{}

	if r.PointSelector != nil {
		id, err := e.ResolvePoint(ctx, r.PointSelector)
		if err != nil {
			return nil, err
		}
		q.Point = id
	}

	now := time.Now()
	for _, b := range r.Bounds {
		if b.Column == request.ColumnVersion {
			v, err := resolveVersionValue(b.Value)
			if err != nil {
				return nil, err
			}
			n := v
			switch b.Op {
			case request.OpEQ:
				q.AtVersion = &n
			case request.OpGE:
				q.NotBeforeVersion = &n
			case request.OpGT:
				q.AfterVersion = &n
			case request.OpLE:
				q.NotAfterVersion = &n
			case request.OpLT:
				q.BeforeVersion = &n
			}
			continue
		}

		tv, err := resolveTimeValue(b.Value, now)
		if err != nil {
			return nil, err
		}
		t := tv
		switch b.Op {
		case request.OpEQ:
			q.At = &t
		case request.OpGE:
			q.NotBefore = &t
		case request.OpGT:
			q.After = &t
		case request.OpLE:
			q.NotAfter = &t
		case request.OpLT:
			q.Before = &t
		}
	}

	q.Pull = r.Pull
	q.Synced = r.Synced
	q.NotNull = r.NullIgnored

	if r.Sync != nil {
		q.Sync = &session.SyncSpec{}
		switch r.Sync.Column {
		case request.ColumnCrontab:
			q.Sync.Crontab = r.Sync.Text
		case request.ColumnElapsed:
			q.Sync.Elapsed = r.Sync.Text
		case request.ColumnStamps:
			q.Sync.Stamps = r.Sync.Text
		case request.ColumnTimeLimit:
			q.Sync.TimeLimit = r.Sync.Text
		}
	}

	if r.Query != nil {
		for _, c := range r.Query.Columns {
			switch c {
			case request.ColumnInterpolated:
				q.Interpolated = true
			case request.ColumnExtrapolated:
				q.Extrapolated = true
			}
		}
	}

	if r.Limit != nil {
		q.Limit = int(*r.Limit)
	}

	return q, nil
}

// ResolvePoint resolves a pointPred to a concrete UUID, consulting (and
// populating on miss) the point cache for name-based predicates. Used
// directly by INSERT, which identifies its target point the same way a
// SELECT/UPDATE/DELETE predicate does.
func (e *Engine) ResolvePoint(ctx context.Context, sel *request.PointPredicate) (uuid.UUID, liberr.Error) {
	s := stringOf(sel.Value)

	switch sel.Column {
	case request.ColumnPointUUID:
		id, err := uuid.Parse(s)
		if err != nil {
			return uuid.UUID{}, errs.SQLNotAUUID.Errorf(s)
		}
		return id, nil

	default: // ColumnPointName or ColumnPoint
		if id, ok := e.Cache.GetUUID(s); ok {
			return id, nil
		}
		bindings, err := e.Session.GetPointBindings(ctx, []string{s})
		if err != nil {
			return uuid.UUID{}, err
		}
		id, ok := bindings[s]
		if !ok {
			return uuid.UUID{}, errs.SQLUnknownPoint.Errorf(s)
		}
		e.Cache.Register(id, s)
		return id, nil
	}
}

// FetchPage performs a single Select call, returning its page verbatim.
func (e *Engine) FetchPage(ctx context.Context, q *session.StoreQuery) (*session.StoreResponse, liberr.Error) {
	return e.Session.Select(ctx, q)
}

// FetchAll materializes every row across every page of q, for
// scroll-insensitive result sets.
func (e *Engine) FetchAll(ctx context.Context, q *session.StoreQuery) ([]session.PointRow, liberr.Error) {
	var rows []session.PointRow
	cur := q

	for {
		resp, err := e.Session.Select(ctx, cur)
		if err != nil {
			return nil, err
		}
		rows = append(rows, resp.Rows...)
		if resp.Complete {
			return rows, nil
		}
		cur = &session.StoreQuery{Continuation: resp.Continuation}
	}
}

// CountStar sums the row count across every page without materializing
// any row, which is all "SELECT COUNT(*)" needs.
func (e *Engine) CountStar(ctx context.Context, q *session.StoreQuery) (int64, liberr.Error) {
	var total int64
	cur := q

	for {
		resp, err := e.Session.Select(ctx, cur)
		if err != nil {
			return 0, err
		}
		total += int64(len(resp.Rows))
		if resp.Complete {
			return total, nil
		}
		cur = &session.StoreQuery{Continuation: resp.Continuation}
	}
}

func stringOf(v request.Value) string {
	switch v.Kind {
	case request.ValString:
		return v.Str
	case request.ValParam:
		if v.Param != nil {
			return fmt.Sprint(v.Param.Value)
		}
		return ""
	default:
		return ""
	}
}

// timeLayouts are tried in order when a timeValue is a quoted string,
// matching the domain clock's ISO-like stamp format.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// resolveTimeValue turns a parsed timeValue (one of the keyword forms
// NOW/TODAY/YESTERDAY/BOT/EOT, a quoted ISO-like string, or a bound
// parameter) into a concrete time.Time.
func resolveTimeValue(v request.Value, now time.Time) (time.Time, liberr.Error) {
	switch v.Kind {
	case request.ValNow:
		return now, nil
	case request.ValToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), nil
	case request.ValYesterday:
		y, m, d := now.AddDate(0, 0, -1).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), nil
	case request.ValBot:
		return time.Unix(0, 0).UTC(), nil
	case request.ValEot:
		return time.Unix(1<<62, 0).UTC(), nil
	case request.ValString:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v.Str); err == nil {
				return t, nil
			}
		}
		return time.Time{}, errs.SQLNotAStamp.Errorf(v.Str)
	case request.ValParam:
		if v.Param == nil || v.Param.Value == nil {
			return time.Time{}, errs.SQLStampNotSpecified.Error()
		}
		switch tv := v.Param.Value.(type) {
		case time.Time:
			return tv, nil
		case string:
			return resolveTimeValue(request.Value{Kind: request.ValString, Str: tv}, now)
		default:
			return time.Time{}, errs.SQLNotAStamp.Errorf(fmt.Sprint(v.Param.Value))
		}
	default:
		return time.Time{}, errs.SQLNotAStamp.Error()
	}
}

// resolveVersionValue turns a parsed value occupying a VERSION bound
// into a concrete ordinal. VERSION reuses the shared value grammar, but
// only its numeric and parameter forms carry meaningful ordinals; BOT/
// EOT map to the ordinal range's open ends.
func resolveVersionValue(v request.Value) (int64, liberr.Error) {
	switch v.Kind {
	case request.ValInt:
		return v.Int, nil
	case request.ValFloat:
		return int64(v.Float), nil
	case request.ValBot:
		return 0, nil
	case request.ValEot:
		return int64(1<<63 - 1), nil
	case request.ValString:
		n, err := strconv.ParseInt(v.Str, 10, 64)
		if err != nil {
			return 0, errs.SQLNotANumber.Errorf(v.Str)
		}
		return n, nil
	case request.ValParam:
		if v.Param == nil || v.Param.Value == nil {
			return 0, errs.SQLStampNotSpecified.Error()
		}
		switch pv := v.Param.Value.(type) {
		case int64:
			return pv, nil
		case int:
			return int64(pv), nil
		case float64:
			return int64(pv), nil
		default:
			return 0, errs.SQLNotANumber.Errorf(fmt.Sprint(v.Param.Value))
		}
	default:
		return 0, errs.SQLNotANumber.Error()
	}
}
