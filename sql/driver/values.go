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
	"fmt"
	"time"

	"github.com/sabouaram/valve/errs"

	liberr "github.com/sabouaram/valve/errors"
	"github.com/sabouaram/valve/sql/request"
)

// valueLayouts mirrors the paging engine's own stamp parsing for the
// literal values an INSERT/
// UPDATE statement carries directly, outside of a bound predicate.
var valueLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// valueToTime turns a parsed STAMP literal into a time.Time.
func valueToTime(v request.Value) (time.Time, liberr.Error) {
	switch v.Kind {
	case request.ValNow:
		return time.Now(), nil
	case request.ValToday:
		y, m, d := time.Now().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.Local), nil
	case request.ValYesterday:
		y, m, d := time.Now().AddDate(0, 0, -1).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.Local), nil
	case request.ValBot:
		return time.Unix(0, 0).UTC(), nil
	case request.ValEot:
		return time.Unix(1<<62, 0).UTC(), nil
	case request.ValString:
		for _, layout := range valueLayouts {
			if t, err := time.Parse(layout, v.Str); err == nil {
				return t, nil
			}
		}
		return time.Time{}, errs.SQLNotAStamp.Errorf(v.Str)
	case request.ValParam:
		if v.Param == nil || v.Param.Value == nil {
			return time.Time{}, errs.SQLStampNotSpecified.Error()
		}
		switch pv := v.Param.Value.(type) {
		case time.Time:
			return pv, nil
		case string:
			return valueToTime(request.Value{Kind: request.ValString, Str: pv})
		default:
			return time.Time{}, errs.SQLNotAStamp.Errorf(fmt.Sprint(v.Param.Value))
		}
	default:
		return time.Time{}, errs.SQLStampNotSpecified.Error()
	}
}

// valueToInt turns a parsed numeric literal (typically a STATE value)
// into an int64.
func valueToInt(v request.Value) (int64, liberr.Error) {
	switch v.Kind {
	case request.ValInt:
		return v.Int, nil
	case request.ValFloat:
		return int64(v.Float), nil
	case request.ValNull:
		return 0, nil
	case request.ValParam:
		if v.Param == nil || v.Param.Value == nil {
			return 0, nil
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

// valueLiteral resolves v (typically a VALUE column) to the Go value the
// upstream write carries, leaving numeric/string/NULL/bound-parameter
// forms as-is for the session to store.
func valueLiteral(v request.Value) interface{} {
	switch v.Kind {
	case request.ValNull:
		return nil
	case request.ValString:
		return v.Str
	case request.ValInt:
		return v.Int
	case request.ValFloat:
		return v.Float
	case request.ValNow:
		return time.Now()
	case request.ValToday:
		y, m, d := time.Now().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	case request.ValYesterday:
		y, m, d := time.Now().AddDate(0, 0, -1).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	case request.ValParam:
		if v.Param == nil {
			return nil
		}
		return v.Param.Value
	default:
		return nil
	}
}
