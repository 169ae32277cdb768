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
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	liberr "github.com/sabouaram/valve/errors"
	"github.com/sabouaram/valve/errs"
)

// coerceInt64 accepts a number or a parseable string, per the numeric
// column coercion rule.
func coerceInt64(v interface{}) (int64, liberr.Error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case float64:
		return int64(t), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, errs.SQLNotANumber.Errorf(t)
		}
		return n, nil
	default:
		return 0, errs.SQLWrongDataType.Errorf(fmt.Sprintf("%T", v))
	}
}

// coerceFloat64 accepts a number or a parseable string.
func coerceFloat64(v interface{}) (float64, liberr.Error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case int:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, errs.SQLNotANumber.Errorf(t)
		}
		return f, nil
	default:
		return 0, errs.SQLWrongDataType.Errorf(fmt.Sprintf("%T", v))
	}
}

// trueStrings is the case-insensitive set of string forms accepted as
// boolean true, besides a native bool.
var trueStrings = map[string]bool{"1": true, "true": true, "yes": true, "on": true}
var falseStrings = map[string]bool{"0": true, "false": true, "no": true, "off": true}

// coerceBool accepts a native bool or one of the recognized string
// forms (case-insensitive).
func coerceBool(v interface{}) (bool, liberr.Error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		if trueStrings[s] {
			return true, nil
		}
		if falseStrings[s] {
			return false, nil
		}
		return false, errs.SQLWrongDataType.Errorf(t)
	default:
		return false, errs.SQLWrongDataType.Errorf(fmt.Sprintf("%T", v))
	}
}

// timeLayouts mirrors the domain clock's ISO-like stamp formats.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// coerceTime accepts a native time.Time or an ISO-like string.
func coerceTime(v interface{}) (time.Time, liberr.Error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, errs.SQLNotAStamp.Errorf(t)
	default:
		return time.Time{}, errs.SQLWrongDataType.Errorf(fmt.Sprintf("%T", v))
	}
}

// coerceUUID accepts a uuid.UUID, a syntactically valid UUID string, or
// a 16-byte array/slice.
func coerceUUID(v interface{}) (uuid.UUID, liberr.Error) {
	switch t := v.(type) {
	case uuid.UUID:
		return t, nil
	case string:
		id, err := uuid.Parse(t)
		if err != nil {
			return uuid.UUID{}, errs.SQLNotAUUID.Errorf(t)
		}
		return id, nil
	case []byte:
		if len(t) != 16 {
			return uuid.UUID{}, errs.SQLNotAUUID.Errorf(fmt.Sprintf("%d bytes", len(t)))
		}
		id, err := uuid.FromBytes(t)
		if err != nil {
			return uuid.UUID{}, errs.SQLNotAUUID.Errorf(err.Error())
		}
		return id, nil
	case [16]byte:
		return uuid.UUID(t), nil
	default:
		return uuid.UUID{}, errs.SQLWrongDataType.Errorf(fmt.Sprintf("%T", v))
	}
}
