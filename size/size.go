/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
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

// Package size defines Size, a byte count with binary (1024-based) units,
// parsed from and formatted to human-readable strings ("5MB",
// "1.5GB") the way the logger/config options (file-buffer-size,
// rotation size) and relay buffer sizes accept their configuration.
package size

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Size is a byte count.
type Size uint64

const (
	SizeNul  Size = 0
	SizeUnit Size = 1
	SizeKilo Size = SizeUnit << 10
	SizeMega Size = SizeKilo << 10
	SizeGiga Size = SizeMega << 10
	SizeTera Size = SizeGiga << 10
	SizePeta Size = SizeTera << 10
	SizeExa  Size = SizePeta << 10
)

var units = []struct {
	suffix string
	size   Size
}{
	{"EB", SizeExa},
	{"PB", SizePeta},
	{"TB", SizeTera},
	{"GB", SizeGiga},
	{"MB", SizeMega},
	{"KB", SizeKilo},
}

// String formats s as the largest whole unit it exceeds, with one decimal
// place, e.g. "5.5 MB"; sizes under 1KB are formatted in bytes.
func (s Size) String() string {
	for _, u := range units {
		if s >= u.size {
			return fmt.Sprintf("%.1f %s", float64(s)/float64(u.size), u.suffix)
		}
	}
	return fmt.Sprintf("%d B", uint64(s))
}

// Int64 returns s as an int64, saturating at math.MaxInt64.
func (s Size) Int64() int64 {
	if s > Size(1<<63-1) {
		return 1<<63 - 1
	}
	return int64(s)
}

// Uint64 returns s as a uint64.
func (s Size) Uint64() uint64 {
	return uint64(s)
}

// Float64 returns s as a float64.
func (s Size) Float64() float64 {
	return float64(s)
}

// ParseInt64 converts an int64 byte count to a Size, taking the absolute
// value of negative inputs.
func ParseInt64(n int64) Size {
	if n < 0 {
		n = -n
	}
	return Size(n)
}

// ParseUint64 converts a uint64 byte count to a Size.
func ParseUint64(n uint64) Size {
	return Size(n)
}

// SizeFromInt64 is an alias of ParseInt64 kept for call-site parity
// with the sibling value-type packages, which expose both a generic
// Parse* name and a type-prefixed one.
func SizeFromInt64(n int64) Size {
	return ParseInt64(n)
}

var suffixScale = map[string]Size{
	"B": SizeUnit,

	"K":  SizeKilo,
	"KB": SizeKilo,
	"M":  SizeMega,
	"MB": SizeMega,
	"G":  SizeGiga,
	"GB": SizeGiga,
	"T":  SizeTera,
	"TB": SizeTera,
	"P":  SizePeta,
	"PB": SizePeta,
	"E":  SizeExa,
	"EB": SizeExa,
}

// Parse parses a human size string such as "5MB", "1.5 GB", or a
// concatenation of several terms ("1GB500MB"). Whitespace and a single
// pair of enclosing quotes are trimmed. A bare, unsigned number (no
// suffix) is rejected, a Size must name its unit; a leading '+' is accepted, a leading '-' is rejected.
func Parse(s string) (Size, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}

	if s == "" {
		return 0, fmt.Errorf("size: invalid size: empty value")
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("size: invalid size: negative value %q", s)
	}
	s = strings.TrimPrefix(s, "+")

	var total float64
	matched := false

	i := 0
	for i < len(s) {
		start := i
		for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.') {
			i++
		}
		if i == start {
			return 0, fmt.Errorf("size: invalid value %q", s)
		}
		numTok := s[start:i]
		if strings.Count(numTok, ".") > 1 || strings.HasSuffix(numTok, ".") {
			return 0, fmt.Errorf("size: invalid number %q", numTok)
		}

		sufStart := i
		for i < len(s) && (s[i] >= 'A' && s[i] <= 'Z' || s[i] >= 'a' && s[i] <= 'z') {
			i++
		}
		sufTok := strings.ToUpper(s[sufStart:i])

		if sufTok == "" {
			return 0, fmt.Errorf("size: missing unit in %q", numTok)
		}

		scale, ok := suffixScale[sufTok]
		if !ok {
			return 0, fmt.Errorf("size: unknown unit %q", sufTok)
		}

		n, e := strconv.ParseFloat(numTok, 64)
		if e != nil {
			return 0, fmt.Errorf("size: invalid number %q: %w", numTok, e)
		}

		total += n * float64(scale)
		matched = true
	}

	if !matched {
		return 0, fmt.Errorf("size: invalid size: %q", s)
	}
	if total > math.MaxUint64 || math.IsInf(total, 1) {
		return 0, fmt.Errorf("size: value overflows: %q", s)
	}

	return Size(total), nil
}

// ParseSize is an alias of Parse kept for call-site parity with the
// sibling packages' *FromX / ParseX naming.
func ParseSize(s string) (Size, error) {
	return Parse(s)
}

// ParseByte parses a size given as a byte slice.
func ParseByte(b []byte) (Size, error) {
	if len(b) == 0 {
		return 0, fmt.Errorf("size: empty value")
	}
	return Parse(string(b))
}

// ParseByteAsSize is an alias of ParseByte kept for call-site parity.
func ParseByteAsSize(b []byte) (Size, error) {
	return ParseByte(b)
}

// MarshalText implements encoding.TextMarshaler.
func (s Size) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Size) UnmarshalText(data []byte) error {
	v, e := ParseByte(data)
	if e != nil {
		return e
	}
	*s = v
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s Size) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", s.String())), nil
}

// UnmarshalJSON implements json.Unmarshaler, accepting either a quoted
// human string or a bare integer byte count.
func (s *Size) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		v, e := Parse(strings.Trim(trimmed, `"`))
		if e != nil {
			return e
		}
		*s = v
		return nil
	}

	n, e := strconv.ParseUint(trimmed, 10, 64)
	if e != nil {
		return fmt.Errorf("size: invalid JSON value %q: %w", trimmed, e)
	}
	*s = Size(n)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s Size) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Size) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var str string
	if e := unmarshal(&str); e != nil {
		return e
	}
	v, e := Parse(str)
	if e != nil {
		return e
	}
	*s = v
	return nil
}

// MarshalTOML implements the go-toml Marshaler contract.
func (s Size) MarshalTOML() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", s.String())), nil
}

// UnmarshalTOML implements the go-toml Unmarshaler contract.
func (s *Size) UnmarshalTOML(i interface{}) error {
	switch v := i.(type) {
	case string:
		parsed, e := Parse(strings.Trim(v, `"'`))
		if e != nil {
			return e
		}
		*s = parsed
	case []byte:
		parsed, e := ParseByte(v)
		if e != nil {
			return e
		}
		*s = parsed
	case int64:
		*s = ParseInt64(v)
	case uint64:
		*s = Size(v)
	default:
		return fmt.Errorf("size: cannot unmarshal TOML value of type %T", i)
	}
	return nil
}

// ViperDecoderHook returns a mapstructure decode hook converting string
// and integer config values into a Size.
func ViperDecoderHook() func(reflect.Type, reflect.Type, interface{}) (interface{}, error) {
	target := reflect.TypeOf(Size(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != target {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return Parse(v)
		case Size:
			return v, nil
		case int, int8, int16, int32, int64:
			return ParseInt64(reflect.ValueOf(v).Int()), nil
		case uint, uint8, uint16, uint32, uint64:
			return ParseUint64(reflect.ValueOf(v).Uint()), nil
		default:
			return data, nil
		}
	}
}
