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

// Package token implements the SQL tokenizer and the token taxonomy it
// produces: words (possibly reserved), quoted strings, numeric literals,
// '?' parameters and the handful of punctuation operators the grammar
// uses. Reserved words carry identity equality, matching the registered
// builder idiom used elsewhere in this module instead of reflective
// lookup.
package token

import "fmt"

// Kind discriminates the token classes the grammar distinguishes.
type Kind uint8

const (
	KindEOF Kind = iota
	KindWord
	KindQuoted
	KindNumericInt
	KindNumericFloat
	KindParameter
	KindPunct
)

func (k Kind) String() string {
	switch k {
	case KindEOF:
		return "EOF"
	case KindWord:
		return "WORD"
	case KindQuoted:
		return "QUOTED"
	case KindNumericInt:
		return "INT"
	case KindNumericFloat:
		return "FLOAT"
	case KindParameter:
		return "PARAM"
	case KindPunct:
		return "PUNCT"
	default:
		return "?"
	}
}

// Reserved is a registered reserved word. Reserved tokens compare by
// identity (pointer equality), not by string value, so the parser can
// switch on a Reserved pointer the way the grammar does on terminal
// names.
type Reserved struct {
	Name string
}

var registry = map[string]*Reserved{}

// reserve registers (or returns the existing) Reserved for name,
// compared case-insensitively at lookup time.
func reserve(name string) *Reserved {
	r := &Reserved{Name: name}
	registry[name] = r
	return r
}

// The complete set of reserved words the grammar
// names as terminals, plus the two table names.
var (
	SELECT      = reserve("SELECT")
	FROM        = reserve("FROM")
	WHERE       = reserve("WHERE")
	AND         = reserve("AND")
	ALL         = reserve("ALL")
	LIMIT       = reserve("LIMIT")
	INSERT      = reserve("INSERT")
	INTO        = reserve("INTO")
	VALUES      = reserve("VALUES")
	SET         = reserve("SET")
	UPDATE      = reserve("UPDATE")
	DELETE      = reserve("DELETE")
	LIKE        = reserve("LIKE")
	REGEXP      = reserve("REGEXP")
	IS          = reserve("IS")
	NOT         = reserve("NOT")
	NULL        = reserve("NULL")
	NOW         = reserve("NOW")
	TODAY       = reserve("TODAY")
	YESTERDAY   = reserve("YESTERDAY")
	BOT         = reserve("BOT")
	EOT         = reserve("EOT")
	ARCHIVE     = reserve("ARCHIVE")
	POINTS      = reserve("POINTS")
	POINT       = reserve("POINT")
	POINT_NAME  = reserve("POINT_NAME")
	POINT_UUID  = reserve("POINT_UUID")
	STAMP       = reserve("STAMP")
	VERSION     = reserve("VERSION")
	STATE       = reserve("STATE")
	VALUE       = reserve("VALUE")
	INTERPOLATED = reserve("INTERPOLATED")
	EXTRAPOLATED = reserve("EXTRAPOLATED")
	COUNT       = reserve("COUNT")
	CRONTAB     = reserve("CRONTAB")
	ELAPSED     = reserve("ELAPSED")
	STAMPS      = reserve("STAMPS")
	TIME_LIMIT  = reserve("TIME_LIMIT")
)

// Lookup returns the Reserved registered under name (case-insensitive),
// or nil if name is not a reserved word.
func Lookup(name string) *Reserved {
	return registry[upper(name)]
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}

func init() {
	// registry keys are stored upper-case so Lookup can normalize once.
	for k, v := range registry {
		u := upper(k)
		if u != k {
			delete(registry, k)
			registry[u] = v
		}
	}
}

// Token is one lexical unit produced by the Tokenizer.
type Token struct {
	Kind     Kind
	Text     string   // raw text for Word/Punct, unescaped value for Quoted
	Reserved *Reserved // non-nil when Kind == KindWord and Text is reserved
	Int      int64     // valid when Kind == KindNumericInt
	Float    float64   // valid when Kind == KindNumericFloat
	Param    *Parameter // valid when Kind == KindParameter
}

// Parameter is a mutable value slot bound to one '?' occurrence in a
// statement. The same *Parameter is shared between the token stream and
// the Request built from it, so rebinding a value before re-execution is
// a single field write.
type Parameter struct {
	Ordinal int
	Value   interface{}
}

// Is reports whether t is a reserved-word token equal (by identity) to r.
func (t Token) Is(r *Reserved) bool {
	return t.Kind == KindWord && t.Reserved == r
}

// IsPunct reports whether t is the punctuation token text (one of
// "," "(" ")" "*" "=" "<" ">" "<=" ">=").
func (t Token) IsPunct(text string) bool {
	return t.Kind == KindPunct && t.Text == text
}

func (t Token) String() string {
	switch t.Kind {
	case KindWord:
		return t.Text
	case KindQuoted:
		return fmt.Sprintf("%q", t.Text)
	case KindNumericInt:
		return fmt.Sprintf("%d", t.Int)
	case KindNumericFloat:
		return fmt.Sprintf("%g", t.Float)
	case KindParameter:
		return "?"
	case KindPunct:
		return t.Text
	default:
		return "<eof>"
	}
}
