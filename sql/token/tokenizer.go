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

package token

import (
	"strconv"
	"strings"
	"unicode"

	liberr "github.com/sabouaram/valve/errors"
	"github.com/sabouaram/valve/errs"
)

// Tokenizer lexes a SQL statement, one Unicode codepoint at a time, with
// a single rune of lookahead and a single Token of putBack, reproducing
// an LL(1)-plus-putback discipline: a one-codepoint lookahead plus a
// one-token putBack slot.
type Tokenizer struct {
	src   []rune
	pos   int
	back  *Token
	hasBk bool
	params []*Parameter
}

// New builds a Tokenizer over sql.
func New(sql string) *Tokenizer {
	return &Tokenizer{src: []rune(sql)}
}

// Parameters returns the '?' parameter slots encountered so far, in
// statement order.
func (t *Tokenizer) Parameters() []*Parameter {
	return t.params
}

// PutBack pushes tok back so the next Next() returns it again. Only one
// token of putBack is supported; calling it twice in a row without an
// intervening Next() is a programming error in the parser and panics.
func (t *Tokenizer) PutBack(tok Token) {
	if t.hasBk {
		panic("token: putBack slot already occupied")
	}
	t.back = &tok
	t.hasBk = true
}

func (t *Tokenizer) peekRune() (rune, bool) {
	if t.pos >= len(t.src) {
		return 0, false
	}
	return t.src[t.pos], true
}

func (t *Tokenizer) advance() (rune, bool) {
	r, ok := t.peekRune()
	if ok {
		t.pos++
	}
	return r, ok
}

func (t *Tokenizer) skipSpace() {
	for {
		r, ok := t.peekRune()
		if !ok || !unicode.IsSpace(r) {
			return
		}
		t.pos++
	}
}

// Next returns the next token, or a KindEOF token once the input is
// exhausted. Errors are reported as errs.SQL* liberr.Error values so the
// parser can propagate them unchanged.
func (t *Tokenizer) Next() (Token, liberr.Error) {
	if t.hasBk {
		tok := *t.back
		t.back = nil
		t.hasBk = false
		return tok, nil
	}

	t.skipSpace()

	r, ok := t.peekRune()
	if !ok {
		return Token{Kind: KindEOF}, nil
	}

	switch {
	case r == '?':
		t.pos++
		p := &Parameter{Ordinal: len(t.params)}
		t.params = append(t.params, p)
		return Token{Kind: KindParameter, Param: p}, nil

	case r == '\'' || r == '"':
		return t.readQuoted(r)

	case r == '-' || unicode.IsDigit(r):
		if r == '-' {
			if nxt, has := t.lookaheadAfterMinus(); !has || !unicode.IsDigit(nxt) {
				t.pos++
				return Token{Kind: KindPunct, Text: "-"}, nil
			}
		}
		return t.readNumeric()

	case strings.ContainsRune(",()*=<>", r):
		return t.readPunct()

	case isIdentStart(r):
		return t.readWord()

	default:
		t.pos++
		return Token{}, errs.SQLUnexpectedToken.Errorf(string(r))
	}
}

func (t *Tokenizer) lookaheadAfterMinus() (rune, bool) {
	if t.pos+1 >= len(t.src) {
		return 0, false
	}
	return t.src[t.pos+1], true
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func (t *Tokenizer) readWord() (Token, liberr.Error) {
	start := t.pos
	t.pos++
	for {
		r, ok := t.peekRune()
		if !ok || !isIdentPart(r) {
			break
		}
		t.pos++
	}
	text := string(t.src[start:t.pos])
	return Token{Kind: KindWord, Text: text, Reserved: Lookup(text)}, nil
}

// readPunct consumes one of the reserved punctuation operators:
// "," "(" ")" "*" "=" "<" ">" "<=" ">=". These are the only operator
// tokens the grammar defines.
func (t *Tokenizer) readPunct() (Token, liberr.Error) {
	r, _ := t.advance()
	switch r {
	case ',', '(', ')', '*', '=':
		return Token{Kind: KindPunct, Text: string(r)}, nil
	case '<':
		if nxt, ok := t.peekRune(); ok && nxt == '=' {
			t.pos++
			return Token{Kind: KindPunct, Text: "<="}, nil
		}
		return Token{Kind: KindPunct, Text: "<"}, nil
	case '>':
		if nxt, ok := t.peekRune(); ok && nxt == '=' {
			t.pos++
			return Token{Kind: KindPunct, Text: ">="}, nil
		}
		return Token{Kind: KindPunct, Text: ">"}, nil
	}
	return Token{}, errs.SQLUnexpectedToken.Errorf(string(r))
}

// readNumeric consumes an optional leading '-', digits, an optional
// '.'-delimited fraction, and an optional [eE][+-]?digits exponent.
// Integers (no '.' and no exponent) parse as int64; anything else
// parses as float64.
func (t *Tokenizer) readNumeric() (Token, liberr.Error) {
	start := t.pos
	isFloat := false

	if r, ok := t.peekRune(); ok && r == '-' {
		t.pos++
	}
	t.digits()

	if r, ok := t.peekRune(); ok && r == '.' {
		isFloat = true
		t.pos++
		t.digits()
	}

	if r, ok := t.peekRune(); ok && (r == 'e' || r == 'E') {
		save := t.pos
		t.pos++
		if r2, ok2 := t.peekRune(); ok2 && (r2 == '+' || r2 == '-') {
			t.pos++
		}
		n := t.digits()
		if n == 0 {
			t.pos = save
		} else {
			isFloat = true
		}
	}

	text := string(t.src[start:t.pos])

	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Token{}, errs.SQLInvalidNumberFormat.Errorf(text)
		}
		return Token{Kind: KindNumericFloat, Text: text, Float: f}, nil
	}

	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return Token{}, errs.SQLInvalidNumberFormat.Errorf(text)
	}
	return Token{Kind: KindNumericInt, Text: text, Int: i}, nil
}

func (t *Tokenizer) digits() int {
	n := 0
	for {
		r, ok := t.peekRune()
		if !ok || !unicode.IsDigit(r) {
			return n
		}
		t.pos++
		n++
	}
}

// readQuoted consumes a single- or double-quoted string. Backslash
// escapes \a \b \f \n \r \t \v and octal \NNN (N in 0..7, at most three
// digits, value constrained to <= 0o377) are recognized; any other
// escaped character is copied literally.
func (t *Tokenizer) readQuoted(quote rune) (Token, liberr.Error) {
	t.pos++ // opening quote
	var sb strings.Builder

	for {
		r, ok := t.advance()
		if !ok {
			return Token{}, errs.SQLMissingQuote.Error()
		}

		if r == quote {
			return Token{Kind: KindQuoted, Text: sb.String()}, nil
		}

		if r != '\\' {
			sb.WriteRune(r)
			continue
		}

		esc, ok := t.advance()
		if !ok {
			return Token{}, errs.SQLMissingQuote.Error()
		}

		switch esc {
		case 'a':
			sb.WriteByte(0x07)
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'v':
			sb.WriteByte('\v')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			val := int(esc - '0')
			digits := 1
			for digits < 3 {
				nxt, has := t.peekRune()
				if !has || nxt < '0' || nxt > '7' {
					break
				}
				candidate := val*8 + int(nxt-'0')
				if candidate > 0o377 {
					break
				}
				val = candidate
				t.pos++
				digits++
			}
			if val > 0o377 {
				return Token{}, errs.SQLInvalidEscape.Errorf(string(esc))
			}
			sb.WriteByte(byte(val))
		default:
			sb.WriteRune(esc)
		}
	}
}

// Rewind resets the tokenizer to the start of its source, discarding any
// putBack token and parameter bookkeeping gathered so far. Used when a
// prepared statement is re-tokenized for a deep copy.
func (t *Tokenizer) Rewind() {
	t.pos = 0
	t.back = nil
	t.hasBk = false
	t.params = nil
}
