/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
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

// Package perm is an os.FileMode wrapper with octal/symbolic string
// parsing and the encoding hooks (JSON, YAML, TOML, CBOR, text, viper)
// needed to carry a file or directory mode through a config file, the
// way logger/config's file output options accept a fileMode/pathMode
// key rather than a raw integer.
package perm

import (
	"os"
	"strconv"
)

type Perm os.FileMode

// Parse parses an octal permission string such as "0644".
func Parse(s string) (Perm, error) {
	return parseString(s)
}

// ParseFileMode converts an os.FileMode, as returned by os.Stat, to a Perm.
func ParseFileMode(p os.FileMode) Perm {
	return Perm(p)
}

// ParseInt parses an integer permission value (420 decimal and "0644"
// octal round-trip to the same Perm).
func ParseInt(i int) (Perm, error) {
	return parseString(strconv.FormatInt(int64(i), 8))
}

// ParseInt64 is ParseInt for an int64 input.
func ParseInt64(i int64) (Perm, error) {
	return parseString(strconv.FormatInt(i, 8))
}

// ParseByte parses a byte slice holding an octal permission string.
func ParseByte(p []byte) (Perm, error) {
	return parseString(string(p))
}
