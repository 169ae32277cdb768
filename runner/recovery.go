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

// Package runner holds the few helpers shared by every reactor-ish
// package (ioutils/aggregator, logger/hookfile, logger/hooksyslog)
// without pulling in the full startStop lifecycle type.
package runner

import "log"

// RecoveryCaller logs a panic recovered by the caller's deferred
// recover(), tagging it with the call site's name. A nil recovered
// value (no panic in flight) is a no-op.
func RecoveryCaller(caller string, recovered interface{}, info ...string) {
	if recovered == nil {
		return
	}
	if len(info) > 0 {
		log.Printf("recovered panic in %s (%s): %v", caller, info[0], recovered)
		return
	}
	log.Printf("recovered panic in %s: %v", caller, recovered)
}
