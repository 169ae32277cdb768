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

// Package errs carries every structured error code for both the relay
// core and the SQL driver core, using the errors package's CodeError +
// RegisterIdFctMessage idiom (see errors/modules.go for the
// per-package numeric offsets).
package errs

import liberr "github.com/sabouaram/valve/errors"

// Relay error codes, grouped as admission, I/O, protocol or fatal
// failures; these constants name the concrete conditions within those
// categories.
const (
	RelayAdmissionRefused liberr.CodeError = iota + liberr.MinPkgRelay
	RelayAdmissionHandshakeFailed
	RelayAdmissionConnectFailed
	RelayIOEOF
	RelayIOReset
	RelayProtocolTLS
	RelayFatalListen
	RelayFatalConfig
	RelayControlUnbound
	RelayHandshakeTimeout
)

func init() {
	liberr.RegisterIdFctMessage(RelayAdmissionRefused, relayMessage)
}

func relayMessage(code liberr.CodeError) string {
	switch code {
	case RelayAdmissionRefused:
		return "connection refused: admission limit reached"
	case RelayAdmissionHandshakeFailed:
		return "connection refused: TLS handshake failed"
	case RelayAdmissionConnectFailed:
		return "connection refused: upstream connect failed"
	case RelayIOEOF:
		return "peer closed the connection"
	case RelayIOReset:
		return "connection reset"
	case RelayProtocolTLS:
		return "TLS protocol error"
	case RelayFatalListen:
		return "listener could not be opened"
	case RelayFatalConfig:
		return "invalid relay configuration"
	case RelayControlUnbound:
		return "control port has no bound socket"
	case RelayHandshakeTimeout:
		return "TLS handshake did not complete in time"
	}

	return ""
}
