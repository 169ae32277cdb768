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

// Package tlsconfig is the TLS configuration factory: keystore/
// truststore construction, cipher/curve/version selection and
// client-auth policy for each of the relay's TLS positions
// (server-upstream, controlled-listen, direct-listen, control-listen).
// It is a thin domain adapter over the certificates package, which
// owns the whole keystore/truststore/curves/ciphers/versions state
// machine.
package tlsconfig

import (
	"crypto/tls"

	"github.com/sabouaram/valve/certificates"
	tlsaut "github.com/sabouaram/valve/certificates/auth"
	tlscpr "github.com/sabouaram/valve/certificates/cipher"
	tlscrv "github.com/sabouaram/valve/certificates/curves"
	tlsvrs "github.com/sabouaram/valve/certificates/tlsversion"
	liberr "github.com/sabouaram/valve/errors"
)

// Position is one of the relay's independent TLS positions: it
// terminates TLS towards the client on two of them (controlled, direct)
// and may initiate TLS towards the upstream and expect it on the control
// listener.
type Position struct {
	// Certified holds PEM certificate+key pairs, as "key\ncert" strings,
	// the keystore material for this position.
	Certified []CertPair `mapstructure:"certified" json:"certified" yaml:"certified"`

	// RootCA is a list of PEM-encoded CA bundles trusted when this
	// position dials out (client-side verification); the truststore.
	RootCA []string `mapstructure:"rootCA" json:"rootCA" yaml:"rootCA"`

	// ClientCA is a list of PEM-encoded CA bundles trusted when this
	// position accepts mutual-TLS client certificates.
	ClientCA []string `mapstructure:"clientCA" json:"clientCA" yaml:"clientCA"`

	// ClientAuth selects the client certificate policy on accept.
	ClientAuth tlsaut.ClientAuth `mapstructure:"clientAuth" json:"clientAuth" yaml:"clientAuth"`

	// VersionMin / VersionMax bound the negotiated protocol version.
	VersionMin tlsvrs.Version `mapstructure:"versionMin" json:"versionMin" yaml:"versionMin"`
	VersionMax tlsvrs.Version `mapstructure:"versionMax" json:"versionMax" yaml:"versionMax"`

	// Ciphers restricts the cipher suite list; empty means the Go
	// default (TLS 1.3 suites plus a conservative TLS 1.2 set).
	Ciphers []tlscpr.Cipher `mapstructure:"ciphers" json:"ciphers" yaml:"ciphers"`

	// Curves restricts the elliptic curve preference list.
	Curves []tlscrv.Curves `mapstructure:"curves" json:"curves" yaml:"curves"`
}

// CertPair is a PEM key/certificate pair supplied inline; keystore
// material is treated as opaque PEM text so the factory never needs a
// filesystem.
type CertPair struct {
	Key string `mapstructure:"key" json:"key" yaml:"key"`
	Pub string `mapstructure:"pub" json:"pub" yaml:"pub"`
}

// Enabled reports whether this position has any keystore material.
// Presence of keystore/truststore material enables TLS in that position.
func (p *Position) Enabled() bool {
	if p == nil {
		return false
	}
	return len(p.Certified) > 0 || len(p.RootCA) > 0 || len(p.ClientCA) > 0
}

// Build constructs the *tls.Config for this position, suitable for use as
// either a server acceptor (ServerName unused) or a client connector
// (serverName used for SNI and verification).
func (p *Position) Build(serverName string) (*tls.Config, liberr.Error) {
	if p == nil || !p.Enabled() {
		return nil, nil
	}

	c := certificates.New()

	for _, pair := range p.Certified {
		if e := c.AddCertificatePairString(pair.Key, pair.Pub); e != nil {
			return nil, asLibErr(e)
		}
	}

	for _, ca := range p.RootCA {
		c.AddRootCAString(ca)
	}

	for _, ca := range p.ClientCA {
		c.AddClientCAString(ca)
	}

	if p.ClientAuth != 0 {
		c.SetClientAuth(p.ClientAuth)
	}

	if p.VersionMin != tlsvrs.VersionUnknown {
		c.SetVersionMin(p.VersionMin)
	}

	if p.VersionMax != tlsvrs.VersionUnknown {
		c.SetVersionMax(p.VersionMax)
	}

	if len(p.Ciphers) > 0 {
		c.SetCipherList(p.Ciphers)
	}

	if len(p.Curves) > 0 {
		c.SetCurveList(p.Curves)
	}

	return c.TlsConfig(serverName), nil
}

func asLibErr(e error) liberr.Error {
	if le, ok := e.(liberr.Error); ok {
		return le
	}
	return liberr.UnknownError.Error(e)
}
