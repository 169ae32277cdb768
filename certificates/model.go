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

package certificates

import (
	"crypto/tls"
	"io"

	tlsaut "github.com/sabouaram/valve/certificates/auth"
	tlscas "github.com/sabouaram/valve/certificates/ca"
	tlscrt "github.com/sabouaram/valve/certificates/certs"
	tlscpr "github.com/sabouaram/valve/certificates/cipher"
	tlscrv "github.com/sabouaram/valve/certificates/curves"
	tlsvrs "github.com/sabouaram/valve/certificates/tlsversion"
)

// config is the concrete TLSConfig implementation. The collection fields
// hold the split value types (auth/ca/certs/cipher/curves/tlsversion)
// rather than raw crypto/tls types, so every parse/validate concern lives
// in its own subpackage.
type config struct {
	rand io.Reader

	cert []tlscrt.Cert

	cipherList []tlscpr.Cipher
	curveList  []tlscrv.Curves

	caRoot     []tlscas.Cert
	clientAuth tlsaut.ClientAuth
	clientCA   []tlscas.Cert

	tlsMinVersion tlsvrs.Version
	tlsMaxVersion tlsvrs.Version

	dynSizingDisabled     bool
	ticketSessionDisabled bool
}

func (o *config) RegisterRand(rand io.Reader) {
	o.rand = rand
}

func (o *config) SetVersionMin(v tlsvrs.Version) {
	o.tlsMinVersion = v
}

func (o *config) GetVersionMin() tlsvrs.Version {
	return o.tlsMinVersion
}

func (o *config) SetVersionMax(v tlsvrs.Version) {
	o.tlsMaxVersion = v
}

func (o *config) GetVersionMax() tlsvrs.Version {
	return o.tlsMaxVersion
}

func (o *config) SetCipherList(c []tlscpr.Cipher) {
	o.cipherList = make([]tlscpr.Cipher, 0)
	o.AddCiphers(c...)
}

func (o *config) AddCiphers(c ...tlscpr.Cipher) {
	o.cipherList = append(o.cipherList, c...)
}

func (o *config) GetCiphers() []tlscpr.Cipher {
	var res = make([]tlscpr.Cipher, 0)

	for _, i := range o.cipherList {
		if tlscpr.Check(i.Uint16()) {
			res = append(res, i)
		}
	}

	return res
}

func (o *config) SetDynamicSizingDisabled(flag bool) {
	o.dynSizingDisabled = flag
}

func (o *config) SetSessionTicketDisabled(flag bool) {
	o.ticketSessionDisabled = flag
}

func (o *config) cloneCertificates() []tlscrt.Cert {
	return append(make([]tlscrt.Cert, 0, len(o.cert)), o.cert...)
}

func (o *config) cloneRootCA() []tlscas.Cert {
	return append(make([]tlscas.Cert, 0, len(o.caRoot)), o.caRoot...)
}

func (o *config) cloneClientCA() []tlscas.Cert {
	return append(make([]tlscas.Cert, 0, len(o.clientCA)), o.clientCA...)
}

func (o *config) Clone() TLSConfig {
	return &config{
		rand:                  o.rand,
		cert:                  o.cloneCertificates(),
		cipherList:            append(make([]tlscpr.Cipher, 0, len(o.cipherList)), o.cipherList...),
		curveList:             append(make([]tlscrv.Curves, 0, len(o.curveList)), o.curveList...),
		caRoot:                o.cloneRootCA(),
		clientAuth:            o.clientAuth,
		clientCA:              o.cloneClientCA(),
		tlsMinVersion:         o.tlsMinVersion,
		tlsMaxVersion:         o.tlsMaxVersion,
		dynSizingDisabled:     o.dynSizingDisabled,
		ticketSessionDisabled: o.ticketSessionDisabled,
	}
}

// TLS and TlsConfig both translate the accumulated config into a
// *tls.Config for the given serverName; TlsConfig is the historical
// name, kept alongside TLS for interface compatibility.
func (o *config) TLS(serverName string) *tls.Config {
	return o.TlsConfig(serverName)
}

func (o *config) TlsConfig(serverName string) *tls.Config {
	cfg := &tls.Config{
		ServerName:               serverName,
		Certificates:             o.GetCertificatePair(),
		RootCAs:                  o.GetRootCAPool(),
		ClientCAs:                o.GetClientCAPool(),
		ClientAuth:               tls.ClientAuthType(o.clientAuth),
		MinVersion:               o.tlsMinVersion.TLS(),
		MaxVersion:               o.tlsMaxVersion.TLS(),
		DynamicRecordSizingDisabled: o.dynSizingDisabled,
		SessionTicketsDisabled:    o.ticketSessionDisabled,
	}

	if len(o.cipherList) > 0 {
		suites := make([]uint16, 0, len(o.cipherList))
		for _, c := range o.cipherList {
			suites = append(suites, c.TLS())
		}
		cfg.CipherSuites = suites
	}

	if len(o.curveList) > 0 {
		curves := make([]tls.CurveID, 0, len(o.curveList))
		for _, c := range o.curveList {
			curves = append(curves, c.TLS())
		}
		cfg.CurvePreferences = curves
	}

	if o.rand != nil {
		cfg.Rand = o.rand
	}

	return cfg
}

func (o *config) Config() *Config {
	return &Config{
		CurveList:            append(make([]tlscrv.Curves, 0, len(o.curveList)), o.curveList...),
		CipherList:           append(make([]tlscpr.Cipher, 0, len(o.cipherList)), o.cipherList...),
		RootCA:               o.cloneRootCA(),
		ClientCA:             o.cloneClientCA(),
		Certs:                certifModels(o.cert),
		VersionMin:           o.tlsMinVersion,
		VersionMax:           o.tlsMaxVersion,
		AuthClient:           o.clientAuth,
		DynamicSizingDisable: o.dynSizingDisabled,
		SessionTicketDisable: o.ticketSessionDisabled,
	}
}

func certifModels(certs []tlscrt.Cert) []tlscrt.Certif {
	res := make([]tlscrt.Certif, 0, len(certs))
	for _, c := range certs {
		res = append(res, c.Model())
	}
	return res
}
