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

// Package sockcfg describes a listener or dialer endpoint: network
// protocol, address, optional TLS position and timeouts, split into a
// Listen (accept) and a Dial (connect) shape over the network/protocol
// and tlsconfig packages.
package sockcfg

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	liberr "github.com/sabouaram/valve/errors"
	"github.com/sabouaram/valve/errs"
	"github.com/sabouaram/valve/network/protocol"
	"github.com/sabouaram/valve/tlsconfig"
)

// Listen is the configuration of one accept endpoint.
type Listen struct {
	Network protocol.NetworkProtocol `mapstructure:"network" json:"network" yaml:"network"`
	Address string                   `mapstructure:"address" json:"address" yaml:"address"`
	TLS     *tlsconfig.Position      `mapstructure:"tls" json:"tls" yaml:"tls"`
}

// Validate checks that the endpoint is minimally well formed.
func (l Listen) Validate() liberr.Error {
	if l.Network == protocol.NetworkEmpty {
		return errs.RelayFatalConfig.Error(fmt.Errorf("listen: invalid network protocol"))
	}
	if l.Address == "" {
		return errs.RelayFatalConfig.Error(fmt.Errorf("listen: empty address"))
	}
	return nil
}

// Listener opens the listening socket, wrapping it in a TLS acceptor when
// the position carries keystore material.
func (l Listen) Listener() (net.Listener, liberr.Error) {
	if e := l.Validate(); e != nil {
		return nil, e
	}

	ln, er := net.Listen(l.Network.String(), l.Address)
	if er != nil {
		return nil, errs.RelayFatalListen.Error(er)
	}

	if l.TLS.Enabled() {
		cfg, e := l.TLS.Build("")
		if e != nil {
			_ = ln.Close()
			return nil, e
		}
		ln = tls.NewListener(ln, cfg)
	}

	return ln, nil
}

// Dial is the configuration of one outbound endpoint (the upstream
// server side of a Connection, or a TLS-initiating controlled/direct
// position).
type Dial struct {
	Network    protocol.NetworkProtocol `mapstructure:"network" json:"network" yaml:"network"`
	Address    string                   `mapstructure:"address" json:"address" yaml:"address"`
	TLS        *tlsconfig.Position      `mapstructure:"tls" json:"tls" yaml:"tls"`
	ServerName string                   `mapstructure:"serverName" json:"serverName" yaml:"serverName"`
	Timeout    time.Duration            `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
}

// Validate checks that the endpoint is minimally well formed.
func (d Dial) Validate() liberr.Error {
	if d.Network == protocol.NetworkEmpty {
		return errs.RelayFatalConfig.Error(fmt.Errorf("dial: invalid network protocol"))
	}
	if d.Address == "" {
		return errs.RelayFatalConfig.Error(fmt.Errorf("dial: empty address"))
	}
	return nil
}

// DialContext opens the outbound connection, non-blocking with respect to
// the caller's context, wrapping it in a TLS client when configured.
func (d Dial) DialContext(ctx context.Context) (net.Conn, liberr.Error) {
	if e := d.Validate(); e != nil {
		return nil, e
	}

	dialer := &net.Dialer{Timeout: d.Timeout, KeepAlive: 30 * time.Second}

	conn, er := dialer.DialContext(ctx, d.Network.String(), d.Address)
	if er != nil {
		return nil, errs.RelayAdmissionConnectFailed.Error(er)
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
		_ = tc.SetKeepAlive(true)
	}

	if d.TLS.Enabled() {
		cfg, e := d.TLS.Build(d.serverName())
		if e != nil {
			_ = conn.Close()
			return nil, e
		}
		conn = tls.Client(conn, cfg)
	}

	return conn, nil
}

func (d Dial) serverName() string {
	if d.ServerName != "" {
		return d.ServerName
	}
	host, _, e := net.SplitHostPort(d.Address)
	if e != nil {
		return d.Address
	}
	return host
}
