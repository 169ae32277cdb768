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

// Package service is the top-level Service Facade: it loads
// configuration, builds the TLS positions, wires the direct/controlled
// Port Managers and the Control Port, and exposes a single
// runner.StartStop-shaped lifecycle plus a stats snapshot for metrics and
// httpstats to consume.
package service

import (
	"context"
	"fmt"

	"github.com/sabouaram/valve/buffer"
	liberr "github.com/sabouaram/valve/errors"
	"github.com/sabouaram/valve/errs"
	"github.com/sabouaram/valve/logging"
	"github.com/sabouaram/valve/network/protocol"
	"github.com/sabouaram/valve/relay/control"
	"github.com/sabouaram/valve/relay/filter"
	"github.com/sabouaram/valve/relay/port"
	"github.com/sabouaram/valve/sockcfg"
	"github.com/sabouaram/valve/tlsconfig"
	"github.com/sabouaram/valve/valveconfig"
)

// Stats is a point-in-time snapshot of the whole service, consumed by
// metrics and httpstats.
type Stats struct {
	DirectOpen      int64
	ControlledOpen  int64
	DirectCounters  port.Counters
	ControlCounters port.Counters
	Resumes         uint64
	Pauses          uint64
}

// Service wires the configured ports and control channel together.
type Service struct {
	cfg valveconfig.Config

	direct     *port.Port
	controlled *port.Port
	ctrl       *control.Port

	log interface {
		Info(message string, data interface{}, args ...interface{})
	}
}

// listensFor builds one sockcfg.Listen per configured address, sharing
// the same TLS position across every listener of a class.
func listensFor(addresses []string, pos *tlsconfig.Position) []sockcfg.Listen {
	out := make([]sockcfg.Listen, 0, len(addresses))
	for _, addr := range addresses {
		out = append(out, sockcfg.Listen{Network: protocol.NetworkTCP, Address: addr, TLS: pos})
	}
	return out
}

// New builds a Service from a validated configuration and an optional
// Filter shared by every relayed byte direction. At least one of direct
// or controlled relaying must be configured, matching the invariant.
func New(cfg valveconfig.Config, flt filter.Filter) (*Service, liberr.Error) {
	if e := cfg.Validate(); e != nil {
		return nil, e
	}

	buffer.Configure(int(cfg.Buffer.Size))

	s := &Service{cfg: cfg, log: logging.Component("relay.service")}

	dial := sockcfg.Dial{
		Network: protocol.NetworkTCP,
		Address: cfg.Server.Address,
		TLS:     cfg.ServerTLS(),
	}

	if len(cfg.Direct.Addresses) > 0 {
		s.direct = port.New(port.Options{
			Name:             "direct",
			Listens:          listensFor(cfg.Direct.Addresses, cfg.DirectTLS()),
			Dial:             dial,
			Filter:           flt,
			Limit:            cfg.Direct.ConnectionsLimit,
			HandshakeTimeout: cfg.Direct.HandshakeTimeout,
		})
	}

	if len(cfg.Controlled.Addresses) > 0 {
		s.controlled = port.New(port.Options{
			Name:             "controlled",
			Listens:          listensFor(cfg.Controlled.Addresses, cfg.ControlledTLS()),
			Dial:             dial,
			Filter:           flt,
			Limit:            cfg.Controlled.ConnectionsLimit,
			HandshakeTimeout: cfg.Controlled.HandshakeTimeout,
		})
	}

	if s.direct == nil && s.controlled == nil {
		return nil, errs.RelayFatalConfig.Error(fmt.Errorf("at least one of direct or controlled relaying must be configured"))
	}

	if cfg.Control.Address != "" {
		if s.controlled == nil {
			return nil, errs.RelayFatalConfig.Error(fmt.Errorf("control.address requires controlled.addresses to be set"))
		}

		s.ctrl = control.New(control.Options{
			Listen:           sockcfg.Listen{Network: protocol.NetworkTCP, Address: cfg.Control.Address, TLS: cfg.ControlTLS()},
			Gate:             s.controlled,
			Inverted:         cfg.Control.Inverted,
			HandshakeTimeout: cfg.Control.HandshakeTimeout,
		})
	}

	return s, nil
}

// Start brings up direct (if configured) immediately, and controlled
// either immediately (if no control port gates it) or leaves it paused
// until the control channel resumes it.
func (s *Service) Start(ctx context.Context) error {
	if s.direct != nil {
		if e := s.direct.Start(ctx); e != nil {
			return e
		}
	}

	if s.controlled != nil && s.ctrl == nil {
		if e := s.controlled.Start(ctx); e != nil {
			return e
		}
	}

	if s.ctrl != nil {
		if e := s.ctrl.Start(ctx); e != nil {
			return e
		}
	}

	s.log.Info("service started", nil)

	return nil
}

// Stop shuts down in the orderly sequence: control port, controlled
// port, direct port.
func (s *Service) Stop(ctx context.Context) error {
	var first error

	if s.ctrl != nil {
		if e := s.ctrl.Stop(ctx); e != nil && first == nil {
			first = e
		}
	}

	if s.controlled != nil {
		if e := s.controlled.Stop(ctx); e != nil && first == nil {
			first = e
		}
	}

	if s.direct != nil {
		if e := s.direct.Stop(ctx); e != nil && first == nil {
			first = e
		}
	}

	s.log.Info("service stopped", nil)

	return first
}

// Stats returns a snapshot of the whole service's current counters.
func (s *Service) Stats() Stats {
	var st Stats

	if s.direct != nil {
		st.DirectOpen = s.direct.OpenConnections()
		st.DirectCounters = s.direct.Counters()
	}

	if s.controlled != nil {
		st.ControlledOpen = s.controlled.OpenConnections()
		st.ControlCounters = s.controlled.Counters()
	}

	if s.ctrl != nil {
		st.Resumes, st.Pauses = s.ctrl.Counters()
	}

	return st
}
