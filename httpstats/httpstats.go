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

// Package httpstats serves the relay's stats snapshot over HTTP: a JSON
// status route for operators and a prometheus scrape route fed from the
// metrics package's dedicated registry.
package httpstats

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sabouaram/valve/logging"
	"github.com/sabouaram/valve/metrics"
	"github.com/sabouaram/valve/relay/service"
)

// Source provides the stats snapshot served by the routes; satisfied by
// *service.Service.
type Source interface {
	Stats() service.Stats
}

// ClassSnapshot is the per-port-class slice of a status response.
type ClassSnapshot struct {
	Open     int64  `json:"open"`
	Accepted uint64 `json:"accepted"`
	Refused  uint64 `json:"refused"`
	Failed   uint64 `json:"failed"`
}

// Snapshot is the body of the status route.
type Snapshot struct {
	Uptime     string        `json:"uptime"`
	Direct     ClassSnapshot `json:"direct"`
	Controlled ClassSnapshot `json:"controlled"`
	Resumes    uint64        `json:"resumes"`
	Pauses     uint64        `json:"pauses"`
}

// Server serves /status and /metrics on its own listen address, kept off
// the relay's data-plane ports.
type Server struct {
	listen  string
	src     Source
	srv     *http.Server
	started time.Time

	log interface {
		Info(message string, data interface{}, args ...interface{})
		Error(message string, data interface{}, args ...interface{})
	}
}

// New builds a Server; nothing listens until Start.
func New(listen string, src Source) *Server {
	return &Server{
		listen: listen,
		src:    src,
		log:    logging.Component("httpstats"),
	}
}

// Handler returns the route tree, usable directly in tests without a
// listening socket.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)

	eng := gin.New()
	eng.Use(gin.Recovery())
	eng.GET("/status", s.getStatus)
	eng.GET("/metrics", s.getMetrics)

	return eng
}

func (s *Server) getStatus(c *gin.Context) {
	st := s.src.Stats()

	c.JSON(http.StatusOK, Snapshot{
		Uptime: time.Since(s.started).Truncate(time.Second).String(),
		Direct: ClassSnapshot{
			Open:     st.DirectOpen,
			Accepted: st.DirectCounters.Accepted,
			Refused:  st.DirectCounters.Refused,
			Failed:   st.DirectCounters.Failed,
		},
		Controlled: ClassSnapshot{
			Open:     st.ControlledOpen,
			Accepted: st.ControlCounters.Accepted,
			Refused:  st.ControlCounters.Refused,
			Failed:   st.ControlCounters.Failed,
		},
		Resumes: st.Resumes,
		Pauses:  st.Pauses,
	})
}

// getMetrics refreshes every collector from a fresh snapshot before
// delegating to the prometheus handler, so a scrape always sees current
// values without a background observe ticker.
func (s *Server) getMetrics(c *gin.Context) {
	metrics.Observe(s.src.Stats())
	promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}).ServeHTTP(c.Writer, c.Request)
}

// Start begins serving; it returns once the listener is up, with serving
// continuing in the background until Stop.
func (s *Server) Start(_ context.Context) error {
	s.started = time.Now()
	s.srv = &http.Server{Addr: s.listen, Handler: s.Handler()}

	go func() {
		if e := s.srv.ListenAndServe(); e != nil && !errors.Is(e, http.ErrServerClosed) {
			s.log.Error("stats server stopped", nil, "error", e)
		}
	}()

	s.log.Info("stats server started", nil, "address", s.listen)

	return nil
}

// Stop shuts the HTTP server down, waiting for in-flight requests up to
// the context's deadline.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
