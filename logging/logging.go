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

// Package logging provides the single structured logger shared by every
// component of the relay and SQL driver cores, built on top of logger.Logger.
// Each component gets its own field-scoped clone via Component so that log
// lines are attributable without every package wiring its own logrus/hclog
// instance.
package logging

import (
	"context"
	"sync"

	liblog "github.com/sabouaram/valve/logger"
	logfld "github.com/sabouaram/valve/logger/fields"
	loglvl "github.com/sabouaram/valve/logger/level"
)

var (
	mu      sync.RWMutex
	root    liblog.Logger
	rootCtx = context.Background()
)

func init() {
	root = liblog.New(rootCtx)
}

// SetLevel changes the minimal level of the root logger (and therefore of
// every Component clone taken before and after the call, since clones hold
// a copy of the level at creation time).
func SetLevel(lvl loglvl.Level) {
	mu.Lock()
	defer mu.Unlock()
	root.SetLevel(lvl)
}

// Root returns the shared root Logger.
func Root() liblog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// Component returns a clone of the root logger with a "component" field
// set, so every line it emits is attributable to the caller (e.g.
// "relay.port", "relay.control", "sql.parser").
func Component(name string) liblog.Logger {
	mu.RLock()
	l := root
	mu.RUnlock()

	c, e := liblog.NewFrom(rootCtx, nil, l)
	if e != nil || c == nil {
		c = l
	}

	c.SetFields(logfld.New(rootCtx).Add("component", name))

	return c
}
