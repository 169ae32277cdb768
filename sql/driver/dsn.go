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

package driver

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/sabouaram/valve/errs"
)

// DSNConfig is the parsed form of a connection URL of the shape
// "valve-sql://host:port/database?param=value" (the
// "jdbc:rvpf:<authority>/<database>" convention, adapted to net/url
// rather than JDBC subprotocol syntax).
type DSNConfig struct {
	Host            string
	Port            int
	Database        string
	ReadOnly        bool
	AutoCommitLimit int
	Holdability     string // "close" or "hold", see resultset.Holdability
}

// defaultPort is used when the DSN's authority carries no explicit
// port.
const defaultPort = 17341

// ParseDSN parses dsn into a DSNConfig, following the
// url.Parse/Query-param idiom a database/sql/driver Open
// implementation commonly takes.
func ParseDSN(dsn string) (*DSNConfig, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, errs.SQLBadConnectionURL.Errorf(err.Error())
	}
	if u.Host == "" || u.Path == "" || u.Path == "/" {
		return nil, errs.SQLBadConnectionURL.Errorf(dsn)
	}

	cfg := &DSNConfig{
		Host:     u.Hostname(),
		Port:     defaultPort,
		Database: strings.TrimPrefix(u.Path, "/"),
	}
	if p := u.Port(); p != "" {
		n, perr := strconv.Atoi(p)
		if perr != nil {
			return nil, errs.SQLBadConnectionURL.Errorf(dsn)
		}
		cfg.Port = n
	}

	q := u.Query()
	if q.Get("readOnly") == "true" {
		cfg.ReadOnly = true
	}
	if v := q.Get("autoCommitLimit"); v != "" {
		n, aerr := strconv.Atoi(v)
		if aerr != nil {
			return nil, errs.SQLBadConnectionURL.Errorf(dsn)
		}
		cfg.AutoCommitLimit = n
	}
	if v := q.Get("holdability"); v != "" {
		cfg.Holdability = strings.ToLower(v)
	}

	return cfg, nil
}

// Address returns the host:port authority this DSN resolves to.
func (c *DSNConfig) Address() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
