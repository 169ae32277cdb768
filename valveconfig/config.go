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

// Package valveconfig loads and validates the relay's configuration:
// github.com/spf13/viper reads and watches the file (env, flags,
// multiple formats), and github.com/go-playground/validator/v10
// enforces struct constraints.
package valveconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	libmap "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/sabouaram/valve/duration"
	liberr "github.com/sabouaram/valve/errors"
	"github.com/sabouaram/valve/errs"
	"github.com/sabouaram/valve/size"
	"github.com/sabouaram/valve/tlsconfig"
)

// TLSKeys is the inline TLS material accepted for any of the four
// independent TLS positions.
type TLSKeys struct {
	Certified          []tlsconfig.CertPair `mapstructure:"certified"`
	Keystore           string               `mapstructure:"keystore"`
	KeystoreType       string               `mapstructure:"keystore_type"`
	KeystoreProvider   string               `mapstructure:"keystore_provider"`
	KeyPassword        string               `mapstructure:"key_password"`
	Truststore         []string             `mapstructure:"truststore"`
	TruststoreType     string               `mapstructure:"truststore_type"`
	TruststoreProvider string               `mapstructure:"truststore_provider"`
}

func (k TLSKeys) position() *tlsconfig.Position {
	p := &tlsconfig.Position{Certified: k.Certified}
	if len(k.Truststore) > 0 {
		p.RootCA = k.Truststore
	}
	return p
}

// Config is the full set of documented configuration keys,
// unmarshalled by viper with mapstructure tags and validated with
// go-playground/validator struct tags.
type Config struct {
	Server struct {
		Address string  `mapstructure:"address" validate:"required,hostname_port"`
		TLS     TLSKeys `mapstructure:"tls"`
	} `mapstructure:"server"`

	Direct struct {
		Addresses        []string         `mapstructure:"addresses"`
		ConnectionsLimit int64            `mapstructure:"connections_limit"`
		HandshakeTimeout duration.Duration `mapstructure:"handshake_timeout"`
		TLS              TLSKeys          `mapstructure:"tls"`
	} `mapstructure:"direct"`

	Controlled struct {
		Addresses        []string         `mapstructure:"addresses"`
		ConnectionsLimit int64            `mapstructure:"connections_limit"`
		HandshakeTimeout duration.Duration `mapstructure:"handshake_timeout"`
		TLS              TLSKeys          `mapstructure:"tls"`
	} `mapstructure:"controlled"`

	Control struct {
		Address          string           `mapstructure:"address"`
		Inverted         bool             `mapstructure:"inverted"`
		HandshakeTimeout duration.Duration `mapstructure:"handshake_timeout"`
		TLS              TLSKeys          `mapstructure:"tls"`
	} `mapstructure:"control"`

	Buffer struct {
		Size size.Size `mapstructure:"size" validate:"gte=0"`
	} `mapstructure:"buffer"`

	Filter struct {
		Class string `mapstructure:"class"`
	} `mapstructure:"filter"`

	Stats struct {
		LogEnabled         bool          `mapstructure:"log_enabled"`
		MemoryLogInterval  time.Duration `mapstructure:"memory_log_interval"`
		HTTPListen         string        `mapstructure:"http_listen"`
	} `mapstructure:"stats"`
}

// Default returns a Config with every documented default applied:
// unbounded admission, 60s handshakes, a 2048-byte fixed buffer.
func Default() Config {
	var c Config
	c.Direct.HandshakeTimeout = duration.ParseDuration(60 * time.Second)
	c.Controlled.HandshakeTimeout = duration.ParseDuration(60 * time.Second)
	c.Control.HandshakeTimeout = duration.ParseDuration(60 * time.Second)
	c.Buffer.Size = 2048
	return c
}

// Load reads configuration from path (any format viper supports: yaml,
// json, toml, ...) plus environment variables prefixed VALVE_, merging
// over Default().
func Load(path string) (Config, liberr.Error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("valve")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if e := v.ReadInConfig(); e != nil {
			return cfg, errs.RelayFatalConfig.Error(e)
		}
	}

	decodeHook := viper.DecodeHook(libmap.ComposeDecodeHookFunc(
		libmap.StringToTimeDurationHookFunc(),
		libmap.StringToSliceHookFunc(","),
		duration.ViperDecoderHook(),
		size.ViperDecoderHook(),
	))

	if e := v.Unmarshal(&cfg, decodeHook); e != nil {
		return cfg, errs.RelayFatalConfig.Error(e)
	}

	cfg.Direct.Addresses = splitAddresses(cfg.Direct.Addresses)
	cfg.Controlled.Addresses = splitAddresses(cfg.Controlled.Addresses)

	if e := cfg.Validate(); e != nil {
		return cfg, e
	}

	return cfg, nil
}

// splitAddresses re-splits each already-decoded entry on whitespace,
// so that a whitespace/comma-separated host:port list is honored even
// when viper's comma-only StringToSliceHookFunc left spaces inside one
// entry (e.g. an env var value with no commas).
func splitAddresses(in []string) []string {
	out := make([]string, 0, len(in))
	for _, entry := range in {
		out = append(out, strings.Fields(entry)...)
	}
	return out
}

// Validate enforces struct-tag constraints and the cross-field invariant
// that at least one of direct or controlled relaying must be configured.
func (c Config) Validate() liberr.Error {
	val := validator.New()

	if e := val.Struct(c); e != nil {
		if ive, ok := e.(*validator.InvalidValidationError); ok {
			return errs.RelayFatalConfig.Error(ive)
		}

		out := errs.RelayFatalConfig.Error(nil)
		for _, fe := range e.(validator.ValidationErrors) {
			out.Add(fmt.Errorf("config field %q failed constraint %q", fe.Namespace(), fe.ActualTag()))
		}
		return out
	}

	if len(c.Direct.Addresses) == 0 && len(c.Controlled.Addresses) == 0 {
		return errs.RelayFatalConfig.Error(fmt.Errorf("at least one of direct.addresses or controlled.addresses must be set"))
	}

	return nil
}

// DirectTLS, ControlledTLS, ControlTLS and ServerTLS translate the inline
// TLS material for each position into a tlsconfig.Position.
func (c Config) DirectTLS() *tlsconfig.Position     { return c.Direct.TLS.position() }
func (c Config) ControlledTLS() *tlsconfig.Position { return c.Controlled.TLS.position() }
func (c Config) ControlTLS() *tlsconfig.Position     { return c.Control.TLS.position() }
func (c Config) ServerTLS() *tlsconfig.Position     { return c.Server.TLS.position() }
