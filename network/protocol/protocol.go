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

// Package protocol defines the small closed set of network protocols a
// listen/dial endpoint can name ("tcp", "udp", "unix", ...), with the
// string/JSON/YAML/TOML/CBOR codecs and viper decode hook used to load it
// out of configuration, matching net.Dial's own protocol strings.
package protocol

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// NetworkProtocol is one of the protocol strings accepted by net.Dial /
// net.Listen.
type NetworkProtocol uint8

const (
	NetworkEmpty NetworkProtocol = iota
	NetworkTCP
	NetworkTCP4
	NetworkTCP6
	NetworkUDP
	NetworkUDP4
	NetworkUDP6
	NetworkIP
	NetworkIP4
	NetworkIP6
	NetworkUnix
	NetworkUnixGram
)

// String returns the net.Dial-compatible protocol name, or "" if p is not
// one of the defined constants.
func (p NetworkProtocol) String() string {
	switch p {
	case NetworkTCP:
		return "tcp"
	case NetworkTCP4:
		return "tcp4"
	case NetworkTCP6:
		return "tcp6"
	case NetworkUDP:
		return "udp"
	case NetworkUDP4:
		return "udp4"
	case NetworkUDP6:
		return "udp6"
	case NetworkIP:
		return "ip"
	case NetworkIP4:
		return "ip4"
	case NetworkIP6:
		return "ip6"
	case NetworkUnix:
		return "unix"
	case NetworkUnixGram:
		return "unixgram"
	default:
		return ""
	}
}

// Code is an alias of String kept for parity with the other enum
// packages (tlsversion, cipher, curves), all of which expose both
// names.
func (p NetworkProtocol) Code() string {
	return p.String()
}

// Parse maps a protocol name, case-insensitively, to its NetworkProtocol
// constant. An unrecognized name returns NetworkEmpty.
func Parse(s string) NetworkProtocol {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tcp":
		return NetworkTCP
	case "tcp4":
		return NetworkTCP4
	case "tcp6":
		return NetworkTCP6
	case "udp":
		return NetworkUDP
	case "udp4":
		return NetworkUDP4
	case "udp6":
		return NetworkUDP6
	case "ip":
		return NetworkIP
	case "ip4":
		return NetworkIP4
	case "ip6":
		return NetworkIP6
	case "unix":
		return NetworkUnix
	case "unixgram":
		return NetworkUnixGram
	default:
		return NetworkEmpty
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p NetworkProtocol) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *NetworkProtocol) UnmarshalText(data []byte) error {
	*p = Parse(string(data))
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p NetworkProtocol) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", p.String())), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *NetworkProtocol) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	*p = Parse(s)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (p NetworkProtocol) MarshalYAML() (interface{}, error) {
	return p.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *NetworkProtocol) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if e := unmarshal(&s); e != nil {
		return e
	}
	*p = Parse(s)
	return nil
}

// MarshalTOML implements the go-toml Marshaler contract.
func (p NetworkProtocol) MarshalTOML() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", p.String())), nil
}

// UnmarshalTOML implements the go-toml Unmarshaler contract, accepting
// either a string or a []byte.
func (p *NetworkProtocol) UnmarshalTOML(i interface{}) error {
	switch v := i.(type) {
	case string:
		*p = Parse(strings.Trim(v, `"'`))
	case []byte:
		*p = Parse(strings.Trim(string(v), `"'`))
	case nil:
		*p = NetworkEmpty
	default:
		return fmt.Errorf("protocol: cannot unmarshal TOML value of type %T", i)
	}
	return nil
}

// MarshalCBOR implements the fxamacker/cbor Marshaler contract.
func (p NetworkProtocol) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(p.String())
}

// UnmarshalCBOR implements the fxamacker/cbor Unmarshaler contract.
func (p *NetworkProtocol) UnmarshalCBOR(data []byte) error {
	var s string
	if e := cbor.Unmarshal(data, &s); e != nil {
		return e
	}
	*p = Parse(s)
	return nil
}

// ViperDecoderHook returns a mapstructure-compatible decode hook that
// converts string and integer config values into a NetworkProtocol,
// registered alongside the other enum hooks (size, duration,
// file/perm, tlsversion) on the Viper unmarshaler.
func ViperDecoderHook() func(reflect.Type, reflect.Type, interface{}) (interface{}, error) {
	target := reflect.TypeOf(NetworkProtocol(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != target {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return Parse(v), nil
		case NetworkProtocol:
			return v, nil
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return NetworkProtocol(reflect.ValueOf(v).Convert(reflect.TypeOf(uint8(0))).Uint()), nil
		default:
			return data, nil
		}
	}
}
