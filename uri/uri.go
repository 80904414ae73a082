/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
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

// Package uri parses and validates the connection URLs scheme/engine/node
// accept: scheme://host:port/path?query, plus the unix:// and unixgram://
// forms transport uses for local sockets.
package uri

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// URI is a parsed, round-trip-safe connection endpoint.
type URI struct {
	Scheme   string `validate:"required"`
	Host     string
	Port     uint16
	Path     string
	RawQuery string
	User     string
	Pass     string
}

// schemesWithoutHost are URI schemes addressed by filesystem path, not
// host:port - unix domain sockets have no network host to validate.
var schemesWithoutHost = map[string]bool{
	"unix":     true,
	"unixgram": true,
}

// Parse parses raw into a URI, validating it has a scheme and, unless it
// is a unix/unixgram socket path, a host.
func Parse(raw string) (URI, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return URI{}, ErrorParse.Error()
	}

	out := URI{
		Scheme:   strings.ToLower(u.Scheme),
		Host:     u.Hostname(),
		Path:     u.Path,
		RawQuery: u.RawQuery,
	}

	if out.Scheme == "" {
		return URI{}, ErrorMissingScheme.Error()
	}

	if schemesWithoutHost[out.Scheme] {
		if out.Path == "" && out.Host != "" {
			out.Path = out.Host
			out.Host = ""
		}
	} else if out.Host == "" {
		return URI{}, ErrorMissingHost.Error()
	}

	if p := u.Port(); p != "" {
		n, e := strconv.ParseUint(p, 10, 16)
		if e != nil {
			return URI{}, ErrorParse.Error()
		}
		out.Port = uint16(n)
	}

	if u.User != nil {
		out.User = u.User.Username()
		out.Pass, _ = u.User.Password()
	}

	if err = validate.Struct(out); err != nil {
		return URI{}, ErrorValidation.Error()
	}

	return out, nil
}

// String renders u back to its wire form.
func (u URI) String() string {
	var sb strings.Builder
	sb.WriteString(u.Scheme)
	sb.WriteString("://")

	if u.User != "" {
		sb.WriteString(u.User)
		if u.Pass != "" {
			sb.WriteByte(':')
			sb.WriteString(u.Pass)
		}
		sb.WriteByte('@')
	}

	if schemesWithoutHost[u.Scheme] && u.Host == "" {
		sb.WriteString(u.Path)
	} else {
		sb.WriteString(u.Host)
		if u.Port != 0 {
			sb.WriteByte(':')
			sb.WriteString(strconv.FormatUint(uint64(u.Port), 10))
		}
		sb.WriteString(u.Path)
	}

	if u.RawQuery != "" {
		sb.WriteByte('?')
		sb.WriteString(u.RawQuery)
	}

	return sb.String()
}

// Address returns host:port, suitable for net.Dial.
func (u URI) Address() string {
	if schemesWithoutHost[u.Scheme] {
		return u.Path
	}
	return u.Host + ":" + strconv.FormatUint(uint64(u.Port), 10)
}
