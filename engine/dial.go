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

package engine

import (
	"net"
	"strconv"

	"github.com/nabbar/awh/engine/proxy"
)

// WrapClient binds conn (already dialed to either the real target or a
// proxy's address per cfg.Proxy.Kind) to an Engine, runs the SOCKS5 or
// HTTP-CONNECT handshake if configured so plain bytes now refer to
// host:port, then upgrades to TLS on top of the (possibly tunnelled)
// connection when cfg.TLS is set. This is the client half of spec §4.2's
// "wrap(target_ctx, source_ctx, url)" contract.
func WrapClient(conn net.Conn, cfg *Config, tlsParams TLSParams, host string, port uint16) (Engine, error) {
	if conn == nil || cfg == nil {
		return nil, ErrorParamEmpty.Error()
	}

	switch cfg.Proxy.Kind {
	case ProxySocks5:
		var auth *proxy.Socks5Auth
		if cfg.Proxy.Username != "" {
			auth = &proxy.Socks5Auth{Username: cfg.Proxy.Username, Password: cfg.Proxy.Password}
		}
		if err := proxy.DialSocks5(conn, host, port, auth); err != nil {
			return nil, ErrorProxyHandshake.Error(err)
		}
	case ProxyConnect:
		hostport := net.JoinHostPort(host, strconv.Itoa(int(port)))
		if err := proxy.DialConnect(conn, hostport, cfg.Proxy.Username, cfg.Proxy.Password); err != nil {
			return nil, ErrorProxyHandshake.Error(err)
		}
	}

	e := New(conn)

	if cfg.TLS {
		if err := e.UpgradeTLS(tlsParams, true); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// WrapServer binds conn (already accepted by the scheme layer) to an
// Engine and, when cfg.TLS is set, immediately drives the server half of
// the TLS handshake — spec §4.2's "wrap(target_ctx, socket, url)" contract.
func WrapServer(conn net.Conn, cfg *Config, tlsParams TLSParams) (Engine, error) {
	if conn == nil || cfg == nil {
		return nil, ErrorParamEmpty.Error()
	}

	e := New(conn)
	if cfg.TLS {
		if err := e.UpgradeTLS(tlsParams, false); err != nil {
			return nil, err
		}
	}
	return e, nil
}
