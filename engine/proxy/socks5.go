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

package proxy

import (
	"io"
	"net"
	"strconv"
)

const (
	socks5Version = 0x05

	methodNoAuth       = 0x00
	methodUserPass     = 0x02
	methodNoAcceptable = 0xFF

	cmdConnect = 0x01

	atypIPv4   = 0x01
	atypDomain = 0x03
	atypIPv6   = 0x04

	replySucceeded = 0x00

	userPassVersion = 0x01
	userPassSuccess = 0x00
)

// Socks5Auth carries optional RFC 1929 username/password credentials.
type Socks5Auth struct {
	Username string
	Password string
}

// DialSocks5 runs the full METHOD -> AUTH (optional) -> REQUEST -> TUNNEL
// client state machine described in spec §4.2 over an already-connected
// rw (the engine's raw, not-yet-TLS socket to the proxy). On success the
// proxy has opened a TCP tunnel to host:port and rw carries the target's
// bytes from this point on.
func DialSocks5(rw io.ReadWriter, host string, port uint16, auth *Socks5Auth) error {
	if rw == nil || host == "" {
		return ErrorParamInvalid.Error()
	}

	if err := socks5Method(rw, auth); err != nil {
		return err
	}
	if auth != nil {
		if err := socks5Auth(rw, auth); err != nil {
			return err
		}
	}
	return socks5Request(rw, host, port)
}

func socks5Method(rw io.ReadWriter, auth *Socks5Auth) error {
	methods := []byte{methodNoAuth}
	if auth != nil {
		methods = []byte{methodUserPass}
	}

	req := make([]byte, 0, 2+len(methods))
	req = append(req, socks5Version, byte(len(methods)))
	req = append(req, methods...)
	if _, err := rw.Write(req); err != nil {
		return err
	}

	reply := make([]byte, 2)
	if _, err := io.ReadFull(rw, reply); err != nil {
		return err
	}
	if reply[0] != socks5Version {
		return ErrorMalformedReply.Error()
	}
	if reply[1] == methodNoAcceptable {
		return ErrorNoAcceptableMethod.Error()
	}
	if auth != nil && reply[1] != methodUserPass {
		return ErrorNoAcceptableMethod.Error()
	}
	return nil
}

func socks5Auth(rw io.ReadWriter, auth *Socks5Auth) error {
	if len(auth.Username) > 255 || len(auth.Password) > 255 {
		return ErrorParamInvalid.Error()
	}

	req := make([]byte, 0, 3+len(auth.Username)+len(auth.Password))
	req = append(req, userPassVersion, byte(len(auth.Username)))
	req = append(req, auth.Username...)
	req = append(req, byte(len(auth.Password)))
	req = append(req, auth.Password...)
	if _, err := rw.Write(req); err != nil {
		return err
	}

	reply := make([]byte, 2)
	if _, err := io.ReadFull(rw, reply); err != nil {
		return err
	}
	if reply[1] != userPassSuccess {
		return ErrorAuthRejected.Error()
	}
	return nil
}

func socks5Request(rw io.ReadWriter, host string, port uint16) error {
	req := []byte{socks5Version, cmdConnect, 0x00}

	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			req = append(req, atypIPv4)
			req = append(req, v4...)
		} else {
			req = append(req, atypIPv6)
			req = append(req, ip.To16()...)
		}
	} else {
		if len(host) > 255 {
			return ErrorParamInvalid.Error()
		}
		req = append(req, atypDomain, byte(len(host)))
		req = append(req, host...)
	}
	req = append(req, byte(port>>8), byte(port))

	if _, err := rw.Write(req); err != nil {
		return err
	}

	head := make([]byte, 4)
	if _, err := io.ReadFull(rw, head); err != nil {
		return err
	}
	if head[0] != socks5Version {
		return ErrorMalformedReply.Error()
	}
	if head[1] != replySucceeded {
		return ErrorRequestRejected.Error()
	}

	switch head[3] {
	case atypIPv4:
		if _, err := io.ReadFull(rw, make([]byte, 4+2)); err != nil {
			return err
		}
	case atypIPv6:
		if _, err := io.ReadFull(rw, make([]byte, 16+2)); err != nil {
			return err
		}
	case atypDomain:
		l := make([]byte, 1)
		if _, err := io.ReadFull(rw, l); err != nil {
			return err
		}
		if _, err := io.ReadFull(rw, make([]byte, int(l[0])+2)); err != nil {
			return err
		}
	default:
		return ErrorMalformedReply.Error()
	}

	return nil
}

// SplitHostPort is a tiny helper so callers dialing with a "host:port" URL
// authority do not each need to reach for strconv themselves.
func SplitHostPort(hostport string) (string, uint16, error) {
	h, p, err := net.SplitHostPort(hostport)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.ParseUint(p, 10, 16)
	if err != nil {
		return "", 0, ErrorParamInvalid.Error()
	}
	return h, uint16(port), nil
}
