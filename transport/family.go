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

// Package transport enumerates the socket address families and wire
// protocols ("sonet"s) a Broker can bind to. It is the leaf dependency of
// engine and scheme.
package transport

// Family is the socket address family of a Broker.
type Family uint8

const (
	FamilyV4 Family = iota
	FamilyV6
	FamilyUnix
)

func (f Family) String() string {
	switch f {
	case FamilyV4:
		return "ipv4"
	case FamilyV6:
		return "ipv6"
	case FamilyUnix:
		return "unix"
	default:
		return "unknown family"
	}
}

// Sonet is the wire-level socket type of a Broker.
//
// SCTP is accepted as a listed sonet but is treated like TCP (single ordered
// stream) end to end: the reference implementation this spec was derived
// from does the same and does not define a mapping from SCTP's native
// multi-stream model onto HTTP/2 streams, so neither does this port.
type Sonet uint8

const (
	SonetTCP Sonet = iota
	SonetUDP
	SonetTLS
	SonetDTLS
	SonetSCTP
)

func (s Sonet) String() string {
	switch s {
	case SonetTCP:
		return "tcp"
	case SonetUDP:
		return "udp"
	case SonetTLS:
		return "tls"
	case SonetDTLS:
		return "dtls"
	case SonetSCTP:
		return "sctp"
	default:
		return "unknown sonet"
	}
}

// IsStream reports whether the sonet is a connection-oriented byte stream
// (as opposed to a datagram socket).
func (s Sonet) IsStream() bool {
	switch s {
	case SonetTCP, SonetTLS, SonetSCTP:
		return true
	default:
		return false
	}
}

// IsSecure reports whether the sonet terminates a TLS/DTLS session.
func (s Sonet) IsSecure() bool {
	return s == SonetTLS || s == SonetDTLS
}

// Network returns the Go "network" string net.Dial/net.Listen expect for
// this (family, sonet) pair. TLS/DTLS resolve to the underlying transport's
// network name; the engine layer is responsible for layering the security
// handshake on top.
func (s Sonet) Network(f Family) string {
	switch s {
	case SonetTCP, SonetTLS, SonetSCTP:
		switch f {
		case FamilyV4:
			return "tcp4"
		case FamilyV6:
			return "tcp6"
		case FamilyUnix:
			return "unix"
		}
	case SonetUDP, SonetDTLS:
		switch f {
		case FamilyV4:
			return "udp4"
		case FamilyV6:
			return "udp6"
		case FamilyUnix:
			return "unixgram"
		}
	}
	return "tcp"
}
