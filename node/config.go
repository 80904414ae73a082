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

package node

import (
	"github.com/go-playground/validator/v10"

	"github.com/nabbar/awh/engine"
	"github.com/nabbar/awh/httpproto/compress"
	"github.com/nabbar/awh/scheme"
	"github.com/nabbar/awh/transport"
)

// Protocol selects which application protocol a Node speaks once its
// Broker is live, per spec §4.2/§4.4-§4.6.
type Protocol uint8

const (
	// ProtocolHTTP1 is plain HTTP/1.1 request/response framing.
	ProtocolHTTP1 Protocol = iota
	// ProtocolHTTP2 negotiates/assumes an HTTP/2 session on the broker.
	ProtocolHTTP2
	// ProtocolWebSocket performs an HTTP/1.1 Upgrade handshake, then
	// switches the broker to WebSocket framing.
	ProtocolWebSocket
)

func (p Protocol) String() string {
	switch p {
	case ProtocolHTTP1:
		return "HTTP/1.1"
	case ProtocolHTTP2:
		return "HTTP/2"
	case ProtocolWebSocket:
		return "WebSocket"
	default:
		return "unknown protocol"
	}
}

// ClientConfig is the full policy for a ClientNode: the underlying
// client-scheme's dial/reconnect policy, the transport family/sonet pair
// it dials over, the application protocol to speak once connected, and
// optional TLS parameters for TLS/DTLS sonets.
type ClientConfig struct {
	Family   transport.Family  `mapstructure:"family" json:"family" yaml:"family"`
	Sonet    transport.Sonet   `mapstructure:"sonet" json:"sonet" yaml:"sonet"`
	Protocol Protocol          `mapstructure:"protocol" json:"protocol" yaml:"protocol"`
	Scheme   scheme.ClientConfig `mapstructure:"scheme" json:"scheme" yaml:"scheme" validate:"required"`
	Engine   engine.Config     `mapstructure:"engine" json:"engine" yaml:"engine"`

	// TLS supplies the certificate verification parameters for a TLS/DTLS
	// sonet; nil is valid for a plain TCP/UDP/SCTP sonet. The server name
	// verified against the peer certificate, and sent as the HTTP Host
	// header, is taken from Scheme.Address's host part.
	TLS engine.TLSParams `mapstructure:"-" json:"-" yaml:"-"`

	// WebSocketPath is the request-target sent on the Upgrade request
	// when Protocol is ProtocolWebSocket.
	WebSocketPath string `mapstructure:"websocket_path" json:"websocket_path" yaml:"websocket_path"`

	// MaxMessageSize bounds a reassembled WebSocket message (0 = unlimited).
	MaxMessageSize int64 `mapstructure:"max_message_size" json:"max_message_size" yaml:"max_message_size"`

	// Resolver performs hostname lookups ahead of each connect attempt
	// (spec §4.3/§9 Resolver collaborator); nil leaves resolution to
	// net.DialTimeout, exactly as scheme.NewClientScheme does by default.
	Resolver scheme.Resolver `mapstructure:"-" json:"-" yaml:"-"`

	// CompressPriority orders the Content-Encoding tokens advertised in
	// the Accept-Encoding header this node attaches to outgoing HTTP/1.1
	// requests (spec §4.4); nil uses DefaultCompressPriority.
	CompressPriority []compress.Coding `mapstructure:"-" json:"-" yaml:"-"`
}

func (c *ClientConfig) Validate() error {
	return validator.New().Struct(c)
}

// ServerConfig is the full policy for a ServerNode: the underlying
// server-scheme's listen/accept/total policy, the transport family/sonet
// pair it listens on, and the application protocol it serves.
type ServerConfig struct {
	Family   transport.Family  `mapstructure:"family" json:"family" yaml:"family"`
	Sonet    transport.Sonet   `mapstructure:"sonet" json:"sonet" yaml:"sonet"`
	Protocol Protocol          `mapstructure:"protocol" json:"protocol" yaml:"protocol"`
	Scheme   scheme.ServerConfig `mapstructure:"scheme" json:"scheme" yaml:"scheme" validate:"required"`
	Engine   engine.Config     `mapstructure:"engine" json:"engine" yaml:"engine"`

	// TLS supplies the server-side certificate parameters for a TLS/DTLS
	// sonet; nil is valid for a plain TCP/UDP/SCTP sonet.
	TLS engine.TLSParams `mapstructure:"-" json:"-" yaml:"-"`

	MaxMessageSize int64 `mapstructure:"max_message_size" json:"max_message_size" yaml:"max_message_size"`

	// CompressPriority orders the Content-Encoding tokens this node
	// negotiates against a request's Accept-Encoding header when a
	// handler writes its response through WriteHTTP1Response (spec
	// §4.4); nil uses DefaultCompressPriority.
	CompressPriority []compress.Coding `mapstructure:"-" json:"-" yaml:"-"`

	// Auth enforces Basic or Digest authentication (spec §4.4) on every
	// HTTP/1.1 request before OnHTTP1Request fires; nil serves requests
	// unauthenticated.
	Auth *ServerAuth `mapstructure:"-" json:"-" yaml:"-"`
}

func (c *ServerConfig) Validate() error {
	return validator.New().Struct(c)
}
