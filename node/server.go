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
	"bytes"
	"net"
	"strings"
	"sync"

	"github.com/nabbar/awh/httpproto"
	"github.com/nabbar/awh/reactor"
	"github.com/nabbar/awh/scheme"
	"github.com/nabbar/awh/websocket"

	"github.com/nabbar/awh/http2"
)

// ServerCallbacks is the user hook bundle a ServerNode drives per accepted
// Broker; exactly one of the protocol-specific fields fires per connection,
// matching cfg.Protocol.
type ServerCallbacks struct {
	// OnAccept gates an incoming connection before it is adopted; nil
	// accepts everything.
	OnAccept func(remote net.Addr) bool

	// OnState/OnClose mirror scheme.Callbacks and fire regardless of
	// protocol, per accepted Broker.
	OnState func(b *scheme.Broker, state scheme.ConnState)
	OnClose func(b *scheme.Broker, err error)

	// OnHTTP1Request fires once per fully-parsed HTTP/1.1 request whose
	// authentication (if any) already checked out, with body inflated
	// per its Content-Encoding header (spec §4.4); the handler writes
	// its response over b directly, e.g. via ServerNode.WriteHTTP1Response.
	OnHTTP1Request func(b *scheme.Broker, req *httpproto.Message, body []byte) error

	// OnHTTP2Session fires once per accepted Broker, right after the
	// HTTP/2 session has sent its preface and local SETTINGS.
	OnHTTP2Session func(b *scheme.Broker, s *http2.Session)

	// OnWebSocketReady fires once the Upgrade handshake completes,
	// handing the caller the Conn to send/receive messages on.
	OnWebSocketReady func(b *scheme.Broker, c *websocket.Conn)
}

// serverConn holds the per-accepted-Broker protocol state a ServerNode
// tracks, keyed by Broker.Id since a ServerScheme fans one Callbacks set
// out over every concurrently-open accepted connection.
type serverConn struct {
	h1   *httpproto.Message
	body bytes.Buffer
	h2   *http2.Session
	ws   *websocket.Conn
}

// ServerNode ties a scheme.ServerScheme to one application protocol served
// identically over every accepted Broker, per spec §4.3/§4.2's server-node
// vocabulary.
type ServerNode struct {
	cfg ServerConfig
	cb  ServerCallbacks

	ss *scheme.ServerScheme

	mu    sync.Mutex
	conns map[uint64]*serverConn
}

// NewServerNode validates cfg and builds a ServerNode bound to base's
// reactor. Listen must be called afterward to actually bind and accept.
func NewServerNode(base reactor.Base, id uint16, cfg ServerConfig, cb ServerCallbacks) (*ServerNode, error) {
	if base == nil {
		return nil, ErrorParamEmpty.Error()
	}
	if err := cfg.Validate(); err != nil {
		return nil, ErrorParamInvalid.Error(err)
	}

	n := &ServerNode{cfg: cfg, cb: cb, conns: make(map[uint64]*serverConn)}

	ss, err := scheme.NewServerScheme(base, id, cfg.Family, cfg.Sonet, cfg.Scheme, cfg.Engine, cfg.TLS, scheme.Callbacks{
		Accept: n.cb.OnAccept,
		OnState: func(b *scheme.Broker, state scheme.ConnState) {
			if state == scheme.ConnectionNew {
				n.arm(b)
			}
			if n.cb.OnState != nil {
				n.cb.OnState(b, state)
			}
			if state == scheme.ConnectionClose {
				n.mu.Lock()
				delete(n.conns, b.Id)
				n.mu.Unlock()
			}
		},
		OnRead: n.onRead,
		OnClose: func(b *scheme.Broker, cerr error) {
			n.mu.Lock()
			delete(n.conns, b.Id)
			n.mu.Unlock()
			if n.cb.OnClose != nil {
				n.cb.OnClose(b, cerr)
			}
		},
	})
	if err != nil {
		return nil, err
	}
	n.ss = ss
	return n, nil
}

// Listen binds the configured address and starts accepting connections.
func (n *ServerNode) Listen() error {
	return n.ss.Listen()
}

// arm installs the fresh per-connection protocol state for a just-accepted
// Broker, matching cfg.Protocol.
func (n *ServerNode) arm(b *scheme.Broker) {
	sc := &serverConn{}

	switch n.cfg.Protocol {
	case ProtocolHTTP1:
		sc.h1 = &httpproto.Message{}
		sc.h1.OnChunk = func(p []byte) error {
			_, err := sc.body.Write(p)
			return err
		}

	case ProtocolHTTP2:
		sess := http2.NewSession(false, queueWrite(b))
		sess.OnSettings = func(http2.Settings) {}
		sc.h2 = sess

	case ProtocolWebSocket:
		sc.h1 = &httpproto.Message{}
	}

	n.mu.Lock()
	n.conns[b.Id] = sc
	n.mu.Unlock()

	if n.cfg.Protocol == ProtocolHTTP2 {
		if err := sc.h2.Start(); err == nil && n.cb.OnHTTP2Session != nil {
			n.cb.OnHTTP2Session(b, sc.h2)
		}
	}
}

func (n *ServerNode) onRead(b *scheme.Broker, data []byte) error {
	n.mu.Lock()
	sc := n.conns[b.Id]
	n.mu.Unlock()
	if sc == nil {
		return nil
	}

	switch n.cfg.Protocol {
	case ProtocolHTTP1:
		return n.feedHTTP1(b, sc, data)

	case ProtocolHTTP2:
		if sc.h2 == nil {
			return nil
		}
		return sc.h2.Feed(data)

	case ProtocolWebSocket:
		if sc.ws != nil {
			return sc.ws.Feed(data)
		}
		return n.feedWebSocketUpgrade(b, sc, data)
	}
	return nil
}

func (n *ServerNode) feedHTTP1(b *scheme.Broker, sc *serverConn, data []byte) error {
	if sc.h1 == nil {
		return nil
	}
	if err := sc.h1.Feed(data); err != nil {
		return err
	}
	if sc.h1.State == httpproto.StateGood {
		raw := append([]byte(nil), sc.body.Bytes()...)
		sc.body.Reset()

		if !n.cfg.Auth.verify(b, sc.h1) {
			sc.h1.Reset()
			return nil
		}

		body, err := decodeBody(sc.h1, raw)
		if err != nil {
			return err
		}

		if n.cb.OnHTTP1Request != nil {
			if err := n.cb.OnHTTP1Request(b, sc.h1, body); err != nil {
				return err
			}
		}
		sc.h1.Reset()
	}
	return nil
}

// WriteHTTP1Response negotiates response compression from req's
// Accept-Encoding header against n.cfg.CompressPriority, sets
// Content-Encoding/Content-Length on resp accordingly, and queues the
// whole response (start line, headers, compressed body) onto b.
func (n *ServerNode) WriteHTTP1Response(b *scheme.Broker, req *httpproto.Message, resp *httpproto.Message, body []byte) error {
	wire, err := writeHTTP1Message(resp, body, req.Header.Get("Accept-Encoding"), n.cfg.CompressPriority)
	if err != nil {
		return err
	}
	b.Queue(wire)
	return nil
}

// feedWebSocketUpgrade parses the pending Upgrade request; once it fully
// arrives, replies with the 101 handshake and switches the Broker to
// WebSocket framing, per RFC 6455 §4.2.
func (n *ServerNode) feedWebSocketUpgrade(b *scheme.Broker, sc *serverConn, data []byte) error {
	if sc.h1 == nil {
		return nil
	}
	if err := sc.h1.Feed(data); err != nil {
		return err
	}
	if sc.h1.State != httpproto.StateGood {
		return nil
	}

	if !isWebSocketUpgrade(sc.h1) {
		return ErrorProtocolMismatch.Error()
	}

	accept, err := websocket.Accept(sc.h1.Header.Get("Sec-WebSocket-Key"))
	if err != nil {
		return ErrorHandshakeFailed.Error(err)
	}

	resp := &httpproto.Message{
		IsRequest:  false,
		Proto:      "HTTP/1.1",
		StatusCode: 101,
		Reason:     "Switching Protocols",
	}
	resp.Header.Add("Upgrade", "websocket")
	resp.Header.Add("Connection", "Upgrade")
	resp.Header.Add("Sec-WebSocket-Accept", accept)
	b.Queue(resp.WriteStartAndHeaders())

	conn := websocket.NewConn(false, queueWrite(b), n.cfg.MaxMessageSize)
	sc.ws = conn
	if n.cb.OnWebSocketReady != nil {
		n.cb.OnWebSocketReady(b, conn)
	}
	return nil
}

// isWebSocketUpgrade reports whether req is a well-formed WebSocket Upgrade
// request per RFC 6455 §4.1.
func isWebSocketUpgrade(req *httpproto.Message) bool {
	if !req.IsRequest || !strings.EqualFold(req.Method, "GET") {
		return false
	}
	if !strings.EqualFold(req.Header.Get("Upgrade"), "websocket") {
		return false
	}
	for _, tok := range strings.Split(req.Header.Get("Connection"), ",") {
		if strings.EqualFold(strings.TrimSpace(tok), "Upgrade") {
			return req.Header.Get("Sec-WebSocket-Key") != ""
		}
	}
	return false
}

// Brokers returns a snapshot of every currently-accepted Broker.
func (n *ServerNode) Brokers() []*scheme.Broker {
	return n.ss.Brokers()
}

// Close stops accepting and tears down every currently-open Broker.
func (n *ServerNode) Close() error {
	return n.ss.Close()
}
