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
	"fmt"
	"net"
	"sync"

	"github.com/nabbar/awh/httpproto"
	"github.com/nabbar/awh/reactor"
	"github.com/nabbar/awh/scheme"
	"github.com/nabbar/awh/websocket"

	"github.com/nabbar/awh/http2"
)

// ClientCallbacks is the user hook bundle a ClientNode drives once its
// Broker is live; exactly one of the protocol-specific fields fires,
// matching cfg.Protocol.
type ClientCallbacks struct {
	// OnState/OnClose mirror scheme.Callbacks and fire regardless of
	// protocol.
	OnState func(state scheme.ConnState)
	OnClose func(err error)

	// OnHTTP1Response fires once per fully-parsed HTTP/1.1 response, with
	// body already inflated per its Content-Encoding header (spec §4.4).
	OnHTTP1Response func(resp *httpproto.Message, body []byte) error

	// OnHTTP2Session fires once, right after the HTTP/2 session has sent
	// its preface and local SETTINGS, handing the caller the Session to
	// drive streams on directly.
	OnHTTP2Session func(s *http2.Session)

	// OnWebSocketReady fires once the Upgrade handshake completes,
	// handing the caller the Conn to send/receive messages on.
	OnWebSocketReady func(c *websocket.Conn)
}

// ClientNode ties a scheme.ClientScheme to one application protocol,
// per spec §4.2's client-node vocabulary.
type ClientNode struct {
	cfg ClientConfig
	cb  ClientCallbacks

	mu     sync.Mutex
	sc     *scheme.ClientScheme
	broker *scheme.Broker

	h1   *httpproto.Message
	body bytes.Buffer
	h2   *http2.Session
	ws   *websocket.Conn
	key  string
}

// NewClientNode validates cfg and builds a ClientNode bound to base's
// reactor. Connect must be called afterward to actually dial.
func NewClientNode(base reactor.Base, id uint16, cfg ClientConfig, cb ClientCallbacks) (*ClientNode, error) {
	if base == nil {
		return nil, ErrorParamEmpty.Error()
	}
	if err := cfg.Validate(); err != nil {
		return nil, ErrorParamInvalid.Error(err)
	}

	n := &ClientNode{cfg: cfg, cb: cb}

	resolver := cfg.Resolver
	if resolver == nil {
		resolver = scheme.DefaultResolver
	}

	sc, err := scheme.NewClientScheme(base, id, cfg.Family, cfg.Sonet, cfg.Scheme, cfg.Engine, cfg.TLS, resolver, scheme.Callbacks{
		OnState: func(b *scheme.Broker, state scheme.ConnState) {
			if n.cb.OnState != nil {
				n.cb.OnState(state)
			}
		},
		OnRead: n.onRead,
		OnClose: func(b *scheme.Broker, cerr error) {
			if n.cb.OnClose != nil {
				n.cb.OnClose(cerr)
			}
		},
	})
	if err != nil {
		return nil, err
	}
	n.sc = sc
	return n, nil
}

// Connect dials the peer (per scheme.ClientScheme.Connect's reconnection
// policy) and arms the protocol this node was configured for.
func (n *ClientNode) Connect() error {
	b, err := n.sc.Connect()
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.broker = b
	n.mu.Unlock()

	switch n.cfg.Protocol {
	case ProtocolHTTP1:
		n.armHTTP1()
	case ProtocolHTTP2:
		return n.armHTTP2()
	case ProtocolWebSocket:
		return n.startWebSocketHandshake()
	default:
		return ErrorUnsupportedProtocol.Error()
	}
	return nil
}

func (n *ClientNode) armHTTP1() {
	n.mu.Lock()
	n.body.Reset()
	n.h1 = &httpproto.Message{
		OnChunk: n.collectBody,
	}
	n.mu.Unlock()
}

// collectBody accumulates a response's body chunks as they arrive; the
// full buffer is inflated and handed to OnHTTP1Response once the message
// reaches StateGood.
func (n *ClientNode) collectBody(p []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, err := n.body.Write(p)
	return err
}

// queueWrite adapts Broker.Queue (void) to the error-returning WriteFunc
// shape both http2.Session and websocket.Conn expect.
func queueWrite(b *scheme.Broker) func(p []byte) error {
	return func(p []byte) error {
		b.Queue(p)
		return nil
	}
}

func (n *ClientNode) armHTTP2() error {
	n.mu.Lock()
	b := n.broker
	sess := http2.NewSession(true, queueWrite(b))
	sess.OnSettings = func(http2.Settings) {}
	n.h2 = sess
	n.mu.Unlock()

	if err := sess.Start(); err != nil {
		return ErrorHandshakeFailed.Error(err)
	}
	if n.cb.OnHTTP2Session != nil {
		n.cb.OnHTTP2Session(sess)
	}
	return nil
}

func (n *ClientNode) startWebSocketHandshake() error {
	key, err := websocket.NewClientKey()
	if err != nil {
		return ErrorHandshakeFailed.Error(err)
	}

	n.mu.Lock()
	n.key = key
	b := n.broker
	host := n.hostHeader()
	path := n.cfg.WebSocketPath
	if path == "" {
		path = "/"
	}
	n.h1 = &httpproto.Message{
		OnHandshake: n.onWebSocketHandshake,
	}
	n.mu.Unlock()

	req := fmt.Sprintf("GET %s HTTP/1.1\r\nHost: %s\r\nUpgrade: websocket\r\nConnection: Upgrade\r\nSec-WebSocket-Key: %s\r\nSec-WebSocket-Version: 13\r\n\r\n", path, host, key)
	b.Queue([]byte(req))
	return nil
}

func (n *ClientNode) hostHeader() string {
	host, _, err := net.SplitHostPort(n.cfg.Scheme.Address)
	if err != nil {
		return n.cfg.Scheme.Address
	}
	return host
}

func (n *ClientNode) onWebSocketHandshake(rest []byte) error {
	n.mu.Lock()
	accept := n.h1.Header.Get("Sec-WebSocket-Accept")
	key := n.key
	b := n.broker
	n.mu.Unlock()

	if err := websocket.VerifyAccept(key, accept); err != nil {
		return ErrorProtocolMismatch.Error(err)
	}

	conn := websocket.NewConn(true, queueWrite(b), n.cfg.MaxMessageSize)
	n.mu.Lock()
	n.ws = conn
	n.mu.Unlock()

	if n.cb.OnWebSocketReady != nil {
		n.cb.OnWebSocketReady(conn)
	}
	if len(rest) > 0 {
		return conn.Feed(rest)
	}
	return nil
}

func (n *ClientNode) onRead(b *scheme.Broker, data []byte) error {
	n.mu.Lock()
	proto := n.cfg.Protocol
	h1, h2, ws := n.h1, n.h2, n.ws
	n.mu.Unlock()

	switch proto {
	case ProtocolHTTP1:
		if h1 == nil {
			return nil
		}
		if err := h1.Feed(data); err != nil {
			return err
		}
		if h1.State == httpproto.StateGood {
			n.mu.Lock()
			raw := append([]byte(nil), n.body.Bytes()...)
			n.body.Reset()
			n.mu.Unlock()

			body, err := decodeBody(h1, raw)
			if err != nil {
				return err
			}
			if n.cb.OnHTTP1Response != nil {
				if err := n.cb.OnHTTP1Response(h1, body); err != nil {
					return err
				}
			}
			h1.Reset()
		}
		return nil

	case ProtocolHTTP2:
		if h2 == nil {
			return nil
		}
		return h2.Feed(data)

	case ProtocolWebSocket:
		if ws != nil {
			return ws.Feed(data)
		}
		if h1 == nil {
			return nil
		}
		return h1.Feed(data)
	}
	return nil
}

// SendHTTP1Request serialises req's start line and headers and writes
// body after them, over the live broker.
func (n *ClientNode) SendHTTP1Request(req *httpproto.Message, body []byte) error {
	n.mu.Lock()
	b := n.broker
	n.mu.Unlock()
	if b == nil {
		return ErrorNotConnected.Error()
	}
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", acceptEncodingHeader(n.cfg.CompressPriority))
	}
	b.Queue(req.WriteStartAndHeaders())
	if len(body) > 0 {
		b.Queue(body)
	}
	return nil
}

// Broker returns the node's current live Broker, or nil if none.
func (n *ClientNode) Broker() *scheme.Broker {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.broker
}

// Close tears down the node's scheme, and with it its live Broker.
func (n *ClientNode) Close() error {
	return n.sc.Close()
}
