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
	"crypto/tls"
	"net"
	"sync"
	"time"
)

// Direction selects which half of the connection a timeout or would-block
// result applies to.
type Direction uint8

const (
	DirectionRead Direction = iota
	DirectionWrite
)

// nonblockPoll is the deadline engine uses to emulate a non-blocking probe
// on top of net.Conn's blocking Read/Write: long enough that a ready socket
// always completes within it, short enough that an empty socket returns
// promptly so the reactor can re-arm the direction and retry.
const nonblockPoll = 1 * time.Millisecond

// Engine hides the difference between a plain and a TLS socket behind a
// single read/write surface that can run in blocking or non-blocking mode
// (spec §4.2 "Engine (transport)").
type Engine interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)

	Block()
	Noblock() error
	IsBlock() bool

	Timeout(d time.Duration, dir Direction) error

	// UpgradeTLS drives (or completes, across WouldBlock retries) a TLS
	// handshake on top of the engine's current connection, validating the
	// peer certificate per spec §4.2's SAN/CN/wildcard rules when isClient.
	UpgradeTLS(cfg TLSParams, isClient bool) error

	ConnectionState() *tls.ConnectionState
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
	Raw() net.Conn

	Close() error
}

// TLSParams is the minimal surface engine needs from certificates.TLSConfig
// plus the server name to verify against; kept as an interface so engine
// does not import certificates' concrete type directly into its hot path.
type TLSParams interface {
	TLS(serverName string) *tls.Config
}

type engine struct {
	mu      sync.Mutex
	conn    net.Conn
	block   bool
	tlsConn *tls.Conn
	state   *tls.ConnectionState
}

// New binds an already-connected net.Conn (dialed or accepted by the scheme
// layer) to a plain Engine. Call UpgradeTLS afterward to layer TLS/DTLS on
// top, whether immediately (direct TLS listener) or after a proxy tunnel.
func New(conn net.Conn) Engine {
	return &engine{conn: conn, block: true}
}

func (e *engine) Raw() net.Conn {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tlsConn != nil {
		return e.tlsConn
	}
	return e.conn
}

func (e *engine) activeConn() net.Conn {
	if e.tlsConn != nil {
		return e.tlsConn
	}
	return e.conn
}

func (e *engine) Block() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.block = true
	_ = e.activeConn().SetDeadline(time.Time{})
}

func (e *engine) Noblock() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn == nil {
		return ErrorClosed.Error()
	}
	e.block = false
	return nil
}

func (e *engine) IsBlock() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.block
}

func (e *engine) Timeout(d time.Duration, dir Direction) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.activeConn()
	if c == nil {
		return ErrorClosed.Error()
	}

	switch dir {
	case DirectionRead:
		return c.SetReadDeadline(time.Now().Add(d))
	case DirectionWrite:
		return c.SetWriteDeadline(time.Now().Add(d))
	default:
		return ErrorParamInvalid.Error()
	}
}

func (e *engine) Read(p []byte) (int, error) {
	e.mu.Lock()
	c := e.activeConn()
	block := e.block
	e.mu.Unlock()

	if c == nil {
		return 0, ErrorClosed.Error()
	}

	if !block {
		_ = c.SetReadDeadline(time.Now().Add(nonblockPoll))
		defer func() { _ = c.SetReadDeadline(time.Time{}) }()
	}

	n, err := c.Read(p)
	if err != nil && isTimeout(err) && !block {
		return n, ErrorWouldBlock.Error(err)
	}
	return n, err
}

func (e *engine) Write(p []byte) (int, error) {
	e.mu.Lock()
	c := e.activeConn()
	block := e.block
	e.mu.Unlock()

	if c == nil {
		return 0, ErrorClosed.Error()
	}

	if !block {
		_ = c.SetWriteDeadline(time.Now().Add(nonblockPoll))
		defer func() { _ = c.SetWriteDeadline(time.Time{}) }()
	}

	n, err := c.Write(p)
	if err != nil && isTimeout(err) && !block {
		return n, ErrorWouldBlock.Error(err)
	}
	return n, err
}

func (e *engine) ConnectionState() *tls.ConnectionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *engine) LocalAddr() net.Addr {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c := e.activeConn(); c != nil {
		return c.LocalAddr()
	}
	return nil
}

func (e *engine) RemoteAddr() net.Addr {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c := e.activeConn(); c != nil {
		return c.RemoteAddr()
	}
	return nil
}

func (e *engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn == nil {
		return nil
	}
	c := e.activeConn()
	e.conn = nil
	e.tlsConn = nil
	return c.Close()
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
