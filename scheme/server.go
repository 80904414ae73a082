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

package scheme

import (
	"context"
	"net"
	"sync"

	"github.com/nabbar/awh/engine"
	"github.com/nabbar/awh/reactor"
	"github.com/nabbar/awh/semaphore/sem"
	"github.com/nabbar/awh/transport"
)

// ServerScheme owns a listener and the set of Brokers it has accepted,
// bounded by cfg.Total concurrently-open connections (spec §4.3 "Server
// accept").
type ServerScheme struct {
	id   uint16
	base reactor.Base

	fam   transport.Family
	sonet transport.Sonet

	cfg ServerConfig
	eng engine.Config
	tls engine.TLSParams

	cb Callbacks

	sem sem.Sem
	ln  net.Listener

	mu      sync.Mutex
	brokers map[uint64]*Broker
	lnFD    int
	lnEv    *reactor.Event
	closed  bool
}

// NewServerScheme builds a ServerScheme bound to base's reactor but does
// not yet listen; call Listen to bind and start accepting.
func NewServerScheme(base reactor.Base, id uint16, fam transport.Family, sonet transport.Sonet, cfg ServerConfig, eng engine.Config, tlsParams engine.TLSParams, cb Callbacks) (*ServerScheme, error) {
	if base == nil {
		return nil, ErrorParamEmpty.Error()
	}
	if err := cfg.Validate(); err != nil {
		return nil, ErrorParamInvalid.Error(err)
	}

	total := cfg.Total
	if total <= 0 {
		total = -1
	}

	return &ServerScheme{
		id:      id,
		base:    base,
		fam:     fam,
		sonet:   sonet,
		cfg:     cfg,
		eng:     eng,
		tls:     tlsParams,
		cb:      cb,
		sem:     sem.New(context.Background(), total),
		brokers: make(map[uint64]*Broker),
	}, nil
}

// Listen binds cfg.Address and registers the listener's descriptor with
// the reactor; each READ readiness on it drains one or more pending
// connections via Accept.
func (s *ServerScheme) Listen() error {
	network := s.sonet.Network(s.fam)
	ln, err := net.Listen(network, s.cfg.Address)
	if err != nil {
		return ErrorConnectFailed.Error(err)
	}

	fd, err := fdOfListener(ln)
	if err != nil {
		_ = ln.Close()
		return ErrorParamInvalid.Error(err)
	}

	s.mu.Lock()
	s.ln = ln
	s.lnFD = fd
	s.mu.Unlock()

	ev := reactor.NewEvent(s.base, reactor.NextID(), fd, func(_ int, t reactor.Type) {
		if t&reactor.Read != 0 {
			s.acceptReady()
		}
	})
	if !ev.Start() {
		_ = ln.Close()
		return ErrorConnectFailed.Error()
	}

	s.mu.Lock()
	s.lnEv = ev
	s.mu.Unlock()
	return nil
}

// acceptReady drains every connection currently queued on the listener
// without blocking, gating each on the Accept hook and the total-broker
// semaphore.
func (s *ServerScheme) acceptReady() {
	for {
		s.mu.Lock()
		closed := s.closed
		ln := s.ln
		s.mu.Unlock()
		if closed || ln == nil {
			return
		}

		conn, err := ln.Accept()
		if err != nil {
			return
		}

		if s.cb.Accept != nil && !s.cb.Accept(conn.RemoteAddr()) {
			_ = conn.Close()
			continue
		}

		if !s.sem.NewWorkerTry() {
			_ = conn.Close()
			continue
		}

		if err := s.adopt(conn); err != nil {
			s.sem.DeferWorker()
			_ = conn.Close()
		}
	}
}

// adopt wraps an accepted net.Conn into a Broker, runs the server-side TLS
// handshake if configured, and registers it for READ readiness.
func (s *ServerScheme) adopt(conn net.Conn) error {
	e, err := engine.WrapServer(conn, &s.eng, s.tls)
	if err != nil {
		return err
	}

	b := newBroker(s.base, s.id, e, s.fam, s.sonet, s.cfg.Broker, s.cb)

	fd, err := fdOf(conn)
	if err != nil {
		_ = e.Close()
		return err
	}

	ev := reactor.NewEvent(s.base, b.Id, fd, func(_ int, t reactor.Type) {
		if t&reactor.Read != 0 {
			if perr := b.pump(); perr != nil {
				s.drop(b, perr)
				return
			}
		}
		if t&reactor.Write != 0 {
			if werr := b.flushLocked(); werr != nil {
				s.drop(b, werr)
			}
		}
	})
	if !ev.Start() {
		_ = e.Close()
		return ErrorConnectFailed.Error()
	}

	b.mu.Lock()
	b.ev = ev
	b.mu.Unlock()

	s.mu.Lock()
	s.brokers[b.Id] = b
	s.mu.Unlock()

	b.fire(ConnectionNew)
	return nil
}

func (s *ServerScheme) drop(b *Broker, cause error) {
	_ = b.Close(cause)
	s.mu.Lock()
	delete(s.brokers, b.Id)
	s.mu.Unlock()
	s.sem.DeferWorker()
}

// Brokers returns a snapshot slice of every currently-open accepted
// Broker.
func (s *ServerScheme) Brokers() []*Broker {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Broker, 0, len(s.brokers))
	for _, b := range s.brokers {
		out = append(out, b)
	}
	return out
}

// Close stops accepting, closes the listener, and tears down every
// currently-open Broker.
func (s *ServerScheme) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ln := s.ln
	ev := s.lnEv
	brokers := make([]*Broker, 0, len(s.brokers))
	for _, b := range s.brokers {
		brokers = append(brokers, b)
	}
	s.brokers = make(map[uint64]*Broker)
	s.mu.Unlock()

	if ev != nil {
		ev.Drop()
	}

	var err error
	if ln != nil {
		err = ln.Close()
	}

	for _, b := range brokers {
		_ = b.Close(ErrorSchemeClosed.Error())
		s.sem.DeferWorker()
	}

	s.sem.DeferMain()
	return err
}
