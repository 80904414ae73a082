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
	"strconv"
	"sync"
	"time"

	"github.com/nabbar/awh/engine"
	"github.com/nabbar/awh/reactor"
	"github.com/nabbar/awh/transport"
)

// ClientScheme owns a single outbound Broker, redialing it per Attempts
// whenever the connection drops or fails to establish (spec §4.3 "Client
// connect").
type ClientScheme struct {
	id   uint16
	base reactor.Base

	fam   transport.Family
	sonet transport.Sonet

	cfg ClientConfig
	eng engine.Config
	tls engine.TLSParams

	resolver Resolver
	cb       Callbacks

	mu      sync.Mutex
	broker  *Broker
	stopped bool
}

// NewClientScheme builds a ClientScheme bound to base's reactor. id should
// be unique among the schemes sharing base; it tags every Broker this
// scheme allocates. resolver may be nil, leaving hostname resolution to
// net.DialTimeout exactly as before the Resolver seam existed; pass
// DefaultResolver (or a custom Resolver) to resolve explicitly and try
// every returned address in turn.
func NewClientScheme(base reactor.Base, id uint16, fam transport.Family, sonet transport.Sonet, cfg ClientConfig, eng engine.Config, tlsParams engine.TLSParams, resolver Resolver, cb Callbacks) (*ClientScheme, error) {
	if base == nil {
		return nil, ErrorParamEmpty.Error()
	}
	if err := cfg.Validate(); err != nil {
		return nil, ErrorParamInvalid.Error(err)
	}

	return &ClientScheme{
		id:       id,
		base:     base,
		fam:      fam,
		sonet:    sonet,
		cfg:      cfg,
		eng:      eng,
		tls:      tlsParams,
		resolver: resolver,
		cb:       cb,
	}, nil
}

// Connect dials cfg.Address once, retrying per cfg.Attempts on failure, and
// arms the resulting Broker for READ readiness. A caller that queues data
// before any has arrived must also enable reactor.Write on the Broker's
// event itself. It returns once a Broker is live or every attempt has been
// exhausted.
func (s *ClientScheme) Connect() (*Broker, error) {
	attempts := s.cfg.Attempts.Count
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for try := 0; try < attempts; try++ {
		if try > 0 && s.cfg.Attempts.Backoff > 0 {
			time.Sleep(s.cfg.Attempts.Backoff)
		}

		b, err := s.dialOnce()
		if err == nil {
			s.mu.Lock()
			s.broker = b
			s.mu.Unlock()
			return b, nil
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = ErrorConnectFailed.Error()
	}
	return nil, ErrorNoAttemptsLeft.Error(lastErr)
}

func (s *ClientScheme) dialOnce() (*Broker, error) {
	host, portStr, err := net.SplitHostPort(s.cfg.Address)
	if err != nil {
		return nil, ErrorParamInvalid.Error(err)
	}
	port64, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, ErrorParamInvalid.Error(err)
	}
	port := uint16(port64)

	dialAddr := s.cfg.Address
	usingProxy := s.eng.Proxy.Kind != engine.ProxyNone && s.eng.Proxy.Address != ""
	if usingProxy {
		dialAddr = s.eng.Proxy.Address
	}

	network := s.sonet.Network(s.fam)
	conn, err := s.dial(network, dialAddr, usingProxy, host, port)
	if err != nil {
		return nil, ErrorConnectFailed.Error(err)
	}

	e, err := engine.WrapClient(conn, &s.eng, s.tls, host, port)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	b := newBroker(s.base, s.id, e, s.fam, s.sonet, s.cfg.Broker, s.cb)
	b.fire(ConnectionDial)

	if err := s.arm(b, conn); err != nil {
		_ = b.Close(err)
		return nil, err
	}

	b.fire(ConnectionNew)
	return b, nil
}

// dial resolves host through s.resolver (when set, a proxy isn't in use,
// and host isn't already an IP literal) and dials the first address that
// accepts a connection; otherwise it dials dialAddr directly, letting
// net.DialTimeout perform its own resolution exactly as before this seam
// existed.
func (s *ClientScheme) dial(network, dialAddr string, usingProxy bool, host string, port uint16) (net.Conn, error) {
	if usingProxy || s.resolver == nil || net.ParseIP(host) != nil {
		return net.DialTimeout(network, dialAddr, s.cfg.Broker.Timeouts.Connect)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Broker.Timeouts.Connect)
	defer cancel()

	addrs, err := s.resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, ErrorConnectFailed.Error()
	}

	var lastErr error
	for _, ip := range addrs {
		conn, derr := net.DialTimeout(network, net.JoinHostPort(ip, strconv.Itoa(int(port))), s.cfg.Broker.Timeouts.Connect)
		if derr == nil {
			return conn, nil
		}
		lastErr = derr
	}
	return nil, lastErr
}

// arm registers b's descriptor with the reactor under this scheme's id,
// dispatching READ to pump and WRITE to flushLocked.
func (s *ClientScheme) arm(b *Broker, conn net.Conn) error {
	fd, err := fdOf(conn)
	if err != nil {
		return ErrorParamInvalid.Error(err)
	}

	ev := reactor.NewEvent(s.base, b.Id, fd, func(_ int, t reactor.Type) {
		if t&reactor.Read != 0 {
			if err := b.pump(); err != nil {
				_ = b.Close(err)
				return
			}
		}
		if t&reactor.Write != 0 {
			if err := b.flushLocked(); err != nil {
				_ = b.Close(err)
			}
		}
	})

	if !ev.Start() {
		return ErrorConnectFailed.Error()
	}

	b.mu.Lock()
	b.ev = ev
	b.mu.Unlock()
	return nil
}

// Broker returns the scheme's current live Broker, or nil if none is
// connected.
func (s *ClientScheme) Broker() *Broker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.broker
}

// Close tears down the scheme's live Broker, if any, and marks the scheme
// stopped so Connect will no longer be called by a supervising caller.
func (s *ClientScheme) Close() error {
	s.mu.Lock()
	s.stopped = true
	b := s.broker
	s.broker = nil
	s.mu.Unlock()

	if b == nil {
		return nil
	}
	return b.Close(ErrorSchemeClosed.Error())
}
