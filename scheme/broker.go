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
	"net"
	"sync"

	"github.com/nabbar/awh/engine"
	"github.com/nabbar/awh/reactor"
	"github.com/nabbar/awh/transport"
)

// Direction distinguishes which of a Broker's three timeouts elapsed.
type Direction uint8

const (
	DirectionConnect Direction = iota
	DirectionRead
	DirectionWrite
)

// Broker is one live connection: an engine context, a reactor registration,
// per-direction timeouts, read/write watermarks, and the callback bundle
// that reacts to its lifecycle (spec §3 "Broker").
//
// Invariants: a Broker is owned by exactly one Scheme; its descriptor is
// registered with the reactor iff its event-mode is non-empty; Id is
// unique for the process lifetime; Close always unregisters reactor state
// before the socket itself goes away.
type Broker struct {
	Id       uint64
	SchemeId uint16

	Family transport.Family
	Sonet  transport.Sonet

	eng Engine
	cb  Callbacks

	cfg Config

	mu      sync.Mutex
	closed  bool
	wrBuf   []byte
	rdBuf   []byte
	ev      *reactor.Event
	onClose sync.Once
}

// Engine is the subset of engine.Engine a Broker drives; declared locally
// so tests can substitute a fake without importing the engine package.
type Engine interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
}

var _ Engine = (engine.Engine)(nil)

// newBroker allocates a Broker bound to eng; it does not itself register
// any reactor event — the owning scheme does that once the handshake/proxy
// chain for this connection has completed. Once armed, Queue/flushLocked
// toggle WRITE readiness on the Broker's event automatically as data is
// pending or drained.
func newBroker(base reactor.Base, schemeID uint16, eng Engine, fam transport.Family, sonet transport.Sonet, cfg Config, cb Callbacks) *Broker {
	b := &Broker{
		Id:       reactor.NextID(),
		SchemeId: schemeID,
		Family:   fam,
		Sonet:    sonet,
		eng:      eng,
		cb:       cb,
		cfg:      cfg,
		rdBuf:    make([]byte, 0, DefaultBufferSize),
	}
	return b
}

func (b *Broker) fire(state ConnState) {
	if b.cb.OnState != nil {
		b.cb.OnState(b, state)
	}
}

// Queue appends p to the pending write queue and arms WRITE readiness on
// the Broker's reactor event; it is flushed as WRITE readiness fires,
// coalesced up to cfg.Marks.Write.Max bytes per send (spec §4.3
// "Watermarks").
func (b *Broker) Queue(p []byte) {
	b.mu.Lock()
	b.wrBuf = append(b.wrBuf, p...)
	ev := b.ev
	b.mu.Unlock()

	if ev != nil {
		ev.Mode(reactor.Write, true)
	}
}

// flushLocked drains as much of the write queue as the watermark allows
// and the socket will currently accept; called from the reactor thread on
// WRITE readiness. Once the queue runs dry it disables WRITE readiness so
// the reactor stops waking this fd for nothing.
func (b *Broker) flushLocked() error {
	b.mu.Lock()
	if len(b.wrBuf) == 0 {
		ev := b.ev
		b.mu.Unlock()
		if ev != nil {
			ev.Mode(reactor.Write, false)
		}
		return nil
	}

	max := b.cfg.Marks.Write.Max
	chunk := b.wrBuf
	if max > 0 && len(chunk) > max {
		chunk = chunk[:max]
	}
	b.mu.Unlock()

	n, err := b.eng.Write(chunk)
	if n > 0 {
		b.mu.Lock()
		b.wrBuf = b.wrBuf[n:]
		drained := len(b.wrBuf) == 0
		ev := b.ev
		b.mu.Unlock()
		if b.cb.OnWrite != nil {
			b.cb.OnWrite(b, n)
		}
		if drained && ev != nil {
			ev.Mode(reactor.Write, false)
		}
	}
	if err != nil && !engine.IsWouldBlock(err) {
		return ErrorFilter(err)
	}
	return nil
}

// pump reads from the engine into the read buffer and, once the read
// watermark is satisfied (or EOF), invokes OnRead with the buffered bytes,
// resetting the buffer on a successful callback.
func (b *Broker) pump() error {
	tmp := make([]byte, DefaultBufferSize)
	n, err := b.eng.Read(tmp)
	if n > 0 {
		b.mu.Lock()
		b.rdBuf = append(b.rdBuf, tmp[:n]...)
		buffered := len(b.rdBuf)
		b.mu.Unlock()

		min := b.cfg.Marks.Read.Min
		if min <= 0 {
			min = 1
		}
		if buffered >= min {
			b.fire(ConnectionRead)
			b.mu.Lock()
			data := b.rdBuf
			b.rdBuf = make([]byte, 0, DefaultBufferSize)
			b.mu.Unlock()

			if b.cb.OnRead != nil {
				if cbErr := b.cb.OnRead(b, data); cbErr != nil {
					return cbErr
				}
			}
		}
	}

	if err != nil {
		if engine.IsWouldBlock(err) {
			return nil
		}
		return ErrorFilter(err)
	}
	return nil
}

// Close tears the broker down exactly once: it deregisters reactor state
// before closing the underlying engine/socket (spec §3 invariant iv) and
// invokes OnClose with the triggering error (nil for a graceful close).
func (b *Broker) Close(cause error) error {
	var err error
	b.onClose.Do(func() {
		b.fire(ConnectionCloseRead)
		if b.ev != nil {
			b.ev.Drop()
		}
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()

		err = b.eng.Close()
		b.fire(ConnectionClose)
		if b.cb.OnClose != nil {
			b.cb.OnClose(b, cause)
		}
	})
	return err
}

func (b *Broker) IsClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Broker) LocalAddr() net.Addr  { return b.eng.LocalAddr() }
func (b *Broker) RemoteAddr() net.Addr { return b.eng.RemoteAddr() }
