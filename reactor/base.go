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

package reactor

import (
	"fmt"
	"sync"
	"time"

	liblog "github.com/nabbar/awh/logger"
)

// Base is the process-wide registry of {fd -> item} described in spec §3/§4.1.
type Base interface {
	// Add registers fd under id with cb. If delay > 0 the registration is a
	// timer wake (a real OS timer primitive is allocated internally) and fd
	// is ignored; series controls one-shot vs periodic re-arm.
	Add(id uint64, fd int, cb Callback, delay time.Duration, series bool) bool

	// Del removes every event type registered for (id, fd), or only the
	// ones listed. Idempotent.
	Del(id uint64, fd int, types ...Type)

	// Mode toggles one event Type's enablement without reregistering.
	Mode(id uint64, fd int, t Type, enabled bool) bool

	// Start runs the wait loop until Stop is called or a fatal OS error
	// occurs on the multiplexer.
	Start() error

	// Stop requests the loop to exit at the next wake and wakes it.
	Stop()

	// Kick wakes a blocked wait call without stopping the loop.
	Kick()

	// Rebase discards and recreates the OS multiplexer handle; used after
	// fork() in the cluster supervisor's child process.
	Rebase() error

	// Easily toggles tight-polling mode (zero wait timeout).
	Easily(tight bool)

	// Freeze suspends (true) or resumes (false) READ delivery globally,
	// without unregistering any fd.
	Freeze(suspend bool)

	// Frequency sets the wait call's bounding timeout.
	Frequency(d time.Duration)

	// EmplaceUpstream registers a cross-thread callback reachable by
	// writing to the returned id's wake channel from any goroutine.
	EmplaceUpstream(cb func()) uint64

	// LaunchUpstream wakes the reactor thread and fires the upstream
	// callback registered under id.
	LaunchUpstream(id uint64)

	// EraseUpstream removes a previously registered upstream callback.
	EraseUpstream(id uint64)

	// Running reports whether the wait loop is currently active.
	Running() bool
}

type item struct {
	id    uint64
	fd    int
	mode  Type
	cb    Callback
	timer *timerState
}

type timerState struct {
	delay  time.Duration
	series bool
	wakeFD int
	stop   func()
}

// pending is one callback snapshotted for dispatch outside the item-table
// lock, so Add/Del performed by a callback cannot invalidate iteration.
type pending struct {
	cb Callback
	fd int
	ev Type
	up func()
}

type base struct {
	mu      sync.Mutex
	log     liblog.FuncLog
	items   map[int]*item // keyed by registered fd (real fd, or synthetic timer wake fd)
	started bool
	tight   bool
	frozen  bool
	freqMS  int

	poll platformPoller

	upMu   sync.Mutex
	upNext uint64
	ups    map[uint64]func()
}

// New creates a Base bound to the current process. log may be nil.
func New(log liblog.FuncLog) (Base, error) {
	p, e := newPlatformPoller()
	if e != nil {
		return nil, fmt.Errorf("reactor: create platform poller: %w", e)
	}

	b := &base{
		log:    log,
		items:  make(map[int]*item),
		poll:   p,
		freqMS: 250,
		ups:    make(map[uint64]func()),
	}

	return b, nil
}

func (b *base) logf(format string, args ...interface{}) {
	if b.log == nil {
		return
	}
	if l := b.log(); l != nil {
		_, _ = fmt.Fprintf(l, format+"\n", args...)
	}
}

func (b *base) Add(id uint64, fd int, cb Callback, delay time.Duration, series bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.poll == nil {
		return false
	}

	if delay > 0 {
		wakeFD, stop, e := b.poll.armTimer(delay, series)
		if e != nil {
			b.logf("reactor: arm timer: %v", e)
			return false
		}
		if _, exists := b.items[wakeFD]; exists {
			stop()
			return false
		}
		it := &item{id: id, fd: wakeFD, mode: Timer, cb: cb, timer: &timerState{delay: delay, series: series, wakeFD: wakeFD, stop: stop}}
		if e := b.poll.add(wakeFD, Read); e != nil {
			stop()
			b.logf("reactor: register timer fd: %v", e)
			return false
		}
		b.items[wakeFD] = it
		return true
	}

	if _, exists := b.items[fd]; exists {
		return false
	}

	it := &item{id: id, fd: fd, mode: Read, cb: cb}
	if e := b.poll.add(fd, Read); e != nil {
		b.logf("reactor: register fd %d: %v", fd, e)
		return false
	}
	b.items[fd] = it
	return true
}

func (b *base) Del(id uint64, fd int, types ...Type) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delLocked(fd, types...)
}

func (b *base) delLocked(fd int, types ...Type) {
	it, ok := b.items[fd]
	if !ok {
		return
	}

	if len(types) == 0 {
		if it.timer != nil {
			it.timer.stop()
		}
		_ = b.poll.remove(fd)
		delete(b.items, fd)
		return
	}

	for _, t := range types {
		it.mode &^= t
	}
	_ = b.poll.modify(fd, it.mode)

	if it.mode == 0 {
		if it.timer != nil {
			it.timer.stop()
		}
		_ = b.poll.remove(fd)
		delete(b.items, fd)
	}
}

func (b *base) Mode(id uint64, fd int, t Type, enabled bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	it, ok := b.items[fd]
	if !ok || it.id != id {
		return false
	}

	if enabled {
		it.mode |= t
	} else {
		it.mode &^= t
	}

	return b.poll.modify(fd, it.mode) == nil
}

func (b *base) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.started
}

func (b *base) Start() error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return nil
	}
	b.started = true
	b.mu.Unlock()

	for {
		b.mu.Lock()
		if !b.started {
			b.mu.Unlock()
			return nil
		}
		tight := b.tight
		frozen := b.frozen
		freq := b.freqMS
		b.mu.Unlock()

		timeout := freq
		if tight {
			timeout = 0
		}

		ready, err := b.poll.wait(timeout)
		if err != nil {
			b.mu.Lock()
			b.started = false
			b.mu.Unlock()
			return fmt.Errorf("reactor: fatal wait error: %w", err)
		}

		// snapshot callbacks before dispatch so mutation during dispatch
		// (Add/Del from inside a callback) never invalidates iteration.
		var batch []pending

		b.mu.Lock()
		for _, r := range ready {
			if r.fd == b.poll.wakeFD() {
				b.drainUpstreamLocked(&batch)
				continue
			}
			it, ok := b.items[r.fd]
			if !ok {
				continue
			}
			if it.timer != nil {
				ev := Timer
				if !it.timer.series {
					it.mode = 0
					_ = b.poll.remove(r.fd)
					delete(b.items, r.fd)
				} else {
					_ = b.poll.ackTimer(r.fd)
				}
				batch = append(batch, pending{cb: it.cb, fd: r.fd, ev: ev})
				continue
			}
			if frozen && r.ev&Read != 0 && r.ev&^Read == 0 {
				continue
			}
			batch = append(batch, pending{cb: it.cb, fd: r.fd, ev: r.ev})
		}
		b.mu.Unlock()

		for _, d := range batch {
			b.safeDispatch(d.cb, d.fd, d.ev, d.up)
		}
	}
}

func (b *base) safeDispatch(cb Callback, fd int, ev Type, up func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logf("reactor: recovered panic in callback for fd %d: %v", fd, r)
		}
	}()
	if up != nil {
		up()
		return
	}
	if cb != nil {
		cb(fd, ev)
	}
}

func (b *base) drainUpstreamLocked(batch *[]pending) {
	_ = b.poll.drainWake()
	b.upMu.Lock()
	defer b.upMu.Unlock()
	for _, fn := range b.ups {
		*batch = append(*batch, pending{up: fn})
	}
}

func (b *base) Stop() {
	b.mu.Lock()
	b.started = false
	b.mu.Unlock()
	b.Kick()
}

func (b *base) Kick() {
	if b.poll != nil {
		_ = b.poll.wake()
	}
}

func (b *base) Rebase() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.poll != nil {
		_ = b.poll.close()
	}
	p, e := newPlatformPoller()
	if e != nil {
		return e
	}
	b.poll = p
	b.items = make(map[int]*item)
	return nil
}

func (b *base) Easily(tight bool) {
	b.mu.Lock()
	b.tight = tight
	b.mu.Unlock()
}

func (b *base) Freeze(suspend bool) {
	b.mu.Lock()
	b.frozen = suspend
	b.mu.Unlock()
}

func (b *base) Frequency(d time.Duration) {
	b.mu.Lock()
	if d <= 0 {
		b.freqMS = -1
	} else {
		b.freqMS = int(d / time.Millisecond)
	}
	b.mu.Unlock()
}

func (b *base) EmplaceUpstream(cb func()) uint64 {
	b.upMu.Lock()
	defer b.upMu.Unlock()
	b.upNext++
	id := b.upNext
	b.ups[id] = cb
	return id
}

func (b *base) LaunchUpstream(id uint64) {
	b.upMu.Lock()
	_, ok := b.ups[id]
	b.upMu.Unlock()
	if ok {
		b.Kick()
	}
}

func (b *base) EraseUpstream(id uint64) {
	b.upMu.Lock()
	delete(b.ups, id)
	b.upMu.Unlock()
}
