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
	"sync"
	"time"
)

// Type is the bitmask of event kinds a reactor item can subscribe to.
type Type uint8

const (
	Read Type = 1 << iota
	Write
	Close
	Timer
)

func (t Type) has(o Type) bool { return t&o != 0 }

// Callback is invoked on the reactor's own goroutine whenever one of the
// subscribed event Types fires on fd.
type Callback func(fd int, ev Type)

// State is the lifecycle of a user-facing Event handle.
type State uint8

const (
	StateNone State = iota
	StateConfigured
	StateRunning
	StateStopped
)

// Event is a user-facing handle bound to one Base, one fd, one Callback and
// one optional timer delay (spec §3 "Event").
type Event struct {
	mu    sync.Mutex
	base  Base
	id    uint64
	fd    int
	cb    Callback
	delay time.Duration
	series bool
	state State
}

// NewEvent configures (but does not start) an Event on b.
func NewEvent(b Base, id uint64, fd int, cb Callback) *Event {
	return &Event{base: b, id: id, fd: fd, cb: cb, state: StateConfigured}
}

// WithTimer turns the event into a timer wake with the given delay,
// re-arming automatically on every fire if series is true.
func (e *Event) WithTimer(delay time.Duration, series bool) *Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.delay = delay
	e.series = series
	return e
}

// Start registers the event with its Base. Reactivating a previously
// Stop-ped event is permitted.
func (e *Event) Start() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateRunning {
		return true
	}

	if !e.base.Add(e.id, e.fd, e.cb, e.delay, e.series) {
		return false
	}

	e.state = StateRunning
	return true
}

// Stop deregisters the event but keeps its configuration, allowing Start to
// reactivate it later.
func (e *Event) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateRunning {
		return
	}

	e.base.Del(e.id, e.fd)
	e.state = StateStopped
}

// Drop stops the event (if running) and releases it permanently.
func (e *Event) Drop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateRunning {
		e.base.Del(e.id, e.fd)
	}
	e.state = StateNone
}

// Mode toggles one event Type's enablement without a full Start/Stop cycle.
func (e *Event) Mode(t Type, enabled bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.base.Mode(e.id, e.fd, t, enabled)
}

func (e *Event) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}
