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
	"sync/atomic"
	"time"
)

var timerIDSeq uint64

// NextID hands out process-unique ids for Base.Add/Event registrations; the
// cluster supervisor and scheme package share this sequence so broker and
// worker ids never collide with plain timer ids on the same Base.
func NextID() uint64 {
	return atomic.AddUint64(&timerIDSeq, 1)
}

// Timer is a convenience one-shot or periodic wake built on top of Event.
type Timer struct {
	ev *Event
}

// NewTimer arms a timer firing fn after delay (and every delay thereafter
// if series) on b's reactor thread.
func NewTimer(b Base, delay time.Duration, series bool, fn func()) *Timer {
	id := NextID()
	ev := NewEvent(b, id, -1, func(int, Type) { fn() }).WithTimer(delay, series)
	return &Timer{ev: ev}
}

// Start arms the timer.
func (t *Timer) Start() bool { return t.ev.Start() }

// Stop disarms the timer; it may be Start-ed again later.
func (t *Timer) Stop() { t.ev.Stop() }

// Cancel permanently releases the timer's reactor registration.
func (t *Timer) Cancel() { t.ev.Drop() }
