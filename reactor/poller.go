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

import "time"

// readyEvent is one multiplexer-reported readiness: fd became ready for ev.
type readyEvent struct {
	fd int
	ev Type
}

// platformPoller is implemented once per OS family: poller_linux.go (epoll +
// timerfd + eventfd), poller_kqueue.go (kqueue + EVFILT_TIMER + self-pipe,
// covers darwin/freebsd/netbsd/openbsd/dragonfly), poller_windows.go
// (WSAPoll + loopback-socket wake + sleeper goroutine for timers).
type platformPoller interface {
	// add registers fd for the given event mask.
	add(fd int, mode Type) error
	// modify updates fd's event mask in place.
	modify(fd int, mode Type) error
	// remove deregisters fd.
	remove(fd int) error
	// wait blocks up to timeoutMS (negative = forever, 0 = non-blocking)
	// and returns the fds that became ready.
	wait(timeoutMS int) ([]readyEvent, error)
	// armTimer allocates an OS timer primitive firing after delay (and
	// every delay thereafter if series), returning a pollable wake fd and
	// a stop function that releases it.
	armTimer(delay time.Duration, series bool) (wakeFD int, stop func(), err error)
	// ackTimer acknowledges one firing of a series timer fd so a
	// level-triggered multiplexer does not immediately refire. No-op on
	// edge-triggered / non-counter backends.
	ackTimer(fd int) error
	// wakeFD is the self-pipe/eventfd fd used to interrupt a blocked wait;
	// readiness on it is drained via drainWake rather than dispatched.
	wakeFD() int
	// wake interrupts a blocked wait call from any goroutine.
	wake() error
	// drainWake consumes the wake notification after a wait() return.
	drainWake() error
	// close releases the multiplexer handle and every timer/wake fd.
	close() error
}
