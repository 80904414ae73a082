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

//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package reactor

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// kqueuePoller is the BSD/Darwin platformPoller: kqueue(2) for readiness
// and EVFILT_TIMER for millisecond-precision timers, a self-pipe (os.Pipe
// equivalent via unix.Pipe2) as the upstream wake channel.
type kqueuePoller struct {
	mu      sync.Mutex
	kq      int
	wakeR   int
	wakeW   int
	timerID int64
}

func newPlatformPoller() (platformPoller, error) {
	kq, e := unix.Kqueue()
	if e != nil {
		return nil, fmt.Errorf("kqueue: %w", e)
	}

	fds := make([]int, 2)
	if e := unix.Pipe2(fds, unix.O_CLOEXEC|unix.O_NONBLOCK); e != nil {
		_ = unix.Close(kq)
		return nil, fmt.Errorf("pipe2: %w", e)
	}

	p := &kqueuePoller{kq: kq, wakeR: fds[0], wakeW: fds[1]}
	if e := p.add(p.wakeR, Read); e != nil {
		_ = unix.Close(kq)
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
		return nil, e
	}

	return p, nil
}

func (p *kqueuePoller) changeList(fd int, mode Type, flags uint16) []unix.Kevent_t {
	var out []unix.Kevent_t
	if mode&Read != 0 {
		out = append(out, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags})
	}
	if mode&Write != 0 {
		out = append(out, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags})
	}
	return out
}

func (p *kqueuePoller) add(fd int, mode Type) error {
	changes := p.changeList(fd, mode|Read, unix.EV_ADD|unix.EV_ENABLE)
	if len(changes) == 0 {
		return nil
	}
	_, e := unix.Kevent(p.kq, changes, nil, nil)
	return e
}

func (p *kqueuePoller) modify(fd int, mode Type) error {
	// clear both filters then re-add the enabled subset; acceptable for a
	// reactor's cold path (mode toggles are rare relative to I/O).
	_, _ = unix.Kevent(p.kq, []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE},
	}, nil, nil)
	return p.add(fd, mode)
}

func (p *kqueuePoller) remove(fd int) error {
	_, _ = unix.Kevent(p.kq, []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE},
	}, nil, nil)
	_ = unix.Close(fd)
	return nil
}

func (p *kqueuePoller) wait(timeoutMS int) ([]readyEvent, error) {
	var ts *unix.Timespec
	if timeoutMS >= 0 {
		d := time.Duration(timeoutMS) * time.Millisecond
		sec := unix.NsecToTimespec(d.Nanoseconds())
		ts = &sec
	}

	raw := make([]unix.Kevent_t, 128)
	n, e := unix.Kevent(p.kq, nil, raw, ts)
	if e != nil {
		if e == unix.EINTR {
			return nil, nil
		}
		return nil, e
	}

	byFD := map[int]Type{}
	for i := 0; i < n; i++ {
		fd := int(raw[i].Ident)
		switch raw[i].Filter {
		case unix.EVFILT_READ:
			byFD[fd] |= Read
		case unix.EVFILT_WRITE:
			byFD[fd] |= Write
		case unix.EVFILT_TIMER:
			byFD[fd] |= Timer
		}
		if raw[i].Flags&unix.EV_EOF != 0 {
			byFD[fd] |= Close
		}
	}

	out := make([]readyEvent, 0, len(byFD))
	for fd, t := range byFD {
		out = append(out, readyEvent{fd: fd, ev: t})
	}
	return out, nil
}

// armTimer uses a synthetic negative-space identifier (an incrementing
// counter, since EVFILT_TIMER idents share the kqueue ident namespace and
// need not be real fds) registered directly with the kqueue.
func (p *kqueuePoller) armTimer(delay time.Duration, series bool) (int, func(), error) {
	// offset well above any real fd range to avoid colliding with kqueue
	// idents registered for actual sockets.
	id := int(atomic.AddInt64(&p.timerID, 1)) + 1<<30

	flags := uint16(unix.EV_ADD | unix.EV_ENABLE)
	if !series {
		flags |= unix.EV_ONESHOT
	}

	ev := unix.Kevent_t{
		Ident:  uint64(id),
		Filter: unix.EVFILT_TIMER,
		Flags:  flags,
		Data:   delay.Milliseconds(),
	}

	if _, e := unix.Kevent(p.kq, []unix.Kevent_t{ev}, nil, nil); e != nil {
		return -1, nil, fmt.Errorf("kevent EVFILT_TIMER: %w", e)
	}

	stop := func() {
		_, _ = unix.Kevent(p.kq, []unix.Kevent_t{{Ident: uint64(id), Filter: unix.EVFILT_TIMER, Flags: unix.EV_DELETE}}, nil, nil)
	}

	return id, stop, nil
}

func (p *kqueuePoller) ackTimer(fd int) error { return nil }

func (p *kqueuePoller) wakeFD() int { return p.wakeR }

func (p *kqueuePoller) wake() error {
	_, e := unix.Write(p.wakeW, []byte{1})
	if e == unix.EAGAIN {
		return nil
	}
	return e
}

func (p *kqueuePoller) drainWake() error {
	var buf [64]byte
	for {
		_, e := unix.Read(p.wakeR, buf[:])
		if e != nil {
			break
		}
	}
	return nil
}

func (p *kqueuePoller) close() error {
	_ = unix.Close(p.wakeR)
	_ = unix.Close(p.wakeW)
	return unix.Close(p.kq)
}
