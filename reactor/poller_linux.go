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

//go:build linux

package reactor

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// epollPoller is the Linux platformPoller: epoll(7) for readiness,
// timerfd_create(2) for millisecond-precision timers, eventfd(2) as the
// upstream self-pipe wake channel.
type epollPoller struct {
	mu   sync.Mutex
	epfd int
	wfd  int // eventfd used to wake a blocked epoll_wait
}

func newPlatformPoller() (platformPoller, error) {
	epfd, e := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if e != nil {
		return nil, fmt.Errorf("epoll_create1: %w", e)
	}

	wfd, e := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if e != nil {
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", e)
	}

	p := &epollPoller{epfd: epfd, wfd: wfd}
	if e := p.add(wfd, Read); e != nil {
		_ = unix.Close(epfd)
		_ = unix.Close(wfd)
		return nil, e
	}

	return p, nil
}

func toEpollEvents(mode Type) uint32 {
	var ev uint32
	if mode&Read != 0 {
		ev |= unix.EPOLLIN
	}
	if mode&Write != 0 {
		ev |= unix.EPOLLOUT
	}
	if mode&Close != 0 {
		ev |= unix.EPOLLRDHUP
	}
	return ev
}

func (p *epollPoller) add(fd int, mode Type) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Events: toEpollEvents(mode), Fd: int32(fd)})
}

func (p *epollPoller) modify(fd int, mode Type) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{Events: toEpollEvents(mode), Fd: int32(fd)})
}

func (p *epollPoller) remove(fd int) error {
	e := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	_ = unix.Close(fd)
	return e
}

func (p *epollPoller) wait(timeoutMS int) ([]readyEvent, error) {
	var raw [128]unix.EpollEvent

	n, e := unix.EpollWait(p.epfd, raw[:], timeoutMS)
	if e != nil {
		if e == unix.EINTR {
			return nil, nil
		}
		return nil, e
	}

	out := make([]readyEvent, 0, n)
	for i := 0; i < n; i++ {
		fd := int(raw[i].Fd)
		var t Type
		if raw[i].Events&(unix.EPOLLIN|unix.EPOLLPRI) != 0 {
			t |= Read
		}
		if raw[i].Events&unix.EPOLLOUT != 0 {
			t |= Write
		}
		if raw[i].Events&(unix.EPOLLRDHUP|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			t |= Close
		}
		out = append(out, readyEvent{fd: fd, ev: t})
	}
	return out, nil
}

// timerfdHandle closes fd on stop and is returned as the pollable wake fd.
func (p *epollPoller) armTimer(delay time.Duration, series bool) (int, func(), error) {
	fd, e := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_CLOEXEC|unix.TFD_NONBLOCK)
	if e != nil {
		return -1, nil, fmt.Errorf("timerfd_create: %w", e)
	}

	spec := unix.ItimerSpec{
		Value: unix.NsecToTimespec(delay.Nanoseconds()),
	}
	if series {
		spec.Interval = unix.NsecToTimespec(delay.Nanoseconds())
	}

	if e := unix.TimerfdSettime(fd, 0, &spec, nil); e != nil {
		_ = unix.Close(fd)
		return -1, nil, fmt.Errorf("timerfd_settime: %w", e)
	}

	stop := func() {
		_ = unix.Close(fd)
	}

	return fd, stop, nil
}

func (p *epollPoller) ackTimer(fd int) error {
	var buf [8]byte
	_, e := unix.Read(fd, buf[:])
	if e == unix.EAGAIN {
		return nil
	}
	return e
}

func (p *epollPoller) wakeFD() int { return p.wfd }

func (p *epollPoller) wake() error {
	var buf [8]byte
	buf[7] = 1
	_, e := unix.Write(p.wfd, buf[:])
	if e == unix.EAGAIN {
		return nil
	}
	return e
}

func (p *epollPoller) drainWake() error {
	var buf [8]byte
	for {
		_, e := unix.Read(p.wfd, buf[:])
		if e != nil {
			break
		}
	}
	return nil
}

func (p *epollPoller) close() error {
	_ = unix.Close(p.wfd)
	return unix.Close(p.epfd)
}
