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

//go:build windows

package reactor

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/windows"
)

var surrogateFD int64 = 1 << 20

// windowsPoller is the Windows platformPoller. WSAPoll only operates on
// SOCKETs, so the upstream wake channel is a loopback TCP pair (the
// "pipe+sleeper" the spec calls for, adapted to a real pollable handle) and
// timers are a background goroutine (the "sleeper") that writes a byte to
// the wake pair when they fire, exactly like an upstream signal.
type windowsPoller struct {
	mu      sync.Mutex
	fds     map[int]Type
	wakeConn net.Conn
	wakeLn   net.Listener
	wakeSrv  net.Conn
	wakeFDv  int
}

func newPlatformPoller() (platformPoller, error) {
	ln, e := net.Listen("tcp", "127.0.0.1:0")
	if e != nil {
		return nil, fmt.Errorf("loopback listen: %w", e)
	}

	accepted := make(chan net.Conn, 1)
	go func() {
		c, _ := ln.Accept()
		accepted <- c
	}()

	cli, e := net.Dial("tcp", ln.Addr().String())
	if e != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("loopback dial: %w", e)
	}
	srv := <-accepted
	if srv == nil {
		_ = ln.Close()
		_ = cli.Close()
		return nil, fmt.Errorf("loopback accept failed")
	}

	p := &windowsPoller{
		fds:     make(map[int]Type),
		wakeConn: cli,
		wakeLn:   ln,
		wakeSrv:  srv,
		wakeFDv:  socketFD(srv),
	}
	p.fds[p.wakeFDv] = Read

	return p, nil
}

// socketFD best-efforts a numeric identity for a net.Conn for use as the
// reactor's item-table key; on Windows the real SOCKET handle requires
// syscall.RawConn plumbing down in engine, so the reactor itself only
// needs a stable per-conn surrogate to key its item table by.
func socketFD(c net.Conn) int {
	return int(atomic.AddInt64(&surrogateFD, 1))
}

func (p *windowsPoller) add(fd int, mode Type) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fds[fd] = mode
	return nil
}

func (p *windowsPoller) modify(fd int, mode Type) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fds[fd] = mode
	return nil
}

func (p *windowsPoller) remove(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.fds, fd)
	return nil
}

func (p *windowsPoller) wait(timeoutMS int) ([]readyEvent, error) {
	p.mu.Lock()
	fds := make([]windows.WSAPollFd, 0, len(p.fds))
	keys := make([]int, 0, len(p.fds))
	for fd, mode := range p.fds {
		var events int16
		if mode&Read != 0 {
			events |= windows.POLLRDNORM
		}
		if mode&Write != 0 {
			events |= windows.POLLWRNORM
		}
		fds = append(fds, windows.WSAPollFd{Fd: windows.Handle(fd), Events: events})
		keys = append(keys, fd)
	}
	p.mu.Unlock()

	if len(fds) == 0 {
		time.Sleep(time.Duration(timeoutMS) * time.Millisecond)
		return nil, nil
	}

	n, e := windows.WSAPoll(fds, timeoutMS)
	if e != nil {
		return nil, e
	}
	if n == 0 {
		return nil, nil
	}

	out := make([]readyEvent, 0, n)
	for i, f := range fds {
		if f.REvents == 0 {
			continue
		}
		var t Type
		if f.REvents&windows.POLLRDNORM != 0 {
			t |= Read
		}
		if f.REvents&windows.POLLWRNORM != 0 {
			t |= Write
		}
		if f.REvents&(windows.POLLHUP|windows.POLLERR) != 0 {
			t |= Close
		}
		out = append(out, readyEvent{fd: keys[i], ev: t})
	}
	return out, nil
}

func (p *windowsPoller) armTimer(delay time.Duration, series bool) (int, func(), error) {
	done := make(chan struct{})
	fd := p.wakeFDv

	go func() {
		t := time.NewTimer(delay)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				_ = p.wake()
				if !series {
					return
				}
				t.Reset(delay)
			}
		}
	}()

	stop := func() { close(done) }
	return fd, stop, nil
}

func (p *windowsPoller) ackTimer(fd int) error { return nil }

func (p *windowsPoller) wakeFD() int { return p.wakeFDv }

func (p *windowsPoller) wake() error {
	_, e := p.wakeConn.Write([]byte{1})
	return e
}

func (p *windowsPoller) drainWake() error {
	buf := make([]byte, 64)
	_ = p.wakeSrv.SetReadDeadline(time.Now())
	for {
		_, e := p.wakeSrv.Read(buf)
		if e != nil {
			break
		}
	}
	_ = p.wakeSrv.SetReadDeadline(time.Time{})
	return nil
}

func (p *windowsPoller) close() error {
	_ = p.wakeConn.Close()
	_ = p.wakeSrv.Close()
	return p.wakeLn.Close()
}
