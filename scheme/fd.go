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
	"syscall"
)

// fdOf extracts the OS descriptor backing c via syscall.RawConn.Control,
// which every net package connection type (TCP/UDP/Unix) implements on
// every platform Go supports, so the reactor can register it without the
// engine layer having to plumb a raw fd through separately.
func fdOf(c net.Conn) (int, error) {
	sc, ok := c.(syscall.Conn)
	if !ok {
		return -1, ErrorParamInvalid.Error()
	}

	raw, err := sc.SyscallConn()
	if err != nil {
		return -1, err
	}

	var fd int
	var ctrlErr error
	err = raw.Control(func(f uintptr) {
		fd = int(f)
	})
	if err != nil {
		return -1, err
	}
	return fd, ctrlErr
}

// fdOfListener is fdOf's counterpart for a bound, not-yet-accepted
// net.Listener (*net.TCPListener / *net.UnixListener both implement
// syscall.Conn the same way a connection does).
func fdOfListener(ln net.Listener) (int, error) {
	sc, ok := ln.(syscall.Conn)
	if !ok {
		return -1, ErrorParamInvalid.Error()
	}

	raw, err := sc.SyscallConn()
	if err != nil {
		return -1, err
	}

	var fd int
	var ctrlErr error
	err = raw.Control(func(f uintptr) {
		fd = int(f)
	})
	if err != nil {
		return -1, err
	}
	return fd, ctrlErr
}
