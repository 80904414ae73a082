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

import "net"

// Callbacks is the bundle of user hooks a Broker drives as data arrives,
// is sent, or the connection tears down (spec §3 Broker "callback bundle").
type Callbacks struct {
	// OnState is called on every ConnState transition; optional.
	OnState func(b *Broker, state ConnState)

	// OnRead fires once at least Marks.Read.Min bytes are buffered, or on
	// EOF with whatever remains. Returning an error closes the broker.
	OnRead func(b *Broker, data []byte) error

	// OnWrite fires after a queued write is flushed to the socket.
	OnWrite func(b *Broker, n int)

	// OnClose fires exactly once, when the broker is torn down; err is
	// nil for a graceful close.
	OnClose func(b *Broker, err error)

	// OnTimeout fires when a per-direction timeout elapses without
	// progress; returning true keeps the broker open.
	OnTimeout func(b *Broker, dir Direction) (keepOpen bool)

	// Accept gates a server-scheme accept; returning false rejects the
	// peer before a Broker is even allocated for it (spec §4.3 "a user
	// accept(ip, mac, port) -> bool hook may reject").
	Accept func(remote net.Addr) bool
}
