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

// Upstream is a user-facing handle over a Base's self-pipe channel: any
// goroutine may call Launch to have cb run on the reactor thread, even
// while the reactor is blocked in its OS wait call (spec §3 "Reactor").
type Upstream struct {
	base Base
	id   uint64
}

// NewUpstream registers cb and returns a handle to signal it.
func NewUpstream(b Base, cb func()) *Upstream {
	return &Upstream{base: b, id: b.EmplaceUpstream(cb)}
}

// Launch wakes the reactor thread and runs the registered callback there.
// Safe to call from any goroutine, including ones not owned by the reactor.
func (u *Upstream) Launch() {
	u.base.LaunchUpstream(u.id)
}

// Close unregisters the upstream callback.
func (u *Upstream) Close() {
	u.base.EraseUpstream(u.id)
}
