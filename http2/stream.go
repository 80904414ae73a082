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

package http2

import (
	"github.com/bits-and-blooms/bitset"
	"golang.org/x/net/http2/hpack"
)

// StreamState mirrors RFC 7540 §5.1's state machine, collapsed to the
// subset this session's send-headers/send-data/send-trailers surface
// needs to distinguish.
type StreamState int

const (
	StreamIdle StreamState = iota
	StreamOpen
	StreamHalfClosedLocal
	StreamHalfClosedRemote
	StreamClosed
)

// Stream is one HTTP/2 multiplexed exchange within a Session.
type Stream struct {
	ID      uint32
	State   StreamState
	Headers []hpack.HeaderField
	Trailer []hpack.HeaderField

	recvWindow *flowWindow
	sendWindow *flowWindow
}

// streamTableCapacity bounds the bitset used to fast-track the concurrent
// stream count; stream IDs beyond it still work, just without the bitset
// fast path (tracked by the map alone).
const streamTableCapacity = 1 << 16

// streamTable holds the session's open streams, keyed by ID, with a
// bitset shadowing "is this ID slot occupied" for an O(1) popcount of the
// concurrent-stream total instead of walking the map on every HEADERS
// frame (spec §4.5: MAX_CONCURRENT_STREAMS must be enforced per frame).
type streamTable struct {
	streams map[uint32]*Stream
	active  *bitset.BitSet
}

func newStreamTable() *streamTable {
	return &streamTable{
		streams: make(map[uint32]*Stream),
		active:  bitset.New(streamTableCapacity),
	}
}

func (t *streamTable) slot(id uint32) (uint, bool) {
	if id == 0 || uint64(id) >= streamTableCapacity {
		return 0, false
	}
	return uint(id), true
}

func (t *streamTable) count() int {
	return len(t.streams)
}

func (t *streamTable) get(id uint32) (*Stream, bool) {
	s, ok := t.streams[id]
	return s, ok
}

func (t *streamTable) put(s *Stream) {
	t.streams[s.ID] = s
	if i, ok := t.slot(s.ID); ok {
		t.active.Set(i)
	}
}

func (t *streamTable) remove(id uint32) {
	delete(t.streams, id)
	if i, ok := t.slot(id); ok {
		t.active.Clear(i)
	}
}

// activeCount returns the bitset's popcount, used as the cheap
// concurrency-limit check when every open stream ID fits the table.
func (t *streamTable) activeCount() uint {
	return t.active.Count()
}
