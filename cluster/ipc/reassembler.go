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

package ipc

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// pending is one message's reassembly state, keyed by id.
type pending struct {
	buf []byte
}

// Decoder reassembles a byte stream of Encode'd segments into complete
// messages, keyed by the segment header's id, handling out-of-order
// interleaving of distinct ids (spec §4.7).
type Decoder struct {
	buf      []byte
	inflight map[uint64]*pending

	// OnMessage is invoked with a complete message once its END segment
	// arrives.
	OnMessage func(id uint64, message []byte) error
}

// NewDecoder returns an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{inflight: make(map[uint64]*pending)}
}

// Feed appends newly-read bytes and reassembles as many complete segments
// (and messages) as are now available.
func (d *Decoder) Feed(data []byte) error {
	d.buf = append(d.buf, data...)

	for {
		if len(d.buf) < 4 {
			return nil
		}
		hlen := int(d.buf[0])<<24 | int(d.buf[1])<<16 | int(d.buf[2])<<8 | int(d.buf[3])
		if len(d.buf) < 4+hlen {
			return nil
		}
		var h Header
		if err := cbor.Unmarshal(d.buf[4:4+hlen], &h); err != nil {
			return fmt.Errorf("ipc: decode header: %w", err)
		}
		if len(d.buf) < 4+hlen+int(h.Bytes) {
			return nil
		}
		payload := d.buf[4+hlen : 4+hlen+int(h.Bytes)]
		d.buf = d.buf[4+hlen+int(h.Bytes):]

		if err := d.applySegment(h, payload); err != nil {
			return err
		}
	}
}

func (d *Decoder) applySegment(h Header, payload []byte) error {
	p, ok := d.inflight[h.ID]
	if !ok {
		p = &pending{}
		d.inflight[h.ID] = p
	}
	p.buf = append(p.buf, payload...)

	if h.Mode == ModeEnd {
		delete(d.inflight, h.ID)
		if d.OnMessage != nil {
			return d.OnMessage(h.ID, p.buf)
		}
	}
	return nil
}
