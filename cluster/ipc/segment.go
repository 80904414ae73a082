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

// Package ipc implements the length-framed segment protocol the cluster
// supervisor and its workers exchange over a socketpair, per spec §4.7.
// Each logical message is chunked into bounded segments so neither side
// ever needs to buffer an unbounded read; segments of different message
// ids may interleave, reassembled by id on receive. Framing is CBOR, the
// same codec encoding/mux already uses for its own per-message envelope.
package ipc

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Mode identifies a segment's position within its message.
type Mode uint8

const (
	ModeBegin Mode = iota
	ModeContinue
	ModeEnd
)

const (
	// MaxMessage is the largest logical message this codec accepts, per
	// spec §4.7.
	MaxMessage = 1_000_000_000
	// MaxPayload is the largest per-segment payload, per spec §4.7.
	MaxPayload = 4082
)

// Header is one segment's framing metadata, matching spec §4.7's
// {id, size, bytes, mode} tuple.
type Header struct {
	ID    uint64 `cbor:"i"`
	Size  uint64 `cbor:"s"`
	Bytes uint32 `cbor:"b"`
	Mode  Mode   `cbor:"m"`
}

// Segment is one wire unit: a header plus its payload slice.
type Segment struct {
	Header  Header
	Payload []byte
}

// Encode CBOR-encodes seg as {header-cbor-length:u32}{header-cbor}{payload},
// so a streaming reader can size its next read without scanning for a
// delimiter.
func Encode(seg Segment) ([]byte, error) {
	hb, err := cbor.Marshal(seg.Header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 4+len(hb)+len(seg.Payload))
	out[0] = byte(len(hb) >> 24)
	out[1] = byte(len(hb) >> 16)
	out[2] = byte(len(hb) >> 8)
	out[3] = byte(len(hb))
	copy(out[4:], hb)
	copy(out[4+len(hb):], seg.Payload)
	return out, nil
}

// Split chunks a full message's bytes into MaxPayload-sized Segments
// tagged BEGIN/CONTINUE*/END under id, per spec §4.7.
func Split(id uint64, message []byte) ([]Segment, error) {
	if len(message) > MaxMessage {
		return nil, fmt.Errorf("ipc: message of %d bytes exceeds MaxMessage", len(message))
	}

	if len(message) == 0 {
		return []Segment{{Header: Header{ID: id, Size: 0, Bytes: 0, Mode: ModeEnd}}}, nil
	}

	var segs []Segment
	total := uint64(len(message))
	for off := 0; off < len(message); off += MaxPayload {
		end := off + MaxPayload
		if end > len(message) {
			end = len(message)
		}
		mode := ModeContinue
		switch {
		case off == 0 && end == len(message):
			mode = ModeEnd
		case off == 0:
			mode = ModeBegin
		case end == len(message):
			mode = ModeEnd
		}
		segs = append(segs, Segment{
			Header:  Header{ID: id, Size: total, Bytes: uint32(end - off), Mode: mode},
			Payload: message[off:end],
		})
	}
	return segs, nil
}
