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

package websocket

import (
	"crypto/rand"
	"encoding/binary"
)

// Opcode identifies a frame's payload interpretation, RFC 6455 §5.2.
type Opcode uint8

const (
	OpContinuation Opcode = 0x0
	OpText         Opcode = 0x1
	OpBinary       Opcode = 0x2
	OpClose        Opcode = 0x8
	OpPing         Opcode = 0x9
	OpPong         Opcode = 0xA
)

// IsControl reports whether op is a control opcode (CLOSE/PING/PONG),
// which RFC 6455 forbids fragmenting.
func (op Opcode) IsControl() bool {
	return op >= OpClose
}

// Frame is one decoded (or to-be-encoded) WebSocket frame.
type Frame struct {
	Fin     bool
	RSV1    bool
	RSV2    bool
	RSV3    bool
	Opcode  Opcode
	Masked  bool
	MaskKey [4]byte
	Payload []byte
}

// Encode serialises f to wire bytes. If f.Masked is set and MaskKey is
// the zero value, a fresh random key is generated and applied - client
// frames must always be masked per RFC 6455 §5.1.
func (f *Frame) Encode() ([]byte, error) {
	if f.Masked && f.MaskKey == ([4]byte{}) {
		if _, err := rand.Read(f.MaskKey[:]); err != nil {
			return nil, err
		}
	}

	out := make([]byte, 0, len(f.Payload)+14)

	b0 := byte(f.Opcode)
	if f.Fin {
		b0 |= 0x80
	}
	if f.RSV1 {
		b0 |= 0x40
	}
	if f.RSV2 {
		b0 |= 0x20
	}
	if f.RSV3 {
		b0 |= 0x10
	}
	out = append(out, b0)

	n := len(f.Payload)
	maskBit := byte(0)
	if f.Masked {
		maskBit = 0x80
	}

	switch {
	case n <= 125:
		out = append(out, maskBit|byte(n))
	case n <= 0xFFFF:
		out = append(out, maskBit|126)
		var ext [2]byte
		binary.BigEndian.PutUint16(ext[:], uint16(n))
		out = append(out, ext[:]...)
	default:
		out = append(out, maskBit|127)
		var ext [8]byte
		binary.BigEndian.PutUint64(ext[:], uint64(n))
		out = append(out, ext[:]...)
	}

	if f.Masked {
		out = append(out, f.MaskKey[:]...)
		masked := make([]byte, n)
		applyMask(masked, f.Payload, f.MaskKey)
		out = append(out, masked...)
	} else {
		out = append(out, f.Payload...)
	}

	return out, nil
}

func applyMask(dst, src []byte, key [4]byte) {
	for i := range src {
		dst[i] = src[i] ^ key[i%4]
	}
}

// Decoder incrementally parses a byte stream into Frames, buffering any
// partial frame until enough bytes have arrived. expectMasked gates
// whether an unmasked (server-received-from-client expects masked=true)
// or masked (client-received-from-server expects masked=false) frame is
// rejected with ErrorMaskingMismatch.
type Decoder struct {
	buf           []byte
	ExpectMasked  bool
	AllowReserved bool
	OnFrame       func(Frame) error
}

// Feed appends data and emits every complete frame it can parse via
// OnFrame, leaving any trailing partial frame buffered for the next Feed.
func (d *Decoder) Feed(data []byte) error {
	d.buf = append(d.buf, data...)

	for {
		f, n, ok, err := d.parseOne(d.buf)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		d.buf = d.buf[n:]
		if d.OnFrame != nil {
			if err = d.OnFrame(f); err != nil {
				return err
			}
		}
	}
}

func (d *Decoder) parseOne(buf []byte) (Frame, int, bool, error) {
	if len(buf) < 2 {
		return Frame{}, 0, false, nil
	}

	b0, b1 := buf[0], buf[1]
	f := Frame{
		Fin:    b0&0x80 != 0,
		RSV1:   b0&0x40 != 0,
		RSV2:   b0&0x20 != 0,
		RSV3:   b0&0x10 != 0,
		Opcode: Opcode(b0 & 0x0F),
		Masked: b1&0x80 != 0,
	}

	if (f.RSV1 || f.RSV2 || f.RSV3) && !d.AllowReserved {
		return Frame{}, 0, false, ErrorReservedBitSet.Error()
	}
	if f.Masked != d.ExpectMasked {
		return Frame{}, 0, false, ErrorMaskingMismatch.Error()
	}

	ln := int64(b1 & 0x7F)
	off := 2

	switch ln {
	case 126:
		if len(buf) < off+2 {
			return Frame{}, 0, false, nil
		}
		ln = int64(binary.BigEndian.Uint16(buf[off:]))
		off += 2
	case 127:
		if len(buf) < off+8 {
			return Frame{}, 0, false, nil
		}
		ln = int64(binary.BigEndian.Uint64(buf[off:]))
		off += 8
	}

	if f.Opcode.IsControl() && (!f.Fin || ln > 125) {
		if !f.Fin {
			return Frame{}, 0, false, ErrorControlFrameFragmented.Error()
		}
		return Frame{}, 0, false, ErrorControlFrameTooLarge.Error()
	}

	if f.Masked {
		if len(buf) < off+4 {
			return Frame{}, 0, false, nil
		}
		copy(f.MaskKey[:], buf[off:off+4])
		off += 4
	}

	total := off + int(ln)
	if len(buf) < total {
		return Frame{}, 0, false, nil
	}

	payload := make([]byte, ln)
	copy(payload, buf[off:total])
	if f.Masked {
		applyMask(payload, payload, f.MaskKey)
	}
	f.Payload = payload

	return f, total, true, nil
}
