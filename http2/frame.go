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

// Package http2 implements RFC 7540 framing/flow-control/HPACK multiplexing
// behind the same send-headers/send-data/send-trailers surface httpproto
// exposes for HTTP/1.1, so the protocol switch is invisible to a Node.
package http2

import (
	"encoding/binary"
)

// FrameKind is an HTTP/2 frame type (RFC 7540 §6).
type FrameKind uint8

const (
	FrameData FrameKind = iota
	FrameHeaders
	FramePriority
	FrameRstStream
	FrameSettings
	FramePushPromise
	FramePing
	FrameGoAway
	FrameWindowUpdate
	FrameContinuation
)

// Flags, shared across frame kinds per RFC 7540 §6.
const (
	FlagEndStream  uint8 = 0x1
	FlagEndHeaders uint8 = 0x4
	FlagPadded     uint8 = 0x8
	FlagPriority   uint8 = 0x20
	FlagAck        uint8 = 0x1
)

// FrameHeader is the common 9-byte prefix of every frame.
type FrameHeader struct {
	Length   uint32 // 24 bits
	Kind     FrameKind
	Flags    uint8
	StreamID uint32 // 31 bits, high bit reserved
}

const frameHeaderLen = 9

// EncodeFrameHeader writes h's 9-byte wire form.
func EncodeFrameHeader(h FrameHeader) []byte {
	b := make([]byte, frameHeaderLen)
	b[0] = byte(h.Length >> 16)
	b[1] = byte(h.Length >> 8)
	b[2] = byte(h.Length)
	b[3] = byte(h.Kind)
	b[4] = h.Flags
	binary.BigEndian.PutUint32(b[5:], h.StreamID&0x7fffffff)
	return b
}

// DecodeFrameHeader parses the 9-byte prefix of b.
func DecodeFrameHeader(b []byte) (FrameHeader, error) {
	if len(b) < frameHeaderLen {
		return FrameHeader{}, ErrorFrameMalformed.Error()
	}
	return FrameHeader{
		Length:   uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]),
		Kind:     FrameKind(b[3]),
		Flags:    b[4],
		StreamID: binary.BigEndian.Uint32(b[5:9]) & 0x7fffffff,
	}, nil
}

// Frame is a decoded HTTP/2 frame: header plus raw, un-depadded payload.
type Frame struct {
	FrameHeader
	Payload []byte
}

// stripPadding removes PADDED framing (RFC 7540 §6.1/§6.2: one pad-length
// byte followed by that many trailing zero bytes) from payload, returning
// the unpadded body.
func stripPadding(flags uint8, payload []byte) ([]byte, error) {
	if flags&FlagPadded == 0 {
		return payload, nil
	}
	if len(payload) < 1 {
		return nil, ErrorFrameMalformed.Error()
	}
	padLen := int(payload[0])
	body := payload[1:]
	if padLen > len(body) {
		return nil, ErrorFrameMalformed.Error()
	}
	return body[:len(body)-padLen], nil
}

// GoAwayPayload parses a GOAWAY frame's payload.
func GoAwayPayload(payload []byte) (lastStreamID uint32, code uint32, debug []byte, err error) {
	if len(payload) < 8 {
		return 0, 0, nil, ErrorFrameMalformed.Error()
	}
	lastStreamID = binary.BigEndian.Uint32(payload[0:4]) & 0x7fffffff
	code = binary.BigEndian.Uint32(payload[4:8])
	debug = payload[8:]
	return
}

// EncodeGoAway builds a GOAWAY frame's payload.
func EncodeGoAway(lastStreamID, code uint32, debug []byte) []byte {
	b := make([]byte, 8+len(debug))
	binary.BigEndian.PutUint32(b[0:4], lastStreamID&0x7fffffff)
	binary.BigEndian.PutUint32(b[4:8], code)
	copy(b[8:], debug)
	return b
}

// WindowUpdatePayload parses a WINDOW_UPDATE frame's payload.
func WindowUpdatePayload(payload []byte) (increment uint32, err error) {
	if len(payload) != 4 {
		return 0, ErrorFrameMalformed.Error()
	}
	return binary.BigEndian.Uint32(payload) & 0x7fffffff, nil
}

// EncodeWindowUpdate builds a WINDOW_UPDATE frame's payload.
func EncodeWindowUpdate(increment uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, increment&0x7fffffff)
	return b
}

// RstStreamPayload parses a RST_STREAM frame's payload.
func RstStreamPayload(payload []byte) (code uint32, err error) {
	if len(payload) != 4 {
		return 0, ErrorFrameMalformed.Error()
	}
	return binary.BigEndian.Uint32(payload), nil
}

// EncodeRstStream builds a RST_STREAM frame's payload.
func EncodeRstStream(code uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, code)
	return b
}

// PingPayload is always 8 opaque bytes (RFC 7540 §6.7).
const PingPayloadLen = 8
