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
	"encoding/binary"
	"unicode/utf8"
)

// Close status codes, RFC 6455 §7.4.1. CloseNoStatus, CloseAbnormal, and
// CloseTLSHandshake are reserved for local use and must never appear on
// the wire.
const (
	CloseNormal             uint16 = 1000
	CloseGoingAway          uint16 = 1001
	CloseProtocolError      uint16 = 1002
	CloseUnsupportedData    uint16 = 1003
	CloseNoStatus           uint16 = 1005
	CloseAbnormal           uint16 = 1006
	CloseInvalidPayload     uint16 = 1007
	ClosePolicyViolation    uint16 = 1008
	CloseMessageTooBig      uint16 = 1009
	CloseMandatoryExtension uint16 = 1010
	CloseInternalError      uint16 = 1011
	CloseTLSHandshake       uint16 = 1015
)

// ParseClosePayload extracts the status code and UTF-8 reason from a
// CLOSE frame's payload. A payload shorter than 2 bytes carries no status
// code, per RFC 6455 §5.5.1.
func ParseClosePayload(p []byte) (uint16, string) {
	if len(p) < 2 {
		return CloseNoStatus, ""
	}
	return binary.BigEndian.Uint16(p), string(p[2:])
}

// BuildClosePayload serialises a CLOSE frame's status code and reason.
func BuildClosePayload(code uint16, reason string) []byte {
	out := make([]byte, 2+len(reason))
	binary.BigEndian.PutUint16(out, code)
	copy(out[2:], reason)
	return out
}

// Assembler reassembles fragmented TEXT/BINARY messages and routes
// control frames, enforcing RFC 6455's fragmentation and UTF-8 rules.
type Assembler struct {
	// MaxMessageSize bounds a reassembled message's total size; zero
	// means unlimited.
	MaxMessageSize int64

	OnMessage func(op Opcode, payload []byte) error
	OnPing    func(payload []byte) error
	OnPong    func(payload []byte) error
	OnClose   func(code uint16, reason string) error

	fragmenting bool
	fragOpcode  Opcode
	fragBuf     []byte
}

// HandleFrame feeds one decoded Frame through fragmentation reassembly
// and control-frame routing.
func (a *Assembler) HandleFrame(f Frame) error {
	switch f.Opcode {
	case OpPing:
		if a.OnPing != nil {
			return a.OnPing(f.Payload)
		}
		return nil

	case OpPong:
		if a.OnPong != nil {
			return a.OnPong(f.Payload)
		}
		return nil

	case OpClose:
		code, reason := ParseClosePayload(f.Payload)
		if a.OnClose != nil {
			return a.OnClose(code, reason)
		}
		return nil

	case OpContinuation:
		if !a.fragmenting {
			return ErrorOpcodeChangedMidMessage.Error()
		}
		a.fragBuf = append(a.fragBuf, f.Payload...)
		if a.MaxMessageSize > 0 && int64(len(a.fragBuf)) > a.MaxMessageSize {
			a.fragmenting = false
			a.fragBuf = nil
			return ErrorMessageTooLarge.Error()
		}
		if f.Fin {
			return a.complete(a.fragOpcode, a.fragBuf)
		}
		return nil

	case OpText, OpBinary:
		if a.fragmenting {
			return ErrorOpcodeChangedMidMessage.Error()
		}
		if !f.Fin {
			a.fragmenting = true
			a.fragOpcode = f.Opcode
			a.fragBuf = append([]byte{}, f.Payload...)
			return nil
		}
		return a.complete(f.Opcode, f.Payload)

	default:
		return ErrorFrameMalformed.Error()
	}
}

func (a *Assembler) complete(op Opcode, payload []byte) error {
	a.fragmenting = false
	a.fragBuf = nil

	if op == OpText && !utf8.Valid(payload) {
		return ErrorInvalidUTF8.Error()
	}
	if a.OnMessage != nil {
		return a.OnMessage(op, payload)
	}
	return nil
}
