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

// Package websocket implements RFC 6455 frame encoding/decoding, message
// fragmentation, PING/PONG/CLOSE handling, and the RFC 7692
// permessage-deflate extension, driven incrementally off a scheme.Broker's
// non-blocking reads (spec §4.6).
package websocket

import (
	"fmt"

	liberr "github.com/nabbar/awh/errors"
)

const (
	ErrorFrameMalformed liberr.CodeError = iota + liberr.MinPkgWebsocket
	ErrorReservedBitSet
	ErrorMaskingMismatch
	ErrorControlFrameFragmented
	ErrorControlFrameTooLarge
	ErrorOpcodeChangedMidMessage
	ErrorMessageTooLarge
	ErrorInvalidUTF8
	ErrorHandshakeKeyMismatch
)

func init() {
	if liberr.ExistInMapMessage(ErrorFrameMalformed) {
		panic(fmt.Errorf("error code collision with package awh/websocket"))
	}
	liberr.RegisterIdFctMessage(ErrorFrameMalformed, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorFrameMalformed:
		return "frame is malformed"
	case ErrorReservedBitSet:
		return "reserved bit set without a negotiated extension"
	case ErrorMaskingMismatch:
		return "frame masking does not match the expected direction"
	case ErrorControlFrameFragmented:
		return "control frames must not be fragmented"
	case ErrorControlFrameTooLarge:
		return "control frame payload exceeds 125 bytes"
	case ErrorOpcodeChangedMidMessage:
		return "continuation frame changed opcode mid-message"
	case ErrorMessageTooLarge:
		return "message exceeds the configured maximum size"
	case ErrorInvalidUTF8:
		return "text frame payload is not valid UTF-8"
	case ErrorHandshakeKeyMismatch:
		return "Sec-WebSocket-Accept does not match the derived key"
	}
	return liberr.NullMessage
}
