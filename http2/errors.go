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
	"fmt"

	liberr "github.com/nabbar/awh/errors"
)

const (
	ErrorFrameMalformed liberr.CodeError = iota + liberr.MinPkgHttp2
	ErrorFrameTooLarge
	ErrorUnknownStream
	ErrorStreamClosed
	ErrorMaxStreamsExceeded
	ErrorFlowControlViolation
	ErrorGoAway
	ErrorHpackFailure
)

func init() {
	if liberr.ExistInMapMessage(ErrorFrameMalformed) {
		panic(fmt.Errorf("error code collision with package awh/http2"))
	}
	liberr.RegisterIdFctMessage(ErrorFrameMalformed, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorFrameMalformed:
		return "frame is malformed"
	case ErrorFrameTooLarge:
		return "frame exceeds the negotiated max frame size"
	case ErrorUnknownStream:
		return "frame references an unknown stream"
	case ErrorStreamClosed:
		return "stream is closed"
	case ErrorMaxStreamsExceeded:
		return "max concurrent streams exceeded"
	case ErrorFlowControlViolation:
		return "flow control window violation"
	case ErrorGoAway:
		return "session received or sent goaway"
	case ErrorHpackFailure:
		return "hpack encode/decode failure"
	}
	return liberr.NullMessage
}
