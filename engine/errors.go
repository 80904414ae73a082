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

package engine

import (
	"fmt"

	liberr "github.com/nabbar/awh/errors"
)

// Error codes for the engine package.
const (
	ErrorParamEmpty liberr.CodeError = iota + liberr.MinPkgEngine
	ErrorParamInvalid
	ErrorWouldBlock
	ErrorClosed
	ErrorHandshake
	ErrorMatchNotFound
	ErrorMalformedCertificate
	ErrorNoSANPresent
	ErrorProxyHandshake
)

func init() {
	if liberr.ExistInMapMessage(ErrorParamEmpty) {
		panic(fmt.Errorf("error code collision with package awh/engine"))
	}
	liberr.RegisterIdFctMessage(ErrorParamEmpty, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorParamEmpty:
		return "at least one given parameters is empty"
	case ErrorParamInvalid:
		return "at least one given parameters is invalid"
	case ErrorWouldBlock:
		return "operation would block"
	case ErrorClosed:
		return "engine is closed"
	case ErrorHandshake:
		return "tls handshake failed"
	case ErrorMatchNotFound:
		return "peer certificate does not match requested hostname"
	case ErrorMalformedCertificate:
		return "peer certificate is malformed"
	case ErrorNoSANPresent:
		return "peer certificate has no subject alternative name"
	case ErrorProxyHandshake:
		return "proxy handshake failed"
	}

	return liberr.NullMessage
}

// IsWouldBlock reports whether err signals a non-blocking read/write that
// has no data ready yet; the reactor re-arms the matching direction and
// retries instead of treating this as a failure.
func IsWouldBlock(err error) bool {
	return liberr.Has(err, ErrorWouldBlock)
}
