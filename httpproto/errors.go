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

package httpproto

import (
	"fmt"

	liberr "github.com/nabbar/awh/errors"
)

const (
	ErrorMessageBroken liberr.CodeError = iota + liberr.MinPkgHttpProto
	ErrorStartLineMalformed
	ErrorHeaderTooLarge
	ErrorDuplicateContentLength
	ErrorBodyTooLarge
	ErrorAlreadyComplete
)

func init() {
	if liberr.ExistInMapMessage(ErrorMessageBroken) {
		panic(fmt.Errorf("error code collision with package awh/httpproto"))
	}
	liberr.RegisterIdFctMessage(ErrorMessageBroken, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorMessageBroken:
		return "message parser entered the broken state"
	case ErrorStartLineMalformed:
		return "start line is malformed"
	case ErrorHeaderTooLarge:
		return "header section exceeds the configured maximum size"
	case ErrorDuplicateContentLength:
		return "duplicate content-length header"
	case ErrorBodyTooLarge:
		return "body exceeds the configured maximum size"
	case ErrorAlreadyComplete:
		return "message is already complete"
	}
	return liberr.NullMessage
}
