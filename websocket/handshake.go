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
	"encoding/base64"

	"github.com/nabbar/awh/hashalgo"
)

// NewClientKey generates a fresh random Sec-WebSocket-Key value.
func NewClientKey() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Accept derives the Sec-WebSocket-Accept header value a server returns
// for a client's Sec-WebSocket-Key.
func Accept(key string) (string, error) {
	return hashalgo.WebSocketAccept(key)
}

// VerifyAccept checks a server's Sec-WebSocket-Accept value against the
// key the client sent.
func VerifyAccept(key, accept string) error {
	want, err := hashalgo.WebSocketAccept(key)
	if err != nil {
		return err
	}
	if want != accept {
		return ErrorHandshakeKeyMismatch.Error()
	}
	return nil
}
