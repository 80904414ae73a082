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

package hashalgo

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
)

const websocketGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// WebSocketAccept derives the Sec-WebSocket-Accept value from a client's
// Sec-WebSocket-Key per RFC 6455 §1.3: base64(SHA1(key + GUID)).
func WebSocketAccept(key string) (string, error) {
	sum, err := KindSHA1.Sum([]byte(key + websocketGUID))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sum), nil
}

// hexSum lowercases the hex encoding of k.Sum(p), matching RFC 2617/7616's
// wire representation of every digest component.
func (k Kind) hexSum(parts ...string) (string, error) {
	sum, err := k.Sum([]byte(strings.Join(parts, ":")))
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sum), nil
}

// DigestHA1 computes RFC 7616's A1 hash: H(username:realm:password), or for
// the "-sess" algorithm variants H(H(username:realm:password):nonce:cnonce)
// when sess is true.
func DigestHA1(k Kind, username, realm, password, nonce, cnonce string, sess bool) (string, error) {
	ha1, err := k.hexSum(username, realm, password)
	if err != nil {
		return "", err
	}
	if !sess {
		return ha1, nil
	}
	return k.hexSum(ha1, nonce, cnonce)
}

// DigestHA2 computes RFC 7616's A2 hash for qop=auth: H(method:uri). The
// qop=auth-int variant (H(method:uri:H(entityBody))) is not implemented,
// matching spec §4.4's scope (qop=auth only).
func DigestHA2(k Kind, method, uri string) (string, error) {
	return k.hexSum(method, uri)
}

// DigestResponse computes the final "response" field of a Digest
// Authorization header: H(HA1:nonce:nc:cnonce:qop:HA2).
func DigestResponse(k Kind, ha1, nonce, nc, cnonce, qop, ha2 string) (string, error) {
	return k.hexSum(ha1, nonce, nc, cnonce, qop, ha2)
}
