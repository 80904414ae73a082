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

// Package auth implements the Basic (RFC 7617) and Digest (RFC 7616/2617,
// qop=auth only) HTTP authentication schemes named in spec §4.4, on top of
// the hashalgo package for every digest algorithm Digest allows.
package auth

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// BasicChallenge returns the WWW-Authenticate header value for Basic auth.
func BasicChallenge(realm string) string {
	return fmt.Sprintf(`Basic realm=%q`, realm)
}

// BasicAuthorization builds the Authorization header value a client sends.
func BasicAuthorization(username, password string) string {
	raw := username + ":" + password
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw))
}

// ParseBasic decodes an Authorization: Basic header value into its
// username/password pair.
func ParseBasic(header string) (username, password string, err error) {
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", "", fmt.Errorf("auth: not a Basic authorization header")
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil {
		return "", "", fmt.Errorf("auth: invalid Basic base64: %w", err)
	}
	idx := strings.IndexByte(string(raw), ':')
	if idx < 0 {
		return "", "", fmt.Errorf("auth: malformed Basic credentials")
	}
	return string(raw[:idx]), string(raw[idx+1:]), nil
}

// CheckBasicFunc verifies a decoded Basic username/password pair.
type CheckBasicFunc func(username, password string) bool
