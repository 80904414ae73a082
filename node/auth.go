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

package node

import (
	"github.com/nabbar/awh/hashalgo"
	"github.com/nabbar/awh/httpproto"
	"github.com/nabbar/awh/httpproto/auth"
)

// AuthScheme selects the HTTP authentication a ServerNode enforces ahead
// of OnHTTP1Request, per spec §4.4.
type AuthScheme uint8

const (
	// AuthNone serves every request unauthenticated.
	AuthNone AuthScheme = iota
	// AuthBasic enforces RFC 7617 Basic authentication.
	AuthBasic
	// AuthDigest enforces RFC 7616/2617 Digest authentication (qop=auth).
	AuthDigest
)

// ServerAuth is a ServerConfig's authentication policy.
type ServerAuth struct {
	Scheme AuthScheme
	Realm  string

	// CheckBasic verifies a decoded Basic username/password pair. Required
	// when Scheme is AuthBasic.
	CheckBasic auth.CheckBasicFunc

	// Password looks up the plaintext password backing username, for
	// Digest's HA1 recomputation. Required when Scheme is AuthDigest.
	Password func(username string) (password string, ok bool)

	// DigestKind selects the Digest hash algorithm advertised in the
	// challenge; the zero value is hashalgo.KindMD5, RFC 2617's default.
	DigestKind hashalgo.Kind

	// Nonces backs Digest nonce issuance/replay rejection. A nil Nonces
	// is lazily replaced with auth.NewNonceStore(0) the first time a
	// ServerNode configured with this ServerAuth arms AuthDigest.
	Nonces *auth.NonceStore
}

// challenge writes a 401 Unauthorized response carrying the appropriate
// WWW-Authenticate challenge onto b.
func (a *ServerAuth) challenge(b writer, stale bool) {
	resp := &httpproto.Message{Proto: "HTTP/1.1", StatusCode: 401, Reason: "Unauthorized"}
	switch a.Scheme {
	case AuthBasic:
		resp.Header.Set("WWW-Authenticate", auth.BasicChallenge(a.Realm))
	case AuthDigest:
		nonce, opaque, err := a.Nonces.Issue()
		if err != nil {
			resp.StatusCode = 500
			resp.Reason = "Internal Server Error"
			b.Queue(resp.WriteStartAndHeaders())
			return
		}
		resp.Header.Set("WWW-Authenticate", auth.DigestChallenge(a.Realm, a.DigestKind, nonce, opaque, stale))
	}
	resp.Header.Set("Content-Length", "0")
	b.Queue(resp.WriteStartAndHeaders())
}

// forbidden writes a bare 403 Forbidden response onto b.
func forbidden(b writer) {
	resp := &httpproto.Message{Proto: "HTTP/1.1", StatusCode: 403, Reason: "Forbidden"}
	resp.Header.Set("Content-Length", "0")
	b.Queue(resp.WriteStartAndHeaders())
}

// writer is the subset of *scheme.Broker this package exercises for
// writing a synthesized response, kept narrow so auth.go needs no import
// of the scheme package solely to name the concrete type.
type writer interface {
	Queue(p []byte)
}

// verify reports whether req carries a satisfactory Authorization header
// for a's policy; when it returns false it has already written the
// appropriate 401/403 response onto b and the caller must not also invoke
// its request handler.
func (a *ServerAuth) verify(b writer, req *httpproto.Message) bool {
	if a == nil || a.Scheme == AuthNone {
		return true
	}

	hdr := req.Header.Get("Authorization")

	switch a.Scheme {
	case AuthBasic:
		if hdr == "" {
			a.challenge(b, false)
			return false
		}
		username, password, err := auth.ParseBasic(hdr)
		if err != nil || a.CheckBasic == nil || !a.CheckBasic(username, password) {
			a.challenge(b, false)
			return false
		}
		return true

	case AuthDigest:
		if a.Nonces == nil {
			a.Nonces = auth.NewNonceStore(0)
		}
		if hdr == "" {
			a.challenge(b, false)
			return false
		}
		params, err := auth.ParseDigestAuthorization(hdr)
		if err != nil {
			a.challenge(b, false)
			return false
		}
		stale, ok := a.Nonces.Validate(params["nonce"], params["nc"])
		if !ok {
			a.challenge(b, stale)
			return false
		}
		if a.Password == nil {
			forbidden(b)
			return false
		}
		password, found := a.Password(params["username"])
		if !found {
			forbidden(b)
			return false
		}
		match, err := auth.VerifyDigest(params, password, req.Method)
		if err != nil || !match {
			a.Nonces.Forget(params["nonce"])
			forbidden(b)
			return false
		}
		return true
	}
	return true
}
