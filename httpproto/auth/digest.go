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

package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nabbar/awh/hashalgo"
)

// DefaultNonceTTL is the lifetime a server-issued nonce remains valid
// before a replay is answered with stale=true, per spec §4.4.
const DefaultNonceTTL = 30 * time.Minute

type nonceEntry struct {
	issued time.Time
	lastNC uint64
}

// NonceStore issues and validates server-side Digest nonces, rejecting
// replayed or non-monotonic nonce-counts.
type NonceStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]*nonceEntry
}

// NewNonceStore returns a NonceStore with the given TTL; ttl <= 0 uses
// DefaultNonceTTL.
func NewNonceStore(ttl time.Duration) *NonceStore {
	if ttl <= 0 {
		ttl = DefaultNonceTTL
	}
	return &NonceStore{ttl: ttl, entries: make(map[string]*nonceEntry)}
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Issue mints a fresh nonce/opaque pair and registers it for validation.
func (s *NonceStore) Issue() (nonce, opaque string, err error) {
	nonce, err = randomHex(16)
	if err != nil {
		return "", "", err
	}
	opaque, err = randomHex(8)
	if err != nil {
		return "", "", err
	}
	s.mu.Lock()
	s.entries[nonce] = &nonceEntry{issued: time.Now()}
	s.mu.Unlock()
	return nonce, opaque, nil
}

// Validate checks a (nonce, nc) pair from a client's response: ok is
// false whenever the request must be rejected; stale is true when the
// reason is nonce expiry, which the server should report with
// stale=true so the client can retry without re-prompting the user.
func (s *NonceStore) Validate(nonce, nc string) (stale bool, ok bool) {
	n, err := strconv.ParseUint(nc, 16, 64)
	if err != nil {
		return false, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, found := s.entries[nonce]
	if !found {
		return false, false
	}
	if time.Since(e.issued) > s.ttl {
		delete(s.entries, nonce)
		return true, false
	}
	if n <= e.lastNC {
		return false, false
	}
	e.lastNC = n
	return false, true
}

// Forget drops a nonce, e.g. once a connection using it closes.
func (s *NonceStore) Forget(nonce string) {
	s.mu.Lock()
	delete(s.entries, nonce)
	s.mu.Unlock()
}

// DigestChallenge builds the WWW-Authenticate header value a server
// sends to start (or retry, with stale=true) a Digest exchange.
func DigestChallenge(realm string, alg hashalgo.Kind, nonce, opaque string, stale bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `Digest realm=%q, qop="auth", algorithm=%s, nonce=%q, opaque=%q`,
		realm, alg.String(), nonce, opaque)
	if stale {
		sb.WriteString(`, stale=true`)
	}
	return sb.String()
}

// ParseDigestAuthorization splits an Authorization: Digest header value
// into its comma-separated key=value (optionally quoted) parameters.
func ParseDigestAuthorization(header string) (map[string]string, error) {
	const prefix = "Digest "
	if !strings.HasPrefix(header, prefix) {
		return nil, fmt.Errorf("auth: not a Digest authorization header")
	}
	out := make(map[string]string)
	for _, part := range splitDigestParams(strings.TrimPrefix(header, prefix)) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.IndexByte(part, '=')
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(part[:idx])
		val := strings.Trim(strings.TrimSpace(part[idx+1:]), `"`)
		out[key] = val
	}
	if out["username"] == "" || out["nonce"] == "" || out["response"] == "" {
		return nil, fmt.Errorf("auth: missing required Digest parameter")
	}
	return out, nil
}

// splitDigestParams splits on commas that are not inside a quoted value.
func splitDigestParams(s string) []string {
	var out []string
	inQuotes := false
	start := 0
	for i, r := range s {
		switch r {
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}

// VerifyDigest recomputes the expected Digest response from params and
// the account's password, and reports whether it matches what the
// client sent.
func VerifyDigest(params map[string]string, password, method string) (bool, error) {
	kind := hashalgo.KindMD5
	if alg, ok := params["algorithm"]; ok && alg != "" {
		base := strings.TrimSuffix(alg, "-sess")
		k, err := hashalgo.ParseKind(base)
		if err != nil {
			return false, err
		}
		kind = k
	}
	sess := strings.HasSuffix(params["algorithm"], "-sess")

	ha1, err := hashalgo.DigestHA1(kind, params["username"], params["realm"], password, params["nonce"], params["cnonce"], sess)
	if err != nil {
		return false, err
	}
	ha2, err := hashalgo.DigestHA2(kind, method, params["uri"])
	if err != nil {
		return false, err
	}
	qop := params["qop"]
	if qop == "" {
		qop = "auth"
	}
	expected, err := hashalgo.DigestResponse(kind, ha1, params["nonce"], params["nc"], params["cnonce"], qop, ha2)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(expected, params["response"]), nil
}

// BuildDigestAuthorization assembles the Authorization header value a
// client sends in reply to a DigestChallenge.
func BuildDigestAuthorization(kind hashalgo.Kind, username, realm, password, method, uri, nonce, nc, cnonce, opaque string, sess bool) (string, error) {
	ha1, err := hashalgo.DigestHA1(kind, username, realm, password, nonce, cnonce, sess)
	if err != nil {
		return "", err
	}
	ha2, err := hashalgo.DigestHA2(kind, method, uri)
	if err != nil {
		return "", err
	}
	response, err := hashalgo.DigestResponse(kind, ha1, nonce, nc, cnonce, "auth", ha2)
	if err != nil {
		return "", err
	}
	alg := kind.String()
	if sess {
		alg += "-sess"
	}
	return fmt.Sprintf(
		`Digest username=%q, realm=%q, nonce=%q, uri=%q, qop=auth, nc=%s, cnonce=%q, response=%q, opaque=%q, algorithm=%s`,
		username, realm, nonce, uri, nc, cnonce, response, opaque, alg,
	), nil
}
