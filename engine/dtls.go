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
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"net"
	"sync"
)

// cookieSecret is rotated process-wide whenever the owning reactor rebases
// (spec Open Question: DTLS cookie secret lifetime tracks the reactor, not
// the individual broker, so a Rebase invalidates in-flight handshakes from
// before it rather than leaking a secret across process generations).
var (
	cookieMu     sync.Mutex
	cookieSecret []byte
)

// RotateCookieSecret replaces the HMAC key used to mint and check DTLS
// HelloVerifyRequest cookies. Called by reactor.Base.Rebase.
func RotateCookieSecret() error {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return err
	}
	cookieMu.Lock()
	cookieSecret = b
	cookieMu.Unlock()
	return nil
}

func currentCookieSecret() []byte {
	cookieMu.Lock()
	empty := cookieSecret == nil
	cookieMu.Unlock()

	if empty {
		_ = RotateCookieSecret()
	}

	cookieMu.Lock()
	defer cookieMu.Unlock()
	return cookieSecret
}

// MintCookie derives a stateless HelloVerifyRequest cookie from the client's
// source address, so the server need not hold per-client state before the
// client proves address ownership by echoing it back (RFC 6347 §4.2.1).
func MintCookie(addr net.Addr) []byte {
	mac := hmac.New(sha256.New, currentCookieSecret())
	mac.Write([]byte(addr.String()))
	return mac.Sum(nil)
}

// CheckCookie reports whether cookie matches the one MintCookie would
// produce for addr right now.
func CheckCookie(addr net.Addr, cookie []byte) bool {
	want := MintCookie(addr)
	return hmac.Equal(want, cookie)
}
