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

// Package engine hides the difference between plain and TLS sockets behind
// a single non-blocking-friendly read/write surface.
//
// An Engine binds to an already-connected net.Conn (dialed or accepted by
// the scheme layer) and optionally drives a TLS handshake on top of it,
// including manual SAN/CN hostname verification with wildcard matching so
// callers see the same MatchNotFound/NoSANPresent/MalformedCertificate
// failure modes regardless of which TLS stack is behind certificates.TLSConfig.
//
// Subpackage proxy implements the SOCKS5 and HTTP-CONNECT client handshakes
// that run before an Engine switches its plain bytes to refer to a proxied
// target.
package engine
