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
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"strings"
	"time"
)

// handshakeTimeout bounds a single non-blocking handshake step; callers in
// non-blocking mode are expected to retry UpgradeTLS on WouldBlock as the
// reactor re-arms the socket, exactly like Read/Write.
const handshakeTimeout = 5 * time.Second

// UpgradeTLS drives the TLS handshake on top of the engine's current
// connection. The handshake itself is delegated to crypto/tls (via
// certificates.TLSConfig.TLS), but hostname verification is always redone
// manually against spec §4.2's rules so the failure modes
// (MatchNotFound/NoSANPresent/MalformedCertificate) are consistent no matter
// which TLS stack backs cfg.
func (e *engine) UpgradeTLS(cfg TLSParams, isClient bool) error {
	e.mu.Lock()
	conn := e.conn
	block := e.block
	e.mu.Unlock()

	if conn == nil {
		return ErrorClosed.Error()
	}
	if cfg == nil {
		return ErrorParamEmpty.Error()
	}

	serverName := ""
	if ra, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		serverName = ra.IP.String()
	}

	base := cfg.TLS(serverName)
	if base == nil {
		return ErrorParamInvalid.Error()
	}

	tc := base.Clone()
	// hostname verification is done by verifyHostname below; do not let
	// crypto/tls's own (stricter, no-wildcard-label-parsing) matcher abort
	// the handshake before our rules get a chance to run.
	requestedName := tc.ServerName
	tc.InsecureSkipVerify = true

	var tconn *tls.Conn
	if isClient {
		tconn = tls.Client(conn, tc)
	} else {
		tconn = tls.Server(conn, tc)
	}

	if !block {
		_ = conn.SetDeadline(time.Now().Add(handshakeTimeout))
	}

	if err := tconn.HandshakeContext(context.Background()); err != nil {
		if isTimeout(err) && !block {
			return ErrorWouldBlock.Error(err)
		}
		return ErrorHandshake.Error(err)
	}
	if !block {
		_ = conn.SetDeadline(time.Time{})
	}

	state := tconn.ConnectionState()

	if isClient && requestedName != "" {
		if err := verifyHostname(state.PeerCertificates, requestedName); err != nil {
			return err
		}
		if err := verifyChain(state.PeerCertificates, base.RootCAs, requestedName); err != nil {
			return err
		}
	}

	e.mu.Lock()
	e.tlsConn = tconn
	e.state = &state
	e.mu.Unlock()

	return nil
}

// verifyChain re-runs x509 chain verification explicitly (InsecureSkipVerify
// disabled crypto/tls's own pass) so a client always validates against its
// configured root pool even though hostname matching is handled separately.
func verifyChain(certs []*x509.Certificate, roots *x509.CertPool, serverName string) error {
	if len(certs) == 0 {
		return ErrorMalformedCertificate.Error()
	}

	opts := x509.VerifyOptions{
		Roots:         roots,
		Intermediates: x509.NewCertPool(),
	}
	for _, c := range certs[1:] {
		opts.Intermediates.AddCert(c)
	}

	if _, err := certs[0].Verify(opts); err != nil {
		return ErrorMatchNotFound.Error(err)
	}
	return nil
}

// verifyHostname implements spec §4.2's client hostname match: SAN dNSName
// and iPAddress entries first, CN fallback only when SAN is entirely
// absent, wildcard rules restricted to a whole leftmost label ("*" matches
// exactly one label, never a dot, never a partial label).
func verifyHostname(certs []*x509.Certificate, host string) error {
	if len(certs) == 0 {
		return ErrorMalformedCertificate.Error()
	}
	leaf := certs[0]
	host = strings.TrimSuffix(strings.ToLower(host), ".")

	if ip := net.ParseIP(host); ip != nil {
		for _, cip := range leaf.IPAddresses {
			if cip.Equal(ip) {
				return nil
			}
		}
		if len(leaf.DNSNames) == 0 && len(leaf.IPAddresses) == 0 {
			return ErrorNoSANPresent.Error()
		}
		return ErrorMatchNotFound.Error()
	}

	if len(leaf.DNSNames) == 0 {
		if leaf.Subject.CommonName == "" {
			return ErrorNoSANPresent.Error()
		}
		if matchHostname(leaf.Subject.CommonName, host) {
			return nil
		}
		return ErrorMatchNotFound.Error()
	}

	for _, name := range leaf.DNSNames {
		if matchHostname(name, host) {
			return nil
		}
	}
	return ErrorMatchNotFound.Error()
}

// matchHostname applies the single-leftmost-label wildcard rule: "*" may
// replace only the first label in its entirety and never spans a dot.
func matchHostname(pattern, host string) bool {
	pattern = strings.TrimSuffix(strings.ToLower(pattern), ".")
	if pattern == host {
		return true
	}
	if !strings.HasPrefix(pattern, "*.") {
		return false
	}

	patLabels := strings.Split(pattern, ".")
	hostLabels := strings.Split(host, ".")
	if len(patLabels) != len(hostLabels) {
		return false
	}
	if hostLabels[0] == "" {
		return false
	}
	for i := 1; i < len(patLabels); i++ {
		if patLabels[i] != hostLabels[i] {
			return false
		}
	}
	return true
}
