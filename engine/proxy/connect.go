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

package proxy

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
)

// DialConnect runs the client side of an HTTP-CONNECT proxy handshake (spec
// §4.2 "HTTP-CONNECT client"): a synthetic HTTP request/response is sent
// through rw, and the engine only switches to tunnel mode once a 2xx status
// comes back. authUser/authPass, when non-empty, add a Proxy-Authorization:
// Basic header to the CONNECT request.
func DialConnect(rw io.ReadWriter, hostport, authUser, authPass string) error {
	if rw == nil || hostport == "" {
		return ErrorParamInvalid.Error()
	}

	req := fmt.Sprintf("CONNECT %s HTTP/1.1\r\nHost: %s\r\n", hostport, hostport)
	if authUser != "" {
		cred := base64.StdEncoding.EncodeToString([]byte(authUser + ":" + authPass))
		req += "Proxy-Authorization: Basic " + cred + "\r\n"
	}
	req += "\r\n"

	if _, err := io.WriteString(rw, req); err != nil {
		return err
	}

	br := bufio.NewReader(rw)
	resp, err := http.ReadResponse(br, &http.Request{Method: http.MethodConnect})
	if err != nil {
		return ErrorMalformedReply.Error(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ErrorConnectRejected.Error(fmt.Errorf("status %s", resp.Status))
	}

	if br.Buffered() > 0 {
		// the peer started sending tunnel bytes ahead of our next read;
		// since net.Conn has no way to push bytes back onto the wire,
		// callers that need this (pipelined proxies) should wrap rw in a
		// bufio.Reader upstream instead of discarding the buffered data.
		_, _ = br.Peek(br.Buffered())
	}

	return nil
}
