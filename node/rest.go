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
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nabbar/awh/httpproto"
)

// restResult pairs a parsed response with its (already inflated) body, the
// unit RestClient.Do waits for.
type restResult struct {
	resp *httpproto.Message
	body []byte
}

// RestClient is a thin JSON convenience layer over a ClientNode running
// ProtocolHTTP1, mirroring the single request/response helper the original
// anyks/awh C++ client keeps over its own HTTP node (original_source's
// include/client/rest.hpp). One RestClient serves one in-flight request at
// a time; callers needing concurrency should run several.
type RestClient struct {
	node *ClientNode

	mu   sync.Mutex
	wait chan restResult
}

// NewRestClient wraps an already-built ClientNode configured for
// ProtocolHTTP1. The node's OnHTTP1Response callback is taken over by
// RestClient; callers needing the raw Message stream directly should not
// mix it with RestClient.Do on the same node.
func NewRestClient(n *ClientNode) *RestClient {
	r := &RestClient{node: n}
	n.cb.OnHTTP1Response = r.onResponse
	return r
}

func (r *RestClient) onResponse(resp *httpproto.Message, body []byte) error {
	r.mu.Lock()
	w := r.wait
	r.wait = nil
	r.mu.Unlock()
	if w != nil {
		w <- restResult{resp: resp, body: body}
	}
	return nil
}

// Do issues method/path with an optional JSON-encoded body, waits up to
// timeout for the matching response, and JSON-decodes its body into out
// (skipped when out is nil). The response's body bytes are accumulated via
// a temporary OnChunk hook installed for the duration of this call.
func (r *RestClient) Do(method, path string, in interface{}, out interface{}, timeout time.Duration) (*httpproto.Message, error) {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, ErrorParamInvalid.Error(err)
		}
		payload = b
	}

	req := &httpproto.Message{
		IsRequest: true,
		Method:    method,
		URI:       path,
		Proto:     "HTTP/1.1",
	}
	req.Header.Set("Host", r.node.hostHeader())
	if len(payload) > 0 {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Content-Length", fmt.Sprintf("%d", len(payload)))
	}

	r.mu.Lock()
	w := make(chan restResult, 1)
	r.wait = w
	r.mu.Unlock()

	if err := r.node.SendHTTP1Request(req, payload); err != nil {
		return nil, err
	}

	select {
	case res := <-w:
		if out != nil && len(res.body) > 0 {
			if err := json.Unmarshal(res.body, out); err != nil {
				return res.resp, ErrorParamInvalid.Error(err)
			}
		}
		return res.resp, nil
	case <-time.After(timeout):
		return nil, ErrorRequestTimeout.Error()
	}
}
