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
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/nabbar/awh/httpproto"
	"github.com/nabbar/awh/httpproto/compress"
)

// DefaultCompressPriority is the Content-Encoding preference order a node
// advertises on outgoing requests and negotiates for outgoing responses
// when a ClientConfig/ServerConfig leaves CompressPriority nil, per spec
// §4.4. httpproto/message.go documents compression as "streamed separately
// by the caller"; a Node is that caller.
var DefaultCompressPriority = []compress.Coding{compress.Brotli, compress.Gzip, compress.Deflate}

// acceptEncodingHeader renders priority as an Accept-Encoding header value,
// most preferred first.
func acceptEncodingHeader(priority []compress.Coding) string {
	if len(priority) == 0 {
		priority = DefaultCompressPriority
	}
	toks := make([]string, 0, len(priority))
	for _, c := range priority {
		toks = append(toks, string(c))
	}
	return strings.Join(toks, ", ")
}

// decodeBody inflates raw per msg's Content-Encoding header, returning raw
// unchanged when the header is absent, Identity, or unrecognized.
func decodeBody(msg *httpproto.Message, raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return raw, nil
	}
	enc := compress.Coding(strings.ToLower(strings.TrimSpace(msg.Header.Get("Content-Encoding"))))
	if enc == "" {
		enc = compress.Identity
	}
	dec, err := compress.NewDecoder(enc, bytes.NewReader(raw))
	if err != nil {
		return nil, ErrorParamInvalid.Error(err)
	}
	defer dec.Close()

	out, err := io.ReadAll(dec)
	if err != nil {
		return nil, ErrorParamInvalid.Error(err)
	}
	return out, nil
}

// encodeBody negotiates a Coding from acceptEncoding against priority
// (DefaultCompressPriority when nil) and compresses raw accordingly.
// Identity is returned untouched, including whenever raw is empty.
func encodeBody(acceptEncoding string, priority []compress.Coding, raw []byte) ([]byte, compress.Coding, error) {
	if len(priority) == 0 {
		priority = DefaultCompressPriority
	}
	if len(raw) == 0 {
		return raw, compress.Identity, nil
	}

	c := compress.Negotiate(acceptEncoding, priority)
	if c == compress.Identity {
		return raw, compress.Identity, nil
	}

	var buf bytes.Buffer
	enc, err := compress.NewEncoder(c, &buf)
	if err != nil {
		return nil, compress.Identity, ErrorParamInvalid.Error(err)
	}
	if _, err := enc.Write(raw); err != nil {
		return nil, compress.Identity, ErrorParamInvalid.Error(err)
	}
	if err := enc.Close(); err != nil {
		return nil, compress.Identity, ErrorParamInvalid.Error(err)
	}
	return buf.Bytes(), c, nil
}

// writeHTTP1Message negotiates/applies compress against body per
// acceptEncoding and priority, sets Content-Encoding/Content-Length on msg,
// and returns the full wire bytes (start line, headers, body) ready to
// queue on a Broker.
func writeHTTP1Message(msg *httpproto.Message, body []byte, acceptEncoding string, priority []compress.Coding) ([]byte, error) {
	encoded, coding, err := encodeBody(acceptEncoding, priority, body)
	if err != nil {
		return nil, err
	}
	if coding != compress.Identity {
		msg.Header.Set("Content-Encoding", string(coding))
	} else {
		msg.Header.Del("Content-Encoding")
	}
	msg.Header.Set("Content-Length", strconv.Itoa(len(encoded)))

	out := msg.WriteStartAndHeaders()
	return append(out, encoded...), nil
}
