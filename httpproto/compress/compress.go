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

// Package compress negotiates and applies Content-Encoding for the HTTP
// message body: gzip and deflate from the standard library, brotli from
// andybalholm/brotli. Per spec §4.4, encoding is applied to the body
// after chunk framing is removed on read, and before it is added on
// write - compression and chunking stay orthogonal layers.
package compress

import (
	"compress/flate"
	"compress/gzip"
	"io"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/nabbar/awh/ioutils/nopwritecloser"
)

// Coding identifies a Content-Encoding token.
type Coding string

const (
	Identity Coding = "identity"
	Gzip     Coding = "gzip"
	Deflate  Coding = "deflate"
	Brotli   Coding = "br"
)

// Negotiate picks the best Coding advertised by an Accept-Encoding header
// value, in priority order, falling back to Identity if none of the
// preferred codings (or "*") are accepted.
func Negotiate(acceptEncoding string, priority []Coding) Coding {
	accepted := parseAcceptEncoding(acceptEncoding)
	for _, c := range priority {
		if q, ok := accepted[c]; ok && q > 0 {
			return c
		}
	}
	if q, ok := accepted["*"]; ok && q > 0 {
		for _, c := range priority {
			return c
		}
	}
	return Identity
}

func parseAcceptEncoding(h string) map[Coding]float64 {
	out := map[Coding]float64{}
	if h == "" {
		return out
	}
	for _, part := range strings.Split(h, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name := part
		q := 1.0
		if i := strings.IndexByte(part, ';'); i >= 0 {
			name = strings.TrimSpace(part[:i])
			params := part[i+1:]
			for _, p := range strings.Split(params, ";") {
				p = strings.TrimSpace(p)
				if strings.HasPrefix(p, "q=") {
					if v, err := strconv.ParseFloat(strings.TrimPrefix(p, "q="), 64); err == nil {
						q = v
					}
				}
			}
		}
		out[Coding(strings.ToLower(name))] = q
	}
	return out
}

// NewDecoder wraps r to transparently decompress a body encoded with c.
func NewDecoder(c Coding, r io.Reader) (io.ReadCloser, error) {
	switch c {
	case Gzip:
		return gzip.NewReader(r)
	case Deflate:
		return flate.NewReader(r), nil
	case Brotli:
		return io.NopCloser(brotli.NewReader(r)), nil
	default:
		return io.NopCloser(r), nil
	}
}

// NewEncoder wraps w to transparently compress a body with c. Close must
// be called to flush any trailing compressed bytes.
func NewEncoder(c Coding, w io.Writer) (io.WriteCloser, error) {
	switch c {
	case Gzip:
		return gzip.NewWriter(w), nil
	case Deflate:
		return flate.NewWriter(w, flate.DefaultCompression)
	case Brotli:
		return brotli.NewWriter(w), nil
	default:
		return nopwritecloser.New(w), nil
	}
}
