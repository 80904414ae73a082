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

// Package chunked implements an incremental RFC 7230 §4.1 chunked-transfer
// decoder: hex-size + CRLF framing, trailer headers merged after the
// terminating zero-chunk, fed byte-by-byte as a non-blocking socket
// delivers them rather than read from a blocking io.Reader.
package chunked

import (
	"fmt"
	"strconv"
	"strings"
)

type state uint8

const (
	stateSize state = iota
	stateSizeCR
	stateData
	stateDataCR
	stateDataLF
	stateTrailerLine
	stateDone
)

// Decoder incrementally decodes a chunked body. OnChunk is invoked with
// each chunk's payload as it completes; OnTrailer once per trailer header
// line, after the terminating zero-size chunk.
type Decoder struct {
	st        state
	remaining int64
	line      []byte

	OnChunk   func(p []byte) error
	OnTrailer func(name, value string)
}

// New returns a Decoder ready to consume a chunked body from its first
// byte.
func New() *Decoder {
	return &Decoder{}
}

// Done reports whether the terminating zero-chunk and its trailers have
// both been consumed.
func (d *Decoder) Done() bool {
	return d.st == stateDone
}

// Write feeds p to the decoder, consuming as much as forms complete
// chunk-size lines, chunk data, or trailer lines; any remainder that does
// not yet form a complete unit is buffered internally. Write never
// returns n < len(p) except on error.
func (d *Decoder) Write(p []byte) (int, error) {
	total := len(p)
	for len(p) > 0 {
		if d.st == stateDone {
			return total, nil
		}

		switch d.st {
		case stateSize:
			i := indexByte(p, '\n')
			if i < 0 {
				d.line = append(d.line, p...)
				return total, nil
			}
			d.line = append(d.line, p[:i+1]...)
			p = p[i+1:]

			sizeLine := strings.TrimRight(string(d.line), "\r\n")
			d.line = d.line[:0]
			if semi := strings.IndexByte(sizeLine, ';'); semi >= 0 {
				sizeLine = sizeLine[:semi]
			}
			n, err := strconv.ParseInt(strings.TrimSpace(sizeLine), 16, 64)
			if err != nil {
				return total, fmt.Errorf("chunked: invalid chunk size %q: %w", sizeLine, err)
			}
			d.remaining = n
			if n == 0 {
				d.st = stateTrailerLine
			} else {
				d.st = stateData
			}

		case stateData:
			take := int64(len(p))
			if take > d.remaining {
				take = d.remaining
			}
			if take > 0 {
				if d.OnChunk != nil {
					if err := d.OnChunk(p[:take]); err != nil {
						return total, err
					}
				}
				p = p[take:]
				d.remaining -= take
			}
			if d.remaining == 0 {
				d.st = stateDataCR
			}

		case stateDataCR:
			if p[0] != '\r' {
				return total, fmt.Errorf("chunked: expected CR after chunk data")
			}
			p = p[1:]
			d.st = stateDataLF

		case stateDataLF:
			if p[0] != '\n' {
				return total, fmt.Errorf("chunked: expected LF after chunk data")
			}
			p = p[1:]
			d.st = stateSize

		case stateTrailerLine:
			i := indexByte(p, '\n')
			if i < 0 {
				d.line = append(d.line, p...)
				return total, nil
			}
			d.line = append(d.line, p[:i+1]...)
			p = p[i+1:]

			trailer := strings.TrimRight(string(d.line), "\r\n")
			d.line = d.line[:0]
			if trailer == "" {
				d.st = stateDone
				break
			}
			if idx := strings.IndexByte(trailer, ':'); idx >= 0 && d.OnTrailer != nil {
				d.OnTrailer(strings.TrimSpace(trailer[:idx]), strings.TrimSpace(trailer[idx+1:]))
			}
		}
	}
	return total, nil
}

func indexByte(p []byte, b byte) int {
	for i, c := range p {
		if c == b {
			return i
		}
	}
	return -1
}
