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

package http2

import (
	"bytes"

	"golang.org/x/net/http2/hpack"
)

// HeaderCodec wraps one hpack.Encoder/hpack.Decoder pair per direction, as
// RFC 7541 requires: compression state is per-connection, not per-stream.
type HeaderCodec struct {
	enc    *hpack.Encoder
	encBuf *bytes.Buffer
	dec    *hpack.Decoder
}

// NewHeaderCodec builds a codec whose dynamic table is capped at
// maxDynamicTableSize (SETTINGS_HEADER_TABLE_SIZE).
func NewHeaderCodec(maxDynamicTableSize uint32) *HeaderCodec {
	buf := &bytes.Buffer{}
	c := &HeaderCodec{encBuf: buf}
	c.enc = hpack.NewEncoder(buf)
	c.dec = hpack.NewDecoder(maxDynamicTableSize, nil)
	return c
}

// EncodeHeaders HPACK-encodes fields into a single HEADERS(+CONTINUATION)
// block fragment; the caller splits it across frames at MaxFrameSize.
func (c *HeaderCodec) EncodeHeaders(fields []hpack.HeaderField) ([]byte, error) {
	c.encBuf.Reset()
	for _, f := range fields {
		if err := c.enc.WriteField(f); err != nil {
			return nil, ErrorHpackFailure.Error()
		}
	}
	out := make([]byte, c.encBuf.Len())
	copy(out, c.encBuf.Bytes())
	return out, nil
}

// DecodeHeaders HPACK-decodes a complete HEADERS+CONTINUATION* block.
func (c *HeaderCodec) DecodeHeaders(block []byte) ([]hpack.HeaderField, error) {
	fields, err := c.dec.DecodeFull(block)
	if err != nil {
		return nil, ErrorHpackFailure.Error()
	}
	return fields, nil
}
