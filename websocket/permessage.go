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

package websocket

import (
	"bytes"
	"compress/flate"
	"fmt"
	"io"
	"strings"
)

// PermessageDeflateParams holds the permessage-deflate extension
// parameters RFC 7692 negotiates over Sec-WebSocket-Extensions.
type PermessageDeflateParams struct {
	ServerNoContextTakeover bool
	ClientNoContextTakeover bool
	ServerMaxWindowBits     int
	ClientMaxWindowBits     int
}

// trailer is the 4-byte sequence a deflate sender strips from the tail
// of its compressed output and a receiver appends back before inflating,
// per RFC 7692 §7.2.1.
var trailer = []byte{0x00, 0x00, 0xFF, 0xFF}

// ParsePermessageDeflateOffer parses a Sec-WebSocket-Extensions header
// value and reports whether it offers permessage-deflate, with its
// parameters.
func ParsePermessageDeflateOffer(header string) (PermessageDeflateParams, bool) {
	p := PermessageDeflateParams{ServerMaxWindowBits: 15, ClientMaxWindowBits: 15}
	found := false

	for _, ext := range strings.Split(header, ",") {
		parts := strings.Split(ext, ";")
		if len(parts) == 0 || strings.TrimSpace(parts[0]) != "permessage-deflate" {
			continue
		}
		found = true
		for _, param := range parts[1:] {
			param = strings.TrimSpace(param)
			switch {
			case param == "server_no_context_takeover":
				p.ServerNoContextTakeover = true
			case param == "client_no_context_takeover":
				p.ClientNoContextTakeover = true
			case strings.HasPrefix(param, "server_max_window_bits"):
				fmt.Sscanf(param, "server_max_window_bits=%d", &p.ServerMaxWindowBits)
			case strings.HasPrefix(param, "client_max_window_bits"):
				fmt.Sscanf(param, "client_max_window_bits=%d", &p.ClientMaxWindowBits)
			}
		}
		break
	}
	return p, found
}

// ResponseHeader formats the Sec-WebSocket-Extensions value a server
// returns to accept p.
func (p PermessageDeflateParams) ResponseHeader() string {
	var sb strings.Builder
	sb.WriteString("permessage-deflate")
	if p.ServerNoContextTakeover {
		sb.WriteString("; server_no_context_takeover")
	}
	if p.ClientNoContextTakeover {
		sb.WriteString("; client_no_context_takeover")
	}
	return sb.String()
}

// maxWindow is DEFLATE's maximum sliding-window size: the most dictionary
// a context-taking-over session carries forward between messages.
const maxWindow = 32768

// Deflater compresses WebSocket message payloads for the permessage-deflate
// extension. With context takeover, each message is compressed with the
// trailing window of prior messages' plaintext as its dictionary -
// mirroring the continuous z_stream a zlib-based peer would keep; with
// server_no_context_takeover/client_no_context_takeover, the dictionary is
// dropped after every message.
type Deflater struct {
	noContextTakeover bool
	dict              []byte
}

// NewDeflater returns a Deflater honoring noContextTakeover.
func NewDeflater(noContextTakeover bool) (*Deflater, error) {
	return &Deflater{noContextTakeover: noContextTakeover}, nil
}

// Deflate compresses payload and strips the trailing empty-block bytes
// RFC 7692 §7.2.1 requires the sender to omit.
func (d *Deflater) Deflate(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriterDict(&buf, flate.DefaultCompression, d.dict)
	if err != nil {
		return nil, err
	}
	if _, err = w.Write(payload); err != nil {
		return nil, err
	}
	if err = w.Flush(); err != nil {
		return nil, err
	}

	d.advanceDict(payload)
	return bytes.TrimSuffix(buf.Bytes(), trailer), nil
}

func (d *Deflater) advanceDict(payload []byte) {
	if d.noContextTakeover {
		d.dict = nil
		return
	}
	d.dict = rollWindow(d.dict, payload)
}

// Inflater decompresses permessage-deflate payloads, carrying the same
// rolling dictionary forward as Deflater unless noContextTakeover is set.
type Inflater struct {
	noContextTakeover bool
	dict              []byte
}

// NewInflater returns an Inflater honoring noContextTakeover.
func NewInflater(noContextTakeover bool) *Inflater {
	return &Inflater{noContextTakeover: noContextTakeover}
}

// Inflate restores the trailing empty-block bytes the sender stripped
// and decompresses payload.
func (in *Inflater) Inflate(payload []byte) ([]byte, error) {
	full := append(append([]byte{}, payload...), trailer...)

	r := flate.NewReaderDict(bytes.NewReader(full), in.dict)
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if in.noContextTakeover {
		in.dict = nil
	} else {
		in.dict = rollWindow(in.dict, out)
	}
	return out, nil
}

// rollWindow appends fresh to dict and trims it to DEFLATE's maximum
// sliding-window size, keeping only the most recent maxWindow bytes.
func rollWindow(dict, fresh []byte) []byte {
	combined := append(append([]byte{}, dict...), fresh...)
	if len(combined) > maxWindow {
		combined = combined[len(combined)-maxWindow:]
	}
	return combined
}
