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

package httpproto

import (
	"strconv"
	"strings"

	"github.com/nabbar/awh/httpproto/chunked"
)

// State is the incremental parser's current stage.
type State uint8

const (
	// StateQuery is waiting for the start line (request or status line).
	StateQuery State = iota
	// StateHeaders is accumulating header fields up to the blank line.
	StateHeaders
	// StateBody is streaming the message body to OnChunk.
	StateBody
	// StateGood is a fully parsed, well-formed message.
	StateGood
	// StateBroken is a malformed message; the connection must be dropped.
	StateBroken
	// StateHandshake is a 101 Switching Protocols response (or its matching
	// request): remaining bytes belong to the upgraded protocol, not HTTP.
	StateHandshake
)

type bodyMode uint8

const (
	bodyModeNone bodyMode = iota
	bodyModeChunked
	bodyModeLength
	bodyModeUntilClose
)

// Message is an incremental HTTP/1.1 request or response parser/serializer.
// Bytes arrive via Feed as a Broker's non-blocking reads deliver them; a
// single Message is fed until it reaches StateGood, StateBroken, or
// StateHandshake.
type Message struct {
	State State

	// Request fields, populated when the start line is a request line.
	Method string
	URI    string

	// Response fields, populated when the start line is a status line.
	StatusCode int
	Reason     string

	// Proto is the HTTP version token, e.g. "HTTP/1.1".
	Proto string

	Header Headers

	// IsRequest distinguishes a request from a response once the start
	// line has been parsed.
	IsRequest bool

	// MaxHeaderBytes caps the header section's size; zero means
	// unlimited. Exceeding it moves the message to StateBroken.
	MaxHeaderBytes int

	// OnChunk is invoked with each slice of body bytes as they arrive,
	// in order, already dechunked and with chunked framing removed.
	OnChunk func(p []byte) error

	// OnHandshake is invoked once, with any bytes received past the
	// blank line ending the headers, when the message becomes a 101
	// Switching Protocols handshake.
	OnHandshake func(rest []byte) error

	buf         []byte
	headerBytes int
	headerName  string
	headerVal   string
	hasHeader   bool

	mode      bodyMode
	remaining int64
	chunkDec  *chunked.Decoder
}

// Reset clears m for reuse on a subsequent message over the same
// keep-alive connection.
func (m *Message) Reset() {
	*m = Message{
		MaxHeaderBytes: m.MaxHeaderBytes,
		OnChunk:        m.OnChunk,
		OnHandshake:    m.OnHandshake,
	}
}

// Feed appends data to the parser's accumulation buffer and advances the
// state machine as far as the available bytes allow.
func (m *Message) Feed(data []byte) error {
	if m.State == StateGood || m.State == StateBroken || m.State == StateHandshake {
		return ErrorAlreadyComplete.Error()
	}

	m.buf = append(m.buf, data...)

	for {
		switch m.State {
		case StateQuery:
			line, ok := m.popLine()
			if !ok {
				return nil
			}
			if line == "" {
				continue
			}
			if err := m.parseStartLine(line); err != nil {
				m.State = StateBroken
				return err
			}
			m.State = StateHeaders

		case StateHeaders:
			done, err := m.consumeHeaderLines()
			if err != nil {
				m.State = StateBroken
				return err
			}
			if !done {
				return nil
			}
			if err = m.finishHeaders(); err != nil {
				m.State = StateBroken
				return err
			}
			if m.State != StateBody {
				return nil
			}

		case StateBody:
			if done, err := m.feedBody(); err != nil {
				m.State = StateBroken
				return err
			} else if !done {
				return nil
			}
			m.State = StateGood
			return nil

		default:
			return nil
		}
	}
}

// popLine extracts the next CRLF- or LF-terminated line from m.buf,
// trimming the terminator. ok is false when no full line is buffered yet.
func (m *Message) popLine() (string, bool) {
	idx := -1
	for i, b := range m.buf {
		if b == '\n' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", false
	}
	line := m.buf[:idx]
	m.buf = m.buf[idx+1:]
	line = []byte(strings.TrimSuffix(string(line), "\r"))
	return string(line), true
}

func (m *Message) parseStartLine(line string) error {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return ErrorStartLineMalformed.Error()
	}

	if strings.HasPrefix(parts[0], "HTTP/") {
		m.IsRequest = false
		m.Proto = parts[0]
		code, err := strconv.Atoi(parts[1])
		if err != nil {
			return ErrorStartLineMalformed.Error()
		}
		m.StatusCode = code
		m.Reason = parts[2]
		return nil
	}

	m.IsRequest = true
	m.Method = parts[0]
	m.URI = parts[1]
	m.Proto = parts[2]
	return nil
}

// consumeHeaderLines pulls as many complete lines as are buffered,
// folding RFC 7230 §3.2.4 obsolete continuation lines into the previous
// field, until the section-terminating blank line is seen.
func (m *Message) consumeHeaderLines() (bool, error) {
	for {
		if m.MaxHeaderBytes > 0 && m.headerBytes > m.MaxHeaderBytes {
			return false, ErrorHeaderTooLarge.Error()
		}

		line, ok := m.popLine()
		if !ok {
			return false, nil
		}
		m.headerBytes += len(line) + 2

		if line == "" {
			m.flushHeader()
			return true, nil
		}

		if (line[0] == ' ' || line[0] == '\t') && m.hasHeader {
			m.headerVal += " " + strings.TrimSpace(line)
			continue
		}

		m.flushHeader()

		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			return false, ErrorStartLineMalformed.Error()
		}
		m.headerName = strings.TrimSpace(line[:idx])
		m.headerVal = strings.TrimSpace(line[idx+1:])
		m.hasHeader = true
	}
}

func (m *Message) flushHeader() {
	if m.hasHeader {
		m.Header.Add(m.headerName, m.headerVal)
		m.hasHeader = false
		m.headerName, m.headerVal = "", ""
	}
}

// finishHeaders determines the body framing once the header section is
// complete, per spec §4.4's ordered rules, and arms chunked decoding or a
// handshake hand-off as required.
func (m *Message) finishHeaders() error {
	if m.IsRequest && strings.EqualFold(m.Method, "HEAD") {
		m.mode = bodyModeNone
		m.State = StateGood
		return nil
	}
	if !m.IsRequest && m.StatusCode == 101 {
		m.State = StateHandshake
		rest := m.buf
		m.buf = nil
		if m.OnHandshake != nil {
			return m.OnHandshake(rest)
		}
		return nil
	}

	if !m.IsRequest && (m.StatusCode/100 == 1 || m.StatusCode == 204 || m.StatusCode == 304) {
		m.mode = bodyModeNone
		m.State = StateGood
		return nil
	}

	te := m.Header.Get("Transfer-Encoding")
	if te != "" {
		last := te
		if i := strings.LastIndexByte(te, ','); i >= 0 {
			last = te[i+1:]
		}
		if strings.EqualFold(strings.TrimSpace(last), "chunked") {
			m.Header.Del("Content-Length")
			m.mode = bodyModeChunked
			m.chunkDec = chunked.New()
			m.chunkDec.OnChunk = m.OnChunk
			m.chunkDec.OnTrailer = func(name, value string) { m.Header.Add(name, value) }
			m.State = StateBody
			return nil
		}
	}

	if cl := m.Header.Values("Content-Length"); len(cl) > 0 {
		first := strings.TrimSpace(cl[0])
		for _, v := range cl[1:] {
			if strings.TrimSpace(v) != first {
				return ErrorDuplicateContentLength.Error()
			}
		}
		n, err := strconv.ParseInt(first, 10, 64)
		if err != nil || n < 0 {
			return ErrorStartLineMalformed.Error()
		}
		if n == 0 {
			m.mode = bodyModeNone
			m.State = StateGood
			return nil
		}
		m.mode = bodyModeLength
		m.remaining = n
		m.State = StateBody
		return nil
	}

	if !m.IsRequest {
		m.mode = bodyModeUntilClose
		m.State = StateBody
		return nil
	}

	m.mode = bodyModeNone
	m.State = StateGood
	return nil
}

// feedBody drains m.buf against the current body mode. done is true once
// the body is fully received (chunked terminator seen, or the fixed
// Content-Length satisfied); bodyModeUntilClose never reports done from
// here, since its end is signalled by CloseBody on connection close.
func (m *Message) feedBody() (bool, error) {
	switch m.mode {
	case bodyModeChunked:
		data := m.buf
		m.buf = nil
		if _, err := m.chunkDec.Write(data); err != nil {
			return false, err
		}
		return m.chunkDec.Done(), nil

	case bodyModeLength:
		take := int64(len(m.buf))
		if take > m.remaining {
			take = m.remaining
		}
		if take > 0 {
			if m.OnChunk != nil {
				if err := m.OnChunk(m.buf[:take]); err != nil {
					return false, err
				}
			}
			m.buf = m.buf[take:]
			m.remaining -= take
		}
		return m.remaining == 0, nil

	case bodyModeUntilClose:
		if len(m.buf) > 0 && m.OnChunk != nil {
			if err := m.OnChunk(m.buf); err != nil {
				return false, err
			}
		}
		m.buf = nil
		return false, nil

	default:
		return true, nil
	}
}

// CloseBody signals that the underlying connection closed while this
// message's body is in bodyModeUntilClose, which is the only framing mode
// whose end cannot be detected from the byte stream alone (RFC 7230
// §3.3.3 rule 7).
func (m *Message) CloseBody() {
	if m.State == StateBody && m.mode == bodyModeUntilClose {
		m.State = StateGood
	}
}

// WriteStartAndHeaders serialises the start line and header section
// (including the terminating blank line) to wire bytes. Body bytes are
// streamed separately by the caller, through chunked.Encoder or raw
// writes, so compression and chunking stay orthogonal to the message
// model.
func (m *Message) WriteStartAndHeaders() []byte {
	var sb strings.Builder
	if m.IsRequest {
		sb.WriteString(m.Method)
		sb.WriteByte(' ')
		sb.WriteString(m.URI)
		sb.WriteByte(' ')
		sb.WriteString(m.Proto)
	} else {
		sb.WriteString(m.Proto)
		sb.WriteByte(' ')
		sb.WriteString(strconv.Itoa(m.StatusCode))
		sb.WriteByte(' ')
		sb.WriteString(m.Reason)
	}
	sb.WriteString("\r\n")
	m.Header.WriteTo(&sb)
	sb.WriteString("\r\n")
	return []byte(sb.String())
}
