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

// WriteFunc hands encoded frame bytes to the transport (typically
// scheme.Broker.Queue).
type WriteFunc func(p []byte) error

// Conn ties a frame Decoder to an Assembler and a WriteFunc, so a caller
// only has to Feed incoming bytes and call SendMessage/Ping/Close; PING is
// answered with an immediate PONG automatically, per spec §4.6.
type Conn struct {
	masked bool
	write  WriteFunc
	dec    *Decoder
	asm    *Assembler
	closed bool
}

// NewConn builds a Conn. isClient controls masking direction: a client
// masks every outgoing frame and expects unmasked frames from the
// server; a server does the reverse. maxMessageSize bounds reassembled
// fragmented messages (0 = unlimited).
func NewConn(isClient bool, write WriteFunc, maxMessageSize int64) *Conn {
	c := &Conn{masked: isClient, write: write}

	c.asm = &Assembler{MaxMessageSize: maxMessageSize}
	c.asm.OnPing = func(p []byte) error { return c.sendControl(OpPong, p) }

	c.dec = &Decoder{ExpectMasked: !isClient}
	c.dec.OnFrame = c.asm.HandleFrame

	return c
}

// OnMessage registers the callback fired once a complete TEXT/BINARY
// message (single-frame or reassembled) is available.
func (c *Conn) OnMessage(fn func(op Opcode, payload []byte) error) {
	c.asm.OnMessage = fn
}

// OnPong registers the callback fired on every received PONG.
func (c *Conn) OnPong(fn func(payload []byte) error) {
	c.asm.OnPong = fn
}

// OnClose registers the callback fired when a CLOSE frame arrives (after
// Conn has already echoed it back, per RFC 6455 §5.5.1).
func (c *Conn) OnClose(fn func(code uint16, reason string) error) {
	userClose := fn
	c.asm.OnClose = func(code uint16, reason string) error {
		echoErr := c.echoClose(code, reason)
		if userClose != nil {
			if err := userClose(code, reason); err != nil {
				return err
			}
		}
		return echoErr
	}
}

// Feed decodes data into frames, dispatching them through the Assembler.
func (c *Conn) Feed(data []byte) error {
	return c.dec.Feed(data)
}

// SendMessage encodes and writes a single-frame TEXT/BINARY message.
func (c *Conn) SendMessage(op Opcode, payload []byte) error {
	f := Frame{Fin: true, Opcode: op, Masked: c.masked, Payload: payload}
	b, err := f.Encode()
	if err != nil {
		return err
	}
	return c.write(b)
}

// Ping sends a PING control frame.
func (c *Conn) Ping(payload []byte) error {
	return c.sendControl(OpPing, payload)
}

func (c *Conn) sendControl(op Opcode, payload []byte) error {
	f := Frame{Fin: true, Opcode: op, Masked: c.masked, Payload: payload}
	b, err := f.Encode()
	if err != nil {
		return err
	}
	return c.write(b)
}

func (c *Conn) echoClose(code uint16, reason string) error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.sendControl(OpClose, BuildClosePayload(code, reason))
}

// Close sends a CLOSE frame with code/reason if one has not already been
// sent or echoed.
func (c *Conn) Close(code uint16, reason string) error {
	return c.echoClose(code, reason)
}

// TimeoutClose closes the connection with 1002 after an unanswered PING
// outlives the configured keepalive window, per spec §4.6.
func (c *Conn) TimeoutClose() error {
	return c.Close(CloseProtocolError, "ping timeout")
}
