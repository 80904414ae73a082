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
	"golang.org/x/net/http2/hpack"
)

// ClientPreface is the 24-byte connection preface a client must send
// before its first SETTINGS frame (RFC 7540 §3.5).
const ClientPreface = "PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n"

// WriteFunc hands a fully-framed byte slice to the broker for writing.
type WriteFunc func(p []byte) error

// headerAssembly buffers a HEADERS frame's fragment plus any CONTINUATION
// frames until FlagEndHeaders closes the block.
type headerAssembly struct {
	block     []byte
	endStream bool
}

// Session multiplexes one HTTP/2 connection's streams onto a single
// broker, matching spec §4.5's send-headers/send-data/send-trailers
// surface.
type Session struct {
	IsClient bool
	Write    WriteFunc

	OnHeaders  func(streamID uint32, fields []hpack.HeaderField, endStream bool) error
	OnData     func(streamID uint32, data []byte, endStream bool) error
	OnReset    func(streamID uint32, code uint32) error
	OnGoAway   func(lastStreamID, code uint32, debug []byte) error
	OnSettings func(s Settings)

	local  Settings
	remote Settings

	streams     *streamTable
	connRecv    *flowWindow
	connSend    *flowWindow
	encCodec    *HeaderCodec
	decCodec    *HeaderCodec
	nextStream  uint32
	assembling  map[uint32]*headerAssembly
	sawPreface  bool
	needPreface bool

	buf []byte
}

// NewSession builds a session with the default local SETTINGS from spec §4.5.
func NewSession(isClient bool, write WriteFunc) *Session {
	d := DefaultSettings()
	s := &Session{
		IsClient:    isClient,
		Write:       write,
		local:       d,
		remote:      DefaultSettings(),
		streams:     newStreamTable(),
		connRecv:    newFlowWindow(1<<16 - 1),
		connSend:    newFlowWindow(1<<16 - 1),
		encCodec:    NewHeaderCodec(d.HeaderTableSize),
		decCodec:    NewHeaderCodec(d.HeaderTableSize),
		assembling:  make(map[uint32]*headerAssembly),
		needPreface: !isClient,
	}
	if isClient {
		s.nextStream = 1
	} else {
		s.nextStream = 2
	}
	return s
}

// Start sends the connection preface (client only) and the local SETTINGS.
func (s *Session) Start() error {
	if s.IsClient {
		if err := s.Write([]byte(ClientPreface)); err != nil {
			return err
		}
	}
	return s.writeFrame(FrameHeader{Kind: FrameSettings}, EncodeSettings(s.local))
}

func (s *Session) writeFrame(h FrameHeader, payload []byte) error {
	h.Length = uint32(len(payload))
	if err := s.Write(EncodeFrameHeader(h)); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	return s.Write(payload)
}

// Feed consumes newly-arrived bytes from the broker, decoding as many
// complete frames as are present and dispatching each.
func (s *Session) Feed(data []byte) error {
	s.buf = append(s.buf, data...)

	if s.needPreface {
		if len(s.buf) < len(ClientPreface) {
			return nil
		}
		if string(s.buf[:len(ClientPreface)]) != ClientPreface {
			return ErrorFrameMalformed.Error()
		}
		s.buf = s.buf[len(ClientPreface):]
		s.needPreface = false
	}

	for {
		if len(s.buf) < frameHeaderLen {
			return nil
		}
		h, err := DecodeFrameHeader(s.buf[:frameHeaderLen])
		if err != nil {
			return err
		}
		if h.Length > s.local.MaxFrameSize {
			return ErrorFrameTooLarge.Error()
		}
		total := frameHeaderLen + int(h.Length)
		if len(s.buf) < total {
			return nil
		}
		payload := s.buf[frameHeaderLen:total]
		s.buf = s.buf[total:]

		if err = s.dispatch(Frame{FrameHeader: h, Payload: payload}); err != nil {
			return err
		}
	}
}

func (s *Session) dispatch(f Frame) error {
	switch f.Kind {
	case FrameSettings:
		return s.handleSettings(f)
	case FrameWindowUpdate:
		return s.handleWindowUpdate(f)
	case FramePing:
		return s.handlePing(f)
	case FrameGoAway:
		return s.handleGoAway(f)
	case FrameRstStream:
		return s.handleRstStream(f)
	case FrameHeaders:
		return s.handleHeaders(f)
	case FrameContinuation:
		return s.handleContinuation(f)
	case FrameData:
		return s.handleData(f)
	case FramePriority, FramePushPromise:
		return nil
	default:
		return nil
	}
}

func (s *Session) handleSettings(f Frame) error {
	if f.Flags&FlagAck != 0 {
		return nil
	}
	updated, err := ApplySettingsFrame(s.remote, f.Payload)
	if err != nil {
		return err
	}
	s.remote = updated
	if s.OnSettings != nil {
		s.OnSettings(s.remote)
	}
	return s.writeFrame(FrameHeader{Kind: FrameSettings, Flags: FlagAck}, nil)
}

func (s *Session) handleWindowUpdate(f Frame) error {
	inc, err := WindowUpdatePayload(f.Payload)
	if err != nil {
		return err
	}
	if f.StreamID == 0 {
		s.connSend.credit(inc)
		return nil
	}
	st, ok := s.streams.get(f.StreamID)
	if !ok {
		return nil
	}
	st.sendWindow.credit(inc)
	return nil
}

func (s *Session) handlePing(f Frame) error {
	if f.Flags&FlagAck != 0 {
		return nil
	}
	return s.writeFrame(FrameHeader{Kind: FramePing, Flags: FlagAck}, f.Payload)
}

func (s *Session) handleGoAway(f Frame) error {
	last, code, debug, err := GoAwayPayload(f.Payload)
	if err != nil {
		return err
	}
	if s.OnGoAway != nil {
		return s.OnGoAway(last, code, debug)
	}
	return nil
}

func (s *Session) handleRstStream(f Frame) error {
	code, err := RstStreamPayload(f.Payload)
	if err != nil {
		return err
	}
	s.streams.remove(f.StreamID)
	if s.OnReset != nil {
		return s.OnReset(f.StreamID, code)
	}
	return nil
}

func (s *Session) handleHeaders(f Frame) error {
	if s.streams.count() >= int(s.local.MaxConcurrentStreams) {
		if _, exists := s.streams.get(f.StreamID); !exists {
			return s.RejectStream(f.StreamID, 0x7) // REFUSED_STREAM
		}
	}
	body, err := stripPadding(f.Flags, f.Payload)
	if err != nil {
		return err
	}
	if f.Flags&FlagPriority != 0 {
		if len(body) < 5 {
			return ErrorFrameMalformed.Error()
		}
		body = body[5:]
	}

	st, ok := s.streams.get(f.StreamID)
	if !ok {
		st = &Stream{
			ID:         f.StreamID,
			State:      StreamOpen,
			recvWindow: newFlowWindow(s.local.InitialWindowSize),
			sendWindow: newFlowWindow(s.remote.InitialWindowSize),
		}
		s.streams.put(st)
	}

	asm := &headerAssembly{block: append([]byte{}, body...), endStream: f.Flags&FlagEndStream != 0}
	if f.Flags&FlagEndHeaders != 0 {
		return s.finishHeaderBlock(f.StreamID, asm)
	}
	s.assembling[f.StreamID] = asm
	return nil
}

func (s *Session) handleContinuation(f Frame) error {
	asm, ok := s.assembling[f.StreamID]
	if !ok {
		return ErrorFrameMalformed.Error()
	}
	asm.block = append(asm.block, f.Payload...)
	if f.Flags&FlagEndHeaders != 0 {
		delete(s.assembling, f.StreamID)
		return s.finishHeaderBlock(f.StreamID, asm)
	}
	return nil
}

func (s *Session) finishHeaderBlock(streamID uint32, asm *headerAssembly) error {
	fields, err := s.decCodec.DecodeHeaders(asm.block)
	if err != nil {
		return err
	}
	if s.OnHeaders != nil {
		return s.OnHeaders(streamID, fields, asm.endStream)
	}
	return nil
}

func (s *Session) handleData(f Frame) error {
	body, err := stripPadding(f.Flags, f.Payload)
	if err != nil {
		return err
	}
	if err = s.connRecv.consume(uint32(len(f.Payload))); err != nil {
		return err
	}
	st, ok := s.streams.get(f.StreamID)
	if !ok {
		return ErrorUnknownStream.Error()
	}
	if err = st.recvWindow.consume(uint32(len(f.Payload))); err != nil {
		return err
	}

	if inc, need := s.connRecv.needsUpdate(1 << 16); need {
		s.connRecv.credit(inc)
		if err = s.writeFrame(FrameHeader{Kind: FrameWindowUpdate}, EncodeWindowUpdate(inc)); err != nil {
			return err
		}
	}
	if inc, need := st.recvWindow.needsUpdate(s.local.InitialWindowSize); need {
		st.recvWindow.credit(inc)
		if err = s.writeFrame(FrameHeader{Kind: FrameWindowUpdate, StreamID: f.StreamID}, EncodeWindowUpdate(inc)); err != nil {
			return err
		}
	}

	endStream := f.Flags&FlagEndStream != 0
	if endStream {
		st.State = StreamHalfClosedRemote
	}
	if s.OnData != nil {
		return s.OnData(f.StreamID, body, endStream)
	}
	return nil
}

// OpenStream allocates the next client/server-initiated stream ID.
func (s *Session) OpenStream() *Stream {
	st := &Stream{
		ID:         s.nextStream,
		State:      StreamOpen,
		recvWindow: newFlowWindow(s.local.InitialWindowSize),
		sendWindow: newFlowWindow(s.remote.InitialWindowSize),
	}
	s.streams.put(st)
	s.nextStream += 2
	return st
}

// SendHeaders HPACK-encodes fields and emits HEADERS(+CONTINUATION) frames
// for streamID, fragmenting the block at the remote's MaxFrameSize.
func (s *Session) SendHeaders(streamID uint32, fields []hpack.HeaderField, endStream bool) error {
	block, err := s.encCodec.EncodeHeaders(fields)
	if err != nil {
		return err
	}
	return s.sendHeaderBlock(streamID, block, endStream)
}

// SendTrailers sends a HEADERS block with END_STREAM and no further body,
// per spec §4.5's send-trailers surface.
func (s *Session) SendTrailers(streamID uint32, fields []hpack.HeaderField) error {
	return s.SendHeaders(streamID, fields, true)
}

func (s *Session) sendHeaderBlock(streamID uint32, block []byte, endStream bool) error {
	max := int(s.remote.MaxFrameSize)
	first := true
	for len(block) > 0 || first {
		chunkLen := len(block)
		if chunkLen > max {
			chunkLen = max
		}
		chunk := block[:chunkLen]
		block = block[chunkLen:]

		kind := FrameContinuation
		var flags uint8
		if first {
			kind = FrameHeaders
			if endStream {
				flags |= FlagEndStream
			}
		}
		if len(block) == 0 {
			flags |= FlagEndHeaders
		}
		if err := s.writeFrame(FrameHeader{Kind: kind, Flags: flags, StreamID: streamID}, chunk); err != nil {
			return err
		}
		first = false
	}
	return nil
}

// SendData emits one DATA frame for streamID, respecting neither the
// connection nor stream send window (callers must check
// CanSend/WindowAvailable before calling to honor backpressure, per
// spec §5's "protocol layer must pause producing").
func (s *Session) SendData(streamID uint32, data []byte, endStream bool) error {
	var flags uint8
	if endStream {
		flags |= FlagEndStream
	}
	if err := s.writeFrame(FrameHeader{Kind: FrameData, Flags: flags, StreamID: streamID}, data); err != nil {
		return err
	}
	s.connSend.size -= int64(len(data))
	if st, ok := s.streams.get(streamID); ok {
		st.sendWindow.size -= int64(len(data))
		if endStream {
			st.State = StreamHalfClosedLocal
		}
	}
	return nil
}

// WindowAvailable reports how many DATA bytes may currently be sent on
// streamID without exceeding either flow control window.
func (s *Session) WindowAvailable(streamID uint32) int64 {
	st, ok := s.streams.get(streamID)
	if !ok {
		return 0
	}
	if st.sendWindow.size < s.connSend.size {
		return st.sendWindow.size
	}
	return s.connSend.size
}

// RejectStream sends RST_STREAM(code) for streamID, per spec §4.5's
// reject(stream, code).
func (s *Session) RejectStream(streamID uint32, code uint32) error {
	s.streams.remove(streamID)
	return s.writeFrame(FrameHeader{Kind: FrameRstStream, StreamID: streamID}, EncodeRstStream(code))
}

// GoAway sends GOAWAY(lastStreamID, code, debug); per spec §4.5, incoming
// streams beyond lastStreamID are to be refused by the caller thereafter.
func (s *Session) GoAway(lastStreamID uint32, code uint32, debug []byte) error {
	return s.writeFrame(FrameHeader{Kind: FrameGoAway}, EncodeGoAway(lastStreamID, code, debug))
}
