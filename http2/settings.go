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

import "encoding/binary"

// SettingID identifies a SETTINGS parameter (RFC 7540 §6.5.2).
type SettingID uint16

const (
	SettingHeaderTableSize      SettingID = 0x1
	SettingEnablePush           SettingID = 0x2
	SettingMaxConcurrentStreams SettingID = 0x3
	SettingInitialWindowSize    SettingID = 0x4
	SettingMaxFrameSize         SettingID = 0x5
	SettingMaxHeaderListSize    SettingID = 0x6
)

// Settings holds the negotiable session parameters. Defaults per spec §4.5.
type Settings struct {
	HeaderTableSize      uint32
	EnablePush           bool
	MaxConcurrentStreams uint32
	InitialWindowSize    uint32
	MaxFrameSize         uint32
	MaxHeaderListSize    uint32
}

// DefaultSettings returns the local SETTINGS this session advertises on
// connection open, per spec §4.5: 100 concurrent streams, a 64KiB-1 initial
// window, the minimum legal max frame size, and push disabled.
func DefaultSettings() Settings {
	return Settings{
		HeaderTableSize:      4096,
		EnablePush:           false,
		MaxConcurrentStreams: 100,
		InitialWindowSize:    1<<16 - 1,
		MaxFrameSize:         16384,
		MaxHeaderListSize:    0,
	}
}

// EncodeSettings serialises the non-zero/changed parameters of s as a
// SETTINGS frame payload. base, when non-nil, suppresses values unchanged
// from it; pass nil to emit every field.
func EncodeSettings(s Settings) []byte {
	type kv struct {
		id  SettingID
		val uint32
	}
	entries := []kv{
		{SettingHeaderTableSize, s.HeaderTableSize},
		{SettingMaxConcurrentStreams, s.MaxConcurrentStreams},
		{SettingInitialWindowSize, s.InitialWindowSize},
		{SettingMaxFrameSize, s.MaxFrameSize},
	}
	if s.EnablePush {
		entries = append(entries, kv{SettingEnablePush, 1})
	} else {
		entries = append(entries, kv{SettingEnablePush, 0})
	}
	if s.MaxHeaderListSize != 0 {
		entries = append(entries, kv{SettingMaxHeaderListSize, s.MaxHeaderListSize})
	}

	b := make([]byte, 0, len(entries)*6)
	for _, e := range entries {
		var tmp [6]byte
		binary.BigEndian.PutUint16(tmp[0:2], uint16(e.id))
		binary.BigEndian.PutUint32(tmp[2:6], e.val)
		b = append(b, tmp[:]...)
	}
	return b
}

// ApplySettingsFrame decodes payload and applies each parameter onto s,
// returning the updated value. Unknown setting IDs are ignored per
// RFC 7540 §6.5.2.
func ApplySettingsFrame(s Settings, payload []byte) (Settings, error) {
	if len(payload)%6 != 0 {
		return s, ErrorFrameMalformed.Error()
	}
	for i := 0; i+6 <= len(payload); i += 6 {
		id := SettingID(binary.BigEndian.Uint16(payload[i : i+2]))
		val := binary.BigEndian.Uint32(payload[i+2 : i+6])
		switch id {
		case SettingHeaderTableSize:
			s.HeaderTableSize = val
		case SettingEnablePush:
			s.EnablePush = val != 0
		case SettingMaxConcurrentStreams:
			s.MaxConcurrentStreams = val
		case SettingInitialWindowSize:
			s.InitialWindowSize = val
		case SettingMaxFrameSize:
			if val < 16384 || val > 16777215 {
				return s, ErrorFrameMalformed.Error()
			}
			s.MaxFrameSize = val
		case SettingMaxHeaderListSize:
			s.MaxHeaderListSize = val
		}
	}
	return s, nil
}
