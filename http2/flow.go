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

// flowWindow tracks one side (connection- or stream-level) of RFC 7540 §6.9
// flow control: a signed credit that DATA bytes consume and WINDOW_UPDATE
// replenishes.
type flowWindow struct {
	size int64
}

func newFlowWindow(initial uint32) *flowWindow {
	return &flowWindow{size: int64(initial)}
}

// consume deducts n bytes of DATA payload, reporting a violation if the
// window goes negative.
func (w *flowWindow) consume(n uint32) error {
	w.size -= int64(n)
	if w.size < 0 {
		return ErrorFlowControlViolation.Error()
	}
	return nil
}

// credit applies an incoming WINDOW_UPDATE increment.
func (w *flowWindow) credit(n uint32) {
	w.size += int64(n)
}

// needsUpdate reports whether the window has dropped below half of
// capacity, per spec §4.5's "emit WINDOW_UPDATE when a window drops below
// half capacity".
func (w *flowWindow) needsUpdate(capacity uint32) (increment uint32, ok bool) {
	half := int64(capacity) / 2
	if w.size >= half {
		return 0, false
	}
	increment = uint32(int64(capacity) - w.size)
	return increment, true
}
