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

package cluster

import (
	"github.com/nabbar/awh/cluster/ipc"
	liberr "github.com/nabbar/awh/errors"
)

// Send delivers data to exactly one worker of wid (chosen by slot index),
// blocking until the whole framed message has been written to the
// socketpair. The worker side reassembles it via its own ipc.Decoder.
func (c *supervisor) Send(wid uint32, index int, data []byte) liberr.Error {
	c.mu.Lock()
	g, ok := c.groups[wid]
	if !ok {
		c.mu.Unlock()
		return ErrorWorkerGroupMissing.Error()
	}
	w, ok := g.workers[index]
	g.nextMsg++
	id := g.nextMsg
	c.mu.Unlock()

	if !ok {
		return ErrorUnknownWorker.Error()
	}
	return c.writeFramed(w, id, data)
}

func (c *supervisor) writeFramed(w *Worker, id uint64, data []byte) liberr.Error {
	segs, err := ipc.Split(id, data)
	if err != nil {
		return ErrorForkFailed.Error(err)
	}
	for _, seg := range segs {
		wire, encErr := ipc.Encode(seg)
		if encErr != nil {
			return ErrorForkFailed.Error(encErr)
		}
		if _, writeErr := w.conn.Write(wire); writeErr != nil {
			return ErrorForkFailed.Error(writeErr)
		}
	}
	return nil
}
