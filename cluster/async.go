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
	"sync"

	liberr "github.com/nabbar/awh/errors"
)

// Broadcast delivers data to every worker currently running in wid,
// writing to each worker's socketpair concurrently so one slow/blocked
// child cannot delay delivery to the others.
func (c *supervisor) Broadcast(wid uint32, data []byte) liberr.Error {
	c.mu.Lock()
	g, ok := c.groups[wid]
	if !ok {
		c.mu.Unlock()
		return ErrorWorkerGroupMissing.Error()
	}
	g.nextMsg++
	id := g.nextMsg
	workers := make([]*Worker, 0, len(g.workers))
	for _, w := range g.workers {
		workers = append(workers, w)
	}
	c.mu.Unlock()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr liberr.Error

	for _, w := range workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			if err := c.writeFramed(w, id, data); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	return firstErr
}
