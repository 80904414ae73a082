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
	"runtime"
	"time"
)

// RespawnThreshold is the minimum uptime (spec §4.7: 180s) a worker must
// reach before a crash is eligible for respawn, to avoid crash-loops.
const RespawnThreshold = 180 * time.Second

// Config describes one worker group (spec's "wid").
type Config struct {
	// Count is the number of worker processes to maintain; 0 means
	// runtime.NumCPU().
	Count uint

	// Restart, when true, respawns a worker that crashed after living at
	// least RespawnThreshold.
	Restart bool

	// OnStart is invoked in the parent once a worker process is observed
	// running, with its assigned index and pid.
	OnStart func(wid uint32, index int, pid int)

	// OnMessage is invoked in the parent for every IPC message a worker
	// sends up, once fully reassembled.
	OnMessage func(wid uint32, index int, pid int, data []byte) error

	// OnExit is invoked in the parent when a worker's process exits,
	// whether crashed or stopped deliberately.
	OnExit func(wid uint32, index int, pid int, err error)
}

func (c Config) resolvedCount() int {
	if c.Count == 0 {
		return runtime.NumCPU()
	}
	return int(c.Count)
}
