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

// Package cluster implements the master/worker process supervisor spec
// §4.7 describes: fork N worker processes sharing no address space,
// length-framed IPC over a socketpair per worker, crash detection and
// policy-driven respawn.
//
// Go cannot safely call the bare fork(2) this spec's reference
// implementation uses - the runtime's goroutine scheduler and garbage
// collector assume a multi-threaded process, and a forked child retains
// only the calling thread. The idiomatic Go substitute achieving the same
// "child shares no address space" property is a self re-exec: the parent
// launches copies of its own binary via os/exec, handing each a socketpair
// half through ExtraFiles, and the child recognizes its role via
// WorkerMain at the top of main(). This is documented as an Open Question
// decision in DESIGN.md.
package cluster

import (
	"net"
	"time"

	liberr "github.com/nabbar/awh/errors"
)

// WorkerEnvKey is the environment variable a re-exec'd worker process
// checks to learn its group id and slot index.
const WorkerEnvKey = "AWH_CLUSTER_WORKER"

// Worker is one supervised child process.
type Worker struct {
	WID       uint32
	Index     int
	PID       int
	StartTime time.Time
	Restart   bool

	conn net.Conn
}

// Uptime returns how long the worker has been running.
func (w *Worker) Uptime() time.Duration {
	return time.Since(w.StartTime)
}

// Cluster supervises one or more worker groups.
type Cluster interface {
	// Init registers a worker group under wid with cfg. Returns
	// ErrorWorkerGroupExists if wid is already registered.
	Init(wid uint32, cfg Config) liberr.Error

	// Start forks cfg.Count workers for wid.
	Start(wid uint32) liberr.Error

	// Stop terminates every worker in wid and stops supervising it.
	Stop(wid uint32) liberr.Error

	// Send delivers data to one worker of wid, chosen by index.
	Send(wid uint32, index int, data []byte) liberr.Error

	// Broadcast delivers data to every worker of wid.
	Broadcast(wid uint32, data []byte) liberr.Error

	// Workers returns a snapshot of wid's current worker set.
	Workers(wid uint32) []Worker
}
