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
	"fmt"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	liberr "github.com/nabbar/awh/errors"
	liblog "github.com/nabbar/awh/logger"
	loglvl "github.com/nabbar/awh/logger/level"

	"github.com/nabbar/awh/cluster/ipc"
)

type group struct {
	cfg     Config
	workers map[int]*Worker // keyed by slot index
	nextMsg uint64
}

// supervisor is the concrete Cluster.
type supervisor struct {
	mu     sync.Mutex
	log    liblog.FuncLog
	groups map[uint32]*group
	self   string // path to re-exec for worker processes
}

// New returns a Cluster supervisor. log may be nil.
func New(log liblog.FuncLog) Cluster {
	self, _ := os.Executable()
	return &supervisor{
		log:    log,
		groups: make(map[uint32]*group),
		self:   self,
	}
}

func (c *supervisor) Init(wid uint32, cfg Config) liberr.Error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.groups[wid]; ok {
		return ErrorWorkerGroupExists.Error()
	}
	c.groups[wid] = &group{cfg: cfg, workers: make(map[int]*Worker)}
	return nil
}

func (c *supervisor) Start(wid uint32) liberr.Error {
	c.mu.Lock()
	g, ok := c.groups[wid]
	c.mu.Unlock()
	if !ok {
		return ErrorWorkerGroupMissing.Error()
	}

	for i := 0; i < g.cfg.resolvedCount(); i++ {
		if err := c.spawn(wid, g, i); err != nil {
			return err
		}
	}
	return nil
}

// spawn forks one worker at index: the Go substitute for the reference's
// fork() is a self re-exec (see package doc) handing the child a
// socketpair half through ExtraFiles.
func (c *supervisor) spawn(wid uint32, g *group, index int) liberr.Error {
	fds, errno := syscall.Socketpair(syscall.AF_UNIX, syscall.SOCK_STREAM, 0)
	if errno != nil {
		return ErrorSocketpairFailed.Error(errno)
	}

	masterFile := os.NewFile(uintptr(fds[0]), fmt.Sprintf("cluster-wid%d-idx%d-master", wid, index))
	childFile := os.NewFile(uintptr(fds[1]), fmt.Sprintf("cluster-wid%d-idx%d-child", wid, index))
	defer childFile.Close()

	conn, err := net.FileConn(masterFile)
	_ = masterFile.Close()
	if err != nil {
		_ = childFile.Close()
		return ErrorSocketpairFailed.Error(err)
	}

	cmd := exec.Command(c.self, os.Args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	cmd.ExtraFiles = []*os.File{childFile}
	cmd.Env = append(os.Environ(), fmt.Sprintf("%s=%d:%d", WorkerEnvKey, wid, index))

	if err = cmd.Start(); err != nil {
		_ = conn.Close()
		return ErrorForkFailed.Error(err)
	}

	w := &Worker{
		WID:       wid,
		Index:     index,
		PID:       cmd.Process.Pid,
		StartTime: time.Now(),
		Restart:   g.cfg.Restart,
		conn:      conn,
	}

	c.mu.Lock()
	g.workers[index] = w
	c.mu.Unlock()

	c.logf(loglvl.InfoLevel, "cluster: worker wid=%d index=%d pid=%d started", wid, index, w.PID)
	if g.cfg.OnStart != nil {
		g.cfg.OnStart(wid, index, w.PID)
	}

	go c.readLoop(wid, g, w)
	go c.reap(wid, g, w, cmd)

	return nil
}

// readLoop reassembles the worker's IPC segments and dispatches complete
// messages to the group's OnMessage hook.
func (c *supervisor) readLoop(wid uint32, g *group, w *Worker) {
	dec := ipc.NewDecoder()
	dec.OnMessage = func(_ uint64, data []byte) error {
		if g.cfg.OnMessage != nil {
			return g.cfg.OnMessage(wid, w.Index, w.PID, data)
		}
		return nil
	}

	buf := make([]byte, 64*1024)
	for {
		n, err := w.conn.Read(buf)
		if n > 0 {
			if feedErr := dec.Feed(buf[:n]); feedErr != nil {
				c.logf(loglvl.ErrorLevel, "cluster: ipc decode wid=%d index=%d: %v", wid, w.Index, feedErr)
			}
		}
		if err != nil {
			return
		}
	}
}

// reap waits for the child to exit and applies the respawn policy
// (spec §4.7): respawn iff restart=true and uptime >= RespawnThreshold.
func (c *supervisor) reap(wid uint32, g *group, w *Worker, cmd *exec.Cmd) {
	err := cmd.Wait()
	_ = w.conn.Close()

	c.mu.Lock()
	delete(g.workers, w.Index)
	c.mu.Unlock()

	c.logf(loglvl.WarnLevel, "cluster: worker wid=%d index=%d pid=%d exited after %s: %v", wid, w.Index, w.PID, w.Uptime(), err)
	if g.cfg.OnExit != nil {
		g.cfg.OnExit(wid, w.Index, w.PID, err)
	}

	if killedByInterrupt(err) {
		return
	}

	if w.Restart && w.Uptime() >= RespawnThreshold {
		if spawnErr := c.spawn(wid, g, w.Index); spawnErr != nil {
			c.logf(loglvl.ErrorLevel, "cluster: respawn wid=%d index=%d failed: %v", wid, w.Index, spawnErr)
		}
	}
}

func killedByInterrupt(err error) bool {
	if err == nil {
		return false
	}
	var ee *exec.ExitError
	if !asExitError(err, &ee) {
		return false
	}
	ws, ok := ee.Sys().(syscall.WaitStatus)
	if !ok {
		return false
	}
	return ws.Signaled() && ws.Signal() == syscall.SIGINT
}

func asExitError(err error, target **exec.ExitError) bool {
	if ee, ok := err.(*exec.ExitError); ok {
		*target = ee
		return true
	}
	return false
}

func (c *supervisor) Stop(wid uint32) liberr.Error {
	c.mu.Lock()
	g, ok := c.groups[wid]
	c.mu.Unlock()
	if !ok {
		return ErrorWorkerGroupMissing.Error()
	}

	c.mu.Lock()
	workers := make([]*Worker, 0, len(g.workers))
	for _, w := range g.workers {
		workers = append(workers, w)
	}
	c.mu.Unlock()

	for _, w := range workers {
		_ = w.conn.Close()
		if proc, err := os.FindProcess(w.PID); err == nil {
			_ = proc.Signal(syscall.SIGTERM)
		}
	}
	return nil
}

func (c *supervisor) Workers(wid uint32) []Worker {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.groups[wid]
	if !ok {
		return nil
	}
	out := make([]Worker, 0, len(g.workers))
	for _, w := range g.workers {
		out = append(out, *w)
	}
	return out
}

// WorkerMain reports whether the current process was re-exec'd as a
// cluster worker and, if so, returns its group id, slot index, and the
// IPC connection bound to the inherited socketpair half. Call this at
// the top of main() before doing anything else.
func WorkerMain() (wid uint32, index int, conn net.Conn, isWorker bool) {
	v, ok := os.LookupEnv(WorkerEnvKey)
	if !ok {
		return 0, 0, nil, false
	}

	var widPart, idxPart string
	for i := 0; i < len(v); i++ {
		if v[i] == ':' {
			widPart, idxPart = v[:i], v[i+1:]
			break
		}
	}
	widN, err1 := strconv.ParseUint(widPart, 10, 32)
	idxN, err2 := strconv.Atoi(idxPart)
	if err1 != nil || err2 != nil {
		return 0, 0, nil, false
	}

	f := os.NewFile(3, "cluster-child")
	c, err := net.FileConn(f)
	_ = f.Close()
	if err != nil {
		return 0, 0, nil, false
	}

	signal.Ignore(syscall.SIGCHLD)
	return uint32(widN), idxN, c, true
}
