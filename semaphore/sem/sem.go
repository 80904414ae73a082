/*
 * MIT License
 *
 * Copyright (c) 2019 Nicolas JUHEL
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

// Package sem bounds how many workers may run at once behind a single
// context.Context-shaped handle: a weighted semaphore when the caller asks
// for a positive limit, a plain sync.WaitGroup when the caller asks for an
// unbounded pool (n < 0), or the process's GOMAXPROCS when the caller
// passes 0 and never configured a different default via SetSimultaneous.
package sem

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

var nbrSimultaneous = int64(runtime.GOMAXPROCS(0))

// MaxSimultaneous returns the process's GOMAXPROCS, independent of any
// SetSimultaneous override.
func MaxSimultaneous() int {
	return runtime.GOMAXPROCS(0)
}

// SetSimultaneous clamps n into [1, MaxSimultaneous()] and stores it as the
// default New(ctx, 0) will use, returning the clamped value.
func SetSimultaneous(n int64) int64 {
	max := int64(MaxSimultaneous())
	if n < 1 || n > max {
		n = max
	}
	nbrSimultaneous = n
	return nbrSimultaneous
}

// Sem is a cancellable worker-admission gate. It implements context.Context
// itself (derived from the parent passed to New) so callers can thread it
// through APIs that expect one while also calling its worker methods.
type Sem interface {
	context.Context

	NewWorker() error
	NewWorkerTry() bool
	DeferWorker()

	WaitAll() error
	DeferMain()

	Weighted() int64
}

type sem struct {
	context.Context
	cancel context.CancelFunc

	n int64
	w *semaphore.Weighted
	g *sync.WaitGroup
}

// New returns a Sem bounding concurrent workers to n:
//   - n > 0: a weighted semaphore allowing exactly n concurrent workers.
//   - n == 0: the same, using the configured default (SetSimultaneous, or
//     GOMAXPROCS if never configured).
//   - n < 0: unlimited, backed by a sync.WaitGroup.
func New(ctx context.Context, n int64) Sem {
	c, cancel := context.WithCancel(ctx)
	s := &sem{Context: c, cancel: cancel}

	switch {
	case n < 0:
		s.n = -1
		s.g = &sync.WaitGroup{}
	case n == 0:
		s.n = nbrSimultaneous
		s.w = semaphore.NewWeighted(s.n)
	default:
		s.n = n
		s.w = semaphore.NewWeighted(n)
	}

	return s
}

func (s *sem) Weighted() int64 {
	return s.n
}

func (s *sem) NewWorker() error {
	if s.g != nil {
		s.g.Add(1)
		return nil
	}
	return s.w.Acquire(s.Context, 1)
}

func (s *sem) NewWorkerTry() bool {
	if s.g != nil {
		s.g.Add(1)
		return true
	}
	return s.w.TryAcquire(1)
}

func (s *sem) DeferWorker() {
	if s.g != nil {
		s.g.Done()
		return
	}
	s.w.Release(1)
}

// WaitAll blocks until every currently admitted worker has called
// DeferWorker. Only meaningful for the unbounded (WaitGroup) form; for a
// weighted semaphore it reports nil immediately since Acquire/Release
// already serialises admission.
func (s *sem) WaitAll() error {
	if s.g != nil {
		s.g.Wait()
		return nil
	}
	return nil
}

// DeferMain cancels the Sem's context. Safe to call more than once.
func (s *sem) DeferMain() {
	s.cancel()
}
