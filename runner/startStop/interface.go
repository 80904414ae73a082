/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
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

// Package startStop provides a generic Runner implementation that wraps a
// pair of blocking start/stop functions into a goroutine-backed lifecycle,
// tracking uptime and the errors produced by the most recent operations.
package startStop

import (
	"context"

	librun "github.com/nabbar/awh/runner"
)

// FuncStart is the long-lived, blocking function launched in a background
// goroutine by Start. It must return once the context it receives is done.
type FuncStart func(ctx context.Context) error

// FuncStop signals FuncStart to return and waits for cleanup.
type FuncStop func(ctx context.Context) error

// StartStop is a Runner that also keeps track of the errors produced by its
// start/stop functions.
type StartStop interface {
	librun.Runner

	// ErrorsLast returns the most recently recorded error, or nil.
	ErrorsLast() error

	// ErrorsList returns every error recorded since construction, oldest first.
	ErrorsList() []error
}

// New builds a StartStop runner around the given start/stop functions. A nil
// runFunc or closeFunc is tolerated at construction time; calling Start or
// Stop will then record an "invalid start/stop function" error instead of
// panicking.
func New(runFunc FuncStart, closeFunc FuncStop) StartStop {
	return &runner{
		run:  runFunc,
		stop: closeFunc,
	}
}
