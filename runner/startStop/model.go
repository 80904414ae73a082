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

package startStop

import (
	"context"
	"errors"
	"sync"
	"time"
)

const maxErrorsKept = 32

type runner struct {
	m sync.Mutex

	run  FuncStart
	stop FuncStop

	cnl context.CancelFunc
	chn chan struct{}

	running   bool
	startedAt time.Time

	errs []error
}

func (o *runner) addError(e error) {
	if e == nil {
		return
	}
	o.errs = append(o.errs, e)
	if len(o.errs) > maxErrorsKept {
		o.errs = o.errs[len(o.errs)-maxErrorsKept:]
	}
}

func (o *runner) ErrorsLast() error {
	o.m.Lock()
	defer o.m.Unlock()

	if len(o.errs) == 0 {
		return nil
	}
	return o.errs[len(o.errs)-1]
}

func (o *runner) ErrorsList() []error {
	o.m.Lock()
	defer o.m.Unlock()

	out := make([]error, len(o.errs))
	copy(out, o.errs)
	return out
}

// Start launches run in a background goroutine, stopping any previous
// instance first. It returns once the goroutine has been scheduled; errors
// produced by run are recorded and retrievable via ErrorsLast/ErrorsList.
func (o *runner) Start(ctx context.Context) error {
	_ = o.Stop(ctx)

	o.m.Lock()
	rfn := o.run
	c, cnl := context.WithCancel(ctx)
	chn := make(chan struct{})

	o.cnl = cnl
	o.chn = chn
	o.running = true
	o.startedAt = time.Now()
	o.m.Unlock()

	go func() {
		defer close(chn)
		defer func() {
			if r := recover(); r != nil {
				o.m.Lock()
				o.addError(errors.New("panic in start function"))
				o.m.Unlock()
			}
		}()

		var e error
		if rfn == nil {
			e = errors.New("invalid start function")
		} else {
			e = rfn(c)
		}

		o.m.Lock()
		o.addError(e)
		o.running = false
		o.m.Unlock()
	}()

	return nil
}

// Stop cancels the running start function's context, invokes the stop
// function to request cleanup and waits for the background goroutine to
// exit.
func (o *runner) Stop(ctx context.Context) error {
	o.m.Lock()
	cnl := o.cnl
	chn := o.chn
	sfn := o.stop
	o.cnl = nil
	o.chn = nil
	o.m.Unlock()

	if cnl == nil {
		return nil
	}

	var e error
	if sfn == nil {
		e = errors.New("invalid stop function")
	} else {
		e = sfn(ctx)
	}

	cnl()

	if chn != nil {
		select {
		case <-chn:
		case <-ctx.Done():
		}
	}

	o.m.Lock()
	o.addError(e)
	o.running = false
	o.startedAt = time.Time{}
	o.m.Unlock()

	return nil
}

func (o *runner) Restart(ctx context.Context) error {
	if e := o.Stop(ctx); e != nil {
		return e
	}
	return o.Start(ctx)
}

func (o *runner) IsRunning() bool {
	o.m.Lock()
	defer o.m.Unlock()
	return o.running
}

func (o *runner) Uptime() time.Duration {
	o.m.Lock()
	defer o.m.Unlock()

	if !o.running || o.startedAt.IsZero() {
		return 0
	}
	return time.Since(o.startedAt)
}
