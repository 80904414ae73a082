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

package runner

import (
	"fmt"
	"log"
	"runtime/debug"
)

// RecoveryCaller logs a recovered panic value along with the caller-supplied
// name and optional context strings, plus a stack trace. It is a no-op when
// r is nil, so callers can defer it unconditionally:
//
//	defer runner.RecoveryCaller("pkg/func", recover())
func RecoveryCaller(name string, r interface{}, context ...string) {
	if r == nil {
		return
	}

	msg := fmt.Sprintf("panic recovered in %q: %v", name, r)
	if len(context) > 0 {
		msg = fmt.Sprintf("%s (%s)", msg, joinContext(context))
	}

	log.Printf("%s\n%s", msg, debug.Stack())
}

func joinContext(context []string) string {
	out := ""
	for i, c := range context {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}
