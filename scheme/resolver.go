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

package scheme

import (
	"context"
	"net"
)

// Resolver resolves host to one or more candidate IP literals before
// ClientScheme dials, the DNS collaborator seam spec §4.3/§9 calls out as
// external to Scheme itself. A nil Resolver leaves resolution entirely to
// net.DialTimeout, exactly as if this seam did not exist.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// stdResolver adapts *net.Resolver to the Resolver collaborator interface.
type stdResolver struct {
	r *net.Resolver
}

func (s stdResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	return s.r.LookupHost(ctx, host)
}

// DefaultResolver wraps net.DefaultResolver behind the Resolver seam, for
// callers that want the explicit multi-address/retry path below without
// supplying a custom lookup (e.g. DoH, a hosts-file override, a mock for
// tests).
var DefaultResolver Resolver = stdResolver{r: net.DefaultResolver}
