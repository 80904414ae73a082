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

// Package node is the user-facing entry point of the framework: it ties a
// scheme.ClientScheme/scheme.ServerScheme (the transport + reconnection or
// accept policy) to one of the three application protocols the module
// speaks over it — plain HTTP/1.1 (httpproto), HTTP/2 (http2), or
// WebSocket (websocket) — and exposes the result as a single Request/
// Response callback surface, matching spec §4.2's "client and server
// node" vocabulary. node/rest.go layers a small JSON REST helper on top
// of ClientNode, mirroring the convenience wrapper the original
// anyks/awh C++ implementation keeps over its own client (see
// original_source's include/client/rest.hpp).
package node
