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

package httpproto

import (
	"strings"
)

// headerField is one header line as received: the name exactly as written
// on the wire, and its value.
type headerField struct {
	name  string
	value string
}

// Headers is a header multimap, case-insensitive on lookup but preserving
// each field's original casing on emit (spec §4.4 edge-case policy).
type Headers struct {
	fields []headerField
}

// Add appends a field, preserving name as given.
func (h *Headers) Add(name, value string) {
	h.fields = append(h.fields, headerField{name: name, value: value})
}

// Set replaces every existing field named name (case-insensitively) with a
// single field using the given name/value.
func (h *Headers) Set(name, value string) {
	h.Del(name)
	h.Add(name, value)
}

// Del removes every field named name, case-insensitively.
func (h *Headers) Del(name string) {
	out := h.fields[:0]
	for _, f := range h.fields {
		if !strings.EqualFold(f.name, name) {
			out = append(out, f)
		}
	}
	h.fields = out
}

// Get returns the first value for name (case-insensitive), or "" if absent.
func (h *Headers) Get(name string) string {
	for _, f := range h.fields {
		if strings.EqualFold(f.name, name) {
			return f.value
		}
	}
	return ""
}

// Values returns every value for name, in receipt order.
func (h *Headers) Values(name string) []string {
	var out []string
	for _, f := range h.fields {
		if strings.EqualFold(f.name, name) {
			out = append(out, f.value)
		}
	}
	return out
}

// Has reports whether at least one field named name is present.
func (h *Headers) Has(name string) bool {
	for _, f := range h.fields {
		if strings.EqualFold(f.name, name) {
			return true
		}
	}
	return false
}

// Count returns the number of fields named name.
func (h *Headers) Count(name string) int {
	n := 0
	for _, f := range h.fields {
		if strings.EqualFold(f.name, name) {
			n++
		}
	}
	return n
}

// Each invokes fn once per field, in receipt order, with names as
// originally written.
func (h *Headers) Each(fn func(name, value string)) {
	for _, f := range h.fields {
		fn(f.name, f.value)
	}
}

// WriteTo serialises the header section, CRLF-terminated field by field,
// without the section-terminating blank line.
func (h *Headers) WriteTo(sb *strings.Builder) {
	for _, f := range h.fields {
		sb.WriteString(f.name)
		sb.WriteString(": ")
		sb.WriteString(f.value)
		sb.WriteString("\r\n")
	}
}
