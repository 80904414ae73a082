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

package hashalgo

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"io"
	"strings"

	libenc "github.com/nabbar/awh/encoding"
)

// Kind selects one of the digest algorithms spec §4.4's Digest auth and
// §4.6's WebSocket handshake name.
type Kind uint8

const (
	KindMD5 Kind = iota
	KindSHA1
	KindSHA256
	KindSHA384
	KindSHA512
)

func (k Kind) String() string {
	switch k {
	case KindMD5:
		return "MD5"
	case KindSHA1:
		return "SHA1"
	case KindSHA256:
		return "SHA-256"
	case KindSHA384:
		return "SHA-384"
	case KindSHA512:
		return "SHA-512"
	default:
		return "unknown"
	}
}

// ParseKind maps a Digest "algorithm" token (case-insensitive, "-" and "_"
// both accepted as the SHA separator) to its Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.NewReplacer("_", "-", " ", "").Replace(s)) {
	case "MD5":
		return KindMD5, nil
	case "SHA1", "SHA-1":
		return KindSHA1, nil
	case "SHA256", "SHA-256":
		return KindSHA256, nil
	case "SHA384", "SHA-384":
		return KindSHA384, nil
	case "SHA512", "SHA-512":
		return KindSHA512, nil
	default:
		return 0, ErrorKindUnknown.Error()
	}
}

func (k Kind) newHash() (hash.Hash, error) {
	switch k {
	case KindMD5:
		return md5.New(), nil
	case KindSHA1:
		return sha1.New(), nil
	case KindSHA256:
		return sha256.New(), nil
	case KindSHA384:
		return sha512.New384(), nil
	case KindSHA512:
		return sha512.New(), nil
	default:
		return nil, ErrorKindUnknown.Error()
	}
}

// New returns an encoding.Coder bound to k, in the same shape as
// encoding/sha256.New but parameterised over the algorithm.
func (k Kind) New() (libenc.Coder, error) {
	h, err := k.newHash()
	if err != nil {
		return nil, err
	}
	return &coder{hsh: h}, nil
}

// Sum hashes p in one call and returns the raw (not hex-encoded) digest.
func (k Kind) Sum(p []byte) ([]byte, error) {
	c, err := k.New()
	if err != nil {
		return nil, err
	}
	return c.Encode(p), nil
}

type coder struct {
	hsh hash.Hash
}

func (o *coder) Encode(p []byte) []byte {
	if o.hsh == nil {
		return make([]byte, 0)
	}
	if len(p) > 0 {
		if _, e := o.hsh.Write(p); e != nil {
			return make([]byte, 0)
		}
	}
	if q := o.hsh.Sum(nil); len(q) > 0 {
		return q[:]
	}
	return make([]byte, 0)
}

func (o *coder) Decode(_ []byte) ([]byte, error) {
	return nil, ErrorKindUnknown.Error()
}

func (o *coder) EncodeReader(r io.Reader) io.ReadCloser {
	f := func(p []byte) (int, error) {
		n, err := r.Read(p)
		if n > 0 && o.hsh != nil {
			_, _ = o.hsh.Write(p[:n])
		}
		return n, err
	}
	return &rwAdapter{read: f, closer: closerOf(r)}
}

func (o *coder) DecodeReader(_ io.Reader) io.ReadCloser {
	return nil
}

func (o *coder) EncodeWriter(w io.Writer) io.WriteCloser {
	f := func(p []byte) (int, error) {
		n, err := w.Write(p)
		if n > 0 && o.hsh != nil {
			_, _ = o.hsh.Write(p[:n])
		}
		return n, err
	}
	return &rwAdapter{write: f, closer: closerOf(w)}
}

func (o *coder) DecodeWriter(_ io.Writer) io.WriteCloser {
	return nil
}

func (o *coder) Reset() {
	if o.hsh != nil {
		o.hsh.Reset()
	}
}

func closerOf(v interface{}) func() error {
	if c, ok := v.(io.Closer); ok {
		return c.Close
	}
	return func() error { return nil }
}

// rwAdapter mirrors encoding/sha256's internal reader/writer shim, merged
// into one type since EncodeReader and EncodeWriter never populate both
// halves of the same instance.
type rwAdapter struct {
	read   func(p []byte) (int, error)
	write  func(p []byte) (int, error)
	closer func() error
}

func (a *rwAdapter) Read(p []byte) (int, error) {
	if a.read == nil {
		return 0, ErrorKindUnknown.Error()
	}
	return a.read(p)
}

func (a *rwAdapter) Write(p []byte) (int, error) {
	if a.write == nil {
		return 0, ErrorKindUnknown.Error()
	}
	return a.write(p)
}

func (a *rwAdapter) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer()
}
