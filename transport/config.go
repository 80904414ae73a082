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

package transport

import "time"

// Timeouts holds the three per-direction broker timeouts from spec §3/§5.
type Timeouts struct {
	Connect time.Duration `mapstructure:"connect" json:"connect" yaml:"connect" validate:"gte=0"`
	Read    time.Duration `mapstructure:"read" json:"read" yaml:"read" validate:"gte=0"`
	Write   time.Duration `mapstructure:"write" json:"write" yaml:"write" validate:"gte=0"`
}

// Keepalive mirrors the broker's TCP keepalive knobs (spec §3).
type Keepalive struct {
	Count    int           `mapstructure:"cnt" json:"cnt" yaml:"cnt" validate:"gte=0"`
	Idle     time.Duration `mapstructure:"idle" json:"idle" yaml:"idle" validate:"gte=0"`
	Interval time.Duration `mapstructure:"intvl" json:"intvl" yaml:"intvl" validate:"gte=0"`
}

// Watermark is a min/max byte pair controlling when a broker's read
// callback fires and how its write queue coalesces (spec §4.3).
type Watermark struct {
	Min int `mapstructure:"min" json:"min" yaml:"min" validate:"gte=0"`
	Max int `mapstructure:"max" json:"max" yaml:"max" validate:"gte=0"`
}

// Marks bundles the read and write watermarks of one Broker.
type Marks struct {
	Read  Watermark `mapstructure:"read" json:"read" yaml:"read"`
	Write Watermark `mapstructure:"write" json:"write" yaml:"write"`
}

// DefaultMarks matches the reference implementation's defaults: fire reads
// as soon as any byte is buffered, coalesce writes up to 64KiB.
func DefaultMarks() Marks {
	return Marks{
		Read:  Watermark{Min: 1, Max: 0},
		Write: Watermark{Min: 0, Max: 64 * 1024},
	}
}

// DefaultTimeouts is a conservative default: 30s to connect, 2 minutes of
// read/write idleness tolerated.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Connect: 30 * time.Second,
		Read:    2 * time.Minute,
		Write:   2 * time.Minute,
	}
}
