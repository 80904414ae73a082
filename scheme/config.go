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
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nabbar/awh/transport"
)

// Config bundles the per-broker knobs shared by client and server schemes
// (spec §3 Broker fields: timeouts, marks, keepalive).
type Config struct {
	Timeouts  transport.Timeouts  `mapstructure:"timeouts" json:"timeouts" yaml:"timeouts"`
	Marks     transport.Marks     `mapstructure:"marks" json:"marks" yaml:"marks"`
	Keepalive transport.Keepalive `mapstructure:"keepalive" json:"keepalive" yaml:"keepalive"`
}

// DefaultConfig mirrors transport's own conservative defaults.
func DefaultConfig() Config {
	return Config{
		Timeouts: transport.DefaultTimeouts(),
		Marks:    transport.DefaultMarks(),
	}
}

// Attempts describes a client-scheme's reconnection policy: retry up to
// Count times (0 disables reconnection), waiting Backoff between tries.
type Attempts struct {
	Count   int           `mapstructure:"count" json:"count" yaml:"count" validate:"gte=0"`
	Backoff time.Duration `mapstructure:"backoff" json:"backoff" yaml:"backoff" validate:"gte=0"`
}

// DefaultAttempts matches spec §4.3's "default 3s" backoff, three tries.
func DefaultAttempts() Attempts {
	return Attempts{Count: 3, Backoff: 3 * time.Second}
}

// ClientConfig is a client-scheme's full policy: address to dial, broker
// config, and reconnection attempts.
type ClientConfig struct {
	Address  string   `mapstructure:"address" json:"address" yaml:"address" validate:"required"`
	Broker   Config   `mapstructure:"broker" json:"broker" yaml:"broker"`
	Attempts Attempts `mapstructure:"attempts" json:"attempts" yaml:"attempts"`
}

func (c *ClientConfig) Validate() error {
	return validator.New().Struct(c)
}

// ServerConfig is a server-scheme's full policy: listen address, broker
// config, and the total accepted-broker cap (spec §4.3 "server-scheme ...
// a total cap").
type ServerConfig struct {
	Address string `mapstructure:"address" json:"address" yaml:"address" validate:"required"`
	Broker  Config `mapstructure:"broker" json:"broker" yaml:"broker"`
	Total   int64  `mapstructure:"total" json:"total" yaml:"total" validate:"gte=0"`
}

func (c *ServerConfig) Validate() error {
	return validator.New().Struct(c)
}
