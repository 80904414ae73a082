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

package engine

import (
	"github.com/go-playground/validator/v10"
)

// ProxyKind selects which client proxy handshake Config.Dial runs before
// handing the connection to the outer protocol.
type ProxyKind uint8

const (
	ProxyNone ProxyKind = iota
	ProxySocks5
	ProxyConnect
)

// ProxyConfig describes the proxy hop a client Engine tunnels through
// before reaching its real target (spec §4.2 "SOCKS5 client"/"HTTP-CONNECT client").
type ProxyConfig struct {
	Kind     ProxyKind `mapstructure:"kind" json:"kind" yaml:"kind" validate:"gte=0,lte=2"`
	Address  string    `mapstructure:"address" json:"address" yaml:"address" validate:"omitempty,hostname_port"`
	Username string    `mapstructure:"username" json:"username" yaml:"username" validate:"omitempty"`
	Password string    `mapstructure:"password" json:"password" yaml:"password" validate:"omitempty"`
}

// Config is the validated set of knobs a scheme passes to engine.Dial /
// engine.Wrap when turning a raw connection into an Engine.
type Config struct {
	TLS   bool        `mapstructure:"tls" json:"tls" yaml:"tls"`
	Proxy ProxyConfig `mapstructure:"proxy" json:"proxy" yaml:"proxy"`
}

// Validate runs struct-tag validation over Config.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}
