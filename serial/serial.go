// SPDX-License-Identifier: MIT
//
// Copyright © 2023 Sunstone Advisory Pty Ltd.

// Package serial opens the serial connection to the Iridium transceiver.
package serial

import (
	"github.com/tarm/serial"
)

// Config contains the serial connection settings.
type Config struct {
	port string
	baud int
}

// Option modifies the serial configuration.
type Option func(*Config)

// WithPort sets the path to the serial device.
func WithPort(port string) Option {
	return func(c *Config) {
		c.port = port
	}
}

// WithBaud sets the line speed.
//
// The 9602 and 9603 default to 19200.
func WithBaud(baud int) Option {
	return func(c *Config) {
		c.baud = baud
	}
}

// New opens the serial port connected to the modem.
func New(options ...Option) (*serial.Port, error) {
	c := Config{
		port: "/dev/ttyUSB0",
		baud: 19200,
	}
	for _, option := range options {
		option(&c)
	}
	p, err := serial.OpenPort(&serial.Config{Name: c.port, Baud: c.baud})
	if err != nil {
		return nil, err
	}
	return p, nil
}
