// SPDX-License-Identifier: MIT
//
// Copyright © 2023 Sunstone Advisory Pty Ltd.

// Package sbd drives an Iridium 9602/9603 Short Burst Data transceiver.
//
// The SBD type decorates the at engine with typed wrappers for the ISU
// command set, and with the multi-step workflows that carry a message
// through buffer write, network wait, session and buffer hygiene.
package sbd

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/sunstone-advisory/iridium-sbd/at"
	"github.com/sunstone-advisory/iridium-sbd/codec"
)

const (
	// defaultTimeout bounds simple catalog commands.
	defaultTimeout = 5 * time.Second

	// csqTimeout bounds the slow signal quality query, which the ISU may
	// take up to 50 seconds to answer.
	csqTimeout = 50 * time.Second

	// defaultSessionTimeout bounds an SBD session attempt.
	defaultSessionTimeout = 60 * time.Second

	// maxBinaryLength is the MO buffer capacity of the 9602/9603.
	maxBinaryLength = 340

	// maxTextLength is the longest message accepted on an SBDWT command
	// line.
	maxTextLength = 120
)

// Logger is the interface used to log driver diagnostics.
type Logger interface {
	Printf(format string, v ...interface{})
}

// SBD decorates the at engine with Iridium SBD functionality.
type SBD struct {
	*at.AT

	modem io.ReadWriter
	codec codec.Codec

	ringHandler    func()
	inboundHandler func([]byte)
	logger         Logger
}

// Option is a construction option for an SBD.
type Option func(*SBD)

// WithLogger sets the logger used for driver and engine diagnostics.
func WithLogger(l Logger) Option {
	return func(s *SBD) {
		s.logger = l
	}
}

// WithRingHandler sets the handler called when the gateway rings to signal
// a waiting mobile terminated message.
func WithRingHandler(handler func()) Option {
	return func(s *SBD) {
		s.ringHandler = handler
	}
}

// WithInboundHandler sets the handler called with the payload of each
// mobile terminated message read during a session.
func WithInboundHandler(handler func([]byte)) Option {
	return func(s *SBD) {
		s.inboundHandler = handler
	}
}

// WithCodec sets the compression codec applied to text messages sent with
// WithCompression.
func WithCodec(c codec.Codec) Option {
	return func(s *SBD) {
		s.codec = c
	}
}

// New creates a new SBD driver on the modem.
func New(modem io.ReadWriter, options ...Option) *SBD {
	s := &SBD{
		modem: modem,
		codec: codec.Smaz{},
	}
	for _, option := range options {
		option(s)
	}
	atOptions := []at.Option{at.WithRingHandler(s.emitRing)}
	if s.logger != nil {
		atOptions = append(atOptions, at.WithLogger(s.logger))
	}
	s.AT = at.New(modem, atOptions...)
	return s
}

// Init runs the boot sequence, leaving the modem in a known state ready to
// send and receive messages.
//
// The sequence is fail-fast: the first failing step aborts initialisation.
func (s *SBD) Init(ctx context.Context) error {
	steps := []struct {
		description string
		run         func(context.Context, ...CommandOption) error
	}{
		{"disable flow control", s.FlowControlDisable},
		{"disable echo", s.EchoOff},
		{"disable indicator event reporting", s.IndicatorEventReportingDisable},
		{"clear message buffers", s.ClearBuffers},
		{"enable automatic registration", s.AutoRegistrationEnable},
		{"enable ring alerts", s.RingAlertEnable},
	}
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			return errors.WithMessagef(err, "init: %s", step.description)
		}
	}
	// surface a ring alert that arrived while the driver was down.
	if _, err := s.RingIndicationStatus(ctx, WithRingNotification()); err != nil {
		return errors.WithMessage(err, "init: read ring indication status")
	}
	return nil
}

// Close tears down the transport, if the driver owns one that can be
// closed. Any in-flight command fails with at.ErrClosed.
func (s *SBD) Close() error {
	if c, ok := s.modem.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// emitRing fans an unsolicited ring alert out to the registered handler.
func (s *SBD) emitRing() {
	if s.ringHandler != nil {
		s.ringHandler()
	}
}

// emitInbound delivers a mobile terminated payload to the registered
// handler.
func (s *SBD) emitInbound(payload []byte) {
	if s.inboundHandler != nil {
		s.inboundHandler(payload)
	}
}

func (s *SBD) logf(format string, v ...interface{}) {
	if s.logger == nil {
		return
	}
	s.logger.Printf(format, v...)
}

// CommandOption adjusts a single catalog command.
type CommandOption func(*commandOptions)

type commandOptions struct {
	timeout    time.Duration
	ringNotify bool
}

// WithCommandTimeout overrides the command's default timeout.
// Zero waits indefinitely.
func WithCommandTimeout(d time.Duration) CommandOption {
	return func(o *commandOptions) {
		o.timeout = d
	}
}

// WithRingNotification requests that a ring indication reported by the
// modem is also emitted to the ring alert handler.
func WithRingNotification() CommandOption {
	return func(o *commandOptions) {
		o.ringNotify = true
	}
}

// run submits a catalog command to the engine with any per-command options
// applied.
func (s *SBD) run(ctx context.Context, cmd at.Command, options []CommandOption) (string, commandOptions, error) {
	co := commandOptions{timeout: cmd.Timeout}
	for _, option := range options {
		option(&co)
	}
	cmd.Timeout = co.timeout
	rsp, err := s.Execute(ctx, cmd)
	return rsp, co, err
}
