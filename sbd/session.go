// SPDX-License-Identifier: MIT
//
// Copyright © 2023 Sunstone Advisory Pty Ltd.

package sbd

import (
	"context"
	"encoding/binary"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/sunstone-advisory/iridium-sbd/at"
	"github.com/sunstone-advisory/iridium-sbd/info"
)

// SessionOption adjusts a composite send operation.
type SessionOption func(*sessionOptions)

type sessionOptions struct {
	minSignal      int
	compressed     bool
	networkTimeout time.Duration
	sessionTimeout time.Duration
	failOnMailbox  bool
}

func defaultSessionOptions() sessionOptions {
	return sessionOptions{
		minSignal:      1,
		sessionTimeout: defaultSessionTimeout,
	}
}

// WithSignalQuality sets the minimum signal quality required before the
// session is attempted. The default is 1.
func WithSignalQuality(quality int) SessionOption {
	return func(o *sessionOptions) {
		o.minSignal = quality
	}
}

// WithCompression compresses a text message with the configured codec
// before it is written to the MO buffer. Binary messages are never
// compressed.
func WithCompression() SessionOption {
	return func(o *sessionOptions) {
		o.compressed = true
	}
}

// WithTimeout bounds the wait for network signal. The default waits
// indefinitely.
func WithTimeout(d time.Duration) SessionOption {
	return func(o *sessionOptions) {
		o.networkTimeout = d
	}
}

// WithSessionTimeout bounds the session exchange with the gateway.
// The default is 60 seconds.
func WithSessionTimeout(d time.Duration) SessionOption {
	return func(o *sessionOptions) {
		o.sessionTimeout = d
	}
}

// WithFailOnMailboxCheckError makes a session fail when the gateway
// reports a mailbox check error (MT status 2). By default the error is
// logged and the session result returned as a success.
func WithFailOnMailboxCheckError() SessionOption {
	return func(o *sessionOptions) {
		o.failOnMailbox = true
	}
}

// WaitForNetwork blocks until the ISU reports a signal quality of at least
// minSignal, then disables indicator reporting again.
//
// If the wait fails or times out, indicator event reporting is left
// enabled; the caller is responsible for disabling it on its own error
// path.
func (s *SBD) WaitForNetwork(ctx context.Context, minSignal int, options ...CommandOption) error {
	if minSignal < 1 {
		minSignal = 1
	}
	if minSignal > 5 {
		minSignal = 5
	}
	success := regexp.MustCompile(fmt.Sprintf(`^\+CIEV:0,[%d-5]`, minSignal))
	_, _, err := s.run(ctx, at.Command{
		Payload:     "AT+CIER=1,1,0,0",
		Description: "wait for network",
		Success:     success,
	}, options)
	if err != nil {
		return err
	}
	return s.IndicatorEventReportingDisable(ctx)
}

// WriteText writes a text message to the MO buffer.
func (s *SBD) WriteText(ctx context.Context, msg string, options ...CommandOption) error {
	if len(msg) > maxTextLength {
		return ErrMessageTooLong
	}
	return s.simple(ctx, "AT+SBDWT="+msg, "write text message", options)
}

// ReadText reads the text message in the MT buffer.
func (s *SBD) ReadText(ctx context.Context, options ...CommandOption) (string, error) {
	rsp, _, err := s.run(ctx, at.Command{
		Payload:     "AT+SBDRT",
		Description: "read text message",
		Timeout:     defaultTimeout,
		Success:     okPattern,
		Buffer:      anyLinePattern,
	}, options)
	if err != nil {
		return "", err
	}
	return parseTextRead(rsp)
}

// WriteBinary writes a binary message of 1 to 340 bytes to the MO buffer.
//
// The transfer is a two phase handshake: the announced length is answered
// with READY, after which the payload and its checksum are written as raw
// bytes. The command options apply to both phases; without a
// WithCommandTimeout option the second phase has no timeout, as the ISU
// owns the transfer window and always answers with a result code.
func (s *SBD) WriteBinary(ctx context.Context, msg []byte, options ...CommandOption) error {
	if len(msg) == 0 {
		return ErrMessageEmpty
	}
	if len(msg) > maxBinaryLength {
		return ErrMessageTooLong
	}
	_, _, err := s.run(ctx, at.Command{
		Payload:     fmt.Sprintf("AT+SBDWB=%d", len(msg)),
		Description: "initiate binary write",
		Timeout:     defaultTimeout,
		Success:     readyPattern,
	}, options)
	if err != nil {
		return err
	}
	rsp, _, err := s.run(ctx, at.Command{
		Data:        appendChecksum(msg),
		Description: "transfer binary payload",
		Success:     writeResultPattern,
		Buffer:      writeResultPattern,
	}, options)
	if err != nil {
		return err
	}
	if rsp == "" {
		return ErrMalformedResponse
	}
	if code := int(rsp[0] - '0'); code != 0 {
		return BinaryWriteError(writeResultText(code))
	}
	return nil
}

// ReadBinary reads the binary message in the MT buffer and verifies its
// trailing checksum.
func (s *SBD) ReadBinary(ctx context.Context, options ...CommandOption) ([]byte, error) {
	rsp, _, err := s.run(ctx, at.Command{
		Payload:     "AT+SBDRB",
		Description: "read binary message",
		Timeout:     defaultTimeout,
		Success:     okPattern,
		Buffer:      anyLinePattern,
	}, options)
	if err != nil {
		return nil, err
	}
	return parseBinaryRead([]byte(rsp))
}

// InitiateSession attempts an SBD session with the gateway, transferring
// the MO buffer and collecting any queued MT message.
func (s *SBD) InitiateSession(ctx context.Context, options ...CommandOption) (SessionResult, error) {
	return s.initiateSession(ctx, "AT+SBDIX", options)
}

// InitiateSessionRing attempts an SBD session in answer to a ring alert.
func (s *SBD) InitiateSessionRing(ctx context.Context, options ...CommandOption) (SessionResult, error) {
	return s.initiateSession(ctx, "AT+SBDIXA", options)
}

func (s *SBD) initiateSession(ctx context.Context, payload string, options []CommandOption) (SessionResult, error) {
	rsp, _, err := s.run(ctx, at.Command{
		Payload:     payload,
		Description: "initiate SBD session",
		Timeout:     defaultSessionTimeout,
		Success:     okPattern,
		Buffer:      sbdixPattern,
	}, options)
	if err != nil {
		return SessionResult{}, err
	}
	return parseSessionResult(rsp)
}

// SendTextMessage carries a text message through the full send pipeline:
// write to the MO buffer, wait for network, run the session, collect any
// delivered MT message, and clear the MO buffer.
//
// The session result is returned even when the returned error is a
// *SessionError, so callers can diagnose the gateway's disposition.
func (s *SBD) SendTextMessage(ctx context.Context, msg string, options ...SessionOption) (SessionResult, error) {
	so := defaultSessionOptions()
	for _, option := range options {
		option(&so)
	}
	if so.compressed {
		msg = string(s.codec.Compress(msg))
	}
	if err := s.WriteText(ctx, msg); err != nil {
		return SessionResult{}, err
	}
	return s.completeSession(ctx, false, so)
}

// SendBinaryMessage carries a binary message through the full send
// pipeline, as SendTextMessage does for text.
func (s *SBD) SendBinaryMessage(ctx context.Context, msg []byte, options ...SessionOption) (SessionResult, error) {
	so := defaultSessionOptions()
	for _, option := range options {
		option(&so)
	}
	if err := s.WriteBinary(ctx, msg); err != nil {
		return SessionResult{}, err
	}
	return s.completeSession(ctx, true, so)
}

// MailboxCheck polls the gateway for queued MT messages by sending an
// empty, uncompressed text message.
func (s *SBD) MailboxCheck(ctx context.Context, options ...SessionOption) (SessionResult, error) {
	so := defaultSessionOptions()
	for _, option := range options {
		option(&so)
	}
	so.compressed = false
	if err := s.WriteText(ctx, ""); err != nil {
		return SessionResult{}, err
	}
	return s.completeSession(ctx, false, so)
}

// completeSession runs the steps following the MO buffer write: network
// wait, session, MT collection, and the unconditional MO buffer clear.
func (s *SBD) completeSession(ctx context.Context, isBinary bool, so sessionOptions) (SessionResult, error) {
	if err := s.WaitForNetwork(ctx, so.minSignal, WithCommandTimeout(so.networkTimeout)); err != nil {
		return SessionResult{}, err
	}
	result, err := s.InitiateSessionRing(ctx, WithCommandTimeout(so.sessionTimeout))
	if err != nil {
		return SessionResult{}, err
	}
	sessionErr := s.finishSession(ctx, result, isBinary, so)
	// the MO buffer is cleared whether or not the MT subpath failed, so a
	// stale message is never resent on the next session.
	if err := s.ClearMOBuffer(ctx); err != nil {
		return result, errors.WithMessage(err, "clear MO buffer after session")
	}
	return result, sessionErr
}

// finishSession interprets the session result, reading and acknowledging a
// delivered MT message.
func (s *SBD) finishSession(ctx context.Context, result SessionResult, isBinary bool, so sessionOptions) error {
	if !result.MOSuccess() {
		return &SessionError{msg: "session failed: " + result.MOStatusText, Result: &result}
	}
	switch result.MTStatus {
	case 0:
		// nothing queued.
	case 1:
		var payload []byte
		if isBinary {
			b, err := s.ReadBinary(ctx)
			if err != nil {
				return err
			}
			payload = b
		} else {
			t, err := s.ReadText(ctx)
			if err != nil {
				return err
			}
			payload = []byte(t)
		}
		s.emitInbound(payload)
		if err := s.ClearMTBuffer(ctx); err != nil {
			return err
		}
	case 2:
		if so.failOnMailbox {
			return &SessionError{msg: "session mailbox check failed: " + result.MTStatusText, Result: &result}
		}
		s.logf("session warning: %s", result.MTStatusText)
	}
	return nil
}

// Checksum returns the low 16 bits of the byte sum of b, the checksum the
// ISU expects trailing a binary transfer.
func Checksum(b []byte) uint16 {
	var sum uint16
	for _, v := range b {
		sum += uint16(v)
	}
	return sum
}

// appendChecksum returns msg with its checksum appended high byte first.
func appendChecksum(msg []byte) []byte {
	sum := Checksum(msg)
	out := make([]byte, 0, len(msg)+2)
	out = append(out, msg...)
	return append(out, byte(sum>>8), byte(sum))
}

// parseSessionResult unpacks a +SBDIX info line.
func parseSessionResult(rsp string) (SessionResult, error) {
	if !info.HasPrefix(rsp, "+SBDIX") {
		return SessionResult{}, &SessionError{msg: "unexpected session response: " + rsp}
	}
	v, err := info.Ints(info.TrimPrefix(rsp, "+SBDIX"))
	if err != nil || len(v) < 6 {
		return SessionResult{}, &SessionError{msg: "unexpected session response: " + rsp}
	}
	return SessionResult{
		MOStatus:     v[0],
		MOStatusText: moStatusText(v[0]),
		MOMSN:        v[1],
		MTStatus:     v[2],
		MTStatusText: mtStatusText(v[2]),
		MTMSN:        v[3],
		MTLength:     v[4],
		MTQueued:     v[5],
	}, nil
}

// parseTextRead extracts the message from an SBDRT response.
func parseTextRead(rsp string) (string, error) {
	idx := strings.Index(rsp, "SBDRT:")
	if idx < 0 {
		return "", ErrMalformedResponse
	}
	msg := rsp[idx+len("SBDRT:"):]
	msg = strings.TrimSuffix(msg, "\nOK")
	msg = strings.TrimPrefix(msg, "\n")
	return msg, nil
}

// parseBinaryRead unpacks the SBDRB envelope: a two byte big-endian
// length, the payload, and a two byte big-endian checksum.
func parseBinaryRead(raw []byte) ([]byte, error) {
	if len(raw) < 4 {
		return nil, ErrMalformedResponse
	}
	length := int(binary.BigEndian.Uint16(raw[:2]))
	if len(raw) < 2+length+2 {
		return nil, ErrMalformedResponse
	}
	payload := raw[2 : 2+length]
	received := binary.BigEndian.Uint16(raw[2+length : 2+length+2])
	if computed := Checksum(payload); computed != received {
		return nil, &ChecksumError{Computed: computed, Received: received}
	}
	return payload, nil
}
