// SPDX-License-Identifier: MIT
//
// Copyright © 2023 Sunstone Advisory Pty Ltd.

// Package at provides a low level request/response engine for the AT command
// set spoken by Iridium 9602/9603 SBD transceivers.
//
// The engine owns a single in-flight command at a time. Commands are
// described by a Command descriptor which declares the request payload, the
// regular expressions that classify the modem's response lines, and the
// command timeout. Callers submit descriptors with Execute; submissions
// queue on the engine loop and run strictly one at a time, so callers never
// race each other for the modem.
package at

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"regexp"
	"time"

	"github.com/pkg/errors"
)

// Command describes one request/response exchange with the modem.
//
// Exactly one of Payload or Data should be set. Payload is written with a
// trailing CRLF; Data is written verbatim and is only used for the second
// phase of the binary write handshake.
type Command struct {
	// Payload is the literal ASCII command, without line terminator.
	Payload string

	// Data is a raw byte payload written verbatim instead of Payload.
	Data []byte

	// Description labels the command in logs and errors.
	Description string

	// Timeout bounds the wait for a completing response line.
	// Zero means wait indefinitely.
	Timeout time.Duration

	// Success matches the response line that completes the command.
	Success *regexp.Regexp

	// Error matches the response line that fails the command.
	// If nil the line "ERROR" fails the command.
	Error *regexp.Regexp

	// Buffer selects the response lines accumulated into the result.
	// If nil no lines are accumulated.
	Buffer *regexp.Regexp
}

// Logger is the interface used to log engine diagnostics.
type Logger interface {
	Printf(format string, v ...interface{})
}

// AT is the engine that arbitrates access to the modem.
//
// The AT closes the Closed channel when the connection to the underlying
// modem is broken (Read returns EOF). When closed, all outstanding commands
// return ErrClosed and the state of the underlying modem becomes unknown.
// Once closed the AT cannot be re-opened - it must be recreated.
type AT struct {
	// channel for commands issued to the modem
	cmdCh chan func()

	// channel for changes to the ring alert handler
	ringCh chan func()

	// closed when the modem is closed
	closed chan struct{}

	// all lines read from the modem
	iLines chan string

	// lines read from the modem after ring alerts removed
	cLines chan string

	// the underlying modem
	modem io.ReadWriter

	// called once per unsolicited SBDRING line; only modified in ringLoop
	ringHandler func()

	logger Logger
}

// Option is a construction option for an AT.
type Option func(*AT)

// WithLogger sets the logger used for engine diagnostics, such as lines
// received while no command is in flight.
func WithLogger(l Logger) Option {
	return func(a *AT) {
		a.logger = l
	}
}

// WithRingHandler sets the handler called for unsolicited SBDRING alerts.
func WithRingHandler(handler func()) Option {
	return func(a *AT) {
		a.ringHandler = handler
	}
}

// New creates a new AT engine on the modem.
func New(modem io.ReadWriter, options ...Option) *AT {
	a := &AT{
		modem:  modem,
		cmdCh:  make(chan func()),
		ringCh: make(chan func()),
		iLines: make(chan string),
		cLines: make(chan string),
		closed: make(chan struct{}),
	}
	for _, option := range options {
		option(a)
	}
	go lineReader(a.modem, a.iLines)
	go a.ringLoop(a.ringCh, a.iLines, a.cLines)
	go a.cmdLoop(a.cmdCh, a.cLines, a.closed)
	return a
}

// Closed returns a channel which will block while the modem is not closed.
func (a *AT) Closed() <-chan struct{} {
	return a.closed
}

// SetRingHandler replaces the handler called for unsolicited SBDRING alerts.
//
// A nil handler drops ring alerts.
func (a *AT) SetRingHandler(handler func()) {
	done := make(chan struct{})
	ringf := func() {
		a.ringHandler = handler
		close(done)
	}
	select {
	case <-a.closed:
	case a.ringCh <- ringf:
		<-done
	}
}

// Execute issues the command to the modem and returns the accumulated
// response.
//
// Commands are serialised through the engine loop; a submission made while
// another command is in flight waits its turn. The accumulated response is
// the buffered lines joined with a single newline, and is empty for
// commands without a buffer pattern.
func (a *AT) Execute(ctx context.Context, cmd Command) (string, error) {
	done := make(chan response)
	cmdf := func() {
		rsp, err := a.processCmd(ctx, cmd)
		done <- response{rsp: rsp, err: err}
	}
	select {
	case <-a.closed:
		return "", ErrClosed
	case <-ctx.Done():
		return "", ctx.Err()
	case a.cmdCh <- cmdf:
		rsp := <-done
		return rsp.rsp, rsp.err
	}
}

// cmdLoop serialises the issuing of commands and awaits the responses.
//
// If no command is pending then any lines received are discarded with a
// warning, as the modem interleaves verbose acknowledgements that no
// command claims.
//
// The cmdLoop terminates when the upstream closes.
func (a *AT) cmdLoop(cmds chan func(), in <-chan string, out chan struct{}) {
	for {
		select {
		case cmd := <-cmds:
			cmd()
		case line, ok := <-in:
			if !ok {
				close(out)
				return
			}
			if line != "" {
				a.logf("discarding line with no command in flight: %s", line)
			}
		}
	}
}

// lineReader takes lines from m and redirects them to out.
//
// lineReader exits when m closes.
func lineReader(m io.Reader, out chan string) {
	scanner := bufio.NewScanner(m)
	scanner.Split(scanLines)
	for scanner.Scan() {
		out <- scanner.Text()
	}
	close(out) // tell pipeline we're done - end of pipeline will close the AT.
}

// ringLoop pulls unsolicited SBDRING alerts from the stream of lines read
// from the modem and forwards them to the ring handler. All other lines
// pass upstream untouched.
//
// A ring alert never completes an in-flight command, even while one is
// pending, so the routing happens below the command loop.
//
// ringLoop exits when the in channel closes.
func (a *AT) ringLoop(cmds chan func(), in <-chan string, out chan string) {
	defer close(out)
	for {
		select {
		case cmd := <-cmds:
			cmd()
		case line, ok := <-in:
			if !ok {
				return
			}
			if ringPattern.MatchString(line) {
				if a.ringHandler != nil {
					a.ringHandler()
				}
				continue
			}
			out <- line
		}
	}
}

func (a *AT) processCmd(ctx context.Context, cmd Command) (string, error) {
	if err := a.writeCommand(cmd); err != nil {
		return "", errors.Wrap(err, cmd.Description)
	}
	errPattern := cmd.Error
	if errPattern == nil {
		errPattern = defaultErrorPattern
	}
	var timeout <-chan time.Time
	if cmd.Timeout > 0 {
		t := time.NewTimer(cmd.Timeout)
		defer t.Stop()
		timeout = t.C
	}
	var rsp bytes.Buffer
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timeout:
			return "", ErrTimeout
		case line, ok := <-a.cLines:
			if !ok {
				return "", ErrClosed
			}
			if line == "" {
				continue
			}
			// error first, then buffer, then success - a line may both
			// buffer and complete the command.
			if errPattern.MatchString(line) {
				return "", CommandError(rsp.String())
			}
			if cmd.Buffer != nil && cmd.Buffer.MatchString(line) && line != cmd.Payload {
				if rsp.Len() > 0 {
					rsp.WriteByte('\n')
				}
				rsp.WriteString(line)
			}
			if cmd.Success.MatchString(line) {
				return rsp.String(), nil
			}
		}
	}
}

// writeCommand writes the command payload to the modem.
//
// Text payloads are terminated with CRLF; byte payloads are written
// verbatim.
func (a *AT) writeCommand(cmd Command) error {
	if cmd.Data != nil {
		_, err := a.modem.Write(cmd.Data)
		return err
	}
	_, err := a.modem.Write([]byte(cmd.Payload + "\r\n"))
	return err
}

func (a *AT) logf(format string, v ...interface{}) {
	if a.logger == nil {
		return
	}
	a.logger.Printf(format, v...)
}

var (
	// ErrClosed indicates an operation cannot be performed as the modem has
	// been closed.
	ErrClosed = errors.New("closed")

	// ErrTimeout indicates the modem did not complete a command within its
	// timeout.
	ErrTimeout = errors.New("timeout")

	ringPattern         = regexp.MustCompile(`^SBDRING$`)
	defaultErrorPattern = regexp.MustCompile(`^ERROR$`)
)

// CommandError indicates the modem failed a command, replying with ERROR or
// a line matching the command's error pattern.
//
// The value is the response accumulated before the failure, which is empty
// when the modem offered no diagnosis.
type CommandError string

func (e CommandError) Error() string {
	if e == "" {
		return "command failed"
	}
	return string("command failed: " + e)
}

// response represents the result of a request operation performed on the
// modem.
type response struct {
	rsp string
	err error
}

// scanLines splits the inbound byte stream at CRLF boundaries.
//
// Only the two byte CRLF sequence delimits lines; lone CR or LF bytes are
// preserved so the length-prefixed SBDRB payload survives framing whenever
// it contains either byte on its own.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.Index(data, []byte("\r\n")); i >= 0 {
		return i + 2, data[0:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
