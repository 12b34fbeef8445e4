package sbd

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrWrongUnlockKey indicates the unlock key was rejected and the ISU
	// remains locked.
	ErrWrongUnlockKey = errors.New("wrong unlock key, device still locked")

	// ErrPermanentlyLocked indicates the ISU has exhausted its unlock
	// attempts and may no longer be unlocked.
	ErrPermanentlyLocked = errors.New("device is permanently locked")

	// ErrNoNetworkService indicates the ISU has no network service, so no
	// network system time is available.
	ErrNoNetworkService = errors.New("no network service")

	// ErrMalformedResponse indicates the modem returned a response the
	// driver could not interpret.
	ErrMalformedResponse = errors.New("modem returned malformed response")

	// ErrMessageTooLong indicates the message is longer than the write
	// accepts: 340 bytes for a binary write, 120 for a text write.
	ErrMessageTooLong = errors.New("message exceeds MO buffer capacity")

	// ErrMessageEmpty indicates an empty binary message, which the SBDWB
	// handshake cannot carry.
	ErrMessageEmpty = errors.New("message is empty")
)

// SessionError indicates a session-level failure.
//
// Result carries the structured session result for diagnosis when the
// gateway completed the exchange but reported a failure, and is nil
// otherwise.
type SessionError struct {
	msg    string
	Result *SessionResult
}

func (e *SessionError) Error() string {
	return e.msg
}

// BinaryWriteError indicates the binary write handshake failed; the value
// is the ISU's reason for rejecting the transfer.
type BinaryWriteError string

func (e BinaryWriteError) Error() string {
	return string("binary write failed: " + e)
}

// ChecksumError indicates the checksum trailing a mobile terminated binary
// payload did not match the payload.
type ChecksumError struct {
	Computed uint16
	Received uint16
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("MT payload checksum mismatch: computed %#04x, received %#04x", e.Computed, e.Received)
}
