// SPDX-License-Identifier: MIT
//
// Copyright © 2023 Sunstone Advisory Pty Ltd.

package sbd

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sunstone-advisory/iridium-sbd/at"
	"github.com/sunstone-advisory/iridium-sbd/info"
)

var (
	okPattern    = regexp.MustCompile(`^OK$`)
	readyPattern = regexp.MustCompile(`^READY`)

	// anyLinePattern buffers every response line, including the final OK,
	// which parsers strip with trimFinalOK.
	anyLinePattern = regexp.MustCompile(`(?s)^.+$`)

	csqPattern         = regexp.MustCompile(`^\+CSQ:`)
	csqfPattern        = regexp.MustCompile(`^\+CSQF:`)
	msstmPattern       = regexp.MustCompile(`^-MSSTM:`)
	crisPattern        = regexp.MustCompile(`^\+CRIS:`)
	culkPattern        = regexp.MustCompile(`^\+CULK:`)
	sbdmtaPattern      = regexp.MustCompile(`^\+SBDMTA:`)
	sbdregPattern      = regexp.MustCompile(`^\+SBDREG:`)
	sbdsPattern        = regexp.MustCompile(`^\+SBDS:`)
	sbdsxPattern       = regexp.MustCompile(`^\+SBDSX:`)
	sbddetPattern      = regexp.MustCompile(`^\+SBDDET:`)
	sbdixPattern       = regexp.MustCompile(`^\+SBDIX:`)
	sbdgwPattern       = regexp.MustCompile(`^\+SBDGW:`)
	writeResultPattern = regexp.MustCompile(`^[0-3]`)
)

// IridiumEpoch is the reference instant for the network system time counter
// reported on the -MSSTM response.
var IridiumEpoch = time.Date(2007, time.March, 8, 3, 50, 35, 0, time.UTC)

// MSSTMTick is the resolution of the network system time counter.
const MSSTMTick = 90 * time.Millisecond

// simple issues a command that completes with a bare OK.
func (s *SBD) simple(ctx context.Context, payload, description string, options []CommandOption) error {
	_, _, err := s.run(ctx, at.Command{
		Payload:     payload,
		Description: description,
		Timeout:     defaultTimeout,
		Success:     okPattern,
	}, options)
	return err
}

// Ping checks the modem is responding to commands.
func (s *SBD) Ping(ctx context.Context, options ...CommandOption) error {
	return s.simple(ctx, "AT", "ping", options)
}

// EchoOn enables command echo on the serial line.
func (s *SBD) EchoOn(ctx context.Context, options ...CommandOption) error {
	return s.simple(ctx, "ATE1", "enable echo", options)
}

// EchoOff disables command echo on the serial line.
func (s *SBD) EchoOff(ctx context.Context, options ...CommandOption) error {
	return s.simple(ctx, "ATE0", "disable echo", options)
}

// QuietDisable makes the modem send result codes.
func (s *SBD) QuietDisable(ctx context.Context, options ...CommandOption) error {
	return s.simple(ctx, "ATQ0", "disable quiet mode", options)
}

// VerboseEnable selects textual result codes.
func (s *SBD) VerboseEnable(ctx context.Context, options ...CommandOption) error {
	return s.simple(ctx, "ATV1", "enable verbose mode", options)
}

// FlowControlEnable enables RTS/CTS flow control.
func (s *SBD) FlowControlEnable(ctx context.Context, options ...CommandOption) error {
	return s.simple(ctx, "AT&K3", "enable flow control", options)
}

// FlowControlDisable disables flow control, as required for three-wire
// serial connections.
func (s *SBD) FlowControlDisable(ctx context.Context, options ...CommandOption) error {
	return s.simple(ctx, "AT&K0", "disable flow control", options)
}

// FactoryReset restores the factory default configuration.
func (s *SBD) FactoryReset(ctx context.Context, options ...CommandOption) error {
	return s.simple(ctx, "AT&F0", "restore factory defaults", options)
}

// StoreActiveProfile saves the active configuration as profile 0.
func (s *SBD) StoreActiveProfile(ctx context.Context, options ...CommandOption) error {
	return s.simple(ctx, "AT&W0", "store active profile", options)
}

// DesignateResetProfile selects profile 0 as the power-up configuration.
func (s *SBD) DesignateResetProfile(ctx context.Context, options ...CommandOption) error {
	return s.simple(ctx, "AT&Y0", "designate reset profile", options)
}

// SoftReset reloads profile 0 as the active configuration.
func (s *SBD) SoftReset(ctx context.Context, options ...CommandOption) error {
	return s.simple(ctx, "ATZ0", "soft reset", options)
}

// identity issues a query whose free-form response lines form the result.
func (s *SBD) identity(ctx context.Context, payload, description string, options []CommandOption) (string, error) {
	rsp, _, err := s.run(ctx, at.Command{
		Payload:     payload,
		Description: description,
		Timeout:     defaultTimeout,
		Success:     okPattern,
		Buffer:      anyLinePattern,
	}, options)
	if err != nil {
		return "", err
	}
	return trimFinalOK(rsp), nil
}

// Manufacturer returns the device manufacturer name.
func (s *SBD) Manufacturer(ctx context.Context, options ...CommandOption) (string, error) {
	return s.identity(ctx, "AT+CGMI", "query manufacturer", options)
}

// Model returns the device model identification.
func (s *SBD) Model(ctx context.Context, options ...CommandOption) (string, error) {
	return s.identity(ctx, "AT+CGMM", "query model", options)
}

// Revision returns the device revision identification.
func (s *SBD) Revision(ctx context.Context, options ...CommandOption) (string, error) {
	return s.identity(ctx, "AT+CGMR", "query revision", options)
}

// SerialNumber returns the device serial number (IMEI).
func (s *SBD) SerialNumber(ctx context.Context, options ...CommandOption) (string, error) {
	return s.identity(ctx, "AT+CGSN", "query serial number", options)
}

// SoftwareRevision returns the software revision level.
func (s *SBD) SoftwareRevision(ctx context.Context, options ...CommandOption) (string, error) {
	return s.identity(ctx, "ATI3", "query software revision", options)
}

// HardwareSpecification returns the hardware specification string.
func (s *SBD) HardwareSpecification(ctx context.Context, options ...CommandOption) (string, error) {
	return s.identity(ctx, "ATI7", "query hardware specification", options)
}

// SignalQuality queries the received signal strength, 0 to 5 bars.
//
// The ISU may take up to 50 seconds to answer; SignalQualityFast returns
// the last known value immediately.
func (s *SBD) SignalQuality(ctx context.Context, options ...CommandOption) (int, error) {
	rsp, _, err := s.run(ctx, at.Command{
		Payload:     "AT+CSQ",
		Description: "query signal quality",
		Timeout:     csqTimeout,
		Success:     okPattern,
		Buffer:      csqPattern,
	}, options)
	if err != nil {
		return 0, err
	}
	return parseIntResponse(rsp, "+CSQ")
}

// SignalQualityFast queries the last known received signal strength.
func (s *SBD) SignalQualityFast(ctx context.Context, options ...CommandOption) (int, error) {
	rsp, _, err := s.run(ctx, at.Command{
		Payload:     "AT+CSQF",
		Description: "query signal quality (fast)",
		Timeout:     defaultTimeout,
		Success:     okPattern,
		Buffer:      csqfPattern,
	}, options)
	if err != nil {
		return 0, err
	}
	return parseIntResponse(rsp, "+CSQF")
}

// NetworkSystemTime returns the Iridium network system time.
//
// The -MSSTM counter is decoded as ticks of MSSTMTick since IridiumEpoch.
// ErrNoNetworkService is returned while the ISU has no network visibility.
func (s *SBD) NetworkSystemTime(ctx context.Context, options ...CommandOption) (time.Time, error) {
	rsp, _, err := s.run(ctx, at.Command{
		Payload:     "AT-MSSTM",
		Description: "query network system time",
		Timeout:     defaultTimeout,
		Success:     okPattern,
		Buffer:      msstmPattern,
	}, options)
	if err != nil {
		return time.Time{}, err
	}
	if !info.HasPrefix(rsp, "-MSSTM") {
		return time.Time{}, ErrMalformedResponse
	}
	value := info.TrimPrefix(rsp, "-MSSTM")
	if strings.EqualFold(value, "no network service") {
		return time.Time{}, ErrNoNetworkService
	}
	ticks, err := strconv.ParseUint(value, 16, 64)
	if err != nil {
		return time.Time{}, ErrMalformedResponse
	}
	return IridiumEpoch.Add(time.Duration(ticks) * MSSTMTick), nil
}

// AutoRegistrationEnable tells the ISU to register with the network on its
// own whenever its location changes enough to require it.
func (s *SBD) AutoRegistrationEnable(ctx context.Context, options ...CommandOption) error {
	return s.simple(ctx, "AT+SBDAREG=1", "enable automatic registration", options)
}

// AutoRegistrationDisable disables automatic network registration.
func (s *SBD) AutoRegistrationDisable(ctx context.Context, options ...CommandOption) error {
	return s.simple(ctx, "AT+SBDAREG=0", "disable automatic registration", options)
}

// Register initiates a manual network registration.
func (s *SBD) Register(ctx context.Context, options ...CommandOption) (RegistrationStatus, error) {
	rsp, _, err := s.run(ctx, at.Command{
		Payload:     "AT+SBDREG",
		Description: "initiate network registration",
		Timeout:     defaultSessionTimeout,
		Success:     okPattern,
		Buffer:      sbdregPattern,
	}, options)
	if err != nil {
		return 0, err
	}
	return parseRegistration(rsp)
}

// RegistrationStatus queries the current network registration state.
func (s *SBD) RegistrationStatus(ctx context.Context, options ...CommandOption) (RegistrationStatus, error) {
	rsp, _, err := s.run(ctx, at.Command{
		Payload:     "AT+SBDREG?",
		Description: "query registration status",
		Timeout:     defaultTimeout,
		Success:     okPattern,
		Buffer:      sbdregPattern,
	}, options)
	if err != nil {
		return 0, err
	}
	return parseRegistration(rsp)
}

// RingAlertEnable enables gateway ring alerts.
func (s *SBD) RingAlertEnable(ctx context.Context, options ...CommandOption) error {
	return s.simple(ctx, "AT+SBDMTA=1", "enable ring alerts", options)
}

// RingAlertDisable disables gateway ring alerts.
func (s *SBD) RingAlertDisable(ctx context.Context, options ...CommandOption) error {
	return s.simple(ctx, "AT+SBDMTA=0", "disable ring alerts", options)
}

// RingAlertEnabled queries whether ring alerts are enabled.
func (s *SBD) RingAlertEnabled(ctx context.Context, options ...CommandOption) (bool, error) {
	rsp, _, err := s.run(ctx, at.Command{
		Payload:     "AT+SBDMTA?",
		Description: "query ring alert mode",
		Timeout:     defaultTimeout,
		Success:     okPattern,
		Buffer:      sbdmtaPattern,
	}, options)
	if err != nil {
		return false, err
	}
	mode, err := parseIntResponse(rsp, "+SBDMTA")
	if err != nil {
		return false, err
	}
	return mode == 1, nil
}

// RingIndicationStatus queries whether the ISU has seen a ring alert since
// the indication was last cleared.
//
// With WithRingNotification a reported ring is also emitted to the ring
// alert handler, so an alert that arrived while the host was down is not
// lost.
func (s *SBD) RingIndicationStatus(ctx context.Context, options ...CommandOption) (RingStatus, error) {
	rsp, co, err := s.run(ctx, at.Command{
		Payload:     "AT+CRIS",
		Description: "query ring indication status",
		Timeout:     defaultTimeout,
		Success:     okPattern,
		Buffer:      crisPattern,
	}, options)
	if err != nil {
		return RingNone, err
	}
	if !info.HasPrefix(rsp, "+CRIS") {
		return RingNone, ErrMalformedResponse
	}
	// +CRIS:<tri>,<sri> - the second field is the SBD ring indication.
	fields, err := info.Ints(info.TrimPrefix(rsp, "+CRIS"))
	if err != nil || len(fields) < 2 {
		return RingNone, ErrMalformedResponse
	}
	status := RingStatus(fields[1])
	if co.ringNotify && status == RingReceived {
		s.emitRing()
	}
	return status, nil
}

// ClearMOBuffer clears the mobile originated buffer.
func (s *SBD) ClearMOBuffer(ctx context.Context, options ...CommandOption) error {
	return s.simple(ctx, "AT+SBDD0", "clear MO buffer", options)
}

// ClearMTBuffer clears the mobile terminated buffer.
func (s *SBD) ClearMTBuffer(ctx context.Context, options ...CommandOption) error {
	return s.simple(ctx, "AT+SBDD1", "clear MT buffer", options)
}

// ClearBuffers clears both message buffers.
//
// Neither sequence number is reset; use ResetMOMSN for that.
func (s *SBD) ClearBuffers(ctx context.Context, options ...CommandOption) error {
	return s.simple(ctx, "AT+SBDD2", "clear MO and MT buffers", options)
}

// ResetMOMSN resets the mobile originated message sequence number to zero.
func (s *SBD) ResetMOMSN(ctx context.Context, options ...CommandOption) error {
	return s.simple(ctx, "AT+SBDC", "reset MOMSN", options)
}

// TransferMOToMT copies the MO buffer into the MT buffer, for loopback
// testing without a session.
func (s *SBD) TransferMOToMT(ctx context.Context, options ...CommandOption) error {
	return s.simple(ctx, "AT+SBDTC", "transfer MO buffer to MT buffer", options)
}

// Status queries the state of the message buffers.
func (s *SBD) Status(ctx context.Context, options ...CommandOption) (Status, error) {
	rsp, _, err := s.run(ctx, at.Command{
		Payload:     "AT+SBDS",
		Description: "query SBD status",
		Timeout:     defaultTimeout,
		Success:     okPattern,
		Buffer:      sbdsPattern,
	}, options)
	if err != nil {
		return Status{}, err
	}
	if !info.HasPrefix(rsp, "+SBDS") {
		return Status{}, ErrMalformedResponse
	}
	v, err := info.Ints(info.TrimPrefix(rsp, "+SBDS"))
	if err != nil || len(v) < 4 {
		return Status{}, ErrMalformedResponse
	}
	return Status{
		MOMessageInBuffer: v[0] == 1,
		MOMSN:             v[1],
		MTMessageInBuffer: v[2] == 1,
		MTMSN:             v[3],
	}, nil
}

// StatusExtended queries the state of the message buffers, the pending
// ring alert flag and the count of MT messages queued at the gateway.
func (s *SBD) StatusExtended(ctx context.Context, options ...CommandOption) (StatusExtended, error) {
	rsp, _, err := s.run(ctx, at.Command{
		Payload:     "AT+SBDSX",
		Description: "query extended SBD status",
		Timeout:     defaultTimeout,
		Success:     okPattern,
		Buffer:      sbdsxPattern,
	}, options)
	if err != nil {
		return StatusExtended{}, err
	}
	if !info.HasPrefix(rsp, "+SBDSX") {
		return StatusExtended{}, ErrMalformedResponse
	}
	v, err := info.Ints(info.TrimPrefix(rsp, "+SBDSX"))
	if err != nil || len(v) < 6 {
		return StatusExtended{}, ErrMalformedResponse
	}
	return StatusExtended{
		Status: Status{
			MOMessageInBuffer: v[0] == 1,
			MOMSN:             v[1],
			MTMessageInBuffer: v[2] == 1,
			MTMSN:             v[3],
		},
		RingAlert: v[4] == 1,
		MTQueued:  v[5],
	}, nil
}

// Gateway returns the type of gateway the ISU is configured for, typically
// EMSS.
func (s *SBD) Gateway(ctx context.Context, options ...CommandOption) (string, error) {
	rsp, _, err := s.run(ctx, at.Command{
		Payload:     "AT+SBDGW",
		Description: "query gateway type",
		Timeout:     defaultTimeout,
		Success:     okPattern,
		Buffer:      sbdgwPattern,
	}, options)
	if err != nil {
		return "", err
	}
	if !info.HasPrefix(rsp, "+SBDGW") {
		return "", ErrMalformedResponse
	}
	return info.TrimPrefix(rsp, "+SBDGW"), nil
}

// Detach asks the gateway to forget the ISU's registration.
func (s *SBD) Detach(ctx context.Context, options ...CommandOption) error {
	rsp, _, err := s.run(ctx, at.Command{
		Payload:     "AT+SBDDET",
		Description: "detach from gateway",
		Timeout:     defaultSessionTimeout,
		Success:     okPattern,
		Buffer:      sbddetPattern,
	}, options)
	if err != nil {
		return err
	}
	if !info.HasPrefix(rsp, "+SBDDET") {
		return ErrMalformedResponse
	}
	v, err := info.Ints(info.TrimPrefix(rsp, "+SBDDET"))
	if err != nil || len(v) < 2 {
		return ErrMalformedResponse
	}
	if v[0] != 0 {
		return &SessionError{msg: "detach failed: " + detachErrorText(v[1])}
	}
	return nil
}

// Unlock submits the unlock key to a locked ISU.
func (s *SBD) Unlock(ctx context.Context, key string, options ...CommandOption) error {
	rsp, _, err := s.run(ctx, at.Command{
		Payload:     "AT+CULK=" + key,
		Description: "unlock device",
		Timeout:     defaultTimeout,
		Success:     okPattern,
		Buffer:      culkPattern,
	}, options)
	if err != nil {
		return err
	}
	status, err := parseIntResponse(rsp, "+CULK")
	if err != nil {
		return err
	}
	switch LockStatus(status) {
	case Unlocked:
		return nil
	case Locked:
		return ErrWrongUnlockKey
	case PermanentlyLocked:
		return ErrPermanentlyLocked
	}
	return ErrMalformedResponse
}

// LockStatus queries the SIM lock state of the ISU.
func (s *SBD) LockStatus(ctx context.Context, options ...CommandOption) (LockStatus, error) {
	rsp, _, err := s.run(ctx, at.Command{
		Payload:     "AT+CULK?",
		Description: "query lock status",
		Timeout:     defaultTimeout,
		Success:     okPattern,
		Buffer:      culkPattern,
	}, options)
	if err != nil {
		return Unlocked, err
	}
	status, err := parseIntResponse(rsp, "+CULK")
	if err != nil {
		return Unlocked, err
	}
	return LockStatus(status), nil
}

// IndicatorEventReportingEnable subscribes to signal quality indicator
// events (+CIEV).
func (s *SBD) IndicatorEventReportingEnable(ctx context.Context, options ...CommandOption) error {
	return s.simple(ctx, "AT+CIER=1,1,0,0", "enable indicator event reporting", options)
}

// IndicatorEventReportingDisable stops signal quality indicator events.
func (s *SBD) IndicatorEventReportingDisable(ctx context.Context, options ...CommandOption) error {
	return s.simple(ctx, "AT+CIER=1,0,0,0", "disable indicator event reporting", options)
}

// parseIntResponse extracts the integer payload of a prefixed info line.
func parseIntResponse(rsp, prefix string) (int, error) {
	if !info.HasPrefix(rsp, prefix) {
		return 0, ErrMalformedResponse
	}
	v, err := info.Int(info.TrimPrefix(rsp, prefix))
	if err != nil {
		return 0, ErrMalformedResponse
	}
	return v, nil
}

// parseRegistration extracts the registration state from a +SBDREG info
// line. The status is the first comma separated field after the colon; a
// second field, when present, carries the registration error.
func parseRegistration(rsp string) (RegistrationStatus, error) {
	if !info.HasPrefix(rsp, "+SBDREG") {
		return 0, ErrMalformedResponse
	}
	fields := info.Fields(info.TrimPrefix(rsp, "+SBDREG"))
	status, err := info.Int(fields[0])
	if err != nil {
		return 0, ErrMalformedResponse
	}
	if len(fields) > 1 {
		if regErr, err := info.Int(fields[1]); err == nil && regErr != 0 {
			return RegistrationStatus(status), &SessionError{msg: "registration failed: gateway reported error " + strconv.Itoa(regErr)}
		}
	}
	return RegistrationStatus(status), nil
}

// trimFinalOK drops the final OK that greedy buffer patterns accumulate
// along with the response body.
func trimFinalOK(rsp string) string {
	if rsp == "OK" {
		return ""
	}
	return strings.TrimSuffix(rsp, "\nOK")
}
