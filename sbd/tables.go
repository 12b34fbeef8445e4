package sbd

import "fmt"

// moStatusDescriptions maps +SBDIX MO status codes to the descriptions in
// the ISU AT command reference. Codes of 4 or below indicate the MO
// transfer succeeded.
var moStatusDescriptions = map[int]string{
	0:  "MO message, if any, transferred successfully",
	1:  "MO message transferred successfully, but the MT message in the queue was too big to be transferred",
	2:  "MO message transferred successfully, but the requested location update was not accepted",
	10: "GSS reported that the call did not complete in the allowed time",
	11: "MO message queue at the GSS is full",
	12: "MO message has too many segments",
	13: "GSS reported that the session did not complete",
	14: "invalid segment size",
	15: "access is denied",
	16: "ISU has been locked and may not make SBD calls",
	17: "gateway not responding (local session timeout)",
	18: "connection lost (RF drop)",
	19: "link failure (a protocol error caused termination of the call)",
	32: "no network service, unable to initiate call",
	33: "antenna fault, unable to initiate call",
	34: "radio is disabled, unable to initiate call",
	35: "ISU is busy, unable to initiate call",
	36: "try later, must wait 3 minutes since last registration",
	37: "SBD service is temporarily disabled",
	38: "try later, traffic management period",
}

// mtStatusDescriptions maps +SBDIX MT status codes to descriptions.
var mtStatusDescriptions = map[int]string{
	0: "no SBD message to receive from the GSS",
	1: "SBD message successfully received from the GSS",
	2: "an error occurred while attempting to perform a mailbox check or receive a message from the GSS",
}

// writeResultDescriptions maps SBDWB transfer result codes to descriptions.
var writeResultDescriptions = map[int]string{
	0: "SBD message successfully written to the ISU",
	1: "SBD message write timeout, an insufficient number of bytes were transferred within the transfer period",
	2: "SBD message checksum sent from the DTE does not match the checksum calculated by the ISU",
	3: "SBD message size is not correct",
}

// detachErrorDescriptions maps +SBDDET error codes to descriptions.
var detachErrorDescriptions = map[int]string{
	0: "detach successfully performed",
	1: "an attempt to detach was not successful",
}

// SignalQualityDescriptions maps signal quality values to indicative
// receive levels, for diagnostics.
var SignalQualityDescriptions = map[int]string{
	0: "no signal",
	1: "poor, around -110 dBm, minimum for transmission",
	2: "fair, around -108 dBm",
	3: "good, around -106 dBm",
	4: "very good, around -104 dBm",
	5: "excellent, around -102 dBm",
}

func moStatusText(code int) string {
	if text, ok := moStatusDescriptions[code]; ok {
		return text
	}
	if code <= 4 {
		return "MO message transferred successfully"
	}
	return fmt.Sprintf("unknown MO status %d", code)
}

func mtStatusText(code int) string {
	if text, ok := mtStatusDescriptions[code]; ok {
		return text
	}
	return fmt.Sprintf("unknown MT status %d", code)
}

func writeResultText(code int) string {
	if text, ok := writeResultDescriptions[code]; ok {
		return text
	}
	return fmt.Sprintf("unknown write result %d", code)
}

func detachErrorText(code int) string {
	if text, ok := detachErrorDescriptions[code]; ok {
		return text
	}
	return fmt.Sprintf("unknown detach error %d", code)
}
