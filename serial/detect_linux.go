//go:build linux

package serial

import (
	"strings"

	"github.com/hedhyw/Go-Serial-Detector/pkg/v1/serialdet"
)

// Detect scans the active serial devices for an Iridium transceiver and
// returns the path of the first match.
//
// The 9602 and 9603 usually enumerate behind an FTDI or CP210x bridge, so
// the device description is matched against the given hint, for example
// "iridium" or "ftdi". An empty hint returns the first active device.
func Detect(hint string) (string, error) {
	devices, err := serialdet.List()
	if err != nil {
		return "", err
	}
	hint = strings.ToLower(hint)
	for _, device := range devices {
		if hint == "" || strings.Contains(strings.ToLower(device.Description()), hint) {
			return device.Path(), nil
		}
	}
	return "", ErrNoDevice
}
