//go:build !linux

package serial

// Detect is not supported off linux.
func Detect(hint string) (string, error) {
	return "", ErrNoDevice
}
