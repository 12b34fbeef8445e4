package serial

import "github.com/pkg/errors"

// ErrNoDevice indicates no serial device matched the detection hint.
var ErrNoDevice = errors.New("no matching serial device found")
