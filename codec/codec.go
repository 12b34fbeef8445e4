// Package codec provides the string compression codec applied to text
// messages before transmission.
//
// The driver treats the codec as opaque; any implementation of Codec may be
// substituted. The default is smaz, a dictionary compressor built for short
// English strings, which suits the 340 byte SBD frame.
package codec

import (
	"github.com/cespare/go-smaz"
)

// Codec compresses strings to bytes and back.
type Codec interface {
	Compress(s string) []byte
	Decompress(b []byte) (string, error)
}

// Smaz is the default short-string codec.
type Smaz struct{}

// Compress returns the compressed form of s.
func (Smaz) Compress(s string) []byte {
	return smaz.Compress([]byte(s))
}

// Decompress returns the string compressed into b.
func (Smaz) Decompress(b []byte) (string, error) {
	d, err := smaz.Decompress(b)
	if err != nil {
		return "", err
	}
	return string(d), nil
}
