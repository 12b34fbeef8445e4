// Package info provides utility functions for manipulating info lines
// returned by the modem in response to AT commands.
package info

import (
	"strconv"
	"strings"
)

// HasPrefix returns true if the line begins with the info prefix for the
// command.
func HasPrefix(line, cmd string) bool {
	return strings.HasPrefix(line, cmd+":")
}

// TrimPrefix removes the command prefix, if any, and any intervening space
// from the info line.
func TrimPrefix(line, cmd string) string {
	return strings.TrimLeft(strings.TrimPrefix(line, cmd+":"), " ")
}

// Fields splits a comma separated info line into trimmed fields.
func Fields(line string) []string {
	fields := strings.Split(line, ",")
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}

// Int parses a single trimmed field as a decimal integer.
func Int(field string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(field))
}

// Ints parses a comma separated info line as decimal integers.
func Ints(line string) ([]int, error) {
	fields := Fields(line)
	ints := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		ints[i] = v
	}
	return ints, nil
}
