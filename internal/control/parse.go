package control

import (
	"bytes"
	"fmt"
	"strconv"
)

// disableValue is the written value that disables monitoring.
const disableValue = 1

// ParseToggle parses a control write.
//
// The accepted format is an unsigned decimal in 0..255 with an optional
// leading '+' and at most one trailing newline. Anything else, including
// surrounding spaces, is rejected.
//
// Returns:
//   - enable: false only for the value 1
//   - error: ErrInvalidInput
func ParseToggle(buf []byte) (enable bool, err error) {
	s := buf
	if n := len(s); n > 0 && s[n-1] == '\n' {
		s = s[:n-1]
	}
	s = bytes.TrimPrefix(s, []byte("+"))
	if len(s) == 0 {
		return false, fmt.Errorf("%w: empty value", ErrInvalidInput)
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidInput, buf)
		}
	}

	v, err := strconv.ParseUint(string(s), 10, 8)
	if err != nil {
		return false, fmt.Errorf("%w: %q out of range 0-255", ErrInvalidInput, buf)
	}
	return v != disableValue, nil
}
