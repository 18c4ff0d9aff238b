package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrMalformed         = errors.New("protocol: malformed packet")
	ErrMissingTerminator = errors.New("protocol: missing NUL terminator")
	ErrTrailingBytes     = errors.New("protocol: trailing bytes after packet")
	ErrInvalidMessage    = errors.New("protocol: invalid message")
)

// DecodeError reports where in a frame the grammar stopped matching.
type DecodeError struct {
	Offset int
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%v (offset=%d)", e.Err, e.Offset)
	}
	return fmt.Sprintf("%v: %s (offset=%d)", e.Err, e.Reason, e.Offset)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
