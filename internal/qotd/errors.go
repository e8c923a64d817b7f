package qotd

import (
	"errors"
	"fmt"
)

// ErrChannelNotSet is returned by operations that require a configured
// delivery channel before they can do anything useful.
var ErrChannelNotSet = errors.New("qotd: channel not configured")

// ValidationError reports rejected command input. The guild's state is left
// untouched when one is returned.
type ValidationError struct {
	Op  string
	Msg string
	err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("qotd %s: %s", e.Op, e.Msg)
}

func (e *ValidationError) Unwrap() error { return e.err }

func validationErr(op, format string, args ...any) *ValidationError {
	return &ValidationError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

func channelNotSetErr(op string) *ValidationError {
	return &ValidationError{Op: op, Msg: "set a QOTD channel first", err: ErrChannelNotSet}
}

// IsValidation reports whether err is a rejected-input error the command
// surface should render to the user rather than treat as a failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
