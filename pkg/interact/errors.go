package interact

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrLoginFailed     = errors.New("login failed")
	ErrNoMorePasswords = errors.New("no more passwords")
)

// FailedError reports a failure indication matched during the handshake.
type FailedError struct {
	Command string
	Pattern string
	Line    string
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("login via %q failed: matched %q on line %q", e.Command, e.Pattern, e.Line)
}

func (e *FailedError) Unwrap() error {
	return ErrLoginFailed
}

// NoMorePasswordsError reports a password prompt with an exhausted queue
// and password repetition disabled.
type NoMorePasswordsError struct {
	Command  string
	Consumed int
}

func (e *NoMorePasswordsError) Error() string {
	return fmt.Sprintf("login via %q: password prompt after all %d queued passwords were consumed", e.Command, e.Consumed)
}

func (e *NoMorePasswordsError) Unwrap() error {
	return ErrNoMorePasswords
}
