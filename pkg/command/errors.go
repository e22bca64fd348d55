package command

import (
	"errors"
	"fmt"
)

// ParsingDone is the control-flow sentinel a Handler returns from OnLine to
// signal "this line completed the command, stop further processing". Check
// with errors.Is.
var ParsingDone = errors.New("parsing done")

// Sentinel errors
var (
	ErrEmptyCommandString = errors.New("command string must not be empty")
	ErrCommandFailed      = errors.New("command failed")
)

// FailureError reports a command that completed unsuccessfully: the device
// rejected it, parsing found a failure indication, or a required result
// stayed empty.
type FailureError struct {
	Command string
	Reason  string
	Line    string
}

func (e *FailureError) Error() string {
	msg := fmt.Sprintf("command %q failed: %s", e.Command, e.Reason)
	if e.Line != "" {
		msg += fmt.Sprintf(" (line: %q)", e.Line)
	}
	return msg
}

func (e *FailureError) Unwrap() error {
	return ErrCommandFailed
}
