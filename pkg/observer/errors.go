package observer

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for observer usage and lifecycle failures
var (
	ErrNoConnection     = errors.New("no connection provided")
	ErrNotStarted       = errors.New("observer not started")
	ErrResultAlreadySet = errors.New("result already set")
	ErrResultNotReady   = errors.New("result not available yet")
	ErrCancelled        = errors.New("no result since cancel was called")
	ErrTimeout          = errors.New("observer timed out")
)

// ResultAlreadySetError reports a second write to the write-once result slot.
type ResultAlreadySetError struct {
	ObserverID string
}

func (e *ResultAlreadySetError) Error() string {
	return fmt.Sprintf("%s: result already set", e.ObserverID)
}

func (e *ResultAlreadySetError) Unwrap() error {
	return ErrResultAlreadySet
}

// TimeoutPhase identifies which scheduling phase fired a timeout.
type TimeoutPhase string

const (
	// PhaseRun: the runner's background tick loop hit the deadline.
	PhaseRun TimeoutPhase = "run"
	// PhaseAwaitDone: a blocking WaitFor hit the deadline.
	PhaseAwaitDone TimeoutPhase = "await-done"
	// PhaseTerminating: the terminating grace window expired.
	PhaseTerminating TimeoutPhase = "terminating"
)

// TimeoutError is stored on an observer when the runner times it out.
// Command carries the command string when the observer represents one.
type TimeoutError struct {
	ObserverID string
	Command    string
	Timeout    time.Duration
	Elapsed    time.Duration
	Phase      TimeoutPhase
}

func (e *TimeoutError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("command %q (%s) timed out after %.3fs (timeout %.3fs, phase %s)",
			e.Command, e.ObserverID, e.Elapsed.Seconds(), e.Timeout.Seconds(), e.Phase)
	}
	return fmt.Sprintf("%s timed out after %.3fs (timeout %.3fs, phase %s)",
		e.ObserverID, e.Elapsed.Seconds(), e.Timeout.Seconds(), e.Phase)
}

func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}
