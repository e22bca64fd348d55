// Package command builds the command abstraction on top of pkg/observer: an
// observer that sends a command string on submission and parses the lines
// that follow. Concrete commands are thin Handler plugins; the engine never
// needs to know their types.
package command

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/wireline-network/wireline/pkg/connection"
	"github.com/wireline-network/wireline/pkg/observer"
)

// Handler is implemented by each concrete command plugin.
type Handler interface {
	// BuildCommandString returns the command to send. Must be non-empty.
	BuildCommandString() string

	// OnLine consumes one line of output. Return ParsingDone when the line
	// completed the command; any other non-nil error fails it.
	OnLine(res *Result, line string, fullLine bool) error
}

// Option configures a Command.
type Option func(*Command)

// RetRequired makes completing with an empty result a failure (default: an
// empty result is acceptable).
func RetRequired() Option {
	return func(c *Command) { c.retRequired = true }
}

// WithObserverOptions forwards options to the underlying observer core.
func WithObserverOptions(opts ...observer.BaseOption) Option {
	return func(c *Command) { c.baseOpts = append(c.baseOpts, opts...) }
}

// Command is an Observer that sends a command string and accumulates parsed
// output. The runner triggers the one-shot send on submission.
type Command struct {
	*observer.Base

	handler       Handler
	commandString string
	retRequired   bool
	sent          atomic.Bool
	res           *Result

	baseOpts []observer.BaseOption
}

// New wraps a Handler into a Command attached to conn. An empty command
// string from the handler is a construction-time error.
func New(conn connection.Connection, handler Handler, opts ...Option) (*Command, error) {
	cs := handler.BuildCommandString()
	if cs == "" {
		return nil, fmt.Errorf("%T: %w", handler, ErrEmptyCommandString)
	}
	c := &Command{
		handler:       handler,
		commandString: cs,
		res:           NewResult(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Base = observer.NewBase("command", conn, c.baseOpts...)
	return c, nil
}

// CommandString returns the command this observer sends. The runner uses it
// to flavor timeout errors.
func (c *Command) CommandString() string { return c.commandString }

// SendCommand sends the command string exactly once. The runner calls this
// on submission; later calls are no-ops.
func (c *Command) SendCommand() error {
	if !c.sent.CompareAndSwap(false, true) {
		return nil
	}
	c.Log().WithField("command", c.commandString).Debug("sending command")
	return c.Connection().Sendline(c.commandString)
}

// Sent reports whether the command string went out.
func (c *Command) Sent() bool { return c.sent.Load() }

// Partial returns the result buffer accumulated so far. Primarily for
// handlers and tests; callers normally wait for Result.
func (c *Command) Partial() *Result { return c.res }

// DataReceived feeds one line through the handler. It must be, and is, a
// no-op once the command is done: data keeps arriving from the connection
// after logical completion.
func (c *Command) DataReceived(data string, fullLine bool, at time.Time) {
	if c.Done() {
		return
	}
	err := c.handler.OnLine(c.res, data, fullLine)
	if err == nil {
		return
	}
	if errors.Is(err, ParsingDone) {
		c.Complete()
		return
	}
	c.Fail(err)
}

// Complete finishes the command with the accumulated result. When
// RetRequired was set and nothing was captured, the command fails instead.
func (c *Command) Complete() {
	if c.retRequired && c.res.Empty() {
		c.Fail(&FailureError{Command: c.commandString, Reason: "required result is empty"})
		return
	}
	_ = c.SetResult(c.res)
}

// Fail finishes the command with err. The error is stored as-is so typed
// failures (login errors, parse errors) stay matchable with errors.Is and
// errors.As through Result.
func (c *Command) Fail(err error) {
	_ = c.SetErr(err)
}
