// Package observer implements the connection-observer execution model: a
// future/promise-like entity that consumes asynchronous, line-fragmented
// data from a connection and produces exactly one of a result, an error, or
// a cancellation. Observers know nothing about scheduling; pkg/runner owns
// that.
package observer

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wireline-network/wireline/pkg/connection"
	"github.com/wireline-network/wireline/pkg/util"
)

// Observer is the contract between a connection-observer and the runner and
// subscription layers. Concrete observers embed *Base and add DataReceived.
type Observer interface {
	connection.Subscriber

	Connection() connection.Connection
	Life() *Life

	Timeout() time.Duration
	SetTimeout(d time.Duration)

	SetResult(v interface{}) error
	SetErr(err error) error
	Result() (interface{}, error)

	Cancel() bool
	Cancelled() bool
	Running() bool

	// OnTimeout and OnInactivity are hooks invoked by the runner, never by
	// the observer itself. Base provides no-op defaults.
	OnTimeout()
	OnInactivity()
}

// result slot states; terminal states are absorbing
const (
	statePending = iota
	stateValue
	stateError
	stateCancelled
)

var idCounter uint64

func nextID(kind string) string {
	return fmt.Sprintf("%s-%d", kind, atomic.AddUint64(&idCounter, 1))
}

// Base holds the lifecycle and result/exception semantics shared by every
// observer. The result slot is write-once: any second set, in any
// combination of result and error, fails with ResultAlreadySetError.
type Base struct {
	id   string
	conn connection.Connection
	reg  *FailureRegistry
	log  *logrus.Entry
	life Life

	mu      sync.Mutex
	state   int
	value   interface{}
	err     error
	timeout time.Duration
}

// BaseOption configures a Base at construction.
type BaseOption func(*Base)

// WithRegistry routes unraised failures to reg instead of the process-wide
// Failures registry.
func WithRegistry(reg *FailureRegistry) BaseOption {
	return func(b *Base) { b.reg = reg }
}

// WithTimeout sets the initial timeout (default 10s). The timeout stays
// mutable for the whole life of the observer.
func WithTimeout(d time.Duration) BaseOption {
	return func(b *Base) { b.timeout = d }
}

// WithInactivityTimeout enables inactivity detection.
func WithInactivityTimeout(d time.Duration) BaseOption {
	return func(b *Base) { b.life.SetInactivityTimeout(d) }
}

// WithTerminatingTimeout grants a grace window after a timeout fires before
// the runner forces end of life.
func WithTerminatingTimeout(d time.Duration) BaseOption {
	return func(b *Base) { b.life.SetTerminatingTimeout(d) }
}

// NewBase creates an observer core attached to conn. kind becomes the ID
// prefix ("observer-7", "command-12") for logging and diffing instances.
func NewBase(kind string, conn connection.Connection, opts ...BaseOption) *Base {
	b := &Base{
		id:      nextID(kind),
		conn:    conn,
		reg:     Failures,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = util.WithObserver(b.id)
	return b
}

// ID returns the observer's opaque identity.
func (b *Base) ID() string { return b.id }

// Connection returns the attached connection (shared, not owned).
func (b *Base) Connection() connection.Connection { return b.conn }

// Life returns the timing bookkeeping driven by the runner.
func (b *Base) Life() *Life { return &b.life }

// Log returns the observer-scoped log entry for embedders.
func (b *Base) Log() *logrus.Entry { return b.log }

// Start transitions the observer to running and stamps its start time.
// Fails with ErrNoConnection when no connection is attached. Starting twice
// refreshes nothing and is harmless before submission.
func (b *Base) Start() error {
	if b.conn == nil {
		return fmt.Errorf("%s: %w", b.id, ErrNoConnection)
	}
	if !b.life.Started() {
		b.life.markStarted(time.Now())
		b.log.Debug("started")
	}
	return nil
}

// Timeout returns the current timeout. Re-read every tick by blocking
// waits: changes made mid-wait move the deadline.
func (b *Base) Timeout() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.timeout
}

// SetTimeout changes the timeout; safe from any goroutine while the
// observer is alive.
func (b *Base) SetTimeout(d time.Duration) {
	b.mu.Lock()
	b.timeout = d
	b.mu.Unlock()
}

// SetResult records the observer's value. Fails if a result, error, or
// cancellation is already recorded.
func (b *Base) SetResult(v interface{}) error {
	b.mu.Lock()
	if b.state != statePending {
		b.mu.Unlock()
		return &ResultAlreadySetError{ObserverID: b.id}
	}
	b.state = stateValue
	b.value = v
	b.mu.Unlock()
	b.log.Debug("result set")
	return nil
}

// SetErr records the observer's error and retains it in the failure
// registry until someone collects it through Result. Same write-once rule
// as SetResult.
func (b *Base) SetErr(err error) error {
	b.mu.Lock()
	if b.state != statePending {
		b.mu.Unlock()
		return &ResultAlreadySetError{ObserverID: b.id}
	}
	b.state = stateError
	b.err = err
	b.mu.Unlock()
	b.reg.record(b.id, err)
	b.log.WithField("error", err.Error()).Debug("error set")
	return nil
}

// Result returns the recorded value. While pending it fails with
// ErrResultNotReady; after Cancel with ErrCancelled; a recorded error is
// returned as-is and its registry entry resolved (it is no longer
// unraised).
func (b *Base) Result() (interface{}, error) {
	b.mu.Lock()
	state, value, err := b.state, b.value, b.err
	b.mu.Unlock()

	switch state {
	case statePending:
		return nil, fmt.Errorf("%s: %w", b.id, ErrResultNotReady)
	case stateCancelled:
		return nil, fmt.Errorf("%s: %w", b.id, ErrCancelled)
	case stateError:
		b.reg.resolve(b.id)
		return nil, err
	default:
		return value, nil
	}
}

// Cancel marks the observer cancelled. Returns false when already done or
// already cancelled. Cancellation is cooperative: actual unsubscription
// happens on the runner's next reap pass.
func (b *Base) Cancel() bool {
	b.mu.Lock()
	if b.state != statePending {
		b.mu.Unlock()
		return false
	}
	b.state = stateCancelled
	b.mu.Unlock()
	b.log.Debug("cancelled")
	return true
}

// Done reports whether the observer reached any terminal state.
func (b *Base) Done() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state != statePending
}

// Cancelled reports whether the terminal state was a cancellation.
func (b *Base) Cancelled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == stateCancelled
}

// Running reports whether the observer was started and is not yet done.
func (b *Base) Running() bool {
	return b.life.Started() && !b.Done()
}

// OnTimeout is invoked by the runner after the timeout notification. No-op
// by default.
func (b *Base) OnTimeout() {}

// OnInactivity is invoked by the runner when no data arrived within the
// inactivity window. No-op by default.
func (b *Base) OnInactivity() {}
