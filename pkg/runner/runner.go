// Package runner schedules many connection-observers on one periodic
// control loop. A single background goroutine per Runner drives inactivity
// detection, timeout firing, terminating grace windows, and removal of
// finished observers; callers get fire-and-forget Submit and blocking
// WaitFor.
package runner

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wireline-network/wireline/pkg/observer"
	"github.com/wireline-network/wireline/pkg/util"
)

// ErrRunnerClosed is returned by Submit after Shutdown.
var ErrRunnerClosed = errors.New("runner is shut down")

// DefaultTick is the scheduling loop period. Wake latency of blocking waits
// is bounded by it.
const DefaultTick = 2 * time.Millisecond

// commandSender is satisfied by command observers; the runner triggers the
// one-shot send on submission.
type commandSender interface {
	SendCommand() error
}

// commandStringer flavors timeout errors for command observers.
type commandStringer interface {
	CommandString() string
}

type entry struct {
	obs observer.Observer
	sub *subscription
}

// subscription wraps an observer for connection dispatch. It is the layer
// that enforces the ignore-if-done and in-shutdown guards — the observer's
// own DataReceived is not trusted to — and converts handler panics into the
// observer's stored error so a misbehaving observer never stops the feed.
type subscription struct {
	r   *Runner
	obs observer.Observer
}

func (s *subscription) ID() string { return s.obs.ID() }

func (s *subscription) Done() bool { return s.obs.Done() }

func (s *subscription) DataReceived(data string, fullLine bool, at time.Time) {
	if s.r.closed.Load() || s.obs.Done() {
		return
	}
	s.obs.Life().MarkFed(at)
	defer func() {
		if p := recover(); p != nil {
			_ = s.obs.SetErr(fmt.Errorf("%s: data handler panicked: %v", s.obs.ID(), p))
		}
	}()
	s.obs.DataReceived(data, fullLine, at)
}

// Option configures a Runner.
type Option func(*Runner)

// WithTick overrides the scheduling loop period.
func WithTick(d time.Duration) Option {
	return func(r *Runner) { r.tick = d }
}

// Runner owns a live set of observers and services them on a fixed tick.
type Runner struct {
	tick time.Duration
	log  *logrus.Entry

	mu       sync.Mutex
	live     map[string]*entry
	snapshot []*entry // cached copy for the tick loop; nil when stale

	closed    atomic.Bool
	closeOnce sync.Once
	quit      chan struct{}
	stopped   chan struct{}
}

// New creates a Runner and starts its background tick loop.
func New(opts ...Option) *Runner {
	r := &Runner{
		tick:    DefaultTick,
		log:     util.WithField("component", "runner"),
		live:    make(map[string]*entry),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.loop()
	return r
}

// Submit registers a started observer for scheduling: subscribes it to its
// connection's feed and, for commands, triggers the one-shot command send.
// Submitting an unstarted observer is a programming error and fails with
// observer.ErrNotStarted. Submitting the same observer twice is a no-op.
func (r *Runner) Submit(obs observer.Observer) error {
	if r.closed.Load() {
		return ErrRunnerClosed
	}
	if !obs.Life().Started() {
		return fmt.Errorf("%s: %w", obs.ID(), observer.ErrNotStarted)
	}

	r.mu.Lock()
	// Re-check under the lock: Shutdown flips closed and drains the live
	// set while holding it, so a Submit racing Shutdown must not slip an
	// entry into a quiesced runner.
	if r.closed.Load() {
		r.mu.Unlock()
		return ErrRunnerClosed
	}
	if _, ok := r.live[obs.ID()]; ok {
		r.mu.Unlock()
		return nil
	}
	e := &entry{obs: obs, sub: &subscription{r: r, obs: obs}}
	r.live[obs.ID()] = e
	r.snapshot = nil
	obs.Connection().Subscribe(e.sub)
	obs.Life().MarkFed(time.Now())
	r.mu.Unlock()

	if cs, ok := obs.(commandSender); ok {
		if err := cs.SendCommand(); err != nil {
			_ = obs.SetErr(fmt.Errorf("%s: sending command: %w", obs.ID(), err))
		}
	}
	r.log.WithField("observer", obs.ID()).Debug("submitted")
	return nil
}

// WaitFor blocks until the observer completes or a deadline passes,
// checking Done every tick. A positive timeout argument sets a fixed
// deadline measured from this call and takes precedence over the
// observer's own timeout. With timeout zero the observer's mutable timeout
// is re-read every tick and measured from the observer's start time, so
// extending or shortening it mid-wait moves the deadline.
//
// On deadline the timeout machinery fires (at most once per observer, in
// whatever phase reaches it first), a configured terminating grace window
// is honored, and end of life is forced. WaitFor itself returns nil once
// the observer is terminal; the outcome is read through obs.Result.
func (r *Runner) WaitFor(obs observer.Observer, timeout time.Duration) error {
	if obs.Done() {
		return nil
	}
	life := obs.Life()
	if !life.Started() {
		return fmt.Errorf("%s: %w", obs.ID(), observer.ErrNotStarted)
	}

	waitStart := time.Now()
	var used time.Duration
	for {
		if obs.Done() {
			return nil
		}
		now := time.Now()
		var deadline time.Time
		if timeout > 0 {
			used = timeout
			deadline = waitStart.Add(timeout)
		} else {
			used = obs.Timeout()
			deadline = life.StartTime().Add(used)
		}
		if used > 0 && !now.Before(deadline) {
			break
		}
		time.Sleep(r.tick)
	}

	now := time.Now()
	if tt := life.TerminatingTimeout(); tt > 0 {
		life.EnterTerminating(now)
		r.fireTimeout(obs, used, now.Sub(life.StartTime()), observer.PhaseAwaitDone)
		graceEnd := now.Add(tt)
		for time.Now().Before(graceEnd) {
			if !life.EndOfLifeTime().IsZero() {
				break
			}
			time.Sleep(r.tick)
		}
	} else {
		r.fireTimeout(obs, used, now.Sub(life.StartTime()), observer.PhaseAwaitDone)
	}
	r.endOfLife(obs, time.Now())
	return nil
}

// Shutdown stops the tick loop, cancels every still-live observer, and
// unsubscribes all. Idempotent. Once it begins, no new observer data is
// processed and Submit fails.
func (r *Runner) Shutdown() {
	r.closeOnce.Do(func() {
		r.closed.Store(true)

		r.mu.Lock()
		entries := make([]*entry, 0, len(r.live))
		for _, e := range r.live {
			entries = append(entries, e)
		}
		r.live = make(map[string]*entry)
		r.snapshot = nil
		r.mu.Unlock()

		now := time.Now()
		for _, e := range entries {
			e.obs.Cancel()
			e.obs.Life().MarkEndOfLife(now)
			e.obs.Connection().Unsubscribe(e.sub)
		}

		close(r.quit)
		<-r.stopped
		r.log.Debug("runner stopped")
	})
}

// Live returns the number of observers currently tracked.
func (r *Runner) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

func (r *Runner) loop() {
	defer close(r.stopped)
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()
	for {
		select {
		case <-r.quit:
			return
		case now := <-ticker.C:
			r.service(now)
		}
	}
}

// entries returns the tick loop's snapshot of the live set, rebuilt only
// when the set changed since the last tick. Long per-observer callbacks
// therefore never hold the lock that Submit and removal need.
func (r *Runner) entries() []*entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snapshot == nil {
		r.snapshot = make([]*entry, 0, len(r.live))
		for _, e := range r.live {
			r.snapshot = append(r.snapshot, e)
		}
	}
	return r.snapshot
}

// service runs one tick: inactivity pass, timeout pass, reap pass.
func (r *Runner) service(now time.Time) {
	snapshot := r.entries()

	// Inactivity pass. The hook may panic; that becomes the observer's
	// error, never the loop's. The last-feed stamp is refreshed regardless
	// of outcome so the hook fires once per quiet window, not every tick.
	for _, e := range snapshot {
		o := e.obs
		if o.Done() {
			continue
		}
		life := o.Life()
		it := life.InactivityTimeout()
		if it <= 0 {
			continue
		}
		if now.Sub(life.LastFeedTime()) > it {
			r.invokeInactivity(o)
			life.MarkFed(now)
		}
	}

	// Timeout pass. Observers inside the terminating grace window are
	// measured against the grace period; everyone else against their own
	// (mutable) timeout and start time.
	for _, e := range snapshot {
		o := e.obs
		life := o.Life()
		if life.InTerminating() {
			if !life.EndOfLifeTime().IsZero() {
				continue
			}
			tt := life.TerminatingTimeout()
			elapsed := now.Sub(life.TerminatingSince())
			if elapsed >= tt {
				r.fireTimeout(o, tt, elapsed, observer.PhaseTerminating)
				r.endOfLife(o, now)
			}
			continue
		}
		limit := o.Timeout()
		if limit <= 0 || o.Done() {
			continue
		}
		run := now.Sub(life.StartTime())
		if run >= limit {
			if tt := life.TerminatingTimeout(); tt > 0 {
				life.EnterTerminating(now)
				r.fireTimeout(o, limit, run, observer.PhaseRun)
			} else {
				r.fireTimeout(o, limit, run, observer.PhaseRun)
				r.endOfLife(o, now)
			}
		}
	}

	// Reap pass. Done observers leave the live set and get unsubscribed;
	// observers still inside their grace window stay until it expires. The
	// lock is held only for the map updates.
	var remove []*entry
	for _, e := range snapshot {
		o := e.obs
		if !o.Done() {
			continue
		}
		life := o.Life()
		if life.InTerminating() && life.EndOfLifeTime().IsZero() {
			continue
		}
		remove = append(remove, e)
	}
	if len(remove) == 0 {
		return
	}
	r.mu.Lock()
	for _, e := range remove {
		delete(r.live, e.obs.ID())
	}
	r.snapshot = nil
	r.mu.Unlock()
	for _, e := range remove {
		e.obs.Life().MarkEndOfLife(now)
		e.obs.Connection().Unsubscribe(e.sub)
		r.log.WithField("observer", e.obs.ID()).Debug("reaped")
	}
}

func (r *Runner) invokeInactivity(o observer.Observer) {
	defer func() {
		if p := recover(); p != nil {
			_ = o.SetErr(fmt.Errorf("%s: inactivity handler panicked: %v", o.ID(), p))
		}
	}()
	o.OnInactivity()
}

// fireTimeout is the single place timeout diagnostics are produced: build
// the (command-flavored when applicable) timeout error, store it on the
// observer, invoke the OnTimeout hook, and emit one structured log line.
// At most one notification per observer; natural completion racing the
// deadline wins.
func (r *Runner) fireTimeout(o observer.Observer, limit, elapsed time.Duration, phase observer.TimeoutPhase) {
	if !o.Life().MarkTimeoutFired() {
		return
	}
	if o.Done() {
		return
	}
	terr := &observer.TimeoutError{
		ObserverID: o.ID(),
		Timeout:    limit,
		Elapsed:    elapsed,
		Phase:      phase,
	}
	if cs, ok := o.(commandStringer); ok {
		terr.Command = cs.CommandString()
	}
	_ = o.SetErr(terr)
	o.OnTimeout()
	r.log.WithFields(logrus.Fields{
		"observer":  o.ID(),
		"phase":     string(phase),
		"elapsed_s": elapsed.Seconds(),
		"timeout_s": limit.Seconds(),
	}).Warn("observer timed out")
}

// endOfLife forces terminal state: a still-pending observer is cancelled,
// and the end-of-life stamp makes the next reap pass remove it.
func (r *Runner) endOfLife(o observer.Observer, now time.Time) {
	o.Cancel()
	o.Life().MarkEndOfLife(now)
}
