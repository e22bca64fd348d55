package observer

import (
	"sync"
	"time"
)

// Life tracks the timing bookkeeping the runner drives: start and last-feed
// stamps, inactivity and terminating-grace windows, and the once-only
// timeout-notification guard. All methods are safe under one concurrent
// writer plus the runner's tick-thread readers.
type Life struct {
	mu sync.Mutex

	startTime time.Time
	lastFeed  time.Time
	endOfLife time.Time

	inactivityTimeout  time.Duration
	terminatingTimeout time.Duration

	inTerminating    bool
	terminatingSince time.Time

	timeoutFired bool
}

// markStarted stamps the start and initial last-feed time.
func (l *Life) markStarted(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.startTime = now
	l.lastFeed = now
}

// Started reports whether the observer has been started.
func (l *Life) Started() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.startTime.IsZero()
}

// StartTime returns when the observer was started (zero if never).
func (l *Life) StartTime() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.startTime
}

// LastFeedTime returns when data last reached the observer.
func (l *Life) LastFeedTime() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastFeed
}

// MarkFed refreshes the last-feed stamp.
func (l *Life) MarkFed(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastFeed = now
}

// InactivityTimeout returns the configured inactivity window (0 disables).
func (l *Life) InactivityTimeout() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inactivityTimeout
}

// SetInactivityTimeout configures the inactivity window; 0 disables it.
func (l *Life) SetInactivityTimeout(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inactivityTimeout = d
}

// TerminatingTimeout returns the grace window granted after a timeout fires
// (0 means none: terminal state is forced immediately).
func (l *Life) TerminatingTimeout() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.terminatingTimeout
}

// SetTerminatingTimeout configures the post-timeout grace window.
func (l *Life) SetTerminatingTimeout(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.terminatingTimeout = d
}

// EnterTerminating switches timing to the grace window. Idempotent.
func (l *Life) EnterTerminating(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inTerminating {
		return
	}
	l.inTerminating = true
	l.terminatingSince = now
}

// InTerminating reports whether the grace window is active.
func (l *Life) InTerminating() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inTerminating
}

// TerminatingSince returns when the grace window was entered.
func (l *Life) TerminatingSince() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.terminatingSince
}

// MarkTimeoutFired flips the once-only timeout guard. Returns true on the
// first call, false afterwards: at most one timeout notification per
// observer.
func (l *Life) MarkTimeoutFired() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.timeoutFired {
		return false
	}
	l.timeoutFired = true
	return true
}

// TimeoutFired reports whether the timeout notification already happened.
func (l *Life) TimeoutFired() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.timeoutFired
}

// MarkEndOfLife stamps the end of life. Idempotent: the first stamp wins.
func (l *Life) MarkEndOfLife(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.endOfLife.IsZero() {
		l.endOfLife = now
	}
}

// EndOfLifeTime returns the end-of-life stamp (zero if still alive).
func (l *Life) EndOfLifeTime() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.endOfLife
}
