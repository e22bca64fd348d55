// Package testutil provides the fake connection and observer helpers the
// engine's unit tests share.
package testutil

import (
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wireline-network/wireline/pkg/connection"
	"github.com/wireline-network/wireline/pkg/observer"
)

// FakeConnection is an Observable with no real transport: sends are
// recorded, input is injected with Feed helpers.
type FakeConnection struct {
	*connection.Observable

	mu   sync.Mutex
	sent []string
}

// NewFakeConnection creates a fake connection named name.
func NewFakeConnection(name string) *FakeConnection {
	f := &FakeConnection{Observable: connection.NewObservable(name, io.Discard)}
	f.OnSend(func(data string, secret bool) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.sent = append(f.sent, strings.TrimRight(data, "\n"))
	})
	return f
}

// SentLines returns everything sent so far, newline-stripped, including
// secret payloads.
func (f *FakeConnection) SentLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	copy(out, f.sent)
	return out
}

// FeedFull injects newline-terminated lines.
func (f *FakeConnection) FeedFull(lines ...string) {
	for _, line := range lines {
		f.FeedLine(line, true, time.Now())
	}
}

// FeedPrompt injects one unterminated fragment (a prompt).
func (f *FakeConnection) FeedPrompt(line string) {
	f.FeedLine(line, false, time.Now())
}

// TestObserver is a minimal concrete observer for scheduler tests. It
// records delivered lines, completes when it sees Trigger, and counts hook
// invocations.
type TestObserver struct {
	*observer.Base

	// Trigger, when non-empty, completes the observer with the line as
	// result once a delivered line equals it.
	Trigger string

	// PanicOnData makes DataReceived panic, for handler-isolation tests.
	PanicOnData bool

	mu              sync.Mutex
	lines           []string
	timeoutCalls    int
	inactivityCalls int

	// InactivityPanic makes the OnInactivity hook panic.
	InactivityPanic bool
}

// NewTestObserver creates a started-but-unsubmitted observer on conn.
func NewTestObserver(t *testing.T, conn connection.Connection, opts ...observer.BaseOption) *TestObserver {
	t.Helper()
	o := &TestObserver{Base: observer.NewBase("observer", conn, opts...)}
	if err := o.Start(); err != nil {
		t.Fatalf("starting observer: %v", err)
	}
	return o
}

// DataReceived implements observer.Observer.
func (o *TestObserver) DataReceived(data string, fullLine bool, at time.Time) {
	if o.PanicOnData {
		panic("data handler exploded")
	}
	o.mu.Lock()
	o.lines = append(o.lines, data)
	o.mu.Unlock()
	if o.Trigger != "" && data == o.Trigger {
		_ = o.SetResult(data)
	}
}

// Lines returns every line delivered so far.
func (o *TestObserver) Lines() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.lines))
	copy(out, o.lines)
	return out
}

// OnTimeout counts invocations.
func (o *TestObserver) OnTimeout() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.timeoutCalls++
}

// OnInactivity counts invocations, panicking first when configured.
func (o *TestObserver) OnInactivity() {
	if o.InactivityPanic {
		panic("inactivity handler exploded")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inactivityCalls++
}

// TimeoutCalls returns how often the runner fired OnTimeout.
func (o *TestObserver) TimeoutCalls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.timeoutCalls
}

// InactivityCalls returns how often the runner fired OnInactivity.
func (o *TestObserver) InactivityCalls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inactivityCalls
}

// Registry creates a throwaway failure registry so tests never share the
// process-wide one.
func Registry(t *testing.T) *observer.FailureRegistry {
	t.Helper()
	return observer.NewFailureRegistry()
}

// Eventually polls cond until it holds or the deadline passes.
func Eventually(t *testing.T, d time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal(msg)
}
