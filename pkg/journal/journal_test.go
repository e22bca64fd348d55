package journal

import (
	"strings"
	"sync"
	"testing"
	"time"
)

type memorySink struct {
	mu      sync.Mutex
	entries []Entry
	closed  int
}

func (s *memorySink) Append(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *memorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func TestRecorderCapturesFullLinesOnly(t *testing.T) {
	sink := &memorySink{}
	rec := NewRecorder("sess-1", sink)

	now := time.Now()
	rec.DataReceived("output line", true, now)
	rec.DataReceived("prompt> ", false, now)

	if len(sink.entries) != 1 {
		t.Fatalf("recorded %d entries, want 1: %+v", len(sink.entries), sink.entries)
	}
	e := sink.entries[0]
	if e.Session != "sess-1" || e.Dir != DirRecv || e.Line != "output line" {
		t.Errorf("entry = %+v", e)
	}
}

func TestRecorderDropsSecrets(t *testing.T) {
	sink := &memorySink{}
	rec := NewRecorder("sess-1", sink)

	rec.Sent("show version\n", false)
	rec.Sent("hunter2\n", true)

	if len(sink.entries) != 1 {
		t.Fatalf("recorded %d entries, want 1", len(sink.entries))
	}
	if e := sink.entries[0]; e.Dir != DirSent || e.Line != "show version\n" {
		t.Errorf("entry = %+v", e)
	}
}

func TestRecorderCloseStopsRecording(t *testing.T) {
	sink := &memorySink{}
	rec := NewRecorder("sess-1", sink)

	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !rec.Done() {
		t.Error("Done = false after Close")
	}
	rec.DataReceived("late", true, time.Now())
	rec.Sent("late\n", false)
	if len(sink.entries) != 0 {
		t.Errorf("closed recorder still recorded %d entries", len(sink.entries))
	}

	// Idempotent; the sink closes once.
	if err := rec.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if sink.closed != 1 {
		t.Errorf("sink closed %d times, want 1", sink.closed)
	}
}

func TestWriterSinkFormat(t *testing.T) {
	var buf strings.Builder
	sink := NewWriterSink(&buf)

	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	if err := sink.Append(Entry{Session: "s", Dir: DirRecv, Line: "hello", At: at}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got := buf.String()
	want := "2026-03-14T09:26:53Z recv hello\n"
	if got != want {
		t.Errorf("wrote %q, want %q", got, want)
	}
}
