package connection

import (
	"bytes"
	"testing"
	"time"
)

type event struct {
	line     string
	fullLine bool
}

type recordingSub struct {
	id     string
	done   bool
	events []event
}

func (s *recordingSub) ID() string { return s.id }

func (s *recordingSub) Done() bool { return s.done }

func (s *recordingSub) DataReceived(data string, fullLine bool, at time.Time) {
	s.events = append(s.events, event{line: data, fullLine: fullLine})
}

func TestFeedSplitsLines(t *testing.T) {
	o := NewObservable("test", &bytes.Buffer{})
	sub := &recordingSub{id: "sub-1"}
	o.Subscribe(sub)

	o.Feed("first\r\nsecond\n", time.Now())

	want := []event{
		{"first", true},
		{"second", true},
	}
	if len(sub.events) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(sub.events), len(want), sub.events)
	}
	for i, w := range want {
		if sub.events[i] != w {
			t.Errorf("event %d = %+v, want %+v", i, sub.events[i], w)
		}
	}
}

func TestFeedReemitsGrowingTail(t *testing.T) {
	o := NewObservable("test", &bytes.Buffer{})
	sub := &recordingSub{id: "sub-1"}
	o.Subscribe(sub)

	// A prompt arrives in pieces and never gets its newline.
	o.Feed("host", time.Now())
	o.Feed("name> ", time.Now())

	want := []event{
		{"host", false},
		{"hostname> ", false},
	}
	if len(sub.events) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(sub.events), len(want), sub.events)
	}
	for i, w := range want {
		if sub.events[i] != w {
			t.Errorf("event %d = %+v, want %+v", i, sub.events[i], w)
		}
	}

	// The newline finally lands: the whole line is delivered once, full.
	o.Feed("\n", time.Now())
	last := sub.events[len(sub.events)-1]
	if last.line != "hostname> " || !last.fullLine {
		t.Errorf("after newline got %+v, want full %q", last, "hostname> ")
	}
}

func TestFeedMixedChunk(t *testing.T) {
	o := NewObservable("test", &bytes.Buffer{})
	sub := &recordingSub{id: "sub-1"}
	o.Subscribe(sub)

	o.Feed("output line\nprompt> ", time.Now())

	want := []event{
		{"output line", true},
		{"prompt> ", false},
	}
	if len(sub.events) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(sub.events), len(want), sub.events)
	}
	for i, w := range want {
		if sub.events[i] != w {
			t.Errorf("event %d = %+v, want %+v", i, sub.events[i], w)
		}
	}
}

func TestSubscribeDeduplicates(t *testing.T) {
	o := NewObservable("test", &bytes.Buffer{})
	sub := &recordingSub{id: "sub-1"}
	o.Subscribe(sub)
	o.Subscribe(sub)

	o.FeedLine("hello", true, time.Now())
	if len(sub.events) != 1 {
		t.Fatalf("got %d deliveries, want 1", len(sub.events))
	}
}

func TestDoneSubscriberSkipped(t *testing.T) {
	o := NewObservable("test", &bytes.Buffer{})
	sub := &recordingSub{id: "sub-1", done: true}
	o.Subscribe(sub)

	o.FeedLine("hello", true, time.Now())
	if len(sub.events) != 0 {
		t.Fatalf("done subscriber got %d deliveries, want 0", len(sub.events))
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	o := NewObservable("test", &bytes.Buffer{})
	sub := &recordingSub{id: "sub-1"}
	o.Subscribe(sub)
	o.Unsubscribe(sub)

	o.FeedLine("hello", true, time.Now())
	if len(sub.events) != 0 {
		t.Fatalf("unsubscribed subscriber got %d deliveries, want 0", len(sub.events))
	}
}

func TestSendlineWritesNewlineTerminated(t *testing.T) {
	var buf bytes.Buffer
	o := NewObservable("test", &buf)

	if err := o.Sendline("show version"); err != nil {
		t.Fatalf("Sendline: %v", err)
	}
	if got := buf.String(); got != "show version\n" {
		t.Errorf("wrote %q, want %q", got, "show version\n")
	}
}

func TestOnSendHookSeesSecretFlag(t *testing.T) {
	var buf bytes.Buffer
	o := NewObservable("test", &buf)

	type sent struct {
		data   string
		secret bool
	}
	var hooks []sent
	o.OnSend(func(data string, secret bool) {
		hooks = append(hooks, sent{data, secret})
	})

	if err := o.Sendline("whoami"); err != nil {
		t.Fatalf("Sendline: %v", err)
	}
	if err := o.SendlineSecret("hunter2"); err != nil {
		t.Fatalf("SendlineSecret: %v", err)
	}

	if len(hooks) != 2 {
		t.Fatalf("hook fired %d times, want 2", len(hooks))
	}
	if hooks[0].secret || hooks[0].data != "whoami\n" {
		t.Errorf("first hook = %+v", hooks[0])
	}
	if !hooks[1].secret || hooks[1].data != "hunter2\n" {
		t.Errorf("second hook = %+v", hooks[1])
	}
}

func TestPumpFeedsUntilEOF(t *testing.T) {
	o := NewObservable("test", &bytes.Buffer{})
	sub := &recordingSub{id: "sub-1"}
	o.Subscribe(sub)

	if err := o.Pump(bytes.NewBufferString("one\ntwo\nprompt> ")); err != nil {
		t.Fatalf("Pump: %v", err)
	}
	want := []event{
		{"one", true},
		{"two", true},
		{"prompt> ", false},
	}
	if len(sub.events) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(sub.events), len(want), sub.events)
	}
	for i, w := range want {
		if sub.events[i] != w {
			t.Errorf("event %d = %+v, want %+v", i, sub.events[i], w)
		}
	}
}
