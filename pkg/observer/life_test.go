package observer

import (
	"testing"
	"time"
)

func TestLifeTimeoutFiresOnce(t *testing.T) {
	var l Life
	if !l.MarkTimeoutFired() {
		t.Fatal("first MarkTimeoutFired = false, want true")
	}
	if l.MarkTimeoutFired() {
		t.Error("second MarkTimeoutFired = true, want false")
	}
	if !l.TimeoutFired() {
		t.Error("TimeoutFired = false after firing")
	}
}

func TestLifeEnterTerminatingIdempotent(t *testing.T) {
	var l Life
	first := time.Now()
	l.EnterTerminating(first)
	l.EnterTerminating(first.Add(time.Second))

	if !l.InTerminating() {
		t.Fatal("InTerminating = false")
	}
	if got := l.TerminatingSince(); !got.Equal(first) {
		t.Errorf("TerminatingSince = %v, want the first stamp %v", got, first)
	}
}

func TestLifeEndOfLifeFirstStampWins(t *testing.T) {
	var l Life
	if !l.EndOfLifeTime().IsZero() {
		t.Fatal("fresh Life has a non-zero end of life")
	}
	first := time.Now()
	l.MarkEndOfLife(first)
	l.MarkEndOfLife(first.Add(time.Second))
	if got := l.EndOfLifeTime(); !got.Equal(first) {
		t.Errorf("EndOfLifeTime = %v, want the first stamp %v", got, first)
	}
}

func TestLifeFeedStamps(t *testing.T) {
	var l Life
	start := time.Now()
	l.markStarted(start)
	if !l.Started() {
		t.Fatal("Started = false after markStarted")
	}
	if got := l.LastFeedTime(); !got.Equal(start) {
		t.Fatalf("initial LastFeedTime = %v, want start time", got)
	}
	fed := start.Add(time.Second)
	l.MarkFed(fed)
	if got := l.LastFeedTime(); !got.Equal(fed) {
		t.Errorf("LastFeedTime = %v, want %v", got, fed)
	}
}
