package observer

import (
	"sync"
	"time"
)

// Failure is one entry in a FailureRegistry.
type Failure struct {
	ObserverID string
	Err        error
	At         time.Time
}

// FailureRegistry retains errors set on observers whose Result was never
// called, so fire-and-forget usage does not silently swallow failures. A
// diagnostic pass can drain and report them at shutdown or test teardown.
type FailureRegistry struct {
	mu      sync.Mutex
	entries []Failure
}

// NewFailureRegistry returns an empty registry. Tests inject their own so
// state never leaks between cases; production code normally shares Failures.
func NewFailureRegistry() *FailureRegistry {
	return &FailureRegistry{}
}

// Failures is the process-wide default registry.
var Failures = NewFailureRegistry()

// record appends an entry. Called from SetErr.
func (r *FailureRegistry) record(id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Failure{ObserverID: id, Err: err, At: time.Now()})
}

// resolve removes the entry for id, if present. Called when Result hands
// the stored error to a caller: it is no longer unraised.
func (r *FailureRegistry) resolve(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.ObserverID == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return
		}
	}
}

// Drain returns the retained failures, clearing the registry when clear is
// true.
func (r *FailureRegistry) Drain(clear bool) []Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Failure, len(r.entries))
	copy(out, r.entries)
	if clear {
		r.entries = nil
	}
	return out
}

// Len returns the number of retained failures.
func (r *FailureRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
