package command

import "sync"

// Result accumulates structured partial results across OnLine calls. It is
// handed back to the caller on completion, so handlers treat it as the
// single place to stash parsed output.
type Result struct {
	mu     sync.Mutex
	lines  []string
	fields map[string]interface{}
}

// NewResult returns an empty result buffer.
func NewResult() *Result {
	return &Result{fields: make(map[string]interface{})}
}

// AddLine appends one line of captured output.
func (r *Result) AddLine(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
}

// Lines returns a copy of the captured output lines.
func (r *Result) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// Set stores a named parsed field.
func (r *Result) Set(key string, v interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields[key] = v
}

// Get returns a named parsed field.
func (r *Result) Get(key string) (interface{}, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.fields[key]
	return v, ok
}

// Fields returns a copy of the named parsed fields.
func (r *Result) Fields() map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]interface{}, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	return out
}

// Empty reports whether nothing was captured or parsed.
func (r *Result) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lines) == 0 && len(r.fields) == 0
}
