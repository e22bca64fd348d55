// Package journal records session transcripts: every full line received
// from a connection and every command sent to it, timestamped, in order.
// Transcripts feed audit trails and offline replay (cmd/wireline replay).
package journal

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wireline-network/wireline/pkg/util"
)

// Direction of a transcript entry.
const (
	DirRecv = "recv"
	DirSent = "sent"
)

// Entry is one transcript line.
type Entry struct {
	Session string    `json:"session"`
	Dir     string    `json:"dir"`
	Line    string    `json:"line"`
	At      time.Time `json:"at"`
}

// Sink persists transcript entries.
type Sink interface {
	Append(e Entry) error
	Close() error
}

var recorderSeq uint64

// Recorder is a connection.Subscriber that captures received full lines.
// Wire its Sent method to the connection's send hook to capture outbound
// traffic too. Secret payloads never reach the sink.
type Recorder struct {
	id      string
	session string
	sink    Sink
	closed  atomic.Bool
}

// NewRecorder creates a recorder for one session.
func NewRecorder(session string, sink Sink) *Recorder {
	return &Recorder{
		id:      fmt.Sprintf("journal-%d", atomic.AddUint64(&recorderSeq, 1)),
		session: session,
		sink:    sink,
	}
}

// ID implements connection.Subscriber.
func (r *Recorder) ID() string { return r.id }

// Done implements connection.Subscriber; true once closed so dispatch
// stops delivering.
func (r *Recorder) Done() bool { return r.closed.Load() }

// DataReceived implements connection.Subscriber. Only full lines are
// recorded: partial fragments are re-delivered as they grow and would
// duplicate.
func (r *Recorder) DataReceived(data string, fullLine bool, at time.Time) {
	if !fullLine || r.closed.Load() {
		return
	}
	r.append(Entry{Session: r.session, Dir: DirRecv, Line: data, At: at})
}

// Sent records outbound data. Pass it to connection.Observable.OnSend.
func (r *Recorder) Sent(data string, secret bool) {
	if secret || r.closed.Load() {
		return
	}
	r.append(Entry{Session: r.session, Dir: DirSent, Line: data, At: time.Now()})
}

func (r *Recorder) append(e Entry) {
	if err := r.sink.Append(e); err != nil {
		util.WithField("session", r.session).Warnf("journal append failed: %v", err)
	}
}

// Close stops recording and closes the sink.
func (r *Recorder) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	return r.sink.Close()
}

// WriterSink appends entries to an io.Writer, one "<RFC3339Nano> <dir> <line>"
// record per line.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink wraps w. The caller keeps ownership of the writer; Close is
// a no-op unless w is an io.Closer.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Append(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "%s %s %s\n", e.At.Format(time.RFC3339Nano), e.Dir, e.Line)
	return err
}

func (s *WriterSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
