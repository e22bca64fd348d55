package connection

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wireline-network/wireline/pkg/util"
)

// SendHook observes outbound traffic (transcript recording). secret is true
// for payloads that must not be persisted.
type SendHook func(data string, secret bool)

// Observable is the reference Connection implementation. Output goes to an
// io.Writer owned by the caller; input arrives either through FeedLine (for
// tests and replay) or through Pump reading from the transport.
type Observable struct {
	name string
	log  *logrus.Entry

	wmu sync.Mutex
	w   io.Writer

	mu     sync.RWMutex
	subs   map[string]Subscriber
	onSend SendHook

	// tail holds the unterminated remainder of the last chunk; Pump is
	// the only writer.
	tail string
}

// NewObservable wraps an output writer. name tags log lines.
func NewObservable(name string, w io.Writer) *Observable {
	return &Observable{
		name: name,
		log:  util.WithConnection(name),
		w:    w,
		subs: make(map[string]Subscriber),
	}
}

// Name returns the connection name used in logs.
func (o *Observable) Name() string { return o.name }

// OnSend registers a hook observing outbound data.
func (o *Observable) OnSend(hook SendHook) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onSend = hook
}

// Send writes data to the transport as-is.
func (o *Observable) Send(data string) error {
	return o.write(data, false)
}

// Sendline writes data followed by a newline.
func (o *Observable) Sendline(data string) error {
	return o.write(data+"\n", false)
}

// SendlineSecret writes data followed by a newline without logging the
// payload.
func (o *Observable) SendlineSecret(data string) error {
	return o.write(data+"\n", true)
}

func (o *Observable) write(data string, secret bool) error {
	if o.w == nil {
		return util.ErrNotConnected
	}
	o.wmu.Lock()
	_, err := io.WriteString(o.w, data)
	o.wmu.Unlock()
	if err != nil {
		return fmt.Errorf("send on %s: %w", o.name, err)
	}
	if secret {
		o.log.Debug("sent secret payload")
	} else {
		o.log.WithField("data", strings.TrimRight(data, "\r\n")).Debug("sent")
	}
	o.mu.RLock()
	hook := o.onSend
	o.mu.RUnlock()
	if hook != nil {
		hook(data, secret)
	}
	return nil
}

// Subscribe adds a listener to the line feed. Subscribing the same ID twice
// is a no-op.
func (o *Observable) Subscribe(s Subscriber) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.subs[s.ID()]; ok {
		return
	}
	o.subs[s.ID()] = s
	o.log.WithField("subscriber", s.ID()).Debug("subscribed")
}

// Unsubscribe removes a listener. Unknown IDs are ignored.
func (o *Observable) Unsubscribe(s Subscriber) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.subs[s.ID()]; !ok {
		return
	}
	delete(o.subs, s.ID())
	o.log.WithField("subscriber", s.ID()).Debug("unsubscribed")
}

// FeedLine dispatches one line event to every live subscriber. Done
// subscribers are skipped here as a secondary guard; the runner's
// subscription wrapper is the primary one.
func (o *Observable) FeedLine(line string, fullLine bool, at time.Time) {
	o.mu.RLock()
	targets := make([]Subscriber, 0, len(o.subs))
	for _, s := range o.subs {
		targets = append(targets, s)
	}
	o.mu.RUnlock()

	for _, s := range targets {
		if s.Done() {
			continue
		}
		s.DataReceived(line, fullLine, at)
	}
}

// Feed splits a raw chunk into line events and dispatches them. Complete
// lines (CR/LF stripped) are emitted with fullLine=true. A trailing
// unterminated fragment is emitted with fullLine=false and re-emitted,
// grown, on every subsequent chunk until its newline arrives — prompts
// never carry a newline and would otherwise be invisible.
func (o *Observable) Feed(chunk string, at time.Time) {
	data := o.tail + chunk
	for {
		i := strings.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimRight(data[:i], "\r")
		data = data[i+1:]
		o.FeedLine(line, true, at)
	}
	o.tail = data
	if o.tail != "" {
		o.FeedLine(o.tail, false, at)
	}
}

// Pump reads the transport until EOF or error, feeding subscribers. It
// blocks; run it on the goroutine that owns the read side. A final
// unterminated fragment has already been delivered with fullLine=false by
// the time Pump returns.
func (o *Observable) Pump(r io.Reader) error {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			o.Feed(string(buf[:n]), time.Now())
		}
		if err != nil {
			if err == io.EOF {
				o.log.Debug("feed closed")
				return nil
			}
			o.log.WithField("error", err.Error()).Warn("feed read failed")
			return fmt.Errorf("read on %s: %w", o.name, err)
		}
	}
}
