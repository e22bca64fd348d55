// Package connection defines the boundary between the observer execution
// engine and the transport layer that owns the actual I/O. The engine never
// dials sockets or opens PTYs; callers hand in the reader/writer pair of
// whatever session they hold (ssh stdin/stdout pipes, a serial port, a
// subprocess) and the Observable turns the byte stream into line events.
package connection

import "time"

// Subscriber receives line events from a connection. Observers, and
// auxiliary listeners such as transcript recorders, implement this.
type Subscriber interface {
	// ID identifies the subscriber for logging and map keys.
	ID() string

	// Done reports whether the subscriber has reached terminal state.
	// Dispatch skips done subscribers: data may keep arriving from the
	// wire after logical completion and must not mutate them.
	Done() bool

	// DataReceived delivers one line. fullLine is true when the line was
	// newline-terminated; prompt fragments arrive with fullLine=false and
	// are re-delivered (grown) as more bytes complete them.
	DataReceived(data string, fullLine bool, at time.Time)
}

// Connection is what observers hold: a way to send data and a way for the
// engine to subscribe them to the incoming line feed.
type Connection interface {
	// Send writes data to the transport as-is.
	Send(data string) error

	// Sendline writes data followed by a newline.
	Sendline(data string) error

	// SendlineSecret behaves like Sendline but the payload is never
	// logged or echoed to transcript hooks (passwords).
	SendlineSecret(data string) error

	Subscribe(s Subscriber)
	Unsubscribe(s Subscriber)
}
