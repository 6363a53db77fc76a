package relay

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
)

// outboundBuffer is the per-connection send queue depth. Sends are
// fire-and-forget: a client that cannot keep up loses frames instead of
// stalling the engine.
const outboundBuffer = 256

// Stream is the transport abstraction the engine relays over. The
// wsserver module adapts websocket connections to it; tests supply fakes.
type Stream interface {
	Send(payload []byte) error
	Close() error
}

// Conn is one live client connection. Its name and room fields are owned
// by the engine goroutine: they are mutated only while handling that
// connection's events and read only inside the same loop.
type Conn struct {
	id     string
	stream Stream
	out    chan []byte

	name string
	room string
}

func newConn(stream Stream) *Conn {
	return &Conn{
		id:     uuid.New().String(),
		stream: stream,
		out:    make(chan []byte, outboundBuffer),
		name:   defaultName(),
	}
}

// defaultName assigns the anonymous display name used until the client
// picks one.
func defaultName() string {
	return fmt.Sprintf("User%d", rand.IntN(1000))
}

// ID returns the connection's opaque identity. Identities are never
// reused.
func (c *Conn) ID() string {
	return c.id
}

// send enqueues a payload without blocking. Called only from the engine
// goroutine.
func (c *Conn) send(payload []byte) {
	select {
	case c.out <- payload:
	default: // skip if send buffer is full
	}
}

// writeLoop drains the outbound queue onto the stream. It exits when the
// engine closes the queue, then closes the stream.
func (c *Conn) writeLoop() {
	for payload := range c.out {
		_ = c.stream.Send(payload)
	}
	_ = c.stream.Close()
}
