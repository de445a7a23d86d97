// internal/bridge/transport.go
package bridge

import (
	"errors"
	"sync"
)

// Inbound is one message received from a controller, tagged with the origin
// the transport observed for it.
type Inbound struct {
	Payload []byte
	Origin  string
}

// Outbound is one event addressed to a controller origin. TargetOrigin "*"
// means the transport may deliver without origin pinning.
type Outbound struct {
	Payload      []byte
	TargetOrigin string
}

// Transport moves frames between the agent and its controller. postMessage,
// websockets and the in-process loopback all fit behind it.
type Transport interface {
	// Send delivers an event toward the controller.
	Send(out Outbound) error

	// Receive exposes inbound controller frames. The channel closes when the
	// transport shuts down.
	Receive() <-chan Inbound

	// Close releases the transport. Safe to call more than once.
	Close() error
}

var errTransportClosed = errors.New("transport closed")

// Loopback is an in-process transport for tests and same-process embedding.
// The embedder injects controller frames with Inject and observes agent
// events on Sent.
type Loopback struct {
	mu     sync.Mutex
	in     chan Inbound
	out    chan Outbound
	closed bool
}

// NewLoopback creates a loopback transport with room for buffer frames in
// each direction.
func NewLoopback(buffer int) *Loopback {
	if buffer <= 0 {
		buffer = 16
	}
	return &Loopback{
		in:  make(chan Inbound, buffer),
		out: make(chan Outbound, buffer),
	}
}

// Inject simulates a controller frame arriving from origin.
func (l *Loopback) Inject(payload []byte, origin string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errTransportClosed
	}
	l.in <- Inbound{Payload: payload, Origin: origin}
	return nil
}

// Sent exposes the agent's outbound events.
func (l *Loopback) Sent() <-chan Outbound { return l.out }

func (l *Loopback) Send(out Outbound) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errTransportClosed
	}
	select {
	case l.out <- out:
		return nil
	default:
		return errors.New("loopback send buffer full")
	}
}

func (l *Loopback) Receive() <-chan Inbound { return l.in }

func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	close(l.in)
	close(l.out)
	return nil
}
