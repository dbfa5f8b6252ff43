package testkit

import (
	"errors"
	"sync"

	"github.com/MeansAI/websocket-actor-system/transport"
)

// ErrFakeConnClosed is returned by FakeConn.ReadFrame once the fake
// connection has been closed and its incoming queue drained.
var ErrFakeConnClosed = errors.New("testkit: fake connection closed")

// FakeConn is an in-memory transport.Conn, for driving a manager.Channel or
// a dispatcher's read loop in a test without a real socket. Feed it frames
// with Push as if they arrived from the peer, and read what the code under
// test wrote back off Outgoing.
type FakeConn struct {
	mu       sync.Mutex
	incoming []transport.Frame
	cond     *sync.Cond
	closed   bool

	outgoing chan transport.Frame
	remote   string
}

// NewFakeConn creates a fake connection with a buffered outgoing channel.
func NewFakeConn(remoteAddr string) *FakeConn {
	c := &FakeConn{outgoing: make(chan transport.Frame, 64), remote: remoteAddr}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Push queues a frame as if it had just arrived from the peer.
func (c *FakeConn) Push(fr transport.Frame) {
	c.mu.Lock()
	c.incoming = append(c.incoming, fr)
	c.cond.Signal()
	c.mu.Unlock()
}

// ReadFrame blocks until a frame is pushed or the connection is closed.
func (c *FakeConn) ReadFrame() (transport.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.incoming) == 0 && !c.closed {
		c.cond.Wait()
	}
	if len(c.incoming) > 0 {
		fr := c.incoming[0]
		c.incoming = c.incoming[1:]
		return fr, nil
	}
	return transport.Frame{}, ErrFakeConnClosed
}

// WriteFrame records an outgoing frame for the test to inspect.
func (c *FakeConn) WriteFrame(opcode transport.Opcode, payload []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrFakeConnClosed
	}
	c.mu.Unlock()
	c.outgoing <- transport.Frame{Opcode: opcode, Payload: payload}
	return nil
}

// WriteClose records an outgoing close frame.
func (c *FakeConn) WriteClose(code transport.CloseCode, reason string) error {
	c.outgoing <- transport.Frame{Opcode: transport.OpClose, CloseCode: int(code), CloseReason: reason}
	return c.Close()
}

// RemoteAddr returns the address this fake conn was constructed with.
func (c *FakeConn) RemoteAddr() string { return c.remote }

// Close marks the connection closed, unblocking any waiting ReadFrame.
func (c *FakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.cond.Broadcast()
	return nil
}

// Outgoing returns the channel of frames written by the code under test.
func (c *FakeConn) Outgoing() <-chan transport.Frame { return c.outgoing }
