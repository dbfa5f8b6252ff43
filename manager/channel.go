// Package manager implements the connection-manager abstraction (L5):
// channel lifecycle and ActorID→Channel selection in both client and
// server modes. Grounded on ironfang-ltd-go-theatre's transport.go for the
// per-channel state machine, simultaneous-connect tie-breaking, and the
// dedicated-writer-goroutine split that keeps a channel's reader loop from
// ever blocking on a write.
package manager

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/MeansAI/websocket-actor-system/identity"
	"github.com/MeansAI/websocket-actor-system/transport"
)

// State is a channel's position in the Connecting → Open → {Closing →
// Closed | Closed} state machine of SPEC_FULL.md §4.4.
type State uint8

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

// ErrChannelClosed is returned by Send/Pong once a channel has begun
// closing.
var ErrChannelClosed = errors.New("manager: channel closed")

type outFrame struct {
	opcode  transport.Opcode
	payload []byte
}

// Channel is a WireEnvelope carrier: one WebSocket connection plus its
// lifecycle state. A client manager holds exactly one; a server manager
// holds one per accepted connection, keyed by the peer's NodeIdentity once
// known.
type Channel struct {
	mu     sync.Mutex
	nodeID *identity.NodeIdentity
	conn   transport.Conn
	state  State

	sendCh    chan outFrame
	closed    chan struct{}
	closeOnce sync.Once
	onClosed  func(*Channel)
	logger    *slog.Logger
}

// NewChannel wraps conn in a Channel and starts its writer goroutine. It is
// exported so tests can drive a Channel over a fake transport.Conn without
// a real network; ClientManager and ServerManager use it internally too.
func NewChannel(conn transport.Conn, onClosed func(*Channel), logger *slog.Logger) *Channel {
	return newChannel(conn, onClosed, logger)
}

func newChannel(conn transport.Conn, onClosed func(*Channel), logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Channel{
		conn:     conn,
		state:    StateConnecting,
		sendCh:   make(chan outFrame, 256),
		closed:   make(chan struct{}),
		onClosed: onClosed,
		logger:   logger,
	}
	go c.writeLoop()
	return c
}

// writeLoop is the channel's single writer goroutine (SPEC_FULL.md §4.6):
// the reader that feeds Send/Pong never blocks on the network itself.
func (c *Channel) writeLoop() {
	for {
		select {
		case f, ok := <-c.sendCh:
			if !ok {
				return
			}
			if err := c.conn.WriteFrame(f.opcode, f.payload); err != nil {
				c.logger.Warn("channel write failed", "remote", c.RemoteAddr(), "error", err)
				c.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}

// MarkOpen transitions Connecting → Open.
func (c *Channel) MarkOpen() {
	c.mu.Lock()
	if c.state == StateConnecting {
		c.state = StateOpen
	}
	c.mu.Unlock()
}

// State returns the channel's current lifecycle state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// NodeID returns the peer's node identity, if known.
func (c *Channel) NodeID() *identity.NodeIdentity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nodeID
}

// SetNodeID records the peer's node identity once it self-identifies.
func (c *Channel) SetNodeID(id identity.NodeIdentity) {
	c.mu.Lock()
	c.nodeID = &id
	c.mu.Unlock()
}

// RemoteAddr returns the peer's network address, if available.
func (c *Channel) RemoteAddr() string {
	if c.conn == nil {
		return ""
	}
	return c.conn.RemoteAddr()
}

// ReadFrame reads the next frame. Only the channel's dedicated dispatcher
// goroutine may call this.
func (c *Channel) ReadFrame() (transport.Frame, error) { return c.conn.ReadFrame() }

// Send enqueues a text frame carrying pre-encoded envelope bytes.
func (c *Channel) Send(payload []byte) error {
	return c.enqueue(outFrame{opcode: transport.OpText, payload: payload})
}

// Pong enqueues a pong frame echoing payload unmasked, per SPEC_FULL.md §4.6.
func (c *Channel) Pong(payload []byte) error {
	return c.enqueue(outFrame{opcode: transport.OpPong, payload: payload})
}

func (c *Channel) enqueue(f outFrame) error {
	c.mu.Lock()
	st := c.state
	c.mu.Unlock()
	if st == StateClosing || st == StateClosed {
		return ErrChannelClosed
	}
	select {
	case c.sendCh <- f:
		return nil
	case <-c.closed:
		return ErrChannelClosed
	}
}

// SendProtocolErrorClose emits a native close frame with code
// protocolError and tears the channel down, per SPEC_FULL.md §4.7's write()
// contract for the ConnectionClose envelope variant.
func (c *Channel) SendProtocolErrorClose() error {
	err := c.conn.WriteClose(transport.CloseProtocolError, "")
	c.Close()
	return err
}

// EchoClose replies to an inbound close frame with the same code (or a
// normal-closure default if none was given) and tears the channel down.
func (c *Channel) EchoClose(code int, reason string) error {
	cc := transport.CloseCode(code)
	if cc == 0 {
		cc = transport.CloseNormal
	}
	err := c.conn.WriteClose(cc, reason)
	c.Close()
	return err
}

// Close idempotently transitions the channel to Closed, stops the writer
// goroutine, closes the underlying connection, and invokes the
// close hook exactly once so the owning manager can fail pending replies
// bound to this channel (SPEC_FULL.md §4.4).
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()
		close(c.closed)
		_ = c.conn.Close()
		if c.onClosed != nil {
			c.onClosed(c)
		}
	})
}
