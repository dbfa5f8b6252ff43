// Package transport wraps the WebSocket framing library behind a thin,
// opcode-oriented interface so the rest of this module never imports
// gorilla/websocket directly. Grounded on momentics-hioload-ws's
// WebSocketConn/WebSocketFrame split between a duplex connection and the
// frames it produces.
package transport

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeansAI/websocket-actor-system/rpcerr"
)

// Opcode mirrors the WebSocket frame opcodes this module cares about.
type Opcode int

const (
	OpText         Opcode = websocket.TextMessage
	OpBinary       Opcode = websocket.BinaryMessage
	OpClose        Opcode = websocket.CloseMessage
	OpPing         Opcode = websocket.PingMessage
	OpPong         Opcode = websocket.PongMessage
	OpContinuation Opcode = 0x0
)

// CloseCode mirrors the subset of RFC 6455 close codes this module emits.
type CloseCode int

const (
	CloseNormal        CloseCode = websocket.CloseNormalClosure
	CloseProtocolError CloseCode = websocket.CloseProtocolError
)

// Frame is one message read off a connection.
type Frame struct {
	Opcode  Opcode
	Payload []byte
	// CloseCode and CloseReason are populated only when Opcode == OpClose.
	CloseCode   int
	CloseReason string
}

// Conn is a duplex, frame-oriented WebSocket connection. WriteFrame is only
// ever called from one goroutine (the channel's writer loop), so
// implementations need not serialize it; WriteClose may run concurrently
// with it. ReadFrame is only ever called from one goroutine (the
// per-channel reader loop).
type Conn interface {
	ReadFrame() (Frame, error)
	WriteFrame(opcode Opcode, payload []byte) error
	WriteClose(code CloseCode, reason string) error
	RemoteAddr() string
	Close() error
}

type wsConn struct {
	c *websocket.Conn
}

// Wrap adapts a raw *websocket.Conn to the Conn interface.
func Wrap(c *websocket.Conn) Conn { return &wsConn{c: c} }

func (w *wsConn) ReadFrame() (Frame, error) {
	op, payload, err := w.c.ReadMessage()
	if err != nil {
		if ce, ok := err.(*websocket.CloseError); ok {
			return Frame{Opcode: OpClose, CloseCode: ce.Code, CloseReason: ce.Text}, nil
		}
		return Frame{}, err
	}
	return Frame{Opcode: Opcode(op), Payload: payload}, nil
}

func (w *wsConn) WriteFrame(opcode Opcode, payload []byte) error {
	return w.c.WriteMessage(int(opcode), payload)
}

func (w *wsConn) WriteClose(code CloseCode, reason string) error {
	msg := websocket.FormatCloseMessage(int(code), reason)
	_ = w.c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(5*time.Second))
	return w.c.Close()
}

func (w *wsConn) RemoteAddr() string {
	if ra := w.c.RemoteAddr(); ra != nil {
		return ra.String()
	}
	return ""
}

func (w *wsConn) Close() error { return w.c.Close() }

// DialTimeout is the bound on establishing a client-mode connection.
const DialTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	HandshakeTimeout: DialTimeout,
	CheckOrigin:      func(*http.Request) bool { return true },
}

// Dial opens a client connection to a server manager's listen address.
func Dial(url string) (Conn, error) {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = DialTimeout
	c, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rpcerr.FailedToUpgrade, err)
	}
	return Wrap(c), nil
}

// Upgrade promotes an inbound HTTP request to a WebSocket connection.
func Upgrade(w http.ResponseWriter, r *http.Request) (Conn, error) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rpcerr.FailedToUpgrade, err)
	}
	return Wrap(c), nil
}
