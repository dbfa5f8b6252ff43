package manager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MeansAI/websocket-actor-system/identity"
	"github.com/MeansAI/websocket-actor-system/testkit"
	"github.com/MeansAI/websocket-actor-system/transport"
)

func TestChannelSendWritesTextFrame(t *testing.T) {
	fc := testkit.NewFakeConn("peer:1")
	ch := NewChannel(fc, nil, nil)
	ch.MarkOpen()
	require.Equal(t, StateOpen, ch.State())

	require.NoError(t, ch.Send([]byte(`{"reply":{}}`)))
	select {
	case out := <-fc.Outgoing():
		require.Equal(t, transport.OpText, out.Opcode)
		require.Equal(t, []byte(`{"reply":{}}`), out.Payload)
	case <-time.After(time.Second):
		t.Fatal("expected a text frame on the outgoing channel")
	}
}

func TestChannelPongEchoesPayload(t *testing.T) {
	fc := testkit.NewFakeConn("peer:2")
	ch := NewChannel(fc, nil, nil)
	ch.MarkOpen()

	require.NoError(t, ch.Pong([]byte("ping-payload")))
	select {
	case out := <-fc.Outgoing():
		require.Equal(t, transport.OpPong, out.Opcode)
		require.Equal(t, []byte("ping-payload"), out.Payload)
	case <-time.After(time.Second):
		t.Fatal("expected a pong frame")
	}
}

func TestChannelCloseInvokesHookOnce(t *testing.T) {
	fc := testkit.NewFakeConn("peer:3")
	var closedCount int
	ch := NewChannel(fc, func(*Channel) { closedCount++ }, nil)
	ch.MarkOpen()

	ch.Close()
	ch.Close()
	require.Equal(t, 1, closedCount)
	require.Equal(t, StateClosed, ch.State())

	require.ErrorIs(t, ch.Send([]byte("x")), ErrChannelClosed)
}

func TestChannelNodeIDRoundTrip(t *testing.T) {
	fc := testkit.NewFakeConn("peer:4")
	ch := NewChannel(fc, nil, nil)
	require.Nil(t, ch.NodeID())

	id := identity.NewNodeIdentity()
	ch.SetNodeID(id)
	require.NotNil(t, ch.NodeID())
	require.True(t, id.Equal(*ch.NodeID()))
}

func TestChannelSendProtocolErrorCloseTearsDown(t *testing.T) {
	fc := testkit.NewFakeConn("peer:5")
	var closed bool
	ch := NewChannel(fc, func(*Channel) { closed = true }, nil)
	ch.MarkOpen()

	require.NoError(t, ch.SendProtocolErrorClose())
	require.True(t, closed)
	require.Equal(t, StateClosed, ch.State())

	select {
	case out := <-fc.Outgoing():
		require.Equal(t, transport.OpClose, out.Opcode)
		require.Equal(t, int(transport.CloseProtocolError), out.CloseCode)
	case <-time.After(time.Second):
		t.Fatal("expected a close frame")
	}
}

func TestChannelEchoCloseDefaultsToNormal(t *testing.T) {
	fc := testkit.NewFakeConn("peer:6")
	ch := NewChannel(fc, nil, nil)
	ch.MarkOpen()

	require.NoError(t, ch.EchoClose(0, ""))
	select {
	case out := <-fc.Outgoing():
		require.Equal(t, int(transport.CloseNormal), out.CloseCode)
	case <-time.After(time.Second):
		t.Fatal("expected a close frame")
	}
}

func TestChannelReadFramePassesThrough(t *testing.T) {
	fc := testkit.NewFakeConn("peer:7")
	fc.Push(transport.Frame{Opcode: transport.OpText, Payload: []byte("hi")})
	ch := NewChannel(fc, nil, nil)

	fr, err := ch.ReadFrame()
	require.NoError(t, err)
	require.Equal(t, []byte("hi"), fr.Payload)
}
