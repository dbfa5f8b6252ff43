package testkit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MeansAI/websocket-actor-system/transport"
)

func TestFakeConnReadWrite(t *testing.T) {
	c := NewFakeConn("127.0.0.1:1234")
	c.Push(transport.Frame{Opcode: transport.OpText, Payload: []byte("hello")})

	fr, err := c.ReadFrame()
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), fr.Payload)

	require.NoError(t, c.WriteFrame(transport.OpText, []byte("reply")))
	select {
	case out := <-c.Outgoing():
		require.Equal(t, []byte("reply"), out.Payload)
	case <-time.After(time.Second):
		t.Fatal("expected an outgoing frame")
	}
}

func TestFakeConnReadBlocksUntilClose(t *testing.T) {
	c := NewFakeConn("peer")
	done := make(chan error, 1)
	go func() {
		_, err := c.ReadFrame()
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("ReadFrame returned before any frame or close")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, c.Close())
	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrFakeConnClosed)
	case <-time.After(time.Second):
		t.Fatal("ReadFrame did not unblock on Close")
	}
}

func TestFakeConnWriteAfterCloseFails(t *testing.T) {
	c := NewFakeConn("peer")
	require.NoError(t, c.Close())
	err := c.WriteFrame(transport.OpText, []byte("x"))
	require.ErrorIs(t, err, ErrFakeConnClosed)
}
