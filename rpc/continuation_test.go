package rpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimedContinuationDeliver(t *testing.T) {
	tc := NewTimedContinuation()
	tc.Deliver([]byte("42"))

	v, err := tc.Await(context.Background(), time.Second)
	require.NoError(t, err)
	require.Equal(t, []byte("42"), v)
}

func TestTimedContinuationFail(t *testing.T) {
	tc := NewTimedContinuation()
	boom := context.Canceled
	tc.Fail(boom)

	_, err := tc.Await(context.Background(), time.Second)
	require.ErrorIs(t, err, boom)
}

func TestTimedContinuationOnlyFirstWins(t *testing.T) {
	tc := NewTimedContinuation()
	tc.Deliver([]byte("first"))
	tc.Fail(context.Canceled)

	v, err := tc.Await(context.Background(), time.Second)
	require.NoError(t, err)
	require.Equal(t, []byte("first"), v)
}

func TestTimedContinuationTimesOut(t *testing.T) {
	tc := NewTimedContinuation()
	_, err := tc.Await(context.Background(), 10*time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTimedContinuationContextCancelled(t *testing.T) {
	tc := NewTimedContinuation()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tc.Await(ctx, time.Second)
	require.ErrorIs(t, err, context.Canceled)
}
