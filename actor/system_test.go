package actor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MeansAI/websocket-actor-system/identity"
	"github.com/MeansAI/websocket-actor-system/manager"
	"github.com/MeansAI/websocket-actor-system/resilience"
	"github.com/MeansAI/websocket-actor-system/rpcerr"
	"github.com/MeansAI/websocket-actor-system/testkit"
	"github.com/MeansAI/websocket-actor-system/wire"
)

func TestBreakerForReturnsSameInstancePerActor(t *testing.T) {
	sys := newTestSystem()
	id := identity.ActorID{ID: "a1"}

	b1 := sys.breakerFor(id)
	b2 := sys.breakerFor(id)
	require.Same(t, b1, b2)

	other := sys.breakerFor(identity.ActorID{ID: "a2"})
	require.NotSame(t, b1, other)
}

func TestGateRejectsWhenBreakerOpen(t *testing.T) {
	sys := newTestSystem()
	sys.breakerThreshold = 1
	id := identity.ActorID{ID: "flaky"}

	sys.settle(id, rpcerr.NoPeers)
	err := sys.gate(id)
	var target *rpcerr.CircuitOpenError
	require.ErrorAs(t, err, &target)
}

func TestGateAllowsAfterSuccess(t *testing.T) {
	sys := newTestSystem()
	id := identity.ActorID{ID: "healthy"}

	require.NoError(t, sys.gate(id))
	sys.settle(id, nil)
	require.NoError(t, sys.gate(id))
}

func TestGateAppliesRateLimiter(t *testing.T) {
	sys := newTestSystem()
	sys.limiter = resilience.NewTokenBucket(1, 1)
	id := identity.ActorID{ID: "limited"}

	require.NoError(t, sys.gate(id))
	start := time.Now()
	require.NoError(t, sys.gate(id))
	require.True(t, time.Since(start) > 0)
}

func TestWithTimeoutPreservesExistingDeadline(t *testing.T) {
	sys := newTestSystem()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	got, gotCancel := sys.withTimeout(ctx)
	defer gotCancel()
	require.Equal(t, ctx, got)
}

func TestWithTimeoutAppliesDefaultWhenAbsent(t *testing.T) {
	sys := newTestSystem()
	sys.callTimeout = 50 * time.Millisecond

	got, cancel := sys.withTimeout(context.Background())
	defer cancel()

	deadline, ok := got.Deadline()
	require.True(t, ok)
	require.True(t, time.Until(deadline) <= 50*time.Millisecond)
}

// fakeManager is a manager.Manager stub that always hands back a single
// preconstructed channel, letting System-level RemoteCall tests avoid a
// real network.
type fakeManager struct {
	ch *manager.Channel
}

func (m *fakeManager) SelectChannel(context.Context, identity.ActorID) (*manager.Channel, error) {
	return m.ch, nil
}
func (m *fakeManager) Associate(identity.NodeIdentity, *manager.Channel) {}
func (m *fakeManager) Channels() []*manager.Channel                     { return []*manager.Channel{m.ch} }
func (m *fakeManager) Close() error                                    { return nil }

// newTestMetrics builds a Metrics without starting a real HTTP listener,
// for tests that only need its counters and latency histogram.
func newTestMetrics(sys *System) *Metrics {
	return &Metrics{system: sys, logger: sys.logger, latCounts: make([]atomic.Uint64, len(latBuckets)+1)}
}

func TestRemoteCallVoidRecordsMetricsOnSuccess(t *testing.T) {
	sys := newTestSystem()
	fc := testkit.NewFakeConn("test-peer")
	ch := manager.NewChannel(fc, nil, nil)
	ch.MarkOpen()
	sys.manager = &fakeManager{ch: ch}
	sys.metrics = newTestMetrics(sys)

	node := identity.NewNodeIdentity()
	recipient := identity.ActorID{NodeID: &node, ID: "worker-1"}

	errCh := make(chan error, 1)
	go func() {
		errCh <- RemoteCallVoid(context.Background(), sys, recipient, "Ping", nil)
	}()

	frame := <-fc.Outgoing()
	env, err := wire.Decode(frame.Payload)
	require.NoError(t, err)
	sys.pending.Resolve(env.Call.CallID, []byte("null"))

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("RemoteCallVoid did not return")
	}

	require.Equal(t, int64(1), sys.metrics.callsStarted.Load())
	require.Equal(t, int64(1), sys.metrics.callsSucceeded.Load())
	require.Equal(t, int64(0), sys.metrics.callsFailed.Load())

	var observed uint64
	for i := range sys.metrics.latCounts {
		observed += sys.metrics.latCounts[i].Load()
	}
	require.Equal(t, uint64(1), observed, "a completed call must land in exactly one latency bucket")
}

func TestRemoteCallVoidRecordsMetricsOnBreakerRejection(t *testing.T) {
	sys := newTestSystem()
	sys.breakerThreshold = 1
	sys.metrics = newTestMetrics(sys)
	sys.manager = &fakeManager{}

	id := identity.NewNodeIdentity()
	recipient := identity.ActorID{NodeID: &id, ID: "flaky"}
	sys.settle(recipient, rpcerr.NoPeers)

	err := RemoteCallVoid(context.Background(), sys, recipient, "Ping", nil)
	require.Error(t, err)
	require.Equal(t, int64(0), sys.metrics.callsStarted.Load(), "a breaker rejection short-circuits before the call is counted as started")
}
