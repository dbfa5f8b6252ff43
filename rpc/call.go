package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/MeansAI/websocket-actor-system/identity"
	"github.com/MeansAI/websocket-actor-system/manager"
	"github.com/MeansAI/websocket-actor-system/rpcerr"
	"github.com/MeansAI/websocket-actor-system/wire"
)

// DefaultCallTimeout bounds how long RemoteCall/RemoteCallVoid wait for a
// reply before failing, absent an earlier context deadline.
const DefaultCallTimeout = 30 * time.Second

// Dispatch is the manager plus pending-reply table a call needs: select a
// channel, register a continuation, write the Call envelope, await the
// Reply, and clean up. System composes this with its own breaker and rate
// limiter before exposing RemoteCall to actor code.
type Dispatch struct {
	Manager manager.Manager
	Pending *PendingTable
}

// RemoteCall invokes target on recipient with args and awaits a
// JSON-decoded T result, honoring ctx's deadline or DefaultCallTimeout,
// whichever is sooner.
func RemoteCall[T any](ctx context.Context, d Dispatch, recipient identity.ActorID, target string, genericSubs []string, args [][]byte) (T, error) {
	var zero T
	value, err := remoteCall(ctx, d, recipient, target, genericSubs, args)
	if err != nil {
		return zero, err
	}
	var v T
	if err := json.Unmarshal(value, &v); err != nil {
		return zero, &rpcerr.FailedDecodingResponseError{Data: value, Inner: err}
	}
	return v, nil
}

// RemoteCallVoid invokes target on recipient and awaits acknowledgement,
// discarding the reply's value.
func RemoteCallVoid(ctx context.Context, d Dispatch, recipient identity.ActorID, target string, genericSubs []string, args [][]byte) error {
	_, err := remoteCall(ctx, d, recipient, target, genericSubs, args)
	return err
}

func remoteCall(ctx context.Context, d Dispatch, recipient identity.ActorID, target string, genericSubs []string, args [][]byte) ([]byte, error) {
	if !recipient.HasNode() {
		return nil, &rpcerr.MissingNodeIDError{ID: recipient.ID}
	}
	ch, err := d.Manager.SelectChannel(ctx, recipient)
	if err != nil {
		return nil, err
	}

	callID := identity.NewCallID()
	tc := d.Pending.Register(callID, ch)
	defer d.Pending.Forget(callID, ch)

	env := wire.NewCall(wire.CallEnvelope{
		CallID:           callID,
		Recipient:        recipient,
		InvocationTarget: target,
		GenericSubs:      genericSubs,
		Args:             args,
	})
	if err := Write(ch, env); err != nil {
		return nil, err
	}

	timeout := DefaultCallTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until < timeout {
			timeout = until
		}
	}
	return tc.Await(ctx, timeout)
}
