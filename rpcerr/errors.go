// Package rpcerr defines the typed error taxonomy shared by the actor
// registry, connection manager, dispatcher, and RPC surface.
package rpcerr

import (
	"errors"
	"fmt"
)

// NoPeers is returned when no channel can be chosen and there is no node to
// name: by SelectChannel once its manager is closed, by a server manager
// asked for an ID with no node tag, and to calls still pending on a closed
// channel whose peer never identified its node.
var NoPeers = errors.New("no peers")

// MissingReplyContinuation is logged, not returned, when a reply arrives
// for a CallID with no pending slot (a late reply after timeout).
var MissingReplyContinuation = errors.New("missing reply continuation")

// FailedToUpgrade is returned when a WebSocket handshake fails on either
// the dialing or accepting side.
var FailedToUpgrade = errors.New("failed to upgrade to websocket")

// ResolveFailedToMatchActorTypeError is returned when a locally registered
// actor exists under the requested ID but does not implement the
// capability the caller asked for.
type ResolveFailedToMatchActorTypeError struct {
	Found    string
	Expected string
}

func (e *ResolveFailedToMatchActorTypeError) Error() string {
	return fmt.Sprintf("resolve failed to match actor type: found %s, expected %s", e.Found, e.Expected)
}

// ResolveFailedError is returned when an ID has no ready local actor and
// the on-demand resolver, if one is installed, does not supply one. A
// resolver-supplied actor of the wrong capability is reported as
// ResolveFailedToMatchActorTypeError instead.
type ResolveFailedError struct {
	ID string
}

func (e *ResolveFailedError) Error() string {
	return fmt.Sprintf("resolve failed for id %s: no ready local actor and no on-demand match", e.ID)
}

// MissingNodeIDError is returned by RemoteCall when the target ActorID
// carries no node tag, so no channel could ever be selected for it.
type MissingNodeIDError struct {
	ID string
}

func (e *MissingNodeIDError) Error() string {
	return fmt.Sprintf("missing node id for actor %s", e.ID)
}

// NoChannelToNodeError is returned when no live channel exists for the
// node a call must be routed to, and when a channel terminates while
// calls are outstanding on it.
type NoChannelToNodeError struct {
	NodeID string
}

func (e *NoChannelToNodeError) Error() string {
	return fmt.Sprintf("no channel to node %s", e.NodeID)
}

// NotEnoughArgumentsInEnvelopeError is returned by the invocation decoder
// when the caller asks for more positional arguments than the envelope
// carried.
type NotEnoughArgumentsInEnvelopeError struct {
	Expected int
}

func (e *NotEnoughArgumentsInEnvelopeError) Error() string {
	return fmt.Sprintf("not enough arguments in envelope: expected at least %d", e.Expected)
}

// FailedDecodingResponseError wraps a JSON decode failure on a reply's
// value bytes, keeping the offending bytes for diagnostics.
type FailedDecodingResponseError struct {
	Data  []byte
	Inner error
}

func (e *FailedDecodingResponseError) Error() string {
	return fmt.Sprintf("failed decoding response (%d bytes): %v", len(e.Data), e.Inner)
}

func (e *FailedDecodingResponseError) Unwrap() error { return e.Inner }

// DecodingError wraps any other decode failure on the RPC surface, such as
// decoding a call argument.
type DecodingError struct {
	Inner error
}

func (e *DecodingError) Error() string { return fmt.Sprintf("decoding error: %v", e.Inner) }

func (e *DecodingError) Unwrap() error { return e.Inner }

// CircuitOpenError is returned by RemoteCall/RemoteCallVoid when the
// destination actor's circuit breaker is open. It is a purely local
// addition (see SPEC_FULL.md §4.9) and never crosses the wire.
type CircuitOpenError struct {
	ActorID string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open for actor %s", e.ActorID)
}
