// Package actor implements the local actor registry, ID assignment, and
// per-actor invocation dispatch (SPEC_FULL.md §4.1, §4.5, §4.8) and wires
// them to the manager and rpc packages to form the System façade actor
// code is written against.
package actor

import (
	"log/slog"

	"github.com/MeansAI/websocket-actor-system/identity"
	"github.com/MeansAI/websocket-actor-system/manager"
	"github.com/MeansAI/websocket-actor-system/rpc"
)

// ActorID, NodeIdentity, and CallID are re-exported from the identity leaf
// package so actor code never needs to import it directly. They live in
// their own package to keep wire and manager free of a dependency on
// actor.
type (
	ActorID      = identity.ActorID
	NodeIdentity = identity.NodeIdentity
	CallID       = identity.CallID
)

// InvocationDecoder and ResultHandler are re-exported from the rpc
// package: actor code decodes call arguments and answers calls through
// these without importing rpc directly.
type (
	InvocationDecoder = rpc.InvocationDecoder
	ResultHandler     = rpc.ResultHandler
)

// Arg decodes positional call argument i into T.
func Arg[T any](d *InvocationDecoder, i int) (T, error) { return rpc.Arg[T](d, i) }

// NewInvocationDecoder wraps raw argument bytes for decoding.
func NewInvocationDecoder(args [][]byte, genericSubs []string) *InvocationDecoder {
	return rpc.NewInvocationDecoder(args, genericSubs)
}

// NewResultHandler binds a handler to the call it must answer and the
// channel the answer travels back over.
func NewResultHandler(callID identity.CallID, sender *identity.ActorID, channel *manager.Channel, logger *slog.Logger) *ResultHandler {
	return rpc.NewResultHandler(callID, sender, channel, logger)
}

// NewNodeIdentity returns a fresh, randomly generated node identity.
func NewNodeIdentity() NodeIdentity { return identity.NewNodeIdentity() }

// NewCallID returns a fresh, randomly generated call identifier.
func NewCallID() CallID { return identity.NewCallID() }

// ActorState describes a Base actor's lifecycle position.
type ActorState uint8

const (
	StateNew ActorState = iota
	StateRunning
	StateStopping
	StateStopped
)

// ManagedActor is the minimum any registry entry must satisfy: something
// addressable by ActorID. Registry.Resolve narrows this to a caller's
// required capability via a type assertion.
type ManagedActor interface {
	ActorID() ActorID
}

// Invokable is a ManagedActor able to service an inbound Call. Actors that
// only ever originate calls (never receive them) need not implement it;
// the dispatcher treats resolving a non-Invokable ManagedActor as a
// resolve failure.
type Invokable interface {
	ManagedActor
	Invoke(target string, dec *InvocationDecoder, handler *ResultHandler)
}
