package rpcerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypedErrorsCarryContext(t *testing.T) {
	e1 := &ResolveFailedToMatchActorTypeError{Found: "actor.echoActor", Expected: "actor.Greeter"}
	require.Contains(t, e1.Error(), "actor.echoActor")
	require.Contains(t, e1.Error(), "actor.Greeter")

	e2 := &NoChannelToNodeError{NodeID: "node-1"}
	require.Contains(t, e2.Error(), "node-1")

	e3 := &MissingNodeIDError{ID: "actor-1"}
	require.Contains(t, e3.Error(), "actor-1")

	e4 := &NotEnoughArgumentsInEnvelopeError{Expected: 3}
	require.Contains(t, e4.Error(), "3")

	e5 := &CircuitOpenError{ActorID: "actor-9"}
	require.Contains(t, e5.Error(), "actor-9")
}

func TestFailedDecodingResponseErrorUnwraps(t *testing.T) {
	inner := errors.New("unexpected end of JSON input")
	e := &FailedDecodingResponseError{Data: []byte("{"), Inner: inner}
	require.ErrorIs(t, e, inner)
}

func TestDecodingErrorUnwraps(t *testing.T) {
	inner := errors.New("bad type")
	e := &DecodingError{Inner: inner}
	require.ErrorIs(t, e, inner)
}
