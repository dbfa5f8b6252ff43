package rpc

import (
	"encoding/json"

	"github.com/MeansAI/websocket-actor-system/rpcerr"
)

// InvocationDecoder wraps a Call envelope's positional argument bytes and
// generic type substitutions so a handler can decode exactly the
// arguments it declares, in order, without seeing the wire envelope
// itself.
type InvocationDecoder struct {
	args        [][]byte
	genericSubs []string
}

// NewInvocationDecoder wraps raw argument bytes for decoding.
func NewInvocationDecoder(args [][]byte, genericSubs []string) *InvocationDecoder {
	return &InvocationDecoder{args: args, genericSubs: genericSubs}
}

// NumArgs reports how many positional arguments the envelope carried.
func (d *InvocationDecoder) NumArgs() int { return len(d.args) }

// GenericSubs returns the generic type-parameter substitutions the caller
// requested, in declaration order.
func (d *InvocationDecoder) GenericSubs() []string { return d.genericSubs }

// Arg JSON-decodes positional argument i into T. It returns
// NotEnoughArgumentsInEnvelopeError if the envelope carried fewer than
// i+1 arguments.
func Arg[T any](d *InvocationDecoder, i int) (T, error) {
	var zero T
	if i >= len(d.args) {
		return zero, &rpcerr.NotEnoughArgumentsInEnvelopeError{Expected: i + 1}
	}
	var v T
	if err := json.Unmarshal(d.args[i], &v); err != nil {
		return zero, &rpcerr.DecodingError{Inner: err}
	}
	return v, nil
}

// EncodeArgs JSON-encodes a list of call arguments into the wire's
// positional []byte form.
func EncodeArgs(args ...any) ([][]byte, error) {
	out := make([][]byte, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return nil, &rpcerr.DecodingError{Inner: err}
		}
		out[i] = b
	}
	return out, nil
}
