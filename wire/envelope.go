// Package wire defines the envelope protocol carried inside WebSocket text
// frames: a tagged union of Call, Reply, and ConnectionClose, JSON-encoded
// over UTF-8. The exact JSON shape is part of the ABI (see SPEC_FULL.md §6)
// and must not change without adding a new tagged variant.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/MeansAI/websocket-actor-system/identity"
)

// Kind discriminates the WireEnvelope variants.
type Kind uint8

const (
	KindCall Kind = iota
	KindReply
	KindConnectionClose
)

// CallEnvelope carries a remote method invocation. InvocationTarget is an
// opaque method selector agreed by both ends; Args are pre-encoded per
// argument and are not interpreted by this package.
type CallEnvelope struct {
	CallID           identity.CallID  `json:"callID"`
	Recipient        identity.ActorID `json:"recipient"`
	InvocationTarget string           `json:"invocationTarget"`
	GenericSubs      []string         `json:"genericSubs,omitempty"`
	Args             [][]byte         `json:"args"`
}

// ReplyEnvelope carries the JSON-encoded return value for a call, or an
// empty Value for void or error replies.
type ReplyEnvelope struct {
	CallID identity.CallID   `json:"callID"`
	Sender *identity.ActorID `json:"sender,omitempty"`
	Value  []byte            `json:"value"`
}

// Envelope is the tagged union {Call, Reply, ConnectionClose} exchanged one
// per WebSocket text frame.
type Envelope struct {
	Kind  Kind
	Call  *CallEnvelope
	Reply *ReplyEnvelope
}

// NewCall builds a Call envelope.
func NewCall(env CallEnvelope) Envelope { return Envelope{Kind: KindCall, Call: &env} }

// NewReply builds a Reply envelope.
func NewReply(env ReplyEnvelope) Envelope { return Envelope{Kind: KindReply, Reply: &env} }

// NewConnectionClose builds a ConnectionClose envelope.
func NewConnectionClose() Envelope { return Envelope{Kind: KindConnectionClose} }

type wireCall struct {
	Call *CallEnvelope `json:"call"`
}

type wireReply struct {
	Reply *ReplyEnvelope `json:"reply"`
}

type wireClose struct {
	ConnectionClose struct{} `json:"connectionClose"`
}

// Encode JSON-encodes an envelope to the exact wire shape.
func Encode(e Envelope) ([]byte, error) {
	switch e.Kind {
	case KindCall:
		return json.Marshal(wireCall{Call: e.Call})
	case KindReply:
		return json.Marshal(wireReply{Reply: e.Reply})
	case KindConnectionClose:
		return json.Marshal(wireClose{})
	default:
		return nil, fmt.Errorf("wire: unknown envelope kind %d", e.Kind)
	}
}

// UnknownTagError is returned by Decode when the frame's discriminator
// does not match any known variant. Per SPEC_FULL.md §4.1, callers must
// log and drop the frame rather than treat this as fatal.
type UnknownTagError struct {
	Tags []string
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("wire: unrecognized envelope tags %v", e.Tags)
}

// Decode parses a single JSON text frame into an Envelope. Unknown tags
// return *UnknownTagError so the caller can log and drop instead of
// failing the whole connection.
func Decode(data []byte) (Envelope, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return Envelope{}, err
	}
	if raw, ok := probe["call"]; ok {
		var c CallEnvelope
		if err := json.Unmarshal(raw, &c); err != nil {
			return Envelope{}, err
		}
		return NewCall(c), nil
	}
	if raw, ok := probe["reply"]; ok {
		var r ReplyEnvelope
		if err := json.Unmarshal(raw, &r); err != nil {
			return Envelope{}, err
		}
		return NewReply(r), nil
	}
	if _, ok := probe["connectionClose"]; ok {
		return NewConnectionClose(), nil
	}
	tags := make([]string, 0, len(probe))
	for k := range probe {
		tags = append(tags, k)
	}
	return Envelope{}, &UnknownTagError{Tags: tags}
}
