package rpc

import (
	"encoding/json"
	"log/slog"

	"github.com/MeansAI/websocket-actor-system/identity"
	"github.com/MeansAI/websocket-actor-system/manager"
	"github.com/MeansAI/websocket-actor-system/wire"
)

// ResultHandler is handed to an invoked actor so it can answer a Call
// exactly once, from whatever goroutine ends up producing the result.
// It is the recipient-side half of L8's RPC surface.
type ResultHandler struct {
	callID  identity.CallID
	sender  *identity.ActorID
	channel *manager.Channel
	logger  *slog.Logger
}

// NewResultHandler binds a handler to the call it must answer and the
// channel the answer travels back over. sender identifies the recipient
// actor itself, so the caller can address a follow-up call back to it.
func NewResultHandler(callID identity.CallID, sender *identity.ActorID, channel *manager.Channel, logger *slog.Logger) *ResultHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultHandler{callID: callID, sender: sender, channel: channel, logger: logger}
}

// OnReturn JSON-encodes value and sends it back as the call's Reply.
func (h *ResultHandler) OnReturn(value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		h.logger.Error("failed encoding call result", "callID", h.callID.String(), "error", err)
		return h.OnThrow(err)
	}
	return h.reply(b)
}

// OnReturnVoid sends a Reply with an empty value, for targets with no
// result.
func (h *ResultHandler) OnReturnVoid() error {
	return h.reply(nil)
}

// OnThrow sends a Reply with an empty value after logging err. SPEC_FULL.md
// §6 keeps the wire ABI to Call/Reply/ConnectionClose only, so a
// target-side error surfaces to the caller as a decode failure rather than
// a distinguishable error reply: json.Unmarshal of an empty payload fails
// with "unexpected end of JSON input", which RemoteCall[T] turns into a
// FailedDecodingResponseError. See DESIGN.md's Open Question decision.
func (h *ResultHandler) OnThrow(err error) error {
	h.logger.Warn("invocation target failed", "callID", h.callID.String(), "error", err)
	return h.reply(nil)
}

func (h *ResultHandler) reply(value []byte) error {
	return Write(h.channel, wire.NewReply(wire.ReplyEnvelope{
		CallID: h.callID,
		Sender: h.sender,
		Value:  value,
	}))
}
