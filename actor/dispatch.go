package actor

import (
	"errors"

	"github.com/MeansAI/websocket-actor-system/manager"
	"github.com/MeansAI/websocket-actor-system/rpc"
	"github.com/MeansAI/websocket-actor-system/rpcerr"
	"github.com/MeansAI/websocket-actor-system/transport"
	"github.com/MeansAI/websocket-actor-system/wire"
)

// onChannelReady is the manager.OnChannelReady hook: it starts the
// channel's dispatcher loop, the long-running reader described in
// SPEC_FULL.md §4.6.
func (s *System) onChannelReady(ch *manager.Channel) {
	go s.readLoop(ch)
}

// onChannelClosed is the manager.OnChannelClosed hook: every call still
// outstanding on ch fails immediately rather than waiting out its
// timeout.
func (s *System) onChannelClosed(ch *manager.Channel) {
	var nodeErr error = rpcerr.NoPeers
	if id := ch.NodeID(); id != nil {
		nodeErr = &rpcerr.NoChannelToNodeError{NodeID: id.String()}
	}
	s.pending.FailAll(ch, nodeErr)
}

// readLoop is the single reader goroutine for one channel. It owns every
// decision in SPEC_FULL.md §4.6's frame dispatch table and terminates the
// moment the connection is no longer usable.
func (s *System) readLoop(ch *manager.Channel) {
	for {
		frame, err := ch.ReadFrame()
		if err != nil {
			s.logger.Debug("channel read failed", "remote", ch.RemoteAddr(), "error", err)
			ch.Close()
			return
		}
		switch frame.Opcode {
		case transport.OpText:
			if !s.handleText(ch, frame.Payload) {
				return
			}
		case transport.OpPing:
			if err := ch.Pong(frame.Payload); err != nil {
				return
			}
		case transport.OpPong:
			// liveness only, nothing to do
		case transport.OpBinary, transport.OpContinuation:
			// not part of the envelope protocol; ignored
		case transport.OpClose:
			_ = ch.EchoClose(frame.CloseCode, frame.CloseReason)
			return
		default:
			s.logger.Warn("protocol error: unsupported opcode", "remote", ch.RemoteAddr(), "opcode", frame.Opcode)
			_ = ch.SendProtocolErrorClose()
			return
		}
	}
}

// handleText decodes and dispatches one text frame. It returns false if
// the channel should stop being read (a protocol error or an explicit
// close announcement).
func (s *System) handleText(ch *manager.Channel, payload []byte) bool {
	env, err := wire.Decode(payload)
	if err != nil {
		var unknown *wire.UnknownTagError
		if errors.As(err, &unknown) {
			s.logger.Debug("dropping envelope with unrecognized tags", "remote", ch.RemoteAddr(), "tags", unknown.Tags)
			return true
		}
		s.logger.Warn("protocol error: undecodable envelope", "remote", ch.RemoteAddr(), "error", err)
		_ = ch.SendProtocolErrorClose()
		return false
	}

	switch env.Kind {
	case wire.KindCall:
		s.handleCall(ch, env.Call)
	case wire.KindReply:
		s.pending.Resolve(env.Reply.CallID, env.Reply.Value)
	case wire.KindConnectionClose:
		ch.Close()
		return false
	}
	return true
}

// handleCall resolves call's recipient and invokes it. Resolution failure
// (unknown or non-Invokable recipient) is logged and dropped rather than
// answered: no Reply is sent, and the caller's RemoteCall/RemoteCallVoid
// fails with its own timeout rather than a decode error. A resolved
// target's own execution failure is a different case, answered through
// ResultHandler.OnThrow so the caller doesn't wait out its full timeout.
func (s *System) handleCall(ch *manager.Channel, call *wire.CallEnvelope) {
	a, err := s.registry.ResolveAny(call.Recipient)
	if err != nil {
		s.logger.Warn("dropping call to unresolvable recipient", "recipient", call.Recipient.Key(), "error", err)
		return
	}
	target, ok := a.(Invokable)
	if !ok {
		s.logger.Warn("dropping call to non-invokable recipient", "recipient", call.Recipient.Key())
		return
	}

	dec := rpc.NewInvocationDecoder(call.Args, call.GenericSubs)
	handler := rpc.NewResultHandler(call.CallID, &call.Recipient, ch, s.logger)
	go target.Invoke(call.InvocationTarget, dec, handler)
}
