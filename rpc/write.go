package rpc

import (
	"github.com/MeansAI/websocket-actor-system/manager"
	"github.com/MeansAI/websocket-actor-system/wire"
)

// Write serializes env onto ch, following SPEC_FULL.md §4.7's write()
// contract: Call and Reply become a single JSON text frame, while
// ConnectionClose becomes a native close frame carrying protocolError,
// after which the channel is torn down.
func Write(ch *manager.Channel, env wire.Envelope) error {
	if env.Kind == wire.KindConnectionClose {
		return ch.SendProtocolErrorClose()
	}
	data, err := wire.Encode(env)
	if err != nil {
		return err
	}
	return ch.Send(data)
}
