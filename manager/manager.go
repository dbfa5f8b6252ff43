package manager

import (
	"context"

	"github.com/MeansAI/websocket-actor-system/identity"
	"github.com/MeansAI/websocket-actor-system/rpcerr"
)

// Manager selects the Channel that should carry a call to a given actor
// and tracks node-to-channel associations. A System owns exactly one
// Manager, built as either a ClientManager or a ServerManager depending on
// SPEC_FULL.md §6's Mode.
type Manager interface {
	// SelectChannel returns the channel to use for a call to id. In client
	// mode it blocks until one is available, ctx is done, or reconnects are
	// exhausted; in server mode it fails at once if id's node has no
	// channel.
	SelectChannel(ctx context.Context, id identity.ActorID) (*Channel, error)
	// Associate records that node is reachable over ch, applying the
	// most-recent-associate-wins tie-break of SPEC_FULL.md §4.4 when a
	// channel already exists for that node.
	Associate(node identity.NodeIdentity, ch *Channel)
	// Channels returns a snapshot of all open channels, for metrics and
	// broadcast-style shutdown.
	Channels() []*Channel
	// Close tears down every channel and stops accepting new ones.
	Close() error
}

// OnChannelReady is invoked once a channel completes its handshake and
// transitions to Open; the caller (the owning System) starts the
// channel's dispatcher loop from this hook.
type OnChannelReady func(ch *Channel)

// OnChannelClosed is invoked once a channel transitions to Closed so the
// owning System can fail pending replies bound to it.
type OnChannelClosed func(ch *Channel)

func nodeErr(id identity.ActorID) error {
	if !id.HasNode() {
		return rpcerr.NoPeers
	}
	return &rpcerr.NoChannelToNodeError{NodeID: id.NodeID.String()}
}
