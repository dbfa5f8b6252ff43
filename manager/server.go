package manager

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/MeansAI/websocket-actor-system/identity"
	"github.com/MeansAI/websocket-actor-system/rpcerr"
	"github.com/MeansAI/websocket-actor-system/transport"
)

// ServerManager is the server-mode connection manager (SPEC_FULL.md §4.4):
// it accepts many inbound channels and keeps a NodeIdentity → Channel map,
// applying most-recent-associate-wins when two channels claim the same
// node (the simultaneous-connect race).
type ServerManager struct {
	addr    string
	logger  *slog.Logger
	onReady OnChannelReady
	onClose OnChannelClosed

	mu       sync.RWMutex
	byNode   map[identity.NodeIdentity]*Channel
	srv      *http.Server
	stopped  bool
}

// NewServerManager starts an HTTP server on addr that upgrades every
// request on path "/actor" to a WebSocket channel.
func NewServerManager(addr string, logger *slog.Logger, onReady OnChannelReady, onClose OnChannelClosed) *ServerManager {
	if logger == nil {
		logger = slog.Default()
	}
	sm := &ServerManager{
		addr:    addr,
		logger:  logger,
		onReady: onReady,
		onClose: onClose,
		byNode:  make(map[identity.NodeIdentity]*Channel),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/actor", sm.handleUpgrade)
	sm.srv = &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := sm.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sm.logger.Error("server manager listen failed", "addr", addr, "error", err)
		}
	}()
	return sm
}

func (sm *ServerManager) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	nodeParam := r.URL.Query().Get("node")
	var nodeID identity.NodeIdentity
	if nodeParam != "" {
		if id, err := identity.ParseNodeIdentity(nodeParam); err == nil {
			nodeID = id
		} else {
			sm.logger.Warn("server manager rejecting connect with malformed node id", "node", nodeParam, "error", err)
			http.Error(w, "malformed node id", http.StatusBadRequest)
			return
		}
	} else {
		nodeID = identity.NewNodeIdentity()
	}

	conn, err := transport.Upgrade(w, r)
	if err != nil {
		sm.logger.Warn("server manager upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	ch := newChannel(conn, sm.handleClosed, sm.logger)
	ch.SetNodeID(nodeID)
	ch.MarkOpen()
	sm.Associate(nodeID, ch)

	if sm.onReady != nil {
		sm.onReady(ch)
	}
}

func (sm *ServerManager) handleClosed(ch *Channel) {
	nodeID := ch.NodeID()
	if nodeID == nil {
		return
	}
	sm.mu.Lock()
	if cur, ok := sm.byNode[*nodeID]; ok && cur == ch {
		delete(sm.byNode, *nodeID)
	}
	sm.mu.Unlock()
	if sm.onClose != nil {
		sm.onClose(ch)
	}
}

// Associate records ch as the channel for node. If a different channel is
// already associated, the older one is closed: most-recent-associate-wins
// (SPEC_FULL.md §4.4).
func (sm *ServerManager) Associate(node identity.NodeIdentity, ch *Channel) {
	sm.mu.Lock()
	old, existed := sm.byNode[node]
	sm.byNode[node] = ch
	sm.mu.Unlock()
	if existed && old != ch {
		sm.logger.Info("server manager superseding channel for node", "node", node.String())
		old.Close()
	}
}

// SelectChannel returns the channel currently associated with id's node.
// Server mode never dials out, so there is no waiting: if no channel is
// associated yet, it fails immediately.
func (sm *ServerManager) SelectChannel(_ context.Context, id identity.ActorID) (*Channel, error) {
	if !id.HasNode() {
		return nil, rpcerr.NoPeers
	}
	sm.mu.RLock()
	ch, ok := sm.byNode[*id.NodeID]
	sm.mu.RUnlock()
	if !ok {
		return nil, nodeErr(id)
	}
	return ch, nil
}

// Channels returns a snapshot of every associated channel.
func (sm *ServerManager) Channels() []*Channel {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	out := make([]*Channel, 0, len(sm.byNode))
	for _, ch := range sm.byNode {
		out = append(out, ch)
	}
	return out
}

// Close shuts down the listener and every accepted channel.
func (sm *ServerManager) Close() error {
	sm.mu.Lock()
	if sm.stopped {
		sm.mu.Unlock()
		return nil
	}
	sm.stopped = true
	chans := make([]*Channel, 0, len(sm.byNode))
	for _, ch := range sm.byNode {
		chans = append(chans, ch)
	}
	sm.mu.Unlock()

	for _, ch := range chans {
		ch.Close()
	}
	return sm.srv.Close()
}
