package manager

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/MeansAI/websocket-actor-system/identity"
	"github.com/MeansAI/websocket-actor-system/resilience"
	"github.com/MeansAI/websocket-actor-system/rpcerr"
	"github.com/MeansAI/websocket-actor-system/transport"
)

// ClientManager is the client-mode connection manager (SPEC_FULL.md §4.4):
// it keeps exactly one channel to a single remote server, reconnecting
// with exponential backoff on failure. Every actor ID it is asked to
// route resolves to that one channel regardless of the ID's NodeID field.
type ClientManager struct {
	dialURL string
	backoff resilience.BackoffFunc
	maxAttempts int
	logger      *slog.Logger
	onReady     OnChannelReady
	onClose     OnChannelClosed
	onReconnect func()

	mu        sync.Mutex
	current   *Channel
	ready     chan struct{} // closed and replaced whenever current changes
	stopped   bool
	stopCh    chan struct{}
	everConnected bool
	exhausted bool // reconnect attempts ran out; terminal until Close
}

// NewClientManager dials nodeAddr (host:port) and keeps the connection
// alive for the lifetime of the returned manager. selfID is sent as a
// query parameter so the server can self-identify this node at accept
// time (see DESIGN.md's decision on node self-identification). onReconnect,
// if non-nil, is called every time a channel is established after the
// first one (i.e. on every actual reconnect, not the initial connect).
func NewClientManager(nodeAddr string, selfID identity.NodeIdentity, backoff resilience.BackoffFunc, maxAttempts int, logger *slog.Logger, onReady OnChannelReady, onClose OnChannelClosed, onReconnect func()) *ClientManager {
	if backoff == nil {
		backoff = resilience.ExponentialBackoff(0, 0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	u := url.URL{Scheme: "ws", Host: nodeAddr, Path: "/actor"}
	q := u.Query()
	q.Set("node", selfID.String())
	u.RawQuery = q.Encode()

	cm := &ClientManager{
		dialURL:     u.String(),
		backoff:     backoff,
		maxAttempts: maxAttempts,
		logger:      logger,
		onReady:     onReady,
		onClose:     onClose,
		onReconnect: onReconnect,
		ready:       make(chan struct{}),
		stopCh:      make(chan struct{}),
	}
	go cm.run()
	return cm
}

func (cm *ClientManager) run() {
	attempt := 0
	for {
		select {
		case <-cm.stopCh:
			return
		default:
		}
		conn, err := transport.Dial(cm.dialURL)
		if err != nil {
			cm.logger.Warn("client dial failed", "url", cm.dialURL, "attempt", attempt, "error", err)
			if cm.maxAttempts > 0 && attempt+1 >= cm.maxAttempts {
				cm.exhaust()
				return
			}
			delay := cm.backoff(attempt)
			attempt++
			select {
			case <-time.After(delay):
				continue
			case <-cm.stopCh:
				return
			}
		}
		attempt = 0
		ch := newChannel(conn, cm.handleClosed, cm.logger)
		ch.MarkOpen()

		cm.mu.Lock()
		cm.current = ch
		close(cm.ready)
		cm.ready = make(chan struct{})
		reconnect := cm.everConnected
		cm.everConnected = true
		cm.mu.Unlock()

		if reconnect && cm.onReconnect != nil {
			cm.onReconnect()
		}
		if cm.onReady != nil {
			cm.onReady(ch)
		}

		<-ch.closed
		select {
		case <-cm.stopCh:
			return
		default:
		}
	}
}

// exhaust marks the manager as permanently unable to reconnect and wakes
// any SelectChannel callers blocked waiting for a channel that will never
// arrive.
func (cm *ClientManager) exhaust() {
	cm.mu.Lock()
	if cm.exhausted {
		cm.mu.Unlock()
		return
	}
	cm.exhausted = true
	close(cm.ready)
	cm.mu.Unlock()
	cm.logger.Error("client manager exhausted reconnect attempts", "url", cm.dialURL, "maxAttempts", cm.maxAttempts)
}

func (cm *ClientManager) handleClosed(ch *Channel) {
	cm.mu.Lock()
	if cm.current == ch {
		cm.current = nil
	}
	cm.mu.Unlock()
	if cm.onClose != nil {
		cm.onClose(ch)
	}
}

// SelectChannel returns the single managed channel once it is open. It
// ignores id's NodeID entirely: in client mode there is only one peer.
func (cm *ClientManager) SelectChannel(ctx context.Context, id identity.ActorID) (*Channel, error) {
	for {
		cm.mu.Lock()
		if cm.stopped {
			cm.mu.Unlock()
			return nil, rpcerr.NoPeers
		}
		if cm.exhausted {
			cm.mu.Unlock()
			return nil, nodeErr(id)
		}
		if cm.current != nil {
			ch := cm.current
			cm.mu.Unlock()
			return ch, nil
		}
		wait := cm.ready
		cm.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, fmt.Errorf("manager: %w", ctx.Err())
		case <-cm.stopCh:
			return nil, rpcerr.NoPeers
		}
	}
}

// Associate is a no-op in client mode: there is exactly one channel and it
// is never re-keyed by node identity.
func (cm *ClientManager) Associate(identity.NodeIdentity, *Channel) {}

// Channels returns the single managed channel, if open.
func (cm *ClientManager) Channels() []*Channel {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.current == nil {
		return nil
	}
	return []*Channel{cm.current}
}

// Close stops reconnect attempts and tears down the current channel.
func (cm *ClientManager) Close() error {
	cm.mu.Lock()
	if cm.stopped {
		cm.mu.Unlock()
		return nil
	}
	cm.stopped = true
	cur := cm.current
	cm.mu.Unlock()
	close(cm.stopCh)
	if cur != nil {
		cur.Close()
	}
	return nil
}
