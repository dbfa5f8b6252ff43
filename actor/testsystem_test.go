package actor

import (
	"log/slog"
	"time"

	"github.com/MeansAI/websocket-actor-system/identity"
	"github.com/MeansAI/websocket-actor-system/resilience"
	"github.com/MeansAI/websocket-actor-system/rpc"
)

// newTestSystem builds a System with no connection manager, for tests that
// only exercise the registry and local dispatch path (Base, Registry,
// Context) without a real or fake network.
func newTestSystem() *System {
	nodeID := identity.NewNodeIdentity()
	return &System{
		nodeID:           nodeID,
		registry:         NewRegistry(nodeID),
		pending:          rpc.NewPendingTable(slog.Default()),
		logger:           slog.Default(),
		callTimeout:      30 * time.Second,
		breakers:         make(map[string]*resilience.Breaker),
		breakerThreshold: 50,
		breakerOpenFor:   time.Second,
	}
}
