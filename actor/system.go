package actor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/MeansAI/websocket-actor-system/identity"
	"github.com/MeansAI/websocket-actor-system/manager"
	"github.com/MeansAI/websocket-actor-system/resilience"
	"github.com/MeansAI/websocket-actor-system/rpc"
	"github.com/MeansAI/websocket-actor-system/rpcerr"
)

// System is the runtime container tying together the local registry, the
// connection manager, the pending-reply table, and the call-shaping
// resilience layer. It is the single object application code constructs
// and holds. Generalized from the teacher's System, whose breaker-per-
// target and failure-subscription bookkeeping this keeps, onto remote
// call/reply dispatch in place of in-process message delivery.
type System struct {
	nodeID   identity.NodeIdentity
	registry *Registry
	manager  manager.Manager
	pending  *rpc.PendingTable
	logger   *slog.Logger

	callTimeout time.Duration

	breakerMu        sync.Mutex
	breakers         map[string]*resilience.Breaker
	breakerThreshold uint64
	breakerOpenFor   time.Duration

	limiter *resilience.TokenBucket
	metrics *Metrics

	failMu  sync.Mutex
	failSub []func(id ActorID, reason any)
}

// NewSystem constructs a System in client or server mode and starts its
// connection manager.
func NewSystem(mode Mode, opts ...Option) *System {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	nodeID := identity.NewNodeIdentity()
	if cfg.nodeID != nil {
		nodeID = *cfg.nodeID
	}
	s := &System{
		nodeID:           nodeID,
		registry:         NewRegistry(nodeID),
		pending:          rpc.NewPendingTable(cfg.logger),
		logger:           cfg.logger,
		callTimeout:      cfg.callTimeout,
		breakers:         make(map[string]*resilience.Breaker),
		breakerThreshold: cfg.breakerThreshold,
		breakerOpenFor:   cfg.breakerOpenFor,
	}
	if cfg.qps > 0 {
		s.limiter = resilience.NewTokenBucket(cfg.qps, cfg.burst)
	}
	if cfg.resolver != nil {
		s.registry.SetResolver(cfg.resolver)
	}

	if mode.isServer {
		s.manager = manager.NewServerManager(mode.addr, cfg.logger, s.onChannelReady, s.onChannelClosed)
	} else {
		s.manager = manager.NewClientManager(mode.addr, nodeID, cfg.backoff, cfg.maxReconnectAttempts, cfg.logger, s.onChannelReady, s.onChannelClosed, s.onReconnect)
	}

	if cfg.metricsAddr != "" {
		s.metrics = NewMetrics(s, cfg.metricsAddr, cfg.logger)
	}
	return s
}

// NodeID returns this system's node identity.
func (s *System) NodeID() identity.NodeIdentity { return s.nodeID }

// Registry returns the local actor registry.
func (s *System) Registry() *Registry { return s.registry }

// Close tears down the connection manager and metrics endpoint.
func (s *System) Close() error {
	if s.metrics != nil {
		s.metrics.Close()
	}
	return s.manager.Close()
}

// SubscribeFailures registers fn to be called whenever a local actor's
// invocation handler panics.
func (s *System) SubscribeFailures(fn func(id ActorID, reason any)) {
	s.failMu.Lock()
	s.failSub = append(s.failSub, fn)
	s.failMu.Unlock()
}

func (s *System) onReconnect() {
	if s.metrics != nil {
		s.metrics.IncReconnect()
	}
}

func (s *System) notifyFailure(id ActorID, reason any) {
	s.failMu.Lock()
	subs := append([]func(ActorID, any){}, s.failSub...)
	s.failMu.Unlock()
	for _, fn := range subs {
		fn(id, reason)
	}
}

// dispatch bundles the manager and pending table rpc.RemoteCall needs.
func (s *System) dispatch() rpc.Dispatch {
	return rpc.Dispatch{Manager: s.manager, Pending: s.pending}
}

func (s *System) breakerFor(id ActorID) *resilience.Breaker {
	key := id.Key()
	s.breakerMu.Lock()
	defer s.breakerMu.Unlock()
	b, ok := s.breakers[key]
	if !ok {
		b = resilience.NewBreaker(s.breakerThreshold, s.breakerOpenFor)
		s.breakers[key] = b
	}
	return b
}

func (s *System) gate(id ActorID) error {
	if !s.breakerFor(id).Allow(time.Now()) {
		return &rpcerr.CircuitOpenError{ActorID: id.Key()}
	}
	if s.limiter != nil {
		s.limiter.Wait(1)
	}
	return nil
}

func (s *System) settle(id ActorID, err error) {
	b := s.breakerFor(id)
	if err != nil {
		b.OnFailure(time.Now())
	} else {
		b.OnSuccess()
	}
}

func (s *System) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.callTimeout)
}

// RemoteCall invokes target on recipient with args, gated by recipient's
// circuit breaker and this system's rate limiter, and decodes the reply
// into T. It is a standalone function rather than a method because Go
// methods cannot carry their own type parameters.
func RemoteCall[T any](ctx context.Context, s *System, recipient ActorID, target string, genericSubs []string, args ...any) (T, error) {
	var zero T
	encoded, err := rpc.EncodeArgs(args...)
	if err != nil {
		return zero, err
	}
	if err := s.gate(recipient); err != nil {
		return zero, err
	}
	if s.metrics != nil {
		s.metrics.IncCallStarted()
	}
	start := time.Now()
	cctx, cancel := s.withTimeout(ctx)
	defer cancel()
	v, err := rpc.RemoteCall[T](cctx, s.dispatch(), recipient, target, genericSubs, encoded)
	s.settle(recipient, err)
	if s.metrics != nil {
		s.metrics.ObserveLatency(time.Since(start))
		s.metrics.IncCallResult(err)
	}
	return v, err
}

// RemoteCallVoid is RemoteCall for targets with no result value.
func RemoteCallVoid(ctx context.Context, s *System, recipient ActorID, target string, genericSubs []string, args ...any) error {
	encoded, err := rpc.EncodeArgs(args...)
	if err != nil {
		return err
	}
	if err := s.gate(recipient); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.IncCallStarted()
	}
	start := time.Now()
	cctx, cancel := s.withTimeout(ctx)
	defer cancel()
	err = rpc.RemoteCallVoid(cctx, s.dispatch(), recipient, target, genericSubs, encoded)
	s.settle(recipient, err)
	if s.metrics != nil {
		s.metrics.ObserveLatency(time.Since(start))
		s.metrics.IncCallResult(err)
	}
	return err
}
