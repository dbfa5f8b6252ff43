package actor

import (
	"log/slog"
	"time"

	"github.com/MeansAI/websocket-actor-system/identity"
	"github.com/MeansAI/websocket-actor-system/resilience"
)

// Mode selects whether a System dials a single peer or accepts many, per
// SPEC_FULL.md §6.
type Mode struct {
	isServer bool
	addr     string
}

// ClientFor builds a client-mode Mode dialing addr ("host:port").
func ClientFor(addr string) Mode { return Mode{isServer: false, addr: addr} }

// ServerOnly builds a server-mode Mode listening on addr ("host:port").
func ServerOnly(addr string) Mode { return Mode{isServer: true, addr: addr} }

type systemConfig struct {
	logger                *slog.Logger
	nodeID                *identity.NodeIdentity
	breakerThreshold      uint64
	breakerOpenFor        time.Duration
	qps                   int64
	burst                 int64
	backoff               resilience.BackoffFunc
	maxReconnectAttempts  int
	resolver              ResolverFunc
	metricsAddr           string
	callTimeout           time.Duration
}

func defaultConfig() systemConfig {
	return systemConfig{
		logger:           slog.Default(),
		breakerThreshold: 50,
		breakerOpenFor:   30 * time.Second,
		backoff:          resilience.ExponentialBackoff(0, 0),
		callTimeout:      30 * time.Second,
	}
}

// Option configures a System at construction, following the functional
// option pattern the teacher uses for its runtime knobs.
type Option func(*systemConfig)

// WithLogger overrides the default slog.Default() logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *systemConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithNodeID overrides the random node identity NewSystem otherwise
// generates, per spec.md §6's "random if omitted" node ID.
func WithNodeID(id identity.NodeIdentity) Option {
	return func(c *systemConfig) { c.nodeID = &id }
}

// WithCircuitBreaker overrides the per-destination-actor breaker's
// failure threshold and open-state duration.
func WithCircuitBreaker(threshold uint64, openFor time.Duration) Option {
	return func(c *systemConfig) {
		c.breakerThreshold = threshold
		c.breakerOpenFor = openFor
	}
}

// WithRateLimit enables outbound call shaping via a token bucket.
func WithRateLimit(qps, burst int64) Option {
	return func(c *systemConfig) {
		c.qps = qps
		c.burst = burst
	}
}

// WithReconnectBackoff overrides a client manager's reconnect curve.
// maxAttempts <= 0 means retry indefinitely.
func WithReconnectBackoff(backoff resilience.BackoffFunc, maxAttempts int) Option {
	return func(c *systemConfig) {
		if backoff != nil {
			c.backoff = backoff
		}
		c.maxReconnectAttempts = maxAttempts
	}
}

// WithResolver installs the registry's on-demand resolution hook.
func WithResolver(fn ResolverFunc) Option {
	return func(c *systemConfig) { c.resolver = fn }
}

// WithMetricsAddr starts a Prometheus-text /metrics endpoint on addr.
func WithMetricsAddr(addr string) Option {
	return func(c *systemConfig) { c.metricsAddr = addr }
}

// WithCallTimeout overrides the default 30s RemoteCall/RemoteCallVoid
// timeout applied when ctx carries no deadline of its own.
func WithCallTimeout(d time.Duration) Option {
	return func(c *systemConfig) {
		if d > 0 {
			c.callTimeout = d
		}
	}
}
