package actor

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MeansAI/websocket-actor-system/identity"
)

func TestDefaultConfigZeroValues(t *testing.T) {
	cfg := defaultConfig()
	require.NotNil(t, cfg.logger)
	require.Equal(t, uint64(50), cfg.breakerThreshold)
	require.Equal(t, 30*time.Second, cfg.breakerOpenFor)
	require.Equal(t, 30*time.Second, cfg.callTimeout)
	require.Equal(t, int64(0), cfg.qps)
	require.Equal(t, "", cfg.metricsAddr)
}

func TestWithLoggerIgnoresNil(t *testing.T) {
	cfg := defaultConfig()
	original := cfg.logger
	WithLogger(nil)(&cfg)
	require.Same(t, original, cfg.logger)

	custom := slog.Default()
	WithLogger(custom)(&cfg)
	require.Same(t, custom, cfg.logger)
}

func TestWithCircuitBreakerOverridesThresholdAndCooldown(t *testing.T) {
	cfg := defaultConfig()
	WithCircuitBreaker(5, time.Minute)(&cfg)
	require.Equal(t, uint64(5), cfg.breakerThreshold)
	require.Equal(t, time.Minute, cfg.breakerOpenFor)
}

func TestWithRateLimitSetsQPSAndBurst(t *testing.T) {
	cfg := defaultConfig()
	WithRateLimit(10, 20)(&cfg)
	require.Equal(t, int64(10), cfg.qps)
	require.Equal(t, int64(20), cfg.burst)
}

func TestWithReconnectBackoffIgnoresNilFunc(t *testing.T) {
	cfg := defaultConfig()
	original := cfg.backoff
	WithReconnectBackoff(nil, 3)(&cfg)
	require.NotNil(t, cfg.backoff)
	require.Equal(t, 3, cfg.maxReconnectAttempts)

	called := false
	custom := func(int) time.Duration { called = true; return time.Second }
	WithReconnectBackoff(custom, 7)(&cfg)
	cfg.backoff(1)
	require.True(t, called)
	require.Equal(t, 7, cfg.maxReconnectAttempts)
	_ = original
}

func TestWithResolverInstallsFunc(t *testing.T) {
	cfg := defaultConfig()
	require.Nil(t, cfg.resolver)
	WithResolver(func(ActorID) (ManagedActor, bool) { return nil, false })(&cfg)
	require.NotNil(t, cfg.resolver)
}

func TestWithMetricsAddrSetsAddr(t *testing.T) {
	cfg := defaultConfig()
	WithMetricsAddr(":9999")(&cfg)
	require.Equal(t, ":9999", cfg.metricsAddr)
}

func TestWithCallTimeoutIgnoresNonPositive(t *testing.T) {
	cfg := defaultConfig()
	original := cfg.callTimeout
	WithCallTimeout(0)(&cfg)
	require.Equal(t, original, cfg.callTimeout)
	WithCallTimeout(-time.Second)(&cfg)
	require.Equal(t, original, cfg.callTimeout)

	WithCallTimeout(5 * time.Second)(&cfg)
	require.Equal(t, 5*time.Second, cfg.callTimeout)
}

func TestWithNodeIDOverridesRandomIdentity(t *testing.T) {
	cfg := defaultConfig()
	require.Nil(t, cfg.nodeID)

	id := identity.NewNodeIdentity()
	WithNodeID(id)(&cfg)
	require.NotNil(t, cfg.nodeID)
	require.Equal(t, id, *cfg.nodeID)
}

func TestClientForAndServerOnlyBuildDistinctModes(t *testing.T) {
	c := ClientFor("localhost:1234")
	require.False(t, c.isServer)
	require.Equal(t, "localhost:1234", c.addr)

	s := ServerOnly(":5678")
	require.True(t, s.isServer)
	require.Equal(t, ":5678", s.addr)
}
