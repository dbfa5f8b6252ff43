package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExponentialBackoffDoubles(t *testing.T) {
	backoff := ExponentialBackoff(10*time.Millisecond, time.Second)
	require.Equal(t, 10*time.Millisecond, backoff(0))
	require.Equal(t, 20*time.Millisecond, backoff(1))
	require.Equal(t, 40*time.Millisecond, backoff(2))
}

func TestExponentialBackoffCaps(t *testing.T) {
	backoff := ExponentialBackoff(100*time.Millisecond, 500*time.Millisecond)
	require.Equal(t, 500*time.Millisecond, backoff(10))
}

func TestExponentialBackoffDefaults(t *testing.T) {
	backoff := ExponentialBackoff(0, 0)
	require.Equal(t, 50*time.Millisecond, backoff(0))
	require.Equal(t, 5*time.Second, backoff(100))
}
