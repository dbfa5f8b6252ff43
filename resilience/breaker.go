// Package resilience holds the call-shaping primitives layered on top of
// the core RPC path: a per-destination circuit breaker and a token-bucket
// rate limiter, both generalized from the teacher's actor/breaker.go and
// actor/ratelimit.go.
package resilience

import (
	"sync/atomic"
	"time"
)

type breakerState uint32

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// Breaker is a failure-count circuit breaker. It gates RemoteCall/
// RemoteCallVoid per destination actor: too many consecutive failures
// opens it, and it takes one successful probe after the cool-down to
// close again.
//
// State transitions: closed -> open on threshold failures; open ->
// half-open after openFor elapses; half-open -> closed on probe success;
// half-open -> open on probe failure.
type Breaker struct {
	failures      atomic.Uint64
	state         atomic.Uint32
	openedAtUnix  atomic.Int64
	halfOpenProbe atomic.Bool

	threshold uint64
	openFor   time.Duration
}

// NewBreaker creates a breaker with the given failure threshold and
// open-state duration. Zero values fall back to threshold=50, openFor=30s.
func NewBreaker(threshold uint64, openFor time.Duration) *Breaker {
	if threshold == 0 {
		threshold = 50
	}
	if openFor == 0 {
		openFor = 30 * time.Second
	}
	b := &Breaker{threshold: threshold, openFor: openFor}
	b.state.Store(uint32(breakerClosed))
	return b
}

// Allow reports whether a call may proceed at time now.
func (b *Breaker) Allow(now time.Time) bool {
	st := breakerState(b.state.Load())
	switch st {
	case breakerClosed:
		return true
	case breakerOpen:
		opened := time.Unix(0, b.openedAtUnix.Load())
		if now.Sub(opened) >= b.openFor {
			if b.state.CompareAndSwap(uint32(breakerOpen), uint32(breakerHalfOpen)) {
				b.halfOpenProbe.Store(false)
			}
			st = breakerHalfOpen
		} else {
			return false
		}
		fallthrough
	case breakerHalfOpen:
		return b.halfOpenProbe.CompareAndSwap(false, true)
	default:
		return false
	}
}

// OnSuccess records a success, closing the breaker.
func (b *Breaker) OnSuccess() {
	b.failures.Store(0)
	b.state.Store(uint32(breakerClosed))
	b.halfOpenProbe.Store(false)
}

// OnFailure records a failure. In half-open state a single failure
// reopens the breaker immediately.
func (b *Breaker) OnFailure(now time.Time) {
	if breakerState(b.state.Load()) == breakerHalfOpen {
		b.open(now)
		return
	}
	if b.failures.Add(1) >= b.threshold {
		b.open(now)
	}
}

func (b *Breaker) open(now time.Time) {
	b.openedAtUnix.Store(now.UnixNano())
	b.state.Store(uint32(breakerOpen))
	b.halfOpenProbe.Store(false)
}
