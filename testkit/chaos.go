package testkit

import (
	"math/rand"
	"time"
)

// Chaos simulates network faults — dropped writes, added latency — around
// a test operation, for exercising reconnect and timeout paths without a
// real flaky network.
type Chaos struct {
	// DropProbability is the chance (0.0-1.0) that Apply skips fn.
	DropProbability float64
	// MaxDelay bounds a random delay applied before fn runs.
	MaxDelay time.Duration
	// Rand overrides the default time-seeded source.
	Rand *rand.Rand
}

// Apply runs fn, unless a roll of DropProbability drops it, after waiting
// up to MaxDelay. It returns whether fn ran.
func (c Chaos) Apply(fn func()) bool {
	r := c.Rand
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if c.DropProbability > 0 && r.Float64() < c.DropProbability {
		return false
	}
	if c.MaxDelay > 0 {
		time.Sleep(time.Duration(r.Int63n(int64(c.MaxDelay))))
	}
	fn()
	return true
}
