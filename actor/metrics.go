package actor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"sync/atomic"
	"time"
)

// latBuckets are the reply-latency histogram bucket boundaries, kept from
// the teacher's actor/metrics.go: fine-grained under 1ms, coarser out to
// 100ms, appropriate for calls that stay on a live WebSocket connection.
var latBuckets = []time.Duration{
	10 * time.Microsecond,
	50 * time.Microsecond,
	100 * time.Microsecond,
	500 * time.Microsecond,
	1 * time.Millisecond,
	2 * time.Millisecond,
	5 * time.Millisecond,
	10 * time.Millisecond,
	20 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
}

// Metrics serves a Prometheus text-format /metrics endpoint reporting the
// pending-reply table depth, open channel count, call counters, reconnect
// count, and a reply-latency histogram. There is no Prometheus client
// library anywhere in the retrieved corpus (see DESIGN.md), so this is
// hand-rolled on net/http rather than imported.
type Metrics struct {
	system *System
	srv    *http.Server
	logger *slog.Logger

	callsStarted   atomic.Int64
	callsSucceeded atomic.Int64
	callsFailed    atomic.Int64
	reconnects     atomic.Int64

	latCounts []atomic.Uint64
	latSumNS  atomic.Uint64
}

// NewMetrics starts a /metrics endpoint on addr.
func NewMetrics(sys *System, addr string, logger *slog.Logger) *Metrics {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Metrics{system: sys, logger: logger, latCounts: make([]atomic.Uint64, len(latBuckets)+1)}
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", m.serve)
	m.srv = &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := m.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics listen failed", "addr", addr, "error", err)
		}
	}()
	return m
}

func (m *Metrics) serve(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP actor_pending_replies Outstanding calls awaiting a reply.\n")
	fmt.Fprintf(w, "# TYPE actor_pending_replies gauge\n")
	fmt.Fprintf(w, "actor_pending_replies %d\n", m.system.pending.Len())

	fmt.Fprintf(w, "# HELP actor_open_channels Currently open WebSocket channels.\n")
	fmt.Fprintf(w, "# TYPE actor_open_channels gauge\n")
	fmt.Fprintf(w, "actor_open_channels %d\n", len(m.system.manager.Channels()))

	fmt.Fprintf(w, "# HELP actor_calls_started_total RemoteCall/RemoteCallVoid invocations started.\n")
	fmt.Fprintf(w, "# TYPE actor_calls_started_total counter\n")
	fmt.Fprintf(w, "actor_calls_started_total %d\n", m.callsStarted.Load())

	fmt.Fprintf(w, "# HELP actor_calls_succeeded_total RemoteCall/RemoteCallVoid invocations that received a reply.\n")
	fmt.Fprintf(w, "# TYPE actor_calls_succeeded_total counter\n")
	fmt.Fprintf(w, "actor_calls_succeeded_total %d\n", m.callsSucceeded.Load())

	fmt.Fprintf(w, "# HELP actor_calls_failed_total RemoteCall/RemoteCallVoid invocations that errored or timed out.\n")
	fmt.Fprintf(w, "# TYPE actor_calls_failed_total counter\n")
	fmt.Fprintf(w, "actor_calls_failed_total %d\n", m.callsFailed.Load())

	fmt.Fprintf(w, "# HELP actor_reconnects_total Client manager channels re-established after the first.\n")
	fmt.Fprintf(w, "# TYPE actor_reconnects_total counter\n")
	fmt.Fprintf(w, "actor_reconnects_total %d\n", m.reconnects.Load())

	fmt.Fprintf(w, "# HELP actor_call_latency_seconds Time from a RemoteCall/RemoteCallVoid dispatch to its reply.\n")
	fmt.Fprintf(w, "# TYPE actor_call_latency_seconds histogram\n")
	var cum uint64
	for i, b := range latBuckets {
		cum += m.latCounts[i].Load()
		fmt.Fprintf(w, "actor_call_latency_seconds_bucket{le=\"%s\"} %d\n", strconv.FormatFloat(b.Seconds(), 'f', -1, 64), cum)
	}
	cum += m.latCounts[len(latBuckets)].Load()
	fmt.Fprintf(w, "actor_call_latency_seconds_bucket{le=\"+Inf\"} %d\n", cum)
	fmt.Fprintf(w, "actor_call_latency_seconds_sum %g\n", float64(m.latSumNS.Load())/1e9)
	fmt.Fprintf(w, "actor_call_latency_seconds_count %d\n", cum)
}

// IncCallStarted records a RemoteCall/RemoteCallVoid invocation beginning.
func (m *Metrics) IncCallStarted() { m.callsStarted.Add(1) }

// IncCallResult records a RemoteCall/RemoteCallVoid invocation's outcome.
func (m *Metrics) IncCallResult(err error) {
	if err != nil {
		m.callsFailed.Add(1)
		return
	}
	m.callsSucceeded.Add(1)
}

// IncReconnect records a client manager reconnect: a channel re-established
// after the first one.
func (m *Metrics) IncReconnect() { m.reconnects.Add(1) }

// ObserveLatency records how long a RemoteCall/RemoteCallVoid took from
// dispatch to reply. The clock starts after circuit-breaker and
// rate-limiter gating, so time spent waiting on either is not included.
func (m *Metrics) ObserveLatency(d time.Duration) {
	if d < 0 {
		return
	}
	m.latSumNS.Add(uint64(d.Nanoseconds()))
	i := sort.Search(len(latBuckets), func(i int) bool { return d <= latBuckets[i] })
	m.latCounts[i].Add(1)
}

// Close shuts down the metrics listener.
func (m *Metrics) Close() {
	_ = m.srv.Shutdown(context.Background())
}
