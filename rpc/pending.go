package rpc

import (
	"log/slog"
	"sync"

	"github.com/MeansAI/websocket-actor-system/identity"
	"github.com/MeansAI/websocket-actor-system/rpcerr"
)

// PendingTable is the CallID → TimedContinuation map every outstanding
// call registers into before its Call envelope is written, and every
// inbound Reply consults to find who is waiting. One table per System.
type PendingTable struct {
	mu     sync.Mutex
	byID   map[identity.CallID]*TimedContinuation
	byChan map[any]map[identity.CallID]struct{}
	logger *slog.Logger
}

// NewPendingTable creates an empty table.
func NewPendingTable(logger *slog.Logger) *PendingTable {
	if logger == nil {
		logger = slog.Default()
	}
	return &PendingTable{
		byID:   make(map[identity.CallID]*TimedContinuation),
		byChan: make(map[any]map[identity.CallID]struct{}),
		logger: logger,
	}
}

// Register creates and tracks a continuation for callID, associated with
// owner (the channel the call was sent on, for FailAll bookkeeping). owner
// is typically a *manager.Channel; PendingTable never dereferences it,
// only compares it as a map key, avoiding an import of the manager
// package.
func (p *PendingTable) Register(callID identity.CallID, owner any) *TimedContinuation {
	tc := NewTimedContinuation()
	p.mu.Lock()
	p.byID[callID] = tc
	if p.byChan[owner] == nil {
		p.byChan[owner] = make(map[identity.CallID]struct{})
	}
	p.byChan[owner][callID] = struct{}{}
	p.mu.Unlock()
	return tc
}

// Forget removes callID's continuation once its caller stops waiting,
// whether it fired successfully or timed out.
func (p *PendingTable) Forget(callID identity.CallID, owner any) {
	p.mu.Lock()
	delete(p.byID, callID)
	if set, ok := p.byChan[owner]; ok {
		delete(set, callID)
		if len(set) == 0 {
			delete(p.byChan, owner)
		}
	}
	p.mu.Unlock()
}

// Resolve delivers value to callID's continuation, if one exists. A miss
// means a reply arrived after Forget already ran it off the table (a late
// reply past its timeout) and is logged, not treated as an error.
func (p *PendingTable) Resolve(callID identity.CallID, value []byte) {
	p.mu.Lock()
	tc, ok := p.byID[callID]
	p.mu.Unlock()
	if !ok {
		p.logger.Debug("reply for unknown call", "callID", callID.String(), "error", rpcerr.MissingReplyContinuation)
		return
	}
	tc.Deliver(value)
}

// FailAll fires every continuation still pending on owner with err. Called
// when the channel a set of outstanding calls was sent on closes
// (SPEC_FULL.md §4.4).
func (p *PendingTable) FailAll(owner any, err error) {
	p.mu.Lock()
	set := p.byChan[owner]
	delete(p.byChan, owner)
	ids := make([]identity.CallID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	tcs := make([]*TimedContinuation, 0, len(ids))
	for _, id := range ids {
		if tc, ok := p.byID[id]; ok {
			tcs = append(tcs, tc)
			delete(p.byID, id)
		}
	}
	p.mu.Unlock()
	for _, tc := range tcs {
		tc.Fail(err)
	}
}

// Len reports the number of currently outstanding calls, for metrics.
func (p *PendingTable) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byID)
}
