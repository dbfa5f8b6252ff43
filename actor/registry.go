package actor

import (
	"fmt"
	"sync"

	"github.com/MeansAI/websocket-actor-system/identity"
	"github.com/MeansAI/websocket-actor-system/rpcerr"
)

// ResolverFunc is an optional on-demand resolution hook: given an ID with
// no locally registered actor, it may construct and return one (for
// example, rehydrating it from storage).
type ResolverFunc func(id ActorID) (ManagedActor, bool)

type regEntry struct {
	id    ActorID
	actor ManagedActor // nil while the slot is reserved but not yet ready
}

// Registry is the local actor table: ID assignment, ready/resign
// bookkeeping, and resolution, generalized from the teacher's byID/byName
// Registry onto ActorID keys and on-demand remote-callable resolution
// (SPEC_FULL.md §4.5).
type Registry struct {
	mu       sync.RWMutex
	nodeID   identity.NodeIdentity
	byID     map[string]regEntry
	resolver ResolverFunc
}

// NewRegistry creates an empty registry for the given node.
func NewRegistry(nodeID identity.NodeIdentity) *Registry {
	return &Registry{nodeID: nodeID, byID: make(map[string]regEntry)}
}

// SetResolver installs the on-demand resolution hook, replacing any
// previous one. A ResolveAny already past its initial lookup keeps using
// the hook it read there.
func (r *Registry) SetResolver(fn ResolverFunc) {
	r.mu.Lock()
	r.resolver = fn
	r.mu.Unlock()
}

// AssignID reserves and returns a fresh, node-tagged ActorID. The actor is
// not resolvable until ActorReady registers it.
func (r *Registry) AssignID() ActorID {
	id := ActorID{NodeID: &r.nodeID, ID: identity.NewLocalSuffix()}
	r.mu.Lock()
	r.byID[id.Key()] = regEntry{id: id}
	r.mu.Unlock()
	return id
}

// AssignHintedID reserves a caller-chosen ID, so it can be referenced
// before the actor starts. It panics if hint is already in use: a hint
// collision means two actors are fighting over one well-known address,
// which is a programming error, not a runtime condition to recover from.
func (r *Registry) AssignHintedID(hint string) ActorID {
	id := ActorID{NodeID: &r.nodeID, ID: hint}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[id.Key()]; exists {
		panic(fmt.Sprintf("actor: hinted id %q is already assigned", hint))
	}
	r.byID[id.Key()] = regEntry{id: id}
	return id
}

// ActorReady marks a reserved ID resolvable, backed by a.
func (r *Registry) ActorReady(id ActorID, a ManagedActor) {
	r.mu.Lock()
	r.byID[id.Key()] = regEntry{id: id, actor: a}
	r.mu.Unlock()
}

// ResignID removes id from the registry. AssignID never repeats an ID, but
// the registry keeps no record of resigned IDs: AssignHintedID accepts a
// resigned hint again, and the on-demand resolver may re-register it.
func (r *Registry) ResignID(id ActorID) {
	r.mu.Lock()
	delete(r.byID, id.Key())
	r.mu.Unlock()
}

// ResolveAny looks up id, falling through to the on-demand resolver if
// nothing is locally registered. Per SPEC_FULL.md §9, the registry lock is
// released before the resolver callback runs and re-acquired only to
// validate and commit its result, so a resolver that itself calls back
// into the registry (to assign an ID for the actor it just constructed)
// cannot deadlock against a concurrent lookup.
func (r *Registry) ResolveAny(id ActorID) (ManagedActor, error) {
	r.mu.RLock()
	e, ok := r.byID[id.Key()]
	resolver := r.resolver
	r.mu.RUnlock()

	if ok && e.actor != nil {
		return e.actor, nil
	}
	if ok || resolver == nil {
		return nil, &rpcerr.ResolveFailedError{ID: id.Key()}
	}

	found, ok := resolver(id)
	if !ok || found == nil {
		return nil, &rpcerr.ResolveFailedError{ID: id.Key()}
	}

	r.mu.Lock()
	if existing, exists := r.byID[id.Key()]; exists && existing.actor != nil {
		r.mu.Unlock()
		return existing.actor, nil
	}
	r.byID[id.Key()] = regEntry{id: id, actor: found}
	r.mu.Unlock()
	return found, nil
}

// Resolve resolves id and asserts the result implements T. It is a
// standalone function, not a method, because Go methods cannot carry
// their own type parameters.
func Resolve[T any](r *Registry, id ActorID) (T, error) {
	var zero T
	a, err := r.ResolveAny(id)
	if err != nil {
		return zero, err
	}
	t, ok := a.(T)
	if !ok {
		return zero, &rpcerr.ResolveFailedToMatchActorTypeError{
			Found:    fmt.Sprintf("%T", a),
			Expected: fmt.Sprintf("%T", zero),
		}
	}
	return t, nil
}

// Snapshot returns every currently ready actor, keyed by ActorID.Key().
func (r *Registry) Snapshot() map[string]ManagedActor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]ManagedActor, len(r.byID))
	for k, e := range r.byID {
		if e.actor != nil {
			out[k] = e.actor
		}
	}
	return out
}
