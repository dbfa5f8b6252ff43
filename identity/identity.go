package identity

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// NodeIdentity is an opaque, globally unique identifier for a process.
// It serializes to and from a UUID string on the wire.
type NodeIdentity uuid.UUID

// NewNodeIdentity returns a fresh, randomly generated node identity.
func NewNodeIdentity() NodeIdentity { return NodeIdentity(uuid.New()) }

// ParseNodeIdentity parses the string form produced by String(), used when
// a peer self-identifies over a connection's handshake parameters.
func ParseNodeIdentity(s string) (NodeIdentity, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NodeIdentity{}, err
	}
	return NodeIdentity(u), nil
}

func (n NodeIdentity) String() string { return uuid.UUID(n).String() }

// Equal reports whether two node identities carry the same bytes.
func (n NodeIdentity) Equal(other NodeIdentity) bool { return n == other }

func (n NodeIdentity) MarshalJSON() ([]byte, error) {
	return json.Marshal(uuid.UUID(n).String())
}

func (n *NodeIdentity) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	*n = NodeIdentity(u)
	return nil
}

// CallID uniquely identifies one outbound call within a node. 128 bits of
// randomness is sufficient to make collisions practically impossible.
type CallID uuid.UUID

// NewCallID returns a fresh, randomly generated call identifier.
func NewCallID() CallID { return CallID(uuid.New()) }

func (c CallID) String() string { return uuid.UUID(c).String() }

func (c CallID) MarshalJSON() ([]byte, error) {
	return json.Marshal(uuid.UUID(c).String())
}

func (c *CallID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	*c = CallID(u)
	return nil
}

// ActorID is the pair (nodeID, id) that addresses an actor, local or
// remote. id is unique within its node; equality and hashing use the full
// pair. Once assigned for a created actor it is never reused by that node.
type ActorID struct {
	NodeID *NodeIdentity
	ID     string
}

// Equal reports whether two ActorIDs address the same actor.
func (a ActorID) Equal(b ActorID) bool {
	if a.ID != b.ID {
		return false
	}
	if (a.NodeID == nil) != (b.NodeID == nil) {
		return false
	}
	if a.NodeID == nil {
		return true
	}
	return a.NodeID.Equal(*b.NodeID)
}

// Key returns a comparable value suitable for use as a map key, since
// ActorID itself holds a pointer field.
func (a ActorID) Key() string {
	if a.NodeID == nil {
		return "\x00" + a.ID
	}
	return a.NodeID.String() + "\x00" + a.ID
}

// HasNode reports whether the ID carries a node tag. A send to an ID
// without one must be rejected before a channel is even looked up.
func (a ActorID) HasNode() bool { return a.NodeID != nil }

type wireActorID struct {
	NodeID *NodeIdentity `json:"nodeID,omitempty"`
	ID     string        `json:"id"`
}

func (a ActorID) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireActorID{NodeID: a.NodeID, ID: a.ID})
}

func (a *ActorID) UnmarshalJSON(b []byte) error {
	var w wireActorID
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	a.NodeID = w.NodeID
	a.ID = w.ID
	return nil
}

// localIDCounter and localIDNode back NewLocalSuffix's time-ordered,
// per-process-unique id body, adapted from the teacher's NewActorID.
var localIDCounter atomic.Uint64

var localIDNode = func() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}()

// NewLocalSuffix generates the string body of a fresh ActorID: an 8-byte
// timestamp, an 8-byte process-local counter, and a 6-byte process
// fingerprint, hex-encoded. It is roughly time-ordered and unique within
// the process without needing the registry lock.
func NewLocalSuffix() string {
	n := localIDCounter.Add(1)
	ts := uint64(time.Now().UnixNano())
	b := make([]byte, 0, 16)
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], ts)
	b = append(b, tmp[:]...)
	binary.BigEndian.PutUint64(tmp[:], n)
	b = append(b, tmp[:]...)
	return hex.EncodeToString(b) + localIDNode
}
