// Package multimaster implements a multi-writer key-value store that
// detects and surfaces conflicting concurrent writes with vector clocks.
//
// Every node accepts writes. A local write supersedes every version the
// node has seen so far; replication between nodes is asynchronous
// fire-and-forget. When replicas receive versions with concurrent clocks,
// both are retained as siblings - this is expected, not an error - and the
// reader resolves the conflict.
package multimaster

import (
	"sync"

	"go.uber.org/zap"

	. "github.com/quorumkv/quorumkv"
	"github.com/quorumkv/quorumkv/vclock"
)

// Versioned is a value tagged with the vector clock of the write that
// produced it.
type Versioned struct {
	Value []byte
	Clock vclock.VectorClock
}

// Replicator ships a version to a peer asynchronously.
// Implementations must not block the caller; delivery is best-effort.
type Replicator interface {
	ReplicateAsync(toNode ServerId, key string, version Versioned)
}

// Store is one node of a multi-master replication group.
type Store struct {
	nodeId     ServerId
	peers      []ServerId
	replicator Replicator
	logger     *zap.Logger

	lock sync.RWMutex
	data map[string][]Versioned
}

func NewStore(
	nodeId ServerId,
	peers []ServerId,
	replicator Replicator,
	logger *zap.Logger,
) *Store {
	return &Store{
		nodeId:     nodeId,
		peers:      peers,
		replicator: replicator,
		logger:     logger,
		data:       make(map[string][]Versioned),
	}
}

// Put writes a value at this node.
//
// The new version's clock is the element-wise maximum of the clocks of
// all currently stored versions for the key, with this node's own counter
// incremented. By construction it strictly dominates each prior local
// version, so the new version replaces all of them locally. The version
// is then replicated to peers asynchronously.
func (s *Store) Put(key string, value []byte) {
	s.lock.Lock()

	clock := vclock.New()
	for _, v := range s.data[key] {
		clock.Merge(v.Clock)
	}
	clock.Increment(s.nodeId)

	version := Versioned{Value: value, Clock: clock}
	s.data[key] = []Versioned{version}

	s.lock.Unlock()

	for _, peer := range s.peers {
		s.replicator.ReplicateAsync(peer, key, version)
	}
}

// ApplyReplicated merges a version received from a peer:
//   - any local version that happens-before the incoming one is dropped;
//   - if any local version happens-after (or equals) the incoming one,
//     the incoming version is stale and discarded entirely;
//   - otherwise the versions are concurrent and both are retained.
func (s *Store) ApplyReplicated(key string, incoming Versioned) {
	s.lock.Lock()
	defer s.lock.Unlock()

	retained := make([]Versioned, 0, len(s.data[key])+1)
	for _, local := range s.data[key] {
		switch incoming.Clock.Compare(local.Clock) {
		case vclock.After:
			// local happens-before incoming: superseded, drop it
		case vclock.Before, vclock.Equal:
			// incoming is stale: discard it, keep everything as-is
			return
		case vclock.Concurrent:
			retained = append(retained, local)
		}
	}

	if len(retained) < len(s.data[key]) {
		s.logger.Debug(
			"replicated version superseded local versions",
			zap.String("key", key),
			zap.Int("dropped", len(s.data[key])-len(retained)),
		)
	}

	s.data[key] = append(retained, incoming)
}

// Get returns all currently-retained concurrent versions for the key.
// Multiple versions mean concurrent conflicting writes that the caller
// must resolve.
func (s *Store) Get(key string) []Versioned {
	s.lock.RLock()
	defer s.lock.RUnlock()

	versions := s.data[key]
	out := make([]Versioned, len(versions))
	copy(out, versions)
	return out
}

// Resolve picks one version for the key deterministically: the version
// with the highest per-node counter, ties broken by the highest owning
// node id. This is a default policy, not a correctness requirement;
// applications with real conflict semantics should use Get.
func (s *Store) Resolve(key string) (Versioned, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	versions := s.data[key]
	if len(versions) == 0 {
		return Versioned{}, false
	}

	best := versions[0]
	bestCount, bestNode := maxCounter(best.Clock)
	for _, v := range versions[1:] {
		count, node := maxCounter(v.Clock)
		if count > bestCount || (count == bestCount && node > bestNode) {
			best, bestCount, bestNode = v, count, node
		}
	}
	return best, true
}

func maxCounter(clock vclock.VectorClock) (uint64, ServerId) {
	var maxN uint64
	var maxId ServerId
	for id, n := range clock {
		if n > maxN || (n == maxN && id > maxId) {
			maxN, maxId = n, id
		}
	}
	return maxN, maxId
}
