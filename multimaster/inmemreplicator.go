package multimaster

import (
	"sync"

	. "github.com/quorumkv/quorumkv"
)

// InMemReplicator is an in-process Replicator that delivers versions
// directly to registered Stores.
//
// Delivery runs on a fresh goroutine per version, mirroring the
// fire-and-forget nature of real transport. Wait() blocks until all
// deliveries so far have completed, which tests use to make outcomes
// deterministic.
type InMemReplicator struct {
	lock   sync.RWMutex
	stores map[ServerId]*Store

	inFlight sync.WaitGroup
}

// Check that InMemReplicator implements Replicator
var _ Replicator = (*InMemReplicator)(nil)

func NewInMemReplicator() *InMemReplicator {
	return &InMemReplicator{
		stores: make(map[ServerId]*Store),
	}
}

// Register adds a Store as the delivery target for its node id.
func (r *InMemReplicator) Register(store *Store) {
	r.lock.Lock()
	r.stores[store.nodeId] = store
	r.lock.Unlock()
}

func (r *InMemReplicator) ReplicateAsync(toNode ServerId, key string, version Versioned) {
	r.inFlight.Add(1)
	go func() {
		defer r.inFlight.Done()

		r.lock.RLock()
		store := r.stores[toNode]
		r.lock.RUnlock()

		// Unknown target: drop, as a real transport would.
		if store != nil {
			store.ApplyReplicated(key, version)
		}
	}()
}

// Wait blocks until all deliveries requested so far have completed.
func (r *InMemReplicator) Wait() {
	r.inFlight.Wait()
}
