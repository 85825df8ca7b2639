// Package partition routes keys to shards placed on a consistent hash
// ring. Each shard carries its own replication strategy; the store only
// decides which shard owns a key.
package partition

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	. "github.com/quorumkv/quorumkv"
	"github.com/quorumkv/quorumkv/hashring"
)

// Store is a partitioned key-value store. Keys map to shards via the
// ring; reads and writes are delegated to the owning shard's
// replication strategy.
type Store struct {
	logger            *zap.Logger
	replicationFactor int

	lock   sync.RWMutex
	ring   *hashring.Ring
	shards map[ServerId]Replication
}

// NewStore creates an empty partitioned store. replicationFactor sets
// the size of the replica sets reported by GetReplicaSet.
func NewStore(replicationFactor int, virtualNodes int, logger *zap.Logger) (*Store, error) {
	if replicationFactor < 1 {
		return nil, errors.Errorf("replicationFactor must be >= 1: %v", replicationFactor)
	}
	return &Store{
		logger:            logger,
		replicationFactor: replicationFactor,
		ring:              hashring.NewRing(virtualNodes),
		shards:            make(map[ServerId]Replication),
	}, nil
}

// AddShard places a shard on the ring.
func (s *Store) AddShard(shardId ServerId, repl Replication) error {
	if repl == nil {
		return errors.Errorf("nil replication strategy for shard %v", shardId)
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.shards[shardId]; ok {
		return errors.Errorf("shard already present: %v", shardId)
	}
	s.ring.AddNode(shardId)
	s.shards[shardId] = repl
	return nil
}

// NumShards returns the number of shards on the ring.
func (s *Store) NumShards() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.shards)
}

// Owner returns the shard id that owns the given key.
func (s *Store) Owner(key string) (ServerId, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.ring.GetNode(key)
}

// GetReplicaSet returns the distinct shard ids responsible for the key,
// up to the configured replication factor.
func (s *Store) GetReplicaSet(key string) ([]ServerId, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.ring.GetReplicaSet(key, s.replicationFactor)
}

// Put writes key=value through the owning shard's replication strategy.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	repl, err := s.ownerShard(key)
	if err != nil {
		return err
	}
	return repl.Write(ctx, key, value)
}

// Delete removes key through the owning shard's replication strategy.
func (s *Store) Delete(ctx context.Context, key string) error {
	repl, err := s.ownerShard(key)
	if err != nil {
		return err
	}
	return repl.Delete(ctx, key)
}

// Get reads key from the owning shard.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	repl, err := s.ownerShard(key)
	if err != nil {
		return nil, false, err
	}
	return repl.Read(ctx, key)
}

// Submit routes an opaque command to the shard owning shardKey. The
// shard must be consensus-backed.
func (s *Store) Submit(ctx context.Context, shardKey string, command Command) (CommandResult, error) {
	repl, err := s.ownerShard(shardKey)
	if err != nil {
		return nil, err
	}
	submitter, ok := repl.(Submitter)
	if !ok {
		return nil, errors.Errorf("shard for key %q does not accept commands", shardKey)
	}
	return submitter.Submit(ctx, command)
}

// SplitShard adds a new shard to the ring and migrates the keys whose
// ring owner changed. Only keys now owned by the new shard move;
// everything else stays where it was.
//
// Migration copies each moving key to the new shard and then deletes it
// from its old shard. Reads during migration are served by the current
// ring owner; there is no cross-shard transaction.
func (s *Store) SplitShard(ctx context.Context, newShardId ServerId, repl Replication) error {
	if err := s.AddShard(newShardId, repl); err != nil {
		return err
	}

	s.lock.RLock()
	donors := make(map[ServerId]Replication, len(s.shards))
	for id, r := range s.shards {
		if id != newShardId {
			donors[id] = r
		}
	}
	s.lock.RUnlock()

	moved := 0
	for donorId, donor := range donors {
		for _, key := range donor.Keys() {
			owner, err := s.Owner(key)
			if err != nil {
				return err
			}
			if owner != newShardId {
				continue
			}
			value, ok, err := donor.Read(ctx, key)
			if err != nil {
				return errors.Wrapf(err, "migrate read of %q from shard %v", key, donorId)
			}
			if !ok {
				continue
			}
			if err := repl.Write(ctx, key, value); err != nil {
				return errors.Wrapf(err, "migrate write of %q to shard %v", key, newShardId)
			}
			if err := donor.Delete(ctx, key); err != nil {
				return errors.Wrapf(err, "migrate delete of %q from shard %v", key, donorId)
			}
			moved++
		}
	}

	s.logger.Info(
		"shard split complete",
		zap.Uint64("newShardId", uint64(newShardId)),
		zap.Int("keysMoved", moved),
	)
	return nil
}

func (s *Store) ownerShard(key string) (Replication, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	ownerId, err := s.ring.GetNode(key)
	if err != nil {
		return nil, err
	}
	repl, ok := s.shards[ownerId]
	if !ok {
		return nil, errors.Errorf("no shard registered for ring owner %v", ownerId)
	}
	return repl, nil
}
