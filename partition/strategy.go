package partition

import (
	"context"

	"github.com/pkg/errors"

	. "github.com/quorumkv/quorumkv"
	"github.com/quorumkv/quorumkv/kvstore"
	"github.com/quorumkv/quorumkv/node"
	"github.com/quorumkv/quorumkv/primarybackup"
)

// Replication is a shard's replication strategy: the component that makes
// a write durable across the shard's replica set before reporting
// success.
type Replication interface {
	// Write replicates key=value, returning once the strategy's commit
	// rule is satisfied or the context's deadline expires.
	Write(ctx context.Context, key string, value []byte) error

	// Delete replicates removal of key.
	Delete(ctx context.Context, key string) error

	// Read returns the value for key from this shard.
	Read(ctx context.Context, key string) ([]byte, bool, error)

	// Keys returns a snapshot of the shard's current keys.
	// Used by shard migration.
	Keys() []string
}

// Submitter is implemented by strategies that accept opaque commands
// (consensus-backed shards).
type Submitter interface {
	Submit(ctx context.Context, command Command) (CommandResult, error)
}

// ---- primary-backup strategy

// PrimaryBackupShard adapts a primarybackup group as a shard strategy.
type PrimaryBackupShard struct {
	primary *primarybackup.Primary
}

var _ Replication = (*PrimaryBackupShard)(nil)

func NewPrimaryBackupShard(primary *primarybackup.Primary) *PrimaryBackupShard {
	return &PrimaryBackupShard{primary: primary}
}

func (s *PrimaryBackupShard) Write(ctx context.Context, key string, value []byte) error {
	return s.primary.Set(ctx, key, value)
}

func (s *PrimaryBackupShard) Delete(ctx context.Context, key string) error {
	return s.primary.Delete(ctx, key)
}

func (s *PrimaryBackupShard) Read(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.primary.Get(key)
	return v, ok, nil
}

func (s *PrimaryBackupShard) Keys() []string {
	return s.primary.Keys()
}

// ---- consensus strategy

// ConsensusShard adapts a consensus node plus its key-value state machine
// as a shard strategy. Writes go through the replicated log; reads are
// served from the local state machine.
type ConsensusShard struct {
	cm *node.ConsensusModule
	kv *kvstore.KVStore
}

var _ Replication = (*ConsensusShard)(nil)
var _ Submitter = (*ConsensusShard)(nil)

func NewConsensusShard(cm *node.ConsensusModule, kv *kvstore.KVStore) *ConsensusShard {
	return &ConsensusShard{cm: cm, kv: kv}
}

func (s *ConsensusShard) Write(ctx context.Context, key string, value []byte) error {
	command, err := kvstore.EncodeSet(key, value)
	if err != nil {
		return err
	}
	return s.submitAndCheck(ctx, command)
}

func (s *ConsensusShard) Delete(ctx context.Context, key string) error {
	command, err := kvstore.EncodeDelete(key)
	if err != nil {
		return err
	}
	return s.submitAndCheck(ctx, command)
}

// Read serves from the local state machine. It reflects entries applied
// at this node so far; a linearizable read surface is out of scope here.
func (s *ConsensusShard) Read(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.kv.Get(key)
	return v, ok, nil
}

func (s *ConsensusShard) Keys() []string {
	return s.kv.Keys()
}

func (s *ConsensusShard) Submit(ctx context.Context, command Command) (CommandResult, error) {
	return s.cm.Submit(ctx, command)
}

func (s *ConsensusShard) submitAndCheck(ctx context.Context, command Command) error {
	result, err := s.cm.Submit(ctx, command)
	if err != nil {
		if errors.Is(err, ErrNotLeader) {
			// The caller routed to a shard whose local node is not the
			// leader - e.g. mid-election. The caller decides whether to
			// retry elsewhere.
			return errors.Wrap(ErrNoLeaderAvailable, err.Error())
		}
		return err
	}
	if resultErr, ok := result.(error); ok && resultErr != nil {
		return resultErr
	}
	return nil
}
