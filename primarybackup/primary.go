// Package primarybackup implements fixed-primary replication: a primary
// applies writes locally and replicates them synchronously to N backups,
// reporting success once a strict majority of the group acknowledges.
//
// There is no automatic failure detector: promoting a backup after a
// primary failure is a manual/triggered operation invoked by an external
// supervisor (see Promote).
package primarybackup

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	. "github.com/quorumkv/quorumkv"
)

// Primary is the primary replica of a primary-backup group.
type Primary struct {
	logger  *zap.Logger
	backups []ReplicaClient

	lock    sync.Mutex
	data    map[string][]byte
	seqNum  SeqNum
	history []Operation
}

// NewPrimary creates a Primary replicating to the given backups.
func NewPrimary(backups []ReplicaClient, logger *zap.Logger) *Primary {
	return &Primary{
		logger:  logger,
		backups: backups,
		data:    make(map[string][]byte),
	}
}

// Promote converts a backup into the primary of a fresh group, copying
// its current state and resuming its sequence numbering. The new group's
// backups are given by the caller; the old primary must not accept
// further writes.
func Promote(b *Backup, backups []ReplicaClient, logger *zap.Logger) *Primary {
	data, lastApplied := b.snapshot()
	return &Primary{
		logger:  logger,
		backups: backups,
		data:    data,
		seqNum:  lastApplied,
	}
}

// Set writes key=value through the group.
// See Write for the commit rule.
func (p *Primary) Set(ctx context.Context, key string, value []byte) error {
	return p.Write(ctx, Operation{Type: OpSet, Key: key, Value: value})
}

// Delete removes key through the group.
// See Write for the commit rule.
func (p *Primary) Delete(ctx context.Context, key string) error {
	return p.Write(ctx, Operation{Type: OpDelete, Key: key})
}

// Write assigns the next sequence number to the operation, applies it to
// the primary's own map immediately (optimistic local apply), then
// replicates it to all backups in parallel and waits for acknowledgments.
//
// Commit rule: the write is durable once acknowledged by a strict
// majority of the full group - primary plus backups, counting the primary
// as one. If the majority is not reached within the context's deadline,
// ErrReplicationQuorumFailed is returned and the write must not be
// reported as durably succeeded.
//
// Caveat: the optimistic local apply is not rolled back on quorum
// failure. The entry stays in the history and is replayed by
// reconciliation on a later write.
func (p *Primary) Write(ctx context.Context, op Operation) error {
	p.lock.Lock()
	p.seqNum++
	op.SeqNum = p.seqNum
	apply(p.data, op)
	p.history = append(p.history, op)
	p.lock.Unlock()

	// Primary's own apply counts as one acknowledgment.
	var acks atomic.Uint32
	acks.Add(1)

	var g errgroup.Group
	for _, backup := range p.backups {
		backup := backup
		g.Go(func() error {
			if err := p.replicateTo(ctx, backup, op); err != nil {
				p.logger.Warn(
					"backup replication failed",
					zap.Uint64("seqNum", uint64(op.SeqNum)),
					zap.Error(err),
				)
				return nil // a failed backup must not cancel the others
			}
			acks.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	quorum := uint32(len(p.backups)+1)/2 + 1
	if acks.Load() < quorum {
		return errors.Wrapf(
			ErrReplicationQuorumFailed,
			"seqNum=%d acks=%d quorum=%d", op.SeqNum, acks.Load(), quorum,
		)
	}
	return nil
}

// replicateTo sends the operation to one backup, reconciling a lagging
// backup by resending the missing operations in order.
func (p *Primary) replicateTo(ctx context.Context, backup ReplicaClient, op Operation) error {
	err := backup.Replicate(ctx, op)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrSequenceGap) {
		return err
	}

	// Find out how far along the backup is.
	lastApplied, err := backup.LastApplied(ctx)
	if err != nil {
		return err
	}

	// A delayed or duplicate delivery also reports a gap: the backup has
	// already applied this operation through an earlier reconciliation.
	if op.SeqNum <= lastApplied {
		return nil
	}

	// The backup is behind: resend the missing operations in order.
	for _, missing := range p.operationsAfter(lastApplied, op.SeqNum) {
		if err := backup.Replicate(ctx, missing); err != nil {
			return err
		}
	}
	return nil
}

// operationsAfter returns the recorded operations with
// after < SeqNum <= upTo, in order.
func (p *Primary) operationsAfter(after SeqNum, upTo SeqNum) []Operation {
	if after >= upTo {
		return nil
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	ops := make([]Operation, 0, upTo-after)
	for _, op := range p.history {
		if op.SeqNum > after && op.SeqNum <= upTo {
			ops = append(ops, op)
		}
	}
	return ops
}

// Get returns the value for the given key from the primary's map.
func (p *Primary) Get(key string) ([]byte, bool) {
	p.lock.Lock()
	defer p.lock.Unlock()
	v, ok := p.data[key]
	return v, ok
}

// Keys returns a snapshot of the keys currently present at the primary.
func (p *Primary) Keys() []string {
	p.lock.Lock()
	defer p.lock.Unlock()
	keys := make([]string, 0, len(p.data))
	for k := range p.data {
		keys = append(keys, k)
	}
	return keys
}

// LastSeqNum returns the sequence number of the last assigned operation.
func (p *Primary) LastSeqNum() SeqNum {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.seqNum
}
