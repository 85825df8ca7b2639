package primarybackup

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	. "github.com/quorumkv/quorumkv"
)

// ReplicaClient is the primary's handle to one backup. A real deployment
// implements this over the network; a Backup implements it directly for
// in-process groups and tests.
type ReplicaClient interface {
	// Replicate applies one operation on the backup.
	// Returns ErrSequenceGap if the operation is out of order.
	Replicate(ctx context.Context, op Operation) error

	// LastApplied returns the backup's lastApplied sequence number.
	LastApplied(ctx context.Context) (SeqNum, error)
}

// Backup is one backup replica of a primary-backup group.
//
// Operations must arrive in strict sequence order. An operation whose
// SeqNum is not exactly lastApplied+1 is rejected with ErrSequenceGap and
// leaves the state unchanged - gaps are never buffered. This forces the
// primary's reconciliation to resend missing operations in order,
// preserving total-order application.
type Backup struct {
	lock        sync.RWMutex
	data        map[string][]byte
	lastApplied SeqNum
}

var _ ReplicaClient = (*Backup)(nil)

func NewBackup() *Backup {
	return &Backup{
		data: make(map[string][]byte),
	}
}

func (b *Backup) Replicate(_ context.Context, op Operation) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	if op.SeqNum != b.lastApplied+1 {
		return errors.Wrapf(
			ErrSequenceGap,
			"got seqNum=%d, lastApplied=%d", op.SeqNum, b.lastApplied,
		)
	}

	apply(b.data, op)
	b.lastApplied = op.SeqNum
	return nil
}

func (b *Backup) LastApplied(_ context.Context) (SeqNum, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.lastApplied, nil
}

// Get returns the value for the given key.
func (b *Backup) Get(key string) ([]byte, bool) {
	b.lock.RLock()
	defer b.lock.RUnlock()
	v, ok := b.data[key]
	return v, ok
}

// Len returns the number of keys.
func (b *Backup) Len() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return len(b.data)
}

// snapshot copies the backup's state for promotion.
func (b *Backup) snapshot() (map[string][]byte, SeqNum) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	data := make(map[string][]byte, len(b.data))
	for k, v := range b.data {
		data[k] = v
	}
	return data, b.lastApplied
}

func apply(data map[string][]byte, op Operation) {
	switch op.Type {
	case OpSet:
		data[op.Key] = op.Value
	case OpDelete:
		delete(data, op.Key)
	}
}
