// Package kvstore provides a key-value StateMachine for the consensus
// core.
//
// Commands are JSON-encoded Cmd values. The wire encoding is internal to
// this package: callers build commands with EncodeSet / EncodeDelete.
package kvstore

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	. "github.com/quorumkv/quorumkv"
)

// Cmd operation types.
const (
	OpSet    = "set"
	OpDelete = "delete"
)

// Cmd is the decoded form of a state machine command.
type Cmd struct {
	Op    string `json:"op"`
	Key   string `json:"key"`
	Value []byte `json:"value,omitempty"`
}

// EncodeSet builds a command that sets key to value.
func EncodeSet(key string, value []byte) (Command, error) {
	return encode(Cmd{Op: OpSet, Key: key, Value: value})
}

// EncodeDelete builds a command that deletes key.
func EncodeDelete(key string) (Command, error) {
	return encode(Cmd{Op: OpDelete, Key: key})
}

func encode(c Cmd) (Command, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "encoding command")
	}
	return Command(b), nil
}

// KVStore is an in-memory key-value state machine.
//
// ApplyCommand is only ever called from a single goroutine (the
// committer's); the lock protects concurrent readers.
type KVStore struct {
	lock        sync.RWMutex
	data        map[string][]byte
	lastApplied LogIndex
}

// Check that KVStore implements StateMachine
var _ StateMachine = (*KVStore)(nil)

func NewKVStore() *KVStore {
	return &KVStore{
		data: make(map[string][]byte),
	}
}

func (s *KVStore) GetLastApplied() LogIndex {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.lastApplied
}

// ApplyCommand applies the command at the given log index.
//
// The returned CommandResult is the error from decoding, or nil on
// success. A malformed command advances lastApplied like any other entry:
// the log position is consumed either way.
func (s *KVStore) ApplyCommand(logIndex LogIndex, command Command) CommandResult {
	s.lock.Lock()
	defer s.lock.Unlock()

	var result CommandResult

	var c Cmd
	if err := json.Unmarshal(command, &c); err != nil {
		result = errors.Wrap(err, "decoding command")
	} else {
		switch c.Op {
		case OpSet:
			s.data[c.Key] = c.Value
		case OpDelete:
			delete(s.data, c.Key)
		default:
			result = errors.Errorf("unknown command op: %q", c.Op)
		}
	}

	s.lastApplied = logIndex
	return result
}

// Get returns the value for the given key.
func (s *KVStore) Get(key string) ([]byte, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Len returns the number of keys.
func (s *KVStore) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.data)
}

// Keys returns a snapshot of the current keys.
func (s *KVStore) Keys() []string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}
