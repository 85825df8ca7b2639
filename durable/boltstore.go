// Package durable persists consensus state with bbolt.
//
// A BoltStore implements both PersistentState and Log on a single bbolt
// database file. Every mutating call commits a bbolt transaction - an
// fsync - before returning, so the consensus core's "persist before
// replying" requirement holds: a vote or an append acknowledged over the
// wire is already durable.
package durable

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	. "github.com/quorumkv/quorumkv"
)

var (
	metaBucket = []byte("meta")
	logBucket  = []byte("log")

	currentTermKey = []byte("currentTerm")
	votedForKey    = []byte("votedFor")
)

// entryRecord is the stored form of a LogEntry.
type entryRecord struct {
	Term    TermNo  `json:"term"`
	Command Command `json:"command"`
}

// BoltStore is a bbolt-backed PersistentState and Log.
type BoltStore struct {
	maxEntriesPerCall uint64

	lock sync.RWMutex
	db   *bolt.DB

	// cached from the db; the db is the source of truth
	currentTerm      TermNo
	votedFor         ServerId
	indexOfLastEntry LogIndex
}

var _ PersistentState = (*BoltStore)(nil)
var _ Log = (*BoltStore)(nil)

// OpenBoltStore opens (creating if absent) the database at the given path
// and loads the persisted state.
func OpenBoltStore(path string, maxEntriesPerCall uint64) (*BoltStore, error) {
	if maxEntriesPerCall == 0 {
		return nil, errors.New("maxEntriesPerCall must be greater than zero")
	}
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "opening bolt database %s", path)
	}

	s := &BoltStore{
		maxEntriesPerCall: maxEntriesPerCall,
		db:                db,
	}

	err = db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return err
		}
		logb, err := tx.CreateBucketIfNotExists(logBucket)
		if err != nil {
			return err
		}

		if v := meta.Get(currentTermKey); v != nil {
			s.currentTerm = TermNo(binary.BigEndian.Uint64(v))
		}
		if v := meta.Get(votedForKey); v != nil {
			s.votedFor = ServerId(binary.BigEndian.Uint64(v))
		}

		// last key in the log bucket is the index of the last entry
		c := logb.Cursor()
		if k, _ := c.Last(); k != nil {
			s.indexOfLastEntry = LogIndex(binary.BigEndian.Uint64(k))
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "loading persisted state")
	}

	return s, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// ---- PersistentState

func (s *BoltStore) GetCurrentTerm() TermNo {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.currentTerm
}

func (s *BoltStore) GetVotedFor() ServerId {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.votedFor
}

func (s *BoltStore) SetCurrentTerm(currentTerm TermNo) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if currentTerm == 0 {
		return errors.New("FATAL: attempt to set currentTerm to 0")
	}
	if currentTerm < s.currentTerm {
		return fmt.Errorf(
			"FATAL: attempt to decrease currentTerm: %v to %v", s.currentTerm, currentTerm,
		)
	}

	votedFor := s.votedFor
	if currentTerm > s.currentTerm {
		// votedFor is per-term state
		votedFor = 0
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(metaBucket)
		if err := meta.Put(currentTermKey, u64b(uint64(currentTerm))); err != nil {
			return err
		}
		return meta.Put(votedForKey, u64b(uint64(votedFor)))
	})
	if err != nil {
		return errors.Wrap(err, "persisting currentTerm")
	}

	s.currentTerm = currentTerm
	s.votedFor = votedFor
	return nil
}

func (s *BoltStore) SetVotedFor(votedFor ServerId) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.currentTerm == 0 {
		return errors.New("FATAL: attempt to set votedFor while currentTerm is 0")
	}
	if votedFor == 0 {
		return errors.New("FATAL: attempt to set votedFor to 0")
	}
	if s.votedFor != 0 {
		return fmt.Errorf(
			"FATAL: attempt to change non-zero votedFor: %v to %v", s.votedFor, votedFor,
		)
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(metaBucket).Put(votedForKey, u64b(uint64(votedFor)))
	})
	if err != nil {
		return errors.Wrap(err, "persisting votedFor")
	}

	s.votedFor = votedFor
	return nil
}

// ---- Log

func (s *BoltStore) GetIndexOfLastEntry() (LogIndex, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.indexOfLastEntry, nil
}

func (s *BoltStore) GetTermAtIndex(li LogIndex) (TermNo, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	entry, err := s.getEntry(li)
	if err != nil {
		return 0, err
	}
	return entry.TermNo, nil
}

func (s *BoltStore) GetEntriesAfterIndex(afterLogIndex LogIndex) ([]LogEntry, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if afterLogIndex > s.indexOfLastEntry {
		return nil, fmt.Errorf(
			"GetEntriesAfterIndex(): afterLogIndex=%v > iole=%v",
			afterLogIndex,
			s.indexOfLastEntry,
		)
	}

	numEntriesToGet := uint64(s.indexOfLastEntry - afterLogIndex)
	if numEntriesToGet == 0 {
		return []LogEntry{}, nil
	}
	if numEntriesToGet > s.maxEntriesPerCall {
		numEntriesToGet = s.maxEntriesPerCall
	}

	logEntries := make([]LogEntry, 0, numEntriesToGet)
	err := s.db.View(func(tx *bolt.Tx) error {
		logb := tx.Bucket(logBucket)
		for i := uint64(0); i < numEntriesToGet; i++ {
			li := afterLogIndex + 1 + LogIndex(i)
			v := logb.Get(u64b(uint64(li)))
			if v == nil {
				return fmt.Errorf("missing log entry at index %v", li)
			}
			var rec entryRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			logEntries = append(logEntries, LogEntry{TermNo: rec.Term, Command: rec.Command})
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "reading log entries")
	}

	return logEntries, nil
}

func (s *BoltStore) SetEntriesAfterIndex(li LogIndex, entries []LogEntry) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if li > s.indexOfLastEntry {
		return fmt.Errorf(
			"SetEntriesAfterIndex(): li=%v > iole=%v", li, s.indexOfLastEntry,
		)
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		logb := tx.Bucket(logBucket)
		// delete entries after index
		for i := li + 1; i <= s.indexOfLastEntry; i++ {
			if err := logb.Delete(u64b(uint64(i))); err != nil {
				return err
			}
		}
		// append new entries
		for j, entry := range entries {
			if err := putEntry(logb, li+1+LogIndex(j), entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "persisting log entries")
	}

	s.indexOfLastEntry = li + LogIndex(len(entries))
	return nil
}

func (s *BoltStore) AppendEntry(logEntry LogEntry) (LogIndex, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	newIndex := s.indexOfLastEntry + 1
	err := s.db.Update(func(tx *bolt.Tx) error {
		return putEntry(tx.Bucket(logBucket), newIndex, logEntry)
	})
	if err != nil {
		return 0, errors.Wrap(err, "persisting log entry")
	}

	s.indexOfLastEntry = newIndex
	return newIndex, nil
}

// ----

// getEntry reads one entry. Caller must hold the lock.
func (s *BoltStore) getEntry(li LogIndex) (LogEntry, error) {
	if li == 0 {
		return LogEntry{}, errors.New("getEntry(): li=0")
	}
	if li > s.indexOfLastEntry {
		return LogEntry{}, fmt.Errorf(
			"getEntry(): li=%v > iole=%v", li, s.indexOfLastEntry,
		)
	}

	var entry LogEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(logBucket).Get(u64b(uint64(li)))
		if v == nil {
			return fmt.Errorf("missing log entry at index %v", li)
		}
		var rec entryRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return err
		}
		entry = LogEntry{TermNo: rec.Term, Command: rec.Command}
		return nil
	})
	if err != nil {
		return LogEntry{}, errors.Wrap(err, "reading log entry")
	}
	return entry, nil
}

func putEntry(logb *bolt.Bucket, li LogIndex, entry LogEntry) error {
	b, err := json.Marshal(entryRecord{entry.TermNo, entry.Command})
	if err != nil {
		return err
	}
	return logb.Put(u64b(uint64(li)), b)
}

// u64b encodes a uint64 as big-endian so bbolt's byte-ordered keys sort
// numerically.
func u64b(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
