package inmemlog

import (
	"errors"
	"fmt"
	"sync"

	. "github.com/quorumkv/quorumkv"
)

// InMemoryLog is an in-memory implementation of the replicated Log.
type InMemoryLog struct {
	maxEntriesPerCall uint64

	lock    sync.RWMutex
	entries []LogEntry
}

// Check that InMemoryLog implements the Log interface
var _ Log = (*InMemoryLog)(nil)

// NewInMemoryLog creates a new empty InMemoryLog.
//
// maxEntriesPerCall is the maximum number of log entries that
// GetEntriesAfterIndex will return at a time.
func NewInMemoryLog(maxEntriesPerCall uint64) (*InMemoryLog, error) {
	if maxEntriesPerCall == 0 {
		return nil, fmt.Errorf("maxEntriesPerCall must be greater than zero")
	}
	iml := &InMemoryLog{
		maxEntriesPerCall: maxEntriesPerCall,
		entries:           []LogEntry{},
	}
	return iml, nil
}

func (iml *InMemoryLog) GetIndexOfLastEntry() (LogIndex, error) {
	iml.lock.RLock()
	defer iml.lock.RUnlock()

	return LogIndex(len(iml.entries)), nil
}

func (iml *InMemoryLog) GetTermAtIndex(li LogIndex) (TermNo, error) {
	iml.lock.RLock()
	defer iml.lock.RUnlock()

	if li == 0 {
		return 0, errors.New("GetTermAtIndex(): li=0")
	}
	if li > LogIndex(len(iml.entries)) {
		return 0, fmt.Errorf(
			"GetTermAtIndex(): li=%v > iole=%v", li, len(iml.entries),
		)
	}
	return iml.entries[li-1].TermNo, nil
}

func (iml *InMemoryLog) GetEntriesAfterIndex(afterLogIndex LogIndex) ([]LogEntry, error) {
	iml.lock.RLock()
	defer iml.lock.RUnlock()

	iole := LogIndex(len(iml.entries))
	if afterLogIndex > iole {
		return nil, fmt.Errorf(
			"GetEntriesAfterIndex(): afterLogIndex=%v > iole=%v", afterLogIndex, iole,
		)
	}

	numEntriesToGet := uint64(iole - afterLogIndex)

	// Short-circuit allocation for no entries to return
	if numEntriesToGet == 0 {
		return []LogEntry{}, nil
	}

	if numEntriesToGet > iml.maxEntriesPerCall {
		numEntriesToGet = iml.maxEntriesPerCall
	}

	logEntries := make([]LogEntry, numEntriesToGet)
	copy(logEntries, iml.entries[afterLogIndex:afterLogIndex+LogIndex(numEntriesToGet)])

	return logEntries, nil
}

func (iml *InMemoryLog) SetEntriesAfterIndex(li LogIndex, entries []LogEntry) error {
	iml.lock.Lock()
	defer iml.lock.Unlock()

	iole := LogIndex(len(iml.entries))
	if li > iole {
		return fmt.Errorf(
			"SetEntriesAfterIndex(): li=%v > iole=%v", li, iole,
		)
	}

	// delete entries after index & append new entries
	iml.entries = append(iml.entries[:li], entries...)
	return nil
}

func (iml *InMemoryLog) AppendEntry(logEntry LogEntry) (LogIndex, error) {
	iml.lock.Lock()
	defer iml.lock.Unlock()

	iml.entries = append(iml.entries, logEntry)
	return LogIndex(len(iml.entries)), nil
}
