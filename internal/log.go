package internal

import (
	. "github.com/quorumkv/quorumkv"
)

// LogTailOnly is the subset of the Log interface used by components that
// only access the non-compacted tail of the replicated log.
//
// By this we mean that they never call Log methods with an index that is
// less than lastApplied, so they never see ErrIndexCompacted.
type LogTailOnly interface {
	GetIndexOfLastEntry() (LogIndex, error)
	GetTermAtIndex(LogIndex) (TermNo, error)
	GetEntriesAfterIndex(LogIndex) ([]LogEntry, error)
	SetEntriesAfterIndex(LogIndex, []LogEntry) error
	AppendEntry(LogEntry) (LogIndex, error)
}

// LogTailOnlyRO is the read-only subset of LogTailOnly.
type LogTailOnlyRO interface {
	GetIndexOfLastEntry() (LogIndex, error)
	GetTermAtIndex(LogIndex) (TermNo, error)
	GetEntriesAfterIndex(LogIndex) ([]LogEntry, error)
}

// LogTailOnlyWO is the write-only subset of LogTailOnly.
type LogTailOnlyWO interface {
	SetEntriesAfterIndex(LogIndex, []LogEntry) error
	AppendEntry(LogEntry) (LogIndex, error)
}
