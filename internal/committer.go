package internal

import (
	"github.com/quorumkv/quorumkv"
)

// ICommitter is the internal interface that the consensus core uses to
// delegate the work of applying committed log entries to the state machine
// and notifying clients that are waiting for those entries to be committed.
//
// Concurrency: the consensus core only ever makes one call to this
// interface at a time.
type ICommitter interface {
	// Register a listener for a future commit at the given log index.
	//
	// When the command at the given log index is later committed and
	// applied to the state machine, the value returned by the state
	// machine is sent on this channel.
	//
	// A call to RemoveListenersAfterIndex that covers this index closes
	// the channel instead.
	//
	// The log index must be greater than both commitIndex and the
	// current highestRegisteredIndex, and must not be past the log's
	// indexOfLastEntry: an entry is expected to be appended to the log
	// before a listener is registered for its index.
	RegisterListener(logIndex quorumkv.LogIndex) (<-chan quorumkv.CommandResult, error)

	// Remove and close existing listeners for all log indexes after the
	// given log index.
	//
	// The intent of this method is to handle the case where a node loses
	// leadership and the new leader replaces the log entries after the
	// given log index.
	RemoveListenersAfterIndex(afterIndex quorumkv.LogIndex) error

	// Commit log entries to the state machine asynchronously up to the
	// given index.
	//
	// An error is returned if commitIndex would decrease or run past the
	// end of the log.
	CommitAsync(commitIndex quorumkv.LogIndex) error
}
