package quorumkv

// The replicated Log.
//
// The log is an ordered array of 'LogEntry's with first index 1.
// A LogEntry is a tuple of an election term number and a command to be
// applied to the state machine.
//
// The consensus core will only ever call the methods of this interface from
// a single goroutine.
//
// All errors should be checked and returned, including invalid parameters
// sent by the consensus core and internal errors in the implementation.
// Note that such an error will shutdown the consensus node.
type Log interface {
	// Get the index of the last entry in the log.
	// An index of 0 indicates no entries present.
	// This should be 0 for the Log of a new server.
	GetIndexOfLastEntry() (LogIndex, error)

	// Get the term of the entry at the given index.
	// An index of 0 is invalid for this call.
	GetTermAtIndex(LogIndex) (TermNo, error)

	// Get entries after the given index.
	//
	// The implementation decides how many entries to return at most in
	// one call; this bounds the number of entries sent in one
	// AppendEntries RPC.
	//
	// An index equal to the index of the last entry is valid and returns
	// an empty slice.
	GetEntriesAfterIndex(LogIndex) ([]LogEntry, error)

	// Set the entries after the given index.
	//
	// Theoretically, the Log can just delete all existing entries
	// following the given index and then append the given new entries
	// after that index.
	//
	// However, the Log Matching invariant means the Log can choose to set
	// only the entries starting from the first index where the terms of
	// the existing entry and the new entry don't match.
	//
	// An index of 0 is valid and implies deleting all entries.
	//
	// A zero length slice and nil both indicate no new entries to be
	// added after deleting.
	SetEntriesAfterIndex(LogIndex, []LogEntry) error

	// Append the given entry to the end of the log and return the index
	// of the appended entry.
	AppendEntry(LogEntry) (LogIndex, error)
}
