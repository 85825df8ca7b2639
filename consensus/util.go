package consensus

import (
	. "github.com/quorumkv/quorumkv"
	"github.com/quorumkv/quorumkv/internal"
)

// GetIndexAndTermOfLastEntry returns the index and term of the last log
// entry. Both are 0 for an empty log.
func GetIndexAndTermOfLastEntry(log internal.LogTailOnlyRO) (LogIndex, TermNo, error) {
	lastLogIndex, err := log.GetIndexOfLastEntry()
	if err != nil {
		return 0, 0, err
	}
	var lastLogTerm TermNo = 0
	if lastLogIndex > 0 {
		lastLogTerm, err = log.GetTermAtIndex(lastLogIndex)
		if err != nil {
			return 0, 0, err
		}
	}
	return lastLogIndex, lastLogTerm, nil
}
