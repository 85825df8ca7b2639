package inmemlog

import (
	"strconv"

	. "github.com/quorumkv/quorumkv"
)

// TestUtil_NewInMemoryLog_WithTerms creates an InMemoryLog with
// placeholder entries for the given list of terms.
//
// The command for entry at index i is "c<i>". For example, terms
// {1, 1, 2} produce entries {1, "c1"}, {1, "c2"}, {2, "c3"}.
func TestUtil_NewInMemoryLog_WithTerms(
	terms []TermNo, maxEntriesPerCall uint64,
) (*InMemoryLog, error) {
	iml, err := NewInMemoryLog(maxEntriesPerCall)
	if err != nil {
		return nil, err
	}

	for i, term := range terms {
		command := Command("c" + strconv.Itoa(i+1))
		if _, err := iml.AppendEntry(LogEntry{TermNo: term, Command: command}); err != nil {
			return nil, err
		}
	}

	return iml, nil
}
