package leader

import (
	"reflect"
	"testing"

	. "github.com/quorumkv/quorumkv"
	"github.com/quorumkv/quorumkv/config"
	"github.com/quorumkv/quorumkv/inmemlog"
	"github.com/quorumkv/quorumkv/internal"
)

func TestLeaderVolatileState(t *testing.T) {
	ci, err := config.NewClusterInfo([]ServerId{101, 102, 103}, 103)
	if err != nil {
		t.Fatal(err)
	}

	maes := &mockAESender{}

	lvs, err := NewLeaderVolatileState(ci, 42, maes)
	if err != nil {
		t.Fatal(err)
	}

	// Initial state: all nextIndex values start at the index just after
	// the last one in the leader's log.
	expectedNextIndex := map[ServerId]LogIndex{101: 43, 102: 43}
	if !reflect.DeepEqual(lvs.NextIndexes(), expectedNextIndex) {
		t.Fatal(lvs.NextIndexes())
	}
	expectedMatchIndex := map[ServerId]LogIndex{101: 0, 102: 0}
	if !reflect.DeepEqual(lvs.MatchIndexes(), expectedMatchIndex) {
		t.Fatal(lvs.MatchIndexes())
	}

	// GetFollowerManager
	fm101, err := lvs.GetFollowerManager(101)
	if err != nil {
		t.Fatal(err)
	}
	fm102, err := lvs.GetFollowerManager(102)
	if err != nil {
		t.Fatal(err)
	}
	_, err = lvs.GetFollowerManager(103)
	if err == nil || err.Error() != "LeaderVolatileState.GetFollowerManager(): unknown peer: 103" {
		t.Fatal(err)
	}
	_, err = lvs.GetFollowerManager(105)
	if err == nil || err.Error() != "LeaderVolatileState.GetFollowerManager(): unknown peer: 105" {
		t.Fatal(err)
	}

	// FollowerManager.GetNextIndex
	if fm102.GetNextIndex() != 43 {
		t.Fatal()
	}

	// FollowerManager.DecrementNextIndex
	err = fm102.DecrementNextIndex()
	if err != nil {
		t.Fatal(err)
	}
	expectedNextIndex = map[ServerId]LogIndex{101: 43, 102: 42}
	if !reflect.DeepEqual(lvs.NextIndexes(), expectedNextIndex) {
		t.Fatal(lvs.NextIndexes())
	}
	if fm102.GetNextIndex() != 42 {
		t.Fatal()
	}

	fm101.nextIndex = 1
	err = fm101.DecrementNextIndex()
	if err == nil || err.Error() != "FollowerManager.DecrementNextIndex(): nextIndex already <=1 for peer: 101" {
		t.Fatal(err)
	}

	// FollowerManager.SetMatchIndexAndNextIndex
	fm102.SetMatchIndexAndNextIndex(24)
	expectedNextIndex = map[ServerId]LogIndex{101: 1, 102: 25}
	if !reflect.DeepEqual(lvs.NextIndexes(), expectedNextIndex) {
		t.Fatal(lvs.NextIndexes())
	}
	expectedMatchIndex = map[ServerId]LogIndex{101: 0, 102: 24}
	if !reflect.DeepEqual(lvs.MatchIndexes(), expectedMatchIndex) {
		t.Fatal(lvs.MatchIndexes())
	}
	fm102.SetMatchIndexAndNextIndex(0)
	expectedNextIndex = map[ServerId]LogIndex{101: 1, 102: 1}
	if !reflect.DeepEqual(lvs.NextIndexes(), expectedNextIndex) {
		t.Fatal(lvs.NextIndexes())
	}
	expectedMatchIndex = map[ServerId]LogIndex{101: 0, 102: 0}
	if !reflect.DeepEqual(lvs.MatchIndexes(), expectedMatchIndex) {
		t.Fatal(lvs.MatchIndexes())
	}

	// FollowerManager.SendAppendEntriesToPeerAsync
	err = fm102.SendAppendEntriesToPeerAsync(false, 13, 1)
	if err != nil {
		t.Fatal(err)
	}
	expectedParams := internal.SendAppendEntriesParams{
		PeerId:        102,
		PeerNextIndex: 1,
		Empty:         false,
		CurrentTerm:   13,
		CommitIndex:   1,
	}
	if *maes.params != expectedParams {
		t.Fatal(maes.params)
	}
}

// The leader commit rule only allows committing an entry from the
// current term; entries from prior terms commit transitively.
func TestFindNewerCommitIndex_PriorTermEntryNotDirectlyCommittable(t *testing.T) {
	ci, err := config.NewClusterInfo([]ServerId{101, 102, 103, 104, 105}, 101)
	if err != nil {
		t.Fatal(err)
	}

	terms := []TermNo{1, 2} // leader line for the case
	iml, err := inmemlog.TestUtil_NewInMemoryLog_WithTerms(terms, 3)
	if err != nil {
		t.Fatal(err)
	}

	lvs, err := NewLeaderVolatileState(ci, LogIndex(len(terms)), nil)
	if err != nil {
		t.Fatal(err)
	}

	_findNewerCommitIndex := func(currentTerm TermNo, commitIndex LogIndex) LogIndex {
		nci, err := lvs.FindNewerCommitIndex(ci, iml, currentTerm, commitIndex)
		if err != nil {
			t.Fatal(err)
		}
		return nci
	}

	// With matchIndex stuck at 0, there is no solution for any currentTerm
	if _findNewerCommitIndex(1, 0) != 0 {
		t.Fatal()
	}
	if _findNewerCommitIndex(2, 0) != 0 {
		t.Fatal()
	}
	if _findNewerCommitIndex(3, 0) != 0 {
		t.Fatal()
	}

	setMatchIndex := func(peerId ServerId, matchIndex LogIndex) {
		fm, err := lvs.GetFollowerManager(peerId)
		if err != nil {
			t.Fatal(err)
		}
		fm.SetMatchIndexAndNextIndex(matchIndex)
	}

	// index 2 (term 2) on one other server, index 1 (term 1) everywhere
	setMatchIndex(102, 2)
	setMatchIndex(103, 1)
	setMatchIndex(104, 1)
	setMatchIndex(105, 1)

	// While we cannot be at currentTerm=1, it has a solution
	if _findNewerCommitIndex(1, 0) != 1 {
		t.Fatal()
	}
	if _findNewerCommitIndex(1, 1) != 0 {
		t.Fatal()
	}
	// No solution for currentTerm >= 2
	if _findNewerCommitIndex(2, 0) != 0 {
		t.Fatal()
	}
	if _findNewerCommitIndex(3, 0) != 0 {
		t.Fatal()
	}
}

func TestFindNewerCommitIndex_CurrentTermEntryCommitsPriorTerms(t *testing.T) {
	ci, err := config.NewClusterInfo([]ServerId{101, 102, 103, 104, 105}, 101)
	if err != nil {
		t.Fatal(err)
	}

	terms := []TermNo{1, 2, 4} // leader line for the case
	iml, err := inmemlog.TestUtil_NewInMemoryLog_WithTerms(terms, 3)
	if err != nil {
		t.Fatal(err)
	}
	lvs, err := NewLeaderVolatileState(ci, LogIndex(len(terms)), nil)
	if err != nil {
		t.Fatal(err)
	}

	_findNewerCommitIndex := func(currentTerm TermNo, commitIndex LogIndex) LogIndex {
		nci, err := lvs.FindNewerCommitIndex(ci, iml, currentTerm, commitIndex)
		if err != nil {
			t.Fatal(err)
		}
		return nci
	}

	setMatchIndex := func(peerId ServerId, matchIndex LogIndex) {
		fm, err := lvs.GetFollowerManager(peerId)
		if err != nil {
			t.Fatal(err)
		}
		fm.SetMatchIndexAndNextIndex(matchIndex)
	}

	// With matchIndex stuck at 0, there is no solution for any currentTerm
	if _findNewerCommitIndex(1, 0) != 0 {
		t.Fatal()
	}
	if _findNewerCommitIndex(2, 0) != 0 {
		t.Fatal()
	}
	if _findNewerCommitIndex(3, 0) != 0 {
		t.Fatal()
	}

	// index 2 (term 2) replicated on a majority, index 3 (term 4) only local
	setMatchIndex(102, 2)
	setMatchIndex(103, 2)
	setMatchIndex(104, 1)
	setMatchIndex(105, 1)

	// While we cannot be at currentTerm=1, it has solutions
	if _findNewerCommitIndex(1, 0) != 1 {
		t.Fatal()
	}
	if _findNewerCommitIndex(1, 1) != 0 {
		t.Fatal()
	}
	// While we cannot be at currentTerm=2, it has solutions
	if _findNewerCommitIndex(2, 0) != 2 {
		t.Fatal()
	}
	if _findNewerCommitIndex(2, 1) != 2 {
		t.Fatal()
	}
	// While we cannot be at currentTerm=3, it has no solution
	if _findNewerCommitIndex(3, 0) != 0 {
		t.Fatal()
	}
	if _findNewerCommitIndex(3, 1) != 0 {
		t.Fatal()
	}
	if _findNewerCommitIndex(3, 2) != 0 {
		t.Fatal()
	}
	// No solution for currentTerm >= 4
	if _findNewerCommitIndex(4, 0) != 0 {
		t.Fatal()
	}
	if _findNewerCommitIndex(4, 1) != 0 {
		t.Fatal()
	}
	if _findNewerCommitIndex(4, 2) != 0 {
		t.Fatal()
	}

	// index 3 (term 4) now replicated on a majority
	setMatchIndex(102, 3)
	setMatchIndex(103, 3)
	setMatchIndex(104, 1)
	setMatchIndex(105, 1)

	// Now currentTerm = 4 has a solution, and it covers indexes 1 and 2
	if _findNewerCommitIndex(4, 0) != 3 {
		t.Fatal()
	}
	if _findNewerCommitIndex(4, 1) != 3 {
		t.Fatal()
	}
	if _findNewerCommitIndex(4, 2) != 3 {
		t.Fatal()
	}
	if _findNewerCommitIndex(4, 3) != 0 {
		t.Fatal()
	}
}

func TestFindNewerCommitIndex_ReturnsHighestMatch(t *testing.T) {
	ci, err := config.NewClusterInfo([]ServerId{101, 102, 103, 104, 105}, 101)
	if err != nil {
		t.Fatal(err)
	}

	terms := []TermNo{1, 2, 4, 4}
	iml, err := inmemlog.TestUtil_NewInMemoryLog_WithTerms(terms, 3)
	if err != nil {
		t.Fatal(err)
	}
	lvs, err := NewLeaderVolatileState(ci, LogIndex(len(terms)), nil)
	if err != nil {
		t.Fatal(err)
	}

	_findNewerCommitIndex := func(currentTerm TermNo, commitIndex LogIndex) LogIndex {
		nci, err := lvs.FindNewerCommitIndex(ci, iml, currentTerm, commitIndex)
		if err != nil {
			t.Fatal(err)
		}
		return nci
	}

	setMatchIndex := func(peerId ServerId, matchIndex LogIndex) {
		fm, err := lvs.GetFollowerManager(peerId)
		if err != nil {
			t.Fatal(err)
		}
		fm.SetMatchIndexAndNextIndex(matchIndex)
	}

	setMatchIndex(102, 4)
	setMatchIndex(103, 4)
	setMatchIndex(104, 1)
	setMatchIndex(105, 1)

	// currentTerm = 4 has a solution; the highest match is returned
	if _findNewerCommitIndex(4, 0) != 4 {
		t.Fatal()
	}
	if _findNewerCommitIndex(4, 1) != 4 {
		t.Fatal()
	}
	if _findNewerCommitIndex(4, 2) != 4 {
		t.Fatal()
	}
	if _findNewerCommitIndex(4, 3) != 4 {
		t.Fatal()
	}

	// returns 0 if current commitIndex is the highest match
	if _findNewerCommitIndex(4, 4) != 0 {
		t.Fatal()
	}
}

func TestFindNewerCommitIndex_SOLO(t *testing.T) {
	ci, err := config.NewClusterInfo([]ServerId{101}, 101)
	if err != nil {
		t.Fatal(err)
	}

	terms := []TermNo{1, 2, 2, 2, 3, 3}
	iml, err := inmemlog.TestUtil_NewInMemoryLog_WithTerms(terms, 3)
	if err != nil {
		t.Fatal(err)
	}
	lvs, err := NewLeaderVolatileState(ci, LogIndex(len(terms)), nil)
	if err != nil {
		t.Fatal(err)
	}

	_findNewerCommitIndex := func(currentTerm TermNo, commitIndex LogIndex) LogIndex {
		nci, err := lvs.FindNewerCommitIndex(ci, iml, currentTerm, commitIndex)
		if err != nil {
			t.Fatal(err)
		}
		return nci
	}

	if nci := _findNewerCommitIndex(1, 0); nci != 1 {
		t.Fatal(nci)
	}
	if nci := _findNewerCommitIndex(1, 1); nci != 0 {
		t.Fatal(nci)
	}

	// the highest match is returned
	if nci := _findNewerCommitIndex(2, 0); nci != 4 {
		t.Fatal(nci)
	}
	if nci := _findNewerCommitIndex(2, 3); nci != 4 {
		t.Fatal(nci)
	}
	if nci := _findNewerCommitIndex(3, 1); nci != 6 {
		t.Fatal(nci)
	}

	// returns 0 if current commitIndex is the highest match
	if nci := _findNewerCommitIndex(2, 4); nci != 0 {
		t.Fatal(nci)
	}
}

type mockAESender struct {
	params *internal.SendAppendEntriesParams
}

func (maes *mockAESender) SendAppendEntriesToPeerAsync(
	params internal.SendAppendEntriesParams,
) error {
	if maes.params != nil {
		panic("more than one call!")
	}
	maes.params = &params
	return nil
}
