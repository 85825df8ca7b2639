package leader

import (
	"fmt"

	. "github.com/quorumkv/quorumkv"
	"github.com/quorumkv/quorumkv/config"
	"github.com/quorumkv/quorumkv/internal"
)

// LeaderVolatileState is the volatile state of a leader.
// (Reinitialized after election)
type LeaderVolatileState struct {
	followerManagers map[ServerId]*FollowerManager
}

// NewLeaderVolatileState sets up the state for a fresh leader.
//
// nextIndex for each follower is initialized to the index just after the
// last one in the leader's log; matchIndex is initialized to 0.
func NewLeaderVolatileState(
	clusterInfo *config.ClusterInfo,
	indexOfLastEntry LogIndex,
	aeSender internal.IAppendEntriesSender,
) (*LeaderVolatileState, error) {
	lvs := &LeaderVolatileState{
		followerManagers: make(map[ServerId]*FollowerManager),
	}

	err := clusterInfo.ForEachPeer(
		func(peerId ServerId) error {
			lvs.followerManagers[peerId] = NewFollowerManager(
				peerId,
				indexOfLastEntry+1,
				0,
				aeSender,
			)
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	return lvs, nil
}

// GetFollowerManager returns the FollowerManager for the given peer.
func (lvs *LeaderVolatileState) GetFollowerManager(peerId ServerId) (*FollowerManager, error) {
	fm, ok := lvs.followerManagers[peerId]
	if !ok {
		return nil, fmt.Errorf("LeaderVolatileState.GetFollowerManager(): unknown peer: %v", peerId)
	}
	return fm, nil
}

// NextIndexes returns a snapshot of the peers' nextIndex values.
// For debugging and tests.
func (lvs *LeaderVolatileState) NextIndexes() map[ServerId]LogIndex {
	m := make(map[ServerId]LogIndex, len(lvs.followerManagers))
	for peerId, fm := range lvs.followerManagers {
		m[peerId] = fm.GetNextIndex()
	}
	return m
}

// MatchIndexes returns a snapshot of the peers' matchIndex values.
// For debugging and tests.
func (lvs *LeaderVolatileState) MatchIndexes() map[ServerId]LogIndex {
	m := make(map[ServerId]LogIndex, len(lvs.followerManagers))
	for peerId, fm := range lvs.followerManagers {
		m[peerId] = fm.GetMatchIndex()
	}
	return m
}

// FindNewerCommitIndex finds a potential new commitIndex for the leader:
// the highest N such that N > currentCommitIndex, a majority of
// matchIndex values are >= N (the leader implicitly matches), and
// log[N].term == currentTerm.
// Returns 0 if no such N exists.
func (lvs *LeaderVolatileState) FindNewerCommitIndex(
	ci *config.ClusterInfo,
	log internal.LogTailOnlyRO,
	currentTerm TermNo,
	currentCommitIndex LogIndex,
) (LogIndex, error) {
	indexOfLastEntry, err := log.GetIndexOfLastEntry()
	if err != nil {
		return 0, err
	}
	requiredMatches := ci.QuorumSizeForCluster()
	var matchingN LogIndex = 0
	// cover all N > currentCommitIndex, stopping at the end of the log
	for N := currentCommitIndex + 1; N <= indexOfLastEntry; N++ {
		termAtN, err := log.GetTermAtIndex(N)
		if err != nil {
			return 0, err
		}
		if termAtN > currentTerm {
			// term too high for log[N].term == currentTerm,
			// no point trying further
			break
		}
		if termAtN < currentTerm {
			continue
		}
		// check for majority of matchIndex
		var foundMatches uint = 1 // the leader itself matches
		for _, fm := range lvs.followerManagers {
			if fm.GetMatchIndex() >= N {
				foundMatches++
			}
		}
		if foundMatches >= requiredMatches {
			matchingN = N
		}
	}

	return matchingN, nil
}
