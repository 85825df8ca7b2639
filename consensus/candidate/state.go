package candidate

import (
	"fmt"

	. "github.com/quorumkv/quorumkv"
	"github.com/quorumkv/quorumkv/config"
)

// CandidateVolatileState is the volatile state of a candidate: the tally
// of votes for the current election.
type CandidateVolatileState struct {
	receivedVotes uint
	requiredVotes uint
	answeredPeers map[ServerId]bool
}

// NewCandidateVolatileState creates the state for a fresh election.
func NewCandidateVolatileState(
	clusterInfo *config.ClusterInfo,
) (*CandidateVolatileState, error) {
	cvs := &CandidateVolatileState{
		1, // candidates always vote for themselves
		clusterInfo.QuorumSizeForCluster(),
		make(map[ServerId]bool),
	}

	err := clusterInfo.ForEachPeer(
		func(peerId ServerId) error {
			cvs.answeredPeers[peerId] = false
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	return cvs, nil
}

// AddVote records the given peer's vote reply.
// A duplicate reply from the same peer is not counted twice.
// Returns true if quorum has been achieved.
func (cvs *CandidateVolatileState) AddVote(peerId ServerId, granted bool) (bool, error) {
	answered, ok := cvs.answeredPeers[peerId]
	if !ok {
		return false, fmt.Errorf("CandidateVolatileState.AddVote(): unknown peer: %v", peerId)
	}
	if !answered {
		cvs.answeredPeers[peerId] = true
		if granted {
			cvs.receivedVotes++
		}
	}
	return cvs.receivedVotes >= cvs.requiredVotes, nil
}
