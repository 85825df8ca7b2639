// RequestVote RPC (receiver implementation).
// Invoked by candidates to gather votes.

package consensus

import (
	"fmt"

	. "github.com/quorumkv/quorumkv"
)

// Rpc_RpcRequestVote processes the given RpcRequestVote message.
func (cm *PassiveConsensusModule) Rpc_RpcRequestVote(
	from ServerId,
	rpcRequestVote *RpcRequestVote,
) (*RpcRequestVoteReply, error) {
	if from == cm.ClusterInfo.GetThisServerId() {
		return nil, fmt.Errorf(
			"FATAL: from server has same serverId: %v", cm.ClusterInfo.GetThisServerId(),
		)
	}
	if !cm.ClusterInfo.IsPeer(from) {
		return nil, fmt.Errorf("FATAL: 'from' serverId %v is not in the cluster", from)
	}

	makeReply := func(voteGranted bool) *RpcRequestVoteReply {
		return &RpcRequestVoteReply{
			Term:        cm.persistentState.GetCurrentTerm(), // refetch in case it has changed!
			VoteGranted: voteGranted,
		}
	}

	serverTerm := cm.persistentState.GetCurrentTerm()
	senderCurrentTerm := rpcRequestVote.Term

	// 1. Reply false if term < currentTerm
	if senderCurrentTerm < serverTerm {
		return makeReply(false), nil
	}

	// If RPC request contains term T > currentTerm:
	// set currentTerm = T, convert to follower.
	if senderCurrentTerm > serverTerm {
		err := cm.becomeFollowerWithTerm(senderCurrentTerm)
		if err != nil {
			return nil, err
		}
	}

	// The candidate's log must be at least as up-to-date as the
	// receiver's log: if the logs have last entries with different terms,
	// the log with the later term is more up-to-date; if the logs end
	// with the same term, whichever log is longer is more up-to-date.
	var senderIsAtLeastAsUpToDate bool
	lastEntryIndex, lastEntryTerm, err := GetIndexAndTermOfLastEntry(cm.logRO)
	if err != nil {
		return nil, err
	}
	senderLastEntryIndex := rpcRequestVote.LastLogIndex
	senderLastEntryTerm := rpcRequestVote.LastLogTerm
	if senderLastEntryTerm != lastEntryTerm {
		senderIsAtLeastAsUpToDate = senderLastEntryTerm > lastEntryTerm
	} else {
		senderIsAtLeastAsUpToDate = senderLastEntryIndex >= lastEntryIndex
	}

	// 2. If votedFor is null or candidateId, and candidate's log is at
	// least as up-to-date as receiver's log, grant vote.
	// Voting is sticky within a term: once granted to one candidate, no
	// other vote is granted until the term changes. This prevents
	// split-brain leadership within a single term.
	votedFor := cm.persistentState.GetVotedFor()
	if (votedFor == 0 || votedFor == from) && senderIsAtLeastAsUpToDate {
		if votedFor == 0 {
			err = cm.persistentState.SetVotedFor(from)
			if err != nil {
				return nil, err
			}
		}
		// Granting a vote prevents election timeout.
		cm.ElectionTimeoutTimer.Restart()
		return makeReply(true), nil
	}

	return makeReply(false), nil
}
