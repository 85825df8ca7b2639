// AppendEntries RPC (receiver implementation).
// Invoked by the leader to replicate log entries; also used as heartbeat.

package consensus

import (
	"fmt"

	. "github.com/quorumkv/quorumkv"
)

// Rpc_RpcAppendEntries processes the given RpcAppendEntries message.
func (cm *PassiveConsensusModule) Rpc_RpcAppendEntries(
	from ServerId,
	appendEntries *RpcAppendEntries,
) (*RpcAppendEntriesReply, error) {
	if from == cm.ClusterInfo.GetThisServerId() {
		return nil, fmt.Errorf(
			"FATAL: from server has same serverId: %v", cm.ClusterInfo.GetThisServerId(),
		)
	}
	if !cm.ClusterInfo.IsPeer(from) {
		return nil, fmt.Errorf("FATAL: 'from' serverId %v is not in the cluster", from)
	}

	makeReply := func(success bool) *RpcAppendEntriesReply {
		return &RpcAppendEntriesReply{
			Term:    cm.persistentState.GetCurrentTerm(), // refetch in case it has changed!
			Success: success,
		}
	}

	serverTerm := cm.persistentState.GetCurrentTerm()
	leaderCurrentTerm := appendEntries.Term
	prevLogIndex := appendEntries.PrevLogIndex

	// 1. Reply false if term < currentTerm
	if leaderCurrentTerm < serverTerm {
		return makeReply(false), nil
	}

	// Protocol violation - two leaders with the same term
	if cm.serverState == LEADER && leaderCurrentTerm == serverTerm {
		return nil, fmt.Errorf(
			"FATAL: two leaders with same term - got AppendEntries from: %v with term: %v",
			from,
			serverTerm,
		)
	}

	// AppendEntries from the current leader prevents election timeout.
	cm.ElectionTimeoutTimer.Restart()

	// If RPC request contains term T >= currentTerm: set currentTerm = T
	// and accept the sender as leader for this term, converting to
	// follower if candidate or leader.
	err := cm.becomeFollowerWithTerm(leaderCurrentTerm)
	if err != nil {
		return nil, err
	}

	// 2. Reply false if log doesn't contain an entry at prevLogIndex
	// whose term matches prevLogTerm. This is the consistency check that
	// enforces the Log Matching invariant.
	iole, err := cm.logRO.GetIndexOfLastEntry()
	if err != nil {
		return nil, err
	}
	if iole < prevLogIndex {
		return makeReply(false), nil
	}
	if prevLogIndex > 0 {
		termAtPrev, err := cm.logRO.GetTermAtIndex(prevLogIndex)
		if err != nil {
			return nil, err
		}
		if termAtPrev != appendEntries.PrevLogTerm {
			return makeReply(false), nil
		}
	}

	// 3. If an existing entry conflicts with a new one (same index but
	// different terms), delete the existing entry and all that follow it.
	// 4. Append any new entries not already in the log.
	err = cm.setEntriesAfterIndex(prevLogIndex, appendEntries.Entries)
	if err != nil {
		return nil, err
	}

	// 5. If leaderCommit > commitIndex,
	// set commitIndex = min(leaderCommit, index of last new entry)
	leaderCommit := appendEntries.LeaderCommit
	if leaderCommit > cm.commitIndex.Get() {
		indexOfLastNewEntry, err := cm.logRO.GetIndexOfLastEntry()
		if err != nil {
			return nil, err
		}
		if leaderCommit > indexOfLastNewEntry {
			leaderCommit = indexOfLastNewEntry
		}
		err = cm.setCommitIndex(leaderCommit)
		if err != nil {
			return nil, err
		}
	}

	return makeReply(true), nil
}
