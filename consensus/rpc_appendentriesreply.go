// AppendEntriesReply processing.
// Replies are routed back to the leader that sent the AppendEntries.

package consensus

import (
	"fmt"

	"go.uber.org/zap"

	. "github.com/quorumkv/quorumkv"
)

// RpcReply_RpcAppendEntriesReply processes the reply for an earlier
// AppendEntries RPC sent to the given peer.
func (cm *PassiveConsensusModule) RpcReply_RpcAppendEntriesReply(
	from ServerId,
	appendEntries *RpcAppendEntries,
	appendEntriesReply *RpcAppendEntriesReply,
) error {
	// Ignore replies for a previous term's rpc
	serverTerm := cm.persistentState.GetCurrentTerm()
	if appendEntries.Term != serverTerm {
		return nil
	}

	// Protocol violation - only the leader should get AppendEntriesReply
	if cm.serverState != LEADER {
		return fmt.Errorf(
			"FATAL: non-leader got AppendEntriesReply from: %v with term: %v",
			from,
			serverTerm,
		)
	}

	fm, err := cm.LeaderVolatileState.GetFollowerManager(from)
	if err != nil {
		return err
	}

	// Ignore reply for an RpcAppendEntries that does not match the
	// current nextIndex for this follower - a delayed reply for an
	// earlier send that has since been superseded.
	expectedPrevLogIndex := fm.GetNextIndex() - 1
	if appendEntries.PrevLogIndex != expectedPrevLogIndex {
		cm.logger.Debug(
			"ignoring AppendEntriesReply due to PrevLogIndex mismatch",
			zap.Uint64("prevLogIndex", uint64(appendEntries.PrevLogIndex)),
			zap.Uint64("expected", uint64(expectedPrevLogIndex)),
		)
		return nil
	}

	// If RPC response contains term T > currentTerm:
	// set currentTerm = T, convert to follower.
	senderCurrentTerm := appendEntriesReply.Term
	if senderCurrentTerm > serverTerm {
		return cm.becomeFollowerWithTerm(senderCurrentTerm)
	}

	// If AppendEntries fails because of log inconsistency:
	// decrement nextIndex and retry. A transport timeout never reaches
	// here - only an explicit rejection from the follower does.
	if !appendEntriesReply.Success {
		err := fm.DecrementNextIndex()
		if err != nil {
			return err
		}
		return fm.SendAppendEntriesToPeerAsync(false, serverTerm, cm.commitIndex.Get())
	}

	// If successful: update nextIndex and matchIndex for the follower.
	newMatchIndex := appendEntries.PrevLogIndex + LogIndex(len(appendEntries.Entries))
	fm.SetMatchIndexAndNextIndex(newMatchIndex)

	// If there exists an N such that N > commitIndex, a majority of
	// matchIndex[i] >= N, and log[N].term == currentTerm:
	// set commitIndex = N.
	return cm.advanceCommitIndexIfPossible()
}
