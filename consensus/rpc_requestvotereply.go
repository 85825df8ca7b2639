// RequestVoteReply processing.
// Replies are routed back to the candidate that sent the RequestVote.

package consensus

import (
	. "github.com/quorumkv/quorumkv"
)

// RpcReply_RpcRequestVoteReply processes the reply for an earlier
// RequestVote RPC sent to the given peer.
func (cm *PassiveConsensusModule) RpcReply_RpcRequestVoteReply(
	fromPeer ServerId,
	rpcRequestVote *RpcRequestVote,
	rpcRequestVoteReply *RpcRequestVoteReply,
) error {
	// Ignore replies for a previous term's rpc
	serverTerm := cm.persistentState.GetCurrentTerm()
	if rpcRequestVote.Term != serverTerm {
		return nil
	}

	// If RPC response contains term T > currentTerm:
	// set currentTerm = T, convert to follower.
	senderCurrentTerm := rpcRequestVoteReply.Term
	if senderCurrentTerm > serverTerm {
		return cm.becomeFollowerWithTerm(senderCurrentTerm)
	}

	if cm.serverState == CANDIDATE {
		// If votes received from a majority of servers: become leader.
		haveQuorum, err := cm.CandidateVolatileState.AddVote(
			fromPeer, rpcRequestVoteReply.VoteGranted,
		)
		if err != nil {
			return err
		}
		if haveQuorum {
			return cm.becomeLeader()
		}
	} // else: ignore - not a candidate

	return nil
}
