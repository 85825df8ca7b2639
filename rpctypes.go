// RPC message types exchanged between consensus group members.
// See RpcService in interfaces.go for related details.

package quorumkv

// AppendEntries: invoked by the leader to replicate log entries;
// also used as heartbeat when Entries is empty.
type RpcAppendEntries struct {
	// leader's term
	Term TermNo

	// index of log entry immediately preceding new ones
	PrevLogIndex LogIndex

	// term of PrevLogIndex entry
	PrevLogTerm TermNo

	// log entries to store (empty for heartbeat; may send more than one)
	Entries []LogEntry

	// leader's commitIndex
	LeaderCommit LogIndex
}

type RpcAppendEntriesReply struct {
	// receiver's currentTerm, for the leader to update itself
	Term TermNo

	// true if follower contained entry matching PrevLogIndex and PrevLogTerm
	Success bool
}

// RequestVote: invoked by candidates to gather votes.
type RpcRequestVote struct {
	// candidate's term
	Term TermNo

	// index of candidate's last log entry
	LastLogIndex LogIndex

	// term of candidate's last log entry
	LastLogTerm TermNo
}

type RpcRequestVoteReply struct {
	// receiver's currentTerm, for the candidate to update itself
	Term TermNo

	// true means candidate received vote
	VoteGranted bool
}
