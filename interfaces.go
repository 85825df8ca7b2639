// Interfaces that users of this package must implement.

package quorumkv

// PersistentState is the persistent state of a consensus group member.
//
// Implementations must persist the values before returning from the Set
// methods - replying to an RPC before the term and vote are durable
// reintroduces the classic double-vote bug across restarts.
//
// The consensus core will only ever call these methods from a single
// goroutine. (However, tests may call from a different goroutine)
type PersistentState interface {
	// Get the latest term this server has seen.
	// (initialized to 0, increases monotonically)
	GetCurrentTerm() TermNo

	// Get the candidate id this server has voted for in the current term.
	// (0 if none)
	GetVotedFor() ServerId

	// Set the latest term this server has seen.
	//
	// It is an error to decrease the term or set it to 0.
	// Setting a higher term must clear votedFor.
	SetCurrentTerm(currentTerm TermNo) error

	// Set the candidate this server has voted for in the current term.
	//
	// It is an error to vote while currentTerm is 0, to vote for server
	// id 0, or to change an existing non-zero vote.
	SetVotedFor(votedFor ServerId) error
}

// StateMachine is the interface that the state machine must implement.
//
// Commands are applied in strictly increasing log index order, and never
// before the entry at that index is committed.
type StateMachine interface {
	// Get the index of the last entry that has been applied.
	//
	// lastApplied should be as durable as the state machine itself:
	// if the state machine is volatile, lastApplied should be volatile.
	GetLastApplied() LogIndex

	// Apply the command at the given log index to the state machine.
	//
	// The returned value is delivered to a client waiting on that index,
	// if any.
	ApplyCommand(logIndex LogIndex, command Command) CommandResult
}

// RpcService is the networking service that sends outgoing RPCs to other
// members of the consensus group.
//
// This is called "RPC" for protocol terminology, but implementations are
// free to use any messaging substrate as long as field semantics are
// preserved.
//
// Methods are expected to block until a reply is received or the
// implementation's deadline expires. A nil reply indicates a transport
// failure or timeout; the caller drops it and retries on its own schedule.
//
// Multiple outgoing calls may be in flight concurrently.
type RpcService interface {
	RpcAppendEntries(toServer ServerId, rpc *RpcAppendEntries) *RpcAppendEntriesReply

	RpcRequestVote(toServer ServerId, rpc *RpcRequestVote) *RpcRequestVoteReply
}

// WatchableIndex is a read-only view of a log index that other components
// own and advance.
type WatchableIndex interface {
	Get() LogIndex
}
