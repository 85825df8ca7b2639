package quorumkv

// Server states of a consensus group member.
type ServerState uint32

const (
	FOLLOWER ServerState = iota
	CANDIDATE
	LEADER
)

func (ss ServerState) String() string {
	switch ss {
	case FOLLOWER:
		return "FOLLOWER"
	case CANDIDATE:
		return "CANDIDATE"
	case LEADER:
		return "LEADER"
	default:
		return "UNKNOWN"
	}
}

// Election term.
// Initialized to 0 on first boot, increases monotonically.
type TermNo uint64

// A state machine command (in serialized form).
// The contents of the byte slice are opaque to the consensus core.
type Command []byte

// CommandResult is the result of applying a command to the state machine.
type CommandResult interface{}

// Log entry index. First index is 1.
type LogIndex uint64

// An entry in the replicated log.
type LogEntry struct {
	TermNo
	Command
}

// An integer that uniquely identifies a server in a replication group.
//
// Zero is reserved to mean "no server" (e.g. votedFor when no vote has
// been cast) and must not be used as an actual server id.
//
// The number value has no meaning to this package. This package also does
// not know about network details - e.g. protocol/host/port - since message
// transport is delegated to the user. See config.ClusterInfo for usage.
type ServerId uint64

// Operation sequence number used by primary-backup replication.
// First assigned sequence number is 1, increases monotonically.
type SeqNum uint64
