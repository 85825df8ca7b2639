package primarybackup

import (
	. "github.com/quorumkv/quorumkv"
)

// OpType is the type of a replicated operation.
type OpType uint8

const (
	OpSet OpType = iota
	OpDelete
)

func (t OpType) String() string {
	switch t {
	case OpSet:
		return "SET"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// Operation is one replicated write. The SeqNum totally orders operations
// across the group: a backup applies an operation only if its SeqNum is
// exactly lastApplied+1.
type Operation struct {
	Type   OpType
	Key    string
	Value  []byte
	SeqNum SeqNum
}
