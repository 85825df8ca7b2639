package quorumkv

import (
	"github.com/go-errors/errors"
)

// ErrStopped is returned by calls made after the consensus node stopped.
var ErrStopped = errors.Errorf("consensus node is stopped")

// ErrNotLeader is returned by AppendCommand / Submit when this node is not
// currently in LEADER state.
var ErrNotLeader = errors.Errorf("not currently in LEADER state")

// ErrNoLeaderAvailable is returned when a request cannot be routed to any
// leader before the caller's deadline, e.g. while an election is in
// progress.
var ErrNoLeaderAvailable = errors.Errorf("no leader available")

// ErrReplicationQuorumFailed is returned when a write was not acknowledged
// by a strict majority of the replication group before the caller's
// deadline. The write must not be reported as durably succeeded.
var ErrReplicationQuorumFailed = errors.Errorf("replication quorum not reached")

// ErrSequenceGap is returned by a backup that received an operation whose
// sequence number is not exactly lastApplied+1. The backup's state is
// unchanged; the primary resends the missing operations in order.
var ErrSequenceGap = errors.Errorf("operation sequence number gap")

// ErrIndexCompacted is returned by Log calls for an index that has been
// discarded by log compaction.
var ErrIndexCompacted = errors.Errorf("log index compacted")
