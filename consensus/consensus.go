// Package consensus implements the passive core of the consensus
// protocol: leader election and log replication rules.
//
// The PassiveConsensusModule here is driven entirely by external calls -
// Tick() from a time source and the Rpc* methods for incoming messages.
// The active goroutine, outgoing RPC fan-out and client-facing API live in
// the node package.
package consensus

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	. "github.com/quorumkv/quorumkv"
	"github.com/quorumkv/quorumkv/config"
	"github.com/quorumkv/quorumkv/consensus/candidate"
	"github.com/quorumkv/quorumkv/consensus/leader"
	"github.com/quorumkv/quorumkv/internal"
	"github.com/quorumkv/quorumkv/logindex"
	"github.com/quorumkv/quorumkv/util"
)

// PassiveConsensusModule holds the state of a single consensus group
// member and implements the protocol's state transitions.
//
// Concurrency: a PassiveConsensusModule is not safe for concurrent use.
// All calls must be serialized by the caller; the node package does this
// under a single mutex per node, making role transitions and log
// mutations atomic with respect to each other.
type PassiveConsensusModule struct {
	// ===== the following fields are immutable

	// -- External components
	persistentState      PersistentState
	logRO                internal.LogTailOnlyRO
	logWO                internal.LogTailOnlyWO
	committer            internal.ICommitter
	sendRequestVoteAsync internal.SendOnlyRpcRequestVoteAsync
	aeSender             internal.IAppendEntriesSender
	logger               *zap.Logger

	// -- Config
	ClusterInfo *config.ClusterInfo

	// ===== the following fields are mutable

	// -- State - for all servers
	serverState ServerState

	// commitIndex is the index of highest log entry known to be committed
	// (initialized to 0, increases monotonically)
	commitIndex            *logindex.WatchedIndex
	electionTimeoutChooser *util.ElectionTimeoutChooser
	ElectionTimeoutTimer   *util.Timer

	// -- State - for candidates only
	CandidateVolatileState *candidate.CandidateVolatileState

	// -- State - for leaders only
	LeaderVolatileState *leader.LeaderVolatileState
}

func NewPassiveConsensusModule(
	persistentState PersistentState,
	log internal.LogTailOnly,
	committer internal.ICommitter,
	sendRequestVoteAsync internal.SendOnlyRpcRequestVoteAsync,
	aeSender internal.IAppendEntriesSender,
	clusterInfo *config.ClusterInfo,
	electionTimeoutLow time.Duration,
	clk clock.Clock,
	logger *zap.Logger,
) (*PassiveConsensusModule, error) {
	// Param checks
	if persistentState == nil {
		return nil, errors.New("'persistentState' cannot be nil")
	}
	if log == nil {
		return nil, errors.New("'log' cannot be nil")
	}
	if committer == nil {
		return nil, errors.New("'committer' cannot be nil")
	}
	if sendRequestVoteAsync == nil {
		return nil, errors.New("'sendRequestVoteAsync' cannot be nil")
	}
	if aeSender == nil {
		return nil, errors.New("'aeSender' cannot be nil")
	}
	if clusterInfo == nil {
		return nil, errors.New("'clusterInfo' cannot be nil")
	}
	if electionTimeoutLow.Nanoseconds() <= 0 {
		return nil, errors.New("electionTimeoutLow must be greater than zero")
	}
	if clk == nil {
		return nil, errors.New("'clk' cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("'logger' cannot be nil")
	}

	commitIndex := logindex.NewWatchedIndex()
	commitIndex.SetListener(committer.CommitAsync)

	pcm := &PassiveConsensusModule{
		// -- External components
		persistentState,
		log,
		log,
		committer,
		sendRequestVoteAsync,
		aeSender,
		logger,

		// -- Config
		clusterInfo,

		// -- State - for all servers
		// When servers start up, they begin as followers.
		FOLLOWER,

		commitIndex,
		util.NewElectionTimeoutChooser(electionTimeoutLow),
		util.NewTimer(electionTimeoutLow, clk),

		// -- State - for candidates only
		nil,

		// -- State - for leaders only
		nil,
	}

	return pcm, nil
}

// GetServerState returns the current server state.
func (cm *PassiveConsensusModule) GetServerState() ServerState {
	return cm.serverState
}

func (cm *PassiveConsensusModule) setServerState(serverState ServerState) {
	if serverState != FOLLOWER && serverState != CANDIDATE && serverState != LEADER {
		panic(fmt.Sprintf("FATAL: unknown ServerState: %v", serverState))
	}
	if cm.serverState != serverState {
		cm.logger.Info(
			"server state change",
			zap.Stringer("from", cm.serverState),
			zap.Stringer("to", serverState),
		)
		cm.serverState = serverState
	}
}

// GetCommitIndex returns the current commitIndex value.
func (cm *PassiveConsensusModule) GetCommitIndex() LogIndex {
	return cm.commitIndex.Get()
}

// GetCommitIndexWatchable returns commitIndex as a WatchableIndex.
func (cm *PassiveConsensusModule) GetCommitIndexWatchable() WatchableIndex {
	return cm.commitIndex
}

// setCommitIndex advances the commitIndex value.
// Checks that it does not decrease and does not run past the log.
func (cm *PassiveConsensusModule) setCommitIndex(commitIndex LogIndex) error {
	if commitIndex < cm.commitIndex.Get() {
		return fmt.Errorf(
			"setCommitIndex to %v < current commitIndex %v",
			commitIndex,
			cm.commitIndex.Get(),
		)
	}
	iole, err := cm.logRO.GetIndexOfLastEntry()
	if err != nil {
		return err
	}
	if commitIndex > iole {
		return fmt.Errorf(
			"setCommitIndex to %v > current indexOfLastEntry %v",
			commitIndex,
			iole,
		)
	}
	return cm.commitIndex.Set(commitIndex)
}

// AppendCommand appends the given serialized command to the log and
// returns the index of the appended entry.
//
// Returns ErrNotLeader if not currently the leader.
func (cm *PassiveConsensusModule) AppendCommand(command Command) (LogIndex, error) {
	if cm.serverState != LEADER {
		return 0, ErrNotLeader
	}

	termNo := cm.persistentState.GetCurrentTerm()
	logEntry := LogEntry{TermNo: termNo, Command: command}
	return cm.logWO.AppendEntry(logEntry)
}

// Tick runs one iteration of the node's periodic processing.
func (cm *PassiveConsensusModule) Tick() error {
	switch cm.serverState {
	case FOLLOWER:
		// If election timeout elapses without receiving AppendEntries
		// from the current leader or granting a vote to a candidate:
		// convert to candidate.
		fallthrough
	case CANDIDATE:
		// If election timeout elapses: start new election. Votes could
		// have been split so that no candidate obtained a majority; each
		// candidate times out and starts a new election with a new
		// randomized timeout.
		if cm.ElectionTimeoutTimer.Expired() {
			cm.logger.Info("election timeout - starting a new election")
			err := cm.becomeCandidateAndBeginElection()
			if err != nil {
				return err
			}
			// A single node cluster wins its election immediately since
			// it has all the votes. Don't skip the election process - it
			// increases the current term.
			if cm.ClusterInfo.GetClusterSize() == 1 {
				err := cm.becomeLeader()
				if err != nil {
					return err
				}
			}
		}
	case LEADER:
		// If there exists an N such that N > commitIndex, a majority of
		// matchIndex[i] >= N, and log[N].term == currentTerm:
		// set commitIndex = N.
		err := cm.advanceCommitIndexIfPossible()
		if err != nil {
			return err
		}
		// Send AppendEntries to all peers. This acts as the heartbeat
		// that suppresses follower elections.
		err = cm.sendAppendEntriesToAllPeers(false)
		if err != nil {
			return err
		}
	}
	return nil
}

func (cm *PassiveConsensusModule) becomeCandidateAndBeginElection() error {
	// On conversion to candidate: increment currentTerm, vote for self,
	// send RequestVote RPCs to all other servers, reset election timer.
	newTerm := cm.persistentState.GetCurrentTerm() + 1
	err := cm.persistentState.SetCurrentTerm(newTerm)
	if err != nil {
		return err
	}
	cm.CandidateVolatileState, err = candidate.NewCandidateVolatileState(cm.ClusterInfo)
	if err != nil {
		return err
	}
	cm.logger.Info("starting election", zap.Uint64("newTerm", uint64(newTerm)))
	cm.setServerState(CANDIDATE)

	err = cm.persistentState.SetVotedFor(cm.ClusterInfo.GetThisServerId())
	if err != nil {
		return err
	}
	lastLogIndex, lastLogTerm, err := GetIndexAndTermOfLastEntry(cm.logRO)
	if err != nil {
		return err
	}
	err = cm.ClusterInfo.ForEachPeer(
		func(serverId ServerId) error {
			rpcRequestVote := &RpcRequestVote{Term: newTerm, LastLogIndex: lastLogIndex, LastLogTerm: lastLogTerm}
			cm.sendRequestVoteAsync(serverId, rpcRequestVote)
			return nil
		},
	)
	if err != nil {
		return err
	}

	// Reset election timeout with a fresh random duration.
	cm.ElectionTimeoutTimer.RestartWithDuration(
		cm.electionTimeoutChooser.ChooseRandomElectionTimeout(),
	)
	return nil
}

func (cm *PassiveConsensusModule) becomeLeader() error {
	iole, err := cm.logRO.GetIndexOfLastEntry()
	if err != nil {
		return err
	}
	cm.LeaderVolatileState, err = leader.NewLeaderVolatileState(cm.ClusterInfo, iole, cm.aeSender)
	if err != nil {
		return err
	}
	cm.logger.Info(
		"won election - becoming leader",
		zap.Uint64("indexOfLastEntry", uint64(iole)),
		zap.Uint64("commitIndex", uint64(cm.commitIndex.Get())),
	)
	cm.setServerState(LEADER)

	// Upon election: send initial empty AppendEntries RPC (heartbeat) to
	// each server.
	return cm.sendAppendEntriesToAllPeers(true)
}

func (cm *PassiveConsensusModule) becomeFollowerWithTerm(newTerm TermNo) error {
	if cm.serverState == FOLLOWER && cm.persistentState.GetCurrentTerm() == newTerm {
		// Nothing to change!
		return nil
	}
	cm.setServerState(FOLLOWER)
	return cm.persistentState.SetCurrentTerm(newTerm)
}

// -- leader code

func (cm *PassiveConsensusModule) sendAppendEntriesToAllPeers(empty bool) error {
	currentTerm := cm.persistentState.GetCurrentTerm()
	commitIndex := cm.commitIndex.Get()

	return cm.ClusterInfo.ForEachPeer(
		func(serverId ServerId) error {
			fm, err := cm.LeaderVolatileState.GetFollowerManager(serverId)
			if err != nil {
				return err
			}
			return fm.SendAppendEntriesToPeerAsync(empty, currentTerm, commitIndex)
		},
	)
}

// advanceCommitIndexIfPossible implements the leader commit rule:
// find the highest N such that N > commitIndex, a majority of
// matchIndex[i] >= N, and log[N].term == currentTerm. An entry from a
// prior term is never committed purely by index-majority - it becomes
// committed transitively when a current-term entry at a later index
// commits.
func (cm *PassiveConsensusModule) advanceCommitIndexIfPossible() error {
	commitIndex := cm.commitIndex.Get()
	newerCommitIndex, err := cm.LeaderVolatileState.FindNewerCommitIndex(
		cm.ClusterInfo,
		cm.logRO,
		cm.persistentState.GetCurrentTerm(),
		commitIndex,
	)
	if err != nil {
		return err
	}
	if newerCommitIndex != 0 && newerCommitIndex > commitIndex {
		return cm.setCommitIndex(newerCommitIndex)
	}
	return nil
}

// setEntriesAfterIndex wraps Log.SetEntriesAfterIndex with commit safety
// checks, and closes the result listeners of any replaced entries.
func (cm *PassiveConsensusModule) setEntriesAfterIndex(li LogIndex, entries []LogEntry) error {
	commitIndex := cm.commitIndex.Get()
	// Check that we're not trying to rewind past commitIndex
	if li < commitIndex {
		return fmt.Errorf(
			"FATAL: setEntriesAfterIndex(%d, ...) but commitIndex=%d", li, commitIndex,
		)
	}
	newIole := li + LogIndex(len(entries))
	if newIole < commitIndex {
		return fmt.Errorf(
			"FATAL: setEntriesAfterIndex(%d, ...) would set iole=%d < commitIndex=%d",
			li,
			newIole,
			commitIndex,
		)
	}
	err := cm.logWO.SetEntriesAfterIndex(li, entries)
	if err != nil {
		return err
	}
	// Entries after li may have been replaced; clients waiting on them
	// will never see those commands commit here.
	return cm.committer.RemoveListenersAfterIndex(li)
}
