// Package node provides the active consensus node.
//
// A ConsensusModule wraps the passive consensus core with the goroutines
// that drive it: a tick loop, outgoing RPC fan-out with reply routing, and
// the client-facing Submit call. All calls into the core are serialized
// under a single mutex per node, so role transitions and log mutations are
// atomic with respect to each other.
//
// You will have to provide implementations of the following interfaces:
//
//   - PersistentState
//   - Log
//   - StateMachine
//   - RpcService
//
// Notes for implementers of these interfaces:
//
// - Concurrency: a ConsensusModule will only ever call the methods of
// these interfaces from a single goroutine at a time.
//
// - Errors: all errors should be checked and returned. This includes both
// invalid parameters sent by the consensus core and internal errors in the
// implementation. Note that any error will shutdown the ConsensusModule.
package node

import (
	"context"
	"errors"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	. "github.com/quorumkv/quorumkv"
	"github.com/quorumkv/quorumkv/aesender"
	"github.com/quorumkv/quorumkv/committer"
	"github.com/quorumkv/quorumkv/config"
	"github.com/quorumkv/quorumkv/consensus"
	"github.com/quorumkv/quorumkv/util"
)

// A ConsensusModule is an active consensus node.
type ConsensusModule struct {
	mutex sync.Mutex

	pcm *consensus.PassiveConsensusModule

	// -- External components - these fields meant to be immutable
	rpcService RpcService
	committer  *committer.Committer
	logger     *zap.Logger
	metrics    *Metrics

	// -- State
	stopped   bool
	lastState ServerState

	// -- Ticker
	ticker *util.Ticker
}

// NewConsensusModule creates and starts a ConsensusModule with the given
// components and settings.
//
// All parameters are required. timeSettings is checked using
// config.ValidateTimeSettings(). A goroutine that drives ticks is started.
func NewConsensusModule(
	persistentState PersistentState,
	log Log,
	stateMachine StateMachine,
	rpcService RpcService,
	clusterInfo *config.ClusterInfo,
	timeSettings config.TimeSettings,
	clk clock.Clock,
	logger *zap.Logger,
) (*ConsensusModule, error) {
	if rpcService == nil {
		return nil, errors.New("'rpcService' cannot be nil")
	}
	if stateMachine == nil {
		return nil, errors.New("'stateMachine' cannot be nil")
	}
	if clk == nil {
		return nil, errors.New("'clk' cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("'logger' cannot be nil")
	}
	if e := config.ValidateTimeSettings(timeSettings); e != "" {
		return nil, errors.New(e)
	}

	cm := &ConsensusModule{
		rpcService: rpcService,
		logger:     logger,
		metrics:    newMetrics(),
		lastState:  FOLLOWER,
	}

	cm.committer = committer.NewCommitter(log, stateMachine, cm.fatalCommitError)

	aes := aesender.NewLogOnlyAESender(log, cm.sendOnlyRpcAppendEntriesAsync)

	pcm, err := consensus.NewPassiveConsensusModule(
		persistentState,
		log,
		cm.committer,
		cm.sendOnlyRpcRequestVoteAsync,
		aes,
		clusterInfo,
		timeSettings.ElectionTimeoutLow,
		clk,
		logger,
	)
	if err != nil {
		cm.committer.StopSync()
		return nil, err
	}
	cm.pcm = pcm

	// Start the ticker goroutine.
	cm.ticker = util.NewTicker(cm.safeTick, timeSettings.TickerDuration, clk)

	return cm, nil
}

// IsStopped checks if the ConsensusModule is stopped.
func (cm *ConsensusModule) IsStopped() bool {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	return cm.stopped
}

// Stop stops the ConsensusModule and its goroutines.
//
// This call is effectively synchronous as far as the ConsensusModule
// operation is concerned, even though goroutines may not stop immediately.
// Safe to call multiple times.
func (cm *ConsensusModule) Stop() {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	cm.shutdownAndPanic(nil)
}

// GetServerState returns the current server state.
func (cm *ConsensusModule) GetServerState() ServerState {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	return cm.pcm.GetServerState()
}

// GetCommitIndex returns the current commitIndex.
func (cm *ConsensusModule) GetCommitIndex() LogIndex {
	return cm.pcm.GetCommitIndex()
}

// ProcessRpcAppendEntries processes the given RpcAppendEntries message
// from the given peer and returns the reply.
//
// Returns nil if the ConsensusModule is stopped; note that a processing
// error will have shutdown the ConsensusModule.
func (cm *ConsensusModule) ProcessRpcAppendEntries(
	from ServerId,
	rpc *RpcAppendEntries,
) *RpcAppendEntriesReply {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.stopped {
		return nil
	}

	rpcReply, err := cm.pcm.Rpc_RpcAppendEntries(from, rpc)
	if err != nil {
		cm.shutdownAndPanic(err)
		return nil // unreachable code
	}
	cm.noteStateChange()

	return rpcReply
}

// ProcessRpcRequestVote processes the given RpcRequestVote message from
// the given peer and returns the reply.
//
// Returns nil if the ConsensusModule is stopped; note that a processing
// error will have shutdown the ConsensusModule.
func (cm *ConsensusModule) ProcessRpcRequestVote(
	from ServerId,
	rpc *RpcRequestVote,
) *RpcRequestVoteReply {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.stopped {
		return nil
	}

	rpcReply, err := cm.pcm.Rpc_RpcRequestVote(from, rpc)
	if err != nil {
		cm.shutdownAndPanic(err)
		return nil // unreachable code
	}
	cm.noteStateChange()

	return rpcReply
}

// AppendCommand appends the given command as an entry in the log and
// returns its log index.
//
// This can only be done when in LEADER state; otherwise ErrNotLeader is
// returned. Commitment is asynchronous: use Submit to wait for the command
// to commit and apply.
//
// Returns ErrStopped if the ConsensusModule is stopped.
func (cm *ConsensusModule) AppendCommand(command Command) (LogIndex, error) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.stopped {
		return 0, ErrStopped
	}

	logIndex, err := cm.pcm.AppendCommand(command)
	if err != nil && !errors.Is(err, ErrNotLeader) {
		cm.shutdownAndPanic(err)
	}

	return logIndex, err
}

// Submit appends the given command and blocks until it has been committed
// and applied to the state machine, returning the state machine's result.
//
// Returns ErrNotLeader if this node is not the leader, either at append
// time or later if leadership is lost and the entry is replaced before it
// commits. Returns the context's error if the caller's deadline expires
// first - in that case the command may still commit asynchronously; the
// caller must re-query or use idempotent commands to be safe.
func (cm *ConsensusModule) Submit(ctx context.Context, command Command) (CommandResult, error) {
	crc, err := cm.submitAsync(command)
	if err != nil {
		return nil, err
	}

	select {
	case result, ok := <-crc:
		if !ok {
			// Listener closed: entry was replaced after losing leadership.
			return nil, ErrNotLeader
		}
		return result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (cm *ConsensusModule) submitAsync(command Command) (<-chan CommandResult, error) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.stopped {
		return nil, ErrStopped
	}

	logIndex, err := cm.pcm.AppendCommand(command)
	if err != nil {
		if errors.Is(err, ErrNotLeader) {
			return nil, err
		}
		cm.shutdownAndPanic(err)
	}

	crc, err := cm.committer.RegisterListener(logIndex)
	if err != nil {
		cm.shutdownAndPanic(err)
	}

	cm.metrics.CommandsSubmitted.Inc()

	return crc, nil
}

// -- protected methods

// Implement internal.SendOnlyRpcAppendEntriesAsync by bridging to
// RpcService.RpcAppendEntries() with a closure callback.
func (cm *ConsensusModule) sendOnlyRpcAppendEntriesAsync(
	toServer ServerId,
	rpc *RpcAppendEntries,
) {
	go func() {
		// Make the blocking RPC call
		rpcReply := cm.rpcService.RpcAppendEntries(toServer, rpc)

		// A nil reply is a transport timeout - drop it; the next
		// heartbeat tick retries on its own schedule.
		if rpcReply != nil {
			cm.safeProcessRpcReply_AppendEntries(toServer, rpc, rpcReply)
		}
	}()
}

func (cm *ConsensusModule) safeProcessRpcReply_AppendEntries(
	fromPeer ServerId,
	rpc *RpcAppendEntries,
	rpcReply *RpcAppendEntriesReply,
) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if !cm.stopped {
		err := cm.pcm.RpcReply_RpcAppendEntriesReply(fromPeer, rpc, rpcReply)
		if err != nil {
			cm.shutdownAndPanic(err)
		}
		cm.noteStateChange()
	}
}

// Implement internal.SendOnlyRpcRequestVoteAsync by bridging to
// RpcService.RpcRequestVote() with a closure callback.
func (cm *ConsensusModule) sendOnlyRpcRequestVoteAsync(
	toServer ServerId,
	rpc *RpcRequestVote,
) {
	go func() {
		// Make the blocking RPC call
		rpcReply := cm.rpcService.RpcRequestVote(toServer, rpc)

		// A nil reply is a transport timeout - drop it; the election
		// timer restart retries on its own schedule.
		if rpcReply != nil {
			cm.safeProcessRpcReply_RequestVote(toServer, rpc, rpcReply)
		}
	}()
}

func (cm *ConsensusModule) safeProcessRpcReply_RequestVote(
	fromPeer ServerId,
	rpc *RpcRequestVote,
	rpcReply *RpcRequestVoteReply,
) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if !cm.stopped {
		err := cm.pcm.RpcReply_RpcRequestVoteReply(fromPeer, rpc, rpcReply)
		if err != nil {
			cm.shutdownAndPanic(err)
		}
		cm.noteStateChange()
	}
}

func (cm *ConsensusModule) safeTick() {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if !cm.stopped {
		err := cm.pcm.Tick()
		if err != nil {
			cm.shutdownAndPanic(err)
		}
		cm.noteStateChange()
	}
}

// noteStateChange updates metrics on server state transitions.
// Must be called with the mutex held.
func (cm *ConsensusModule) noteStateChange() {
	state := cm.pcm.GetServerState()
	if state == cm.lastState {
		return
	}
	switch state {
	case CANDIDATE:
		cm.metrics.ElectionsStarted.Inc()
	case LEADER:
		cm.metrics.LeaderTransitions.Inc()
	}
	cm.lastState = state
}

// fatalCommitError is the committer's FatalErrorHandler.
func (cm *ConsensusModule) fatalCommitError(err error) {
	cm.logger.Error("fatal commit applier error", zap.Error(err))
	// Stop from another goroutine so that the committer's goroutine can
	// finish its current run.
	go cm.Stop()
}

// shutdownAndPanic shuts the ConsensusModule down.
// Panics if the given error is not nil.
// Must be called with the mutex held.
func (cm *ConsensusModule) shutdownAndPanic(err error) {
	if !cm.stopped {
		cm.stopped = true
		go cm.ticker.StopSync()
		go cm.committer.StopSync()
		if err != nil {
			cm.logger.Error("fatal consensus error - shutting down", zap.Error(err))
			panic(err)
		}
	}
}
