// Package committer applies committed log entries to the state machine.
package committer

import (
	"fmt"
	"sync"

	. "github.com/quorumkv/quorumkv"
	"github.com/quorumkv/quorumkv/internal"
	"github.com/quorumkv/quorumkv/util"
)

// FatalErrorHandler is called when the Committer's goroutine encounters an
// error it cannot recover from. The handler is expected to stop the
// enclosing node.
type FatalErrorHandler func(err error)

// Committer is an implementation of the internal ICommitter interface.
//
// It owns a goroutine that applies committed log entries to the state
// machine and notifies clients that are waiting for those entries to be
// committed.
type Committer struct {
	mutex sync.Mutex

	stopRequest bool

	// index of highest log entry known to be committed
	// (initialized to 0, increases monotonically)
	commitIndex LogIndex

	// -- External components
	log          internal.LogTailOnlyRO
	stateMachine StateMachine
	feHandler    FatalErrorHandler

	// -- Internal components
	commitApplier *util.TriggeredRunner

	// -- Commit listeners
	listeners              map[LogIndex]chan CommandResult
	highestRegisteredIndex LogIndex
}

// Check that Committer implements ICommitter
var _ internal.ICommitter = (*Committer)(nil)

// NewCommitter creates a new Committer and starts its applier goroutine.
func NewCommitter(
	log internal.LogTailOnlyRO,
	stateMachine StateMachine,
	feHandler FatalErrorHandler,
) *Committer {
	c := &Committer{
		log:          log,
		stateMachine: stateMachine,
		feHandler:    feHandler,
		listeners:    make(map[LogIndex]chan CommandResult),
	}
	c.commitApplier = util.NewTriggeredRunner(c.applyPendingCommits)

	return c
}

// StopSync stops the Committer's goroutine.
//
// Will panic if called more than once.
func (c *Committer) StopSync() {
	c.mutex.Lock()
	c.stopRequest = true
	c.mutex.Unlock()

	c.commitApplier.StopSync()
}

// ---- Implement ICommitter

func (c *Committer) RegisterListener(logIndex LogIndex) (<-chan CommandResult, error) {
	iole, err := c.log.GetIndexOfLastEntry()
	if err != nil {
		return nil, err
	}
	if logIndex > iole {
		return nil, fmt.Errorf(
			"FATAL: logIndex=%v is > current iole=%v", logIndex, iole,
		)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if logIndex <= c.commitIndex {
		return nil, fmt.Errorf(
			"FATAL: logIndex=%v is <= commitIndex=%v", logIndex, c.commitIndex,
		)
	}
	if logIndex <= c.highestRegisteredIndex {
		return nil, fmt.Errorf(
			"FATAL: logIndex=%v is <= highestRegisteredIndex=%v",
			logIndex,
			c.highestRegisteredIndex,
		)
	}

	crc := make(chan CommandResult, 1)

	c.listeners[logIndex] = crc
	c.highestRegisteredIndex = logIndex

	return crc, nil
}

func (c *Committer) RemoveListenersAfterIndex(afterIndex LogIndex) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for i := afterIndex + 1; i <= c.highestRegisteredIndex; i++ {
		crc, ok := c.listeners[i]
		if ok {
			delete(c.listeners, i)
			close(crc)
		}
	}

	if afterIndex < c.highestRegisteredIndex {
		c.highestRegisteredIndex = afterIndex
	}

	return nil
}

// CommitAsync commits log entries to the state machine asynchronously up
// to the given index.
//
// Returns an error if commitIndex would decrease or run past the log.
func (c *Committer) CommitAsync(commitIndex LogIndex) error {
	iole, err := c.log.GetIndexOfLastEntry()
	if err != nil {
		return err
	}
	if commitIndex > iole {
		return fmt.Errorf(
			"FATAL: commitIndex=%v is > current iole=%v", commitIndex, iole,
		)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if commitIndex < c.commitIndex {
		return fmt.Errorf(
			"FATAL: commitIndex=%v is < current commitIndex=%v", commitIndex, c.commitIndex,
		)
	}

	// Update commitIndex and then trigger a run of the applier goroutine
	c.commitIndex = commitIndex
	c.commitApplier.TriggerRun()

	return nil
}

// ----

// Apply pending committed entries.
func (c *Committer) applyPendingCommits() {
	// Concurrency:
	// - there is only one call to this method at a time
	// - commitIndex can only increase, so we can snapshot it as a low value

	for {
		c.mutex.Lock()
		stopRequest := c.stopRequest
		commitIndexSnapshot := c.commitIndex
		c.mutex.Unlock()

		if stopRequest {
			return
		}

		lastApplied := c.stateMachine.GetLastApplied()

		// No more entries to apply at this time.
		// (TriggeredRunner will call again if CommitAsync advanced commitIndex)
		if lastApplied >= commitIndexSnapshot {
			return
		}

		// Get a batch of entries from the log.
		entries, err := c.log.GetEntriesAfterIndex(lastApplied)
		if err != nil {
			c.feHandler(err)
			return
		}

		for _, entry := range entries {
			indexToApply := lastApplied + 1

			// Stop if the next entry is past the commitIndex.
			if indexToApply > commitIndexSnapshot {
				return
			}

			// Get the commit listener for this index.
			c.mutex.Lock()
			stopRequest = c.stopRequest
			// since we have the mutex, update our copy of commitIndex
			commitIndexSnapshot = c.commitIndex
			crc, haveCrc := c.listeners[indexToApply]
			if haveCrc {
				delete(c.listeners, indexToApply)
			}
			c.mutex.Unlock()

			if stopRequest {
				return
			}

			// Apply the command to the state machine.
			commandResult := c.stateMachine.ApplyCommand(indexToApply, entry.Command)

			// Send the result to the commit listener.
			if haveCrc {
				crc <- commandResult
			}

			// The index of the entry we have just applied MUST be the new
			// value of lastApplied.
			lastApplied = indexToApply
		}
	}
}
