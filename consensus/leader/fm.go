package leader

import (
	"fmt"

	. "github.com/quorumkv/quorumkv"
	"github.com/quorumkv/quorumkv/internal"
)

// FollowerManager tracks a leader's replication state for one follower.
type FollowerManager struct {
	peerId ServerId

	// index of the next log entry to send to this follower
	// (initialized to leader last log index + 1)
	nextIndex LogIndex

	// index of highest log entry known to be replicated on this follower
	// (initialized to 0, increases monotonically)
	matchIndex LogIndex

	aeSender internal.IAppendEntriesSender
}

func (fm *FollowerManager) GoString() string {
	return fmt.Sprintf(
		"&FollowerManager{peerId: %d, nextIndex: %d, matchIndex: %d}",
		fm.peerId,
		fm.nextIndex,
		fm.matchIndex,
	)
}

func NewFollowerManager(
	peerId ServerId,
	nextIndex LogIndex,
	matchIndex LogIndex,
	aeSender internal.IAppendEntriesSender,
) *FollowerManager {
	return &FollowerManager{
		peerId,
		nextIndex,
		matchIndex,
		aeSender,
	}
}

func (fm *FollowerManager) GetNextIndex() LogIndex {
	return fm.nextIndex
}

func (fm *FollowerManager) GetMatchIndex() LogIndex {
	return fm.matchIndex
}

// DecrementNextIndex backs off nextIndex after a log-mismatch rejection.
func (fm *FollowerManager) DecrementNextIndex() error {
	if fm.nextIndex <= 1 {
		return fmt.Errorf(
			"FollowerManager.DecrementNextIndex(): nextIndex already <=1 for peer: %v",
			fm.peerId,
		)
	}
	fm.nextIndex--
	return nil
}

// SetMatchIndexAndNextIndex sets matchIndex and updates nextIndex to
// matchIndex+1 after a successful AppendEntries.
func (fm *FollowerManager) SetMatchIndexAndNextIndex(matchIndex LogIndex) {
	fm.nextIndex = matchIndex + 1
	fm.matchIndex = matchIndex
}

// SendAppendEntriesToPeerAsync constructs and sends an RpcAppendEntries
// to this follower.
func (fm *FollowerManager) SendAppendEntriesToPeerAsync(
	empty bool,
	currentTerm TermNo,
	commitIndex LogIndex,
) error {
	return fm.aeSender.SendAppendEntriesToPeerAsync(
		internal.SendAppendEntriesParams{
			PeerId:        fm.peerId,
			PeerNextIndex: fm.nextIndex,
			Empty:         empty,
			CurrentTerm:   currentTerm,
			CommitIndex:   commitIndex,
		},
	)
}
