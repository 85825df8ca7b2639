package util

import (
	"math/rand"
	"sync"
	"time"
)

// ElectionTimeoutChooser chooses random election timeouts.
//
// Election timeouts must be randomized per node to avoid repeated split
// votes: e.g. chosen randomly from a fixed interval such as 150-300ms.
type ElectionTimeoutChooser struct {
	mutex              sync.Mutex
	rand               *rand.Rand
	electionTimeoutLow time.Duration
}

func NewElectionTimeoutChooser(electionTimeoutLow time.Duration) *ElectionTimeoutChooser {
	return &ElectionTimeoutChooser{
		rand:               rand.New(rand.NewSource(time.Now().UnixNano())),
		electionTimeoutLow: electionTimeoutLow,
	}
}

// ChooseRandomElectionTimeout returns a duration chosen uniformly from
// [electionTimeoutLow, 2*electionTimeoutLow].
func (etc *ElectionTimeoutChooser) ChooseRandomElectionTimeout() time.Duration {
	etc.mutex.Lock()
	defer etc.mutex.Unlock()
	return etc.electionTimeoutLow + time.Duration(etc.rand.Int63n(int64(etc.electionTimeoutLow)+1))
}
