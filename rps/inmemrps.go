// Package rps provides an in-memory implementation of PersistentState.
//
// Nothing survives a process restart; use the durable package for state
// that must survive crashes.
package rps

import (
	"errors"
	"fmt"
	"sync"

	. "github.com/quorumkv/quorumkv"
)

// InMemoryPersistentState is an in-memory implementation of
// PersistentState.
type InMemoryPersistentState struct {
	mutex       sync.Mutex
	currentTerm TermNo
	votedFor    ServerId
}

// Check that InMemoryPersistentState implements PersistentState
var _ PersistentState = (*InMemoryPersistentState)(nil)

func NewInMemoryPersistentState(currentTerm TermNo) *InMemoryPersistentState {
	return &InMemoryPersistentState{currentTerm: currentTerm}
}

func (imps *InMemoryPersistentState) GetCurrentTerm() TermNo {
	imps.mutex.Lock()
	defer imps.mutex.Unlock()
	return imps.currentTerm
}

func (imps *InMemoryPersistentState) GetVotedFor() ServerId {
	imps.mutex.Lock()
	defer imps.mutex.Unlock()
	return imps.votedFor
}

func (imps *InMemoryPersistentState) SetCurrentTerm(currentTerm TermNo) error {
	imps.mutex.Lock()
	defer imps.mutex.Unlock()
	if currentTerm == 0 {
		return errors.New("FATAL: attempt to set currentTerm to 0")
	}
	if currentTerm < imps.currentTerm {
		return fmt.Errorf(
			"FATAL: attempt to decrease currentTerm: %v to %v", imps.currentTerm, currentTerm,
		)
	}
	if currentTerm > imps.currentTerm {
		// votedFor is per-term state
		imps.votedFor = 0
	}
	imps.currentTerm = currentTerm
	return nil
}

func (imps *InMemoryPersistentState) SetVotedFor(votedFor ServerId) error {
	imps.mutex.Lock()
	defer imps.mutex.Unlock()
	if imps.currentTerm == 0 {
		return errors.New("FATAL: attempt to set votedFor while currentTerm is 0")
	}
	if votedFor == 0 {
		return errors.New("FATAL: attempt to set votedFor to 0")
	}
	if imps.votedFor != 0 {
		return fmt.Errorf(
			"FATAL: attempt to change non-zero votedFor: %v to %v", imps.votedFor, votedFor,
		)
	}
	imps.votedFor = votedFor
	return nil
}
