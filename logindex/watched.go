package logindex

import (
	"sync"

	. "github.com/quorumkv/quorumkv"
)

// ChangeListener is called with the new value when a WatchedIndex changes.
type ChangeListener func(LogIndex) error

// WatchedIndex is a LogIndex whose changes can be observed by a listener.
//
// The zero value of the LogIndex is 0.
type WatchedIndex struct {
	lock     sync.Mutex
	value    LogIndex
	listener ChangeListener
}

func NewWatchedIndex() *WatchedIndex {
	return &WatchedIndex{}
}

// SetListener sets the listener that is called on every change.
// Should be called once, before the first Set.
func (p *WatchedIndex) SetListener(listener ChangeListener) {
	p.lock.Lock()
	p.listener = listener
	p.lock.Unlock()
}

// Get the current value.
func (p *WatchedIndex) Get() LogIndex {
	p.lock.Lock()
	v := p.value
	p.lock.Unlock()
	return v
}

// Set the WatchedIndex to the given value.
//
// After the value is changed, the listener is called with the new value
// and Set returns any error it returns.
// Note that the lock is NOT held when the listener is called.
func (p *WatchedIndex) Set(newValue LogIndex) error {
	p.lock.Lock()
	p.value = newValue
	listener := p.listener
	p.lock.Unlock()
	if listener != nil {
		return listener(newValue)
	}
	return nil
}
