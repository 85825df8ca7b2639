// Package vclock implements vector clocks for causality tracking.
package vclock

import (
	. "github.com/quorumkv/quorumkv"
)

// Ordering is the result of comparing two vector clocks under the
// happens-before partial order.
type Ordering int

const (
	// Equal: the clocks are identical.
	Equal Ordering = iota
	// Before: the receiver happens-before the other clock.
	Before
	// After: the other clock happens-before the receiver.
	After
	// Concurrent: neither clock happens-before the other.
	Concurrent
)

func (o Ordering) String() string {
	switch o {
	case Equal:
		return "Equal"
	case Before:
		return "Before"
	case After:
		return "After"
	case Concurrent:
		return "Concurrent"
	default:
		return "Unknown"
	}
}

// VectorClock maps each node to the count of events observed from it.
// An absent node is equivalent to a count of 0.
type VectorClock map[ServerId]uint64

func New() VectorClock {
	return make(VectorClock)
}

// Copy returns an independent copy of the clock.
func (vc VectorClock) Copy() VectorClock {
	c := make(VectorClock, len(vc))
	for id, n := range vc {
		c[id] = n
	}
	return c
}

// Increment bumps the counter of the given node.
func (vc VectorClock) Increment(id ServerId) {
	vc[id]++
}

// Merge sets each counter to the element-wise maximum of the two clocks.
func (vc VectorClock) Merge(other VectorClock) {
	for id, n := range other {
		if n > vc[id] {
			vc[id] = n
		}
	}
}

// Compare determines the ordering between vc and other:
// vc <= other iff for every node, vc[id] <= other[id];
// vc happens-before other iff vc <= other and vc != other;
// concurrent iff neither happens-before the other.
func (vc VectorClock) Compare(other VectorClock) Ordering {
	var vcLess, otherLess bool

	for id, n := range vc {
		if n < other[id] {
			vcLess = true
		} else if n > other[id] {
			otherLess = true
		}
	}
	for id, n := range other {
		if _, ok := vc[id]; !ok && n > 0 {
			vcLess = true
		}
	}

	switch {
	case vcLess && otherLess:
		return Concurrent
	case vcLess:
		return Before
	case otherLess:
		return After
	default:
		return Equal
	}
}

// HappensBefore reports whether vc happens-before other.
func (vc VectorClock) HappensBefore(other VectorClock) bool {
	return vc.Compare(other) == Before
}

// ConcurrentWith reports whether vc and other are concurrent.
func (vc VectorClock) ConcurrentWith(other VectorClock) bool {
	return vc.Compare(other) == Concurrent
}
