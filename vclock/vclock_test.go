package vclock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVectorClock_EmptyClocksAreEqual(t *testing.T) {
	a := New()
	b := New()

	assert.Equal(t, Equal, a.Compare(b))
	assert.False(t, a.HappensBefore(b))
	assert.False(t, a.ConcurrentWith(b))
}

func TestVectorClock_AbsentNodeIsZero(t *testing.T) {
	a := New()
	b := VectorClock{1: 0, 2: 0}

	assert.Equal(t, Equal, a.Compare(b))
	assert.Equal(t, Equal, b.Compare(a))
}

func TestVectorClock_IncrementOrders(t *testing.T) {
	a := New()
	b := a.Copy()
	b.Increment(1)

	assert.Equal(t, Before, a.Compare(b))
	assert.Equal(t, After, b.Compare(a))
	assert.True(t, a.HappensBefore(b))
	assert.False(t, b.HappensBefore(a))

	// A strict superset of events dominates
	c := b.Copy()
	c.Increment(1)
	c.Increment(2)
	assert.Equal(t, Before, b.Compare(c))
	assert.Equal(t, After, c.Compare(b))
}

func TestVectorClock_Concurrent(t *testing.T) {
	a := VectorClock{1: 2, 2: 1}
	b := VectorClock{1: 1, 2: 2}

	assert.Equal(t, Concurrent, a.Compare(b))
	assert.Equal(t, Concurrent, b.Compare(a))
	assert.True(t, a.ConcurrentWith(b))
	assert.True(t, b.ConcurrentWith(a))
}

func TestVectorClock_MergeIsElementwiseMax(t *testing.T) {
	a := VectorClock{1: 2, 2: 1}
	b := VectorClock{1: 1, 2: 2, 3: 5}

	a.Merge(b)
	assert.Equal(t, VectorClock{1: 2, 2: 2, 3: 5}, a)

	// The merged clock is >= both inputs
	assert.Equal(t, After, a.Compare(b))
	assert.Equal(t, After, a.Compare(VectorClock{1: 2, 2: 1}))
}

func TestVectorClock_CopyIsIndependent(t *testing.T) {
	a := VectorClock{1: 1}
	b := a.Copy()
	b.Increment(1)
	b.Increment(2)

	assert.Equal(t, VectorClock{1: 1}, a)
	assert.Equal(t, VectorClock{1: 2, 2: 1}, b)
}

func TestOrdering_String(t *testing.T) {
	assert.Equal(t, "Equal", Equal.String())
	assert.Equal(t, "Before", Before.String())
	assert.Equal(t, "After", After.String())
	assert.Equal(t, "Concurrent", Concurrent.String())
	assert.Equal(t, "Unknown", Ordering(42).String())
}
