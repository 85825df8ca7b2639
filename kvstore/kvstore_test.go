package kvstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/quorumkv/quorumkv"
)

func TestKVStore_SetAndDelete(t *testing.T) {
	s := NewKVStore()
	assert.Equal(t, LogIndex(0), s.GetLastApplied())

	set, err := EncodeSet("k1", []byte("v1"))
	require.NoError(t, err)
	result := s.ApplyCommand(1, set)
	assert.Nil(t, result)
	assert.Equal(t, LogIndex(1), s.GetLastApplied())

	v, ok := s.Get("k1")
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), v)

	set2, err := EncodeSet("k1", []byte("v2"))
	require.NoError(t, err)
	s.ApplyCommand(2, set2)
	v, _ = s.Get("k1")
	assert.Equal(t, []byte("v2"), v)

	del, err := EncodeDelete("k1")
	require.NoError(t, err)
	result = s.ApplyCommand(3, del)
	assert.Nil(t, result)
	_, ok = s.Get("k1")
	assert.False(t, ok)
	assert.Equal(t, LogIndex(3), s.GetLastApplied())
}

func TestKVStore_DeleteMissingKeyIsNoop(t *testing.T) {
	s := NewKVStore()

	del, err := EncodeDelete("missing")
	require.NoError(t, err)
	result := s.ApplyCommand(1, del)
	assert.Nil(t, result)
	assert.Equal(t, 0, s.Len())
}

func TestKVStore_MalformedCommandConsumesIndex(t *testing.T) {
	s := NewKVStore()

	result := s.ApplyCommand(1, Command("not json"))
	resultErr, ok := result.(error)
	require.True(t, ok)
	assert.Error(t, resultErr)
	assert.Equal(t, LogIndex(1), s.GetLastApplied())

	result = s.ApplyCommand(2, Command(`{"op":"bogus","key":"k"}`))
	resultErr, ok = result.(error)
	require.True(t, ok)
	assert.Error(t, resultErr)
	assert.Equal(t, LogIndex(2), s.GetLastApplied())
	assert.Equal(t, 0, s.Len())
}

func TestKVStore_Keys(t *testing.T) {
	s := NewKVStore()

	for i, key := range []string{"a", "b", "c"} {
		set, err := EncodeSet(key, []byte(key))
		require.NoError(t, err)
		s.ApplyCommand(LogIndex(i+1), set)
	}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, s.Keys())
	assert.Equal(t, 3, s.Len())
}

func TestEncode_RoundTripThroughApply(t *testing.T) {
	s := NewKVStore()

	// values are opaque bytes, including non-UTF8
	value := []byte{0x00, 0xff, 0x10}
	set, err := EncodeSet("bin", value)
	require.NoError(t, err)
	assert.Nil(t, s.ApplyCommand(1, set))

	v, ok := s.Get("bin")
	require.True(t, ok)
	assert.Equal(t, value, v)
}
