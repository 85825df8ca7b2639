package logindex

import (
	"errors"
	"reflect"
	"testing"

	. "github.com/quorumkv/quorumkv"
)

func TestWatchedIndex(t *testing.T) {
	wi := NewWatchedIndex()

	if wi.Get() != 0 {
		t.Fatal()
	}

	// Set without a listener works
	err := wi.Set(3)
	if err != nil {
		t.Fatal(err)
	}
	if wi.Get() != 3 {
		t.Fatal(wi.Get())
	}

	// The listener sees every change
	seen := []LogIndex{}
	wi.SetListener(func(v LogIndex) error {
		seen = append(seen, v)
		return nil
	})

	if err := wi.Set(4); err != nil {
		t.Fatal(err)
	}
	if err := wi.Set(7); err != nil {
		t.Fatal(err)
	}
	if wi.Get() != 7 {
		t.Fatal(wi.Get())
	}
	if !reflect.DeepEqual(seen, []LogIndex{4, 7}) {
		t.Fatal(seen)
	}
}

func TestWatchedIndex_ListenerError(t *testing.T) {
	wi := NewWatchedIndex()

	listenerErr := errors.New("listener says no")
	wi.SetListener(func(v LogIndex) error {
		return listenerErr
	})

	err := wi.Set(1)
	if err != listenerErr {
		t.Fatal(err)
	}
	// the value change is kept even when the listener errors
	if wi.Get() != 1 {
		t.Fatal(wi.Get())
	}
}
