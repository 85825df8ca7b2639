package consensus

import (
	"fmt"
	"reflect"

	"github.com/quorumkv/quorumkv"
)

type mockCommitterCall struct {
	name  string
	param quorumkv.LogIndex
}

type mockCommitter struct {
	calls []mockCommitterCall
}

func newMockCommitter() *mockCommitter {
	return &mockCommitter{}
}

func (mc *mockCommitter) CheckCalls(expected []mockCommitterCall) {
	if len(mc.calls) == 0 && len(expected) == 0 {
		return
	}
	if !reflect.DeepEqual(mc.calls, expected) {
		panic(fmt.Sprintf("%v", mc.calls))
	}
	mc.calls = nil
}

func (mc *mockCommitter) RegisterListener(
	logIndex quorumkv.LogIndex,
) (<-chan quorumkv.CommandResult, error) {
	r := make(chan quorumkv.CommandResult, 1)
	mc.calls = append(mc.calls, mockCommitterCall{"RegisterListener", logIndex})
	return r, nil
}

func (mc *mockCommitter) RemoveListenersAfterIndex(afterIndex quorumkv.LogIndex) error {
	mc.calls = append(mc.calls, mockCommitterCall{"RemoveListenersAfterIndex", afterIndex})
	return nil
}

func (mc *mockCommitter) CommitAsync(commitIndex quorumkv.LogIndex) error {
	mc.calls = append(mc.calls, mockCommitterCall{"CommitAsync", commitIndex})
	return nil
}
