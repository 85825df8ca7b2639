package testhelpers

import (
	"bytes"
	"fmt"
	"reflect"
	"strconv"
	"sync"

	. "github.com/quorumkv/quorumkv"
)

// Dummy state machine that implements StateMachine.
// Does not provide any useful state or commands. Meant only for tests.
type DummyStateMachine struct {
	mutex           sync.Mutex
	lastApplied     LogIndex
	appliedCommands []Command
}

// Will serialize to Command("cN")
func DummyCommand(N int) Command {
	return Command("c" + strconv.Itoa(N))
}

func NewDummyStateMachine(lastApplied LogIndex) *DummyStateMachine {
	return &DummyStateMachine{
		lastApplied:     lastApplied,
		appliedCommands: []Command{},
	}
}

func (dsm *DummyStateMachine) GetLastApplied() LogIndex {
	dsm.mutex.Lock()
	defer dsm.mutex.Unlock()
	return dsm.lastApplied
}

// ApplyCommand returns the applied command prefixed with "applied:" so
// tests can check the value delivered to a waiting client.
func (dsm *DummyStateMachine) ApplyCommand(logIndex LogIndex, command Command) CommandResult {
	dsm.mutex.Lock()
	defer dsm.mutex.Unlock()

	if logIndex < dsm.lastApplied {
		panic(fmt.Sprintf(
			"DummyStateMachine: logIndex=%d is < current lastApplied=%d",
			logIndex,
			dsm.lastApplied,
		))
	}

	dsm.appliedCommands = append(dsm.appliedCommands, command)
	dsm.lastApplied = logIndex
	return "applied:" + string(command)
}

func (dsm *DummyStateMachine) AppliedCommandsEqual(cmds ...int) bool {
	dsm.mutex.Lock()
	defer dsm.mutex.Unlock()

	appliedCommands := make([]Command, len(cmds))
	for i, s := range cmds {
		appliedCommands[i] = DummyCommand(s)
	}
	return reflect.DeepEqual(dsm.appliedCommands, appliedCommands)
}

// Helper
func DummyCommandEquals(c Command, n int) bool {
	cn := Command("c" + strconv.Itoa(n))
	return bytes.Equal(c, cn)
}
