package util_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/quorumkv/quorumkv/util"
)

func TestTriggeredRunner(t *testing.T) {
	var runCount int32
	started := make(chan struct{})
	gate := make(chan struct{})
	f := func() {
		started <- struct{}{}
		<-gate
		atomic.AddInt32(&runCount, 1)
	}

	getRunCount := func() int32 {
		return atomic.LoadInt32(&runCount)
	}

	tr := util.NewTriggeredRunner(f)

	// No first run without trigger
	time.Sleep(10 * time.Millisecond)
	if getRunCount() != 0 {
		t.Fatal()
	}

	// TriggerRun should run the function
	tr.TriggerRun() // Run #1
	<-started
	gate <- struct{}{}
	waitForRunCount(t, getRunCount, 1)

	// Extra TriggerRuns while a run is in progress collapse into one
	// pending run
	tr.TriggerRun() // Run #2
	<-started
	tr.TriggerRun() // Run #3
	tr.TriggerRun() // should be collapsed into pending run #3
	tr.TriggerRun() // should be collapsed into pending run #3
	gate <- struct{}{} // release run #2
	<-started
	gate <- struct{}{} // release run #3
	waitForRunCount(t, getRunCount, 3)

	// StopSync waits for the current run to complete
	tr.TriggerRun() // Run #4
	<-started
	go func() { gate <- struct{}{} }()
	tr.StopSync()
	if getRunCount() != 4 {
		t.Fatal(getRunCount())
	}

	// TriggerRun after StopSync panics
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	tr.TriggerRun()
}

func waitForRunCount(t *testing.T, getRunCount func() int32, want int32) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for getRunCount() != want {
		if time.Now().After(deadline) {
			t.Fatal(getRunCount(), want)
		}
		time.Sleep(time.Millisecond)
	}
}
