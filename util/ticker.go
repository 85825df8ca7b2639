package util

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Ticker calls a function at a given interval on its own goroutine.
//
// The clock is injectable so that tests can drive ticks deterministically
// with a clock.Mock. Drops ticks for slow receivers.
type Ticker struct {
	f            func()
	ticker       *clock.Ticker
	stopSignal   chan struct{}
	runTicksDone *sync.WaitGroup
}

// NewTicker creates a Ticker that calls the given function at the given
// interval, and starts its goroutine.
func NewTicker(f func(), d time.Duration, clk clock.Clock) *Ticker {
	t := &Ticker{
		f:            f,
		ticker:       clk.Ticker(d),
		stopSignal:   make(chan struct{}),
		runTicksDone: &sync.WaitGroup{},
	}

	t.runTicksDone.Add(1)
	go t.runTicks()

	return t
}

// StopSync stops the ticker and waits for the goroutine to finish.
// This means it waits until a running function call is done.
// Should only be called once.
func (t *Ticker) StopSync() {
	close(t.stopSignal)
	t.runTicksDone.Wait()
}

func (t *Ticker) runTicks() {
	defer t.runTicksDone.Done()
	defer t.ticker.Stop()

	for {
		select {
		case <-t.ticker.C:
			t.f()
		case <-t.stopSignal:
			return
		}
	}
}
