// Package shutdown turns OS signals into a stop flag polled by the
// sampling loop.
//
// The signal goroutine only stores into an atomic.Bool; every release of
// hardware and broker resources happens on the loop goroutine after it sees
// the flag.
package shutdown

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// DefaultSignals are registered when Register is called without arguments.
var DefaultSignals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP}

// Coordinator owns the stop flag.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Coordinator struct {
	stopped atomic.Bool

	registerOnce sync.Once
	closeOnce    sync.Once
	sigs         chan os.Signal
	done         chan struct{}
}

// New returns a Coordinator with the flag clear and no signals registered.
func New() *Coordinator {
	return &Coordinator{done: make(chan struct{})}
}

// Register subscribes to signals (DefaultSignals when none are given). Only
// the first call has any effect.
func (c *Coordinator) Register(signals ...os.Signal) {
	c.registerOnce.Do(func() {
		if len(signals) == 0 {
			signals = DefaultSignals
		}
		c.sigs = make(chan os.Signal, 1)
		signal.Notify(c.sigs, signals...)

		go func() {
			for {
				select {
				case <-c.sigs:
					c.stopped.Store(true)
				case <-c.done:
					return
				}
			}
		}()
	})
}

// Stop sets the flag as if a signal had arrived.
func (c *Coordinator) Stop() {
	c.stopped.Store(true)
}

// Stopped reports whether a stop was requested.
func (c *Coordinator) Stopped() bool {
	return c.stopped.Load()
}

// Close unsubscribes from signals and stops the delivery goroutine. The
// flag keeps its value. Calling Close more than once is safe.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		if c.sigs != nil {
			signal.Stop(c.sigs)
		}
		close(c.done)
	})
}
