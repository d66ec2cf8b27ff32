// Package testutil holds helpers shared by package tests.
package testutil

import (
	"sync"
	"time"
)

// Epoch is the instant every VirtualClock starts at.
var Epoch = time.Date(2026, time.October, 19, 8, 0, 0, 0, time.UTC)

// VirtualClock is a poll.Clock whose time only moves when something waits.
//
// After(d) advances the clock by d and returns an already-fired channel, so
// a poll budget of several seconds completes instantly while still
// exercising the same deadline arithmetic as wall time.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type VirtualClock struct {
	mu    sync.Mutex
	now   time.Time
	waits int
}

// NewVirtualClock creates a clock positioned at Epoch.
func NewVirtualClock() *VirtualClock {
	return &VirtualClock{now: Epoch}
}

// Now returns the current virtual time.
func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After advances the clock by d and returns a channel that is ready.
func (c *VirtualClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.now = c.now.Add(d)
	}
	c.waits++
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

// Advance moves the clock forward without counting a wait.
func (c *VirtualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Elapsed returns the virtual time passed since Epoch.
func (c *VirtualClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now.Sub(Epoch)
}

// Waits returns how many times After was called.
func (c *VirtualClock) Waits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waits
}

// Reset returns the clock to Epoch.
//
// Used for test reuse.
func (c *VirtualClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = Epoch
	c.waits = 0
}
