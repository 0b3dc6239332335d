// Package timer provides the cancellable one-second countdown behind locally
// ticking displays. Starting returns a handle; stopping the handle
// deterministically cancels any pending tick, so rapid state changes cannot
// leak a ticking goroutine or double-decrement a display.
package timer

import (
	"sync"
	"time"
)

// Countdown ticks once per second from an initial number of seconds down to
// zero, invoking onTick after each whole elapsed second and onExpire once at
// zero. It is purely presentational: callers reseed it from authoritative
// state and must never treat its value as the system of record.
type Countdown struct {
	interval time.Duration

	mu        sync.Mutex
	remaining int
	stop      chan struct{}
	done      chan struct{}
}

// NewCountdown returns an idle countdown. The tick interval is one second;
// tests shorten it with SetInterval before Start.
func NewCountdown() *Countdown {
	return &Countdown{interval: time.Second}
}

func (c *Countdown) SetInterval(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interval = d
}

// Start begins ticking from the given number of seconds. Any previous run is
// cancelled first, so Start doubles as a reseed from fresh server state.
func (c *Countdown) Start(seconds int, onTick func(remaining int), onExpire func()) {
	c.Stop()

	if seconds <= 0 {
		c.mu.Lock()
		c.remaining = 0
		c.mu.Unlock()
		if onExpire != nil {
			onExpire()
		}
		return
	}

	c.mu.Lock()
	c.remaining = seconds
	stop := make(chan struct{})
	done := make(chan struct{})
	c.stop = stop
	c.done = done
	interval := c.interval
	c.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.mu.Lock()
				c.remaining--
				remaining := c.remaining
				c.mu.Unlock()
				if onTick != nil {
					onTick(remaining)
				}
				if remaining <= 0 {
					if onExpire != nil {
						onExpire()
					}
					return
				}
			}
		}
	}()
}

// Stop cancels the current run and waits for the tick goroutine to exit. It
// is safe to call when idle and safe to call twice.
func (c *Countdown) Stop() {
	c.mu.Lock()
	stop := c.stop
	done := c.done
	c.stop = nil
	c.done = nil
	c.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Remaining reports the ticker's current local value.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}
