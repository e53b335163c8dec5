package auth

import (
	"sync"
	"time"
)

// countdown is a cancellable one-second-tick timer backing the OTP expiry
// display and the resend gate. The tick goroutine stops itself at zero and is
// stopped explicitly when the owning controller is closed, so no periodic
// callback outlives its owner.
type countdown struct {
	mu        sync.Mutex
	remaining int
	stop      chan struct{}
	interval  time.Duration
}

func newCountdown(interval time.Duration) *countdown {
	if interval <= 0 {
		interval = time.Second
	}
	return &countdown{interval: interval}
}

// Start resets the countdown to seconds and (re)starts the tick goroutine.
func (c *countdown) Start(seconds int) {
	c.mu.Lock()
	if c.stop != nil {
		close(c.stop)
	}
	c.remaining = seconds
	stop := make(chan struct{})
	c.stop = stop
	c.mu.Unlock()

	go c.run(stop)
}

func (c *countdown) run(stop chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.stop != stop {
				// A newer Start superseded this goroutine.
				c.mu.Unlock()
				return
			}
			if c.remaining > 0 {
				c.remaining--
			}
			done := c.remaining == 0
			if done {
				close(c.stop)
				c.stop = nil
			}
			c.mu.Unlock()
			if done {
				return
			}
		}
	}
}

// Remaining returns the seconds left.
func (c *countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Running reports whether the tick goroutine is active.
func (c *countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil
}

// Stop cancels the tick goroutine without touching the remaining value.
func (c *countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}
