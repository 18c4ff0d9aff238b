// Package clocktest provides a manually advanced delivery.Clock.
package clocktest

import (
	"sync"
	"time"

	"github.com/danmuck/marsipan/internal/delivery"
)

// Clock only moves when Advance or Set is called.
type Clock struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*timer
	created int
}

func New(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) NewTimer(d time.Duration) delivery.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.created++
	t := &timer{at: c.now.Add(d), ch: make(chan time.Time, 1)}
	if d <= 0 {
		t.fired = true
		t.ch <- c.now
	} else {
		c.timers = append(c.timers, t)
	}
	return t
}

// Advance moves the clock forward and fires every due timer.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	pending := c.timers[:0]
	for _, t := range c.timers {
		t.mu.Lock()
		switch {
		case t.stopped:
		case !t.at.After(c.now):
			t.fired = true
			t.ch <- c.now
		default:
			pending = append(pending, t)
		}
		t.mu.Unlock()
	}
	c.timers = pending
}

// TimersCreated counts NewTimer calls.
func (c *Clock) TimersCreated() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created
}

type timer struct {
	mu      sync.Mutex
	at      time.Time
	ch      chan time.Time
	fired   bool
	stopped bool
}

func (t *timer) C() <-chan time.Time { return t.ch }

func (t *timer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	active := !t.fired && !t.stopped
	t.stopped = true
	return active
}
