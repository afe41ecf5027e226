package testutil

import (
	"sync"
	"time"

	"github.com/ryswick/floodgate/types"
)

// ManualClock implements types.Clock with time that only moves when the test
// calls Advance or Set. Timers and tickers created from it fire during the
// Advance call that crosses their deadline, which makes expiry-dependent
// behavior deterministic without real sleeps.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*manualWaiter
}

// manualWaiter is a pending timer or ticker deadline. For tickers, period is
// non-zero and the deadline re-arms after each fire.
type manualWaiter struct {
	deadline time.Time
	period   time.Duration
	ch       chan time.Time
	stopped  bool
}

// NewManualClock returns a ManualClock starting at an arbitrary fixed instant.
func NewManualClock() *ManualClock {
	return &ManualClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

func (c *ManualClock) After(d time.Duration) <-chan time.Time {
	return c.NewTimer(d).Chan()
}

func (c *ManualClock) NewTimer(d time.Duration) types.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := &manualWaiter{deadline: c.now.Add(d), ch: make(chan time.Time, 1)}
	c.waiters = append(c.waiters, w)
	if d <= 0 {
		w.fire(c.now)
		w.deadline = time.Time{}
	}
	return &manualTimer{clock: c, w: w}
}

func (c *ManualClock) NewTicker(d time.Duration) types.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := &manualWaiter{deadline: c.now.Add(d), period: d, ch: make(chan time.Time, 1)}
	c.waiters = append(c.waiters, w)
	return &manualTicker{clock: c, w: w}
}

// Sleep advances the clock by d instead of blocking, so code paths that
// back off with Sleep make progress under test without wall time passing.
func (c *ManualClock) Sleep(d time.Duration) {
	if d > 0 {
		c.Advance(d)
	}
}

// Advance moves the clock forward by d and fires every waiter whose deadline
// falls within the new window, in deadline order.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(c.now.Add(d))
}

// Set jumps the clock to t. Moving backwards only changes Now; no waiter
// un-fires.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(t)
}

func (c *ManualClock) setLocked(target time.Time) {
	for {
		next := c.nextDeadlineLocked(target)
		if next == nil {
			break
		}
		c.now = next.deadline
		next.fire(c.now)
		if next.period > 0 {
			next.deadline = next.deadline.Add(next.period)
		} else {
			next.deadline = time.Time{}
		}
	}
	if target.After(c.now) {
		c.now = target
	}
	c.compactLocked()
}

// nextDeadlineLocked returns the armed waiter with the earliest deadline not
// after target, or nil when none remain in the window.
func (c *ManualClock) nextDeadlineLocked(target time.Time) *manualWaiter {
	var next *manualWaiter
	for _, w := range c.waiters {
		if w.stopped || w.deadline.IsZero() || w.deadline.After(target) {
			continue
		}
		if next == nil || w.deadline.Before(next.deadline) {
			next = w
		}
	}
	return next
}

func (c *ManualClock) compactLocked() {
	live := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.stopped && !w.deadline.IsZero() {
			live = append(live, w)
		}
	}
	c.waiters = live
}

func (w *manualWaiter) fire(now time.Time) {
	select {
	case w.ch <- now:
	default:
	}
}

type manualTimer struct {
	clock *ManualClock
	w     *manualWaiter
}

func (t *manualTimer) Chan() <-chan time.Time {
	return t.w.ch
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	armed := !t.w.stopped && !t.w.deadline.IsZero()
	t.w.stopped = true
	return armed
}

func (t *manualTimer) Reset(d time.Duration) bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	armed := !t.w.stopped && !t.w.deadline.IsZero()
	t.w.stopped = false
	t.w.deadline = t.clock.now.Add(d)
	if !contains(t.clock.waiters, t.w) {
		t.clock.waiters = append(t.clock.waiters, t.w)
	}
	if d <= 0 {
		t.w.fire(t.clock.now)
		t.w.deadline = time.Time{}
	}
	return armed
}

type manualTicker struct {
	clock *ManualClock
	w     *manualWaiter
}

func (t *manualTicker) Chan() <-chan time.Time {
	return t.w.ch
}

func (t *manualTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.w.stopped = true
}

func (t *manualTicker) Reset(d time.Duration) {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.w.stopped = false
	t.w.period = d
	t.w.deadline = t.clock.now.Add(d)
	if !contains(t.clock.waiters, t.w) {
		t.clock.waiters = append(t.clock.waiters, t.w)
	}
}

func contains(waiters []*manualWaiter, w *manualWaiter) bool {
	for _, cur := range waiters {
		if cur == w {
			return true
		}
	}
	return false
}
