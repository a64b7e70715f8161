package game

import "time"

// TimeProvider supplies the current time to the clock.
type TimeProvider interface {
	Now() time.Time
}

// SystemTime reads the monotonic system clock.
type SystemTime struct{}

// Now returns time.Now().
func (SystemTime) Now() time.Time {
	return time.Now()
}

// Clock converts elapsed wall time into whole simulation ticks at a fixed
// rate. The fractional remainder carries between polls, so the number of
// ticks per poll varies while the long-run rate stays stable.
type Clock struct {
	tp        TimeProvider
	nsPerTick float64
	last      time.Time
	delta     float64
}

// NewClock creates a clock producing rate ticks per second. A nil provider
// uses SystemTime.
func NewClock(rate float64, tp TimeProvider) *Clock {
	if tp == nil {
		tp = SystemTime{}
	}
	if rate <= 0 {
		rate = 60
	}
	return &Clock{
		tp:        tp,
		nsPerTick: float64(time.Second) / rate,
		last:      tp.Now(),
	}
}

// Poll returns how many ticks are due since the previous poll.
func (c *Clock) Poll() int {
	now := c.tp.Now()
	c.delta += float64(now.Sub(c.last)) / c.nsPerTick
	c.last = now

	ticks := 0
	for c.delta >= 1 {
		ticks++
		c.delta--
	}
	return ticks
}

// Reset drops any accumulated time and restarts measuring from now.
func (c *Clock) Reset() {
	c.last = c.tp.Now()
	c.delta = 0
}
