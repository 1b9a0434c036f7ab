package session

import "time"

// expiryClock drives the countdown for one viewing session. It never counts
// down a local variable: remaining time is recomputed from the authoritative
// absolute expiry timestamp on every tick, so a suspended and resumed clock
// stays honest about wall-clock time.
type expiryClock struct {
	expireAt time.Time
	now      func() time.Time
	ticker   *time.Ticker
}

func newExpiryClock(expireAt time.Time, interval time.Duration, now func() time.Time) *expiryClock {
	return &expiryClock{
		expireAt: expireAt,
		now:      now,
		ticker:   time.NewTicker(interval),
	}
}

func (c *expiryClock) C() <-chan time.Time {
	return c.ticker.C
}

// Remaining returns whole seconds left until expiry, floored at zero.
func (c *expiryClock) Remaining() int {
	left := int(c.expireAt.Sub(c.now()) / time.Second)
	if left < 0 {
		return 0
	}
	return left
}

// Expired reports whether the absolute expiry timestamp has passed.
func (c *expiryClock) Expired() bool {
	return !c.now().Before(c.expireAt)
}

func (c *expiryClock) Stop() {
	c.ticker.Stop()
}
