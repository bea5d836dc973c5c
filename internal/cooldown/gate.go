// Package cooldown debounces handshake triggers so that one continuous
// handshake produces a single capture.
package cooldown

import "time"

// DefaultDuration is the minimum time between accepted triggers.
const DefaultDuration = 3 * time.Second

// Gate accepts a trigger only when the previous accepted trigger is at least
// Duration old. It is owned by a single goroutine and does no locking.
type Gate struct {
	duration time.Duration
	last     time.Time
	fired    bool
}

// New creates a Gate. A negative duration is treated as zero.
func New(d time.Duration) *Gate {
	if d < 0 {
		d = 0
	}
	return &Gate{duration: d}
}

// Duration returns the configured cooldown.
func (g *Gate) Duration() time.Duration {
	return g.duration
}

// TryTrigger reports whether a trigger at now is accepted. Accepted triggers
// record now; rejected ones leave the gate untouched.
func (g *Gate) TryTrigger(now time.Time) bool {
	if g.fired && now.Sub(g.last) < g.duration {
		return false
	}
	g.last = now
	g.fired = true
	return true
}

// Last returns the time of the last accepted trigger, if any.
func (g *Gate) Last() (time.Time, bool) {
	return g.last, g.fired
}
