package frame

import (
	"time"

	"mirage/internal/config"
)

// pausedFPS caps the frame rate while the simulation is paused.
const pausedFPS = 30

// spinWindow is how close to the deadline the limiter stops sleeping and polls instead.
const spinWindow = 200 * time.Microsecond

// Limiter paces frames to config.GetFPSLimit.
type Limiter struct {
	clock Clock
	next  time.Time
}

// NewLimiter returns a limiter reading time from clock.
func NewLimiter(clock Clock) *Limiter {
	return &Limiter{clock: clock}
}

// Wait blocks until the next frame is due. Sleeping stops shortly before the deadline and the
// remainder is polled, which is far more precise than a single sleep at high frame rates.
func (l *Limiter) Wait(paused bool) {
	limit := config.GetFPSLimit()
	if paused && (limit <= 0 || limit > pausedFPS) {
		limit = pausedFPS
	}
	if limit <= 0 {
		l.next = time.Time{}
		return
	}

	target := time.Second / time.Duration(limit)
	if l.next.IsZero() {
		l.next = l.clock.Now().Add(target)
	} else {
		l.next = l.next.Add(target)
	}

	for {
		remaining := l.next.Sub(l.clock.Now())
		if remaining <= 0 {
			break
		}
		if remaining > spinWindow {
			l.clock.Sleep(remaining - spinWindow)
			continue
		}
		l.clock.Sleep(0)
	}

	// After a hitch, resync instead of rushing frames to catch up.
	if late := l.clock.Now().Sub(l.next); late > target {
		l.next = l.clock.Now()
	}
}
