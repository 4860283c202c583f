package frame

import "time"

// Clock is the monotonic time source of the frame loop.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock reads the wall clock. time.Now carries a monotonic reading, so differences between
// its values are immune to wall-clock adjustments.
type SystemClock struct{}

func (SystemClock) Now() time.Time        { return time.Now() }
func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }
