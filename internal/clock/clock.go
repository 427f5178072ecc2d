package clock

import "time"

// Clock abstracts wall-clock reads so the timer and achievement logic stay
// deterministic in tests.
type Clock interface {
	Now() time.Time
}

type System struct{}

func (System) Now() time.Time {
	return time.Now()
}

// Millis returns the epoch-millisecond reading used by persisted timer state.
func Millis(c Clock) int64 {
	return c.Now().UnixMilli()
}
