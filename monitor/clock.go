package monitor

import "time"

// Clock supplies the current time. Injectable so tests can drive
// timestamps and ages deterministically.
type Clock func() time.Time

func wallClock(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}
