package jhal

import "time"

// DefaultSleepThreshold is the duration above which SpinDelay hands most of
// the wait to the scheduler.
const DefaultSleepThreshold = 2 * time.Millisecond

// SpinDelay busy-waits on the monotonic clock. It is the delay used for
// bit-level timing where scheduler wake-up latency would break the protocol.
type SpinDelay struct {
	// SleepThreshold: waits at least this long sleep for all but the last
	// millisecond. Zero selects DefaultSleepThreshold; negative never sleeps.
	SleepThreshold time.Duration
}

func (s SpinDelay) Delay(d time.Duration) {
	if d <= 0 {
		return
	}
	start := time.Now()
	th := s.SleepThreshold
	if th == 0 {
		th = DefaultSleepThreshold
	}
	if th > 0 && d >= th {
		time.Sleep(d - time.Millisecond)
	}
	for time.Since(start) < d {
	}
}

// SleepDelay waits using the scheduler. Suitable for millisecond-class waits
// such as reset pulses and mode settling.
type SleepDelay struct{}

func (SleepDelay) Delay(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}
