package jhal

import (
	"context"
	"errors"
	"time"
)

// ErrPollExhausted is returned by Poll.Until when the attempt budget runs out.
var ErrPollExhausted = errors.New("jhal: poll budget exhausted")

// Poll bounds a busy-wait loop. Drivers take Poll values in their configs so
// callers (and tests) decide how long a device may stay not-ready.
type Poll struct {
	// Attempts is the maximum number of condition checks. Zero means unbounded,
	// in which case only ctx can end the loop.
	Attempts int
	// Interval is waited between checks (not before the first one).
	Interval time.Duration
}

// OrDefault returns p, or def when p is the zero value.
func (p Poll) OrDefault(def Poll) Poll {
	if p == (Poll{}) {
		return def
	}
	return p
}

// Until evaluates cond until it reports done, returns an error, the budget is
// exhausted (ErrPollExhausted) or ctx is cancelled (ctx.Err()).
func (p Poll) Until(ctx context.Context, d Delayer, cond func() (bool, error)) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for n := 0; p.Attempts <= 0 || n < p.Attempts; n++ {
		if n > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			if p.Interval > 0 {
				d.Delay(p.Interval)
			}
		}
		done, err := cond()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return ErrPollExhausted
}
