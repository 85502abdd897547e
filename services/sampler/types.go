// Package sampler runs split-phase device measurements on one goroutine.
//
// An Adaptor starts a measurement with Trigger, which reports how long the
// device needs, and fetches it with Collect. Collect returns ErrNotReady
// while the device is still busy; the worker retries with a fixed backoff up
// to a bounded number of times. Adaptors never own goroutines or buses; the
// worker serialises all access to the devices it is given.
package sampler

import (
	"context"
	"errors"
	"time"
)

// Reading is one fixed-point datum.
type Reading struct {
	Kind  string // "temperature", "angle", ...
	Value int64
	Unit  string // "mC", "mdeg", ...
	TsMs  int64
}

// Sample is a batch of readings collected together.
type Sample []Reading

// Adaptor wraps one device for the worker.
type Adaptor interface {
	ID() string
	Trigger(ctx context.Context) (collectAfter time.Duration, err error)
	Collect(ctx context.Context) (Sample, error)
}

// Config centralises timings and limits. Zero fields take defaults.
type Config struct {
	TriggerTimeout time.Duration // default 100 ms
	CollectTimeout time.Duration // default 250 ms
	RetryBackoff   time.Duration // default 15 ms
	MaxRetries     int           // default 6
	InputQueueSize int           // default 16
	ResultsQueueSz int           // default 16
}

// Request asks the worker to measure an adaptor. Requests for an ID that is
// already pending are coalesced; a Prio request also schedules one more
// cycle if the pending one fails.
type Request struct {
	ID      string
	Adaptor Adaptor
	Prio    bool
}

// Result is emitted once per completed or failed cycle.
type Result struct {
	ID     string
	Sample Sample
	Err    error
}

// ErrNotReady signals the worker to retry Collect after backoff.
var ErrNotReady = errors.New("sampler: not ready")
