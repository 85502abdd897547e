package jhal

import (
	"errors"
	"time"
)

// ErrCompletionTimeout is returned when an asynchronous transfer did not
// signal completion in time.
var ErrCompletionTimeout = errors.New("jhal: transfer completion timeout")

// ErrTransferPending is returned when a timed-out transfer has still not
// completed and its buffers cannot be reused.
var ErrTransferPending = errors.New("jhal: previous transfer still pending")

// AsyncSPI starts a full-duplex transfer that completes in the background
// (DMA plus completion interrupt on real hardware). done must be called
// exactly once, possibly from another goroutine, and must not block.
type AsyncSPI interface {
	StartTx(w, r []byte, done func(error)) error
}

// SyncAsync adapts a synchronous SPI to AsyncSPI by completing inline.
type SyncAsync struct{ SPI SPI }

func (s SyncAsync) StartTx(w, r []byte, done func(error)) error {
	done(s.SPI.Tx(w, r))
	return nil
}

// Completion hands a transfer's completion callback over to the goroutine
// waiting for it. One Completion belongs to one device handle and is used by
// one goroutine at a time; only the callbacks returned by Arm may run
// elsewhere.
//
// Each Arm starts a new generation. Signals from older generations are
// dropped, and a transfer that timed out keeps its generation pending until
// its late signal arrives, so its buffers are not handed to a new transfer
// while the hardware may still write them.
type Completion struct {
	ch      chan signal
	gen     uint32
	pending bool
}

type signal struct {
	gen uint32
	err error
}

func NewCompletion() *Completion {
	return &Completion{ch: make(chan signal, 1)}
}

// Settle waits up to timeout for a previously timed-out transfer to finish.
// It returns ErrTransferPending if that transfer still owns its buffers.
func (c *Completion) Settle(timeout time.Duration) error {
	if !c.pending {
		return nil
	}
	if err := c.wait(timeout); errors.Is(err, ErrCompletionTimeout) {
		return ErrTransferPending
	}
	return nil
}

// Arm starts a new transfer and returns the callback that completes it.
// Settle must have succeeded first.
func (c *Completion) Arm() func(error) {
	c.gen++
	c.pending = true
	g := c.gen
	return func(err error) {
		select {
		case c.ch <- signal{gen: g, err: err}:
		default:
		}
	}
}

// Cancel abandons an armed transfer whose start failed, so its callback
// never ran.
func (c *Completion) Cancel() {
	c.gen++
	c.pending = false
}

// Wait blocks until the current transfer completes or timeout elapses.
func (c *Completion) Wait(timeout time.Duration) error {
	return c.wait(timeout)
}

func (c *Completion) wait(timeout time.Duration) error {
	t := time.NewTimer(timeout)
	defer t.Stop()
	for {
		select {
		case s := <-c.ch:
			if s.gen != c.gen {
				continue
			}
			c.pending = false
			return s.err
		case <-t.C:
			return ErrCompletionTimeout
		}
	}
}
