// Package ramp steps an output code between two values.
package ramp

import (
	"errors"

	"jhal-go/x/mathx"
)

var ErrCancelled = errors.New("ramp: cancelled")

// Linear moves from cur to to in steps equal increments and always ends by
// setting to. tick runs before every step after the first; returning false
// stops the ramp with ErrCancelled. The first set error aborts the ramp.
func Linear(cur, to uint16, steps int, tick func() bool, set func(code uint16) error) error {
	if steps < 1 {
		steps = 1
	}
	for i := 1; i <= steps; i++ {
		if i > 1 && !tick() {
			return ErrCancelled
		}
		t := uint16(uint32(i) * 0xFFFF / uint32(steps))
		if err := set(mathx.LerpU16(cur, to, t)); err != nil {
			return err
		}
	}
	return nil
}
