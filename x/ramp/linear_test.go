package ramp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinearUp(t *testing.T) {
	var got []uint16
	ticks := 0
	err := Linear(0, 1000, 4, func() bool { ticks++; return true }, func(c uint16) error {
		got = append(got, c)
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, []uint16{249, 499, 749, 1000}, got) // truncating interpolation
	assert.Equal(t, 3, ticks)
}

func TestLinearDownEndsExactly(t *testing.T) {
	var got []uint16
	_ = Linear(0xFFFF, 3, 7, func() bool { return true }, func(c uint16) error {
		got = append(got, c)
		return nil
	})
	assert.Len(t, got, 7)
	assert.Equal(t, uint16(3), got[6])
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i], got[i-1])
	}
}

func TestLinearSnap(t *testing.T) {
	var got []uint16
	_ = Linear(10, 20, 0, nil, func(c uint16) error { got = append(got, c); return nil })
	assert.Equal(t, []uint16{20}, got)
}

func TestLinearStops(t *testing.T) {
	n := 0
	err := Linear(0, 100, 10, func() bool { return n < 3 }, func(uint16) error { n++; return nil })
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, 3, n)

	boom := errors.New("write failed")
	err = Linear(0, 100, 10, func() bool { return true }, func(uint16) error { return boom })
	assert.ErrorIs(t, err, boom)
}
