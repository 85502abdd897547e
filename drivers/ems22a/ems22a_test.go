package ems22a

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jhal-go/errcode"
)

// encoder returns queued words, one per transfer.
type encoder struct {
	words []uint16
	err   error
}

func (e *encoder) Tx(w, r []byte) error {
	if e.err != nil {
		return e.err
	}
	v := e.words[0]
	if len(e.words) > 1 {
		e.words = e.words[1:]
	}
	r[0], r[1] = byte(v>>8), byte(v)
	return nil
}

func (e *encoder) Transfer(b byte) (byte, error) { return 0, nil }

// word builds a valid encoder word.
func word(code uint16, st Status) uint16 {
	v := code<<6 | uint16(st)<<1
	if !evenParity(v) {
		v |= 1
	}
	return v
}

func TestDecode(t *testing.T) {
	s, err := Decode(word(512, StatusOCF))
	require.NoError(t, err)
	assert.Equal(t, uint16(512), s.Code)
	assert.True(t, s.Status.OK())
	assert.Equal(t, uint32(180000), s.MilliDegrees())

	_, err = Decode(word(512, StatusOCF) ^ 1)
	assert.ErrorIs(t, err, ErrParity)

	s, _ = Decode(word(1, StatusOCF|StatusLIN))
	assert.False(t, s.Status.OK())
	assert.Equal(t, uint32(352), s.MilliDegrees()) // 351.5625 rounded
}

func TestParityProperty(t *testing.T) {
	for v := 0; v < 1<<16; v += 7 {
		n := 0
		for b := 0; b < 16; b++ {
			n += (v >> b) & 1
		}
		assert.Equal(t, n%2 == 0, evenParity(uint16(v)))
	}
}

func TestCreateChecksLink(t *testing.T) {
	e := &encoder{words: []uint16{word(0, StatusOCF) ^ 1}}
	_, err := Create(e, nil)
	assert.Equal(t, ExtCRC, errcode.ExtOf(err))

	e = &encoder{err: errors.New("spi fault")}
	_, err = Create(e, nil)
	assert.Equal(t, ExtProcessSPI, errcode.ExtOf(err))

	_, err = Create(nil, nil)
	assert.Equal(t, errcode.InvalidParams, errcode.Of(err))
}

func TestAngle(t *testing.T) {
	e := &encoder{words: []uint16{word(0, StatusOCF), word(256, StatusOCF), word(1023, StatusOCF)}}
	d, err := Create(e, nil)
	require.NoError(t, err)

	a, err := d.Angle()
	require.NoError(t, err)
	assert.Equal(t, uint32(90000), a)
	a, err = d.Angle()
	require.NoError(t, err)
	assert.Equal(t, uint32(359648), a) // 359.6484375
}
