// Package ems22a reads the EMS22A absolute rotary encoder over its SSI
// interface. One 16-bit word is clocked in with CS low:
//
//	bits 15..6  position, 0..1023 per turn
//	bits 5..1   status flags
//	bit  0      parity; the whole word has even parity
//
// A word with odd parity is rejected with ExtCRC and not retried.
package ems22a

import (
	"errors"

	"jhal-go/errcode"
	"jhal-go/jhal"
	"jhal-go/x/mathx"
)

// Resolution is the number of position codes per turn.
const Resolution = 1024

// Status flags as reported in bits 5..1.
type Status uint8

const (
	StatusMagDec Status = 1 << iota // magnet too far
	StatusMagInc                    // magnet too close
	StatusLIN                       // linearity alarm
	StatusCOF                       // CORDIC overflow
	StatusOCF                       // offset compensation finished
)

// OK reports whether the position can be trusted: offset compensation
// finished and no overflow or linearity alarm.
func (s Status) OK() bool {
	return s&StatusOCF != 0 && s&(StatusCOF|StatusLIN) == 0
}

// Extended codes.
const (
	ExtInitSPI    errcode.Ext = "init_spi"
	ExtProcessSPI errcode.Ext = "process_spi"
	ExtCRC        errcode.Ext = "crc"
)

var ErrParity = errors.New("ems22a: parity error")

// Sample is one decoded encoder word.
type Sample struct {
	Raw    uint16
	Code   uint16 // 0..1023
	Status Status
}

// MilliDegrees converts the position to thousandths of a degree, rounded.
func (s Sample) MilliDegrees() uint32 {
	return mathx.RoundDiv(uint32(s.Code)*360000, Resolution)
}

// Decode splits a raw word and checks its parity.
func Decode(v uint16) (Sample, error) {
	s := Sample{Raw: v, Code: (v >> 6) & 0x3FF, Status: Status((v >> 1) & 0x1F)}
	if !evenParity(v) {
		return s, ErrParity
	}
	return s, nil
}

func evenParity(v uint16) bool {
	v ^= v >> 8
	v ^= v >> 4
	v ^= v >> 2
	v ^= v >> 1
	return v&1 == 0
}

type Device struct {
	spi jhal.SPI
	cs  jhal.Pin
	w   [2]byte
	r   [2]byte
}

// Create configures CS and performs one check read, as a present encoder
// always returns a word with valid parity.
func Create(spi jhal.SPI, cs jhal.Pin) (*Device, error) {
	const op = "ems22a.create"
	if spi == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, X: ExtInitSPI, Op: op, Msg: "no spi bus"}
	}
	d := &Device{spi: spi, cs: cs}
	if cs != nil {
		if err := cs.Configure(jhal.PinOutput, jhal.PullNone); err != nil {
			return nil, errcode.New(op, ExtInitSPI, err)
		}
		cs.Set(true)
	}
	if _, err := d.Read(); err != nil {
		return nil, err
	}
	return d, nil
}

// Read clocks in one word and decodes it.
func (d *Device) Read() (Sample, error) {
	const op = "ems22a.read"
	if d.cs != nil {
		d.cs.Set(false)
	}
	err := d.spi.Tx(d.w[:], d.r[:])
	if d.cs != nil {
		d.cs.Set(true)
	}
	if err != nil {
		return Sample{}, errcode.New(op, ExtProcessSPI, err)
	}
	s, err := Decode(uint16(d.r[0])<<8 | uint16(d.r[1]))
	if err != nil {
		return s, errcode.New(op, ExtCRC, err)
	}
	return s, nil
}

// Angle reads the encoder and returns the position in millidegrees.
func (d *Device) Angle() (uint32, error) {
	s, err := d.Read()
	if err != nil {
		return 0, err
	}
	return s.MilliDegrees(), nil
}
