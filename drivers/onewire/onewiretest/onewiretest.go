// Package onewiretest simulates a one-wire line with DS18B20-class slaves on a
// virtual microsecond clock. The Line is both the master's pin and its
// Delayer, so every slot the driver produces is decoded exactly as a slave
// would see it, without wall-clock timing.
package onewiretest

import (
	"time"

	"jhal-go/drivers/onewire"
	"jhal-go/jhal"
)

const (
	// ResetMin is the shortest low pulse a slave treats as a reset.
	ResetMin = 480 * time.Microsecond
	// Write1Max is the longest low time still read as a written 1.
	Write1Max = 15 * time.Microsecond

	presenceDelay = 15 * time.Microsecond
	presenceWidth = 120 * time.Microsecond
	zeroHold      = 30 * time.Microsecond
)

// Line is a wired-AND open-drain line shared by the master and the slaves.
type Line struct {
	Slaves []*Sensor
	// StuckLow makes the line read low forever (shorted bus).
	StuckLow bool
	// Resets counts reset pulses seen.
	Resets int

	now     time.Duration
	hostLow bool
	fellAt  time.Duration
}

var (
	_ jhal.Pin     = (*Line)(nil)
	_ jhal.Delayer = (*Line)(nil)
)

func NewLine(slaves ...*Sensor) *Line { return &Line{Slaves: slaves} }

func (l *Line) Configure(jhal.PinMode, jhal.Pull) error { return nil }

func (l *Line) Delay(d time.Duration) { l.now += d }

// Now returns the virtual time elapsed since the line was created.
func (l *Line) Now() time.Duration { return l.now }

func (l *Line) Set(high bool) {
	if !high {
		if l.hostLow {
			return
		}
		l.hostLow = true
		l.fellAt = l.now
		for _, s := range l.Slaves {
			s.fall(l.now)
		}
		return
	}
	if !l.hostLow {
		return
	}
	l.hostLow = false
	low := l.now - l.fellAt
	if low >= ResetMin {
		l.Resets++
		for _, s := range l.Slaves {
			s.reset(l.now)
		}
		return
	}
	for _, s := range l.Slaves {
		s.rise(low, l.now)
	}
}

func (l *Line) Get() bool {
	if l.StuckLow || l.hostLow {
		return false
	}
	for _, s := range l.Slaves {
		if s.pulling(l.now) {
			return false
		}
	}
	return true
}

// MakeAddress builds a ROM code with a valid CRC.
func MakeAddress(family byte, serial uint64) onewire.Address {
	a := onewire.Address(family) | onewire.Address(serial&0xFFFFFFFFFFFF)<<8
	p := a.Bytes()
	return a | onewire.Address(onewire.CRC8(p[:7]))<<56
}
