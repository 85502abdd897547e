package onewiretest

import (
	"time"

	"jhal-go/drivers/onewire"
)

type state uint8

const (
	stIdle state = iota
	stROM
	stFunction
	stMatch
	stSearch
	stTX
	stConvert
	stDone
	stPower
	stWriteSP
)

// Sensor models a DS18B20.
type Sensor struct {
	ROM onewire.Address
	// Temp is the raw 1/16 °C reading latched by the next conversion.
	Temp   int16
	TH, TL int8
	Config byte

	ConversionTime time.Duration
	Parasite       bool
	// CorruptCRC flips the scratchpad CRC byte.
	CorruptCRC bool
	// Silent never answers a reset.
	Silent bool

	// Commands logs the function commands received.
	Commands []byte
	// Saved holds TH, TL and config as last copied to EEPROM.
	Saved [3]byte

	st        state
	rx        uint64
	nrx       int
	tx        []byte
	ntx       int
	after     state
	spTemp    int16
	pullUntil time.Duration
	presFrom  time.Duration
	presTo    time.Duration
	doneAt    time.Duration
	sbit      int
	sphase    int
}

// NewSensor returns a sensor in its power-on state (85 °C in the scratchpad,
// TH 75, TL 70, 12-bit resolution).
func NewSensor(rom onewire.Address) *Sensor {
	return &Sensor{
		ROM:            rom,
		Temp:           0x0550,
		TH:             0x4B,
		TL:             0x46,
		Config:         0x7F,
		ConversionTime: 750 * time.Millisecond,
		spTemp:         0x0550,
		Saved:          [3]byte{0x4B, 0x46, 0x7F},
	}
}

// Scratchpad returns the 9 bytes a READ SCRATCHPAD would send.
func (s *Sensor) Scratchpad() [9]byte {
	sp := [9]byte{byte(s.spTemp), byte(s.spTemp >> 8), byte(s.TH), byte(s.TL), s.Config, 0xFF, 0x0C, 0x10}
	sp[8] = onewire.CRC8(sp[:8])
	if s.CorruptCRC {
		sp[8] ^= 0xFF
	}
	return sp
}

func (s *Sensor) pulling(now time.Duration) bool {
	return (now >= s.presFrom && now < s.presTo) || now < s.pullUntil
}

func (s *Sensor) reset(now time.Duration) {
	if s.Silent {
		return
	}
	s.st = stROM
	s.rx, s.nrx = 0, 0
	s.pullUntil = 0
	s.presFrom = now + presenceDelay
	s.presTo = s.presFrom + presenceWidth
}

func (s *Sensor) transmitting() bool {
	switch s.st {
	case stTX, stConvert, stDone, stPower:
		return true
	case stSearch:
		return s.sphase < 2
	}
	return false
}

func (s *Sensor) txBit(now time.Duration) bool {
	switch s.st {
	case stTX:
		if s.ntx >= len(s.tx)*8 {
			return true
		}
		return s.tx[s.ntx/8]>>(s.ntx%8)&1 != 0
	case stConvert:
		return now >= s.doneAt
	case stPower:
		return !s.Parasite
	case stSearch:
		b := s.ROM>>s.sbit&1 != 0
		if s.sphase == 1 {
			return !b
		}
		return b
	}
	return true
}

func (s *Sensor) fall(now time.Duration) {
	if s.Silent || !s.transmitting() {
		return
	}
	if !s.txBit(now) {
		s.pullUntil = now + zeroHold
	}
}

func (s *Sensor) rise(low, now time.Duration) {
	if s.Silent {
		return
	}
	if s.transmitting() {
		switch s.st {
		case stTX:
			s.ntx++
			if s.ntx >= len(s.tx)*8 {
				s.st = s.after
			}
		case stSearch:
			s.sphase++
		}
		return
	}
	s.receive(low < Write1Max, now)
}

func (s *Sensor) take(bit bool, n int) bool {
	if bit {
		s.rx |= 1 << s.nrx
	}
	s.nrx++
	return s.nrx == n
}

func (s *Sensor) receive(bit bool, now time.Duration) {
	switch s.st {
	case stROM:
		if s.take(bit, 8) {
			c := byte(s.rx)
			s.rx, s.nrx = 0, 0
			s.romCommand(c)
		}
	case stFunction:
		if s.take(bit, 8) {
			c := byte(s.rx)
			s.rx, s.nrx = 0, 0
			s.function(c, now)
		}
	case stMatch:
		if s.take(bit, 64) {
			if onewire.Address(s.rx) == s.ROM {
				s.st = stFunction
			} else {
				s.st = stIdle
			}
			s.rx, s.nrx = 0, 0
		}
	case stSearch:
		if bit != (s.ROM>>s.sbit&1 != 0) {
			s.st = stIdle
			return
		}
		s.sbit++
		s.sphase = 0
		if s.sbit == 64 {
			s.st = stFunction
		}
	case stWriteSP:
		if s.take(bit, 24) {
			s.TH, s.TL, s.Config = int8(s.rx), int8(s.rx>>8), byte(s.rx>>16)
			s.rx, s.nrx = 0, 0
			s.st = stIdle
		}
	}
}

func (s *Sensor) startTX(p []byte, after state) {
	s.tx, s.ntx, s.after = p, 0, after
	s.st = stTX
}

func (s *Sensor) alarm() bool {
	t := int8(s.spTemp >> 4)
	return t >= s.TH || t <= s.TL
}

func (s *Sensor) romCommand(c byte) {
	switch c {
	case onewire.CmdReadROM:
		p := s.ROM.Bytes()
		s.startTX(p[:], stFunction)
	case onewire.CmdSkipROM:
		s.st = stFunction
	case onewire.CmdMatchROM:
		s.st = stMatch
	case onewire.CmdSearchROM:
		s.st, s.sbit, s.sphase = stSearch, 0, 0
	case onewire.CmdAlarmSearch:
		if s.alarm() {
			s.st, s.sbit, s.sphase = stSearch, 0, 0
		} else {
			s.st = stIdle
		}
	default:
		s.st = stIdle
	}
}

func (s *Sensor) function(c byte, now time.Duration) {
	s.Commands = append(s.Commands, c)
	switch c {
	case 0x44: // convert T
		s.spTemp = s.Temp
		s.doneAt = now + s.ConversionTime
		s.st = stConvert
	case 0xBE: // read scratchpad
		sp := s.Scratchpad()
		s.startTX(sp[:], stIdle)
	case 0x4E: // write scratchpad
		s.st = stWriteSP
	case 0x48: // copy scratchpad
		s.Saved = [3]byte{byte(s.TH), byte(s.TL), s.Config}
		s.st = stDone
	case 0xB8: // recall E2
		s.TH, s.TL, s.Config = int8(s.Saved[0]), int8(s.Saved[1]), s.Saved[2]
		s.st = stDone
	case 0xB4: // read power supply
		s.st = stPower
	default:
		s.st = stIdle
	}
}
