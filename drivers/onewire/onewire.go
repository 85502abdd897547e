// Package onewire implements a bit-banged Dallas/Maxim one-wire bus master.
//
// Timing is the protocol: every slot is produced by driving an open-drain TX
// pin low for a measured time and sampling an RX pin inside a narrow window.
// TX and RX may be the same physical pin.
package onewire

import (
	"context"
	"errors"
	"time"

	"jhal-go/errcode"
	"jhal-go/jhal"
)

// Extended codes.
const (
	ExtInitGPIO      errcode.Ext = "init_gpio"
	ExtNotResponding errcode.Ext = "not_responding"
	ExtCRC           errcode.Ext = "crc"
)

var (
	ErrNoPresence = errors.New("onewire: no presence pulse")
	ErrBusHeldLow = errors.New("onewire: line not released after presence")
	ErrBadCRC     = errors.New("onewire: crc mismatch")
)

// ROM commands.
const (
	CmdSearchROM   byte = 0xF0
	CmdReadROM     byte = 0x33
	CmdMatchROM    byte = 0x55
	CmdSkipROM     byte = 0xCC
	CmdAlarmSearch byte = 0xEC
)

// Slot and reset timing.
const (
	tResetLow       = 480 * time.Microsecond
	tResetSettle    = 10 * time.Microsecond
	tPresenceTail   = 240 * time.Microsecond
	tSlotInit       = 1 * time.Microsecond
	tWrite0Low      = 60 * time.Microsecond
	tWrite1High     = 60 * time.Microsecond
	tReadSample     = 4 * time.Microsecond
	tReadRest       = 45 * time.Microsecond
	tRecovery       = 2 * time.Microsecond
	defaultPollStep = 15 * time.Microsecond
)

var (
	defaultPresencePoll = jhal.Poll{Attempts: 10, Interval: defaultPollStep}
	defaultReleasePoll  = jhal.Poll{Attempts: 20, Interval: defaultPollStep}
)

type Config struct {
	TX jhal.Pin
	RX jhal.Pin // nil: sample TX

	// Delay produces slot timing. nil selects jhal.SpinDelay.
	Delay jhal.Delayer

	// PresencePoll bounds the wait for a presence pulse after reset.
	PresencePoll jhal.Poll
	// ReleasePoll bounds the wait for the slaves to release the line after
	// their presence pulse.
	ReleasePoll jhal.Poll
}

type Bus struct {
	tx, rx   jhal.Pin
	d        jhal.Delayer
	presence jhal.Poll
	release  jhal.Poll
}

// New configures the pins (TX released high, RX input) and returns the bus.
func New(cfg Config) (*Bus, error) {
	if cfg.TX == nil {
		return nil, errcode.Invalid("onewire.new", "tx pin required")
	}
	b := &Bus{
		tx:       cfg.TX,
		rx:       cfg.RX,
		d:        cfg.Delay,
		presence: cfg.PresencePoll.OrDefault(defaultPresencePoll),
		release:  cfg.ReleasePoll.OrDefault(defaultReleasePoll),
	}
	if b.d == nil {
		b.d = jhal.SpinDelay{}
	}
	if err := b.tx.Configure(jhal.PinOpenDrain, jhal.PullUp); err != nil {
		return nil, errcode.New("onewire.new", ExtInitGPIO, err)
	}
	b.tx.Set(true)
	if b.rx == nil {
		b.rx = b.tx
	} else if err := b.rx.Configure(jhal.PinInput, jhal.PullUp); err != nil {
		return nil, errcode.New("onewire.new", ExtInitGPIO, err)
	}
	return b, nil
}

// Reset issues a reset pulse and waits for a presence pulse.
func (b *Bus) Reset() error {
	b.tx.Set(false)
	b.d.Delay(tResetLow)
	b.tx.Set(true)
	b.d.Delay(tResetSettle)

	err := b.presence.Until(context.Background(), b.d, func() (bool, error) { return !b.rx.Get(), nil })
	if err != nil {
		return errcode.New("onewire.reset", ExtNotResponding, ErrNoPresence)
	}
	err = b.release.Until(context.Background(), b.d, func() (bool, error) { return b.rx.Get(), nil })
	if err != nil {
		return errcode.New("onewire.reset", ExtNotResponding, ErrBusHeldLow)
	}
	b.d.Delay(tPresenceTail)
	return nil
}

func (b *Bus) WriteBit(bit bool) {
	b.tx.Set(false)
	if bit {
		b.d.Delay(tSlotInit)
		b.tx.Set(true)
		b.d.Delay(tWrite1High)
	} else {
		b.d.Delay(tWrite0Low)
		b.tx.Set(true)
	}
	b.d.Delay(tRecovery)
}

func (b *Bus) ReadBit() bool {
	b.tx.Set(false)
	b.d.Delay(tSlotInit)
	b.tx.Set(true)
	b.d.Delay(tReadSample)
	bit := b.rx.Get()
	b.d.Delay(tReadRest)
	b.d.Delay(tRecovery)
	return bit
}

// TxByte writes v least-significant bit first.
func (b *Bus) TxByte(v byte) {
	for i := 0; i < 8; i++ {
		b.WriteBit(v&1 != 0)
		v >>= 1
	}
}

// RxByte reads one byte least-significant bit first.
func (b *Bus) RxByte() byte {
	var v byte
	for i := 0; i < 8; i++ {
		if b.ReadBit() {
			v |= 1 << i
		}
	}
	return v
}

func (b *Bus) Tx(p []byte) {
	for _, v := range p {
		b.TxByte(v)
	}
}

func (b *Bus) Rx(p []byte) {
	for i := range p {
		p[i] = b.RxByte()
	}
}
