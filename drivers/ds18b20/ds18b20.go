// Package ds18b20 drives the DS18B20 one-wire temperature sensor.
// It exposes the sensor's split-phase conversion directly:
//
//	err := d.ConversionStart()   // start a conversion (returns at once)
//	ok, err := d.Ready()         // one read slot; true once the sensor is done
//	t, err := d.ReadResult()     // fetch and CRC-check the scratchpad
//
// d.Read(ctx) performs start + bounded polling + read for callers that do not
// schedule the phases themselves.
//
// A CRC mismatch is reported with ExtCRC and is never retried here; the caller
// decides whether to read again.
package ds18b20

import (
	"context"
	"errors"
	"time"

	"jhal-go/drivers/onewire"
	"jhal-go/errcode"
	"jhal-go/jhal"
)

// FamilyCode is the ROM family byte of the DS18B20.
const FamilyCode = 0x28

// Function commands.
const (
	cmdConvertT        = 0x44
	cmdReadScratchpad  = 0xBE
	cmdWriteScratchpad = 0x4E
	cmdCopyScratchpad  = 0x48
	cmdRecallE2        = 0xB8
	cmdReadPowerSupply = 0xB4
)

const tCopyScratchpad = 10 * time.Millisecond

// Extended codes.
const (
	ExtInitGPIO      = onewire.ExtInitGPIO
	ExtNotResponding = onewire.ExtNotResponding
	ExtCRC           = onewire.ExtCRC

	ExtNoConversion errcode.Ext = "no_conversion"
	ExtVerify       errcode.Ext = "verify"
)

var (
	ErrNoConversion = errors.New("ds18b20: no conversion in progress")
	ErrConverting   = errors.New("ds18b20: conversion in progress")
	ErrVerify       = errors.New("ds18b20: scratchpad readback mismatch")
)

// Resolution is the conversion resolution in bits (9..12).
type Resolution uint8

const (
	Res9  Resolution = 9
	Res10 Resolution = 10
	Res11 Resolution = 11
	Res12 Resolution = 12
)

func (r Resolution) Valid() bool { return r >= Res9 && r <= Res12 }

// ConversionTime is the worst-case conversion time at r.
func (r Resolution) ConversionTime() time.Duration {
	if !r.Valid() {
		r = Res12
	}
	return 750 * time.Millisecond >> (Res12 - r)
}

func (r Resolution) configByte() byte { return byte(r-Res9)<<5 | 0x1F }

func resolutionOf(cfg byte) Resolution { return Res9 + Resolution(cfg>>5&0x3) }

// Config holds optional settings.
type Config struct {
	// Address selects one sensor on a multi-drop bus. Zero addresses the only
	// sensor on the bus with SKIP ROM.
	Address onewire.Address
	// Resolution is written to the sensor at creation when non-zero.
	Resolution Resolution
	// Wait is used by Read and CopyScratchpad. Default jhal.SleepDelay.
	Wait jhal.Delayer
	// ReadyPoll bounds Read's wait for the conversion. Default: every 10 ms
	// for the conversion time plus 25%.
	ReadyPoll jhal.Poll
}

type Device struct {
	bus        *onewire.Bus
	addr       onewire.Address
	res        Resolution
	wait       jhal.Delayer
	readyPoll  jhal.Poll
	converting bool
	sp         [9]byte
}

// Create builds the one-wire bus on the given pins and then the device.
func Create(bus onewire.Config, cfg Config) (*Device, error) {
	b, err := onewire.New(bus)
	if err != nil {
		return nil, err
	}
	return New(b, cfg)
}

// New probes the sensor with a reset and applies cfg.Resolution if set.
func New(bus *onewire.Bus, cfg Config) (*Device, error) {
	if bus == nil {
		return nil, errcode.Invalid("ds18b20.new", "nil bus")
	}
	if cfg.Resolution != 0 && !cfg.Resolution.Valid() {
		return nil, errcode.Invalid("ds18b20.new", "resolution must be 9..12")
	}
	if cfg.Address != 0 && cfg.Address.Family() != FamilyCode {
		return nil, errcode.Invalid("ds18b20.new", "address is not a DS18B20")
	}
	d := &Device{bus: bus, addr: cfg.Address, res: Res12, wait: cfg.Wait}
	if d.wait == nil {
		d.wait = jhal.SleepDelay{}
	}
	if err := bus.Reset(); err != nil {
		return nil, err
	}
	if cfg.Resolution != 0 {
		if err := d.readScratchpad("ds18b20.new"); err != nil {
			return nil, err
		}
		if err := d.WriteScratchpad(int8(d.sp[2]), int8(d.sp[3]), cfg.Resolution); err != nil {
			return nil, err
		}
	}
	d.readyPoll = cfg.ReadyPoll.OrDefault(jhal.Poll{
		Attempts: int(d.res.ConversionTime()*5/4/(10*time.Millisecond)) + 1,
		Interval: 10 * time.Millisecond,
	})
	return d, nil
}

// Resolution returns the resolution last written or read back.
func (d *Device) Resolution() Resolution { return d.res }

// Converting reports whether a conversion was started and not yet read.
func (d *Device) Converting() bool { return d.converting }

// ConversionStart issues CONVERT T. If a conversion is already in progress
// and the sensor is still busy it returns errcode.Busy.
func (d *Device) ConversionStart() error {
	if d.converting {
		ready, err := d.Ready()
		if err != nil {
			return err
		}
		if !ready {
			return &errcode.E{C: errcode.Busy, Op: "ds18b20.conversion_start", Err: ErrConverting}
		}
	}
	d.converting = false
	if err := d.bus.Select(d.addr); err != nil {
		return err
	}
	d.bus.TxByte(cmdConvertT)
	d.converting = true
	return nil
}

// Ready performs one read slot. The sensor answers 0 while converting.
func (d *Device) Ready() (bool, error) {
	if !d.converting {
		return false, errcode.New("ds18b20.ready", ExtNoConversion, ErrNoConversion)
	}
	return d.bus.ReadBit(), nil
}

// ReadResult reads the scratchpad and decodes the temperature.
func (d *Device) ReadResult() (Temperature, error) {
	if err := d.readScratchpad("ds18b20.read_result"); err != nil {
		return 0, err
	}
	return DecodeTemperature(d.sp[0], d.sp[1]), nil
}

// Read runs a full conversion and returns the result.
func (d *Device) Read(ctx context.Context) (Temperature, error) {
	if err := d.ConversionStart(); err != nil {
		return 0, err
	}
	err := d.readyPoll.Until(ctx, d.wait, d.Ready)
	if errors.Is(err, jhal.ErrPollExhausted) {
		return 0, &errcode.E{C: errcode.Timeout, Op: "ds18b20.read", Err: err}
	}
	if err != nil {
		return 0, err
	}
	return d.ReadResult()
}

// Scratchpad reads and CRC-checks the 9-byte scratchpad.
func (d *Device) Scratchpad() ([9]byte, error) {
	err := d.readScratchpad("ds18b20.scratchpad")
	return d.sp, err
}

func (d *Device) readScratchpad(op string) error {
	d.converting = false
	if err := d.bus.Select(d.addr); err != nil {
		return err
	}
	d.bus.TxByte(cmdReadScratchpad)
	d.bus.Rx(d.sp[:])
	if onewire.CRC8(d.sp[:8]) != d.sp[8] {
		return errcode.New(op, ExtCRC, onewire.ErrBadCRC)
	}
	d.res = resolutionOf(d.sp[4])
	return nil
}

// WriteScratchpad writes the alarm thresholds and resolution, then reads the
// scratchpad back and compares.
func (d *Device) WriteScratchpad(th, tl int8, res Resolution) error {
	if !res.Valid() {
		return errcode.Invalid("ds18b20.write_scratchpad", "resolution must be 9..12")
	}
	if err := d.bus.Select(d.addr); err != nil {
		return err
	}
	cfg := res.configByte()
	d.bus.Tx([]byte{cmdWriteScratchpad, byte(th), byte(tl), cfg})
	if err := d.readScratchpad("ds18b20.write_scratchpad"); err != nil {
		return err
	}
	if int8(d.sp[2]) != th || int8(d.sp[3]) != tl || d.sp[4]&0x60 != cfg&0x60 {
		return errcode.New("ds18b20.write_scratchpad", ExtVerify, ErrVerify)
	}
	return nil
}

// CopyScratchpad stores TH, TL and the configuration in EEPROM.
func (d *Device) CopyScratchpad() error {
	if err := d.bus.Select(d.addr); err != nil {
		return err
	}
	d.bus.TxByte(cmdCopyScratchpad)
	d.wait.Delay(tCopyScratchpad)
	return nil
}

// RecallE2 reloads TH, TL and the configuration from EEPROM.
func (d *Device) RecallE2() error {
	if err := d.bus.Select(d.addr); err != nil {
		return err
	}
	d.bus.TxByte(cmdRecallE2)
	err := jhal.Poll{Attempts: 100, Interval: 100 * time.Microsecond}.Until(context.Background(), d.wait,
		func() (bool, error) { return d.bus.ReadBit(), nil })
	if err != nil {
		return &errcode.E{C: errcode.Timeout, Op: "ds18b20.recall_e2", Err: err}
	}
	return nil
}

// ReadPowerSupply reports whether the sensor runs on parasite power.
func (d *Device) ReadPowerSupply() (parasite bool, err error) {
	if err := d.bus.Select(d.addr); err != nil {
		return false, err
	}
	d.bus.TxByte(cmdReadPowerSupply)
	return !d.bus.ReadBit(), nil
}
