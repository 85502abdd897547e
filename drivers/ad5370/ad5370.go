// Package ad5370 drives the AD5370 40-channel, 16-bit DAC over SPI.
//
// Every frame is three bytes clocked with SYNC held low. Special-function
// register writes are read back and compared before returning:
//
//	err := d.WriteRegister(ad5370.RegOffset0, 0x1555) // ExtWriteSPI on mismatch
//
// Channel writes follow a fixed order: X register write, optional readback,
// wait for BUSY to go high, then an LDAC pulse. Pulsing LDAC while BUSY is
// still low drops the update on real hardware.
package ad5370

import (
	"context"
	"errors"
	"time"

	"jhal-go/errcode"
	"jhal-go/jhal"
)

// Channel layout.
const (
	NumChannels      = 40
	NumGroups        = 5
	ChannelsPerGroup = 8
)

// Frame modes (bits 23:22 of the first byte).
const (
	modeSpecial byte = 0x00
	modeX       byte = 0xC0
	modeC       byte = 0x80
	modeM       byte = 0x40
)

// Register is a special-function register written in special mode.
type Register byte

const (
	RegControl   Register = 0x01
	RegOffset0   Register = 0x02
	RegOffset1   Register = 0x03
	RegSelectAB0 Register = 0x06
	RegSelectAB1 Register = 0x07
	RegSelectAB2 Register = 0x08
	RegSelectAB3 Register = 0x09
	RegSelectAB4 Register = 0x0A
)

const (
	specNOP      byte = 0x00
	specReadback byte = 0x05
	specBlockAB  byte = 0x0B
)

// Readback selectors for per-channel registers; OR in the channel address
// shifted left by 7.
const (
	rbX1A uint16 = 0x0000
	rbX1B uint16 = 0x2000
	rbC   uint16 = 0x4000
	rbM   uint16 = 0x6000
)

// Control register bits.
const (
	CtrlPowerDown       uint16 = 0x1
	CtrlThermalShutdown uint16 = 0x2
	CtrlSelectB         uint16 = 0x4 // X writes go to X1B
)

const (
	tReset    = time.Millisecond
	tReadback = time.Microsecond
	tLatch    = time.Microsecond
)

// Extended codes.
const (
	ExtInitSPI    errcode.Ext = "init_spi"
	ExtInitGPIO   errcode.Ext = "init_gpio"
	ExtProcessSPI errcode.Ext = "process_spi"
	ExtWriteSPI   errcode.Ext = "write_spi"
	ExtBusy       errcode.Ext = "busy_timeout"
)

var (
	ErrVerify = errors.New("ad5370: readback mismatch")
	ErrBusy   = errors.New("ad5370: BUSY stuck low")
)

// readback returns the readback selector of a special-function register.
func (r Register) readback() (uint16, bool) {
	switch r {
	case RegControl:
		return 0x8080, true
	case RegOffset0:
		return 0x8100, true
	case RegOffset1:
		return 0x8180, true
	}
	if r >= RegSelectAB0 && r <= RegSelectAB4 {
		return 0x8300 + uint16(r-RegSelectAB0)*0x80, true
	}
	return 0, false
}

// Config names the bus and control lines. All pins are required.
type Config struct {
	SPI jhal.SPI

	Sync  jhal.Pin // frame select, active low
	Reset jhal.Pin // active low
	Busy  jhal.Pin // input, low while the DAC registers are being computed
	LDAC  jhal.Pin // active low latch
	CLR   jhal.Pin // active low clear

	// Wait times reset and latch pulses. Defaults to jhal.SpinDelay.
	Wait jhal.Delayer
	// BusyPoll bounds the wait for BUSY after a channel write.
	// Default 1000 attempts at 1 µs.
	BusyPoll jhal.Poll
	// SkipChannelVerify drops the X1A/X1B readback after channel writes.
	SkipChannelVerify bool
	// NoThermalShutdown clears the thermal shutdown bit written by Create.
	NoThermalShutdown bool
}

var defaultBusyPoll = jhal.Poll{Attempts: 1000, Interval: time.Microsecond}

// Device is a handle to one AD5370. It is not safe for concurrent use.
type Device struct {
	spi jhal.SPI

	sync, reset, busy, ldac, clr jhal.Pin

	wait     jhal.Delayer
	busyPoll jhal.Poll
	verify   bool

	control uint16
	ab      [NumGroups]byte

	w, r [3]byte
}

// Create configures the control lines, resets the chip and applies the
// power-on defaults: control register, all channels on X2A, both offset
// DACs at zero and every channel at code 0.
func Create(cfg Config) (*Device, error) {
	const op = "ad5370.create"
	if cfg.SPI == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, X: ExtInitSPI, Op: op, Msg: "no spi bus"}
	}
	if cfg.Sync == nil || cfg.Reset == nil || cfg.Busy == nil || cfg.LDAC == nil || cfg.CLR == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, X: ExtInitGPIO, Op: op, Msg: "missing control pin"}
	}
	d := &Device{
		spi:      cfg.SPI,
		sync:     cfg.Sync,
		reset:    cfg.Reset,
		busy:     cfg.Busy,
		ldac:     cfg.LDAC,
		clr:      cfg.CLR,
		wait:     cfg.Wait,
		busyPoll: cfg.BusyPoll.OrDefault(defaultBusyPoll),
		verify:   !cfg.SkipChannelVerify,
	}
	if d.wait == nil {
		d.wait = jhal.SpinDelay{}
	}

	for _, p := range []jhal.Pin{d.sync, d.reset, d.ldac, d.clr} {
		if err := p.Configure(jhal.PinOutput, jhal.PullNone); err != nil {
			return nil, errcode.New(op, ExtInitGPIO, err)
		}
		p.Set(true)
	}
	if err := d.busy.Configure(jhal.PinInput, jhal.PullNone); err != nil {
		return nil, errcode.New(op, ExtInitGPIO, err)
	}

	d.Reset()

	ctrl := CtrlThermalShutdown
	if cfg.NoThermalShutdown {
		ctrl = 0
	}
	if err := d.WriteRegister(RegControl, ctrl); err != nil {
		return nil, err
	}
	if err := d.SelectAllAB(false); err != nil {
		return nil, err
	}
	if err := d.WriteRegister(RegOffset0, 0); err != nil {
		return nil, err
	}
	if err := d.WriteRegister(RegOffset1, 0); err != nil {
		return nil, err
	}
	var zero [NumChannels]uint16
	if err := d.SetAllChannels(zero); err != nil {
		return nil, err
	}
	return d, nil
}

// Reset pulses RESET low for 1 ms and waits 1 ms for the chip to restart.
// Register shadows return to their power-on values.
func (d *Device) Reset() {
	d.reset.Set(false)
	d.wait.Delay(tReset)
	d.reset.Set(true)
	d.wait.Delay(tReset)
	d.control = 0
	d.ab = [NumGroups]byte{}
}

// Control returns the last verified control register value.
func (d *Device) Control() uint16 { return d.control }

// WriteRegister writes a special-function register and verifies it by
// readback. Writes to the offset DACs hold CLR low for the frame.
func (d *Device) WriteRegister(reg Register, v uint16) error {
	const op = "ad5370.write_register"
	sel, ok := reg.readback()
	if !ok {
		return errcode.Invalid(op, "not a writable register")
	}
	holdCLR := reg == RegOffset0 || reg == RegOffset1
	if holdCLR {
		d.clr.Set(false)
	}
	d.w = [3]byte{modeSpecial | byte(reg), byte(v >> 8), byte(v)}
	err := d.frame(op)
	if holdCLR {
		d.clr.Set(true)
	}
	if err != nil {
		return err
	}
	got, err := d.readback(op, sel)
	if err != nil {
		return err
	}
	if got != v {
		return verifyErr(op)
	}
	switch {
	case reg == RegControl:
		d.control = v
	case reg >= RegSelectAB0:
		d.ab[reg-RegSelectAB0] = byte(v)
	}
	return nil
}

// ReadRegister reads back a special-function register.
func (d *Device) ReadRegister(reg Register) (uint16, error) {
	sel, ok := reg.readback()
	if !ok {
		return 0, errcode.Invalid("ad5370.read_register", "not a readable register")
	}
	return d.readback("ad5370.read_register", sel)
}

// PowerDown sets or clears the soft power-down bit.
func (d *Device) PowerDown(on bool) error {
	v := d.control &^ CtrlPowerDown
	if on {
		v |= CtrlPowerDown
	}
	return d.WriteRegister(RegControl, v)
}

// SelectAB routes the channels of group to X2B where mask has a bit set and
// to X2A elsewhere.
func (d *Device) SelectAB(group int, mask byte) error {
	if group < 0 || group >= NumGroups {
		return errcode.Invalid("ad5370.select_ab", "group out of range")
	}
	return d.WriteRegister(RegSelectAB0+Register(group), uint16(mask))
}

// SelectAllAB routes every channel to X2B (b) or X2A with one block write and
// verifies all five select registers.
func (d *Device) SelectAllAB(b bool) error {
	const op = "ad5370.select_all_ab"
	var want byte
	if b {
		want = 0xFF
	}
	d.w = [3]byte{modeSpecial | specBlockAB, 0, want}
	if err := d.frame(op); err != nil {
		return err
	}
	for g := 0; g < NumGroups; g++ {
		sel, _ := (RegSelectAB0 + Register(g)).readback()
		got, err := d.readback(op, sel)
		if err != nil {
			return err
		}
		if got != uint16(want) {
			return verifyErr(op)
		}
		d.ab[g] = want
	}
	return nil
}

// SelectedB reports whether a channel is routed to X2B.
func (d *Device) SelectedB(group, ch int) bool {
	if _, err := address(group, ch); err != nil {
		return false
	}
	return d.ab[group]&(1<<ch) != 0
}

func verifyErr(op string) error {
	return &errcode.E{C: errcode.Error, X: ExtWriteSPI, Op: op, Err: ErrVerify}
}

// frame clocks d.w out with SYNC low and captures SDO into d.r.
func (d *Device) frame(op string) error {
	d.sync.Set(false)
	err := d.spi.Tx(d.w[:], d.r[:])
	d.sync.Set(true)
	if err != nil {
		return errcode.New(op, ExtProcessSPI, err)
	}
	return nil
}

// readback selects a register and clocks its value out with a NOP frame.
func (d *Device) readback(op string, sel uint16) (uint16, error) {
	d.w = [3]byte{modeSpecial | specReadback, byte(sel >> 8), byte(sel)}
	if err := d.frame(op); err != nil {
		return 0, err
	}
	d.wait.Delay(tReadback)
	d.w = [3]byte{specNOP, 0, 0}
	if err := d.frame(op); err != nil {
		return 0, err
	}
	return uint16(d.r[1])<<8 | uint16(d.r[2]), nil
}

// waitNotBusy polls BUSY until it is released.
func (d *Device) waitNotBusy(op string) error {
	err := d.busyPoll.Until(context.Background(), d.wait, func() (bool, error) {
		return d.busy.Get(), nil
	})
	if errors.Is(err, jhal.ErrPollExhausted) {
		return &errcode.E{C: errcode.Timeout, X: ExtBusy, Op: op, Err: ErrBusy}
	}
	return err
}

func (d *Device) latch() {
	d.ldac.Set(false)
	d.wait.Delay(tLatch)
	d.ldac.Set(true)
}
