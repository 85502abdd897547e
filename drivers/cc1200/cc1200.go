// Package cc1200 drives the TI CC1200 sub-GHz transceiver over SPI.
//
// Every SPI frame is handed to an asynchronous transfer (DMA on the MCU) and
// the driver blocks on the per-device completion channel with a bounded
// timeout. Register writes are always read back and compared; a mismatch is
// reported as ExtWriteVerify and is not retried.
//
// Packets are fixed length and framed as [len+1, device address, payload...]
// in the hardware FIFOs.
package cc1200

import (
	"context"
	"errors"
	"time"

	"jhal-go/errcode"
	"jhal-go/jhal"
)

// Extended codes.
const (
	ExtTimeout     errcode.Ext = "timeout"
	ExtBus         errcode.Ext = "spi"
	ExtProcessDMA  errcode.Ext = "process_dma"
	ExtWriteVerify errcode.Ext = "write_verify"
	ExtRXTimeout   errcode.Ext = "rx_timeout"
	ExtTXOverflow  errcode.Ext = "tx_overflow"
	ExtTXError     errcode.Ext = "tx_error"
	ExtReceive     errcode.Ext = "receive_error"
	ExtPartNumber  errcode.Ext = "part_number"
)

var (
	ErrVerify       = errors.New("cc1200: register readback mismatch")
	ErrTXNotEmpty   = errors.New("cc1200: tx fifo not empty before push")
	ErrTXCount      = errors.New("cc1200: tx fifo byte count mismatch")
	ErrBadHeader    = errors.New("cc1200: unexpected packet header")
	ErrNotCC1200    = errors.New("cc1200: unexpected part number")
	ErrChipNotReady = errors.New("cc1200: chip not ready")
)

const (
	tReset      = 2 * time.Millisecond
	tModeSettle = 1 * time.Millisecond
)

// Mode is the operating mode requested by the driver.
type Mode uint8

const (
	ModeIdle Mode = iota
	ModeSleep
	ModeReceive
	ModeTransmit
)

func (m Mode) strobe() byte {
	switch m {
	case ModeSleep:
		return SPWD
	case ModeReceive:
		return SRX
	case ModeTransmit:
		return STX
	}
	return SIDLE
}

// Config holds the bus endpoint and optional tuning. Zero values select
// defaults.
type Config struct {
	// Bus carries completion-signalled transfers. If nil, SPI is used
	// synchronously.
	Bus jhal.AsyncSPI
	SPI jhal.SPI
	// CS is driven low around each frame. nil when the SPI peripheral drives
	// chip select itself.
	CS jhal.Pin

	// Address is the device address in the packet header and DEV_ADDR.
	Address byte
	// BurstFIFO pushes and pops the FIFOs with one burst frame instead of a
	// frame per byte.
	BurstFIFO bool
	// CheckPartNumber makes New read PARTNUMBER and reject other parts.
	CheckPartNumber bool

	// DMATimeout bounds the wait for one frame's completion. Default 1 s.
	DMATimeout time.Duration
	// Wait is used for reset, mode settling and poll intervals.
	// Default jhal.SleepDelay.
	Wait jhal.Delayer

	ReadyPoll   jhal.Poll // CHIP_RDYn after reset
	TXFillPoll  jhal.Poll // NUM_TXBYTES reaching len+2 after the push
	TXDrainPoll jhal.Poll // NUM_TXBYTES back to 0 after STX
	IdlePoll    jhal.Poll // state back to IDLE after transmit
	// RXPoll bounds the wait for a full packet. Zero Attempts waits until
	// the context passed to ReceiveFixPacket is done.
	RXPoll jhal.Poll
}

var (
	defaultReadyPoll   = jhal.Poll{Attempts: 100, Interval: 100 * time.Microsecond}
	defaultTXFillPoll  = jhal.Poll{Attempts: 4, Interval: 50 * time.Microsecond}
	defaultTXDrainPoll = jhal.Poll{Attempts: 2000, Interval: 500 * time.Microsecond}
	defaultIdlePoll    = jhal.Poll{Attempts: 1000, Interval: 100 * time.Microsecond}
	defaultRXPoll      = jhal.Poll{Interval: time.Millisecond}
)

type Device struct {
	bus     jhal.AsyncSPI
	cs      jhal.Pin
	done    *jhal.Completion
	timeout time.Duration
	wait    jhal.Delayer

	addr  byte
	burst bool
	mode  Mode
	last  Status

	readyPoll, txFill, txDrain, idlePoll, rxPoll jhal.Poll

	// w and r are replaced after a DMA timeout; the late transfer keeps
	// the old ones.
	w, r []byte
}

const frameSize = FIFOSize + 3

// New resets the chip, waits for it to report ready and writes the default
// register table. On success the chip is idle with DEV_ADDR set.
func New(cfg Config) (*Device, error) {
	d := &Device{
		bus:       cfg.Bus,
		cs:        cfg.CS,
		done:      jhal.NewCompletion(),
		timeout:   cfg.DMATimeout,
		wait:      cfg.Wait,
		addr:      cfg.Address,
		burst:     cfg.BurstFIFO,
		readyPoll: cfg.ReadyPoll.OrDefault(defaultReadyPoll),
		txFill:    cfg.TXFillPoll.OrDefault(defaultTXFillPoll),
		txDrain:   cfg.TXDrainPoll.OrDefault(defaultTXDrainPoll),
		idlePoll:  cfg.IdlePoll.OrDefault(defaultIdlePoll),
		rxPoll:    cfg.RXPoll.OrDefault(defaultRXPoll),
		w:         make([]byte, frameSize),
		r:         make([]byte, frameSize),
	}
	if d.bus == nil {
		if cfg.SPI == nil {
			return nil, errcode.Invalid("cc1200.new", "no spi bus")
		}
		d.bus = jhal.SyncAsync{SPI: cfg.SPI}
	}
	if d.timeout <= 0 {
		d.timeout = time.Second
	}
	if d.wait == nil {
		d.wait = jhal.SleepDelay{}
	}
	if d.cs != nil {
		if err := d.cs.Configure(jhal.PinOutput, jhal.PullNone); err != nil {
			return nil, errcode.New("cc1200.new", ExtBus, err)
		}
		d.cs.Set(true)
	}

	if err := d.Reset(); err != nil {
		return nil, err
	}
	if err := d.waitReady(); err != nil {
		return nil, err
	}
	if cfg.CheckPartNumber {
		pn, err := d.ReadRegister(PartNumber)
		if err != nil {
			return nil, err
		}
		if pn != PartNumberCC1200 {
			return nil, errcode.New("cc1200.new", ExtPartNumber, ErrNotCC1200)
		}
	}
	if err := d.WriteRegister(DevAddr, d.addr); err != nil {
		return nil, err
	}
	if err := d.writeTable(defaultSettings[:]); err != nil {
		return nil, err
	}
	return d, nil
}

// Mode returns the last mode set by the driver.
func (d *Device) Mode() Mode { return d.mode }

// LastStatus returns the status byte clocked out by the most recent frame.
func (d *Device) LastStatus() Status { return d.last }

// Reset issues SRES and waits for the chip to restart.
func (d *Device) Reset() error {
	if err := d.Strobe(SRES); err != nil {
		return err
	}
	d.wait.Delay(tReset)
	d.mode = ModeIdle
	return nil
}

func (d *Device) waitReady() error {
	err := d.readyPoll.Until(context.Background(), d.wait, func() (bool, error) {
		s, err := d.ReadChipStatus()
		return s.Ready(), err
	})
	if errors.Is(err, jhal.ErrPollExhausted) {
		return errcode.New("cc1200.wait_ready", ExtTimeout, ErrChipNotReady)
	}
	return err
}

// ReadChipStatus clocks out the status byte with an SNOP.
func (d *Device) ReadChipStatus() (Status, error) {
	d.w[0] = accessRead | SNOP
	if err := d.xfer("cc1200.read_status", 1); err != nil {
		return 0, err
	}
	return d.last, nil
}

// Strobe sends a single command strobe.
func (d *Device) Strobe(cmd byte) error {
	if cmd < SRES || cmd > SNOP {
		return errcode.Invalid("cc1200.strobe", "not a strobe")
	}
	d.w[0] = accessWrite | cmd
	return d.xfer("cc1200.strobe", 1)
}

// SetMode strobes the chip into m. The first change to a new mode waits
// for the transition to settle.
func (d *Device) SetMode(m Mode) error {
	if m > ModeTransmit {
		return errcode.Invalid("cc1200.set_mode", "unknown mode")
	}
	if err := d.Strobe(m.strobe()); err != nil {
		return err
	}
	if d.mode != m {
		d.wait.Delay(tModeSettle)
	}
	d.mode = m
	return nil
}

// FlushRX discards the RX FIFO.
func (d *Device) FlushRX() error { return d.Strobe(SFRX) }

// FlushTX discards the TX FIFO.
func (d *Device) FlushTX() error { return d.Strobe(SFTX) }

// PartNumber reads the PARTNUMBER register.
func (d *Device) PartNumber() (byte, error) { return d.ReadRegister(PartNumber) }

// xfer runs one frame of n bytes from d.w into d.r. A frame that timed out
// may still complete later, so the next frame first waits for it to finish.
func (d *Device) xfer(op string, n int) error {
	if err := d.done.Settle(d.timeout); err != nil {
		return errcode.New(op, ExtProcessDMA, err)
	}
	if d.cs != nil {
		d.cs.Set(false)
	}
	err := d.bus.StartTx(d.w[:n], d.r[:n], d.done.Arm())
	if err != nil {
		d.done.Cancel()
	} else {
		err = d.done.Wait(d.timeout)
	}
	if d.cs != nil {
		d.cs.Set(true)
	}
	switch {
	case errors.Is(err, jhal.ErrCompletionTimeout):
		d.w, d.r = make([]byte, frameSize), make([]byte, frameSize)
		return errcode.New(op, ExtProcessDMA, err)
	case err != nil:
		return errcode.New(op, ExtBus, err)
	}
	d.last = Status(d.r[0])
	return nil
}
