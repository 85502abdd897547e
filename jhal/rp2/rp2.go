//go:build rp2040

// Package rp2 backs the jhal contracts with TinyGo's machine package on the
// RP2040: GPIO by number, the two SPI blocks and a uartx console.
package rp2

import (
	"context"
	"errors"
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"jhal-go/jhal"
)

// MaxGPIO is the highest user GPIO.
const MaxGPIO = 28

var ErrNoGPIO = errors.New("rp2: no such gpio")

// Pin adapts a machine.Pin. Open drain is emulated by switching between a
// low output and an input with pull-up.
type Pin struct {
	p    machine.Pin
	mode jhal.PinMode
}

// GPIO returns GPIO n.
func GPIO(n int) (*Pin, error) {
	if n < 0 || n > MaxGPIO {
		return nil, ErrNoGPIO
	}
	return &Pin{p: machine.Pin(n)}, nil
}

func (p *Pin) Configure(mode jhal.PinMode, pull jhal.Pull) error {
	p.mode = mode
	switch mode {
	case jhal.PinOutput:
		p.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	case jhal.PinOpenDrain:
		p.p.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	default:
		m := machine.PinInput
		switch pull {
		case jhal.PullUp:
			m = machine.PinInputPullup
		case jhal.PullDown:
			m = machine.PinInputPulldown
		}
		p.p.Configure(machine.PinConfig{Mode: m})
	}
	return nil
}

func (p *Pin) Set(high bool) {
	if p.mode != jhal.PinOpenDrain {
		p.p.Set(high)
		return
	}
	if high {
		p.p.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
		return
	}
	p.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.p.Low()
}

func (p *Pin) Get() bool { return p.p.Get() }

// Pins implements jhal.PinSource with the flat index as the GPIO number, so
// "PA15" is GP15 and "PB0" is GP16.
type Pins struct{}

func (Pins) Pin(id jhal.PinID) (jhal.Pin, error) {
	p, err := GPIO(id.Index())
	if err != nil {
		return nil, err
	}
	return p, nil
}

// SPIConfig selects an SPI block and its pins.
type SPIConfig struct {
	Bus       int // 0 or 1
	SCK, SDO  int
	SDI       int
	Frequency uint32
	Mode      uint8
}

// SPI configures and returns an SPI block. machine.SPI already has the
// Tx/Transfer shape drivers use.
func SPI(cfg SPIConfig) (jhal.SPI, error) {
	var hw *machine.SPI
	switch cfg.Bus {
	case 0:
		hw = machine.SPI0
	case 1:
		hw = machine.SPI1
	default:
		return nil, errors.New("rp2: spi bus must be 0 or 1")
	}
	err := hw.Configure(machine.SPIConfig{
		Frequency: cfg.Frequency,
		SCK:       machine.Pin(cfg.SCK),
		SDO:       machine.Pin(cfg.SDO),
		SDI:       machine.Pin(cfg.SDI),
		Mode:      cfg.Mode,
	})
	if err != nil {
		return nil, err
	}
	return hw, nil
}

// Console is a line-oriented uartx port.
type Console struct {
	u   *uartx.UART
	buf []byte
}

// NewConsole configures UART0 or UART1. Zero baud keeps the uartx default.
func NewConsole(n int, baud uint32, tx, rx int) (*Console, error) {
	var hw *uartx.UART
	switch n {
	case 0:
		hw = uartx.UART0
	case 1:
		hw = uartx.UART1
	default:
		return nil, errors.New("rp2: uart must be 0 or 1")
	}
	if err := hw.Configure(uartx.UARTConfig{
		BaudRate: baud,
		TX:       machine.Pin(tx),
		RX:       machine.Pin(rx),
	}); err != nil {
		return nil, err
	}
	return &Console{u: hw, buf: make([]byte, 0, 64)}, nil
}

func (c *Console) Write(p []byte) (int, error) { return c.u.Write(p) }

// ReadLine blocks until a CR or LF terminated line arrives or ctx is done.
// The returned slice is valid until the next call.
func (c *Console) ReadLine(ctx context.Context) ([]byte, error) {
	c.buf = c.buf[:0]
	var one [1]byte
	for {
		n, err := c.u.RecvSomeContext(ctx, one[:])
		if err != nil {
			return nil, err
		}
		if n == 0 {
			continue
		}
		switch b := one[0]; b {
		case '\r', '\n':
			if len(c.buf) > 0 {
				return c.buf, nil
			}
		case 0x7F, 0x08:
			if len(c.buf) > 0 {
				c.buf = c.buf[:len(c.buf)-1]
			}
		default:
			if len(c.buf) < cap(c.buf) {
				c.buf = append(c.buf, b)
			}
		}
	}
}
