// Package periphio backs the jhal contracts with periph.io on Linux hosts:
// GPIO lines from gpioreg, SPI ports from spireg and I2C buses from i2creg.
package periphio

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"jhal-go/jhal"
)

// NoCS asks the SPI port to leave chip select alone; OR it into the mode
// when the driver toggles its own CS pin.
const NoCS = int(spi.NoCS)

var ErrNoLine = errors.New("periphio: no such gpio line")

// Host hands out periph-backed pins and buses.
type Host struct {
	// Lines maps pin ids to gpioreg names. Unmapped ids resolve to
	// "GPIO<index>".
	Lines map[jhal.PinID]string

	mu      sync.Mutex
	closers []io.Closer
}

// Open loads the periph host drivers.
func Open(lines map[jhal.PinID]string) (*Host, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periphio: host init: %w", err)
	}
	return &Host{Lines: lines}, nil
}

// Pin implements jhal.PinSource.
func (h *Host) Pin(id jhal.PinID) (jhal.Pin, error) {
	name, ok := h.Lines[id]
	if !ok {
		name = fmt.Sprintf("GPIO%d", id.Index())
	}
	return h.Line(name)
}

// Line looks a pin up by its gpioreg name.
func (h *Host) Line(name string) (jhal.Pin, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoLine, name)
	}
	return NewPin(p), nil
}

// SPI opens a port and connects at hz with the given mode (0..3, optionally
// with NoCS).
func (h *Host) SPI(dev string, hz int64, mode int) (jhal.SPI, error) {
	p, err := spireg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("periphio: spi %s: %w", dev, err)
	}
	s, err := NewSPI(p, hz, mode)
	if err != nil {
		p.Close()
		return nil, err
	}
	h.track(p)
	return s, nil
}

// I2C opens a bus. periph's i2c.Bus already has the Tx shape drivers use.
func (h *Host) I2C(dev string) (jhal.I2C, error) {
	b, err := i2creg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("periphio: i2c %s: %w", dev, err)
	}
	h.track(b)
	return b, nil
}

// Close releases every bus opened through h.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	var errs []error
	for _, c := range h.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	h.closers = nil
	return errors.Join(errs...)
}

func (h *Host) track(c io.Closer) {
	h.mu.Lock()
	h.closers = append(h.closers, c)
	h.mu.Unlock()
}

// Pin adapts a periph line to jhal.Pin. Open drain is emulated: low drives
// the line, high switches to input with pull-up.
type Pin struct {
	p    gpio.PinIO
	mode jhal.PinMode
	pull gpio.Pull
	err  error
}

func NewPin(p gpio.PinIO) *Pin { return &Pin{p: p} }

func (p *Pin) Configure(mode jhal.PinMode, pull jhal.Pull) error {
	p.mode = mode
	switch pull {
	case jhal.PullUp:
		p.pull = gpio.PullUp
	case jhal.PullDown:
		p.pull = gpio.PullDown
	default:
		p.pull = gpio.Float
	}
	switch mode {
	case jhal.PinInput:
		return p.p.In(p.pull, gpio.NoEdge)
	case jhal.PinOutput:
		return p.p.Out(p.p.Read())
	case jhal.PinOpenDrain:
		return p.p.In(gpio.PullUp, gpio.NoEdge)
	}
	return fmt.Errorf("periphio: unknown pin mode %d", mode)
}

func (p *Pin) Set(high bool) {
	switch {
	case p.mode == jhal.PinOpenDrain && high:
		p.err = p.p.In(gpio.PullUp, gpio.NoEdge)
	default:
		p.err = p.p.Out(gpio.Level(high))
	}
}

func (p *Pin) Get() bool { return p.p.Read() == gpio.High }

// Err returns the error of the last Set, which jhal.Pin cannot report.
func (p *Pin) Err() error { return p.err }

func (p *Pin) String() string { return p.p.Name() }

// SPI adapts a connected periph SPI port to jhal.SPI.
type SPI struct {
	c   spi.Conn
	one [1]byte
	in  [1]byte
}

// NewSPI connects port for 8-bit words.
func NewSPI(port spi.Port, hz int64, mode int) (*SPI, error) {
	if hz <= 0 {
		return nil, fmt.Errorf("periphio: spi clock %d", hz)
	}
	c, err := port.Connect(physic.Frequency(hz)*physic.Hertz, spi.Mode(mode), 8)
	if err != nil {
		return nil, fmt.Errorf("periphio: spi connect: %w", err)
	}
	return &SPI{c: c}, nil
}

func (s *SPI) Tx(w, r []byte) error { return s.c.Tx(w, r) }

func (s *SPI) Transfer(b byte) (byte, error) {
	s.one[0] = b
	err := s.c.Tx(s.one[:], s.in[:])
	return s.in[0], err
}
