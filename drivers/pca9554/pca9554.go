// Package pca9554 drives the PCA9554/PCA9554A 8-bit I2C GPIO expander.
//
// Register writes are verified: the expander keeps its command pointer on the
// register just written, so a bare read returns it for comparison. The
// driver shadows the configuration and output registers; pin-level calls
// check direction against the shadow before touching the bus.
package pca9554

import (
	"errors"

	"jhal-go/errcode"
	"jhal-go/jhal"
)

// Base addresses; the three address pins are ORed in.
const (
	BaseAddress  = 0x20
	BaseAddressA = 0x38
)

// NumPins is the width of the port.
const NumPins = 8

// Registers.
const (
	regInput    = 0x00
	regOutput   = 0x01
	regPolarity = 0x02
	regConfig   = 0x03
)

// Direction of one port pin as stored in the configuration register.
type Direction uint8

const (
	Output Direction = 0
	Input  Direction = 1
)

// Extended codes.
const (
	ExtInitI2C    errcode.Ext = "init_i2c"
	ExtInitGPIO   errcode.Ext = "init_gpio"
	ExtProcessI2C errcode.Ext = "process_i2c"
	ExtWriteI2C   errcode.Ext = "write_i2c"
)

var (
	ErrVerify    = errors.New("pca9554: readback mismatch")
	ErrDirection = errors.New("pca9554: pin has the other direction")
)

type Config struct {
	// A selects the PCA9554A address block (0x38).
	A bool
	// Address holds the A2..A0 pin strapping (0..7).
	Address uint8
	// INT is the optional open-drain interrupt line.
	INT jhal.Pin
}

// Device is a handle to one expander.
type Device struct {
	bus  jhal.I2C
	addr uint16
	irq  jhal.Pin

	config   byte
	output   byte
	polarity byte

	w [2]byte
	r [1]byte
}

// New validates cfg and configures the INT line. The expander itself is not
// touched; its registers are assumed to hold power-on values (all inputs,
// outputs high, no inversion).
func New(bus jhal.I2C, cfg Config) (*Device, error) {
	const op = "pca9554.new"
	if bus == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, X: ExtInitI2C, Op: op, Msg: "no i2c bus"}
	}
	if cfg.Address > 7 {
		return nil, errcode.Invalid(op, "address strapping out of range")
	}
	base := uint16(BaseAddress)
	if cfg.A {
		base = BaseAddressA
	}
	d := &Device{
		bus:    bus,
		addr:   base | uint16(cfg.Address),
		irq:    cfg.INT,
		config: 0xFF,
		output: 0xFF,
	}
	if d.irq != nil {
		if err := d.irq.Configure(jhal.PinInput, jhal.PullUp); err != nil {
			return nil, errcode.New(op, ExtInitGPIO, err)
		}
	}
	return d, nil
}

// Address returns the 7-bit bus address.
func (d *Device) Address() uint16 { return d.addr }

// Interrupt reports whether INT is asserted. Always false without an INT pin.
func (d *Device) Interrupt() bool { return d.irq != nil && !d.irq.Get() }

// ConfigurePin sets the direction of one pin.
func (d *Device) ConfigurePin(pin int, dir Direction) error {
	if pin < 0 || pin >= NumPins || dir > Input {
		return errcode.Invalid("pca9554.configure_pin", "bad pin or direction")
	}
	return d.Configure(setBit(d.config, pin, dir == Input))
}

// Configure writes the whole configuration register; a set bit is an input.
func (d *Device) Configure(mask byte) error {
	if err := d.writeRegister("pca9554.configure", regConfig, mask); err != nil {
		return err
	}
	d.config = mask
	return nil
}

// Direction returns the shadowed direction of pin.
func (d *Device) Direction(pin int) Direction {
	if pin < 0 || pin >= NumPins || d.config&(1<<pin) != 0 {
		return Input
	}
	return Output
}

// SetOutput drives one output pin.
func (d *Device) SetOutput(pin int, high bool) error {
	const op = "pca9554.set_output"
	if pin < 0 || pin >= NumPins {
		return errcode.Invalid(op, "pin out of range")
	}
	if d.Direction(pin) != Output {
		return &errcode.E{C: errcode.InvalidParams, Op: op, Err: ErrDirection}
	}
	return d.WriteOutputs(setBit(d.output, pin, high))
}

// Output returns the shadowed level of an output pin.
func (d *Device) Output(pin int) bool {
	return pin >= 0 && pin < NumPins && d.output&(1<<pin) != 0
}

// WriteOutputs writes the whole output register.
func (d *Device) WriteOutputs(v byte) error {
	if err := d.writeRegister("pca9554.write_outputs", regOutput, v); err != nil {
		return err
	}
	d.output = v
	return nil
}

// SetPolarity writes the polarity inversion register.
func (d *Device) SetPolarity(mask byte) error {
	if err := d.writeRegister("pca9554.set_polarity", regPolarity, mask); err != nil {
		return err
	}
	d.polarity = mask
	return nil
}

// ReadInputs reads the input port register.
func (d *Device) ReadInputs() (byte, error) {
	d.w[0] = regInput
	if err := d.bus.Tx(d.addr, d.w[:1], d.r[:]); err != nil {
		return 0, errcode.New("pca9554.read_inputs", ExtProcessI2C, err)
	}
	return d.r[0], nil
}

// Input reads the level of one input pin.
func (d *Device) Input(pin int) (bool, error) {
	const op = "pca9554.input"
	if pin < 0 || pin >= NumPins {
		return false, errcode.Invalid(op, "pin out of range")
	}
	if d.Direction(pin) != Input {
		return false, &errcode.E{C: errcode.InvalidParams, Op: op, Err: ErrDirection}
	}
	v, err := d.ReadInputs()
	return v&(1<<pin) != 0, err
}

func (d *Device) writeRegister(op string, reg, v byte) error {
	d.w[0], d.w[1] = reg, v
	if err := d.bus.Tx(d.addr, d.w[:], nil); err != nil {
		return errcode.New(op, ExtProcessI2C, err)
	}
	if err := d.bus.Tx(d.addr, nil, d.r[:]); err != nil {
		return errcode.New(op, ExtProcessI2C, err)
	}
	if d.r[0] != v {
		return &errcode.E{C: errcode.Error, X: ExtWriteI2C, Op: op, Err: ErrVerify}
	}
	return nil
}

func setBit(b byte, n int, on bool) byte {
	if on {
		return b | 1<<n
	}
	return b &^ (1 << n)
}
