// Package config loads a YAML board description: which buses exist, which
// devices hang off them and on which pins. Pin names and bus references are
// resolved here so the rest of the module only sees typed values.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"jhal-go/drivers/onewire"
	"jhal-go/jhal"
)

// Board is the root of a board file.
type Board struct {
	Name string `yaml:"name"`
	// Pins maps port/number ids to backend line names ("PA4": "GPIO17").
	// Ids without an entry use the backend default.
	Pins map[string]string `yaml:"pins,omitempty"`

	SPI []SPIBus `yaml:"spi,omitempty"`
	I2C []I2CBus `yaml:"i2c,omitempty"`

	Devices Devices `yaml:"devices"`
	Sampler Sampler `yaml:"sampler,omitempty"`
}

type SPIBus struct {
	Name string `yaml:"name"`
	Dev  string `yaml:"dev"` // backend port name, e.g. "SPI0.0"
	Hz   int64  `yaml:"hz"`
	Mode int    `yaml:"mode"`
}

type I2CBus struct {
	Name string `yaml:"name"`
	Dev  string `yaml:"dev"`
}

type Devices struct {
	DS18B20 []DS18B20 `yaml:"ds18b20,omitempty"`
	CC1200  []CC1200  `yaml:"cc1200,omitempty"`
	AD5370  []AD5370  `yaml:"ad5370,omitempty"`
	PCA9554 []PCA9554 `yaml:"pca9554,omitempty"`
	MBI5039 []MBI5039 `yaml:"mbi5039,omitempty"`
	EMS22A  []EMS22A  `yaml:"ems22a,omitempty"`
}

type DS18B20 struct {
	Name string `yaml:"name"`
	// Pin carries the bus. RX is set when a separate sense line is wired.
	Pin        Pin `yaml:"pin"`
	RX         Pin `yaml:"rx,omitempty"`
	Address    ROM `yaml:"address,omitempty"`
	Resolution int `yaml:"resolution,omitempty"`
}

type CC1200 struct {
	Name       string        `yaml:"name"`
	SPI        string        `yaml:"spi"`
	CS         Pin           `yaml:"cs,omitempty"`
	Address    uint8         `yaml:"address"`
	Burst      bool          `yaml:"burst,omitempty"`
	CheckPart  bool          `yaml:"check_part,omitempty"`
	DMATimeout time.Duration `yaml:"dma_timeout,omitempty"`
}

type AD5370 struct {
	Name  string `yaml:"name"`
	SPI   string `yaml:"spi"`
	Sync  Pin    `yaml:"sync"`
	Reset Pin    `yaml:"reset"`
	Busy  Pin    `yaml:"busy"`
	LDAC  Pin    `yaml:"ldac"`
	CLR   Pin    `yaml:"clr"`
	// SkipVerify drops the per-channel readback.
	SkipVerify bool `yaml:"skip_verify,omitempty"`
}

type PCA9554 struct {
	Name    string `yaml:"name"`
	I2C     string `yaml:"i2c"`
	A       bool   `yaml:"a,omitempty"`
	Address uint8  `yaml:"address"`
	INT     Pin    `yaml:"int,omitempty"`
	// Outputs is the configuration mask applied at start: set bits are outputs.
	Outputs uint8 `yaml:"outputs,omitempty"`
}

type MBI5039 struct {
	Name  string `yaml:"name"`
	SPI   string `yaml:"spi"`
	NSS   Pin    `yaml:"nss"`
	Chain int    `yaml:"chain"`
}

type EMS22A struct {
	Name string `yaml:"name"`
	SPI  string `yaml:"spi"`
	CS   Pin    `yaml:"cs,omitempty"`
}

// Sampler holds the periodic measurement settings.
type Sampler struct {
	Period       time.Duration `yaml:"period,omitempty"`
	RetryBackoff time.Duration `yaml:"retry_backoff,omitempty"`
	MaxRetries   int           `yaml:"max_retries,omitempty"`
}

// Pin is a pin reference written as "PA4". The zero value means absent.
type Pin struct {
	ID  jhal.PinID
	Set bool
}

func (p *Pin) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*p = Pin{}
		return nil
	}
	id, err := jhal.ParsePinID(s)
	if err != nil {
		return fmt.Errorf("line %d: pin %q: %w", n.Line, s, err)
	}
	*p = Pin{ID: id, Set: true}
	return nil
}

func (p Pin) MarshalYAML() (any, error) {
	if !p.Set {
		return "", nil
	}
	return p.ID.String(), nil
}

func (p Pin) String() string {
	if !p.Set {
		return "-"
	}
	return p.ID.String()
}

// ROM is a one-wire address written as 16 hex digits, family byte last.
type ROM onewire.Address

func (r *ROM) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
	if err != nil {
		return fmt.Errorf("line %d: rom %q: %w", n.Line, s, err)
	}
	if a := onewire.Address(v); v != 0 && !a.Valid() {
		return fmt.Errorf("line %d: rom %q: crc mismatch", n.Line, s)
	}
	*r = ROM(v)
	return nil
}

func (r ROM) MarshalYAML() (any, error) { return onewire.Address(r).String(), nil }

// Load reads and parses a board file.
func Load(path string) (*Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{File: path, Msg: "read failed", Cause: err}
	}
	b, err := Parse(data)
	if err != nil {
		if ce, ok := err.(*Error); ok {
			ce.File = path
			return nil, ce
		}
		return nil, &Error{File: path, Msg: err.Error()}
	}
	return b, nil
}

// Parse decodes and validates a board description.
func Parse(data []byte) (*Board, error) {
	var b Board
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil && !errors.Is(err, io.EOF) {
		return nil, &Error{Msg: "invalid yaml", Cause: err}
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Marshal renders the board back to YAML.
func (b *Board) Marshal() ([]byte, error) { return yaml.Marshal(b) }

// Error reports a board file problem.
type Error struct {
	File  string
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	s := "config: "
	if e.File != "" {
		s += e.File + ": "
	}
	s += e.Msg
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Cause }
