package jhal

import (
	"errors"
	"strconv"
	"strings"
)

// Port is a GPIO port letter on MCU families that group pins by port.
type Port uint8

const (
	PortA Port = iota
	PortB
	PortC
	PortD
	PortE
	PortF
	PortG
	portCount
)

// MaxPinNum is the highest pin number inside a port.
const MaxPinNum = 15

var ErrBadPinID = errors.New("jhal: malformed pin id")

// PinID names a pin as (port, number).
type PinID struct {
	Port Port
	Num  uint8
}

func (p PinID) Valid() bool { return p.Port < portCount && p.Num <= MaxPinNum }

func (p PinID) String() string {
	if !p.Valid() {
		return "P?"
	}
	return "P" + string(rune('A'+p.Port)) + strconv.Itoa(int(p.Num))
}

// ParsePinID parses "PA4"-style names (case-insensitive port letter).
func ParsePinID(s string) (PinID, error) {
	s = strings.TrimSpace(s)
	if len(s) < 3 || (s[0] != 'P' && s[0] != 'p') {
		return PinID{}, ErrBadPinID
	}
	c := s[1]
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	if c < 'A' || c >= 'A'+byte(portCount) {
		return PinID{}, ErrBadPinID
	}
	n, err := strconv.ParseUint(s[2:], 10, 8)
	if err != nil || n > MaxPinNum {
		return PinID{}, ErrBadPinID
	}
	return PinID{Port: Port(c - 'A'), Num: uint8(n)}, nil
}

// Index is the flat pin number (port*16 + num). Backends without port
// grouping (RP2040 GPIO numbers, Linux GPIO lines) use it as their default
// mapping.
func (p PinID) Index() int { return int(p.Port)*(MaxPinNum+1) + int(p.Num) }

// PinSource hands out pins by id.
type PinSource interface {
	Pin(id PinID) (Pin, error)
}
