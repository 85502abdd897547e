// Package jhal holds the collaborator contracts the drivers are written
// against: delays, GPIO pins, SPI (synchronous and completion-signalled) and
// I2C. Platform backends live in subpackages (periphio for Linux hosts, rp2
// for TinyGo on RP2040).
package jhal

import (
	"time"

	"tinygo.org/x/drivers"
)

// SPI is a synchronous full-duplex transfer. When r is nil the received bytes
// are discarded; otherwise len(r) must equal len(w).
type SPI = drivers.SPI

// I2C is a combined write-then-read transaction addressed to a 7-bit device.
type I2C = drivers.I2C

// PinMode selects how a pin is driven.
type PinMode uint8

const (
	PinInput PinMode = iota
	PinOutput
	// PinOpenDrain drives low on Set(false) and releases the line on Set(true).
	PinOpenDrain
)

// Pull selects the input bias.
type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// Pin is a single GPIO line.
type Pin interface {
	Configure(mode PinMode, pull Pull) error
	Set(high bool)
	Get() bool
}

// Delayer blocks the calling goroutine for at least d.
type Delayer interface {
	Delay(d time.Duration)
}

// DelayerFunc adapts a function to Delayer.
type DelayerFunc func(d time.Duration)

func (f DelayerFunc) Delay(d time.Duration) { f(d) }
