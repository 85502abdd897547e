package config

import (
	"jhal-go/drivers/ds18b20"
	"jhal-go/drivers/onewire"
	"jhal-go/jhal"
)

func parsePin(s string) (jhal.PinID, error) { return jhal.ParsePinID(s) }

// LineName returns the backend line name mapped to id, or "" when the
// backend default applies.
func (b *Board) LineName(id jhal.PinID) string {
	for k, v := range b.Pins {
		if p, err := parsePin(k); err == nil && p == id {
			return v
		}
	}
	return ""
}

// SPIBus looks up a bus by name.
func (b *Board) SPIBus(name string) (SPIBus, bool) {
	for _, s := range b.SPI {
		if s.Name == name {
			return s, true
		}
	}
	return SPIBus{}, false
}

// I2CBus looks up a bus by name.
func (b *Board) I2CBus(name string) (I2CBus, bool) {
	for _, i := range b.I2C {
		if i.Name == name {
			return i, true
		}
	}
	return I2CBus{}, false
}

// Driver returns the ds18b20 settings carried by the entry.
func (t DS18B20) Driver() ds18b20.Config {
	return ds18b20.Config{
		Address:    onewire.Address(t.Address),
		Resolution: ds18b20.Resolution(t.Resolution),
	}
}
