package config

import (
	"fmt"

	"jhal-go/drivers/ds18b20"
	"jhal-go/drivers/mbi5039"
	"jhal-go/drivers/onewire"
)

// Validate checks names, bus references, required pins, value ranges and
// that no pin is claimed twice.
func (b *Board) Validate() error {
	v := validator{names: map[string]bool{}, pins: map[Pin]string{}, spi: map[string]bool{}, i2c: map[string]bool{}}

	for _, s := range b.SPI {
		v.name("spi", s.Name)
		v.spi[s.Name] = true
		if s.Dev == "" {
			v.fail("spi %s: dev required", s.Name)
		}
		if s.Hz <= 0 {
			v.fail("spi %s: hz must be positive", s.Name)
		}
		if s.Mode < 0 || s.Mode > 3 {
			v.fail("spi %s: mode must be 0..3", s.Name)
		}
	}
	for _, i := range b.I2C {
		v.name("i2c", i.Name)
		v.i2c[i.Name] = true
		if i.Dev == "" {
			v.fail("i2c %s: dev required", i.Name)
		}
	}
	for k := range b.Pins {
		if _, err := parsePin(k); err != nil {
			v.fail("pins: %q is not a pin id", k)
		}
	}

	d := &b.Devices
	for _, t := range d.DS18B20 {
		v.name("ds18b20", t.Name)
		v.pin(t.Name, "data", t.Pin, true)
		v.pin(t.Name, "rx", t.RX, false)
		if t.Resolution != 0 && !ds18b20.Resolution(t.Resolution).Valid() {
			v.fail("%s: resolution must be 9..12", t.Name)
		}
		if a := onewire.Address(t.Address); a != 0 && a.Family() != ds18b20.FamilyCode {
			v.fail("%s: address is not a DS18B20", t.Name)
		}
	}
	for _, r := range d.CC1200 {
		v.name("cc1200", r.Name)
		v.bus(r.Name, r.SPI, v.spi)
		v.pin(r.Name, "cs", r.CS, false)
		if r.DMATimeout < 0 {
			v.fail("%s: dma_timeout negative", r.Name)
		}
	}
	for _, a := range d.AD5370 {
		v.name("ad5370", a.Name)
		v.bus(a.Name, a.SPI, v.spi)
		v.pin(a.Name, "sync", a.Sync, true)
		v.pin(a.Name, "reset", a.Reset, true)
		v.pin(a.Name, "busy", a.Busy, true)
		v.pin(a.Name, "ldac", a.LDAC, true)
		v.pin(a.Name, "clr", a.CLR, true)
	}
	for _, x := range d.PCA9554 {
		v.name("pca9554", x.Name)
		v.bus(x.Name, x.I2C, v.i2c)
		v.pin(x.Name, "int", x.INT, false)
		if x.Address > 7 {
			v.fail("%s: address must be 0..7", x.Name)
		}
	}
	for _, l := range d.MBI5039 {
		v.name("mbi5039", l.Name)
		v.bus(l.Name, l.SPI, v.spi)
		v.pin(l.Name, "nss", l.NSS, true)
		if l.Chain < 1 || l.Chain > mbi5039.MaxChain {
			v.fail("%s: chain must be 1..%d", l.Name, mbi5039.MaxChain)
		}
	}
	for _, e := range d.EMS22A {
		v.name("ems22a", e.Name)
		v.bus(e.Name, e.SPI, v.spi)
		v.pin(e.Name, "cs", e.CS, false)
	}

	if b.Sampler.Period < 0 || b.Sampler.RetryBackoff < 0 || b.Sampler.MaxRetries < 0 {
		v.fail("sampler: negative setting")
	}
	return v.err
}

type validator struct {
	names    map[string]bool
	pins     map[Pin]string
	spi, i2c map[string]bool
	err      error
}

func (v *validator) fail(format string, args ...any) {
	if v.err == nil {
		v.err = &Error{Msg: fmt.Sprintf(format, args...)}
	}
}

func (v *validator) name(kind, n string) {
	switch {
	case n == "":
		v.fail("%s: name required", kind)
	case v.names[n]:
		v.fail("%s: duplicate name %q", kind, n)
	}
	v.names[n] = true
}

func (v *validator) bus(dev, ref string, known map[string]bool) {
	if !known[ref] {
		v.fail("%s: unknown bus %q", dev, ref)
	}
}

func (v *validator) pin(dev, role string, p Pin, required bool) {
	if !p.Set {
		if required {
			v.fail("%s: %s pin required", dev, role)
		}
		return
	}
	if owner, ok := v.pins[p]; ok {
		v.fail("%s: %s pin %s already used by %s", dev, role, p, owner)
		return
	}
	v.pins[p] = dev + "." + role
}
