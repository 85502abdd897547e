package main

import (
	"context"
	"fmt"
	"sort"

	"jhal-go/config"
	"jhal-go/drivers/ad5370"
	"jhal-go/drivers/cc1200"
	"jhal-go/drivers/ds18b20"
	"jhal-go/drivers/ems22a"
	"jhal-go/drivers/mbi5039"
	"jhal-go/drivers/onewire"
	"jhal-go/drivers/pca9554"
	"jhal-go/jhal"
	"jhal-go/services/sampler"
)

type thermometer interface {
	Read(ctx context.Context) (ds18b20.Temperature, error)
}

type dac interface {
	SetChannel(group, ch int, code uint16) error
	ReadChannel(group, ch int) (uint16, error)
}

type radio interface {
	TransmitFixPacket(payload []byte) error
	ReceiveFixPacket(ctx context.Context, p []byte) error
	ReadChipStatus() (cc1200.Status, error)
}

type expander interface {
	ConfigurePin(pin int, dir pca9554.Direction) error
	SetOutput(pin int, high bool) error
	Input(pin int) (bool, error)
	Direction(pin int) pca9554.Direction
}

type ledChain interface {
	Set(chip, ch int, on bool) error
	Reset() error
	Chain() int
}

type encoder interface {
	Read() (ems22a.Sample, error)
}

// rig holds every device built from the board file, keyed by name.
type rig struct {
	temps     map[string]thermometer
	dacs      map[string]dac
	radios    map[string]radio
	expanders map[string]expander
	leds      map[string]ledChain
	encoders  map[string]encoder

	// sampled are the devices "watch" feeds to the sampler.
	sampled []sampler.Adaptor
	sampler config.Sampler
}

func newRig() *rig {
	return &rig{
		temps:     map[string]thermometer{},
		dacs:      map[string]dac{},
		radios:    map[string]radio{},
		expanders: map[string]expander{},
		leds:      map[string]ledChain{},
		encoders:  map[string]encoder{},
	}
}

// backend is what the rig needs from a platform.
type backend interface {
	Pin(id jhal.PinID) (jhal.Pin, error)
	SPI(dev string, hz int64, mode int) (jhal.SPI, error)
	I2C(dev string) (jhal.I2C, error)
}

// build opens every bus and device named by the board. Devices that fail
// are reported and skipped so one bad part does not block the rest.
func build(b *config.Board, be backend, warn func(string)) (*rig, error) {
	r := newRig()
	r.sampler = b.Sampler

	spis := map[string]jhal.SPI{}
	for _, s := range b.SPI {
		bus, err := be.SPI(s.Dev, s.Hz, s.Mode)
		if err != nil {
			return nil, err
		}
		spis[s.Name] = bus
	}
	i2cs := map[string]jhal.I2C{}
	for _, i := range b.I2C {
		bus, err := be.I2C(i.Dev)
		if err != nil {
			return nil, err
		}
		i2cs[i.Name] = bus
	}
	pin := func(p config.Pin) (jhal.Pin, error) {
		if !p.Set {
			return nil, nil
		}
		return be.Pin(p.ID)
	}
	skip := func(name string, err error) {
		warn(fmt.Sprintf("%s: %v", name, err))
	}

	for _, t := range b.Devices.DS18B20 {
		tx, err := pin(t.Pin)
		if err != nil {
			skip(t.Name, err)
			continue
		}
		rx, err := pin(t.RX)
		if err != nil {
			skip(t.Name, err)
			continue
		}
		d, err := ds18b20.Create(onewire.Config{TX: tx, RX: rx}, t.Driver())
		if err != nil {
			skip(t.Name, err)
			continue
		}
		r.temps[t.Name] = d
		r.sampled = append(r.sampled, &sampler.Thermometer{Name: t.Name, Device: d})
	}
	for _, c := range b.Devices.CC1200 {
		cs, err := pin(c.CS)
		if err != nil {
			skip(c.Name, err)
			continue
		}
		d, err := cc1200.New(cc1200.Config{
			SPI:             spis[c.SPI],
			CS:              cs,
			Address:         c.Address,
			BurstFIFO:       c.Burst,
			CheckPartNumber: c.CheckPart,
			DMATimeout:      c.DMATimeout,
		})
		if err != nil {
			skip(c.Name, err)
			continue
		}
		r.radios[c.Name] = d
	}
	for _, a := range b.Devices.AD5370 {
		var pins [5]jhal.Pin
		var err error
		for i, p := range []config.Pin{a.Sync, a.Reset, a.Busy, a.LDAC, a.CLR} {
			if pins[i], err = pin(p); err != nil {
				break
			}
		}
		if err != nil {
			skip(a.Name, err)
			continue
		}
		d, err := ad5370.Create(ad5370.Config{
			SPI:               spis[a.SPI],
			Sync:              pins[0],
			Reset:             pins[1],
			Busy:              pins[2],
			LDAC:              pins[3],
			CLR:               pins[4],
			SkipChannelVerify: a.SkipVerify,
		})
		if err != nil {
			skip(a.Name, err)
			continue
		}
		r.dacs[a.Name] = d
	}
	for _, x := range b.Devices.PCA9554 {
		irq, err := pin(x.INT)
		if err != nil {
			skip(x.Name, err)
			continue
		}
		d, err := pca9554.New(i2cs[x.I2C], pca9554.Config{A: x.A, Address: x.Address, INT: irq})
		if err == nil && x.Outputs != 0 {
			err = d.Configure(^x.Outputs)
		}
		if err != nil {
			skip(x.Name, err)
			continue
		}
		r.expanders[x.Name] = d
	}
	for _, l := range b.Devices.MBI5039 {
		nss, err := pin(l.NSS)
		if err != nil {
			skip(l.Name, err)
			continue
		}
		d, err := mbi5039.New(spis[l.SPI], mbi5039.Config{NSS: nss, Chain: l.Chain})
		if err == nil {
			err = d.Reset()
		}
		if err != nil {
			skip(l.Name, err)
			continue
		}
		r.leds[l.Name] = d
	}
	for _, e := range b.Devices.EMS22A {
		cs, err := pin(e.CS)
		if err != nil {
			skip(e.Name, err)
			continue
		}
		d, err := ems22a.Create(spis[e.SPI], cs)
		if err != nil {
			skip(e.Name, err)
			continue
		}
		r.encoders[e.Name] = d
		r.sampled = append(r.sampled, &sampler.Encoder{Name: e.Name, Device: d})
	}
	return r, nil
}

// pick resolves the device named by args[0], or the only device of the
// kind when the name is omitted. It returns the remaining arguments.
func pick[T any](kind string, m map[string]T, args []string) (T, []string, error) {
	var zero T
	if len(args) > 0 {
		if d, ok := m[args[0]]; ok {
			return d, args[1:], nil
		}
	}
	if len(m) == 1 {
		for _, d := range m {
			return d, args, nil
		}
	}
	if len(m) == 0 {
		return zero, nil, fmt.Errorf("no %s configured", kind)
	}
	return zero, nil, fmt.Errorf("which %s? one of %v", kind, names(m))
}

func names[T any](m map[string]T) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
