package ad5370

import (
	"errors"
	"fmt"
	"time"

	"jhal-go/jhal"
)

// fakeDAC models the AD5370 register file behind SPI plus its control lines.
// Every bus frame and pin edge is appended to log.
type fakeDAC struct {
	ctrl     uint16
	ofs      [2]uint16
	ab       [NumGroups]uint16
	x1a, x1b [48]uint16
	c, m     [48]uint16
	out      uint16

	log        []string
	frames     int
	violations int // frames clocked with SYNC high

	// corrupt XORs the value clocked out for a readback selector.
	corrupt map[uint16]uint16
	// busyReads is how many BUSY reads stay low after a channel write.
	busyReads int
	busyLeft  int
	busyStuck bool
	txErr     error

	sync, reset, busy, ldac, clr *fakePin
}

func newFakeDAC() *fakeDAC {
	f := &fakeDAC{corrupt: map[uint16]uint16{}}
	f.sync = &fakePin{f: f, name: "sync", level: true}
	f.reset = &fakePin{f: f, name: "reset", level: true}
	f.busy = &fakePin{f: f, name: "busy"}
	f.ldac = &fakePin{f: f, name: "ldac", level: true}
	f.clr = &fakePin{f: f, name: "clr", level: true}
	f.powerOn()
	return f
}

func (f *fakeDAC) config() Config {
	return Config{
		SPI:   f,
		Sync:  f.sync,
		Reset: f.reset,
		Busy:  f.busy,
		LDAC:  f.ldac,
		CLR:   f.clr,
		Wait:  noDelay{},
	}
}

func (f *fakeDAC) powerOn() {
	f.ctrl = 0
	f.ofs = [2]uint16{0x1555, 0x1555}
	f.ab = [NumGroups]uint16{}
	for i := range f.x1a {
		f.x1a[i], f.x1b[i] = 0x1234, 0x1234
		f.c[i], f.m[i] = 0x8000, 0xFFFF
	}
}

func (f *fakeDAC) Tx(w, r []byte) error {
	if f.txErr != nil {
		return f.txErr
	}
	if f.sync.level {
		f.violations++
	}
	f.frames++
	f.log = append(f.log, fmt.Sprintf("tx %02x%02x%02x", w[0], w[1], w[2]))
	if r != nil {
		r[0], r[1], r[2] = 0, byte(f.out>>8), byte(f.out)
	}
	f.out = 0
	f.apply(w)
	return nil
}

func (f *fakeDAC) Transfer(b byte) (byte, error) { return 0, nil }

func (f *fakeDAC) apply(w []byte) {
	a := w[0] & 0x3F
	v := uint16(w[1])<<8 | uint16(w[2])
	switch w[0] & 0xC0 {
	case modeX:
		if f.ctrl&CtrlSelectB != 0 {
			f.x1b[a] = v
		} else {
			f.x1a[a] = v
		}
		f.busyLeft = f.busyReads
	case modeC:
		f.c[a] = v
		f.busyLeft = f.busyReads
	case modeM:
		f.m[a] = v
		f.busyLeft = f.busyReads
	default:
		switch a {
		case byte(RegControl):
			f.ctrl = v
		case byte(RegOffset0), byte(RegOffset1):
			f.ofs[a-byte(RegOffset0)] = v
		case specReadback:
			f.out = f.read(v) ^ f.corrupt[v]
		case specBlockAB:
			for g := range f.ab {
				f.ab[g] = v & 0xFF
			}
		default:
			if a >= byte(RegSelectAB0) && a <= byte(RegSelectAB4) {
				f.ab[a-byte(RegSelectAB0)] = v & 0xFF
			}
		}
	}
}

func (f *fakeDAC) read(sel uint16) uint16 {
	if sel&0x8000 == 0 {
		a := (sel >> 7) & 0x3F
		switch sel & 0x6000 {
		case rbX1A:
			return f.x1a[a]
		case rbX1B:
			return f.x1b[a]
		case rbC:
			return f.c[a]
		default:
			return f.m[a]
		}
	}
	switch sel {
	case 0x8080:
		return f.ctrl
	case 0x8100:
		return f.ofs[0]
	case 0x8180:
		return f.ofs[1]
	}
	return f.ab[(sel-0x8300)/0x80]
}

func (f *fakeDAC) index(entry string) int {
	for i, s := range f.log {
		if s == entry {
			return i
		}
	}
	return -1
}

func (f *fakeDAC) count(entry string) int {
	n := 0
	for _, s := range f.log {
		if s == entry {
			n++
		}
	}
	return n
}

type fakePin struct {
	f       *fakeDAC
	name    string
	level   bool
	mode    jhal.PinMode
	failCfg error
}

func (p *fakePin) Configure(mode jhal.PinMode, _ jhal.Pull) error {
	p.mode = mode
	return p.failCfg
}

func (p *fakePin) Set(high bool) {
	if p.name == "reset" && !high {
		p.f.powerOn()
	}
	p.level = high
	v := 0
	if high {
		v = 1
	}
	p.f.log = append(p.f.log, fmt.Sprintf("%s%d", p.name, v))
}

func (p *fakePin) Get() bool {
	if p.name != "busy" {
		return p.level
	}
	high := true
	switch {
	case p.f.busyStuck:
		high = false
	case p.f.busyLeft > 0:
		p.f.busyLeft--
		high = false
	}
	if high {
		p.f.log = append(p.f.log, "busy1")
	} else {
		p.f.log = append(p.f.log, "busy0")
	}
	return high
}

type noDelay struct{}

func (noDelay) Delay(time.Duration) {}

var errBus = errors.New("spi fault")
