package onewire

import (
	"strconv"

	"jhal-go/errcode"
)

// Address is a 64-bit ROM code as it appears on the wire: family code in the
// low byte, CRC in the high byte.
type Address uint64

// Family returns the device family code (0x28 for DS18B20).
func (a Address) Family() byte { return byte(a) }

func (a Address) Bytes() [8]byte {
	var p [8]byte
	for i := range p {
		p[i] = byte(a >> (8 * i))
	}
	return p
}

// Valid reports whether the embedded CRC matches.
func (a Address) Valid() bool {
	p := a.Bytes()
	return CRC8(p[:]) == 0
}

func (a Address) String() string {
	s := strconv.FormatUint(uint64(a), 16)
	for len(s) < 16 {
		s = "0" + s
	}
	return s
}

// AddressFromBytes assembles an address from its 8 wire bytes.
func AddressFromBytes(p [8]byte) Address {
	var a Address
	for i := range p {
		a |= Address(p[i]) << (8 * i)
	}
	return a
}

// ReadROM reads the address of the only device on the bus.
func (b *Bus) ReadROM() (Address, error) {
	if err := b.Reset(); err != nil {
		return 0, err
	}
	b.TxByte(CmdReadROM)
	var p [8]byte
	b.Rx(p[:])
	a := AddressFromBytes(p)
	if !a.Valid() {
		return 0, errcode.New("onewire.read_rom", ExtCRC, ErrBadCRC)
	}
	return a, nil
}

// Select resets the bus and addresses one device: SKIP ROM when addr is
// zero, MATCH ROM otherwise.
func (b *Bus) Select(addr Address) error {
	if addr == 0 {
		return b.SkipROM()
	}
	return b.MatchROM(addr)
}

// SkipROM resets the bus and addresses every device on it.
func (b *Bus) SkipROM() error {
	if err := b.Reset(); err != nil {
		return err
	}
	b.TxByte(CmdSkipROM)
	return nil
}

// MatchROM resets the bus and addresses the device with addr.
func (b *Bus) MatchROM(addr Address) error {
	if err := b.Reset(); err != nil {
		return err
	}
	b.TxByte(CmdMatchROM)
	p := addr.Bytes()
	b.Tx(p[:])
	return nil
}

// Search enumerates device addresses with the ROM search triplet algorithm.
// With alarmOnly only devices with an active alarm flag take part.
func (b *Bus) Search(alarmOnly bool) ([]Address, error) {
	cmd := CmdSearchROM
	if alarmOnly {
		cmd = CmdAlarmSearch
	}
	var (
		found []Address
		last  Address
		lastD = -1
	)
	for {
		if err := b.Reset(); err != nil {
			return found, err
		}
		b.TxByte(cmd)

		var addr Address
		d := -1
		for i := 0; i < 64; i++ {
			id, cmp := b.ReadBit(), b.ReadBit()
			if id && cmp {
				if i == 0 && len(found) == 0 {
					return nil, nil
				}
				return found, errcode.New("onewire.search", ExtNotResponding, ErrNoPresence)
			}
			dir := id
			if id == cmp {
				switch {
				case i < lastD:
					dir = last>>i&1 != 0
				default:
					dir = i == lastD
				}
				if !dir {
					d = i
				}
			}
			if dir {
				addr |= 1 << i
			}
			b.WriteBit(dir)
		}
		if !addr.Valid() {
			return found, errcode.New("onewire.search", ExtCRC, ErrBadCRC)
		}
		found = append(found, addr)
		if d < 0 {
			return found, nil
		}
		last, lastD = addr, d
	}
}
