package cc1200

import "jhal-go/errcode"

// frame lays out the header for reg in d.w and returns the frame length
// without data bytes and the index of the first data byte.
func (d *Device) frame(access byte, reg Register) int {
	if reg.Extended() {
		d.w[0] = access | extendedAddress
		d.w[1] = byte(reg)
		return 2
	}
	d.w[0] = access | byte(reg)
	return 1
}

// ReadRegister reads one standard or extended register.
func (d *Device) ReadRegister(reg Register) (byte, error) {
	if !reg.Valid() {
		return 0, errcode.Invalid("cc1200.read_register", "address in strobe/fifo space")
	}
	i := d.frame(accessRead, reg)
	d.w[i] = SNOP
	if err := d.xfer("cc1200.read_register", i+1); err != nil {
		return 0, err
	}
	return d.r[i], nil
}

// WriteRegister writes v to reg, reads it back and compares.
func (d *Device) WriteRegister(reg Register, v byte) error {
	if !reg.Valid() {
		return errcode.Invalid("cc1200.write_register", "address in strobe/fifo space")
	}
	i := d.frame(accessWrite, reg)
	d.w[i] = v
	if err := d.xfer("cc1200.write_register", i+1); err != nil {
		return err
	}
	got, err := d.ReadRegister(reg)
	if err != nil {
		return err
	}
	if got != v {
		return &errcode.E{C: errcode.Error, X: ExtWriteVerify, Op: "cc1200.write_register", Err: ErrVerify}
	}
	return nil
}

// ReadBurst reads len(p) consecutive registers starting at reg.
func (d *Device) ReadBurst(reg Register, p []byte) error {
	last := reg + Register(len(p)) - 1
	if len(p) == 0 || len(p) > FIFOSize || !reg.Valid() || !last.Valid() || last.Extended() != reg.Extended() {
		return errcode.Invalid("cc1200.read_burst", "bad register range")
	}
	i := d.frame(accessRead|accessBurst, reg)
	for j := range p {
		d.w[i+j] = SNOP
	}
	if err := d.xfer("cc1200.read_burst", i+len(p)); err != nil {
		return err
	}
	copy(p, d.r[i:i+len(p)])
	return nil
}

func (d *Device) writeTable(rows []setting) error {
	for _, s := range rows {
		if err := d.WriteRegister(s.reg, s.val); err != nil {
			return err
		}
	}
	return nil
}
