package ad5370

import "jhal-go/errcode"

// address is the 6-bit channel address used in X/C/M frames: the group
// number plus one in bits 5:3 and the channel in bits 2:0.
func address(group, ch int) (byte, error) {
	if group < 0 || group >= NumGroups || ch < 0 || ch >= ChannelsPerGroup {
		return 0, errcode.Invalid("ad5370.channel", "channel out of range")
	}
	return byte(ch) | byte(group+1)<<3, nil
}

// Split maps a flat channel index 0..39 to its group and channel.
func Split(n int) (group, ch int) { return n / ChannelsPerGroup, n % ChannelsPerGroup }

// SetChannel writes code to the X register of a channel and latches it to the
// output. The target is X1A, or X1B when CtrlSelectB is set.
func (d *Device) SetChannel(group, ch int, code uint16) error {
	sel := rbX1A
	if d.control&CtrlSelectB != 0 {
		sel = rbX1B
	}
	return d.writeChannel("ad5370.set_channel", modeX, sel, group, ch, code, d.verify)
}

// SetGain writes the M (gain) register of a channel.
func (d *Device) SetGain(group, ch int, m uint16) error {
	return d.writeChannel("ad5370.set_gain", modeM, rbM, group, ch, m, true)
}

// SetOffset writes the C (offset) register of a channel.
func (d *Device) SetOffset(group, ch int, c uint16) error {
	return d.writeChannel("ad5370.set_offset", modeC, rbC, group, ch, c, true)
}

// SetAllChannels writes codes[8*group+ch] to every channel in order and
// stops at the first failure.
func (d *Device) SetAllChannels(codes [NumChannels]uint16) error {
	for i, v := range codes {
		g, ch := Split(i)
		if err := d.SetChannel(g, ch, v); err != nil {
			return err
		}
	}
	return nil
}

// ReadChannel reads back the X register that SetChannel writes.
func (d *Device) ReadChannel(group, ch int) (uint16, error) {
	a, err := address(group, ch)
	if err != nil {
		return 0, err
	}
	sel := rbX1A
	if d.control&CtrlSelectB != 0 {
		sel = rbX1B
	}
	return d.readback("ad5370.read_channel", sel|uint16(a)<<7)
}

func (d *Device) writeChannel(op string, mode byte, rb uint16, group, ch int, v uint16, verify bool) error {
	a, err := address(group, ch)
	if err != nil {
		return err
	}
	d.w = [3]byte{mode | a, byte(v >> 8), byte(v)}
	if err := d.frame(op); err != nil {
		return err
	}
	if verify {
		got, err := d.readback(op, rb|uint16(a)<<7)
		if err != nil {
			return err
		}
		if got != v {
			return verifyErr(op)
		}
	}
	if err := d.waitNotBusy(op); err != nil {
		return err
	}
	d.latch()
	return nil
}
