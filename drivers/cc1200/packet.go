package cc1200

import (
	"context"
	"errors"

	"jhal-go/errcode"
	"jhal-go/jhal"
)

// MaxPayload is the largest fixed packet payload that fits the FIFO with its
// two header bytes.
const MaxPayload = FIFOSize - 2

func (d *Device) pushTX(p []byte) error {
	if d.burst {
		d.w[0] = accessWrite | accessBurst | fifoAccess
		copy(d.w[1:], p)
		return d.xfer("cc1200.push_tx", 1+len(p))
	}
	for _, v := range p {
		d.w[0] = accessWrite | fifoAccess
		d.w[1] = v
		if err := d.xfer("cc1200.push_tx", 2); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) popRX(p []byte) error {
	if d.burst {
		d.w[0] = accessRead | accessBurst | fifoAccess
		for i := range p {
			d.w[1+i] = SNOP
		}
		if err := d.xfer("cc1200.pop_rx", 1+len(p)); err != nil {
			return err
		}
		copy(p, d.r[1:1+len(p)])
		return nil
	}
	for i := range p {
		d.w[0] = accessRead | fifoAccess
		d.w[1] = SNOP
		if err := d.xfer("cc1200.pop_rx", 2); err != nil {
			return err
		}
		p[i] = d.r[1]
	}
	return nil
}

// TransmitFixPacket sends payload as one fixed-length packet and returns once
// the chip is back in IDLE. The FIFO byte count is checked before the STX
// strobe; a short count aborts with ExtTXError and nothing is sent.
func (d *Device) TransmitFixPacket(payload []byte) error {
	const op = "cc1200.transmit"
	n := len(payload)
	if n == 0 || n > MaxPayload {
		return errcode.Invalid(op, "payload length out of range")
	}
	if err := d.writeTable(txSynth[:]); err != nil {
		return err
	}
	cnt, err := d.ReadRegister(NumTXBytes)
	if err != nil {
		return err
	}
	if cnt != 0 {
		return errcode.New(op, ExtTXOverflow, ErrTXNotEmpty)
	}

	var hdr [2]byte
	hdr[0], hdr[1] = byte(n+1), d.addr
	if d.burst {
		// header and payload in a single frame
		var buf [FIFOSize]byte
		copy(buf[:], hdr[:])
		copy(buf[2:], payload)
		err = d.pushTX(buf[:n+2])
	} else if err = d.pushTX(hdr[:]); err == nil {
		err = d.pushTX(payload)
	}
	if err != nil {
		return err
	}

	ctx := context.Background()
	err = d.txFill.Until(ctx, d.wait, func() (bool, error) {
		c, err := d.ReadRegister(NumTXBytes)
		return c == byte(n+2), err
	})
	if errors.Is(err, jhal.ErrPollExhausted) {
		return errcode.New(op, ExtTXError, ErrTXCount)
	}
	if err != nil {
		return err
	}

	if err := d.SetMode(ModeTransmit); err != nil {
		return err
	}
	err = d.txDrain.Until(ctx, d.wait, func() (bool, error) {
		c, err := d.ReadRegister(NumTXBytes)
		return c == 0, err
	})
	if err != nil {
		return d.pollErr(op, err)
	}
	err = d.idlePoll.Until(ctx, d.wait, func() (bool, error) {
		s, err := d.ReadChipStatus()
		return s.State() == StateIdle, err
	})
	if err != nil {
		return d.pollErr(op, err)
	}
	d.mode = ModeIdle
	return nil
}

// ReceiveFixPacket waits for one packet of exactly len(p) payload bytes
// addressed to this device. A count above the FIFO size means the FIFO lost
// sync; it is flushed and reception restarts. The wait is bounded by
// Config.RXPoll and ctx.
func (d *Device) ReceiveFixPacket(ctx context.Context, p []byte) error {
	const op = "cc1200.receive"
	if ctx == nil {
		ctx = context.Background()
	}
	n := len(p)
	if n == 0 || n > MaxPayload {
		return errcode.Invalid(op, "payload length out of range")
	}
	if err := d.writeTable(rxSynth[:]); err != nil {
		return err
	}
	if err := d.SetMode(ModeReceive); err != nil {
		return err
	}

	err := d.rxPoll.Until(ctx, d.wait, func() (bool, error) {
		c, err := d.ReadRegister(NumRXBytes)
		if err != nil {
			return false, err
		}
		if c > FIFOSize {
			if err := d.FlushRX(); err != nil {
				return false, err
			}
			return false, d.SetMode(ModeReceive)
		}
		return c == byte(n+2), nil
	})
	if errors.Is(err, jhal.ErrPollExhausted) || (err != nil && ctx.Err() != nil) {
		return &errcode.E{C: errcode.Error, X: ExtRXTimeout, Op: op, Err: err}
	}
	if err != nil {
		return err
	}

	var hdr [2]byte
	if err := d.popRX(hdr[:]); err != nil {
		return err
	}
	if hdr[0] != byte(n+1) || hdr[1] != d.addr {
		if err := d.FlushRX(); err != nil {
			return err
		}
		return errcode.New(op, ExtReceive, ErrBadHeader)
	}
	return d.popRX(p)
}

func (d *Device) pollErr(op string, err error) error {
	if errors.Is(err, jhal.ErrPollExhausted) {
		return errcode.New(op, ExtTimeout, err)
	}
	return err
}
