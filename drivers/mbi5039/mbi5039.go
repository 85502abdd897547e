// Package mbi5039 drives a daisy chain of MBI5039 16-channel constant-current
// LED sinks. Each chip takes one 16-bit word, MSB first; the words are shifted
// out as one burst and latched with a low pulse on NSS.
//
// The chain buffer is allocated once in New. Write and Reset do not allocate.
package mbi5039

import (
	"errors"
	"time"

	"jhal-go/errcode"
	"jhal-go/jhal"
)

// MaxChain is the longest supported chain.
const MaxChain = 255

// ChannelsPerChip is the number of outputs per chip.
const ChannelsPerChip = 16

const tLatch = time.Microsecond

// Extended codes.
const (
	ExtInitSPI    errcode.Ext = "init_spi"
	ExtInitGPIO   errcode.Ext = "init_gpio"
	ExtProcessSPI errcode.Ext = "process_spi"
)

var ErrChainLength = errors.New("mbi5039: word count does not match chain length")

type Config struct {
	// NSS is the latch line. Required.
	NSS jhal.Pin
	// Chain is the number of chips. 1..MaxChain.
	Chain int
	// Wait times the latch pulse. Defaults to jhal.SpinDelay.
	Wait jhal.Delayer
}

// Device is a handle to one chain.
type Device struct {
	spi  jhal.SPI
	nss  jhal.Pin
	wait jhal.Delayer

	words []uint16 // last latched state, words[0] shifted first
	buf   []byte
}

func New(spi jhal.SPI, cfg Config) (*Device, error) {
	const op = "mbi5039.new"
	if spi == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, X: ExtInitSPI, Op: op, Msg: "no spi bus"}
	}
	if cfg.NSS == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, X: ExtInitGPIO, Op: op, Msg: "no latch pin"}
	}
	if cfg.Chain <= 0 || cfg.Chain > MaxChain {
		return nil, &errcode.E{C: errcode.HeapError, Op: op, Msg: "unusable chain length"}
	}
	d := &Device{
		spi:   spi,
		nss:   cfg.NSS,
		wait:  cfg.Wait,
		words: make([]uint16, cfg.Chain),
		buf:   make([]byte, 2*cfg.Chain),
	}
	if d.wait == nil {
		d.wait = jhal.SpinDelay{}
	}
	if err := d.nss.Configure(jhal.PinOutput, jhal.PullNone); err != nil {
		return nil, errcode.New(op, ExtInitGPIO, err)
	}
	d.nss.Set(true)
	return d, nil
}

// Chain returns the number of chips.
func (d *Device) Chain() int { return len(d.words) }

// Write shifts one word per chip and latches them. words[0] is shifted first
// and so ends up in the chip farthest from the controller.
func (d *Device) Write(words []uint16) error {
	if len(words) != len(d.words) {
		return &errcode.E{C: errcode.InvalidParams, Op: "mbi5039.write", Err: ErrChainLength}
	}
	for i, w := range words {
		d.buf[2*i] = byte(w >> 8)
		d.buf[2*i+1] = byte(w)
	}
	if err := d.shift("mbi5039.write"); err != nil {
		return err
	}
	copy(d.words, words)
	return nil
}

// Reset turns every output off.
func (d *Device) Reset() error {
	for i := range d.buf {
		d.buf[i] = 0
	}
	if err := d.shift("mbi5039.reset"); err != nil {
		return err
	}
	for i := range d.words {
		d.words[i] = 0
	}
	return nil
}

// Set switches one output and rewrites the chain.
func (d *Device) Set(chip, ch int, on bool) error {
	if chip < 0 || chip >= len(d.words) || ch < 0 || ch >= ChannelsPerChip {
		return errcode.Invalid("mbi5039.set", "output out of range")
	}
	for i, w := range d.words {
		if i == chip {
			if on {
				w |= 1 << ch
			} else {
				w &^= 1 << ch
			}
		}
		d.buf[2*i] = byte(w >> 8)
		d.buf[2*i+1] = byte(w)
	}
	if err := d.shift("mbi5039.set"); err != nil {
		return err
	}
	if on {
		d.words[chip] |= 1 << ch
	} else {
		d.words[chip] &^= 1 << ch
	}
	return nil
}

// Word returns the last latched word of a chip.
func (d *Device) Word(chip int) uint16 {
	if chip < 0 || chip >= len(d.words) {
		return 0
	}
	return d.words[chip]
}

func (d *Device) shift(op string) error {
	d.nss.Set(false)
	err := d.spi.Tx(d.buf, nil)
	d.nss.Set(true)
	if err != nil {
		return errcode.New(op, ExtProcessSPI, err)
	}
	d.nss.Set(false)
	d.wait.Delay(tLatch)
	d.nss.Set(true)
	return nil
}
