package cc1200

import (
	"errors"
	"sync"
	"time"

	"jhal-go/jhal"
)

// fakeChip is a register-level CC1200 model behind an AsyncSPI. It logs
// every frame and can corrupt stored values, stall completions and misreport
// FIFO counts.
type fakeChip struct {
	mu sync.Mutex

	std [0x2F]byte
	ext [256]byte

	txFIFO []byte
	rxFIFO []byte
	sent   [][]byte
	state  State

	frames  [][]byte
	strobes []byte

	// corrupt XORs the stored value of a register on write.
	corrupt map[Register]byte
	// notReady makes the first n status reads report CHIP_RDYn high.
	notReady int
	// txCount overrides NUM_TXBYTES when non-nil.
	txCount func(real int) int
	// txBusyReads is how many NUM_TXBYTES reads a transmission stays pending.
	txBusyReads int
	txPending   int
	// rxAfter delivers rxPacket once NUM_RXBYTES was read this many times in RX.
	rxAfter  int
	rxPacket []byte
	rxReads  int
	// rxCount overrides NUM_RXBYTES when non-nil.
	rxCount func(real int) int

	async    bool // complete from another goroutine
	hang     bool // never complete
	startErr error
}

var _ jhal.AsyncSPI = (*fakeChip)(nil)

func newFakeChip() *fakeChip {
	return &fakeChip{corrupt: map[Register]byte{}}
}

func (f *fakeChip) StartTx(w, r []byte, done func(error)) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.mu.Lock()
	f.frames = append(f.frames, append([]byte(nil), w...))
	f.handle(w, r)
	f.mu.Unlock()
	switch {
	case f.hang:
	case f.async:
		go func() {
			time.Sleep(100 * time.Microsecond)
			done(nil)
		}()
	default:
		done(nil)
	}
	return nil
}

func (f *fakeChip) status() byte {
	s := byte(f.state) << 4
	if f.notReady > 0 {
		f.notReady--
		s |= 0x80
	}
	return s
}

func (f *fakeChip) handle(w, r []byte) {
	for i := range r {
		r[i] = 0
	}
	r[0] = f.status()
	h := w[0]
	read := h&accessRead != 0
	burst := h&accessBurst != 0
	a := h & 0x3F

	switch {
	case a < extendedAddress:
		for i := 1; i < len(w); i++ {
			reg := Register(a) + Register(i-1)
			if read {
				r[i] = f.readReg(reg)
			} else {
				f.writeReg(reg, w[i])
			}
			if !burst {
				break
			}
		}
	case a == extendedAddress:
		for i := 2; i < len(w); i++ {
			reg := ExtendedBoundary | Register(w[1]) + Register(i-2)
			if read {
				r[i] = f.readReg(reg)
			} else {
				f.writeReg(reg, w[i])
			}
			if !burst {
				break
			}
		}
	case a == fifoAccess:
		for i := 1; i < len(w); i++ {
			if read {
				if len(f.rxFIFO) > 0 {
					r[i] = f.rxFIFO[0]
					f.rxFIFO = f.rxFIFO[1:]
				}
			} else {
				f.txFIFO = append(f.txFIFO, w[i])
			}
			if !burst {
				break
			}
		}
	case len(w) == 1:
		f.strobe(a)
	}
}

func (f *fakeChip) readReg(reg Register) byte {
	switch reg {
	case NumTXBytes:
		n := len(f.txFIFO)
		if f.state == StateTX {
			if f.txPending > 0 {
				f.txPending--
			} else {
				f.sent = append(f.sent, f.txFIFO)
				f.txFIFO = nil
				f.state = StateIdle
				n = 0
			}
		}
		if f.txCount != nil {
			n = f.txCount(n)
		}
		return byte(n)
	case NumRXBytes:
		if f.state == StateRX && f.rxPacket != nil {
			f.rxReads++
			if f.rxReads >= f.rxAfter {
				f.rxFIFO = append(f.rxFIFO, f.rxPacket...)
				f.rxPacket = nil
				f.state = StateIdle
			}
		}
		n := len(f.rxFIFO)
		if f.rxCount != nil {
			n = f.rxCount(n)
		}
		return byte(n)
	}
	if reg.Extended() {
		return f.ext[byte(reg)]
	}
	return f.std[reg]
}

func (f *fakeChip) writeReg(reg Register, v byte) {
	v ^= f.corrupt[reg]
	if reg.Extended() {
		f.ext[byte(reg)] = v
		return
	}
	f.std[reg] = v
}

func (f *fakeChip) strobe(cmd byte) {
	if cmd == SNOP {
		return
	}
	f.strobes = append(f.strobes, cmd)
	switch cmd {
	case SRES:
		f.std = [0x2F]byte{}
		f.ext = [256]byte{}
		f.ext[PartNumber&0xFF] = PartNumberCC1200
		f.txFIFO, f.rxFIFO = nil, nil
		f.state = StateIdle
	case STX:
		f.state = StateTX
		f.txPending = f.txBusyReads
	case SRX:
		f.state = StateRX
	case SIDLE, SPWD:
		f.state = StateIdle
	case SFRX:
		f.rxFIFO = nil
	case SFTX:
		f.txFIFO = nil
	}
}

func (f *fakeChip) sawStrobe(cmd byte) bool {
	for _, s := range f.strobes {
		if s == cmd {
			return true
		}
	}
	return false
}

// noDelay satisfies jhal.Delayer without waiting.
type noDelay struct{}

func (noDelay) Delay(time.Duration) {}

var errBus = errors.New("spi fault")
