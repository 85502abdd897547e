package cc1200

// Register is a configuration/status register address. Standard registers
// are 0x00..0x2E. Extended registers are ExtendedBoundary|sub and are reached
// through the EXTENDED_ADDRESS header byte.
type Register uint16

const ExtendedBoundary Register = 0x2F00

func (r Register) Extended() bool { return r >= ExtendedBoundary }

// Valid reports whether r addresses a register (not a strobe, DMA or FIFO
// header).
func (r Register) Valid() bool {
	return r < Register(extendedAddress) || (r.Extended() && r <= ExtendedBoundary|0xFF)
}

// Header byte fields.
const (
	accessWrite byte = 0x00
	accessRead  byte = 0x80
	accessBurst byte = 0x40

	extendedAddress byte = 0x2F
	dmaAccess       byte = 0x3E
	fifoAccess      byte = 0x3F
)

// Standard register space.
const (
	IOCfg3        Register = 0x00
	IOCfg2        Register = 0x01
	IOCfg1        Register = 0x02
	IOCfg0        Register = 0x03
	Sync3         Register = 0x04
	Sync2         Register = 0x05
	Sync1         Register = 0x06
	Sync0         Register = 0x07
	SyncCfg1      Register = 0x08
	SyncCfg0      Register = 0x09
	DeviationM    Register = 0x0A
	ModCfgDevE    Register = 0x0B
	DCFiltCfg     Register = 0x0C
	PreambleCfg1  Register = 0x0D
	PreambleCfg0  Register = 0x0E
	IQIC          Register = 0x0F
	ChanBW        Register = 0x10
	MdmCfg1       Register = 0x11
	MdmCfg0       Register = 0x12
	SymbolRate2   Register = 0x13
	SymbolRate1   Register = 0x14
	SymbolRate0   Register = 0x15
	AGCRef        Register = 0x16
	AGCCSThr      Register = 0x17
	AGCGainAdjust Register = 0x18
	AGCCfg3       Register = 0x19
	AGCCfg2       Register = 0x1A
	AGCCfg1       Register = 0x1B
	AGCCfg0       Register = 0x1C
	FIFOCfg       Register = 0x1D
	DevAddr       Register = 0x1E
	SettlingCfg   Register = 0x1F
	FSCfg         Register = 0x20
	WORCfg1       Register = 0x21
	WORCfg0       Register = 0x22
	WOREvent0MSB  Register = 0x23
	WOREvent0LSB  Register = 0x24
	RXDCMTime     Register = 0x25
	PktCfg2       Register = 0x26
	PktCfg1       Register = 0x27
	PktCfg0       Register = 0x28
	RFEndCfg1     Register = 0x29
	RFEndCfg0     Register = 0x2A
	PACfg1        Register = 0x2B
	PACfg0        Register = 0x2C
	ASKCfg        Register = 0x2D
	PktLen        Register = 0x2E
)

// Extended register space (the subset this driver touches).
const (
	IFMixCfg    Register = ExtendedBoundary | 0x00
	FreqOffCfg  Register = ExtendedBoundary | 0x01
	TOCCfg      Register = ExtendedBoundary | 0x02
	MdmCfg2     Register = ExtendedBoundary | 0x05
	Freq2       Register = ExtendedBoundary | 0x0C
	Freq1       Register = ExtendedBoundary | 0x0D
	Freq0       Register = ExtendedBoundary | 0x0E
	IFADC2      Register = ExtendedBoundary | 0x0F
	IFADC1      Register = ExtendedBoundary | 0x10
	IFADC0      Register = ExtendedBoundary | 0x11
	FSDig1      Register = ExtendedBoundary | 0x12
	FSDig0      Register = ExtendedBoundary | 0x13
	FSCal1      Register = ExtendedBoundary | 0x16
	FSCal0      Register = ExtendedBoundary | 0x17
	FSDivTwo    Register = ExtendedBoundary | 0x19
	FSDSM0      Register = ExtendedBoundary | 0x1B
	FSDVC1      Register = ExtendedBoundary | 0x1C
	FSDVC0      Register = ExtendedBoundary | 0x1D
	FSPFD       Register = ExtendedBoundary | 0x1F
	FSPre       Register = ExtendedBoundary | 0x20
	FSRegDivCML Register = ExtendedBoundary | 0x21
	FSSpare     Register = ExtendedBoundary | 0x22
	FSVCO0      Register = ExtendedBoundary | 0x27
	IFAmp       Register = ExtendedBoundary | 0x2F
	XOSC5       Register = ExtendedBoundary | 0x32
	XOSC1       Register = ExtendedBoundary | 0x36
	MarcState   Register = ExtendedBoundary | 0x73
	PartNumber  Register = ExtendedBoundary | 0x8F
	PartVersion Register = ExtendedBoundary | 0x90
	NumTXBytes  Register = ExtendedBoundary | 0xD6
	NumRXBytes  Register = ExtendedBoundary | 0xD7
)

// Command strobes.
const (
	SRES    byte = 0x30
	SFSTXON byte = 0x31
	SXOFF   byte = 0x32
	SCAL    byte = 0x33
	SRX     byte = 0x34
	STX     byte = 0x35
	SIDLE   byte = 0x36
	SAFC    byte = 0x37
	SWOR    byte = 0x38
	SPWD    byte = 0x39
	SFRX    byte = 0x3A
	SFTX    byte = 0x3B
	SWORRST byte = 0x3C
	SNOP    byte = 0x3D
)

// FIFOSize is the depth of each of the TX and RX FIFOs.
const FIFOSize = 128

// PartNumberCC1200 is the PartNumber value of a CC1200.
const PartNumberCC1200 = 0x20

// Status is the chip status byte clocked out on every header byte.
type Status byte

// Ready reports CHIP_RDYn low (crystal running, registers accessible).
func (s Status) Ready() bool { return s&0x80 == 0 }

func (s Status) State() State { return State(s >> 4 & 0x7) }

// State is the main radio state reported in the status byte.
type State uint8

const (
	StateIdle State = iota
	StateRX
	StateTX
	StateFSTXON
	StateCalibrate
	StateSettling
	StateRXFIFOError
	StateTXFIFOError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRX:
		return "rx"
	case StateTX:
		return "tx"
	case StateFSTXON:
		return "fstxon"
	case StateCalibrate:
		return "calibrate"
	case StateSettling:
		return "settling"
	case StateRXFIFOError:
		return "rx_fifo_error"
	case StateTXFIFOError:
		return "tx_fifo_error"
	}
	return "unknown"
}
