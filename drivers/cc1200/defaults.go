package cc1200

// setting is one row of a register table.
type setting struct {
	reg Register
	val byte
}

// defaultSettings is applied by New after DevAddr, in this order.
var defaultSettings = [...]setting{
	{SyncCfg1, 0xA8},
	{SyncCfg0, 0x13},
	{DeviationM, 0x99},
	{ModCfgDevE, 0x05},
	{DCFiltCfg, 0x26},
	{PreambleCfg0, 0x8A},
	{IQIC, 0x00},
	{ChanBW, 0x02},
	{MdmCfg1, 0x42},
	{MdmCfg0, 0x05},
	{MdmCfg2, 0x00},
	{Freq2, 0x56},
	{Freq1, 0x99},
	{Freq0, 0x98},
	{SymbolRate2, 0x80},
	{SymbolRate1, 0x62},
	{SymbolRate0, 0x4E},
	{AGCRef, 0x2F},
	{AGCCSThr, 0xEC},
	{AGCCfg1, 0x16},
	{AGCCfg0, 0x84},
	{FIFOCfg, 0x80},
	{FSCfg, 0x14},
	{PktCfg2, 0x00},
	{PktCfg1, 0x0A},
	{PktCfg0, 0x20},
	{PACfg0, 0x54},
	{PktLen, 0xFF},
	{IFMixCfg, 0x18},
	{TOCCfg, 0x03},
	{IFADC1, 0xEE},
	{IFADC0, 0x10},
	{FSCal1, 0x40},
	{FSCal0, 0x0E},
	{FSDivTwo, 0x03},
	{FSDSM0, 0x33},
	{FSPFD, 0x00},
	{FSPre, 0x6E},
	{FSRegDivCML, 0x1C},
	{FSSpare, 0xAC},
	{FSVCO0, 0xB5},
	{IFAmp, 0x0D},
	{XOSC5, 0x0E},
	{XOSC1, 0x03},
}

// Frequency synthesiser settings swapped in before each transmit/receive.
var (
	txSynth = [...]setting{{FSDig1, 0x04}, {FSDig0, 0x50}, {FSDVC1, 0xF7}, {FSDVC0, 0x0F}}
	rxSynth = [...]setting{{FSDig1, 0x07}, {FSDig0, 0xAB}, {FSDVC1, 0xFF}, {FSDVC0, 0x17}}
)
