package ad5370

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jhal-go/errcode"
	"jhal-go/jhal"
)

func create(t *testing.T, f *fakeDAC, tweak func(*Config)) *Device {
	t.Helper()
	cfg := f.config()
	if tweak != nil {
		tweak(&cfg)
	}
	d, err := Create(cfg)
	require.NoError(t, err)
	f.log = nil
	f.frames = 0
	return d
}

func TestCreateAppliesDefaults(t *testing.T) {
	f := newFakeDAC()
	f.busyReads = 2
	d := create(t, f, nil)

	assert.Equal(t, CtrlThermalShutdown, f.ctrl)
	assert.Equal(t, CtrlThermalShutdown, d.Control())
	assert.Equal(t, [2]uint16{0, 0}, f.ofs)
	assert.Equal(t, [NumGroups]uint16{}, f.ab)
	for g := 0; g < NumGroups; g++ {
		for ch := 0; ch < ChannelsPerGroup; ch++ {
			assert.Zero(t, f.x1a[8*(g+1)+ch])
		}
	}
	assert.Zero(t, f.violations)
	assert.Equal(t, jhal.PinInput, f.busy.mode)
	assert.Equal(t, jhal.PinOutput, f.ldac.mode)
}

func TestCreateOrderAndClear(t *testing.T) {
	f := newFakeDAC()
	_, err := Create(f.config())
	require.NoError(t, err)

	reset := f.index("reset0")
	ctrl := f.index("tx 010002")
	block := f.index("tx 0b0000")
	ofs0 := f.index("tx 020000")
	firstX := f.index("tx c80000")
	require.True(t, reset >= 0 && ctrl > reset && block > ctrl && ofs0 > block && firstX > ofs0, "%v", f.log)

	// CLR is held low around the offset DAC frames only.
	assert.Equal(t, []string{"clr0", "sync0", "tx 020000", "sync1", "clr1"}, f.log[ofs0-2:ofs0+3])
	assert.Equal(t, 2, f.count("clr0"))
	assert.Equal(t, NumChannels, f.count("ldac0"))
}

func TestCreateValidation(t *testing.T) {
	f := newFakeDAC()
	cfg := f.config()
	cfg.SPI = nil
	_, err := Create(cfg)
	assert.Equal(t, errcode.InvalidParams, errcode.Of(err))
	assert.Equal(t, ExtInitSPI, errcode.ExtOf(err))

	cfg = f.config()
	cfg.Busy = nil
	_, err = Create(cfg)
	assert.Equal(t, errcode.InvalidParams, errcode.Of(err))
	assert.Equal(t, ExtInitGPIO, errcode.ExtOf(err))

	f.ldac.failCfg = errBus
	_, err = Create(f.config())
	assert.Equal(t, errcode.Error, errcode.Of(err))
	assert.Equal(t, ExtInitGPIO, errcode.ExtOf(err))
	assert.Zero(t, f.frames)
}

func TestSetChannelOrdering(t *testing.T) {
	f := newFakeDAC()
	d := create(t, f, nil)
	f.busyReads = 3

	require.NoError(t, d.SetChannel(2, 3, 0xABCD))
	assert.Equal(t, uint16(0xABCD), f.x1a[8*3+3])
	assert.Equal(t, []string{
		"sync0", "tx dbabcd", "sync1", // X write, address 0x1B
		"sync0", "tx 050d80", "sync1", // readback X1A of 0x1B
		"sync0", "tx 000000", "sync1", // NOP clocks the value out
		"busy0", "busy0", "busy0", "busy1",
		"ldac0", "ldac1",
	}, f.log)
}

func TestLatchNeverBeforeBusyRelease(t *testing.T) {
	for _, n := range []int{0, 1, 7, 50} {
		f := newFakeDAC()
		d := create(t, f, nil)
		f.busyReads = n
		require.NoError(t, d.SetChannel(4, 7, 0x0101))
		assert.Equal(t, n, f.count("busy0"))
		assert.Greater(t, f.index("ldac0"), f.index("busy1"))
	}
}

func TestBusyStuckTimesOut(t *testing.T) {
	f := newFakeDAC()
	d := create(t, f, func(c *Config) { c.BusyPoll = jhal.Poll{Attempts: 20} })
	f.busyStuck = true

	err := d.SetChannel(0, 0, 1)
	assert.Equal(t, errcode.Timeout, errcode.Of(err))
	assert.Equal(t, ExtBusy, errcode.ExtOf(err))
	assert.Equal(t, 20, f.count("busy0"))
	assert.Equal(t, -1, f.index("ldac0"))
}

func TestWriteRegisterVerify(t *testing.T) {
	f := newFakeDAC()
	d := create(t, f, nil)

	require.NoError(t, d.WriteRegister(RegOffset1, 0x2000))
	assert.Equal(t, uint16(0x2000), f.ofs[1])

	f.corrupt[0x8100] = 0x0004
	err := d.WriteRegister(RegOffset0, 0x0100)
	assert.Equal(t, ExtWriteSPI, errcode.ExtOf(err))
	assert.ErrorIs(t, err, ErrVerify)
	assert.Equal(t, 1, f.count("tx 020100"), "verify mismatch must not retry")
}

func TestWriteVerifyNeverSilentlyWrong(t *testing.T) {
	f := newFakeDAC()
	d := create(t, f, nil)
	sels := map[Register]uint16{RegControl: 0x8080, RegOffset0: 0x8100, RegSelectAB3: 0x8480}
	for reg, sel := range sels {
		for _, v := range []uint16{0, 1, 0x00A5, 0x00FF} {
			for _, flip := range []uint16{0, 1, 0x0100} {
				f.corrupt[sel] = flip
				err := d.WriteRegister(reg, v)
				if flip == 0 {
					require.NoError(t, err)
				} else {
					require.Equal(t, ExtWriteSPI, errcode.ExtOf(err))
				}
			}
			f.corrupt[sel] = 0
		}
	}
}

func TestChannelVerify(t *testing.T) {
	f := newFakeDAC()
	d := create(t, f, nil)
	a := uint16(8*2 + 5)
	f.corrupt[rbX1A|a<<7] = 0x8000

	err := d.SetChannel(1, 5, 0x4000)
	assert.Equal(t, ExtWriteSPI, errcode.ExtOf(err))
	assert.Equal(t, -1, f.index("ldac0"))
}

func TestSkipChannelVerify(t *testing.T) {
	f := newFakeDAC()
	d := create(t, f, func(c *Config) { c.SkipChannelVerify = true })
	f.corrupt[rbX1A|uint16(8+1)<<7] = 0xFFFF

	require.NoError(t, d.SetChannel(0, 1, 0x7777))
	assert.Equal(t, 1, f.frames)
	assert.Equal(t, 1, f.count("ldac0"))
}

func TestSetAllChannels(t *testing.T) {
	f := newFakeDAC()
	d := create(t, f, nil)
	var codes [NumChannels]uint16
	for i := range codes {
		codes[i] = uint16(i * 1000)
	}
	require.NoError(t, d.SetAllChannels(codes))
	for i, v := range codes {
		g, ch := Split(i)
		got, err := d.ReadChannel(g, ch)
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Equal(t, v, f.x1a[8*(g+1)+ch])
	}
}

func TestSelectB(t *testing.T) {
	f := newFakeDAC()
	d := create(t, f, nil)
	require.NoError(t, d.WriteRegister(RegControl, CtrlThermalShutdown|CtrlSelectB))
	require.NoError(t, d.SetChannel(0, 0, 0x3333))
	assert.Equal(t, uint16(0x3333), f.x1b[8])
	assert.Equal(t, uint16(0), f.x1a[8])

	got, err := d.ReadChannel(0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x3333), got)
}

func TestABSelect(t *testing.T) {
	f := newFakeDAC()
	d := create(t, f, nil)

	require.NoError(t, d.SelectAB(1, 0x0F))
	assert.Equal(t, uint16(0x0F), f.ab[1])
	assert.True(t, d.SelectedB(1, 3))
	assert.False(t, d.SelectedB(1, 4))

	require.NoError(t, d.SelectAllAB(true))
	assert.Equal(t, [NumGroups]uint16{0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, f.ab)

	f.corrupt[0x8500] = 0x01
	err := d.SelectAllAB(false)
	assert.Equal(t, ExtWriteSPI, errcode.ExtOf(err))

	assert.Equal(t, errcode.InvalidParams, errcode.Of(d.SelectAB(5, 0)))
}

func TestGainAndOffset(t *testing.T) {
	f := newFakeDAC()
	d := create(t, f, nil)
	require.NoError(t, d.SetGain(3, 2, 0xC000))
	require.NoError(t, d.SetOffset(3, 2, 0x7000))
	assert.Equal(t, uint16(0xC000), f.m[8*4+2])
	assert.Equal(t, uint16(0x7000), f.c[8*4+2])
	assert.Equal(t, 2, f.count("ldac0"))
}

func TestPowerDown(t *testing.T) {
	f := newFakeDAC()
	d := create(t, f, nil)
	require.NoError(t, d.PowerDown(true))
	assert.Equal(t, CtrlThermalShutdown|CtrlPowerDown, f.ctrl)
	require.NoError(t, d.PowerDown(false))
	assert.Equal(t, CtrlThermalShutdown, f.ctrl)
}

func TestInvalidArguments(t *testing.T) {
	f := newFakeDAC()
	d := create(t, f, nil)
	assert.Equal(t, errcode.InvalidParams, errcode.Of(d.SetChannel(5, 0, 0)))
	assert.Equal(t, errcode.InvalidParams, errcode.Of(d.SetChannel(0, 8, 0)))
	assert.Equal(t, errcode.InvalidParams, errcode.Of(d.SetChannel(-1, 0, 0)))
	assert.Equal(t, errcode.InvalidParams, errcode.Of(d.WriteRegister(Register(0x05), 0)))
	_, err := d.ReadRegister(Register(0x0B))
	assert.Equal(t, errcode.InvalidParams, errcode.Of(err))
	assert.Zero(t, f.frames)
}

func TestBusError(t *testing.T) {
	f := newFakeDAC()
	d := create(t, f, nil)
	f.txErr = errBus
	err := d.SetChannel(0, 0, 1)
	assert.Equal(t, ExtProcessSPI, errcode.ExtOf(err))
	assert.ErrorIs(t, err, errBus)
	assert.True(t, f.sync.level, "SYNC released after a failed frame")
}

func TestResetRestoresShadows(t *testing.T) {
	f := newFakeDAC()
	d := create(t, f, nil)
	require.NoError(t, d.SelectAB(0, 0xFF))
	d.Reset()
	assert.Zero(t, d.Control())
	assert.False(t, d.SelectedB(0, 0))
	assert.Equal(t, []string{"reset0", "reset1"}, f.log[len(f.log)-2:])
}
