package ds18b20

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jhal-go/drivers/onewire"
	"jhal-go/drivers/onewire/onewiretest"
	"jhal-go/errcode"
	"jhal-go/jhal"
)

func newSensor(t *testing.T, cfg Config, sensors ...*onewiretest.Sensor) (*Device, *onewiretest.Line) {
	t.Helper()
	line := onewiretest.NewLine(sensors...)
	if cfg.Wait == nil {
		cfg.Wait = line
	}
	d, err := Create(onewire.Config{TX: line, RX: line, Delay: line}, cfg)
	require.NoError(t, err)
	return d, line
}

func TestDecodeTemperature(t *testing.T) {
	cases := []struct {
		lsb, msb byte
		celsius  int8
		milli    int32
	}{
		{0x50, 0x05, 85, 85000},
		{0xD0, 0x07, 125, 125000},
		{0x91, 0x01, 25, 25062}, // 25.0625
		{0x08, 0x00, 1, 500},    // 0.5 rounds up
		{0xA8, 0x01, 27, 26500}, // 26.5 rounds up
		{0xA7, 0x01, 26, 26437}, // 26.4375 truncates
		{0x00, 0x00, 0, 0},
		{0xF8, 0xFF, 0, -500},     // -0.5: floor(-1) + 1
		{0x5E, 0xFF, -10, -10125}, // -10.125
		{0x6F, 0xFE, -25, -25062}, // -25.0625
		{0x90, 0xFC, -55, -55000},
	}
	for _, c := range cases {
		tmp := DecodeTemperature(c.lsb, c.msb)
		assert.Equal(t, c.celsius, tmp.Celsius(), "%02x %02x", c.lsb, c.msb)
		assert.Equal(t, c.milli, tmp.MilliCelsius(), "%02x %02x", c.lsb, c.msb)
	}
}

func TestRoundingBitAddsOne(t *testing.T) {
	for raw := int16(-880); raw < 2000; raw++ {
		tmp := Temperature(raw)
		naive := int8(raw >> 4)
		if raw&0x08 != 0 {
			require.Equal(t, naive+1, tmp.Celsius(), "raw %d", raw)
		} else {
			require.Equal(t, naive, tmp.Celsius(), "raw %d", raw)
		}
	}
}

func TestResolutionConversionTime(t *testing.T) {
	assert.Equal(t, 750*time.Millisecond, Res12.ConversionTime())
	assert.Equal(t, 375*time.Millisecond, Res11.ConversionTime())
	assert.Equal(t, 187500*time.Microsecond, Res10.ConversionTime())
	assert.Equal(t, 93750*time.Microsecond, Res9.ConversionTime())
	assert.Equal(t, byte(0x1F), Res9.configByte())
	assert.Equal(t, byte(0x7F), Res12.configByte())
	assert.Equal(t, Res10, resolutionOf(0x3F))
}

func TestConversionCycle(t *testing.T) {
	s := onewiretest.NewSensor(onewiretest.MakeAddress(FamilyCode, 1))
	s.Temp = 0x0191
	d, line := newSensor(t, Config{}, s)

	_, err := d.Ready()
	assert.Equal(t, ExtNoConversion, errcode.ExtOf(err))

	require.NoError(t, d.ConversionStart())
	assert.True(t, d.Converting())

	ready, err := d.Ready()
	require.NoError(t, err)
	assert.False(t, ready)

	// A second start while the sensor is busy is refused.
	err = d.ConversionStart()
	assert.Equal(t, errcode.Busy, errcode.Of(err))
	assert.Equal(t, []byte{0x44}, s.Commands)

	line.Delay(s.ConversionTime)
	ready, err = d.Ready()
	require.NoError(t, err)
	assert.True(t, ready)

	tmp, err := d.ReadResult()
	require.NoError(t, err)
	assert.Equal(t, Temperature(0x0191), tmp)
	assert.Equal(t, int8(25), tmp.Celsius())
	assert.False(t, d.Converting())
	assert.Equal(t, []byte{0x44, 0xBE}, s.Commands)
}

func TestConversionStartAfterReadyRestarts(t *testing.T) {
	s := onewiretest.NewSensor(onewiretest.MakeAddress(FamilyCode, 1))
	d, line := newSensor(t, Config{}, s)

	require.NoError(t, d.ConversionStart())
	line.Delay(time.Second)
	require.NoError(t, d.ConversionStart())
	assert.Equal(t, []byte{0x44, 0x44}, s.Commands)
}

func TestReadResultCRCMismatch(t *testing.T) {
	s := onewiretest.NewSensor(onewiretest.MakeAddress(FamilyCode, 1))
	d, _ := newSensor(t, Config{}, s)
	s.CorruptCRC = true

	_, err := d.ReadResult()
	require.Error(t, err)
	assert.Equal(t, errcode.Error, errcode.Of(err))
	assert.Equal(t, ExtCRC, errcode.ExtOf(err))
	// No silent retry.
	assert.Equal(t, []byte{0xBE}, s.Commands)
}

func TestCreateWithoutSensor(t *testing.T) {
	line := onewiretest.NewLine()
	_, err := Create(onewire.Config{TX: line, Delay: line}, Config{})
	assert.Equal(t, ExtNotResponding, errcode.ExtOf(err))
}

func TestCreateValidatesConfig(t *testing.T) {
	_, err := New(nil, Config{})
	assert.Equal(t, errcode.InvalidParams, errcode.Of(err))

	line := onewiretest.NewLine(onewiretest.NewSensor(onewiretest.MakeAddress(FamilyCode, 1)))
	_, err = Create(onewire.Config{TX: line, Delay: line}, Config{Resolution: 13})
	assert.Equal(t, errcode.InvalidParams, errcode.Of(err))
	_, err = Create(onewire.Config{TX: line, Delay: line}, Config{Address: onewiretest.MakeAddress(0x10, 1)})
	assert.Equal(t, errcode.InvalidParams, errcode.Of(err))
}

func TestCreateWritesResolution(t *testing.T) {
	s := onewiretest.NewSensor(onewiretest.MakeAddress(FamilyCode, 1))
	d, _ := newSensor(t, Config{Resolution: Res10}, s)
	assert.Equal(t, Res10, d.Resolution())
	assert.Equal(t, byte(0x3F), s.Config)
	assert.Equal(t, int8(0x4B), s.TH)
}

func TestAddressedSensorOnSharedBus(t *testing.T) {
	a := onewiretest.NewSensor(onewiretest.MakeAddress(FamilyCode, 1))
	b := onewiretest.NewSensor(onewiretest.MakeAddress(FamilyCode, 2))
	a.Temp, b.Temp = 0x0010, 0x0020
	d, line := newSensor(t, Config{Address: b.ROM}, a, b)

	require.NoError(t, d.ConversionStart())
	line.Delay(time.Second)
	tmp, err := d.ReadResult()
	require.NoError(t, err)
	assert.Equal(t, int8(2), tmp.Celsius())
	assert.Empty(t, a.Commands)
}

func TestReadPolls(t *testing.T) {
	s := onewiretest.NewSensor(onewiretest.MakeAddress(FamilyCode, 1))
	s.Temp = -0x00A2 // -10.125
	d, line := newSensor(t, Config{}, s)

	start := line.Now()
	tmp, err := d.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int8(-10), tmp.Celsius())
	assert.GreaterOrEqual(t, line.Now()-start, s.ConversionTime)
}

func TestReadTimesOut(t *testing.T) {
	s := onewiretest.NewSensor(onewiretest.MakeAddress(FamilyCode, 1))
	s.ConversionTime = time.Hour
	d, _ := newSensor(t, Config{ReadyPoll: jhal.Poll{Attempts: 3, Interval: time.Millisecond}}, s)

	_, err := d.Read(context.Background())
	assert.Equal(t, errcode.Timeout, errcode.Of(err))
}

func TestScratchpadMaintenance(t *testing.T) {
	s := onewiretest.NewSensor(onewiretest.MakeAddress(FamilyCode, 1))
	d, _ := newSensor(t, Config{}, s)

	require.NoError(t, d.WriteScratchpad(30, -5, Res11))
	require.NoError(t, d.CopyScratchpad())
	assert.Equal(t, [3]byte{30, 0xFB, 0x5F}, s.Saved)

	require.NoError(t, d.WriteScratchpad(1, 0, Res9))
	require.NoError(t, d.RecallE2())
	sp, err := d.Scratchpad()
	require.NoError(t, err)
	assert.Equal(t, byte(30), sp[2])
	assert.Equal(t, Res11, d.Resolution())

	err = d.WriteScratchpad(0, 0, 8)
	assert.Equal(t, errcode.InvalidParams, errcode.Of(err))
}

func TestReadPowerSupply(t *testing.T) {
	s := onewiretest.NewSensor(onewiretest.MakeAddress(FamilyCode, 1))
	d, _ := newSensor(t, Config{}, s)

	parasite, err := d.ReadPowerSupply()
	require.NoError(t, err)
	assert.False(t, parasite)

	s.Parasite = true
	parasite, err = d.ReadPowerSupply()
	require.NoError(t, err)
	assert.True(t, parasite)
}
