package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jhal-go/drivers/ds18b20"
	"jhal-go/drivers/onewire"
	"jhal-go/jhal"
)

func pin(t *testing.T, s string) Pin {
	t.Helper()
	id, err := jhal.ParsePinID(s)
	require.NoError(t, err)
	return Pin{ID: id, Set: true}
}

func TestLoadBench(t *testing.T) {
	b, err := Load("testdata/bench.yaml")
	require.NoError(t, err)

	assert.Equal(t, "bench", b.Name)
	require.Len(t, b.SPI, 2)
	assert.Equal(t, SPIBus{Name: "spi1", Dev: "SPI1.0", Hz: 1000000, Mode: 1}, b.SPI[1])

	probe := b.Devices.DS18B20[0]
	assert.Equal(t, pin(t, "PA4"), probe.Pin)
	assert.False(t, probe.RX.Set)
	assert.Equal(t, ds18b20.Config{
		Address:    onewire.Address(0x9e06050403020128),
		Resolution: ds18b20.Res11,
	}, probe.Driver())

	radio := b.Devices.CC1200[0]
	assert.Equal(t, uint8(0x42), radio.Address)
	assert.True(t, radio.Burst)
	assert.Equal(t, 200*time.Millisecond, radio.DMATimeout)

	assert.Equal(t, pin(t, "PB5"), b.Devices.AD5370[0].CLR)
	assert.Equal(t, uint8(0x0F), b.Devices.PCA9554[0].Outputs)
	assert.Equal(t, 2, b.Devices.MBI5039[0].Chain)
	assert.Equal(t, pin(t, "PC1"), b.Devices.EMS22A[0].CS)

	assert.Equal(t, Sampler{Period: 2 * time.Second, RetryBackoff: 20 * time.Millisecond, MaxRetries: 8}, b.Sampler)
}

func TestLineNames(t *testing.T) {
	b, err := Load("testdata/bench.yaml")
	require.NoError(t, err)
	assert.Equal(t, "GPIO17", b.LineName(pin(t, "PB0").ID))
	assert.Equal(t, "", b.LineName(pin(t, "PC7").ID))

	s, ok := b.SPIBus("spi0")
	assert.True(t, ok)
	assert.Equal(t, "SPI0.0", s.Dev)
	_, ok = b.I2CBus("nope")
	assert.False(t, ok)
}

func TestRoundTrip(t *testing.T) {
	b, err := Load("testdata/bench.yaml")
	require.NoError(t, err)
	out, err := b.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), "pin: PA4")
	assert.Contains(t, string(out), "9e06050403020128")

	again, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, b, again)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name, yaml, want string
	}{
		{"bad pin", "devices:\n  ds18b20:\n    - name: t\n      pin: PZ4\n", "pin \"PZ4\""},
		{"unknown field", "devices:\n  ds18b20:\n    - name: t\n      pn: PA1\n", "field pn not found"},
		{"missing pin", "devices:\n  ds18b20:\n    - name: t\n", "t: data pin required"},
		{"bad resolution", "devices:\n  ds18b20:\n    - name: t\n      pin: PA1\n      resolution: 13\n", "resolution must be 9..12"},
		{"rom crc", "devices:\n  ds18b20:\n    - name: t\n      pin: PA1\n      address: 9f06050403020128\n", "crc mismatch"},
		{"unknown bus", "devices:\n  ems22a:\n    - name: e\n      spi: spi9\n", "unknown bus \"spi9\""},
		{"duplicate name", "spi:\n  - {name: s, dev: SPI0.0, hz: 1}\ndevices:\n  ems22a:\n    - {name: s, spi: s}\n", "duplicate name"},
		{"pin reuse", "spi:\n  - {name: s, dev: SPI0.0, hz: 1}\ndevices:\n  ems22a:\n    - {name: a, spi: s, cs: PA1}\n    - {name: b, spi: s, cs: PA1}\n", "already used by a.cs"},
		{"spi mode", "spi:\n  - {name: s, dev: SPI0.0, hz: 1, mode: 4}\n", "mode must be 0..3"},
		{"chain", "spi:\n  - {name: s, dev: SPI0.0, hz: 1}\ndevices:\n  mbi5039:\n    - {name: l, spi: s, nss: PA0, chain: 0}\n", "chain must be 1..255"},
		{"pca address", "i2c:\n  - {name: i, dev: \"1\"}\ndevices:\n  pca9554:\n    - {name: x, i2c: i, address: 8}\n", "address must be 0..7"},
		{"pin map key", "pins:\n  GPIO4: GPIO4\n", "not a pin id"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Parse([]byte(c.yaml))
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), c.want), "%v", err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("testdata/none.yaml")
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "testdata/none.yaml", ce.File)
}

func TestParseEmpty(t *testing.T) {
	b, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, b.Devices.DS18B20)
}
