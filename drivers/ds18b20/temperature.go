package ds18b20

// Temperature is the raw two's-complement reading in 1/16 °C.
type Temperature int16

// DecodeTemperature assembles the temperature register from its two
// scratchpad bytes.
func DecodeTemperature(lsb, msb byte) Temperature {
	return Temperature(uint16(lsb) | uint16(msb)<<8)
}

// Celsius returns whole degrees: the fraction is dropped by an arithmetic
// shift, then 1 is added when bit 3 of the low byte (0.5 °C) is set. This is
// not round-half-away-from-zero for negative readings.
func (t Temperature) Celsius() int8 {
	c := int8(int16(t) >> 4)
	if t&0x08 != 0 {
		c++
	}
	return c
}

// MilliCelsius returns the exact reading in m°C.
func (t Temperature) MilliCelsius() int32 { return int32(t) * 625 / 10 }

// DeciCelsius returns the reading in tenths of °C, truncated toward zero.
func (t Temperature) DeciCelsius() int32 { return int32(t) * 10 / 16 }
