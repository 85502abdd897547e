package mathx

// MapU16 maps x from [inMin,inMax] onto [outMin,outMax], clamping x to the
// input range first. The output range may be inverted.
func MapU16(x, inMin, inMax, outMin, outMax uint16) uint16 {
	if inMax == inMin {
		return outMin
	}
	x = Clamp(x, inMin, inMax)
	num := (int64(x) - int64(inMin)) * (int64(outMax) - int64(outMin))
	return uint16(int64(outMin) + num/(int64(inMax)-int64(inMin)))
}
