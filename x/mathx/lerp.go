package mathx

// LerpU16 interpolates between a and b with t in Q16 (0xFFFF is b).
func LerpU16(a, b, t uint16) uint16 {
	res := int64(a) + (int64(b)-int64(a))*int64(t)/0xFFFF
	return uint16(Clamp(res, 0, 0xFFFF))
}
