// Package conv formats integers into caller-owned buffers without fmt or
// strconv, for console output on TinyGo targets.
package conv

const hexDigits = "0123456789abcdef"

// AppendUint appends the decimal form of n.
func AppendUint(dst []byte, n uint64) []byte {
	var tmp [20]byte
	i := len(tmp)
	for {
		i--
		tmp[i] = byte('0' + n%10)
		n /= 10
		if n == 0 {
			break
		}
	}
	return append(dst, tmp[i:]...)
}

// AppendInt appends the decimal form of n.
func AppendInt(dst []byte, n int64) []byte {
	if n < 0 {
		return AppendUint(append(dst, '-'), uint64(-n))
	}
	return AppendUint(dst, uint64(n))
}

// AppendHex appends the low digits nibbles of n, zero-padded, lower case.
func AppendHex(dst []byte, n uint64, digits int) []byte {
	for s := 4 * (digits - 1); s >= 0; s -= 4 {
		dst = append(dst, hexDigits[n>>s&0xF])
	}
	return dst
}

// AppendMilli appends a thousandths fixed-point value as "-12.345".
func AppendMilli(dst []byte, v int64) []byte {
	u := uint64(v)
	if v < 0 {
		dst = append(dst, '-')
		u = uint64(-v)
	}
	dst = AppendUint(dst, u/1000)
	dst = append(dst, '.')
	f := u % 1000
	return append(dst, byte('0'+f/100), byte('0'+f/10%10), byte('0'+f%10))
}
