package onewire

// CRC8 computes the Dallas/Maxim CRC-8 (x^8+x^5+x^4+1, reflected 0x8C,
// seed 0). Appending the result to data yields a zero CRC.
func CRC8(data []byte) byte {
	var crc byte
	for _, in := range data {
		for i := 0; i < 8; i++ {
			mix := (crc ^ in) & 1
			crc >>= 1
			if mix != 0 {
				crc ^= 0x8C
			}
			in >>= 1
		}
	}
	return crc
}
