package ogg

// The Ogg page checksum is a CRC-32 with polynomial 0x04C11DB7, no bit
// reversal and no final inversion, computed over the whole page with the
// checksum field taken as zero.
// See http://www.xiph.org/ogg/doc/framing.html

var crcTable [256]uint32

func init() {
	for i := 0; i < 256; i++ {
		r := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if r&0x80000000 != 0 {
				r = (r << 1) ^ 0x04c11db7
			} else {
				r <<= 1
			}
		}
		crcTable[i] = r
	}
}

func crcUpdate(crc uint32, data []byte) uint32 {
	for _, b := range data {
		crc = (crc << 8) ^ crcTable[byte(crc>>24)^b]
	}
	return crc
}

// pageChecksum computes the checksum of a raw page, treating the stored
// checksum field (bytes 22..25) as zero.
func pageChecksum(raw []byte) uint32 {
	var zero [4]byte
	crc := crcUpdate(0, raw[:crcOffset])
	crc = crcUpdate(crc, zero[:])
	return crcUpdate(crc, raw[crcOffset+4:])
}
