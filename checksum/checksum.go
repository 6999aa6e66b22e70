package checksum

import "fmt"

// Sum computes the Adler-4 checksum over buf. buf's length must be a
// multiple of 8 bytes (one 64-bit read per iteration, each read split
// into four 16-bit halfwords). Sum fails, returning the zero checksum
// and false, if the read count would be 2^19 or more -- that many
// 64-bit reads means the caller handed in something far larger than a
// single CRC block, always a caller bug rather than a legitimate
// checksum request.
func Sum(buf []byte) (Adler4, bool) {
	if len(buf)%8 != 0 {
		return Adler4{}, false
	}
	count := len(buf) / 8
	if count >= maxWords {
		return Adler4{}, false
	}

	var c Adler4
	for i := 0; i < count; i++ {
		off := i * 8
		lo := uint32(buf[off]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24
		hi := uint32(buf[off+4]) | uint32(buf[off+5])<<8 | uint32(buf[off+6])<<16 | uint32(buf[off+7])<<24

		h0 := uint64(lo & 0xffff)
		h1 := uint64(lo >> 16)
		h2 := uint64(hi & 0xffff)
		h3 := uint64(hi >> 16)

		c.A1 += h0
		c.B1 += c.A1
		c.A2 += h1
		c.B2 += c.A2
		c.A1 += h2
		c.B1 += c.A1
		c.A2 += h3
		c.B2 += c.A2
	}
	return c, true
}

// Sum4K computes the Adler-4 checksum over exactly one CRC block. It
// is the operation spec documents call checksum_4k.
func Sum4K(buf []byte) (Adler4, bool) {
	if len(buf) != CRCBlockSize {
		return Adler4{}, false
	}
	return Sum(buf)
}

// HexString renders the four lanes in fixed order as a canonical hex
// string, suitable for comparing checksums by eye in a diagnosis.
func (c Adler4) HexString() string {
	return fmt.Sprintf("%016x%016x%016x%016x", c.A1, c.A2, c.B1, c.B2)
}

// MemcpyAdlerBlock copies exactly one CRC block from src to dst and
// simultaneously computes the Adler-4 checksum over src, mirroring the
// original AdlerMemcpyC scalar path: the copy and the checksum walk
// the same block once instead of twice.
func MemcpyAdlerBlock(dst, src []byte) (Adler4, bool) {
	if len(dst) != CRCBlockSize || len(src) != CRCBlockSize {
		return Adler4{}, false
	}
	c, ok := Sum4K(src)
	if !ok {
		return Adler4{}, false
	}
	copy(dst, src)
	return c, true
}
