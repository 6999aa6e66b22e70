// Package checksum implements the Adler-4 rolling checksum used to
// detect memory miscompares without keeping a full copy of the
// expected page around.
package checksum

// CRCBlockSize is the canonical buffer length a single Adler-4 is
// computed over: one CRC block.
const CRCBlockSize = 4096

// maxWords bounds Sum: checksumming 2^19 or more 8-byte (64-bit) reads
// would mean the caller handed us a buffer far larger than any single
// CRC block, which is always a caller bug.
const maxWords = 1 << 19

// Adler4 holds the four 64-bit lanes of the rolling checksum.
type Adler4 struct {
	A1, A2, B1, B2 uint64
}

// Equals reports whether every lane matches.
func (c Adler4) Equals(other Adler4) bool {
	return c.A1 == other.A1 && c.A2 == other.A2 && c.B1 == other.B1 && c.B2 == other.B2
}
