package worker

import (
	"github.com/infinivision/satgo/checksum"
	"github.com/infinivision/satgo/pattern"
	"github.com/infinivision/satgo/telemetry"
)

// fillPage tiles p's canonical 4 KiB block across the whole page buffer, so
// every CRC block within a multi-block page carries identical content and
// checks cleanly against p.Checksum().
func fillPage(buf []byte, p *pattern.Pattern) {
	for off := 0; off+checksum.CRCBlockSize <= len(buf); off += checksum.CRCBlockSize {
		fillBlock(buf[off:off+checksum.CRCBlockSize], p)
	}
}

func fillBlock(block []byte, p *pattern.Pattern) {
	for i := 0; i*4 < len(block); i++ {
		writeWord32(block, i*4, p.Word(uint32(i)))
	}
}

// strictCheckPage walks every CRC block in buf, comparing its Adler-4
// against p's precomputed checksum; on mismatch it falls back to
// CheckRegion to localize, diagnose and repair. Returns the count of
// blocks that failed the fast checksum.
func strictCheckPage(buf []byte, p *pattern.Pattern, catalog *pattern.Catalog, vaddrBase uintptr, deps Deps, step telemetry.Step, lastCPU int) int {
	failed := 0
	for off := 0; off+checksum.CRCBlockSize <= len(buf); off += checksum.CRCBlockSize {
		block := buf[off : off+checksum.CRCBlockSize]
		c, ok := checksum.Sum4K(block)
		if ok && c.Equals(p.Checksum()) {
			continue
		}
		failed++
		CheckRegion(block, p, catalog, vaddrBase+uintptr(off), deps.OS, deps.ChannelSpec, step, lastCPU)
	}
	return failed
}
