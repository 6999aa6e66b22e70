package worker

import (
	"github.com/infinivision/satgo/checksum"
	"github.com/infinivision/satgo/oslayer"
	"github.com/infinivision/satgo/pattern"
	"github.com/infinivision/satgo/telemetry"
)

// tagInterval is the glossary's "every 64 B"; tagWidth is the synthetic
// 64-bit word written at the start of each interval.
const (
	tagInterval = 64
	tagWidth    = 8
)

func writeTag(buf []byte, off int, vaddr uint64) {
	for i := 0; i < tagWidth; i++ {
		buf[off+i] = byte(vaddr >> (8 * i))
	}
}

func readTag(buf []byte, off int) uint64 {
	var v uint64
	for i := 0; i < tagWidth; i++ {
		v |= uint64(buf[off+i]) << (8 * i)
	}
	return v
}

// fillPageTagged fills buf from p exactly as fillPage does, then overwrites
// the first tagWidth bytes of every tagInterval-byte chunk with that
// chunk's own virtual address.
func fillPageTagged(buf []byte, p *pattern.Pattern, vaddrBase uintptr) {
	fillPage(buf, p)
	for off := 0; off+tagInterval <= len(buf); off += tagInterval {
		writeTag(buf, off, uint64(vaddrBase)+uint64(off))
	}
}

// retagPageTagged is the copy-side equivalent: re-tag the destination with
// its own (different) virtual address while leaving the rest of the
// already-copied content untouched.
func retagPageTagged(buf []byte, vaddrBase uintptr) {
	for off := 0; off+tagInterval <= len(buf); off += tagInterval {
		writeTag(buf, off, uint64(vaddrBase)+uint64(off))
	}
}

// checkPageTagged verifies every tag word against the address it should
// carry, and every non-tag word against p's word stream at the same
// block-relative word index fillPageTagged used (fillPageTagged never
// skipped indices -- it wrote the full pattern, then overwrote the tag
// words on top -- so the surviving non-tag words still line up with
// pattern.Word(i), with i restarting at 0 in every 4 KiB block).
// Returns the count of tag-fail diagnoses emitted.
func checkPageTagged(buf []byte, p *pattern.Pattern, vaddrBase uintptr, os oslayer.OS, spec oslayer.ChannelSpec, step telemetry.Step, lastCPU int) int {
	tagFails := 0
	for chunkOff := 0; chunkOff+tagInterval <= len(buf); chunkOff += tagInterval {
		expectedTag := uint64(vaddrBase) + uint64(chunkOff)
		actualTag := readTag(buf, chunkOff)
		if actualTag != expectedTag {
			tagFails++
			rec := telemetry.ErrorRecord{
				Actual:      uint32(actualTag),
				Expected:    uint32(expectedTag),
				VAddr:       vaddrBase + uintptr(chunkOff),
				PatternName: p.Name(),
				LastCPU:     lastCPU,
				Kind:        telemetry.ErrorKindWrite,
			}
			if paddr, ok := os.VirtualToPhysical(rec.VAddr); ok {
				rec.PAddr = paddr
				rec.DIMM = os.FindDIMM(paddr, spec)
			}
			step.AddError(rec)
			step.AddDiagnosis(telemetry.Diagnosis{
				Verdict: telemetry.VerdictTagFail,
				Message: "address tag did not match its own virtual address",
				Record:  &rec,
			})
			writeTag(buf, chunkOff, expectedTag)
		}

		for wordOff := tagWidth; wordOff < tagInterval; wordOff += 4 {
			off := chunkOff + wordOff
			i := (off % checksum.CRCBlockSize) / 4
			expected := p.Word(uint32(i))
			actual := readWord32(buf, off)
			if actual != expected {
				rec := telemetry.ErrorRecord{
					Actual:      actual,
					Expected:    expected,
					VAddr:       vaddrBase + uintptr(off),
					PatternName: p.Name(),
					LastCPU:     lastCPU,
					Kind:        telemetry.ErrorKindRead,
				}
				writeWord32(buf, off, expected)
				step.AddError(rec)
				step.AddDiagnosis(telemetry.Diagnosis{Verdict: telemetry.VerdictMiscompareFail, Message: "word miscompare, repaired", Record: &rec})
			}
		}
	}
	return tagFails
}
