package worker

import (
	"github.com/infinivision/satgo/oslayer"
	"github.com/infinivision/satgo/pattern"
	"github.com/infinivision/satgo/ring"
	"github.com/infinivision/satgo/telemetry"
)

func readWord32(buf []byte, off int) uint32 {
	return uint32(buf[off]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24
}

func writeWord32(buf []byte, off int, w uint32) {
	buf[off] = byte(w)
	buf[off+1] = byte(w >> 8)
	buf[off+2] = byte(w >> 16)
	buf[off+3] = byte(w >> 24)
}

// CheckRegion is the slow comparator every worker kind falls back to once
// a block's Adler-4 fails to match its assigned pattern. It localizes every
// miscompare, repairs it in place, and separately attempts a whole-block
// re-pattern explanation. Returns true iff the block was in fact clean
// (false positive from the fast checksum path -- only possible if the
// caller mis-sized buf).
func CheckRegion(block []byte, p *pattern.Pattern, catalog *pattern.Catalog, vaddrBase uintptr, os oslayer.OS, spec oslayer.ChannelSpec, step telemetry.Step, lastCPU int) bool {
	errs := ring.New()
	fullPage := false
	foundBad := false

	for i := 0; i*4 < len(block); i++ {
		off := i * 4
		expected := p.Word(uint32(i))
		actual := readWord32(block, off)
		if actual == expected {
			continue
		}
		foundBad = true
		rec := telemetry.ErrorRecord{
			Actual:      actual,
			Expected:    expected,
			VAddr:       vaddrBase + uintptr(off),
			PatternName: p.Name(),
			LastCPU:     lastCPU,
		}
		if fullPage || !errs.Push(rec) {
			fullPage = true
			step.AddError(rec)
			continue
		}
	}
	if !foundBad {
		return true
	}

	if alt, start, end, ok := rePatternAnalysis(block, p, catalog); ok {
		step.AddDiagnosis(telemetry.Diagnosis{
			Verdict:    telemetry.VerdictBlockError,
			Message:    "block matches an alternate pattern",
			BlockStart: start,
			BlockEnd:   end,
			AltPattern: alt.Name(),
		})
	}

	for !errs.IsEmpty() {
		rec, _ := errs.Pop()
		processError(rec, block, vaddrBase, os, spec, step)
	}
	return false
}

// processError localizes one miscompare (vaddr -> paddr -> DIMM), repairs
// it by writing back the expected value under a cacheline flush, and
// reports the read-back value. Word-level miscompares default to
// read-error: this implementation's cacheline flush is a no-op (see
// oslayer/linux.go), so there is no real signal to distinguish a CPU-cache-
// stale read from genuinely write-corrupted DRAM; write-error is reserved
// for classification paths with that signal available.
func processError(rec telemetry.ErrorRecord, block []byte, vaddrBase uintptr, os oslayer.OS, spec oslayer.ChannelSpec, step telemetry.Step) {
	off := int(rec.VAddr - vaddrBase)

	paddr, _ := os.VirtualToPhysical(rec.VAddr)
	rec.PAddr = paddr
	rec.DIMM = os.FindDIMM(paddr, spec)
	rec.Kind = telemetry.ErrorKindRead

	writeWord32(block, off, rec.Expected)
	os.FastFlushHint(rec.VAddr)
	os.FastFlushSync()
	rec.Reread = readWord32(block, off)

	step.AddError(rec)
	step.AddDiagnosis(telemetry.Diagnosis{
		Verdict: telemetry.VerdictMiscompareFail,
		Message: "word miscompare, repaired",
		Record:  &rec,
	})
}

// rePatternAnalysis looks, for every pattern in catalog other than assigned,
// for the longest contiguous run of words matching that pattern's word
// stream. It reports a run only when it covers the entire block -- a
// partial run is too easy to produce by coincidence among a handful of
// candidate patterns to be worth flagging.
func rePatternAnalysis(block []byte, assigned *pattern.Pattern, catalog *pattern.Catalog) (*pattern.Pattern, int, int, bool) {
	n := len(block) / 4
	var bestPattern *pattern.Pattern
	bestStart, bestEnd, bestLen := 0, 0, 0

	for i := 0; i < catalog.Len(); i++ {
		alt := catalog.Pattern(i)
		if alt == assigned {
			continue
		}
		runStart := -1
		for w := 0; w <= n; w++ {
			matched := false
			if w < n {
				matched = readWord32(block, w*4) == alt.Word(uint32(w))
			}
			if matched {
				if runStart < 0 {
					runStart = w
				}
				continue
			}
			if runStart >= 0 {
				length := w - runStart
				if length > bestLen {
					bestPattern, bestStart, bestEnd, bestLen = alt, runStart*4, w*4-1, length
				}
				runStart = -1
			}
		}
	}
	if bestPattern == nil || bestLen != n {
		return nil, 0, 0, false
	}
	return bestPattern, bestStart, bestEnd, true
}
