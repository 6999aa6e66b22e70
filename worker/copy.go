package worker

import (
	"math/rand"
	"runtime"
	"time"

	"github.com/infinivision/satgo/checksum"
	"github.com/infinivision/satgo/page"
	"github.com/infinivision/satgo/telemetry"
)

// forceErrorChance mirrors the original's force_errors self-test: on
// average one in this many copies corrupts one byte of the source page
// before it is verified, exercising the miscompare-detection path end
// to end rather than waiting for a real fault.
const forceErrorChance = 50000

// CopyMode selects how CopyWorker moves data from a valid page to an empty
// one.
type CopyMode int

const (
	// CopyStrict computes and verifies the Adler-4 of every block as it
	// copies, falling back to CheckRegion on mismatch.
	CopyStrict CopyMode = iota
	// CopyWarm is strict verification plus the OS collaborator's
	// SIMD-assisted copy path (degrades to strict when unavailable).
	CopyWarm
	// CopyLoose is a plain byte copy with no verification at all.
	CopyLoose
)

// CopyWorker borrows one valid page and one empty page with a matching tag
// and copies the former's content into the latter.
type CopyWorker struct {
	base
	Deps
	Mode CopyMode
	CPU  int
}

func NewCopyWorker(name string, deps Deps, mode CopyMode, cpu int) *CopyWorker {
	return &CopyWorker{base: base{name: name}, Deps: deps, Mode: mode, CPU: cpu}
}

func (w *CopyWorker) Run(status *Status, sink telemetry.Sink) {
	step := sink.Step(w.name)
	var paused bool
	for {
		if !status.ShouldContinue(&paused) {
			return
		}
		srcH, ok := w.Queue.TakeValid(w.Tag, sink)
		if !ok {
			runtime.Gosched()
			continue
		}
		dstH, ok := w.Queue.TakeEmpty(w.Tag, sink)
		if !ok {
			w.Queue.PutValid(srcH, srcH.Descriptor())
			runtime.Gosched()
			continue
		}

		src := srcH.Descriptor()
		dst := dstH.Descriptor()
		dst.VAddr = w.vaddr(dst.Offset)
		srcBuf := w.pageBuf(src.Offset)
		dstBuf := w.pageBuf(dst.Offset)

		if w.ErrorInjection && rand.Intn(forceErrorChance) == 0 {
			srcBuf[rand.Intn(len(srcBuf))] = 0xba
		}

		switch {
		case w.TagMode:
			if src.Pattern != nil {
				checkPageTagged(srcBuf, src.Pattern, src.VAddr, w.OS, w.ChannelSpec, step, w.CPU)
			}
			copy(dstBuf, srcBuf)
			retagPageTagged(dstBuf, dst.VAddr)
		case w.Mode == CopyLoose:
			copy(dstBuf, srcBuf)
		case w.Mode == CopyWarm:
			w.copyVerified(srcBuf, dstBuf, src, step, true)
		default:
			w.copyVerified(srcBuf, dstBuf, src, step, false)
		}

		dst.Pattern = src.Pattern
		dst.LastPattern = src.LastPattern
		dst.LastCPU = w.CPU
		dst.Timestamp = time.Now().UnixNano()
		if paddr, ok := w.OS.VirtualToPhysical(dst.VAddr); ok {
			dst.PAddr = paddr
			w.OS.MarkTouched(paddr, w.PageSize)
		}

		src.Pattern = nil
		w.Queue.PutValid(dstH, dst)
		w.Queue.PutEmpty(srcH, src)
		w.tick()
	}
}

// copyVerified copies block by block, computing the Adler-4 of each source
// block in the same pass and falling back to CheckRegion on mismatch. warm
// tries the OS collaborator's SIMD-assisted path first.
func (w *CopyWorker) copyVerified(srcBuf, dstBuf []byte, src page.Descriptor, step telemetry.Step, warm bool) {
	for off := 0; off+checksum.CRCBlockSize <= len(srcBuf); off += checksum.CRCBlockSize {
		srcBlock := srcBuf[off : off+checksum.CRCBlockSize]
		dstBlock := dstBuf[off : off+checksum.CRCBlockSize]

		var c checksum.Adler4
		var ok bool
		if warm {
			c, ok = w.OS.AdlerMemcpyWarm(dstBlock, srcBlock)
		}
		if !ok {
			c, ok = checksum.MemcpyAdlerBlock(dstBlock, srcBlock)
		}
		if !ok || src.Pattern == nil {
			continue
		}
		if !c.Equals(src.Pattern.Checksum()) {
			CheckRegion(srcBlock, src.Pattern, w.Catalog, src.VAddr+uintptr(off), w.OS, w.ChannelSpec, step, w.CPU)
			copy(dstBlock, srcBlock)
		}
	}
}
