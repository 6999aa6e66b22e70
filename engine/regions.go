package engine

import (
	"math/bits"
	"sort"

	"github.com/infinivision/satgo/config"
	"github.com/infinivision/satgo/page"
	"github.com/infinivision/satgo/queue"
)

// settlePages walks every page the fill phase just populated, resolving
// each one's physical region and re-establishing the empty/valid split
// freePages calls for. This is InitializePages' second pass over
// pages_ (original_source/src/sat.cc:535-557): tag every page with its
// region bit, then re-empty the first freePages of them -- the step
// that actually creates the empty-page pool CopyWorker depends on.
//
// When cfg.RegionMode is none, region resolution is skipped outright
// and every page is tagged page.DontCareTag; e is still responsible
// for re-establishing the free/valid ratio in that case, so the
// fallback only drops the per-page region bit, not the ratio itself.
func (e *Engine) settlePages(pagesTotal, freePages int) map[int32]int {
	regions := make(map[int32]int)
	if e.cfg.RegionMode == config.RegionModeNone {
		e.sink.Step("Setup and Fill Memory Pages").Log(
			"region_mode=none: skipping per-page region tagging")
	}

	// Pages that stay valid are held until the walk ends so TakeValid
	// cannot hand the same page back twice.
	var heldH []queue.Handle
	var heldD []page.Descriptor
	for i := 0; i < pagesTotal; i++ {
		h, ok := e.queue.TakeValid(page.DontCareTag, e.sink)
		if !ok {
			break
		}
		d := h.Descriptor()
		tag := page.DontCareTag

		if e.cfg.RegionMode != config.RegionModeNone {
			if paddr, ok := e.os.VirtualToPhysical(d.VAddr); ok {
				d.PAddr = paddr
				if region := e.os.FindRegion(paddr); region >= 0 && region < 31 {
					tag = int32(1) << uint(region)
					regions[tag]++
				}
			}
		}
		d.Tag = tag

		if i < freePages {
			d.LastPattern = nil
			e.queue.PutEmpty(h, d)
		} else {
			heldH = append(heldH, h)
			heldD = append(heldD, d)
		}
	}
	for k := range heldH {
		e.queue.PutValid(heldH[k], heldD[k])
	}
	return regions
}

// regionTags expands the region tags settlePages discovered into a
// weighted round-robin schedule: each region's tag appears once per
// CPU oslayer.FindCoreMask reports for it, so a worker index modulo
// the schedule length lands proportionally more often on regions with
// more cores. Go has no portable way to pin a goroutine to a cpuset
// without cgo or assembly, so biasing which page tags a worker is
// willing to take is the idiomatic substitute for the original's
// per-thread affinity mask.
func (e *Engine) regionTags(regions map[int32]int) []int32 {
	if e.cfg.RegionMode == config.RegionModeNone || len(regions) == 0 {
		return []int32{page.DontCareTag}
	}

	tags := make([]int32, 0, len(regions))
	for tag := range regions {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })

	var schedule []int32
	for _, tag := range tags {
		region := int32(bits.TrailingZeros32(uint32(tag)))
		weight := len(e.os.FindCoreMask(region))
		if weight <= 0 {
			weight = 1
		}
		for k := 0; k < weight; k++ {
			schedule = append(schedule, tag)
		}
	}
	if len(schedule) == 0 {
		return []int32{page.DontCareTag}
	}
	return schedule
}
