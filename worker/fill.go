package worker

import (
	"time"

	"github.com/infinivision/satgo/telemetry"
)

// FillWorker runs once at startup: it assigns a pattern to Quota empty
// pages and writes that pattern's word stream into each one.
type FillWorker struct {
	base
	Deps
	Quota int
}

// NewFillWorker builds a fill worker that will fill exactly quota pages
// before exiting (it removes itself from status rather than looping
// forever, since fill is startup-only per spec.md 4.3).
func NewFillWorker(name string, deps Deps, quota int) *FillWorker {
	return &FillWorker{base: base{name: name}, Deps: deps, Quota: quota}
}

func (w *FillWorker) Run(status *Status, sink telemetry.Sink) {
	step := sink.Step(w.name)
	var paused bool
	for i := 0; i < w.Quota; i++ {
		if !status.ShouldContinue(&paused) {
			return
		}
		h, ok := w.Queue.TakeEmpty(w.Tag, sink)
		if !ok {
			step.Log("fill: take_empty failed, queue exhausted")
			status.RemoveSelf()
			return
		}
		d := h.Descriptor()
		d.VAddr = w.vaddr(d.Offset)
		p := w.Catalog.RandomPattern()
		buf := w.pageBuf(d.Offset)
		if w.TagMode {
			fillPageTagged(buf, p, d.VAddr)
		} else {
			fillPage(buf, p)
		}

		d.Pattern = p
		d.LastPattern = nil
		d.Timestamp = time.Now().UnixNano()
		if paddr, ok := w.OS.VirtualToPhysical(d.VAddr); ok {
			d.PAddr = paddr
			w.OS.MarkTouched(paddr, w.PageSize)
		}
		if !w.Queue.PutValid(h, d) {
			step.Log("fill: put_valid rejected descriptor at offset %d", d.Offset)
			status.RemoveSelf()
			return
		}
		w.tick()
	}
	status.RemoveSelf()
}
