package worker

import (
	"runtime"

	"github.com/infinivision/satgo/telemetry"
)

// CheckWorker re-verifies valid pages without mutating their content.
// During shutdown (status observes STOP) it is the orchestrator's
// responsibility to drain the queue via PutEmpty on the already-verified
// pages instead of spawning more CheckWorker iterations.
type CheckWorker struct {
	base
	Deps
	CPU int
}

func NewCheckWorker(name string, deps Deps, cpu int) *CheckWorker {
	return &CheckWorker{base: base{name: name}, Deps: deps, CPU: cpu}
}

func (w *CheckWorker) Run(status *Status, sink telemetry.Sink) {
	step := sink.Step(w.name)
	var paused bool
	for {
		if !status.ShouldContinue(&paused) {
			return
		}
		h, ok := w.Queue.TakeValid(w.Tag, sink)
		if !ok {
			runtime.Gosched()
			continue
		}
		d := h.Descriptor()
		if d.Pattern != nil {
			buf := w.pageBuf(d.Offset)
			if w.TagMode {
				checkPageTagged(buf, d.Pattern, d.VAddr, w.OS, w.ChannelSpec, step, w.CPU)
			} else {
				strictCheckPage(buf, d.Pattern, w.Catalog, d.VAddr, w.Deps, step, w.CPU)
			}
		}
		w.Queue.PutValid(h, d)
		w.tick()
	}
}

// DrainToEmpty runs CheckWorker's verification one final time on every
// reachable valid page and then returns it to the empty pool, used by the
// orchestrator's teardown sequence (spec.md 4.3's "during shutdown the
// controller instead puts checked pages to the empty queue to drain").
func DrainToEmpty(deps Deps, sink telemetry.Sink, cpu int) int {
	step := sink.Step("Final Check")
	drained := 0
	for {
		h, ok := deps.Queue.TakeValid(deps.Tag, sink)
		if !ok {
			return drained
		}
		d := h.Descriptor()
		if d.Pattern != nil {
			buf := deps.pageBuf(d.Offset)
			if deps.TagMode {
				checkPageTagged(buf, d.Pattern, d.VAddr, deps.OS, deps.ChannelSpec, step, cpu)
			} else {
				strictCheckPage(buf, d.Pattern, deps.Catalog, d.VAddr, deps, step, cpu)
			}
		}
		deps.Queue.PutEmpty(h, d)
		drained++
	}
}
