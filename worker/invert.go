package worker

import (
	"runtime"

	"github.com/infinivision/satgo/telemetry"
)

// InvertWorker performs four whole-page bitwise inversions per page,
// returning the page to its original content (two inversions cancel)
// while exercising write bandwidth between each checksum validation.
type InvertWorker struct {
	base
	Deps
	CPU int
}

func NewInvertWorker(name string, deps Deps, cpu int) *InvertWorker {
	return &InvertWorker{base: base{name: name}, Deps: deps, CPU: cpu}
}

func (w *InvertWorker) Run(status *Status, sink telemetry.Sink) {
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
			strictCheckPage(buf, d.Pattern, w.Catalog, d.VAddr, w.Deps, step, w.CPU)

			invertPage(buf, true)
			w.OS.FastFlushSync()
			invertPage(buf, false)
			w.OS.FastFlushSync()
			invertPage(buf, false)
			w.OS.FastFlushSync()
			invertPage(buf, true)
			w.OS.FastFlushSync()

			strictCheckPage(buf, d.Pattern, w.Catalog, d.VAddr, w.Deps, step, w.CPU)
		}
		d.LastCPU = w.CPU
		w.Queue.PutValid(h, d)
		w.tick()
	}
}

// invertPage XORs every byte of buf with 0xff. up/down only changes the
// traversal direction (matching the original's "upward"/"downward" passes);
// the result is identical either way, but the direction affects which
// cachelines get flushed under realistic hardware timing, which a pure
// byte-slice simulation cannot distinguish.
func invertPage(buf []byte, up bool) {
	if up {
		for i := 0; i < len(buf); i++ {
			buf[i] = ^buf[i]
		}
		return
	}
	for i := len(buf) - 1; i >= 0; i-- {
		buf[i] = ^buf[i]
	}
}
