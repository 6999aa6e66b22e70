package worker

import (
	"github.com/infinivision/satgo/oslayer"
	"github.com/infinivision/satgo/telemetry"
)

// CPUStressWorker has no queue interaction and cannot produce a diagnosis;
// it exists purely to load a core while other workers exercise memory, per
// spec.md 4.3's parallelism formula (num_cpu_stress_threads).
type CPUStressWorker struct {
	base
	OS oslayer.OS
}

func NewCPUStressWorker(name string, os oslayer.OS) *CPUStressWorker {
	return &CPUStressWorker{base: base{name: name}, OS: os}
}

func (w *CPUStressWorker) Run(status *Status, sink telemetry.Sink) {
	step := sink.Step(w.name)
	var paused bool
	for {
		if !status.ShouldContinue(&paused) {
			step.AddMeasurement("Iterations", float64(w.Iterations()))
			return
		}
		w.OS.CPUStressWorkload()
		w.tick()
	}
}
