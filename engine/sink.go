package engine

import (
	"sync/atomic"

	"github.com/infinivision/satgo/telemetry"
)

// countingSink wraps the caller-supplied telemetry.Sink and keeps an
// atomic tally of every error and diagnosis recorded across every
// step, so Run can decide the exit-status contract without requiring
// every telemetry.Sink implementation to expose its own counters.
type countingSink struct {
	inner     telemetry.Sink
	errors    int64
	diagnoses int64
}

func newCountingSink(inner telemetry.Sink) *countingSink {
	return &countingSink{inner: inner}
}

func (s *countingSink) Step(name string) telemetry.Step {
	return &countingStep{parent: s, inner: s.inner.Step(name)}
}

func (s *countingSink) errorCount() int     { return int(atomic.LoadInt64(&s.errors)) }
func (s *countingSink) diagnosisCount() int { return int(atomic.LoadInt64(&s.diagnoses)) }

type countingStep struct {
	parent *countingSink
	inner  telemetry.Step
}

func (s *countingStep) AddError(e telemetry.ErrorRecord) {
	atomic.AddInt64(&s.parent.errors, 1)
	s.inner.AddError(e)
}

func (s *countingStep) AddDiagnosis(d telemetry.Diagnosis) {
	atomic.AddInt64(&s.parent.diagnoses, 1)
	s.inner.AddDiagnosis(d)
}

func (s *countingStep) AddMeasurement(series string, value float64) {
	s.inner.AddMeasurement(series, value)
}

func (s *countingStep) Log(format string, args ...interface{}) {
	s.inner.Log(format, args...)
}
