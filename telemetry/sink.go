package telemetry

import (
	"fmt"
	"io"
	"sync"

	"github.com/nnsgmsone/damrey/logger"
)

// logSink is the default Sink: every call is logged through the
// teacher's logging dependency. It carries no other state, matching
// spec.md's note that the sink is assumed thread-safe.
type logSink struct {
	log logger.Log
}

// NewLogSink builds a Sink that forwards every error, diagnosis and
// measurement to w as a structured log line.
func NewLogSink(w io.Writer, name string) Sink {
	return &logSink{log: logger.New(w, name)}
}

func (s *logSink) Step(name string) Step {
	return &logStep{log: s.log, name: name}
}

type logStep struct {
	log  logger.Log
	name string
}

func (s *logStep) AddError(e ErrorRecord) {
	s.log.Errorf("%s: %s at vaddr=%#x paddr=%#x dimm=%s pattern=%s actual=%#08x expected=%#08x reread=%#08x cpu=%d\n",
		s.name, e.Kind, e.VAddr, e.PAddr, e.DIMM, e.PatternName, e.Actual, e.Expected, e.Reread, e.LastCPU)
}

func (s *logStep) AddDiagnosis(d Diagnosis) {
	switch d.Verdict {
	case VerdictBlockError:
		s.log.Errorf("%s: %s alt-pattern=%s range=[%d,%d] %s\n", s.name, d.Verdict, d.AltPattern, d.BlockStart, d.BlockEnd, d.Message)
	case VerdictProbeFail:
		s.log.Errorf("%s: %s cpu=%d metric=%f %s\n", s.name, d.Verdict, d.CPU, d.ProbeMetric, d.Message)
	default:
		s.log.Errorf("%s: %s %s\n", s.name, d.Verdict, d.Message)
	}
}

func (s *logStep) AddMeasurement(series string, value float64) {
	s.log.Infof("%s: measurement %s=%f\n", s.name, series, value)
}

func (s *logStep) Log(format string, args ...interface{}) {
	s.log.Infof("%s: %s\n", s.name, fmt.Sprintf(format, args...))
}

// RecordingSink is a Sink that keeps every error, diagnosis and
// measurement in memory, used only from tests to assert against the
// seeded end-to-end scenarios in spec.md section 8.
type RecordingSink struct {
	mu           sync.Mutex
	Errors       []ErrorRecord
	Diagnoses    []Diagnosis
	Measurements map[string][]float64
}

// NewRecordingSink builds an in-memory Sink for tests.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{Measurements: make(map[string][]float64)}
}

func (s *RecordingSink) Step(name string) Step {
	return &recordingStep{parent: s, name: name}
}

type recordingStep struct {
	parent *RecordingSink
	name   string
}

func (s *recordingStep) AddError(e ErrorRecord) {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	s.parent.Errors = append(s.parent.Errors, e)
}

func (s *recordingStep) AddDiagnosis(d Diagnosis) {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	s.parent.Diagnoses = append(s.parent.Diagnoses, d)
}

func (s *recordingStep) AddMeasurement(series string, value float64) {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	s.parent.Measurements[series] = append(s.parent.Measurements[series], value)
}

func (s *recordingStep) Log(format string, args ...interface{}) {
	// Recording sink keeps structured data only; free-form log lines
	// from workers are not useful to assert against in tests.
}
